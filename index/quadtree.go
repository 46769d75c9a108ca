package index

import (
	"github.com/paulmach/orb"
	"github.com/pkg/errors"
	"quadjoin/common"
	"quadjoin/util"
	"sort"
)

// Quadtree is a linear quadtree over a point set. Instead of pointer-linked
// nodes it stores one row per node in parallel slices, level-major with the
// root first. A leaf row covers a contiguous range of PointIndices via
// Offsets/Lengths, an internal row covers its child rows the same way.
type Quadtree struct {
	Keys       []uint32
	Levels     []uint8
	IsInternal []bool
	Lengths    []uint32
	Offsets    []uint32

	// PointIndices is the Morton-sorted permutation of the input point
	// indices. The sort is stable, equal keys keep their input order, so
	// identical inputs always produce identical trees.
	PointIndices []uint32

	Config common.Config
}

func (q *Quadtree) NumNodes() int {
	return len(q.Keys)
}

// LeafPoints returns the original point indices covered by leaf row i.
func (q *Quadtree) LeafPoints(i int) []uint32 {
	return q.PointIndices[q.Offsets[i] : q.Offsets[i]+q.Lengths[i]]
}

// CellBound returns the grid cell covered by node row i.
func (q *Quadtree) CellBound(i int) orb.Bound {
	return CellBound(q.Keys[i], q.Levels[i], q.Config)
}

// span is one node candidate during construction: a maximal run of sorted
// points sharing the same key prefix at some level.
type span struct {
	key    uint32
	count  uint32
	offset uint32 // first covered position in the sorted point order
}

// Build constructs the quadtree for the given points. The point keys are
// computed in parallel on the finest grid level, the indices are sorted by
// key and then grouped bottom-up into nodes: a node stays a leaf when it
// holds at most Config.MaxSize points or sits on the deepest level, anything
// larger is split into its occupied child quadrants. Empty input yields an
// empty tree.
//
// An invalid config is reported immediately, before any key is computed.
func Build(points []orb.Point, config common.Config) (*Quadtree, error) {
	err := config.Validate()
	if err != nil {
		return nil, errors.Wrap(err, "Cannot build quadtree")
	}

	quadtree := &Quadtree{Config: config}
	numPoints := len(points)
	if numPoints == 0 {
		return quadtree, nil
	}

	keys := make([]uint32, numPoints)
	util.ParallelChunks(numPoints, func(_ int, start int, end int) {
		for i := start; i < end; i++ {
			keys[i] = MortonCode(points[i], config)
		}
	})

	order := make([]uint32, numPoints)
	for i := range order {
		order[i] = uint32(i)
	}
	sort.SliceStable(order, func(a, b int) bool {
		return keys[order[a]] < keys[order[b]]
	})
	quadtree.PointIndices = order

	sortedKeys := make([]uint32, numPoints)
	for position, pointIndex := range order {
		sortedKeys[position] = keys[pointIndex]
	}

	// Group bottom-up: spans on the finest level are runs of equal keys,
	// spans on every coarser level merge the child spans sharing a key
	// prefix. This materializes only occupied quadrants.
	spansPerLevel := make([][]span, config.MaxDepth+1)
	spansPerLevel[config.MaxDepth] = groupSortedKeys(sortedKeys)
	for level := config.MaxDepth - 1; level >= 0; level-- {
		spansPerLevel[level] = groupParentSpans(spansPerLevel[level+1])
	}

	quadtree.flattenSpans(spansPerLevel)
	return quadtree, nil
}

func groupSortedKeys(sortedKeys []uint32) []span {
	var spans []span
	for i := 0; i < len(sortedKeys); {
		j := i + 1
		for j < len(sortedKeys) && sortedKeys[j] == sortedKeys[i] {
			j++
		}
		spans = append(spans, span{key: sortedKeys[i], count: uint32(j - i), offset: uint32(i)})
		i = j
	}
	return spans
}

func groupParentSpans(children []span) []span {
	var spans []span
	for i := 0; i < len(children); {
		parentKey := children[i].key >> 2
		parent := span{key: parentKey, offset: children[i].offset}
		for i < len(children) && children[i].key>>2 == parentKey {
			parent.count += children[i].count
			i++
		}
		spans = append(spans, parent)
	}
	return spans
}

// flattenSpans prunes the full span pyramid top-down and flattens the
// surviving nodes into the row slices. A span survives when its parent is
// kept and internal; the children of leaves are dropped.
func (q *Quadtree) flattenSpans(spansPerLevel [][]span) {
	maxDepth := q.Config.MaxDepth

	kept := make([][]span, maxDepth+1)
	internal := make([][]bool, maxDepth+1)
	childStart := make([][]uint32, maxDepth+1) // per kept internal span: first child position on the next level
	childCount := make([][]uint32, maxDepth+1)

	kept[0] = spansPerLevel[0] // the root, a single span
	for level := 0; level <= maxDepth; level++ {
		internal[level] = make([]bool, len(kept[level]))
		childStart[level] = make([]uint32, len(kept[level]))
		childCount[level] = make([]uint32, len(kept[level]))
		for i, s := range kept[level] {
			internal[level][i] = level < maxDepth && s.count > q.Config.MaxSize
		}
		if level == maxDepth {
			break
		}

		// Both span lists are sorted by key, a merge walk attaches every
		// child to its parent.
		var next []span
		parent := 0
		for _, child := range spansPerLevel[level+1] {
			parentKey := child.key >> 2
			for parent < len(kept[level]) && kept[level][parent].key < parentKey {
				parent++
			}
			if parent == len(kept[level]) {
				break
			}
			if kept[level][parent].key != parentKey || !internal[level][parent] {
				continue
			}
			if childCount[level][parent] == 0 {
				childStart[level][parent] = uint32(len(next))
			}
			childCount[level][parent]++
			next = append(next, child)
		}
		kept[level+1] = next
	}

	numNodes := 0
	levelStart := make([]uint32, maxDepth+1)
	for level := 0; level <= maxDepth; level++ {
		levelStart[level] = uint32(numNodes)
		numNodes += len(kept[level])
	}

	q.Keys = make([]uint32, 0, numNodes)
	q.Levels = make([]uint8, 0, numNodes)
	q.IsInternal = make([]bool, 0, numNodes)
	q.Lengths = make([]uint32, 0, numNodes)
	q.Offsets = make([]uint32, 0, numNodes)

	for level := 0; level <= maxDepth; level++ {
		for i, s := range kept[level] {
			q.Keys = append(q.Keys, s.key)
			q.Levels = append(q.Levels, uint8(level))
			q.IsInternal = append(q.IsInternal, internal[level][i])
			if internal[level][i] {
				q.Lengths = append(q.Lengths, childCount[level][i])
				q.Offsets = append(q.Offsets, levelStart[level+1]+childStart[level][i])
			} else {
				q.Lengths = append(q.Lengths, s.count)
				q.Offsets = append(q.Offsets, s.offset)
			}
		}
	}
}

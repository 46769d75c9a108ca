package join

import (
	"github.com/hauke96/sigolo/v2"
	"github.com/paulmach/orb"
	"github.com/pkg/errors"
	"math"
	"quadjoin/common"
	"quadjoin/geometry"
	"quadjoin/index"
	"quadjoin/util"
	"sort"
	"time"
)

// NearestResults holds one row per point that shared a leaf quadrant with at
// least one linestring box: the point, its nearest of those linestrings and
// the distance between them. Rows are sorted by point offset.
type NearestResults struct {
	PointOffsets      []uint32
	LinestringOffsets []uint32
	Distances         []float64
}

func (r NearestResults) Len() int {
	return len(r.PointOffsets)
}

// QuadtreePointToNearestLinestring resolves candidate pairs from joining the
// tree against EXPANDED linestring boxes (see ExpandedBoundingBoxes) into
// per-point nearest neighbors. Every point of a matched leaf is compared
// against exactly the linestrings matched to that leaf; points whose leaf
// matched no linestring are absent from the result, so the expansion radius
// of the boxes bounds the search distance.
//
// Ties go to the lowest linestring offset.
func QuadtreePointToNearestLinestring(pairs CandidatePairs, quadtree *index.Quadtree, points []orb.Point, lines geometry.Collection) (NearestResults, error) {
	err := lines.ValidateLineStrings()
	if err != nil {
		return NearestResults{}, errors.Wrap(err, "Cannot search nearest linestrings")
	}
	err = validatePairs(pairs, quadtree, lines.NumGeometries())
	if err != nil {
		return NearestResults{}, err
	}

	// Regroup the pairs by leaf so each leaf is handled exactly once.
	linesPerLeaf := map[uint32][]uint32{}
	for k := 0; k < pairs.Len(); k++ {
		leaf := pairs.QuadOffsets[k]
		linesPerLeaf[leaf] = append(linesPerLeaf[leaf], pairs.BBoxOffsets[k])
	}
	leaves := make([]uint32, 0, len(linesPerLeaf))
	for leaf, leafLines := range linesPerLeaf {
		leaves = append(leaves, leaf)
		sort.Slice(leafLines, func(a, b int) bool { return leafLines[a] < leafLines[b] })
	}
	sort.Slice(leaves, func(a, b int) bool { return leaves[a] < leaves[b] })

	numChunks := util.NumChunks(len(leaves))
	chunkResults := make([]NearestResults, numChunks)
	util.ParallelChunks(len(leaves), func(chunk int, start int, end int) {
		results := NearestResults{}

		for l := start; l < end; l++ {
			leaf := leaves[l]
			leafLines := linesPerLeaf[leaf]

			for _, pointIndex := range quadtree.LeafPoints(int(leaf)) {
				nearestLine := leafLines[0]
				nearestDistance := pointToLinestringDistance(points[pointIndex], lines, int(leafLines[0]))
				for _, line := range leafLines[1:] {
					distance := pointToLinestringDistance(points[pointIndex], lines, int(line))
					if distance < nearestDistance {
						nearestDistance = distance
						nearestLine = line
					}
				}

				results.PointOffsets = append(results.PointOffsets, pointIndex)
				results.LinestringOffsets = append(results.LinestringOffsets, nearestLine)
				results.Distances = append(results.Distances, nearestDistance)
			}
		}

		chunkResults[chunk] = results
	})

	result := NearestResults{}
	for _, results := range chunkResults {
		result.PointOffsets = append(result.PointOffsets, results.PointOffsets...)
		result.LinestringOffsets = append(result.LinestringOffsets, results.LinestringOffsets...)
		result.Distances = append(result.Distances, results.Distances...)
	}
	sortNearestResults(&result)
	return result, nil
}

// NearestPipeline runs the whole proximity query in one call: build the
// quadtree over the points, join it against the linestring boxes expanded by
// radius and resolve the candidates into per-point nearest linestrings.
// Points whose leaf cell stays outside all expanded boxes are missing from
// the result, so radius bounds how far the search reaches.
func NearestPipeline(points []orb.Point, lines geometry.Collection, radius float64, config common.Config) (NearestResults, error) {
	start := time.Now()

	quadtree, err := index.Build(points, config)
	if err != nil {
		return NearestResults{}, err
	}

	boxes, err := geometry.ExpandedBoundingBoxes(lines, radius)
	if err != nil {
		return NearestResults{}, err
	}

	pairs, err := QuadtreeBoundingBoxJoin(quadtree, boxes)
	if err != nil {
		return NearestResults{}, err
	}

	results, err := QuadtreePointToNearestLinestring(pairs, quadtree, points, lines)
	if err != nil {
		return NearestResults{}, err
	}

	sigolo.Debugf("Proximity query over %d points and %d linestrings took %s (%d nodes, %d candidate pairs, %d matched points)",
		len(points), lines.NumGeometries(), time.Since(start), quadtree.NumNodes(), pairs.Len(), results.Len())
	return results, nil
}

// pointToLinestringDistance is the smallest euclidean distance from p to any
// segment of any chain of linestring i.
func pointToLinestringDistance(p orb.Point, lines geometry.Collection, i int) float64 {
	nearest := math.Inf(1)

	firstChain := lines.GeometryOffsets[i]
	lastChain := lines.GeometryOffsets[i+1]
	for chain := firstChain; chain < lastChain; chain++ {
		first := lines.RingOffsets[chain]
		last := lines.RingOffsets[chain+1]
		for v := first; v+1 < last; v++ {
			distance := pointToSegmentDistanceSq(p, lines.Vertices[v], lines.Vertices[v+1])
			if distance < nearest {
				nearest = distance
			}
		}
	}

	return math.Sqrt(nearest)
}

func pointToSegmentDistanceSq(p orb.Point, a orb.Point, b orb.Point) float64 {
	segmentX, segmentY := b.X()-a.X(), b.Y()-a.Y()
	pointX, pointY := p.X()-a.X(), p.Y()-a.Y()

	segmentLengthSq := segmentX*segmentX + segmentY*segmentY
	if segmentLengthSq == 0 {
		return pointX*pointX + pointY*pointY
	}

	// Clamp the projection onto the segment to its endpoints.
	t := (pointX*segmentX + pointY*segmentY) / segmentLengthSq
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}

	deltaX := pointX - t*segmentX
	deltaY := pointY - t*segmentY
	return deltaX*deltaX + deltaY*deltaY
}

func sortNearestResults(results *NearestResults) {
	order := make([]int, results.Len())
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		return results.PointOffsets[order[a]] < results.PointOffsets[order[b]]
	})

	sortedPoints := make([]uint32, results.Len())
	sortedLines := make([]uint32, results.Len())
	sortedDistances := make([]float64, results.Len())
	for position, i := range order {
		sortedPoints[position] = results.PointOffsets[i]
		sortedLines[position] = results.LinestringOffsets[i]
		sortedDistances[position] = results.Distances[i]
	}
	results.PointOffsets = sortedPoints
	results.LinestringOffsets = sortedLines
	results.Distances = sortedDistances
}

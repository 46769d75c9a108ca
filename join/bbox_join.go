package join

import (
	"github.com/paulmach/orb"
	"github.com/pkg/errors"
	"quadjoin/index"
	"quadjoin/util"
)

// CandidatePairs relates bounding boxes to the quadtree leaves they may
// share points with. BBoxOffsets index the caller's box slice, QuadOffsets
// are leaf row indices into the quadtree's node slices. Pairs are unique,
// their order carries no meaning.
type CandidatePairs struct {
	BBoxOffsets []uint32
	QuadOffsets []uint32
}

func (p CandidatePairs) Len() int {
	return len(p.BBoxOffsets)
}

// QuadtreeBoundingBoxJoin walks the quadtree once per bounding box, from the
// root down. Quadrants whose grid cell does not overlap the box prune their
// entire subtree, surviving internal quadrants expand into their children
// and surviving leaves are emitted as candidate pairs. A box spanning
// several leaf cells produces several pairs, a box outside the area of
// interest produces none.
//
// Overlap is strict (interiors must intersect): grid cells are half-open, a
// box merely touching a cell's lower edge cannot contain any of the cell's
// points under the half-open containment convention, so skipping it loses
// nothing.
//
// The boxes are processed in parallel. An invalid tree config is reported
// before the traversal starts.
func QuadtreeBoundingBoxJoin(quadtree *index.Quadtree, boxes []orb.Bound) (CandidatePairs, error) {
	if quadtree == nil {
		return CandidatePairs{}, errors.Errorf("Quadtree must not be nil")
	}
	err := quadtree.Config.Validate()
	if err != nil {
		return CandidatePairs{}, errors.Wrap(err, "Cannot join bounding boxes")
	}
	if quadtree.NumNodes() == 0 || len(boxes) == 0 {
		return CandidatePairs{}, nil
	}

	numChunks := util.NumChunks(len(boxes))
	chunkPairs := make([]CandidatePairs, numChunks)
	util.ParallelChunks(len(boxes), func(chunk int, start int, end int) {
		pairs := CandidatePairs{}
		var stack []uint32

		for b := start; b < end; b++ {
			box := boxes[b]
			if !overlapsCell(box, quadtree.CellBound(0)) {
				continue
			}

			// Children are pushed in reverse so rows pop in ascending
			// order, keeping the output deterministic.
			stack = append(stack[:0], 0)
			for len(stack) > 0 {
				row := stack[len(stack)-1]
				stack = stack[:len(stack)-1]

				if !quadtree.IsInternal[row] {
					pairs.BBoxOffsets = append(pairs.BBoxOffsets, uint32(b))
					pairs.QuadOffsets = append(pairs.QuadOffsets, row)
					continue
				}

				first := quadtree.Offsets[row]
				for child := first + quadtree.Lengths[row]; child > first; child-- {
					if overlapsCell(box, quadtree.CellBound(int(child-1))) {
						stack = append(stack, child-1)
					}
				}
			}
		}

		chunkPairs[chunk] = pairs
	})

	result := CandidatePairs{}
	for _, pairs := range chunkPairs {
		result.BBoxOffsets = append(result.BBoxOffsets, pairs.BBoxOffsets...)
		result.QuadOffsets = append(result.QuadOffsets, pairs.QuadOffsets...)
	}
	return result, nil
}

func overlapsCell(box orb.Bound, cell orb.Bound) bool {
	return box.Max.X() > cell.Min.X() && box.Min.X() < cell.Max.X() &&
		box.Max.Y() > cell.Min.Y() && box.Min.Y() < cell.Max.Y()
}

package join

import (
	"github.com/hauke96/sigolo/v2"
	"github.com/paulmach/orb"
	"github.com/pkg/errors"
	"quadjoin/common"
	"quadjoin/geometry"
	"quadjoin/index"
	"quadjoin/util"
	"time"
)

// MembershipPairs is the final containment relation: PolygonOffsets index
// the caller's polygon collection, PointOffsets the caller's original point
// slice. Both slices always have equal length.
type MembershipPairs struct {
	PolygonOffsets []uint32
	PointOffsets   []uint32
}

func (m MembershipPairs) Len() int {
	return len(m.PolygonOffsets)
}

// QuadtreePointInPolygon refines candidate pairs into exact memberships: for
// every (polygon, leaf) pair only the points of that leaf are tested against
// that polygon, so the total work is bounded by the points in matched leaves
// times the polygons matched to them instead of all points times all
// polygons.
//
// The polygon column and the pairs are validated before any test runs:
// polygons need at least one ring and four vertices per ring, every pair
// must reference an existing polygon and a leaf row of this tree.
func QuadtreePointInPolygon(pairs CandidatePairs, quadtree *index.Quadtree, points []orb.Point, polygons geometry.Collection) (MembershipPairs, error) {
	err := polygons.ValidatePolygons()
	if err != nil {
		return MembershipPairs{}, errors.Wrap(err, "Cannot refine candidate pairs")
	}
	err = validatePairs(pairs, quadtree, polygons.NumGeometries())
	if err != nil {
		return MembershipPairs{}, err
	}

	numChunks := util.NumChunks(pairs.Len())
	chunkMemberships := make([]MembershipPairs, numChunks)
	util.ParallelChunks(pairs.Len(), func(chunk int, start int, end int) {
		memberships := MembershipPairs{}

		for k := start; k < end; k++ {
			polygon := pairs.BBoxOffsets[k]
			leaf := pairs.QuadOffsets[k]

			for _, pointIndex := range quadtree.LeafPoints(int(leaf)) {
				if geometry.PointInPolygon(points[pointIndex], polygons, int(polygon)) {
					memberships.PolygonOffsets = append(memberships.PolygonOffsets, polygon)
					memberships.PointOffsets = append(memberships.PointOffsets, pointIndex)
				}
			}
		}

		chunkMemberships[chunk] = memberships
	})

	result := MembershipPairs{}
	for _, memberships := range chunkMemberships {
		result.PolygonOffsets = append(result.PolygonOffsets, memberships.PolygonOffsets...)
		result.PointOffsets = append(result.PointOffsets, memberships.PointOffsets...)
	}
	return result, nil
}

// PointInPolygon tests every point against every polygon. This is the
// direct quadratic variant for small inputs and the reference the
// accelerated pipeline is validated against, using the same containment
// convention and the same eager validation.
func PointInPolygon(points []orb.Point, polygons geometry.Collection) (MembershipPairs, error) {
	err := polygons.ValidatePolygons()
	if err != nil {
		return MembershipPairs{}, errors.Wrap(err, "Cannot test points against polygons")
	}

	numChunks := util.NumChunks(polygons.NumGeometries())
	chunkMemberships := make([]MembershipPairs, numChunks)
	util.ParallelChunks(polygons.NumGeometries(), func(chunk int, start int, end int) {
		memberships := MembershipPairs{}

		for polygon := start; polygon < end; polygon++ {
			for pointIndex, point := range points {
				if geometry.PointInPolygon(point, polygons, polygon) {
					memberships.PolygonOffsets = append(memberships.PolygonOffsets, uint32(polygon))
					memberships.PointOffsets = append(memberships.PointOffsets, uint32(pointIndex))
				}
			}
		}

		chunkMemberships[chunk] = memberships
	})

	result := MembershipPairs{}
	for _, memberships := range chunkMemberships {
		result.PolygonOffsets = append(result.PolygonOffsets, memberships.PolygonOffsets...)
		result.PointOffsets = append(result.PointOffsets, memberships.PointOffsets...)
	}
	return result, nil
}

// Pipeline runs the whole accelerated containment query in one call: build
// the quadtree over the points, compute the polygon bounding boxes, join
// them against the tree and refine the candidates. Use the individual stages
// instead when the same index serves several queries.
func Pipeline(points []orb.Point, polygons geometry.Collection, config common.Config) (MembershipPairs, error) {
	start := time.Now()

	quadtree, err := index.Build(points, config)
	if err != nil {
		return MembershipPairs{}, err
	}

	boxes, err := geometry.BoundingBoxes(polygons)
	if err != nil {
		return MembershipPairs{}, err
	}

	pairs, err := QuadtreeBoundingBoxJoin(quadtree, boxes)
	if err != nil {
		return MembershipPairs{}, err
	}

	memberships, err := QuadtreePointInPolygon(pairs, quadtree, points, polygons)
	if err != nil {
		return MembershipPairs{}, err
	}

	sigolo.Debugf("Containment query over %d points and %d polygons took %s (%d nodes, %d candidate pairs, %d memberships)",
		len(points), polygons.NumGeometries(), time.Since(start), quadtree.NumNodes(), pairs.Len(), memberships.Len())
	return memberships, nil
}

func validatePairs(pairs CandidatePairs, quadtree *index.Quadtree, numGeometries int) error {
	if quadtree == nil {
		return errors.Errorf("Quadtree must not be nil")
	}
	if len(pairs.BBoxOffsets) != len(pairs.QuadOffsets) {
		return errors.Errorf("Candidate pair slices must have equal length but were %d and %d", len(pairs.BBoxOffsets), len(pairs.QuadOffsets))
	}

	for k := 0; k < pairs.Len(); k++ {
		if int(pairs.BBoxOffsets[k]) >= numGeometries {
			return errors.Errorf("Candidate pair %d references geometry %d but there are only %d", k, pairs.BBoxOffsets[k], numGeometries)
		}
		if int(pairs.QuadOffsets[k]) >= quadtree.NumNodes() {
			return errors.Errorf("Candidate pair %d references node row %d but there are only %d", k, pairs.QuadOffsets[k], quadtree.NumNodes())
		}
		if quadtree.IsInternal[pairs.QuadOffsets[k]] {
			return errors.Errorf("Candidate pair %d references internal node row %d", k, pairs.QuadOffsets[k])
		}
	}
	return nil
}

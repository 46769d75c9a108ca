package geometry

import (
	"github.com/paulmach/orb"
	"github.com/pkg/errors"
	"quadjoin/util"
)

// BoundingBoxes computes one axis-aligned bounding box per geometry by
// reducing over all vertices of all its rings. Degenerate geometries
// (single point, collinear ring) produce valid zero-area boxes.
func BoundingBoxes(c Collection) ([]orb.Bound, error) {
	return ExpandedBoundingBoxes(c, 0)
}

// ExpandedBoundingBoxes computes bounding boxes grown by radius on all four
// sides. Proximity joins pass a positive radius so that points near a
// geometry, but outside its tight box, still reach the candidate stage.
func ExpandedBoundingBoxes(c Collection, radius float64) ([]orb.Bound, error) {
	err := c.Validate()
	if err != nil {
		return nil, errors.Wrap(err, "Cannot compute bounding boxes")
	}
	if radius < 0 {
		return nil, errors.Errorf("Expansion radius must be >= 0 but was %v", radius)
	}

	boxes := make([]orb.Bound, c.NumGeometries())
	util.ParallelChunks(c.NumGeometries(), func(_ int, start int, end int) {
		for i := start; i < end; i++ {
			first, last := c.VertexRange(i)
			if first == last {
				// Geometry without vertices, leave the zero box.
				continue
			}

			minX, minY := c.Vertices[first].X(), c.Vertices[first].Y()
			maxX, maxY := minX, minY
			for _, vertex := range c.Vertices[first+1 : last] {
				if vertex.X() < minX {
					minX = vertex.X()
				}
				if vertex.X() > maxX {
					maxX = vertex.X()
				}
				if vertex.Y() < minY {
					minY = vertex.Y()
				}
				if vertex.Y() > maxY {
					maxY = vertex.Y()
				}
			}

			boxes[i] = orb.Bound{
				Min: orb.Point{minX - radius, minY - radius},
				Max: orb.Point{maxX + radius, maxY + radius},
			}
		}
	})

	return boxes, nil
}

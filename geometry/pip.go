package geometry

import (
	"github.com/paulmach/orb"
)

// PointInPolygon reports whether p lies inside polygon i of the collection.
// It counts ray crossings over all rings (even-odd rule), so holes exclude
// by parity without treating them specially. The edge test is half-open: an
// edge crosses the rightward ray from p iff exactly one endpoint is strictly
// above p and the crossing lies strictly right of p. As a consequence,
// points on a left or bottom boundary edge are inside, points on a right or
// top boundary edge are outside. This convention is fixed, the join stages
// and their pruning rely on it.
//
// The collection must have been validated with ValidatePolygons, callers of
// the exported join operations get that for free.
func PointInPolygon(p orb.Point, c Collection, i int) bool {
	x, y := p.X(), p.Y()
	inside := false

	firstRing := c.GeometryOffsets[i]
	lastRing := c.GeometryOffsets[i+1]
	for r := firstRing; r < lastRing; r++ {
		first := int(c.RingOffsets[r])
		last := int(c.RingOffsets[r+1])

		// Walking edge (w, v) with w trailing behind v also covers rings
		// that are not explicitly closed. The duplicated closing edge of a
		// closed ring has zero length and never counts as a crossing.
		for v, w := first, last-1; v < last; w, v = v, v+1 {
			xi, yi := c.Vertices[v].X(), c.Vertices[v].Y()
			xj, yj := c.Vertices[w].X(), c.Vertices[w].Y()

			if (yi > y) != (yj > y) && x < (xj-xi)*(y-yi)/(yj-yi)+xi {
				inside = !inside
			}
		}
	}

	return inside
}

package geometry

import (
	"github.com/paulmach/orb"
	"quadjoin/util"
	"testing"
)

func TestPointInPolygon(t *testing.T) {
	collection := FromPolygons(somePolygons())

	// Unit square (polygon 0).
	util.AssertTrue(t, PointInPolygon(orb.Point{0.5, 0.5}, collection, 0))
	util.AssertFalse(t, PointInPolygon(orb.Point{1.5, 0.5}, collection, 0))
	util.AssertFalse(t, PointInPolygon(orb.Point{0.5, -0.5}, collection, 0))

	// Donut (polygon 1): inside the band, inside the hole, outside.
	util.AssertTrue(t, PointInPolygon(orb.Point{0.5, 2}, collection, 1))
	util.AssertFalse(t, PointInPolygon(orb.Point{2, 2}, collection, 1))
	util.AssertFalse(t, PointInPolygon(orb.Point{5, 2}, collection, 1))
}

func TestPointInPolygon_boundaryConvention(t *testing.T) {
	collection := FromPolygons(somePolygons())

	// Half-open rule on the unit square:
	//
	//     (0,1) ─ out ─ (1,1)
	//       │             │
	//      in    (in)    out
	//       │             │
	//     (0,0) ─ in ── (1,0)
	//
	// Left and bottom edges belong to the polygon, right and top do not.
	util.AssertTrue(t, PointInPolygon(orb.Point{0, 0.5}, collection, 0))
	util.AssertTrue(t, PointInPolygon(orb.Point{0.5, 0}, collection, 0))
	util.AssertFalse(t, PointInPolygon(orb.Point{1, 0.5}, collection, 0))
	util.AssertFalse(t, PointInPolygon(orb.Point{0.5, 1}, collection, 0))

	// Corners follow from the same rule.
	util.AssertTrue(t, PointInPolygon(orb.Point{0, 0}, collection, 0))
	util.AssertFalse(t, PointInPolygon(orb.Point{1, 1}, collection, 0))
	util.AssertFalse(t, PointInPolygon(orb.Point{1, 0}, collection, 0))
	util.AssertFalse(t, PointInPolygon(orb.Point{0, 1}, collection, 0))
}

func TestPointInPolygon_boundaryConventionIsStable(t *testing.T) {
	collection := FromPolygons(somePolygons())

	for run := 0; run < 100; run++ {
		util.AssertTrue(t, PointInPolygon(orb.Point{0, 0.5}, collection, 0))
		util.AssertFalse(t, PointInPolygon(orb.Point{1, 0.5}, collection, 0))
	}
}

func TestPointInPolygon_holeBoundary(t *testing.T) {
	collection := FromPolygons(somePolygons())

	// The half-open rule applies to holes as well: the hole claims its own
	// left and bottom edges, so points there are NOT part of the polygon.
	util.AssertFalse(t, PointInPolygon(orb.Point{1, 2}, collection, 1))
	util.AssertFalse(t, PointInPolygon(orb.Point{2, 1}, collection, 1))
	util.AssertTrue(t, PointInPolygon(orb.Point{3, 2}, collection, 1))
	util.AssertTrue(t, PointInPolygon(orb.Point{2, 3}, collection, 1))
}

package geometry

import (
	"github.com/paulmach/orb"
	"math"
	"quadjoin/util"
	"testing"
)

func TestDirectedHausdorffDistances(t *testing.T) {
	// Space 0 is the pair of points on the x axis, space 1 the single point
	// (1,1). Every point of space 0 is sqrt(2) away from space 1.
	points := []orb.Point{{0, 0}, {2, 0}, {1, 1}}
	offsets := []uint32{0, 2, 3}

	distances, err := DirectedHausdorffDistances(points, offsets)

	util.AssertNil(t, err)
	util.AssertEqual(t, 2, len(distances))
	util.AssertEqual(t, 0.0, distances[0][0])
	util.AssertEqual(t, 0.0, distances[1][1])
	util.AssertApprox(t, math.Sqrt2, distances[0][1], 1e-12)
	util.AssertApprox(t, math.Sqrt2, distances[1][0], 1e-12)
}

func TestDirectedHausdorffDistances_isDirected(t *testing.T) {
	// Space 0 = {(0,0), (10,0)}, space 1 = {(0,0)}. The farthest point of
	// space 0 is 10 away from space 1, but space 1 sits directly on a point
	// of space 0.
	points := []orb.Point{{0, 0}, {10, 0}, {0, 0}}
	offsets := []uint32{0, 2, 3}

	distances, err := DirectedHausdorffDistances(points, offsets)

	util.AssertNil(t, err)
	util.AssertEqual(t, 10.0, distances[0][1])
	util.AssertEqual(t, 0.0, distances[1][0])
}

func TestDirectedHausdorffDistances_pythagoras(t *testing.T) {
	points := []orb.Point{{0, 0}, {3, 4}}
	offsets := []uint32{0, 1, 2}

	distances, err := DirectedHausdorffDistances(points, offsets)

	util.AssertNil(t, err)
	util.AssertEqual(t, 5.0, distances[0][1])
	util.AssertEqual(t, 5.0, distances[1][0])
}

func TestDirectedHausdorffDistances_invalidOffsets(t *testing.T) {
	points := []orb.Point{{0, 0}, {1, 1}}

	_, err := DirectedHausdorffDistances(points, []uint32{0, 1, 1})
	util.AssertError(t, "Every space must contain at least one point but space 1 is empty", err)

	_, err = DirectedHausdorffDistances(points, []uint32{0, 1})
	util.AssertError(t, "Space offsets must end at the number of points 2 but ended at 1", err)

	_, err = DirectedHausdorffDistances(points, []uint32{1, 2})
	util.AssertError(t, "Space offsets must start at 0 but started at 1", err)
}

func TestDirectedHausdorffDistances_empty(t *testing.T) {
	distances, err := DirectedHausdorffDistances(nil, nil)

	util.AssertNil(t, err)
	util.AssertEqual(t, 0, len(distances))
}

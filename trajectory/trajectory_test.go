package trajectory

import (
	"github.com/paulmach/orb"
	"quadjoin/util"
	"testing"
	"time"
)

func at(second int) time.Time {
	return time.Date(2020, 1, 1, 12, 0, 0, 0, time.UTC).Add(time.Duration(second) * time.Second)
}

// someRecords interleaves two objects with shuffled timestamps:
//
//	object 7: (0,0)@0s  (3,4)@2s  (3,10)@5s
//	object 2: (1,1)@1s  (2,1)@3s
func someRecords() ([]uint32, []orb.Point, []time.Time) {
	ids := []uint32{7, 2, 7, 7, 2}
	points := []orb.Point{{3, 4}, {2, 1}, {0, 0}, {3, 10}, {1, 1}}
	timestamps := []time.Time{at(2), at(3), at(0), at(5), at(1)}
	return ids, points, timestamps
}

func TestDerive(t *testing.T) {
	trajectories, err := Derive(someRecords())

	util.AssertNil(t, err)
	util.AssertEqual(t, 2, trajectories.NumTrajectories())
	util.AssertEqual(t, []uint32{2, 7}, trajectories.IDs)
	util.AssertEqual(t, []uint32{0, 2, 5}, trajectories.Offsets)
	util.AssertEqual(t, []orb.Point{{1, 1}, {2, 1}, {0, 0}, {3, 4}, {3, 10}}, trajectories.Points)
	util.AssertEqual(t, []time.Time{at(1), at(3), at(0), at(2), at(5)}, trajectories.Timestamps)

	points, timestamps := trajectories.Records(1)
	util.AssertEqual(t, []orb.Point{{0, 0}, {3, 4}, {3, 10}}, points)
	util.AssertEqual(t, []time.Time{at(0), at(2), at(5)}, timestamps)
}

func TestDerive_keepsInputOrderOnEqualIdAndTimestamp(t *testing.T) {
	ids := []uint32{1, 1, 1}
	points := []orb.Point{{0, 0}, {1, 0}, {2, 0}}
	timestamps := []time.Time{at(0), at(0), at(0)}

	trajectories, err := Derive(ids, points, timestamps)

	util.AssertNil(t, err)
	util.AssertEqual(t, []orb.Point{{0, 0}, {1, 0}, {2, 0}}, trajectories.Points)
}

func TestDerive_invalidInput(t *testing.T) {
	_, err := Derive(nil, nil, nil)
	util.AssertError(t, "Cannot derive trajectories from an empty record set", err)

	_, err = Derive([]uint32{1, 2}, []orb.Point{{0, 0}}, []time.Time{at(0), at(1)})
	util.AssertError(t, "Ids, points and timestamps must have equal length but were 2, 1 and 2", err)
}

func TestDistanceAndSpeed(t *testing.T) {
	trajectories, err := Derive(someRecords())
	util.AssertNil(t, err)

	distances, speeds := trajectories.DistanceAndSpeed()

	// Object 2 moves 1 unit in 2 seconds.
	util.AssertApprox(t, 1.0, distances[0], 1e-12)
	util.AssertApprox(t, 0.5, speeds[0], 1e-12)

	// Object 7 moves 5 + 6 units in 5 seconds.
	util.AssertApprox(t, 11.0, distances[1], 1e-12)
	util.AssertApprox(t, 2.2, speeds[1], 1e-12)
}

func TestDistanceAndSpeed_degenerateTrajectories(t *testing.T) {
	// A single record has no distance, and two records at the same instant
	// have a distance but no meaningful speed.
	ids := []uint32{1, 2, 2}
	points := []orb.Point{{5, 5}, {0, 0}, {3, 4}}
	timestamps := []time.Time{at(0), at(1), at(1)}

	trajectories, err := Derive(ids, points, timestamps)
	util.AssertNil(t, err)

	distances, speeds := trajectories.DistanceAndSpeed()

	util.AssertEqual(t, 0.0, distances[0])
	util.AssertEqual(t, 0.0, speeds[0])
	util.AssertEqual(t, 5.0, distances[1])
	util.AssertEqual(t, 0.0, speeds[1])
}

func TestSpatialBounds(t *testing.T) {
	trajectories, err := Derive(someRecords())
	util.AssertNil(t, err)

	bounds := trajectories.SpatialBounds()

	util.AssertEqual(t, 2, len(bounds))
	util.AssertEqual(t, orb.Bound{Min: orb.Point{1, 1}, Max: orb.Point{2, 1}}, bounds[0])
	util.AssertEqual(t, orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{3, 10}}, bounds[1])
}

func TestSubset(t *testing.T) {
	trajectories, err := Derive(someRecords())
	util.AssertNil(t, err)

	subset := trajectories.Subset([]uint32{7, 99})

	util.AssertEqual(t, []uint32{7}, subset.IDs)
	util.AssertEqual(t, []uint32{0, 3}, subset.Offsets)
	util.AssertEqual(t, []orb.Point{{0, 0}, {3, 4}, {3, 10}}, subset.Points)
	util.AssertEqual(t, []time.Time{at(0), at(2), at(5)}, subset.Timestamps)
}

func TestSubset_noMatchingIds(t *testing.T) {
	trajectories, err := Derive(someRecords())
	util.AssertNil(t, err)

	subset := trajectories.Subset([]uint32{99})

	util.AssertEqual(t, 0, subset.NumTrajectories())
	util.AssertEqual(t, 0, len(subset.Points))
}

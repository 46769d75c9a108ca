package trajectory

import (
	"github.com/paulmach/orb"
	"github.com/pkg/errors"
	"math"
	"quadjoin/util"
	"sort"
	"time"
)

// Trajectories groups timestamped point records by the object that produced
// them. Records are stored flat and sorted by (object id, timestamp),
// trajectory i owns the records Offsets[i] to Offsets[i+1]. IDs are the
// distinct object ids in ascending order, so they double as trajectory ids.
type Trajectories struct {
	IDs        []uint32
	Offsets    []uint32
	Points     []orb.Point
	Timestamps []time.Time
}

// Derive sorts the given records by object id and timestamp and groups them
// into one trajectory per distinct id. The sort is stable, records sharing id
// and timestamp keep their input order. The inputs stay untouched.
//
// Mismatched slice lengths and an entirely empty record set are precondition
// violations.
func Derive(ids []uint32, points []orb.Point, timestamps []time.Time) (*Trajectories, error) {
	if len(ids) == 0 {
		return nil, errors.Errorf("Cannot derive trajectories from an empty record set")
	}
	if len(points) != len(ids) || len(timestamps) != len(ids) {
		return nil, errors.Errorf("Ids, points and timestamps must have equal length but were %d, %d and %d", len(ids), len(points), len(timestamps))
	}

	order := make([]int, len(ids))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		if ids[order[a]] != ids[order[b]] {
			return ids[order[a]] < ids[order[b]]
		}
		return timestamps[order[a]].Before(timestamps[order[b]])
	})

	trajectories := &Trajectories{
		Points:     make([]orb.Point, len(order)),
		Timestamps: make([]time.Time, len(order)),
	}
	for position, i := range order {
		trajectories.Points[position] = points[i]
		trajectories.Timestamps[position] = timestamps[i]

		id := ids[i]
		if len(trajectories.IDs) == 0 || trajectories.IDs[len(trajectories.IDs)-1] != id {
			trajectories.IDs = append(trajectories.IDs, id)
			trajectories.Offsets = append(trajectories.Offsets, uint32(position))
		}
	}
	trajectories.Offsets = append(trajectories.Offsets, uint32(len(order)))

	return trajectories, nil
}

func (t *Trajectories) NumTrajectories() int {
	return len(t.IDs)
}

// Records returns the points and timestamps of trajectory i, ordered by
// timestamp.
func (t *Trajectories) Records(i int) ([]orb.Point, []time.Time) {
	return t.Points[t.Offsets[i]:t.Offsets[i+1]], t.Timestamps[t.Offsets[i]:t.Offsets[i+1]]
}

// DistanceAndSpeed computes the length of every trajectory as the sum of its
// consecutive record distances, in coordinate units, and its average speed in
// coordinate units per second over the duration between first and last
// record. Trajectories with a single record or zero duration get speed 0.
func (t *Trajectories) DistanceAndSpeed() ([]float64, []float64) {
	distances := make([]float64, t.NumTrajectories())
	speeds := make([]float64, t.NumTrajectories())

	util.ParallelChunks(t.NumTrajectories(), func(_ int, start int, end int) {
		for i := start; i < end; i++ {
			first := t.Offsets[i]
			last := t.Offsets[i+1]

			distance := 0.0
			for v := first; v+1 < last; v++ {
				deltaX := t.Points[v+1].X() - t.Points[v].X()
				deltaY := t.Points[v+1].Y() - t.Points[v].Y()
				distance += math.Sqrt(deltaX*deltaX + deltaY*deltaY)
			}
			distances[i] = distance

			duration := t.Timestamps[last-1].Sub(t.Timestamps[first]).Seconds()
			if duration > 0 {
				speeds[i] = distance / duration
			}
		}
	})

	return distances, speeds
}

// SpatialBounds computes the bounding box of every trajectory. A single
// record yields a valid zero-area box.
func (t *Trajectories) SpatialBounds() []orb.Bound {
	bounds := make([]orb.Bound, t.NumTrajectories())

	util.ParallelChunks(t.NumTrajectories(), func(_ int, start int, end int) {
		for i := start; i < end; i++ {
			first := t.Offsets[i]
			last := t.Offsets[i+1]

			minX, minY := t.Points[first].X(), t.Points[first].Y()
			maxX, maxY := minX, minY
			for _, point := range t.Points[first+1 : last] {
				if point.X() < minX {
					minX = point.X()
				}
				if point.X() > maxX {
					maxX = point.X()
				}
				if point.Y() < minY {
					minY = point.Y()
				}
				if point.Y() > maxY {
					maxY = point.Y()
				}
			}

			bounds[i] = orb.Bound{
				Min: orb.Point{minX, minY},
				Max: orb.Point{maxX, maxY},
			}
		}
	})

	return bounds
}

// Subset keeps only the trajectories with the given object ids, preserving
// their ascending id order. Ids without a trajectory are skipped, so the
// result may cover fewer ids than requested or be empty.
func (t *Trajectories) Subset(ids []uint32) *Trajectories {
	keep := map[uint32]bool{}
	for _, id := range ids {
		keep[id] = true
	}

	subset := &Trajectories{}
	for i, id := range t.IDs {
		if !keep[id] {
			continue
		}

		first := t.Offsets[i]
		last := t.Offsets[i+1]
		subset.IDs = append(subset.IDs, id)
		subset.Offsets = append(subset.Offsets, uint32(len(subset.Points)))
		subset.Points = append(subset.Points, t.Points[first:last]...)
		subset.Timestamps = append(subset.Timestamps, t.Timestamps[first:last]...)
	}
	if len(subset.IDs) > 0 {
		subset.Offsets = append(subset.Offsets, uint32(len(subset.Points)))
	}

	return subset
}

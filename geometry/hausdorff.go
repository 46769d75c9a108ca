package geometry

import (
	"github.com/paulmach/orb"
	"github.com/pkg/errors"
	"math"
	"quadjoin/util"
)

// DirectedHausdorffDistances computes the matrix of directed Hausdorff
// distances between point spaces. Spaces are consecutive slices of the
// point array delimited by sentinel offsets (spaceOffsets[s] to
// spaceOffsets[s+1] is space s). Entry [from][to] is the largest distance
// any point of the "from" space has to its nearest point in the "to" space;
// the diagonal is 0. The measure is directed, the matrix is generally not
// symmetric.
//
// Every space must be non-empty: the offsets must be strictly increasing,
// start at 0 and end at the number of points.
func DirectedHausdorffDistances(points []orb.Point, spaceOffsets []uint32) ([][]float64, error) {
	err := validateSpaceOffsets(len(points), spaceOffsets)
	if err != nil {
		return nil, err
	}

	numSpaces := len(spaceOffsets) - 1
	if numSpaces < 0 {
		numSpaces = 0
	}

	distances := make([][]float64, numSpaces)
	util.ParallelChunks(numSpaces, func(_ int, start int, end int) {
		for from := start; from < end; from++ {
			row := make([]float64, numSpaces)
			for to := 0; to < numSpaces; to++ {
				if to == from {
					continue
				}
				row[to] = directedDistance(points, spaceOffsets, from, to)
			}
			distances[from] = row
		}
	})

	return distances, nil
}

func directedDistance(points []orb.Point, spaceOffsets []uint32, from int, to int) float64 {
	largest := 0.0
	for a := spaceOffsets[from]; a < spaceOffsets[from+1]; a++ {
		nearest := math.Inf(1)
		for b := spaceOffsets[to]; b < spaceOffsets[to+1]; b++ {
			dx := points[a].X() - points[b].X()
			dy := points[a].Y() - points[b].Y()
			d := dx*dx + dy*dy
			if d < nearest {
				nearest = d
			}
		}
		if nearest > largest {
			largest = nearest
		}
	}
	return math.Sqrt(largest)
}

func validateSpaceOffsets(numPoints int, spaceOffsets []uint32) error {
	if len(spaceOffsets) == 0 {
		if numPoints != 0 {
			return errors.Errorf("Space offsets are empty but there are %d points", numPoints)
		}
		return nil
	}
	if spaceOffsets[0] != 0 {
		return errors.Errorf("Space offsets must start at 0 but started at %d", spaceOffsets[0])
	}
	for s := 1; s < len(spaceOffsets); s++ {
		if spaceOffsets[s] <= spaceOffsets[s-1] {
			return errors.Errorf("Every space must contain at least one point but space %d is empty", s-1)
		}
	}
	if int(spaceOffsets[len(spaceOffsets)-1]) != numPoints {
		return errors.Errorf("Space offsets must end at the number of points %d but ended at %d", numPoints, spaceOffsets[len(spaceOffsets)-1])
	}
	return nil
}

package geometry

import (
	"github.com/paulmach/orb"
	"quadjoin/util"
)

// PointsInSpatialWindow returns the indices of all points strictly inside
// the window, in input order. All four bounds are exclusive, points exactly
// on the window boundary are not returned. The window corners may be given
// in any order, swapped coordinates are normalized first.
func PointsInSpatialWindow(window orb.Bound, points []orb.Point) []uint32 {
	minX, maxX := window.Min.X(), window.Max.X()
	if minX > maxX {
		minX, maxX = maxX, minX
	}
	minY, maxY := window.Min.Y(), window.Max.Y()
	if minY > maxY {
		minY, maxY = maxY, minY
	}

	numChunks := util.NumChunks(len(points))
	chunkIndices := make([][]uint32, numChunks)
	util.ParallelChunks(len(points), func(chunk int, start int, end int) {
		var indices []uint32
		for i := start; i < end; i++ {
			x, y := points[i].X(), points[i].Y()
			if x > minX && x < maxX && y > minY && y < maxY {
				indices = append(indices, uint32(i))
			}
		}
		chunkIndices[chunk] = indices
	})

	var result []uint32
	for _, indices := range chunkIndices {
		result = append(result, indices...)
	}
	return result
}

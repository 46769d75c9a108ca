package index

import (
	"github.com/paulmach/orb"
	"math"
	"quadjoin/common"
)

// expandBits spreads the low 16 bits of v out so that bit i ends up at bit
// 2i, leaving the odd bits zero.
func expandBits(v uint32) uint32 {
	v &= 0x0000FFFF
	v = (v | v<<8) & 0x00FF00FF
	v = (v | v<<4) & 0x0F0F0F0F
	v = (v | v<<2) & 0x33333333
	v = (v | v<<1) & 0x55555555
	return v
}

// compactBits inverts expandBits, collecting the even bits of v back into
// the low 16 bits.
func compactBits(v uint32) uint32 {
	v &= 0x55555555
	v = (v | v>>1) & 0x33333333
	v = (v | v>>2) & 0x0F0F0F0F
	v = (v | v>>4) & 0x00FF00FF
	v = (v | v>>8) & 0x0000FFFF
	return v
}

// MortonCode returns the Morton key of p on the finest grid level of the
// config: the point is mapped to integer cell coordinates relative to the
// grid origin and cell width, then the coordinate bits are interleaved with
// x on the even and y on the odd bits. Points outside the area of interest
// are clamped into the boundary cells, so every point gets a valid key.
//
// The config must be valid, all exported operations check that before any
// key is computed.
func MortonCode(p orb.Point, config common.Config) uint32 {
	x := gridCoordinate(p.X(), config.XMin, config.Scale, config.GridSize())
	y := gridCoordinate(p.Y(), config.YMin, config.Scale, config.GridSize())
	return expandBits(x) | expandBits(y)<<1
}

func gridCoordinate(value float64, min float64, scale float64, cells uint32) uint32 {
	cell := math.Floor((value - min) / scale)
	if !(cell > 0) {
		return 0
	}
	if cell >= float64(cells) {
		return cells - 1
	}
	return uint32(cell)
}

// CellBound returns the half-open grid cell [min, min+width) covered by a
// node key at the given level. Level 0 is the root covering the whole area
// of interest, level MaxDepth the finest grid where the point keys live.
func CellBound(key uint32, level uint8, config common.Config) orb.Bound {
	width := config.Scale * float64(uint32(1)<<uint(config.MaxDepth-int(level)))
	minX := config.XMin + float64(compactBits(key))*width
	minY := config.YMin + float64(compactBits(key>>1))*width
	return orb.Bound{
		Min: orb.Point{minX, minY},
		Max: orb.Point{minX + width, minY + width},
	}
}

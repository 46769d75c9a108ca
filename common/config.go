package common

import (
	"github.com/paulmach/orb"
	"github.com/pkg/errors"
)

// MaxDepthLimit is the deepest quadtree supported by a 32 bit Morton key,
// which consumes two bits per level.
const MaxDepthLimit = 15

// Config describes the area of interest and the shape of the quadtree built
// over it. XMin/YMin anchor the grid, Scale is the width of one cell at the
// finest level, MaxDepth the number of subdivision levels below the root and
// MaxSize the number of points a quadrant may hold before it is split.
type Config struct {
	XMin     float64
	YMin     float64
	Scale    float64
	MaxDepth int
	MaxSize  uint32
}

// Validate checks the hard preconditions shared by all index and join
// operations. It is called at the entry of every such operation so that
// invalid parameters are reported before any work starts.
func (c Config) Validate() error {
	if !(c.Scale > 0) {
		return errors.Errorf("Scale must be > 0 but was %v", c.Scale)
	}
	if c.MaxDepth < 1 || c.MaxDepth > MaxDepthLimit {
		return errors.Errorf("Max depth must be in [1, %d] but was %d", MaxDepthLimit, c.MaxDepth)
	}
	return nil
}

// GridSize returns the number of grid cells per axis at the finest level.
func (c Config) GridSize() uint32 {
	return uint32(1) << uint(c.MaxDepth)
}

// Bound returns the square area of interest covered by the grid. Points
// outside of it are still indexed but end up in the boundary cells.
func (c Config) Bound() orb.Bound {
	side := c.Scale * float64(c.GridSize())
	return orb.Bound{
		Min: orb.Point{c.XMin, c.YMin},
		Max: orb.Point{c.XMin + side, c.YMin + side},
	}
}

// DeriveConfig fits an area of interest to the given points: the origin is
// the minimal corner of their extent and the scale is chosen so that the
// finest-level grid covers the longest side. Used by the surfaces when the
// caller does not pin the grid explicitly.
func DeriveConfig(points []orb.Point, maxDepth int, maxSize uint32) (Config, error) {
	if len(points) == 0 {
		return Config{}, errors.Errorf("Cannot derive a config from an empty point set")
	}

	minX, minY := points[0].X(), points[0].Y()
	maxX, maxY := minX, minY
	for _, p := range points[1:] {
		if p.X() < minX {
			minX = p.X()
		}
		if p.X() > maxX {
			maxX = p.X()
		}
		if p.Y() < minY {
			minY = p.Y()
		}
		if p.Y() > maxY {
			maxY = p.Y()
		}
	}

	side := maxX - minX
	if maxY-minY > side {
		side = maxY - minY
	}

	config := Config{
		XMin:     minX,
		YMin:     minY,
		Scale:    1,
		MaxDepth: maxDepth,
		MaxSize:  maxSize,
	}
	err := config.Validate()
	if err != nil {
		return Config{}, err
	}

	if side > 0 {
		config.Scale = side / float64(config.GridSize())
	}
	return config, nil
}

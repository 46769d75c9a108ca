package geometry

import (
	"github.com/paulmach/orb"
	"github.com/pkg/errors"
	"math"
	"quadjoin/util"
)

const earthCircumferenceKm = 40000.0

// LonLatToCartesian projects WGS84 lon/lat points onto a flat plane in
// kilometers relative to the given origin, using an equirectangular
// approximation around the origin's latitude. Good enough for city-scale
// extents, which is what the trajectory pipeline feeds in. Positive x points
// west of the origin and positive y south of it, matching the source data
// this projection was built for.
func LonLatToCartesian(origin orb.Point, points []orb.Point) ([]orb.Point, error) {
	err := validateLonLat(origin)
	if err != nil {
		return nil, errors.Wrap(err, "Origin is invalid")
	}
	for i, p := range points {
		err = validateLonLat(p)
		if err != nil {
			return nil, errors.Wrapf(err, "Point %d is invalid", i)
		}
	}

	projected := make([]orb.Point, len(points))
	util.ParallelChunks(len(points), func(_ int, start int, end int) {
		for i := start; i < end; i++ {
			lon, lat := points[i].X(), points[i].Y()
			x := (origin.X() - lon) * earthCircumferenceKm * math.Cos((origin.Y()+lat)*math.Pi/360) / 360
			y := (origin.Y() - lat) * earthCircumferenceKm / 360
			projected[i] = orb.Point{x, y}
		}
	})

	return projected, nil
}

func validateLonLat(p orb.Point) error {
	if p.X() < -180 || p.X() > 180 {
		return errors.Errorf("Longitude must be in [-180, 180] but was %v", p.X())
	}
	if p.Y() < -90 || p.Y() > 90 {
		return errors.Errorf("Latitude must be in [-90, 90] but was %v", p.Y())
	}
	return nil
}

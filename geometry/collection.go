package geometry

import (
	"github.com/paulmach/orb"
	"github.com/pkg/errors"
)

// Collection stores polygons or linestrings in a flat, offset-encoded form:
// geometry i owns the rings GeometryOffsets[i] to GeometryOffsets[i+1], ring
// r owns the vertices RingOffsets[r] to RingOffsets[r+1]. Both offset slices
// start at 0 and carry a trailing sentinel, so they have one more entry than
// there are geometries resp. rings. Polygon rings are closed (first vertex
// repeated at the end), linestrings are stored as one open chain per
// geometry.
type Collection struct {
	GeometryOffsets []uint32
	RingOffsets     []uint32
	Vertices        []orb.Point
}

// FromPolygons flattens orb polygons into column form. Ring order per
// polygon is outer ring first, then holes, as orb stores them.
func FromPolygons(polygons []orb.Polygon) Collection {
	collection := Collection{
		GeometryOffsets: make([]uint32, 0, len(polygons)+1),
		RingOffsets:     []uint32{0},
	}
	collection.GeometryOffsets = append(collection.GeometryOffsets, 0)

	for _, polygon := range polygons {
		for _, ring := range polygon {
			collection.Vertices = append(collection.Vertices, ring...)
			collection.RingOffsets = append(collection.RingOffsets, uint32(len(collection.Vertices)))
		}
		collection.GeometryOffsets = append(collection.GeometryOffsets, uint32(len(collection.RingOffsets)-1))
	}

	return collection
}

// FromLineStrings flattens orb linestrings into column form, one chain per
// geometry.
func FromLineStrings(lines []orb.LineString) Collection {
	collection := Collection{
		GeometryOffsets: make([]uint32, 0, len(lines)+1),
		RingOffsets:     []uint32{0},
	}
	collection.GeometryOffsets = append(collection.GeometryOffsets, 0)

	for _, line := range lines {
		collection.Vertices = append(collection.Vertices, line...)
		collection.RingOffsets = append(collection.RingOffsets, uint32(len(collection.Vertices)))
		collection.GeometryOffsets = append(collection.GeometryOffsets, uint32(len(collection.RingOffsets)-1))
	}

	return collection
}

func (c Collection) NumGeometries() int {
	if len(c.GeometryOffsets) == 0 {
		return 0
	}
	return len(c.GeometryOffsets) - 1
}

func (c Collection) NumRings() int {
	if len(c.RingOffsets) == 0 {
		return 0
	}
	return len(c.RingOffsets) - 1
}

// VertexRange returns the half-open range of vertex indices covered by
// geometry i. The rings of a geometry are contiguous, so its vertices are
// one contiguous slice.
func (c Collection) VertexRange(i int) (uint32, uint32) {
	firstRing := c.GeometryOffsets[i]
	lastRing := c.GeometryOffsets[i+1]
	return c.RingOffsets[firstRing], c.RingOffsets[lastRing]
}

// Validate checks the structural invariants every operation relies on:
// offset slices start at 0, end at the size of the next finer slice and
// never decrease. An entirely empty collection is valid.
func (c Collection) Validate() error {
	if len(c.GeometryOffsets) == 0 {
		if len(c.RingOffsets) != 0 || len(c.Vertices) != 0 {
			return errors.Errorf("Geometry offsets are empty but there are %d ring offsets and %d vertices", len(c.RingOffsets), len(c.Vertices))
		}
		return nil
	}

	if c.GeometryOffsets[0] != 0 {
		return errors.Errorf("Geometry offsets must start at 0 but started at %d", c.GeometryOffsets[0])
	}
	if len(c.RingOffsets) == 0 || c.RingOffsets[0] != 0 {
		return errors.Errorf("Ring offsets must start at 0")
	}

	for i := 1; i < len(c.GeometryOffsets); i++ {
		if c.GeometryOffsets[i] < c.GeometryOffsets[i-1] {
			return errors.Errorf("Geometry offsets must not decrease but offset %d went from %d to %d", i, c.GeometryOffsets[i-1], c.GeometryOffsets[i])
		}
	}
	if int(c.GeometryOffsets[len(c.GeometryOffsets)-1]) != c.NumRings() {
		return errors.Errorf("Geometry offsets must end at the number of rings %d but ended at %d", c.NumRings(), c.GeometryOffsets[len(c.GeometryOffsets)-1])
	}

	for r := 1; r < len(c.RingOffsets); r++ {
		if c.RingOffsets[r] < c.RingOffsets[r-1] {
			return errors.Errorf("Ring offsets must not decrease but offset %d went from %d to %d", r, c.RingOffsets[r-1], c.RingOffsets[r])
		}
	}
	if int(c.RingOffsets[len(c.RingOffsets)-1]) != len(c.Vertices) {
		return errors.Errorf("Ring offsets must end at the number of vertices %d but ended at %d", len(c.Vertices), c.RingOffsets[len(c.RingOffsets)-1])
	}

	return nil
}

// ValidatePolygons checks Validate plus the polygon invariants: at least one
// ring per polygon and at least 4 vertices per ring (a closed ring with 3
// distinct corners).
func (c Collection) ValidatePolygons() error {
	err := c.Validate()
	if err != nil {
		return err
	}

	for i := 0; i < c.NumGeometries(); i++ {
		if c.GeometryOffsets[i+1] == c.GeometryOffsets[i] {
			return errors.Errorf("Polygon %d must have at least one ring", i)
		}
	}
	for r := 0; r < c.NumRings(); r++ {
		vertices := c.RingOffsets[r+1] - c.RingOffsets[r]
		if vertices < 4 {
			return errors.Errorf("Ring %d must have at least 4 vertices but has %d", r, vertices)
		}
	}

	return nil
}

// ValidateLineStrings checks Validate plus the linestring invariants: at
// least one chain per geometry and at least 2 vertices per chain.
func (c Collection) ValidateLineStrings() error {
	err := c.Validate()
	if err != nil {
		return err
	}

	for i := 0; i < c.NumGeometries(); i++ {
		if c.GeometryOffsets[i+1] == c.GeometryOffsets[i] {
			return errors.Errorf("Linestring %d must have at least one chain", i)
		}
	}
	for r := 0; r < c.NumRings(); r++ {
		vertices := c.RingOffsets[r+1] - c.RingOffsets[r]
		if vertices < 2 {
			return errors.Errorf("Chain %d must have at least 2 vertices but has %d", r, vertices)
		}
	}

	return nil
}

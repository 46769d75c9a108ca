package io

import (
	"github.com/hauke96/sigolo/v2"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/pkg/errors"
	"io"
	"math"
	"os"
	"quadjoin/geometry"
	"quadjoin/join"
	"quadjoin/trajectory"
	"time"
)

func readFeatureCollection(reader io.Reader) (*geojson.FeatureCollection, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, errors.Wrap(err, "Cannot read GeoJSON input")
	}

	featureCollection, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, errors.Wrap(err, "Cannot parse GeoJSON feature collection")
	}

	return featureCollection, nil
}

func writeFeatureCollection(featureCollection *geojson.FeatureCollection, writer io.Writer) error {
	data, err := featureCollection.MarshalJSON()
	if err != nil {
		return errors.Wrap(err, "Cannot marshal GeoJSON feature collection")
	}

	_, err = writer.Write(data)
	return errors.Wrap(err, "Cannot write GeoJSON output")
}

func closeFile(file *os.File) {
	err := file.Close()
	sigolo.FatalCheck(errors.Wrapf(err, "Unable to close file handle for GeoJSON file %s", file.Name()))
}

func featurePoint(feature *geojson.Feature, i int) (orb.Point, error) {
	if feature.Geometry == nil {
		return orb.Point{}, errors.Errorf("Feature %d has no geometry", i)
	}
	point, ok := feature.Geometry.(orb.Point)
	if !ok {
		return orb.Point{}, errors.Errorf("Feature %d must be a Point but is a %s", i, feature.Geometry.GeoJSONType())
	}
	return point, nil
}

// ReadPoints reads a GeoJSON feature collection consisting of Point features
// and returns their coordinates in feature order.
func ReadPoints(reader io.Reader) ([]orb.Point, error) {
	featureCollection, err := readFeatureCollection(reader)
	if err != nil {
		return nil, err
	}

	points := make([]orb.Point, 0, len(featureCollection.Features))
	for i, feature := range featureCollection.Features {
		point, err := featurePoint(feature, i)
		if err != nil {
			return nil, err
		}
		points = append(points, point)
	}

	sigolo.Debugf("Read %d points from GeoJSON", len(points))
	return points, nil
}

func ReadPointsFromFile(fileName string) ([]orb.Point, error) {
	file, err := os.Open(fileName)
	if err != nil {
		return nil, errors.Wrapf(err, "Cannot open GeoJSON file %s", fileName)
	}
	defer closeFile(file)

	return ReadPoints(file)
}

// ReadPointRecords reads Point features that carry trajectory record
// properties: an "object_id" number holding a non-negative integer and a
// "timestamp" string in RFC 3339 format.
func ReadPointRecords(reader io.Reader) ([]uint32, []orb.Point, []time.Time, error) {
	featureCollection, err := readFeatureCollection(reader)
	if err != nil {
		return nil, nil, nil, err
	}

	ids := make([]uint32, 0, len(featureCollection.Features))
	points := make([]orb.Point, 0, len(featureCollection.Features))
	timestamps := make([]time.Time, 0, len(featureCollection.Features))
	for i, feature := range featureCollection.Features {
		point, err := featurePoint(feature, i)
		if err != nil {
			return nil, nil, nil, err
		}

		rawId, ok := feature.Properties["object_id"].(float64)
		if !ok {
			return nil, nil, nil, errors.Errorf("Feature %d must have a numeric \"object_id\" property", i)
		}
		if rawId < 0 || rawId > math.MaxUint32 || math.Trunc(rawId) != rawId {
			return nil, nil, nil, errors.Errorf("Object id of feature %d must be a non-negative integer but was %v", i, rawId)
		}

		rawTimestamp, ok := feature.Properties["timestamp"].(string)
		if !ok {
			return nil, nil, nil, errors.Errorf("Feature %d must have a \"timestamp\" string property", i)
		}
		timestamp, err := time.Parse(time.RFC3339, rawTimestamp)
		if err != nil {
			return nil, nil, nil, errors.Wrapf(err, "Cannot parse timestamp of feature %d", i)
		}

		ids = append(ids, uint32(rawId))
		points = append(points, point)
		timestamps = append(timestamps, timestamp)
	}

	sigolo.Debugf("Read %d point records from GeoJSON", len(points))
	return ids, points, timestamps, nil
}

func ReadPointRecordsFromFile(fileName string) ([]uint32, []orb.Point, []time.Time, error) {
	file, err := os.Open(fileName)
	if err != nil {
		return nil, nil, nil, errors.Wrapf(err, "Cannot open GeoJSON file %s", fileName)
	}
	defer closeFile(file)

	return ReadPointRecords(file)
}

// ReadPolygons reads a GeoJSON feature collection consisting of Polygon
// features into column form. Multi-geometries are not unrolled, one Polygon
// feature per polygon is expected.
func ReadPolygons(reader io.Reader) (geometry.Collection, error) {
	featureCollection, err := readFeatureCollection(reader)
	if err != nil {
		return geometry.Collection{}, err
	}

	polygons := make([]orb.Polygon, 0, len(featureCollection.Features))
	for i, feature := range featureCollection.Features {
		if feature.Geometry == nil {
			return geometry.Collection{}, errors.Errorf("Feature %d has no geometry", i)
		}
		polygon, ok := feature.Geometry.(orb.Polygon)
		if !ok {
			return geometry.Collection{}, errors.Errorf("Feature %d must be a Polygon but is a %s", i, feature.Geometry.GeoJSONType())
		}
		polygons = append(polygons, polygon)
	}

	collection := geometry.FromPolygons(polygons)
	err = collection.ValidatePolygons()
	if err != nil {
		return geometry.Collection{}, errors.Wrap(err, "Read invalid polygons")
	}

	sigolo.Debugf("Read %d polygons from GeoJSON", collection.NumGeometries())
	return collection, nil
}

func ReadPolygonsFromFile(fileName string) (geometry.Collection, error) {
	file, err := os.Open(fileName)
	if err != nil {
		return geometry.Collection{}, errors.Wrapf(err, "Cannot open GeoJSON file %s", fileName)
	}
	defer closeFile(file)

	return ReadPolygons(file)
}

// ReadLineStrings reads a GeoJSON feature collection consisting of LineString
// features into column form, one chain per geometry.
func ReadLineStrings(reader io.Reader) (geometry.Collection, error) {
	featureCollection, err := readFeatureCollection(reader)
	if err != nil {
		return geometry.Collection{}, err
	}

	lines := make([]orb.LineString, 0, len(featureCollection.Features))
	for i, feature := range featureCollection.Features {
		if feature.Geometry == nil {
			return geometry.Collection{}, errors.Errorf("Feature %d has no geometry", i)
		}
		line, ok := feature.Geometry.(orb.LineString)
		if !ok {
			return geometry.Collection{}, errors.Errorf("Feature %d must be a LineString but is a %s", i, feature.Geometry.GeoJSONType())
		}
		lines = append(lines, line)
	}

	collection := geometry.FromLineStrings(lines)
	err = collection.ValidateLineStrings()
	if err != nil {
		return geometry.Collection{}, errors.Wrap(err, "Read invalid linestrings")
	}

	sigolo.Debugf("Read %d linestrings from GeoJSON", collection.NumGeometries())
	return collection, nil
}

func ReadLineStringsFromFile(fileName string) (geometry.Collection, error) {
	file, err := os.Open(fileName)
	if err != nil {
		return geometry.Collection{}, errors.Wrapf(err, "Cannot open GeoJSON file %s", fileName)
	}
	defer closeFile(file)

	return ReadLineStrings(file)
}

// WritePointsAsGeoJson writes one plain Point feature per point.
func WritePointsAsGeoJson(points []orb.Point, writer io.Writer) error {
	featureCollection := geojson.NewFeatureCollection()
	for _, point := range points {
		featureCollection.Features = append(featureCollection.Features, geojson.NewFeature(point))
	}

	return writeFeatureCollection(featureCollection, writer)
}

func WritePointsAsGeoJsonFile(points []orb.Point, fileName string) error {
	file, err := os.Create(fileName)
	if err != nil {
		return errors.Wrapf(err, "Cannot create GeoJSON file %s", fileName)
	}
	defer closeFile(file)

	return WritePointsAsGeoJson(points, file)
}

// WritePointSelectionAsGeoJson writes the selected points as Point features,
// each carrying its offset into the full point slice as "point_offset".
func WritePointSelectionAsGeoJson(indices []uint32, points []orb.Point, writer io.Writer) error {
	featureCollection := geojson.NewFeatureCollection()
	for _, index := range indices {
		if int(index) >= len(points) {
			return errors.Errorf("Selection references point %d but there are only %d points", index, len(points))
		}

		feature := geojson.NewFeature(points[index])
		feature.Properties["point_offset"] = index
		featureCollection.Features = append(featureCollection.Features, feature)
	}

	return writeFeatureCollection(featureCollection, writer)
}

func WritePointSelectionAsGeoJsonFile(indices []uint32, points []orb.Point, fileName string) error {
	file, err := os.Create(fileName)
	if err != nil {
		return errors.Wrapf(err, "Cannot create GeoJSON file %s", fileName)
	}
	defer closeFile(file)

	return WritePointSelectionAsGeoJson(indices, points, file)
}

// WriteMembershipsAsGeoJson writes one Point feature per membership pair,
// carrying the offsets of the point and of the polygon containing it.
func WriteMembershipsAsGeoJson(memberships join.MembershipPairs, points []orb.Point, writer io.Writer) error {
	featureCollection := geojson.NewFeatureCollection()
	for i := 0; i < memberships.Len(); i++ {
		pointOffset := memberships.PointOffsets[i]
		if int(pointOffset) >= len(points) {
			return errors.Errorf("Membership %d references point %d but there are only %d points", i, pointOffset, len(points))
		}

		feature := geojson.NewFeature(points[pointOffset])
		feature.Properties["point_offset"] = pointOffset
		feature.Properties["polygon_offset"] = memberships.PolygonOffsets[i]
		featureCollection.Features = append(featureCollection.Features, feature)
	}

	return writeFeatureCollection(featureCollection, writer)
}

func WriteMembershipsAsGeoJsonFile(memberships join.MembershipPairs, points []orb.Point, fileName string) error {
	file, err := os.Create(fileName)
	if err != nil {
		return errors.Wrapf(err, "Cannot create GeoJSON file %s", fileName)
	}
	defer closeFile(file)

	return WriteMembershipsAsGeoJson(memberships, points, file)
}

// WriteNearestAsGeoJson writes one Point feature per result row, carrying the
// point offset, the offset of its nearest linestring and their distance.
func WriteNearestAsGeoJson(results join.NearestResults, points []orb.Point, writer io.Writer) error {
	featureCollection := geojson.NewFeatureCollection()
	for i := 0; i < results.Len(); i++ {
		pointOffset := results.PointOffsets[i]
		if int(pointOffset) >= len(points) {
			return errors.Errorf("Result %d references point %d but there are only %d points", i, pointOffset, len(points))
		}

		feature := geojson.NewFeature(points[pointOffset])
		feature.Properties["point_offset"] = pointOffset
		feature.Properties["linestring_offset"] = results.LinestringOffsets[i]
		feature.Properties["distance"] = results.Distances[i]
		featureCollection.Features = append(featureCollection.Features, feature)
	}

	return writeFeatureCollection(featureCollection, writer)
}

func WriteNearestAsGeoJsonFile(results join.NearestResults, points []orb.Point, fileName string) error {
	file, err := os.Create(fileName)
	if err != nil {
		return errors.Wrapf(err, "Cannot create GeoJSON file %s", fileName)
	}
	defer closeFile(file)

	return WriteNearestAsGeoJson(results, points, file)
}

// WriteTrajectoriesAsGeoJson writes one LineString feature per trajectory in
// record order. The bounding box of the trajectory becomes the feature bbox,
// its id, record count, total distance and average speed become properties.
func WriteTrajectoriesAsGeoJson(trajectories *trajectory.Trajectories, writer io.Writer) error {
	distances, speeds := trajectories.DistanceAndSpeed()
	bounds := trajectories.SpatialBounds()

	featureCollection := geojson.NewFeatureCollection()
	for i := 0; i < trajectories.NumTrajectories(); i++ {
		points, _ := trajectories.Records(i)

		feature := geojson.NewFeature(orb.LineString(points))
		feature.BBox = geojson.NewBBox(bounds[i])
		feature.Properties["trajectory_id"] = trajectories.IDs[i]
		feature.Properties["record_count"] = len(points)
		feature.Properties["distance"] = distances[i]
		feature.Properties["speed"] = speeds[i]
		featureCollection.Features = append(featureCollection.Features, feature)
	}

	return writeFeatureCollection(featureCollection, writer)
}

func WriteTrajectoriesAsGeoJsonFile(trajectories *trajectory.Trajectories, fileName string) error {
	file, err := os.Create(fileName)
	if err != nil {
		return errors.Wrapf(err, "Cannot create GeoJSON file %s", fileName)
	}
	defer closeFile(file)

	return WriteTrajectoriesAsGeoJson(trajectories, file)
}

package web

import (
	"bytes"
	"encoding/json"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"net/http"
	"net/http/httptest"
	"quadjoin/common"
	"quadjoin/util"
	"strings"
	"testing"
)

func featureCollectionJson(t *testing.T, features ...*geojson.Feature) json.RawMessage {
	featureCollection := geojson.NewFeatureCollection()
	featureCollection.Features = features

	data, err := featureCollection.MarshalJSON()
	util.AssertNil(t, err)

	return data
}

func pointsJson(t *testing.T, points ...orb.Point) json.RawMessage {
	features := make([]*geojson.Feature, 0, len(points))
	for _, point := range points {
		features = append(features, geojson.NewFeature(point))
	}
	return featureCollectionJson(t, features...)
}

func polygonsJson(t *testing.T, polygons ...orb.Polygon) json.RawMessage {
	features := make([]*geojson.Feature, 0, len(polygons))
	for _, polygon := range polygons {
		features = append(features, geojson.NewFeature(polygon))
	}
	return featureCollectionJson(t, features...)
}

func linesJson(t *testing.T, lines ...orb.LineString) json.RawMessage {
	features := make([]*geojson.Feature, 0, len(lines))
	for _, line := range lines {
		features = append(features, geojson.NewFeature(line))
	}
	return featureCollectionJson(t, features...)
}

func postQuery(t *testing.T, path string, query queryRequest) *httptest.ResponseRecorder {
	body, err := json.Marshal(query)
	util.AssertNil(t, err)

	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	initRouter().ServeHTTP(recorder, request)
	return recorder
}

func TestHandlePointInPolygon(t *testing.T) {
	query := queryRequest{
		Points:   pointsJson(t, orb.Point{0.5, 0.5}, orb.Point{5, 5}),
		Polygons: polygonsJson(t, orb.Polygon{{{0, 0}, {1, 0}, {1, 1}, {0, 1}, {0, 0}}}),
		Config:   &queryConfig{XMin: 0, YMin: 0, Scale: 1, MaxDepth: 3, MaxSize: 1},
	}

	recorder := postQuery(t, "/v1/point-in-polygon", query)

	util.AssertEqual(t, http.StatusOK, recorder.Code)
	util.AssertEqual(t, "application/geo+json", recorder.Header().Get("Content-Type"))

	featureCollection, err := geojson.UnmarshalFeatureCollection(recorder.Body.Bytes())
	util.AssertNil(t, err)
	util.AssertEqual(t, 1, len(featureCollection.Features))
	util.AssertEqual(t, orb.Point{0.5, 0.5}, featureCollection.Features[0].Geometry)
	util.AssertEqual(t, 0.0, featureCollection.Features[0].Properties.MustFloat64("point_offset"))
	util.AssertEqual(t, 0.0, featureCollection.Features[0].Properties.MustFloat64("polygon_offset"))
}

func TestHandlePointInPolygon_derivedConfig(t *testing.T) {
	query := queryRequest{
		Points:   pointsJson(t, orb.Point{0.25, 0.25}, orb.Point{2, 2}),
		Polygons: polygonsJson(t, orb.Polygon{{{0, 0}, {1, 0}, {1, 1}, {0, 1}, {0, 0}}}),
	}

	recorder := postQuery(t, "/v1/point-in-polygon", query)

	util.AssertEqual(t, http.StatusOK, recorder.Code)

	featureCollection, err := geojson.UnmarshalFeatureCollection(recorder.Body.Bytes())
	util.AssertNil(t, err)
	util.AssertEqual(t, 1, len(featureCollection.Features))
	util.AssertEqual(t, 0.0, featureCollection.Features[0].Properties.MustFloat64("point_offset"))
}

func TestHandlePointInPolygon_badBody(t *testing.T) {
	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodPost, "/v1/point-in-polygon", strings.NewReader("not json"))

	initRouter().ServeHTTP(recorder, request)

	util.AssertEqual(t, http.StatusBadRequest, recorder.Code)
	util.AssertTrue(t, strings.Contains(recorder.Body.String(), "Error parsing query request"))
}

func TestHandlePointInPolygon_invalidGeometries(t *testing.T) {
	query := queryRequest{
		Points:   pointsJson(t, orb.Point{0.5, 0.5}),
		Polygons: pointsJson(t, orb.Point{1, 1}),
	}

	recorder := postQuery(t, "/v1/point-in-polygon", query)

	util.AssertEqual(t, http.StatusBadRequest, recorder.Code)
	util.AssertTrue(t, strings.Contains(recorder.Body.String(), "Error reading polygons"))
}

func TestHandlePointInPolygon_invalidConfig(t *testing.T) {
	query := queryRequest{
		Points:   pointsJson(t, orb.Point{0.5, 0.5}),
		Polygons: polygonsJson(t, orb.Polygon{{{0, 0}, {1, 0}, {1, 1}, {0, 1}, {0, 0}}}),
		Config:   &queryConfig{Scale: 0, MaxDepth: 3, MaxSize: 1},
	}

	recorder := postQuery(t, "/v1/point-in-polygon", query)

	util.AssertEqual(t, http.StatusBadRequest, recorder.Code)
	util.AssertTrue(t, strings.Contains(recorder.Body.String(), "Invalid index config"))
}

func TestHandleNearestLinestring(t *testing.T) {
	query := queryRequest{
		Points:          pointsJson(t, orb.Point{0, 0}, orb.Point{1, 1}, orb.Point{3, 3}),
		Linestrings:     linesJson(t, orb.LineString{{0.5, 0}, {0.5, 4}}),
		ExpansionRadius: 1,
		Config:          &queryConfig{XMin: 0, YMin: 0, Scale: 1, MaxDepth: 2, MaxSize: 1},
	}

	recorder := postQuery(t, "/v1/nearest-linestring", query)

	util.AssertEqual(t, http.StatusOK, recorder.Code)
	util.AssertEqual(t, "application/geo+json", recorder.Header().Get("Content-Type"))

	featureCollection, err := geojson.UnmarshalFeatureCollection(recorder.Body.Bytes())
	util.AssertNil(t, err)
	util.AssertEqual(t, 2, len(featureCollection.Features))
	util.AssertEqual(t, 0.0, featureCollection.Features[0].Properties.MustFloat64("point_offset"))
	util.AssertEqual(t, 0.0, featureCollection.Features[0].Properties.MustFloat64("linestring_offset"))
	util.AssertEqual(t, 0.5, featureCollection.Features[0].Properties.MustFloat64("distance"))
	util.AssertEqual(t, 1.0, featureCollection.Features[1].Properties.MustFloat64("point_offset"))
	util.AssertEqual(t, 0.5, featureCollection.Features[1].Properties.MustFloat64("distance"))
}

func TestHandleNearestLinestring_invalidRadius(t *testing.T) {
	query := queryRequest{
		Points:          pointsJson(t, orb.Point{0, 0}),
		Linestrings:     linesJson(t, orb.LineString{{0.5, 0}, {0.5, 4}}),
		ExpansionRadius: -1,
	}

	recorder := postQuery(t, "/v1/nearest-linestring", query)

	util.AssertEqual(t, http.StatusBadRequest, recorder.Code)
	util.AssertTrue(t, strings.Contains(recorder.Body.String(), "Invalid expansion radius"))
}

func TestHandleTrajectories(t *testing.T) {
	first := geojson.NewFeature(orb.Point{0, 0})
	first.Properties["object_id"] = 7
	first.Properties["timestamp"] = "2020-01-01T12:00:00Z"
	second := geojson.NewFeature(orb.Point{3, 4})
	second.Properties["object_id"] = 7
	second.Properties["timestamp"] = "2020-01-01T12:00:10Z"
	body := featureCollectionJson(t, first, second)

	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodPost, "/v1/trajectories", bytes.NewReader(body))
	initRouter().ServeHTTP(recorder, request)

	util.AssertEqual(t, http.StatusOK, recorder.Code)
	util.AssertEqual(t, "application/geo+json", recorder.Header().Get("Content-Type"))

	featureCollection, err := geojson.UnmarshalFeatureCollection(recorder.Body.Bytes())
	util.AssertNil(t, err)
	util.AssertEqual(t, 1, len(featureCollection.Features))
	util.AssertEqual(t, orb.LineString{{0, 0}, {3, 4}}, featureCollection.Features[0].Geometry)
	util.AssertEqual(t, 7.0, featureCollection.Features[0].Properties.MustFloat64("trajectory_id"))
	util.AssertEqual(t, 2.0, featureCollection.Features[0].Properties.MustFloat64("record_count"))
	util.AssertEqual(t, 5.0, featureCollection.Features[0].Properties.MustFloat64("distance"))
	util.AssertEqual(t, 0.5, featureCollection.Features[0].Properties.MustFloat64("speed"))
}

func TestHandleTrajectories_emptyRecords(t *testing.T) {
	body := featureCollectionJson(t)

	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodPost, "/v1/trajectories", bytes.NewReader(body))
	initRouter().ServeHTTP(recorder, request)

	util.AssertEqual(t, http.StatusBadRequest, recorder.Code)
	util.AssertTrue(t, strings.Contains(recorder.Body.String(), "Error deriving trajectories"))
}

func TestMetricsEndpoint(t *testing.T) {
	router := initRouter()

	// Drive a request through an instrumented endpoint so that the labeled
	// series exist before scraping.
	query := queryRequest{
		Points:   pointsJson(t, orb.Point{0.5, 0.5}),
		Polygons: polygonsJson(t, orb.Polygon{{{0, 0}, {1, 0}, {1, 1}, {0, 1}, {0, 0}}}),
	}
	body, err := json.Marshal(query)
	util.AssertNil(t, err)
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodPost, "/v1/point-in-polygon", bytes.NewReader(body)))
	util.AssertEqual(t, http.StatusOK, recorder.Code)

	recorder = httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	util.AssertEqual(t, http.StatusOK, recorder.Code)
	util.AssertTrue(t, strings.Contains(recorder.Body.String(), "quadjoin_requests_total"))
	util.AssertTrue(t, strings.Contains(recorder.Body.String(), "quadjoin_indexed_points_total"))
}

func TestResolveConfig(t *testing.T) {
	config, err := resolveConfig(nil, []orb.Point{{1, 1}, {3, 5}})

	util.AssertNil(t, err)
	util.AssertEqual(t, common.Config{XMin: 1, YMin: 1, Scale: 4.0 / 256.0, MaxDepth: 8, MaxSize: 32}, config)

	config, err = resolveConfig(&queryConfig{XMin: -1, YMin: -2, Scale: 0.5, MaxDepth: 3, MaxSize: 4}, nil)

	util.AssertNil(t, err)
	util.AssertEqual(t, common.Config{XMin: -1, YMin: -2, Scale: 0.5, MaxDepth: 3, MaxSize: 4}, config)

	config, err = resolveConfig(nil, nil)

	util.AssertNil(t, err)
	util.AssertEqual(t, common.Config{Scale: 1, MaxDepth: 1}, config)
}

func TestResolveConfig_invalid(t *testing.T) {
	_, err := resolveConfig(&queryConfig{Scale: 0, MaxDepth: 3}, nil)

	util.AssertError(t, "Scale must be > 0 but was 0", err)
}

package web

import (
	"bytes"
	"encoding/json"
	"fmt"
	"github.com/gorilla/mux"
	"github.com/hauke96/sigolo/v2"
	"github.com/paulmach/orb"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"io"
	"net/http"
	"quadjoin/common"
	ownIo "quadjoin/io"
	"quadjoin/join"
	"quadjoin/trajectory"
	"strconv"
	"time"
)

// Defaults for requests that leave the index config to the server. The area
// of interest is then derived from the points of the request.
const (
	defaultMaxDepth = 8
	defaultMaxSize  = 32
)

// queryRequest is the envelope of the join endpoints. Points, polygons and
// linestrings are GeoJSON feature collections. The config is optional, it is
// derived from the points when absent.
type queryRequest struct {
	Points          json.RawMessage `json:"points"`
	Polygons        json.RawMessage `json:"polygons"`
	Linestrings     json.RawMessage `json:"linestrings"`
	ExpansionRadius float64         `json:"expansion_radius"`
	Config          *queryConfig    `json:"config"`
}

type queryConfig struct {
	XMin     float64 `json:"x_min"`
	YMin     float64 `json:"y_min"`
	Scale    float64 `json:"scale"`
	MaxDepth int     `json:"max_depth"`
	MaxSize  uint32  `json:"max_size"`
}

func StartServer(port string) {
	router := initRouter()
	sigolo.Infof("Start server without TLS support on port %s", port)
	err := http.ListenAndServe(":"+port, router)
	sigolo.FatalCheck(err)
}

func StartServerTls(port string, certFile string, keyFile string) {
	router := initRouter()
	sigolo.Infof("Start server with TLS support on port %s", port)
	err := http.ListenAndServeTLS(":"+port, certFile, keyFile, router)
	sigolo.FatalCheck(err)
}

func initRouter() *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/v1/point-in-polygon", instrumented("point-in-polygon", handlePointInPolygon)).Methods(http.MethodPost)
	router.HandleFunc("/v1/nearest-linestring", instrumented("nearest-linestring", handleNearestLinestring)).Methods(http.MethodPost)
	router.HandleFunc("/v1/trajectories", instrumented("trajectories", handleTrajectories)).Methods(http.MethodPost)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	return router
}

// instrumented wraps a handler that reports the status code it responded
// with, recording request count and duration per endpoint.
func instrumented(endpoint string, handle func(http.ResponseWriter, *http.Request) int) http.HandlerFunc {
	return func(writer http.ResponseWriter, request *http.Request) {
		start := time.Now()
		status := handle(writer, request)
		requestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
		requestsTotal.WithLabelValues(endpoint, strconv.Itoa(status)).Inc()
	}
}

func writeError(writer http.ResponseWriter, status int, message string, err error) int {
	sigolo.Errorf("%s: %+v", message, err)
	writer.WriteHeader(status)
	_, writeErr := fmt.Fprintf(writer, "%s: %s", message, err)
	if writeErr != nil {
		sigolo.Errorf("Error writing error response: %+v", writeErr)
	}
	return status
}

func readQueryRequest(writer http.ResponseWriter, request *http.Request) (*queryRequest, int) {
	body, err := io.ReadAll(request.Body)
	if err != nil {
		return nil, writeError(writer, http.StatusInternalServerError, "Error reading HTTP body", err)
	}

	query := &queryRequest{}
	err = json.Unmarshal(body, query)
	if err != nil {
		return nil, writeError(writer, http.StatusBadRequest, "Error parsing query request", err)
	}

	return query, 0
}

// resolveConfig turns the optional request config into a full one. Without an
// explicit config the area of interest is derived from the points.
func resolveConfig(requested *queryConfig, points []orb.Point) (common.Config, error) {
	if requested == nil {
		if len(points) == 0 {
			return common.Config{Scale: 1, MaxDepth: 1}, nil
		}
		return common.DeriveConfig(points, defaultMaxDepth, defaultMaxSize)
	}

	config := common.Config{
		XMin:     requested.XMin,
		YMin:     requested.YMin,
		Scale:    requested.Scale,
		MaxDepth: requested.MaxDepth,
		MaxSize:  requested.MaxSize,
	}
	return config, config.Validate()
}

func handlePointInPolygon(writer http.ResponseWriter, request *http.Request) int {
	query, status := readQueryRequest(writer, request)
	if query == nil {
		return status
	}

	points, err := ownIo.ReadPoints(bytes.NewReader(query.Points))
	if err != nil {
		return writeError(writer, http.StatusBadRequest, "Error reading points", err)
	}
	polygons, err := ownIo.ReadPolygons(bytes.NewReader(query.Polygons))
	if err != nil {
		return writeError(writer, http.StatusBadRequest, "Error reading polygons", err)
	}
	config, err := resolveConfig(query.Config, points)
	if err != nil {
		return writeError(writer, http.StatusBadRequest, "Invalid index config", err)
	}

	memberships, err := join.Pipeline(points, polygons, config)
	if err != nil {
		return writeError(writer, http.StatusInternalServerError, "Error running point in polygon query", err)
	}
	indexedPointsTotal.Add(float64(len(points)))

	sigolo.Debugf("Found %d memberships", memberships.Len())

	writer.Header().Set("Content-Type", "application/geo+json")
	err = ownIo.WriteMembershipsAsGeoJson(memberships, points, writer)
	if err != nil {
		return writeError(writer, http.StatusInternalServerError, "Error writing query result", err)
	}
	return http.StatusOK
}

func handleNearestLinestring(writer http.ResponseWriter, request *http.Request) int {
	query, status := readQueryRequest(writer, request)
	if query == nil {
		return status
	}

	if query.ExpansionRadius < 0 {
		return writeError(writer, http.StatusBadRequest, "Invalid expansion radius",
			errors.Errorf("Expansion radius must be >= 0 but was %v", query.ExpansionRadius))
	}

	points, err := ownIo.ReadPoints(bytes.NewReader(query.Points))
	if err != nil {
		return writeError(writer, http.StatusBadRequest, "Error reading points", err)
	}
	lines, err := ownIo.ReadLineStrings(bytes.NewReader(query.Linestrings))
	if err != nil {
		return writeError(writer, http.StatusBadRequest, "Error reading linestrings", err)
	}
	config, err := resolveConfig(query.Config, points)
	if err != nil {
		return writeError(writer, http.StatusBadRequest, "Invalid index config", err)
	}

	results, err := join.NearestPipeline(points, lines, query.ExpansionRadius, config)
	if err != nil {
		return writeError(writer, http.StatusInternalServerError, "Error running nearest linestring query", err)
	}
	indexedPointsTotal.Add(float64(len(points)))

	sigolo.Debugf("Found nearest linestrings for %d points", results.Len())

	writer.Header().Set("Content-Type", "application/geo+json")
	err = ownIo.WriteNearestAsGeoJson(results, points, writer)
	if err != nil {
		return writeError(writer, http.StatusInternalServerError, "Error writing query result", err)
	}
	return http.StatusOK
}

// handleTrajectories takes a single GeoJSON feature collection of point
// records as request body, no envelope, since no index config is involved.
func handleTrajectories(writer http.ResponseWriter, request *http.Request) int {
	ids, points, timestamps, err := ownIo.ReadPointRecords(request.Body)
	if err != nil {
		return writeError(writer, http.StatusBadRequest, "Error reading point records", err)
	}

	trajectories, err := trajectory.Derive(ids, points, timestamps)
	if err != nil {
		return writeError(writer, http.StatusBadRequest, "Error deriving trajectories", err)
	}

	sigolo.Debugf("Derived %d trajectories from %d records", trajectories.NumTrajectories(), len(points))

	writer.Header().Set("Content-Type", "application/geo+json")
	err = ownIo.WriteTrajectoriesAsGeoJson(trajectories, writer)
	if err != nil {
		return writeError(writer, http.StatusInternalServerError, "Error writing query result", err)
	}
	return http.StatusOK
}

package main

import (
	"fmt"
	"github.com/alecthomas/kong"
	"github.com/hauke96/sigolo/v2"
	"github.com/joho/godotenv"
	"github.com/paulmach/orb"
	"quadjoin/common"
	"quadjoin/geometry"
	"quadjoin/importing"
	ownIo "quadjoin/io"
	"quadjoin/join"
	"quadjoin/trajectory"
	"quadjoin/web"
	"strings"
)

const VERSION = "v0.1.0"

var cli struct {
	Logging string      `help:"Logging verbosity." enum:"info,debug,trace" short:"l" default:"info"`
	Version VersionFlag `help:"Print version information and quit" name:"version" short:"v"`
	Pip     struct {
		Points   string `help:"GeoJSON file with the points to index." placeholder:"<points-file>" arg:"" type:"existingfile"`
		Polygons string `help:"GeoJSON file with the polygons to join against." placeholder:"<polygons-file>" arg:"" type:"existingfile"`
		Output   string `help:"Output GeoJSON file for the memberships." short:"o" default:"memberships.geojson"`
		MaxDepth int    `help:"Number of quadtree levels below the root." default:"8"`
		MaxSize  uint32 `help:"Number of points a quadrant may hold before it splits." default:"32"`
	} `cmd:"" help:"Joins points against polygons and writes which point lies in which polygon."`
	Nearest struct {
		Points      string  `help:"GeoJSON file with the points to index." placeholder:"<points-file>" arg:"" type:"existingfile"`
		Linestrings string  `help:"GeoJSON file with the linestrings to search." placeholder:"<linestrings-file>" arg:"" type:"existingfile"`
		Radius      float64 `help:"Search radius around each linestring." default:"1"`
		Output      string  `help:"Output GeoJSON file for the results." short:"o" default:"nearest.geojson"`
		MaxDepth    int     `help:"Number of quadtree levels below the root." default:"8"`
		MaxSize     uint32  `help:"Number of points a quadrant may hold before it splits." default:"32"`
	} `cmd:"" help:"Finds for each point the nearest linestring within the search radius."`
	Window struct {
		Points string  `help:"GeoJSON file with the points to filter." placeholder:"<points-file>" arg:"" type:"existingfile"`
		MinX   float64 `help:"Minimal x of the window." placeholder:"<min-x>" arg:""`
		MinY   float64 `help:"Minimal y of the window." placeholder:"<min-y>" arg:""`
		MaxX   float64 `help:"Maximal x of the window." placeholder:"<max-x>" arg:""`
		MaxY   float64 `help:"Maximal y of the window." placeholder:"<max-y>" arg:""`
		Output string  `help:"Output GeoJSON file for the selected points." short:"o" default:"window.geojson"`
	} `cmd:"" help:"Selects the points strictly inside a rectangular window."`
	Trajectories struct {
		Records string   `help:"GeoJSON file with timestamped point records." placeholder:"<records-file>" arg:"" type:"existingfile"`
		Ids     []uint32 `help:"Only keep the trajectories of these object ids." optional:""`
		Output  string   `help:"Output GeoJSON file for the trajectories." short:"o" default:"trajectories.geojson"`
	} `cmd:"" help:"Groups point records into per-object trajectories with distance and speed."`
	Import struct {
		Input  string `help:"The input file. Either .osm or .pbf." placeholder:"<input-file>" arg:"" type:"existingfile"`
		Output string `help:"Output GeoJSON file for the node points." short:"o" default:"points.geojson"`
	} `cmd:"" help:"Extracts the node locations of an OSM file as a GeoJSON point set."`
	Serve struct {
		Port        string `help:"Port to listen on." default:"8080" env:"QUADJOIN_PORT"`
		SslCertFile string `help:"Certificate file to serve HTTPS." env:"QUADJOIN_SSL_CERT_FILE" optional:""`
		SslKeyFile  string `help:"Key file to serve HTTPS." env:"QUADJOIN_SSL_KEY_FILE" optional:""`
	} `cmd:"" help:"Starts the HTTP API server."`
}

type VersionFlag string

func (v VersionFlag) Decode(ctx *kong.DecodeContext) error { return nil }
func (v VersionFlag) IsBool() bool                         { return true }
func (v VersionFlag) BeforeApply(app *kong.Kong, vars kong.Vars) error {
	fmt.Println(vars["version"])
	app.Exit(0)
	return nil
}

func main() {
	_ = godotenv.Load()

	ctx := kong.Parse(
		&cli,
		kong.Name("quadjoin"),
		kong.Description("Spatial joins over a Morton-coded point quadtree."),
		kong.Vars{
			"version": VERSION,
		},
	)

	if strings.ToLower(cli.Logging) == "debug" {
		sigolo.SetDefaultLogLevel(sigolo.LOG_DEBUG)
	} else if strings.ToLower(cli.Logging) == "trace" {
		sigolo.SetDefaultLogLevel(sigolo.LOG_TRACE)
	} else if strings.ToLower(cli.Logging) == "info" {
		sigolo.SetDefaultLogLevel(sigolo.LOG_INFO)
		sigolo.SetDefaultFormatFunctionAll(sigolo.LogPlain)
	} else {
		sigolo.SetDefaultFormatFunctionAll(sigolo.LogPlain)
		sigolo.Fatalf("Unknown logging level '%s'", cli.Logging)
	}

	switch ctx.Command() {
	case "pip <points> <polygons>":
		runPointInPolygon()
	case "nearest <points> <linestrings>":
		runNearest()
	case "window <points> <min-x> <min-y> <max-x> <max-y>":
		runWindow()
	case "trajectories <records>":
		runTrajectories()
	case "import <input>":
		runImport()
	case "serve":
		runServe()
	default:
		sigolo.Errorf("Unknown command '%s'", ctx.Command())
	}
}

func runPointInPolygon() {
	points, err := ownIo.ReadPointsFromFile(cli.Pip.Points)
	sigolo.FatalCheck(err)
	polygons, err := ownIo.ReadPolygonsFromFile(cli.Pip.Polygons)
	sigolo.FatalCheck(err)

	config, err := common.DeriveConfig(points, cli.Pip.MaxDepth, cli.Pip.MaxSize)
	sigolo.FatalCheck(err)

	memberships, err := join.Pipeline(points, polygons, config)
	sigolo.FatalCheck(err)

	sigolo.Infof("Found %d memberships between %d points and %d polygons", memberships.Len(), len(points), polygons.NumGeometries())

	err = ownIo.WriteMembershipsAsGeoJsonFile(memberships, points, cli.Pip.Output)
	sigolo.FatalCheck(err)
	sigolo.Infof("Wrote memberships to %s", cli.Pip.Output)
}

func runNearest() {
	points, err := ownIo.ReadPointsFromFile(cli.Nearest.Points)
	sigolo.FatalCheck(err)
	lines, err := ownIo.ReadLineStringsFromFile(cli.Nearest.Linestrings)
	sigolo.FatalCheck(err)

	config, err := common.DeriveConfig(points, cli.Nearest.MaxDepth, cli.Nearest.MaxSize)
	sigolo.FatalCheck(err)

	results, err := join.NearestPipeline(points, lines, cli.Nearest.Radius, config)
	sigolo.FatalCheck(err)

	sigolo.Infof("Found nearest linestrings for %d of %d points", results.Len(), len(points))

	err = ownIo.WriteNearestAsGeoJsonFile(results, points, cli.Nearest.Output)
	sigolo.FatalCheck(err)
	sigolo.Infof("Wrote results to %s", cli.Nearest.Output)
}

func runWindow() {
	points, err := ownIo.ReadPointsFromFile(cli.Window.Points)
	sigolo.FatalCheck(err)

	window := orb.Bound{
		Min: orb.Point{cli.Window.MinX, cli.Window.MinY},
		Max: orb.Point{cli.Window.MaxX, cli.Window.MaxY},
	}
	indices := geometry.PointsInSpatialWindow(window, points)

	sigolo.Infof("Found %d of %d points inside the window", len(indices), len(points))

	err = ownIo.WritePointSelectionAsGeoJsonFile(indices, points, cli.Window.Output)
	sigolo.FatalCheck(err)
	sigolo.Infof("Wrote selection to %s", cli.Window.Output)
}

func runTrajectories() {
	ids, points, timestamps, err := ownIo.ReadPointRecordsFromFile(cli.Trajectories.Records)
	sigolo.FatalCheck(err)

	trajectories, err := trajectory.Derive(ids, points, timestamps)
	sigolo.FatalCheck(err)
	if len(cli.Trajectories.Ids) > 0 {
		trajectories = trajectories.Subset(cli.Trajectories.Ids)
	}

	sigolo.Infof("Derived %d trajectories from %d records", trajectories.NumTrajectories(), len(points))

	err = ownIo.WriteTrajectoriesAsGeoJsonFile(trajectories, cli.Trajectories.Output)
	sigolo.FatalCheck(err)
	sigolo.Infof("Wrote trajectories to %s", cli.Trajectories.Output)
}

func runImport() {
	points, err := importing.ImportPoints(cli.Import.Input)
	sigolo.FatalCheck(err)

	sigolo.Infof("Imported %d points from %s", len(points), cli.Import.Input)

	err = ownIo.WritePointsAsGeoJsonFile(points, cli.Import.Output)
	sigolo.FatalCheck(err)
	sigolo.Infof("Wrote points to %s", cli.Import.Output)
}

func runServe() {
	if cli.Serve.SslCertFile != "" && cli.Serve.SslKeyFile != "" {
		web.StartServerTls(cli.Serve.Port, cli.Serve.SslCertFile, cli.Serve.SslKeyFile)
	} else {
		web.StartServer(cli.Serve.Port)
	}
}

package importing

import (
	"context"
	"github.com/hauke96/sigolo/v2"
	"github.com/paulmach/orb"
	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmpbf"
	"github.com/paulmach/osm/osmxml"
	"github.com/pkg/errors"
	"os"
	"strings"
	"time"
)

// ImportPoints reads an OSM file and extracts the location of every node as a
// point, in scan order. Ways and relations carry no coordinates of their own
// and are skipped.
func ImportPoints(inputFile string) ([]orb.Point, error) {
	if !strings.HasSuffix(inputFile, ".osm") && !strings.HasSuffix(inputFile, ".pbf") {
		return nil, errors.Errorf("Input file %s must be an .osm or .pbf file", inputFile)
	}

	file, err := os.Open(inputFile)
	if err != nil {
		return nil, errors.Wrapf(err, "Cannot open OSM file %s", inputFile)
	}
	defer file.Close()

	var scanner osm.Scanner
	if strings.HasSuffix(inputFile, ".osm") {
		scanner = osmxml.New(context.Background(), file)
	} else {
		scanner = osmpbf.New(context.Background(), file, 1)
	}
	defer scanner.Close()

	sigolo.Debugf("Start scanning OSM input %s", inputFile)
	importStartTime := time.Now()

	points, err := extractNodePoints(scanner)
	if err != nil {
		return nil, err
	}

	sigolo.Debugf("Extracted %d node points in %s", len(points), time.Since(importStartTime))
	return points, nil
}

func extractNodePoints(scanner osm.Scanner) ([]orb.Point, error) {
	var points []orb.Point
	for scanner.Scan() {
		switch node := scanner.Object().(type) {
		case *osm.Node:
			points = append(points, orb.Point{node.Lon, node.Lat})
		}
	}

	err := scanner.Err()
	if err != nil {
		return nil, errors.Wrap(err, "Error scanning OSM input")
	}

	return points, nil
}

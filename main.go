// gaze.report server: parses an SMI events export at startup, records the
// session, and serves trial data plus debug charts over HTTP.
package main

import (
	"flag"
	"log"
	"net/http"

	"github.com/fovea-data/gaze.report/api"
	"github.com/fovea-data/gaze.report/internal/gazedb"
	"github.com/fovea-data/gaze.report/internal/gazeplot"
	"github.com/fovea-data/gaze.report/internal/smi"
)

var (
	eventsFile = flag.String("events", "events.txt", "Path to the SMI IDF events export")
	dbFile     = flag.String("db", "gaze_data.db", "Sqlite database path (empty disables persistence)")
	listen     = flag.String("listen", ":8080", "Listen address")
	startTrial = flag.Int("start", -1, "Trial number that begins capture (-1: first recognised row)")
	stopTrial  = flag.Int("stop", -1, "Trial number that forces a close (-1: none)")
	eyeMode    = flag.String("mode", "average", "Eye reconciliation mode: left, right, average, strict-average")
	migrations = flag.String("migrations", "", "Run migrations from this directory before serving")
	debugRows  = flag.Bool("debug", false, "Log skipped and malformed rows")

	dispWidth    = flag.Int("disp-width", 1920, "Display width in pixels")
	dispHeight   = flag.Int("disp-height", 1080, "Display height in pixels")
	screenWidth  = flag.Float64("screen-width", 39.9, "Physical screen width in cm")
	screenHeight = flag.Float64("screen-height", 29.9, "Physical screen height in cm")
	distance     = flag.Float64("distance", 61.0, "Viewing distance in cm")
)

func main() {
	flag.Parse()

	if *listen == "" {
		log.Fatal("Listen address is required")
	}

	mode, err := smi.ParseMode(*eyeMode)
	if err != nil {
		log.Fatalf("invalid -mode: %v", err)
	}

	opts := smi.Options{Mode: mode, Debug: *debugRows}
	if *startTrial >= 0 {
		opts.StartTrial = startTrial
	}
	if *stopTrial >= 0 {
		opts.StopTrial = stopTrial
	}

	display := gazeplot.Display{
		WidthPx: *dispWidth, HeightPx: *dispHeight,
		ScreenWidthCm: *screenWidth, ScreenHeightCm: *screenHeight,
		DistanceCm: *distance,
	}
	if err := display.Validate(); err != nil {
		log.Fatalf("invalid display geometry: %v", err)
	}

	trials, err := smi.ParseFile(*eventsFile, opts)
	if err != nil {
		log.Fatalf("failed to parse events: %v", err)
	}
	log.Printf("parsed %d trials from %s (mode=%s)", len(trials), *eventsFile, mode)

	var db *gazedb.DB
	if *dbFile != "" {
		db, err = gazedb.Open(*dbFile)
		if err != nil {
			log.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()

		if *migrations != "" {
			if err := db.MigrateUp(*migrations); err != nil {
				log.Fatalf("migrations failed: %v", err)
			}
		}

		id, err := db.RecordSession(*eventsFile, opts, trials)
		if err != nil {
			log.Fatalf("failed to record session: %v", err)
		}
		log.Printf("recorded session %s", id)
	}

	server := api.NewServer(*eventsFile, trials, display, db)
	log.Printf("listening on %s", *listen)
	log.Fatal(http.ListenAndServe(*listen, server.ServeMux()))
}

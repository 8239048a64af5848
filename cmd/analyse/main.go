// analyse renders fixation, scanpath and heatmap plots for each trial of a
// natural-viewing experiment.
//
// The data directory holds one <participant>.txt trial table per participant
// (tab-separated, header row with an "image" column naming the stimulus shown
// on each trial) and the shared events.txt export from the SMI IDF converter.
package main

import (
	"flag"
	"fmt"
	"log"
	"path/filepath"
	"strings"

	"github.com/fovea-data/gaze.report/internal/fsutil"
	"github.com/fovea-data/gaze.report/internal/gazeplot"
	"github.com/fovea-data/gaze.report/internal/smi"
)

var (
	dataDir      = flag.String("data", "data", "Data directory with <participant>.txt tables and events.txt")
	imgDir       = flag.String("imgs", "", "Stimulus image directory (default: <data>/imgs)")
	plotDir      = flag.String("plots", "plots", "Output directory for plot PNGs")
	participants = flag.String("pp", "1", "Comma-separated participant names")
	startTrial   = flag.Int("start", -1, "Trial number that begins capture (-1: first recognised row)")
	stopTrial    = flag.Int("stop", -1, "Trial number that forces a close (-1: none)")
	eyeMode      = flag.String("mode", "average", "Eye reconciliation mode: left, right, average, strict-average")
	debugRows    = flag.Bool("debug", false, "Log skipped and malformed rows")

	dispWidth    = flag.Int("disp-width", 1920, "Display width in pixels")
	dispHeight   = flag.Int("disp-height", 1080, "Display height in pixels")
	screenWidth  = flag.Float64("screen-width", 39.9, "Physical screen width in cm")
	screenHeight = flag.Float64("screen-height", 29.9, "Physical screen height in cm")
	distance     = flag.Float64("distance", 61.0, "Viewing distance in cm")
)

type config struct {
	dataDir      string
	imgDir       string
	plotDir      string
	participants []string
	opts         smi.Options
	display      gazeplot.Display
}

func main() {
	flag.Parse()

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

	imgs := *imgDir
	if imgs == "" {
		imgs = filepath.Join(*dataDir, "imgs")
	}

	cfg := config{
		dataDir:      *dataDir,
		imgDir:       imgs,
		plotDir:      *plotDir,
		participants: splitParticipants(*participants),
		opts:         opts,
		display: gazeplot.Display{
			WidthPx: *dispWidth, HeightPx: *dispHeight,
			ScreenWidthCm: *screenWidth, ScreenHeightCm: *screenHeight,
			DistanceCm: *distance,
		},
	}

	if err := run(fsutil.OSFileSystem{}, cfg); err != nil {
		log.Fatalf("analysis failed: %v", err)
	}
}

func splitParticipants(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func run(fs fsutil.FileSystem, cfg config) error {
	if err := cfg.display.Validate(); err != nil {
		return err
	}
	if !fs.IsDir(cfg.dataDir) {
		return fmt.Errorf("no data directory: %s does not exist", cfg.dataDir)
	}
	if !fs.IsDir(cfg.imgDir) {
		return fmt.Errorf("no image directory: %s does not exist", cfg.imgDir)
	}
	if err := fs.MkdirAll(cfg.plotDir, 0755); err != nil {
		return fmt.Errorf("create plot directory: %w", err)
	}
	if len(cfg.participants) == 0 {
		return fmt.Errorf("no participants given")
	}

	eventsPath := filepath.Join(cfg.dataDir, "events.txt")

	for _, pp := range cfg.participants {
		log.Printf("starting data analysis for participant %q", pp)

		tableData, err := fs.ReadFile(filepath.Join(cfg.dataDir, pp+".txt"))
		if err != nil {
			return fmt.Errorf("read trial table for %q: %w", pp, err)
		}
		images, err := parseTrialTable(tableData)
		if err != nil {
			return fmt.Errorf("trial table for %q: %w", pp, err)
		}

		trials, err := smi.ParseFile(eventsPath, cfg.opts)
		if err != nil {
			return err
		}
		log.Printf("parsed %d trials for participant %q", len(trials), pp)

		ppDir := filepath.Join(cfg.plotDir, pp)
		if err := fs.MkdirAll(ppDir, 0755); err != nil {
			return fmt.Errorf("create participant plot directory: %w", err)
		}

		if err := plotTrials(fs, cfg, pp, ppDir, trials, images); err != nil {
			return err
		}
	}
	return nil
}

// parseTrialTable extracts per-trial stimulus image names from a
// tab-separated table. The header row must contain an "image" column; quotes
// around values are stripped.
func parseTrialTable(data []byte) ([]string, error) {
	lines := strings.Split(strings.ReplaceAll(string(data), "\r", ""), "\n")
	if len(lines) == 0 || strings.TrimSpace(lines[0]) == "" {
		return nil, fmt.Errorf("empty trial table")
	}

	header := strings.Split(strings.ReplaceAll(lines[0], `"`, ""), "\t")
	imageCol := -1
	for i, name := range header {
		if name == "image" {
			imageCol = i
			break
		}
	}
	if imageCol < 0 {
		return nil, fmt.Errorf("no %q column in header %v", "image", header)
	}

	var images []string
	for _, line := range lines[1:] {
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.Split(strings.ReplaceAll(line, `"`, ""), "\t")
		if imageCol >= len(fields) {
			return nil, fmt.Errorf("row %q has no image column", line)
		}
		images = append(images, fields[imageCol])
	}
	return images, nil
}

func plotTrials(fs fsutil.FileSystem, cfg config, pp, ppDir string, trials []smi.Trial, images []string) error {
	for i, trial := range trials {
		imgPath := ""
		if i < len(images) && images[i] != "" {
			p := filepath.Join(cfg.imgDir, images[i])
			if fs.Exists(p) {
				imgPath = p
			} else {
				log.Printf("stimulus image %s missing, plotting without underlay", p)
			}
		}

		fixFile := filepath.Join(ppDir, fmt.Sprintf("fixations_%s_%d.png", pp, i))
		if err := gazeplot.DrawFixations(trial.Fixations, cfg.display, imgPath, fixFile); err != nil {
			return fmt.Errorf("trial %d fixation plot: %w", i, err)
		}

		pathFile := filepath.Join(ppDir, fmt.Sprintf("scanpath_%s_%d.png", pp, i))
		if err := gazeplot.DrawScanpath(trial.Fixations, trial.Saccades, cfg.display, imgPath, pathFile); err != nil {
			return fmt.Errorf("trial %d scanpath plot: %w", i, err)
		}

		heatFile := filepath.Join(ppDir, fmt.Sprintf("heatmap_%s_%d.png", pp, i))
		if err := gazeplot.DrawHeatmap(trial.Fixations, cfg.display, imgPath, heatFile); err != nil {
			return fmt.Errorf("trial %d heatmap plot: %w", i, err)
		}
	}
	return nil
}

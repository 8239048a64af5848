// Package api exposes parsed gaze sessions over HTTP: JSON endpoints for
// trial data plus echarts debug pages for eyeballing scanpaths without the
// plotting pipeline.
package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/fovea-data/gaze.report/internal/gazedb"
	"github.com/fovea-data/gaze.report/internal/gazeplot"
	"github.com/fovea-data/gaze.report/internal/smi"
)

type Server struct {
	source  string
	trials  []smi.Trial
	display gazeplot.Display
	db      *gazedb.DB // nil when running without persistence
}

func NewServer(source string, trials []smi.Trial, display gazeplot.Display, db *gazedb.DB) *Server {
	return &Server{source: source, trials: trials, display: display, db: db}
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/trials", s.listTrials)
	mux.HandleFunc("/api/trials/", s.getTrial)
	mux.HandleFunc("/api/sessions", s.listSessions)
	mux.HandleFunc("/debug/scanpath", s.scanpathChart)
	mux.HandleFunc("/debug/dashboard", s.dashboard)
	mux.HandleFunc("/", s.homeHandler)
	return mux
}

func (s *Server) homeHandler(w http.ResponseWriter, r *http.Request) {
	fmt.Fprintf(w, "Gaze Report Server — %d trials from %s\n", len(s.trials), s.source)
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, fmt.Sprintf("encode response: %v", err), http.StatusInternalServerError)
	}
}

func (s *Server) writeJSONError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// TrialSummary is the per-trial row of the listing endpoint.
type TrialSummary struct {
	Index     int     `json:"index"`
	Fixations int     `json:"fixations"`
	Saccades  int     `json:"saccades"`
	Blinks    int     `json:"blinks"`
	Messages  int     `json:"messages"`
	EndMs     float64 `json:"end_ms"`
}

func summarize(i int, t smi.Trial) TrialSummary {
	sum := TrialSummary{
		Index:     i,
		Fixations: len(t.Fixations),
		Saccades:  len(t.Saccades),
		Blinks:    len(t.Blinks),
		Messages:  len(t.Messages),
	}
	for _, f := range t.Fixations {
		if f.End > sum.EndMs {
			sum.EndMs = f.End
		}
	}
	for _, sac := range t.Saccades {
		if sac.End > sum.EndMs {
			sum.EndMs = sac.End
		}
	}
	return sum
}

func (s *Server) listTrials(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	summaries := make([]TrialSummary, len(s.trials))
	for i, t := range s.trials {
		summaries[i] = summarize(i, t)
	}
	s.writeJSON(w, summaries)
}

func (s *Server) getTrial(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	idx, err := strconv.Atoi(strings.TrimPrefix(r.URL.Path, "/api/trials/"))
	if err != nil {
		s.writeJSONError(w, http.StatusBadRequest, "trial index must be an integer")
		return
	}
	if idx < 0 || idx >= len(s.trials) {
		s.writeJSONError(w, http.StatusNotFound, fmt.Sprintf("no trial %d (have %d)", idx, len(s.trials)))
		return
	}
	s.writeJSON(w, s.trials[idx])
}

func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.db == nil {
		s.writeJSONError(w, http.StatusNotFound, "no session store configured")
		return
	}

	sessions, err := s.db.Sessions()
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("list sessions: %v", err))
		return
	}
	s.writeJSON(w, sessions)
}

// scanpathChart renders one trial's fixations and saccade path as an echarts
// HTML page. Query params: trial (index, default 0).
func (s *Server) scanpathChart(w http.ResponseWriter, r *http.Request) {
	idx := 0
	if v := r.URL.Query().Get("trial"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			s.writeJSONError(w, http.StatusBadRequest, "trial must be an integer")
			return
		}
		idx = n
	}
	if idx < 0 || idx >= len(s.trials) {
		s.writeJSONError(w, http.StatusNotFound, fmt.Sprintf("no trial %d (have %d)", idx, len(s.trials)))
		return
	}
	trial := s.trials[idx]

	h := float64(s.display.HeightPx)
	wpx := float64(s.display.WidthPx)

	fixData := make([]opts.ScatterData, 0, len(trial.Fixations))
	maxDur := 0.0
	for _, f := range trial.Fixations {
		if f.Duration > maxDur {
			maxDur = f.Duration
		}
		// Flip y so the chart matches screen orientation.
		fixData = append(fixData, opts.ScatterData{Value: []interface{}{f.X, h - f.Y, f.Duration}})
	}
	if maxDur == 0 {
		maxDur = 1
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Scanpath", Theme: "dark", Width: "900px", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    fmt.Sprintf("Trial %d scanpath", idx),
			Subtitle: fmt.Sprintf("source=%s fixations=%d saccades=%d", s.source, len(trial.Fixations), len(trial.Saccades)),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Min: 0, Max: wpx, Name: "x (px)"}),
		charts.WithYAxisOpts(opts.YAxis{Min: 0, Max: h, Name: "y (px)"}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        0,
			Max:        float32(maxDur),
			Dimension:  "2",
			InRange:    &opts.VisualMapInRange{Color: []string{"#31688e", "#35b779", "#fde725"}},
		}),
	)
	scatter.AddSeries("fixations", fixData, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 14}))

	if len(trial.Fixations) > 1 {
		line := charts.NewLine()
		pathData := make([]opts.LineData, 0, len(trial.Fixations))
		for _, f := range trial.Fixations {
			pathData = append(pathData, opts.LineData{Value: []interface{}{f.X, h - f.Y}})
		}
		line.AddSeries("path", pathData)
		scatter.Overlap(line)
	}

	var buf bytes.Buffer
	if err := scatter.Render(&buf); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to render chart: %v", err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

// dashboard renders iframes over the per-trial scanpath charts.
func (s *Server) dashboard(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, "<!DOCTYPE html><html><head><title>Gaze Debug</title></head><body style=\"background:#111;color:#eee\">")
	fmt.Fprintf(w, "<h1>%s — %d trials</h1>", s.source, len(s.trials))
	for i := range s.trials {
		fmt.Fprintf(w, "<iframe src=\"/debug/scanpath?trial=%d\" width=\"940\" height=\"640\" frameborder=\"0\"></iframe>", i)
	}
	fmt.Fprintf(w, "</body></html>")
}

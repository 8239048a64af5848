package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fovea-data/gaze.report/internal/gazeplot"
	"github.com/fovea-data/gaze.report/internal/smi"
)

var testDisplay = gazeplot.Display{
	WidthPx: 1920, HeightPx: 1080,
	ScreenWidthCm: 39.9, ScreenHeightCm: 29.9,
	DistanceCm: 61.0,
}

func testServer() *httptest.Server {
	trials := []smi.Trial{
		{
			Fixations: []smi.Fixation{
				{Start: 0, End: 150, Duration: 150, X: 400, Y: 300},
				{Start: 180, End: 520, Duration: 340, X: 960, Y: 540},
			},
			Saccades: []smi.Saccade{
				{Start: 150, End: 180, Duration: 30, StartX: 400, StartY: 300, EndX: 960, EndY: 540},
			},
			Blinks:   []smi.Blink{},
			Messages: []smi.Message{{Time: 3_382_450_900_000, Text: "image onset"}},
		},
		{
			Fixations: []smi.Fixation{{Start: 0, End: 100, Duration: 100, X: 10, Y: 20}},
		},
	}
	s := NewServer("events.txt", trials, testDisplay, nil)
	return httptest.NewServer(s.ServeMux())
}

func TestListTrials(t *testing.T) {
	t.Parallel()

	srv := testServer()
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/trials")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var summaries []TrialSummary
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&summaries))
	require.Len(t, summaries, 2)
	assert.Equal(t, 2, summaries[0].Fixations)
	assert.Equal(t, 1, summaries[0].Saccades)
	assert.Equal(t, 1, summaries[0].Messages)
	assert.InDelta(t, 520.0, summaries[0].EndMs, 1e-9)
}

func TestGetTrial(t *testing.T) {
	t.Parallel()

	srv := testServer()
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/trials/0")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var trial smi.Trial
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&trial))
	require.Len(t, trial.Fixations, 2)
	assert.Equal(t, 400.0, trial.Fixations[0].X)

	for _, path := range []string{"/api/trials/7", "/api/trials/-1"} {
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, path)
	}

	resp, err = http.Get(srv.URL + "/api/trials/xyz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestMethodNotAllowed(t *testing.T) {
	t.Parallel()

	srv := testServer()
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/trials", "application/json", strings.NewReader("{}"))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestScanpathChart(t *testing.T) {
	t.Parallel()

	srv := testServer()
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/debug/scanpath?trial=0")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")

	resp, err = http.Get(srv.URL + "/debug/scanpath?trial=42")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSessionsWithoutStore(t *testing.T) {
	t.Parallel()

	srv := testServer()
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/sessions")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDashboard(t *testing.T) {
	t.Parallel()

	srv := testServer()
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/debug/dashboard")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
}

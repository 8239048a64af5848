package gazedb

import (
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fovea-data/gaze.report/internal/smi"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "gaze.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func testTrials() []smi.Trial {
	return []smi.Trial{
		{
			Fixations: []smi.Fixation{
				{Start: 0, End: 159.096, Duration: 159.096, X: 996.68, Y: 569.56},
				{Start: 200, End: 350, Duration: 150, X: 312.4, Y: 220.1},
			},
			Saccades: []smi.Saccade{
				{Start: 159.096, End: 179, Duration: 19.9, StartX: 996.68, StartY: 569.56, EndX: 312.4, EndY: 220.1},
			},
			Blinks:   []smi.Blink{{Start: 400, End: 479.6, Duration: 79.6}},
			Messages: []smi.Message{{Time: 3_382_450_900_000, Text: "image onset"}},
		},
		{
			Fixations: []smi.Fixation{{Start: 0, End: 120, Duration: 120, X: 960, Y: 540}},
			Saccades:  []smi.Saccade{},
			Blinks:    []smi.Blink{},
			Messages:  []smi.Message{},
		},
	}
}

func TestRecordAndReloadSession(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	start := 1
	opts := smi.Options{StartTrial: &start, Mode: smi.Average}

	id, err := db.RecordSession("events.txt", opts, testTrials())
	require.NoError(t, err)
	require.NotEmpty(t, id)

	got, err := db.SessionTrials(id)
	require.NoError(t, err)

	if diff := cmp.Diff(testTrials(), got); diff != "" {
		t.Errorf("reloaded trials differ (-stored +loaded):\n%s", diff)
	}
}

func TestSessionsListing(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)

	stop := 5
	_, err := db.RecordSession("a.txt", smi.Options{Mode: smi.LeftOnly}, testTrials())
	require.NoError(t, err)
	_, err = db.RecordSession("b.txt", smi.Options{Mode: smi.Average, StopTrial: &stop}, nil)
	require.NoError(t, err)

	sessions, err := db.Sessions()
	require.NoError(t, err)
	require.Len(t, sessions, 2)

	byFile := map[string]Session{}
	for _, s := range sessions {
		byFile[s.SourceFile] = s
	}

	a := byFile["a.txt"]
	assert.Equal(t, "left", a.EyeMode)
	assert.Equal(t, 2, a.TrialCount)
	assert.Nil(t, a.StopTrial)

	b := byFile["b.txt"]
	assert.Equal(t, 0, b.TrialCount)
	require.NotNil(t, b.StopTrial)
	assert.Equal(t, 5, *b.StopTrial)
}

func TestSessionTrialsUnknownSession(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	trials, err := db.SessionTrials("no-such-session")
	require.NoError(t, err)
	assert.Empty(t, trials)
}

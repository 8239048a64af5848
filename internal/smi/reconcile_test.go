package smi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rawFix(side EyeSide, seq int, start, dur int64, x, y float64) rawEvent {
	return rawEvent{
		kind: FixationEvent, side: side, trial: 1, seq: seq,
		start: start, end: start + dur, duration: dur, x: x, y: y,
	}
}

func rawSac(side EyeSide, seq int, start, dur int64, sx, sy, ex, ey float64) rawEvent {
	return rawEvent{
		kind: SaccadeEvent, side: side, trial: 1, seq: seq,
		start: start, end: start + dur, duration: dur,
		x: sx, y: sy, endX: ex, endY: ey,
	}
}

func rawBlk(side EyeSide, seq int, start, dur int64) rawEvent {
	return rawEvent{
		kind: BlinkEvent, side: side, trial: 1, seq: seq,
		start: start, end: start + dur, duration: dur,
	}
}

func TestResolveDecisionTable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		mode Mode
		kind EventKind
		l, r bool
		want decision
	}{
		{"left-only both", LeftOnly, FixationEvent, true, true, useLeft},
		{"left-only right alone", LeftOnly, FixationEvent, false, true, skipEvent},
		{"right-only both", RightOnly, SaccadeEvent, true, true, useRight},
		{"right-only left alone", RightOnly, SaccadeEvent, true, false, skipEvent},
		{"average both", Average, FixationEvent, true, true, blendSides},
		{"average left alone", Average, SaccadeEvent, true, false, useLeft},
		{"average right alone", Average, FixationEvent, false, true, useRight},
		{"average blink both drops", Average, BlinkEvent, true, true, skipEvent},
		{"average blink left alone", Average, BlinkEvent, true, false, useLeft},
		{"strict both", StrictAverage, SaccadeEvent, true, true, blendSides},
		{"strict left alone", StrictAverage, FixationEvent, true, false, skipEvent},
		{"strict right alone", StrictAverage, FixationEvent, false, true, skipEvent},
		{"strict blink both drops", StrictAverage, BlinkEvent, true, true, skipEvent},
		{"strict blink left alone drops", StrictAverage, BlinkEvent, true, false, skipEvent},
		{"neither", Average, FixationEvent, false, false, skipEvent},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, resolve(tc.mode, tc.kind, tc.l, tc.r))
		})
	}
}

// Fixation buffers with left keys {1,2} and right keys {2,3} must yield 2, 2,
// 3 and 1 records under the four modes respectively.
func TestModeExclusivity(t *testing.T) {
	t.Parallel()

	bufs := [2]eyeBuffer{
		LeftEye: {
			1: rawFix(LeftEye, 1, 1000, 100000, 100, 200),
			2: rawFix(LeftEye, 2, 200000, 100000, 300, 400),
		},
		RightEye: {
			2: rawFix(RightEye, 2, 201000, 110000, 500, 600),
			3: rawFix(RightEye, 3, 400000, 100000, 700, 800),
		},
	}

	t.Run("left-only", func(t *testing.T) {
		got := mergeFixations(LeftOnly, 0, bufs)
		require.Len(t, got, 2)
		assert.Equal(t, 100.0, got[0].X)
		assert.Equal(t, 300.0, got[1].X)
	})

	t.Run("right-only", func(t *testing.T) {
		got := mergeFixations(RightOnly, 0, bufs)
		require.Len(t, got, 2)
		assert.Equal(t, 500.0, got[0].X)
		assert.Equal(t, 700.0, got[1].X)
	})

	t.Run("average", func(t *testing.T) {
		got := mergeFixations(Average, 0, bufs)
		require.Len(t, got, 3)
		// Key 1 left verbatim, key 2 blended, key 3 right verbatim.
		assert.Equal(t, 100.0, got[0].X)
		assert.Equal(t, 400.0, got[1].X)
		assert.Equal(t, 500.0, got[1].Y)
		assert.Equal(t, 700.0, got[2].X)
	})

	t.Run("strict-average", func(t *testing.T) {
		got := mergeFixations(StrictAverage, 0, bufs)
		require.Len(t, got, 1)
		assert.Equal(t, 400.0, got[0].X)
		assert.Equal(t, 500.0, got[0].Y)
	})
}

// When both eyes recorded an event, timing comes from the left eye and is
// never averaged; when a single eye recorded it, that eye's timing is used.
// Historical converter behaviour, deliberately preserved for both orderings.
func TestMergeTimingAuthority(t *testing.T) {
	t.Parallel()

	const origin = int64(1_000_000)

	t.Run("both present takes left timing", func(t *testing.T) {
		bufs := [2]eyeBuffer{
			LeftEye:  {1: rawSac(LeftEye, 1, origin+50_000, 20_000, 10, 20, 30, 40)},
			RightEye: {1: rawSac(RightEye, 1, origin+53_000, 26_000, 14, 24, 34, 44)},
		}
		got := mergeSaccades(Average, origin, bufs)
		require.Len(t, got, 1)
		assert.InDelta(t, 50.0, got[0].Start, 1e-9)
		assert.InDelta(t, 70.0, got[0].End, 1e-9)
		assert.InDelta(t, 20.0, got[0].Duration, 1e-9)
		// Coordinates are the arithmetic mean of the two sides.
		assert.InDelta(t, 12.0, got[0].StartX, 1e-9)
		assert.InDelta(t, 22.0, got[0].StartY, 1e-9)
		assert.InDelta(t, 32.0, got[0].EndX, 1e-9)
		assert.InDelta(t, 42.0, got[0].EndY, 1e-9)
	})

	t.Run("right alone keeps right timing", func(t *testing.T) {
		bufs := [2]eyeBuffer{
			LeftEye:  {},
			RightEye: {1: rawSac(RightEye, 1, origin+53_000, 26_000, 14, 24, 34, 44)},
		}
		got := mergeSaccades(Average, origin, bufs)
		require.Len(t, got, 1)
		assert.InDelta(t, 53.0, got[0].Start, 1e-9)
		assert.InDelta(t, 26.0, got[0].Duration, 1e-9)
		assert.InDelta(t, 14.0, got[0].StartX, 1e-9)
	})

	t.Run("left alone keeps left timing", func(t *testing.T) {
		bufs := [2]eyeBuffer{
			LeftEye:  {1: rawSac(LeftEye, 1, origin+50_000, 20_000, 10, 20, 30, 40)},
			RightEye: {},
		}
		got := mergeSaccades(Average, origin, bufs)
		require.Len(t, got, 1)
		assert.InDelta(t, 50.0, got[0].Start, 1e-9)
		assert.InDelta(t, 20.0, got[0].Duration, 1e-9)
	})
}

func TestBlinkDropRule(t *testing.T) {
	t.Parallel()

	bufs := [2]eyeBuffer{
		LeftEye: {
			1: rawBlk(LeftEye, 1, 100_000, 80_000),
			2: rawBlk(LeftEye, 2, 300_000, 60_000),
		},
		RightEye: {
			1: rawBlk(RightEye, 1, 101_000, 81_000),
		},
	}

	t.Run("average", func(t *testing.T) {
		got := mergeBlinks(Average, 0, bufs)
		// Key 1 is in both buffers and drops; key 2 survives verbatim.
		require.Len(t, got, 1)
		assert.InDelta(t, 300.0, got[0].Start, 1e-9)
		assert.InDelta(t, 60.0, got[0].Duration, 1e-9)
	})

	t.Run("strict-average", func(t *testing.T) {
		got := mergeBlinks(StrictAverage, 0, bufs)
		assert.Empty(t, got)
	})

	t.Run("left-only", func(t *testing.T) {
		got := mergeBlinks(LeftOnly, 0, bufs)
		assert.Len(t, got, 2)
	})
}

func TestEmptyBufferPair(t *testing.T) {
	t.Parallel()

	trial := reconcile(Average, 0, newTrialBuffers())
	assert.Empty(t, trial.Fixations)
	assert.Empty(t, trial.Saccades)
	assert.Empty(t, trial.Blinks)
	assert.Empty(t, trial.Messages)
	assert.NotNil(t, trial.Fixations)
}

// Package smi parses event exports produced by the SMI IDF converter.
//
// The converter writes a tab-separated events file interleaving left- and
// right-eye fixation, saccade and blink rows with free-text user events. The
// trial number column increments each time the tracker capture is started and
// stopped, which is how recordings are delineated into trials. This package
// segments the flat export into per-trial event collections, reconciling the
// two eye streams under a configurable mode and re-basing all timing onto a
// trial-local millisecond clock.
package smi

import "fmt"

// EyeSide identifies which eye produced an event row.
type EyeSide int

const (
	LeftEye EyeSide = iota
	RightEye
)

func (s EyeSide) String() string {
	switch s {
	case LeftEye:
		return "L"
	case RightEye:
		return "R"
	}
	return fmt.Sprintf("EyeSide(%d)", int(s))
}

// EventKind identifies the classified gaze event type of a row.
type EventKind int

const (
	FixationEvent EventKind = iota
	SaccadeEvent
	BlinkEvent
)

func (k EventKind) String() string {
	switch k {
	case FixationEvent:
		return "Fixation"
	case SaccadeEvent:
		return "Saccade"
	case BlinkEvent:
		return "Blink"
	}
	return fmt.Sprintf("EventKind(%d)", int(k))
}

// Mode selects how the left- and right-eye event streams are combined.
type Mode int

const (
	// Average uses whichever eye is present, and averages the positional
	// fields when both eyes recorded the same event. Timing is never
	// averaged: when both eyes are present the left eye's start, end and
	// duration are authoritative. Blinks present in both eyes are dropped
	// (there is no meaningful way to average a blink).
	Average Mode = iota

	// LeftOnly keeps only left-eye events.
	LeftOnly

	// RightOnly keeps only right-eye events.
	RightOnly

	// StrictAverage keeps only events both eyes recorded, averaging
	// positional fields as Average does. Blinks recorded by both eyes are
	// still dropped.
	StrictAverage
)

func (m Mode) String() string {
	switch m {
	case Average:
		return "average"
	case LeftOnly:
		return "left"
	case RightOnly:
		return "right"
	case StrictAverage:
		return "strict-average"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// ParseMode converts a mode name as accepted on the command line.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "average", "":
		return Average, nil
	case "left":
		return LeftOnly, nil
	case "right":
		return RightOnly, nil
	case "strict-average", "strict":
		return StrictAverage, nil
	}
	return Average, fmt.Errorf("unknown eye mode %q (want left, right, average or strict-average)", s)
}

// Fixation is one reconciled fixation. Times are milliseconds relative to the
// trial origin; X and Y are the fixation location in screen pixels.
type Fixation struct {
	Start    float64 `json:"start"`
	End      float64 `json:"end"`
	Duration float64 `json:"duration"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
}

// Saccade is one reconciled saccade. Times are milliseconds relative to the
// trial origin; coordinates are screen pixels.
type Saccade struct {
	Start    float64 `json:"start"`
	End      float64 `json:"end"`
	Duration float64 `json:"duration"`
	StartX   float64 `json:"start_x"`
	StartY   float64 `json:"start_y"`
	EndX     float64 `json:"end_x"`
	EndY     float64 `json:"end_y"`
}

// Blink is one reconciled blink. Times are milliseconds relative to the trial
// origin.
type Blink struct {
	Start    float64 `json:"start"`
	End      float64 `json:"end"`
	Duration float64 `json:"duration"`
}

// Message is a free-text user event captured while a trial was open. Time is
// the raw absolute tracker timestamp in microseconds; user events are not
// eye-specific and are not re-based onto the trial clock.
type Message struct {
	Time int64  `json:"time"`
	Text string `json:"text"`
}

// Trial holds the reconciled events of one trial, each list in ascending
// sequence order.
type Trial struct {
	Fixations []Fixation `json:"fixations"`
	Saccades  []Saccade  `json:"saccades"`
	Blinks    []Blink    `json:"blinks"`
	Messages  []Message  `json:"messages"`
}

// rawEvent is the numeric payload of one recognised event row before
// reconciliation. Timestamps are absolute tracker microseconds. The
// coordinate fields are only meaningful for the kinds that carry them.
type rawEvent struct {
	kind  EventKind
	side  EyeSide
	trial int
	seq   int

	start    int64
	end      int64
	duration int64

	// Fixation: x,y = location. Saccade: x,y = start location,
	// endX,endY = end location.
	x, y       float64
	endX, endY float64
}

// eyeBuffer maps sequence number to the raw row for one eye and kind.
// Sequence numbers are only unique within a single eye+kind+trial scope.
type eyeBuffer map[int]rawEvent

// trialBuffers accumulates the rows of the currently open trial. Exactly one
// set is live at a time; it is consumed and replaced wholesale at flush.
type trialBuffers struct {
	fixations [2]eyeBuffer
	saccades  [2]eyeBuffer
	blinks    [2]eyeBuffer
	messages  []Message
}

func newTrialBuffers() *trialBuffers {
	return &trialBuffers{
		fixations: [2]eyeBuffer{{}, {}},
		saccades:  [2]eyeBuffer{{}, {}},
		blinks:    [2]eyeBuffer{{}, {}},
	}
}

func (b *trialBuffers) bufferFor(kind EventKind) *[2]eyeBuffer {
	switch kind {
	case FixationEvent:
		return &b.fixations
	case SaccadeEvent:
		return &b.saccades
	default:
		return &b.blinks
	}
}

func (b *trialBuffers) add(ev rawEvent) {
	b.bufferFor(ev.kind)[ev.side][ev.seq] = ev
}

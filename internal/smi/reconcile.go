package smi

import "sort"

// decision is the outcome of the eye-selection policy for one sequence
// number.
type decision int

const (
	skipEvent decision = iota
	useLeft
	useRight
	blendSides
)

// resolve is the single policy shared by all event kinds. Given which sides
// recorded the event and the configured mode, it decides whether the event is
// kept, and from which side(s).
//
// Blinks are never blended: a blink both eyes recorded is dropped under
// Average and StrictAverage alike, since no averaging is defined for them.
func resolve(mode Mode, kind EventKind, leftOK, rightOK bool) decision {
	if !leftOK && !rightOK {
		return skipEvent
	}

	switch mode {
	case LeftOnly:
		if leftOK {
			return useLeft
		}
	case RightOnly:
		if rightOK {
			return useRight
		}
	case Average:
		if leftOK && rightOK {
			if kind == BlinkEvent {
				return skipEvent
			}
			return blendSides
		}
		if leftOK {
			return useLeft
		}
		return useRight
	case StrictAverage:
		if leftOK && rightOK {
			if kind == BlinkEvent {
				return skipEvent
			}
			return blendSides
		}
	}
	return skipEvent
}

// unionKeys returns the ascending union of both buffers' sequence numbers.
// A key missing from one side means that eye never recorded the event; the
// policy decides whether the row survives.
func unionKeys(left, right eyeBuffer) []int {
	keys := make([]int, 0, len(left)+len(right))
	for k := range left {
		keys = append(keys, k)
	}
	for k := range right {
		if _, ok := left[k]; !ok {
			keys = append(keys, k)
		}
	}
	sort.Ints(keys)
	return keys
}

// timing re-bases an event's clock onto the trial origin and converts from
// tracker microseconds to milliseconds. Positions are untouched.
func timing(origin int64, ev rawEvent) (start, end, duration float64) {
	return float64(ev.start-origin) / 1000.0,
		float64(ev.end-origin) / 1000.0,
		float64(ev.duration) / 1000.0
}

// pick resolves one sequence number into the authoritative-timing event and
// the blend partner (nil unless both sides are kept).
//
// When both eyes recorded the event, the left eye's start, end and duration
// win and are never averaged; only coordinates blend. When a single eye
// recorded it, that eye's timing is used as-is. This asymmetry matches the
// converter's historical output and is pinned by tests.
func pick(mode Mode, kind EventKind, left, right eyeBuffer, seq int) (primary rawEvent, partner *rawEvent, ok bool) {
	l, leftOK := left[seq]
	r, rightOK := right[seq]

	switch resolve(mode, kind, leftOK, rightOK) {
	case useLeft:
		return l, nil, true
	case useRight:
		return r, nil, true
	case blendSides:
		return l, &r, true
	}
	return rawEvent{}, nil, false
}

func mergeFixations(mode Mode, origin int64, bufs [2]eyeBuffer) []Fixation {
	out := []Fixation{}
	for _, seq := range unionKeys(bufs[LeftEye], bufs[RightEye]) {
		ev, partner, ok := pick(mode, FixationEvent, bufs[LeftEye], bufs[RightEye], seq)
		if !ok {
			continue
		}
		start, end, duration := timing(origin, ev)
		f := Fixation{Start: start, End: end, Duration: duration, X: ev.x, Y: ev.y}
		if partner != nil {
			f.X = (ev.x + partner.x) / 2
			f.Y = (ev.y + partner.y) / 2
		}
		out = append(out, f)
	}
	return out
}

func mergeSaccades(mode Mode, origin int64, bufs [2]eyeBuffer) []Saccade {
	out := []Saccade{}
	for _, seq := range unionKeys(bufs[LeftEye], bufs[RightEye]) {
		ev, partner, ok := pick(mode, SaccadeEvent, bufs[LeftEye], bufs[RightEye], seq)
		if !ok {
			continue
		}
		start, end, duration := timing(origin, ev)
		s := Saccade{
			Start: start, End: end, Duration: duration,
			StartX: ev.x, StartY: ev.y, EndX: ev.endX, EndY: ev.endY,
		}
		if partner != nil {
			s.StartX = (ev.x + partner.x) / 2
			s.StartY = (ev.y + partner.y) / 2
			s.EndX = (ev.endX + partner.endX) / 2
			s.EndY = (ev.endY + partner.endY) / 2
		}
		out = append(out, s)
	}
	return out
}

func mergeBlinks(mode Mode, origin int64, bufs [2]eyeBuffer) []Blink {
	out := []Blink{}
	for _, seq := range unionKeys(bufs[LeftEye], bufs[RightEye]) {
		ev, _, ok := pick(mode, BlinkEvent, bufs[LeftEye], bufs[RightEye], seq)
		if !ok {
			continue
		}
		start, end, duration := timing(origin, ev)
		out = append(out, Blink{Start: start, End: end, Duration: duration})
	}
	return out
}

// reconcile consumes the trial's buffers and produces the final Trial. Event
// lists stay nil-safe: a kind with no surviving events yields an empty list,
// never an error.
func reconcile(mode Mode, origin int64, bufs *trialBuffers) Trial {
	msgs := bufs.messages
	if msgs == nil {
		msgs = []Message{}
	}
	return Trial{
		Fixations: mergeFixations(mode, origin, bufs.fixations),
		Saccades:  mergeSaccades(mode, origin, bufs.saccades),
		Blinks:    mergeBlinks(mode, origin, bufs.blinks),
		Messages:  msgs,
	}
}

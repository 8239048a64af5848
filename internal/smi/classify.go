package smi

import (
	"fmt"
	"strconv"
	"strings"
)

// rowClass is the classification of one tokenized input row.
type rowClass int

const (
	// rowEvent is a recognised eye event ("Fixation L", "Saccade R", ...).
	rowEvent rowClass = iota
	// rowUnknownEye has a known event kind but an eye suffix that is
	// neither L nor R. These rows contribute to no buffer.
	rowUnknownEye
	// rowOther is anything else: header lines, metadata, user events.
	rowOther
)

// Minimum token counts per kind, covering the fields we read. The converter
// emits more columns (dispersion, pupil size, amplitude, speeds); anything
// past these positions is ignored.
const (
	fixationMinFields = 8  // tag trial seq start end duration locX locY
	saccadeMinFields  = 10 // ... startX startY endX endY
	blinkMinFields    = 6  // tag trial seq start end duration
	messageMinFields  = 4  // tag trial time text
)

// classify determines whether a row's leading tag names a recognised eye
// event. Pure function of the first token.
func classify(tag string) (EventKind, EyeSide, rowClass) {
	var kind EventKind
	switch {
	case strings.HasPrefix(tag, "Fixation"):
		kind = FixationEvent
	case strings.HasPrefix(tag, "Saccade"):
		kind = SaccadeEvent
	case strings.HasPrefix(tag, "Blink"):
		kind = BlinkEvent
	default:
		return 0, 0, rowOther
	}

	switch {
	case strings.HasSuffix(tag, " L"):
		return kind, LeftEye, rowEvent
	case strings.HasSuffix(tag, " R"):
		return kind, RightEye, rowEvent
	}
	return kind, 0, rowUnknownEye
}

// splitLine tokenizes one raw line from the export. Fields are tab
// separated; stray carriage returns are stripped.
func splitLine(line string) []string {
	line = strings.TrimRight(line, "\r\n")
	return strings.Split(line, "\t")
}

// parseEvent converts a recognised row's tokens into a rawEvent. Any
// unparsable numeric field makes the whole row malformed; the caller skips
// it and carries on.
func parseEvent(kind EventKind, side EyeSide, tokens []string) (rawEvent, error) {
	min := blinkMinFields
	switch kind {
	case FixationEvent:
		min = fixationMinFields
	case SaccadeEvent:
		min = saccadeMinFields
	}
	if len(tokens) < min {
		return rawEvent{}, fmt.Errorf("%s %s row has %d fields, want at least %d", kind, side, len(tokens), min)
	}

	ev := rawEvent{kind: kind, side: side}

	ints := []struct {
		pos  int
		name string
		dst  *int64
	}{
		{3, "start", &ev.start},
		{4, "end", &ev.end},
		{5, "duration", &ev.duration},
	}

	var err error
	if ev.trial, err = strconv.Atoi(tokens[1]); err != nil {
		return rawEvent{}, fmt.Errorf("bad trial number %q: %v", tokens[1], err)
	}
	if ev.seq, err = strconv.Atoi(tokens[2]); err != nil {
		return rawEvent{}, fmt.Errorf("bad event number %q: %v", tokens[2], err)
	}
	for _, f := range ints {
		if *f.dst, err = strconv.ParseInt(tokens[f.pos], 10, 64); err != nil {
			return rawEvent{}, fmt.Errorf("bad %s %q: %v", f.name, tokens[f.pos], err)
		}
	}

	switch kind {
	case FixationEvent:
		if ev.x, err = strconv.ParseFloat(tokens[6], 64); err != nil {
			return rawEvent{}, fmt.Errorf("bad location x %q: %v", tokens[6], err)
		}
		if ev.y, err = strconv.ParseFloat(tokens[7], 64); err != nil {
			return rawEvent{}, fmt.Errorf("bad location y %q: %v", tokens[7], err)
		}
	case SaccadeEvent:
		floats := []struct {
			pos  int
			name string
			dst  *float64
		}{
			{6, "start x", &ev.x},
			{7, "start y", &ev.y},
			{8, "end x", &ev.endX},
			{9, "end y", &ev.endY},
		}
		for _, f := range floats {
			if *f.dst, err = strconv.ParseFloat(tokens[f.pos], 64); err != nil {
				return rawEvent{}, fmt.Errorf("bad %s %q: %v", f.name, tokens[f.pos], err)
			}
		}
	}

	return ev, nil
}

// parseMessage converts an unrecognised row seen inside an open trial into a
// user event. Layout: tag, trial number, time, description.
func parseMessage(tokens []string) (Message, int, error) {
	if len(tokens) < messageMinFields {
		return Message{}, 0, fmt.Errorf("user event row has %d fields, want at least %d", len(tokens), messageMinFields)
	}
	trial, err := strconv.Atoi(tokens[1])
	if err != nil {
		return Message{}, 0, fmt.Errorf("bad trial number %q: %v", tokens[1], err)
	}
	t, err := strconv.ParseInt(tokens[2], 10, 64)
	if err != nil {
		return Message{}, 0, fmt.Errorf("bad time %q: %v", tokens[2], err)
	}
	return Message{Time: t, Text: tokens[3]}, trial, nil
}

package smi

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"os"
)

// Options configures a parse. Nil StartTrial means capture begins at the
// first recognised row; nil StopTrial means only trial-number transitions
// (or end of input) close trials.
type Options struct {
	// StartTrial, when set, delays capture until a row's trial number
	// equals this value. If it never matches, the result is empty; that is
	// not an error.
	StartTrial *int

	// StopTrial, when set, forces a trial close when a row carries this
	// trial number. The matching row itself is discarded and capture
	// halts until the start rule matches again.
	StopTrial *int

	// Mode selects the eye reconciliation policy. The zero value is
	// Average.
	Mode Mode

	// Debug logs skipped and malformed rows.
	Debug bool
}

// parser is the single-pass segmenting state machine. At most one trial is
// open at a time; its buffers are consumed exactly once at flush.
type parser struct {
	opts Options
	emit func(Trial) error

	content bool // seen the first recognised event row
	active  bool
	trialID int
	origin  int64 // absolute start timestamp of the row that opened the trial
	bufs    *trialBuffers
}

// Scan reads the export from r and calls fn once per completed trial, in
// input order. It is the streaming form of Parse: one forward pass, no
// backtracking, buffers for a single trial held at a time. An error from fn
// aborts the scan.
func Scan(r io.Reader, opts Options, fn func(Trial) error) error {
	p := &parser{opts: opts, emit: fn, bufs: newTrialBuffers()}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		if err := p.processLine(sc.Text()); err != nil {
			return err
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("read events: %w", err)
	}

	// Input ended mid-trial: forced close, the partial trial still counts.
	if p.active {
		return p.flush()
	}
	return nil
}

// Parse reads the whole export and returns one Trial per delimited trial, in
// ascending input order.
func Parse(r io.Reader, opts Options) ([]Trial, error) {
	trials := []Trial{}
	err := Scan(r, opts, func(t Trial) error {
		trials = append(trials, t)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return trials, nil
}

// ParseFile opens path and parses it. A missing file is the only fatal
// condition; individual malformed rows are skipped.
func ParseFile(path string, opts Options) ([]Trial, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open events file: %w", err)
	}
	defer f.Close()

	trials, err := Parse(f, opts)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return trials, nil
}

func (p *parser) debugf(format string, args ...any) {
	if p.opts.Debug {
		log.Printf(format, args...)
	}
}

func (p *parser) processLine(line string) error {
	tokens := splitLine(line)
	if len(tokens) == 0 || tokens[0] == "" {
		return nil
	}

	kind, side, class := classify(tokens[0])

	// Header and metadata rows before the first recognised event are not
	// part of the data stream.
	if !p.content && class != rowEvent {
		return nil
	}

	switch class {
	case rowUnknownEye:
		p.debugf("smi: unknown eye ident %q, line ignored", tokens[0])
		return nil

	case rowOther:
		// Free-text user event. Only trial transitions on recognised
		// rows segment the stream, so these are captured verbatim
		// while a trial is open and dropped otherwise.
		if !p.active {
			return nil
		}
		msg, _, err := parseMessage(tokens)
		if err != nil {
			p.debugf("smi: skipping user event row: %v", err)
			return nil
		}
		p.bufs.messages = append(p.bufs.messages, msg)
		return nil
	}

	p.content = true

	ev, err := parseEvent(kind, side, tokens)
	if err != nil {
		p.debugf("smi: skipping malformed row: %v", err)
		return nil
	}

	if !p.active {
		if p.mayOpen(ev.trial) {
			p.open(ev)
			p.bufs.add(ev)
		}
		return nil
	}

	stopped := p.opts.StopTrial != nil && *p.opts.StopTrial == ev.trial
	changed := ev.trial != p.trialID

	if stopped || changed {
		if err := p.flush(); err != nil {
			return err
		}
		p.active = false
		if stopped {
			// Explicit stop: the matching row is discarded and
			// capture halts until the start rule matches again.
			return nil
		}
		// Plain trial-number transition: capture continues, the next
		// trial opens on this row with its start timestamp as the new
		// origin. The start filter is a begin-capture gate and is not
		// re-applied here.
		p.open(ev)
		p.bufs.add(ev)
		return nil
	}

	p.bufs.add(ev)
	return nil
}

func (p *parser) mayOpen(trial int) bool {
	return p.opts.StartTrial == nil || *p.opts.StartTrial == trial
}

func (p *parser) open(ev rawEvent) {
	p.active = true
	p.trialID = ev.trial
	p.origin = ev.start
	p.debugf("smi: trial %d opened at t=%d", ev.trial, ev.start)
}

// flush reconciles and emits the open trial, then resets all buffers. The
// consumed buffer set is never read again.
func (p *parser) flush() error {
	trial := reconcile(p.opts.Mode, p.origin, p.bufs)
	p.bufs = newTrialBuffers()
	p.debugf("smi: trial %d closed: %d fixations, %d saccades, %d blinks, %d messages",
		p.trialID, len(trial.Fixations), len(trial.Saccades), len(trial.Blinks), len(trial.Messages))
	return p.emit(trial)
}

// Package gazedb persists parsed gaze sessions to sqlite so analyses can be
// re-plotted and served without re-parsing the raw export.
package gazedb

import (
	"database/sql"
	_ "embed"
	"fmt"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/fovea-data/gaze.report/internal/smi"
)

//go:embed schema.sql
var schemaSQL string

type DB struct {
	*sql.DB
}

// Open opens (creating if needed) the gaze database at path and applies the
// embedded schema.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &DB{db}, nil
}

// Session describes one recorded parse of an events export. CreatedAt is
// the timestamp string sqlite stored (UTC, second resolution).
type Session struct {
	ID         string
	SourceFile string
	EyeMode    string
	StartTrial *int
	StopTrial  *int
	CreatedAt  string
	TrialCount int
}

// RecordSession stores a full parse result and returns the new session id.
// The whole session is written in one transaction; a failed write leaves no
// partial session behind.
func (db *DB) RecordSession(sourceFile string, opts smi.Options, trials []smi.Trial) (string, error) {
	tx, err := db.Begin()
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	id := uuid.NewString()
	_, err = tx.Exec(
		`INSERT INTO sessions (id, source_file, eye_mode, start_trial, stop_trial) VALUES (?, ?, ?, ?, ?)`,
		id, sourceFile, opts.Mode.String(), opts.StartTrial, opts.StopTrial,
	)
	if err != nil {
		return "", fmt.Errorf("insert session: %w", err)
	}

	for i, trial := range trials {
		res, err := tx.Exec(
			`INSERT INTO trials (session_id, trial_index) VALUES (?, ?)`, id, i)
		if err != nil {
			return "", fmt.Errorf("insert trial %d: %w", i, err)
		}
		trialID, err := res.LastInsertId()
		if err != nil {
			return "", err
		}
		if err := insertEvents(tx, trialID, trial); err != nil {
			return "", fmt.Errorf("insert trial %d events: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit session: %w", err)
	}
	return id, nil
}

func insertEvents(tx *sql.Tx, trialID int64, trial smi.Trial) error {
	for i, f := range trial.Fixations {
		if _, err := tx.Exec(
			`INSERT INTO fixations (trial_id, seq, start_ms, end_ms, duration_ms, x, y) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			trialID, i, f.Start, f.End, f.Duration, f.X, f.Y); err != nil {
			return err
		}
	}
	for i, s := range trial.Saccades {
		if _, err := tx.Exec(
			`INSERT INTO saccades (trial_id, seq, start_ms, end_ms, duration_ms, start_x, start_y, end_x, end_y) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			trialID, i, s.Start, s.End, s.Duration, s.StartX, s.StartY, s.EndX, s.EndY); err != nil {
			return err
		}
	}
	for i, b := range trial.Blinks {
		if _, err := tx.Exec(
			`INSERT INTO blinks (trial_id, seq, start_ms, end_ms, duration_ms) VALUES (?, ?, ?, ?, ?)`,
			trialID, i, b.Start, b.End, b.Duration); err != nil {
			return err
		}
	}
	for i, m := range trial.Messages {
		if _, err := tx.Exec(
			`INSERT INTO messages (trial_id, seq, time_us, text) VALUES (?, ?, ?, ?)`,
			trialID, i, m.Time, m.Text); err != nil {
			return err
		}
	}
	return nil
}

// Sessions lists recorded sessions, newest first.
func (db *DB) Sessions() ([]Session, error) {
	rows, err := db.Query(`
		SELECT s.id, s.source_file, s.eye_mode, s.start_trial, s.stop_trial, s.created_at,
		       (SELECT COUNT(*) FROM trials t WHERE t.session_id = s.id)
		FROM sessions s ORDER BY s.created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		var s Session
		var start, stop sql.NullInt64
		if err := rows.Scan(&s.ID, &s.SourceFile, &s.EyeMode, &start, &stop, &s.CreatedAt, &s.TrialCount); err != nil {
			return nil, err
		}
		if start.Valid {
			v := int(start.Int64)
			s.StartTrial = &v
		}
		if stop.Valid {
			v := int(stop.Int64)
			s.StopTrial = &v
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// SessionTrials reloads all trials of a session, in trial order with each
// event list in its original sequence order.
func (db *DB) SessionTrials(sessionID string) ([]smi.Trial, error) {
	rows, err := db.Query(
		`SELECT id FROM trials WHERE session_id = ? ORDER BY trial_index`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trialIDs []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		trialIDs = append(trialIDs, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	trials := make([]smi.Trial, 0, len(trialIDs))
	for _, id := range trialIDs {
		trial, err := db.loadTrial(id)
		if err != nil {
			return nil, fmt.Errorf("load trial %d: %w", id, err)
		}
		trials = append(trials, trial)
	}
	return trials, nil
}

func (db *DB) loadTrial(trialID int64) (smi.Trial, error) {
	trial := smi.Trial{
		Fixations: []smi.Fixation{},
		Saccades:  []smi.Saccade{},
		Blinks:    []smi.Blink{},
		Messages:  []smi.Message{},
	}

	rows, err := db.Query(
		`SELECT start_ms, end_ms, duration_ms, x, y FROM fixations WHERE trial_id = ? ORDER BY seq`, trialID)
	if err != nil {
		return trial, err
	}
	for rows.Next() {
		var f smi.Fixation
		if err := rows.Scan(&f.Start, &f.End, &f.Duration, &f.X, &f.Y); err != nil {
			rows.Close()
			return trial, err
		}
		trial.Fixations = append(trial.Fixations, f)
	}
	if err := closeRows(rows); err != nil {
		return trial, err
	}

	rows, err = db.Query(
		`SELECT start_ms, end_ms, duration_ms, start_x, start_y, end_x, end_y FROM saccades WHERE trial_id = ? ORDER BY seq`, trialID)
	if err != nil {
		return trial, err
	}
	for rows.Next() {
		var s smi.Saccade
		if err := rows.Scan(&s.Start, &s.End, &s.Duration, &s.StartX, &s.StartY, &s.EndX, &s.EndY); err != nil {
			rows.Close()
			return trial, err
		}
		trial.Saccades = append(trial.Saccades, s)
	}
	if err := closeRows(rows); err != nil {
		return trial, err
	}

	rows, err = db.Query(
		`SELECT start_ms, end_ms, duration_ms FROM blinks WHERE trial_id = ? ORDER BY seq`, trialID)
	if err != nil {
		return trial, err
	}
	for rows.Next() {
		var b smi.Blink
		if err := rows.Scan(&b.Start, &b.End, &b.Duration); err != nil {
			rows.Close()
			return trial, err
		}
		trial.Blinks = append(trial.Blinks, b)
	}
	if err := closeRows(rows); err != nil {
		return trial, err
	}

	rows, err = db.Query(
		`SELECT time_us, text FROM messages WHERE trial_id = ? ORDER BY seq`, trialID)
	if err != nil {
		return trial, err
	}
	for rows.Next() {
		var m smi.Message
		if err := rows.Scan(&m.Time, &m.Text); err != nil {
			rows.Close()
			return trial, err
		}
		trial.Messages = append(trial.Messages, m)
	}
	return trial, closeRows(rows)
}

func closeRows(rows *sql.Rows) error {
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	return rows.Close()
}

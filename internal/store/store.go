// Package store keeps a SQLite journal of exam sessions and grading attempts.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/pavelanni/examcoach/internal/model"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// Every connection to :memory: is a separate database.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS exam_sessions (
		id TEXT PRIMARY KEY,
		bank_id TEXT NOT NULL,
		started_at DATETIME NOT NULL,
		submitted_at DATETIME,
		score REAL NOT NULL DEFAULT 0,
		objective_marks REAL NOT NULL DEFAULT 0,
		progress REAL NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS grading_attempts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		triggered_by TEXT NOT NULL,
		backend TEXT NOT NULL DEFAULT '',
		variant TEXT NOT NULL DEFAULT '',
		essay TEXT NOT NULL DEFAULT '',
		topic TEXT NOT NULL DEFAULT '',
		display TEXT NOT NULL DEFAULT '',
		corrected_version TEXT,
		chinese_translation TEXT,
		model_essay TEXT,
		comparison TEXT,
		diagnostic INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL,
		FOREIGN KEY (session_id) REFERENCES exam_sessions(id)
	);

	CREATE INDEX IF NOT EXISTS idx_grading_attempts_session ON grading_attempts(session_id);

	CREATE TABLE IF NOT EXISTS exam_metadata (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL DEFAULT ''
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// UpsertSession inserts or updates the journal row of a session.
func (s *Store) UpsertSession(ctx context.Context, sess model.SessionSummary) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO exam_sessions (id, bank_id, started_at, submitted_at, score, objective_marks, progress)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET submitted_at = excluded.submitted_at, score = excluded.score,
		   objective_marks = excluded.objective_marks, progress = excluded.progress`,
		sess.ID, sess.BankID, sess.StartedAt, sess.SubmittedAt, sess.Score, sess.ObjectiveMarks, sess.Progress,
	)
	return err
}

// GetSession returns a session by ID.
func (s *Store) GetSession(id string) (model.SessionSummary, error) {
	var sess model.SessionSummary
	err := s.db.QueryRow(
		`SELECT id, bank_id, started_at, submitted_at, score, objective_marks, progress FROM exam_sessions WHERE id = ?`, id,
	).Scan(&sess.ID, &sess.BankID, &sess.StartedAt, &sess.SubmittedAt, &sess.Score, &sess.ObjectiveMarks, &sess.Progress)
	return sess, err
}

// ListSessions returns all sessions, newest first.
func (s *Store) ListSessions() ([]model.SessionSummary, error) {
	rows, err := s.db.Query(
		`SELECT id, bank_id, started_at, submitted_at, score, objective_marks, progress
		 FROM exam_sessions ORDER BY started_at DESC, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var sessions []model.SessionSummary
	for rows.Next() {
		var sess model.SessionSummary
		if err := rows.Scan(&sess.ID, &sess.BankID, &sess.StartedAt, &sess.SubmittedAt, &sess.Score, &sess.ObjectiveMarks, &sess.Progress); err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

// RecordAttempt stores one completed grading pass.
func (s *Store) RecordAttempt(ctx context.Context, a model.GradingAttempt) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO grading_attempts (session_id, triggered_by, backend, variant, essay, topic, display,
		   corrected_version, chinese_translation, model_essay, comparison, diagnostic, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.SessionID, a.Trigger, a.Backend, a.Variant, a.Essay, a.Topic, a.Display,
		fieldValue(a.Fields, model.FieldCorrectedVersion),
		fieldValue(a.Fields, model.FieldChineseTranslation),
		fieldValue(a.Fields, model.FieldModelEssay),
		fieldValue(a.Fields, model.FieldComparison),
		a.Diagnostic, a.CreatedAt,
	)
	return err
}

// ListAttempts returns the grading history of a session in order.
func (s *Store) ListAttempts(sessionID string) ([]model.GradingAttempt, error) {
	rows, err := s.db.Query(
		`SELECT id, session_id, triggered_by, backend, variant, essay, topic, display,
		   corrected_version, chinese_translation, model_essay, comparison, diagnostic, created_at
		 FROM grading_attempts WHERE session_id = ? ORDER BY id`, sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var attempts []model.GradingAttempt
	for rows.Next() {
		var (
			a                                    model.GradingAttempt
			corrected, translation, essay, compa sql.NullString
		)
		if err := rows.Scan(&a.ID, &a.SessionID, &a.Trigger, &a.Backend, &a.Variant, &a.Essay, &a.Topic, &a.Display,
			&corrected, &translation, &essay, &compa, &a.Diagnostic, &a.CreatedAt); err != nil {
			return nil, err
		}
		a.Fields = make(map[model.FeedbackField]string)
		setField(a.Fields, model.FieldCorrectedVersion, corrected)
		setField(a.Fields, model.FieldChineseTranslation, translation)
		setField(a.Fields, model.FieldModelEssay, essay)
		setField(a.Fields, model.FieldComparison, compa)
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}

// AttemptCount returns the number of grading attempts in the journal.
func (s *Store) AttemptCount() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM grading_attempts`).Scan(&count)
	return count, err
}

// fieldValue maps an absent field to NULL so that absence survives a round trip.
func fieldValue(fields map[model.FeedbackField]string, name model.FeedbackField) sql.NullString {
	v, ok := fields[name]
	return sql.NullString{String: v, Valid: ok}
}

func setField(fields map[model.FeedbackField]string, name model.FeedbackField, v sql.NullString) {
	if v.Valid {
		fields[name] = v.String
	}
}

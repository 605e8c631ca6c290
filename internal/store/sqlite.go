package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/nhle/vrs-ingest/internal/model"
)

// SQLiteStore implements the Store interface using a local SQLite database.
type SQLiteStore struct {
	db *sqlx.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath,
// enables WAL mode, and runs any pending schema migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	// Enable foreign keys.
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (s *SQLiteStore) runMigrations() error {
	currentVersion := 0

	// Check if schema_version table exists.
	var tableCount int
	err := s.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// RecentSentMessages returns the most recently recorded outbound
// notification messages, newest first.
func (s *SQLiteStore) RecentSentMessages(ctx context.Context, limit int) ([]model.SentMessage, error) {
	const query = `
		SELECT id, report_id, recipient, message_id, subject, created_at
		FROM sent_messages
		ORDER BY rowid DESC
		LIMIT ?`

	var out []model.SentMessage
	if err := s.db.SelectContext(ctx, &out, query, limit); err != nil {
		return nil, fmt.Errorf("querying sent messages: %w", err)
	}
	return out, nil
}

// RecentReports returns the most recently created reports, newest first.
func (s *SQLiteStore) RecentReports(ctx context.Context, limit int) ([]model.Report, error) {
	const query = `
		SELECT id, title, severity, status, assignee_email, created_at
		FROM reports
		ORDER BY rowid DESC
		LIMIT ?`

	var out []model.Report
	if err := s.db.SelectContext(ctx, &out, query, limit); err != nil {
		return nil, fmt.Errorf("querying reports: %w", err)
	}
	return out, nil
}

// GetReportByID returns the report with the given identifier, or nil if
// no such report exists.
func (s *SQLiteStore) GetReportByID(ctx context.Context, id string) (*model.Report, error) {
	const query = `
		SELECT id, title, severity, status, assignee_email, created_at
		FROM reports
		WHERE id = ?`

	var r model.Report
	err := s.db.GetContext(ctx, &r, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying report %s: %w", id, err)
	}
	return &r, nil
}

// AssignmentsForReport returns all assignments for a report in creation
// order, oldest first.
func (s *SQLiteStore) AssignmentsForReport(ctx context.Context, reportID string) ([]model.Assignment, error) {
	const query = `
		SELECT id, report_id, assignee_name, assignee_email, assigned_at, created_at
		FROM report_assignments
		WHERE report_id = ?
		ORDER BY rowid ASC`

	var out []model.Assignment
	if err := s.db.SelectContext(ctx, &out, query, reportID); err != nil {
		return nil, fmt.Errorf("querying assignments for report %s: %w", reportID, err)
	}
	return out, nil
}

// FeedbackExists reports whether a feedback row already references the
// given inbound Message-ID.
func (s *SQLiteStore) FeedbackExists(ctx context.Context, messageID string) (bool, error) {
	var count int
	err := s.db.GetContext(ctx, &count,
		"SELECT COUNT(*) FROM report_feedbacks WHERE message_id = ?", messageID)
	if err != nil {
		return false, fmt.Errorf("checking feedback for message %s: %w", messageID, err)
	}
	return count > 0, nil
}

// InsertFeedback stores one harvested feedback row. A missing ID is
// filled with a fresh UUID.
func (s *SQLiteStore) InsertFeedback(ctx context.Context, fb model.Feedback) error {
	if fb.ID == "" {
		fb.ID = uuid.NewString()
	}

	const query = `
		INSERT INTO report_feedbacks (
			id, report_id, assignee_name, assignee_email,
			feedback_text, feedback_at, message_id
		) VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		fb.ID, fb.ReportID, fb.AssigneeName, fb.AssigneeEmail,
		fb.FeedbackText, fb.FeedbackAt, fb.MessageID)
	if err != nil {
		return fmt.Errorf("inserting feedback for report %s: %w", fb.ReportID, err)
	}
	return nil
}

// CreateReport inserts a report row. Used by the workflow side and by
// tests; the engine never writes reports.
func (s *SQLiteStore) CreateReport(ctx context.Context, r model.Report) error {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}

	const query = `
		INSERT INTO reports (id, title, severity, status, assignee_email, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		r.ID, r.Title, r.Severity, r.Status, r.AssigneeEmail, r.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting report %s: %w", r.ID, err)
	}
	return nil
}

// CreateAssignment inserts an assignment row and returns its identifier.
func (s *SQLiteStore) CreateAssignment(ctx context.Context, a model.Assignment) (string, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}

	const query = `
		INSERT INTO report_assignments (
			id, report_id, assignee_name, assignee_email, assigned_at, created_at
		) VALUES (?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		a.ID, a.ReportID, a.AssigneeName, a.AssigneeEmail, a.AssignedAt, a.CreatedAt)
	if err != nil {
		return "", fmt.Errorf("inserting assignment for report %s: %w", a.ReportID, err)
	}
	return a.ID, nil
}

// RecordSentMessage inserts an outbound-message tracking row and returns
// its identifier.
func (s *SQLiteStore) RecordSentMessage(ctx context.Context, sm model.SentMessage) (string, error) {
	if sm.ID == "" {
		sm.ID = uuid.NewString()
	}
	if sm.CreatedAt.IsZero() {
		sm.CreatedAt = time.Now().UTC()
	}

	const query = `
		INSERT INTO sent_messages (id, report_id, recipient, message_id, subject, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		sm.ID, sm.ReportID, sm.Recipient, sm.MessageID, sm.Subject, sm.CreatedAt)
	if err != nil {
		return "", fmt.Errorf("inserting sent message %s: %w", sm.MessageID, err)
	}
	return sm.ID, nil
}

// FeedbackForReport returns all feedback rows for a report, newest first.
func (s *SQLiteStore) FeedbackForReport(ctx context.Context, reportID string) ([]model.Feedback, error) {
	const query = `
		SELECT id, report_id, assignee_name, assignee_email,
		       feedback_text, feedback_at, message_id
		FROM report_feedbacks
		WHERE report_id = ?
		ORDER BY feedback_at DESC`

	var out []model.Feedback
	if err := s.db.SelectContext(ctx, &out, query, reportID); err != nil {
		return nil, fmt.Errorf("querying feedback for report %s: %w", reportID, err)
	}
	return out, nil
}

// DeleteFeedbackForReport removes all feedback for a report. Called by
// the resolution workflow when a report is closed out.
func (s *SQLiteStore) DeleteFeedbackForReport(ctx context.Context, reportID string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM report_feedbacks WHERE report_id = ?", reportID)
	if err != nil {
		return 0, fmt.Errorf("deleting feedback for report %s: %w", reportID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting deleted feedback rows: %w", err)
	}
	return n, nil
}

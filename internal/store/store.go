package store

import (
	"context"

	"github.com/nhle/vrs-ingest/internal/model"
)

// Store defines the persistence interface shared by the ingestion engine
// and the surrounding reporting system. The engine itself only reads
// reports, assignments, and sent messages; feedback rows are its only
// writes. The remaining operations exist for the workflow side (report
// creation, assignment, outbound-mail tracking, resolution cleanup) and
// for the operator surface.
type Store interface {
	// === Engine reads ===

	RecentSentMessages(ctx context.Context, limit int) ([]model.SentMessage, error)
	RecentReports(ctx context.Context, limit int) ([]model.Report, error)
	GetReportByID(ctx context.Context, id string) (*model.Report, error)
	AssignmentsForReport(ctx context.Context, reportID string) ([]model.Assignment, error)
	FeedbackExists(ctx context.Context, messageID string) (bool, error)

	// === Engine write ===

	InsertFeedback(ctx context.Context, fb model.Feedback) error

	// === Workflow / operator side ===

	CreateReport(ctx context.Context, r model.Report) error
	CreateAssignment(ctx context.Context, a model.Assignment) (string, error)
	RecordSentMessage(ctx context.Context, sm model.SentMessage) (string, error)
	FeedbackForReport(ctx context.Context, reportID string) ([]model.Feedback, error)
	DeleteFeedbackForReport(ctx context.Context, reportID string) (int64, error)

	Close() error
}

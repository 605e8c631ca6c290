package model

import "time"

// Report statuses as stored by the reporting system. The engine only
// inspects Status; everything else on a Report is owned externally.
const (
	StatusOpen       = "Open"
	StatusInProgress = "In Progress"
	StatusResolved   = "Resolved"
)

// Report is a vulnerability report. Read-only from the engine's
// perspective: it gates ingestion (Resolved reports accept no feedback)
// and anchors correlation via its 24-hex identifier.
type Report struct {
	ID            string    `db:"id"`
	Title         string    `db:"title"`
	Severity      string    `db:"severity"`
	Status        string    `db:"status"`
	AssigneeEmail string    `db:"assignee_email"`
	CreatedAt     time.Time `db:"created_at"`
}

// Assignment records who a report is (or was) assigned to. The assignment
// with the latest AssignedAt is the current one; ties go to the record
// created last.
type Assignment struct {
	ID            string    `db:"id"`
	ReportID      string    `db:"report_id"`
	AssigneeName  string    `db:"assignee_name"`
	AssigneeEmail string    `db:"assignee_email"`
	AssignedAt    time.Time `db:"assigned_at"`
	CreatedAt     time.Time `db:"created_at"`
}

// SentMessage records an outbound notification email, keyed by the
// protocol-level Message-ID so inbound replies can be matched via their
// In-Reply-To / References headers.
type SentMessage struct {
	ID        string    `db:"id"`
	ReportID  string    `db:"report_id"`
	Recipient string    `db:"recipient"`
	MessageID string    `db:"message_id"`
	Subject   string    `db:"subject"`
	CreatedAt time.Time `db:"created_at"`
}

// Feedback is the engine's sole durable output: one assignee's free-text
// remediation update on a report, harvested from a mailbox reply.
// MessageID, when present, is the dedup key.
type Feedback struct {
	ID            string    `db:"id"`
	ReportID      string    `db:"report_id"`
	AssigneeName  string    `db:"assignee_name"`
	AssigneeEmail string    `db:"assignee_email"`
	FeedbackText  string    `db:"feedback_text"`
	FeedbackAt    time.Time `db:"feedback_at"`
	MessageID     string    `db:"message_id"`
}

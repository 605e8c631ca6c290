package store

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of schema migrations.
// Each migration's version must be sequential starting from 1.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS reports (
	id             TEXT PRIMARY KEY,
	title          TEXT NOT NULL,
	severity       TEXT NOT NULL DEFAULT 'low',
	status         TEXT NOT NULL DEFAULT 'Open',
	assignee_email TEXT NOT NULL DEFAULT '',
	created_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS report_assignments (
	id             TEXT PRIMARY KEY,
	report_id      TEXT NOT NULL REFERENCES reports(id),
	assignee_name  TEXT NOT NULL DEFAULT '',
	assignee_email TEXT NOT NULL DEFAULT '',
	assigned_at    DATETIME,
	created_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS sent_messages (
	id         TEXT PRIMARY KEY,
	report_id  TEXT NOT NULL,
	recipient  TEXT NOT NULL DEFAULT '',
	message_id TEXT NOT NULL,
	subject    TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS report_feedbacks (
	id             TEXT PRIMARY KEY,
	report_id      TEXT NOT NULL,
	assignee_name  TEXT NOT NULL DEFAULT '',
	assignee_email TEXT NOT NULL DEFAULT '',
	feedback_text  TEXT NOT NULL,
	feedback_at    DATETIME NOT NULL,
	message_id     TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_assignments_report_id ON report_assignments(report_id);
CREATE INDEX IF NOT EXISTS idx_sent_messages_message_id ON sent_messages(message_id);
CREATE INDEX IF NOT EXISTS idx_feedbacks_report_id ON report_feedbacks(report_id);
CREATE INDEX IF NOT EXISTS idx_feedbacks_message_id ON report_feedbacks(message_id);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
}

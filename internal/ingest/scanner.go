package ingest

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/nhle/vrs-ingest/internal/mailbox"
	"github.com/nhle/vrs-ingest/internal/model"
	"github.com/nhle/vrs-ingest/internal/store"
)

// candidateSeedLimit bounds how many recent sent messages and reports
// seed the targeted candidate search. Older threads are only found via
// the blanket unseen fallback.
const candidateSeedLimit = 200

// MailboxSession is the per-scan mailbox surface the scanner drives. A
// session is owned by exactly one run and used sequentially.
type MailboxSession interface {
	SearchHeader(field, value string) ([]uint32, error)
	SearchSubject(token string) ([]uint32, error)
	SearchUnseen() ([]uint32, error)
	SearchAll() ([]uint32, error)
	FetchHeaders(seq uint32) (*mailbox.Headers, error)
	FetchMessage(seq uint32) (*mailbox.Message, error)
	MarkSeen(seq uint32) error
	Close() error
}

// Dialer establishes a fresh mailbox session for one scan.
type Dialer interface {
	Connect(ctx context.Context) (MailboxSession, error)
}

// DialFunc adapts a function to the Dialer interface.
type DialFunc func(ctx context.Context) (MailboxSession, error)

// Connect calls f.
func (f DialFunc) Connect(ctx context.Context) (MailboxSession, error) {
	return f(ctx)
}

// Scanner orchestrates one ingestion run: seed a candidate set, gate each
// candidate on headers alone, fetch surviving bodies, correlate, and
// insert feedback rows. Every visited candidate is flagged seen whatever
// the outcome, so no message is ever reconsidered.
type Scanner struct {
	store    store.Store
	dial     Dialer
	cfg      *model.Config
	resolver *Resolver
	logger   *slog.Logger
}

// NewScanner creates a Scanner. logger may be nil.
func NewScanner(st store.Store, dial Dialer, cfg *model.Config, logger *slog.Logger) *Scanner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scanner{
		store:    st,
		dial:     dial,
		cfg:      cfg,
		resolver: NewResolver(st, cfg.RequireAssignee),
		logger:   logger,
	}
}

// Run performs a single ingestion scan and returns the feedback rows it
// inserted. A failure to establish the session is fatal; a failure on any
// single candidate is logged and skipped. Run is not safe for concurrent
// use against the same mailbox; callers serialize runs.
func (s *Scanner) Run(ctx context.Context, includeSeen bool) ([]model.Feedback, error) {
	if !s.cfg.HasCredentials() {
		return nil, &ConfigError{Message: "IMAP credentials not configured (EMAIL_IMAP_HOST/USER/PASS)"}
	}

	sess, err := s.dial.Connect(ctx)
	if err != nil {
		return nil, &TransportError{Op: "connect", Err: err}
	}
	defer func() { _ = sess.Close() }()

	candidates := s.candidateSet(ctx, sess, includeSeen)
	s.logger.Debug("Scan candidate set built", "candidates", len(candidates))

	var inserted []model.Feedback
	for _, seq := range candidates {
		fb := s.processCandidate(ctx, sess, seq, includeSeen)
		if fb != nil {
			inserted = append(inserted, *fb)
		}
	}

	return inserted, nil
}

// candidateSet builds the ordered list of sequence numbers to visit.
// Targeted searches (reply headers, subject tokens) come first; only when
// they find nothing does the scan fall back to a blanket search.
func (s *Scanner) candidateSet(ctx context.Context, sess MailboxSession, includeSeen bool) []uint32 {
	set := make(map[uint32]struct{})
	add := func(nums []uint32) {
		for _, n := range nums {
			set[n] = struct{}{}
		}
	}

	sent, err := s.store.RecentSentMessages(ctx, candidateSeedLimit)
	if err != nil {
		s.logger.Warn("Sent-message candidate seed failed", "error", err)
	}
	for _, sm := range sent {
		if sm.MessageID == "" {
			continue
		}
		for _, field := range []string{"In-Reply-To", "References"} {
			nums, err := sess.SearchHeader(field, sm.MessageID)
			if err != nil {
				s.logger.Debug("Header search failed", "field", field, "error", err)
				continue
			}
			add(nums)
		}
	}

	reports, err := s.store.RecentReports(ctx, candidateSeedLimit)
	if err != nil {
		s.logger.Warn("Report candidate seed failed", "error", err)
	}
	for _, r := range reports {
		nums, err := sess.SearchSubject(r.ID)
		if err != nil {
			s.logger.Debug("Subject search failed", "report", r.ID, "error", err)
			continue
		}
		add(nums)
	}

	if len(set) == 0 {
		var nums []uint32
		if includeSeen {
			nums, err = sess.SearchAll()
		} else {
			nums, err = sess.SearchUnseen()
		}
		if err != nil {
			s.logger.Warn("Blanket search failed", "include_seen", includeSeen, "error", err)
			return nil
		}
		add(nums)
	}

	seqs := make([]uint32, 0, len(set))
	for n := range set {
		seqs = append(seqs, n)
	}
	slices.Sort(seqs)
	return seqs
}

// processCandidate runs the gates over one message and inserts a feedback
// row when every gate passes. The message is flagged seen on every path.
func (s *Scanner) processCandidate(ctx context.Context, sess MailboxSession, seq uint32, includeSeen bool) *model.Feedback {
	skip := func(reason string, err error) *model.Feedback {
		s.logger.Debug("Candidate skipped", "seq", seq, "reason", reason, "error", err)
		s.markSeen(sess, seq)
		return nil
	}

	hdr, err := sess.FetchHeaders(seq)
	if err != nil {
		return skip("header_fetch_failed", err)
	}

	// Processed gate: a message flagged seen was either handled by an
	// earlier scan or read by a human. Without a Message-ID the seen
	// flag is the only duplicate guard, so targeted candidates honor it
	// unless the run explicitly includes seen mail.
	if hdr.Seen && !includeSeen {
		s.logger.Debug("Candidate already processed", "seq", seq)
		return nil
	}

	// Address gate: only ingest mail sent to the application's mailbox.
	// Guards against the IMAP credentials pointing at a personal inbox.
	if s.cfg.AppAddress != "" {
		recipients := strings.ToLower(hdr.To + " " + hdr.Cc)
		if !strings.Contains(recipients, s.cfg.AppAddress) {
			return skip(string(RejectNotAddressedToApp), nil)
		}
	}

	// Dedup gate: one feedback row per inbound Message-ID.
	if hdr.MessageID != "" {
		exists, err := s.store.FeedbackExists(ctx, hdr.MessageID)
		if err != nil {
			return skip("dedup_check_failed", err)
		}
		if exists {
			return skip(string(RejectAlreadyIngested), nil)
		}
	}

	// Relevance gate: a report-reference header or a report token in the
	// subject, before paying for the body. Referencing one of our
	// Message-IDs is deliberately not sufficient on its own.
	headerToken := ReportToken(hdr.ReportRef)
	if headerToken == "" && ReportToken(hdr.Subject) == "" {
		return skip(string(RejectNoReportReference), nil)
	}

	msg, err := sess.FetchMessage(seq)
	if err != nil {
		return skip("body_fetch_failed", err)
	}

	// Re-derive the token from the full message: the custom header wins,
	// then the subject, then a scan of the body text.
	token := ReportToken(msg.ReportRef)
	if token == "" {
		token = ReportToken(msg.Subject)
	}
	if token == "" {
		token = ReportToken(msg.Body)
	}
	if token == "" {
		token = headerToken
	}

	from := msg.From
	if from == "" {
		from = hdr.From
	}
	senderEmail, senderName := ParseSender(from)

	text := ExtractReply(msg.Body)
	if text == "" {
		return skip(string(RejectEmptyReplyText), nil)
	}

	feedbackAt := msg.Date
	if feedbackAt.IsZero() {
		feedbackAt = hdr.Date
	}
	if feedbackAt.IsZero() {
		feedbackAt = time.Now().UTC()
	}

	report, err := s.resolver.Resolve(ctx, token, senderEmail)
	if err != nil {
		if rej, ok := AsRejection(err); ok {
			return skip(string(rej.Reason), nil)
		}
		return skip("resolve_failed", err)
	}

	fb := model.Feedback{
		ReportID:      report.ID,
		AssigneeName:  senderName,
		AssigneeEmail: senderEmail,
		FeedbackText:  text,
		FeedbackAt:    feedbackAt,
		MessageID:     hdr.MessageID,
	}

	if err := s.store.InsertFeedback(ctx, fb); err != nil {
		// At-most-one-attempt: the message is still flagged seen, so a
		// lost insert is not retried by a later scan.
		s.logger.Error("Feedback insert failed", "seq", seq, "report", report.ID, "error", err)
		s.markSeen(sess, seq)
		return nil
	}

	s.logger.Info("Feedback ingested",
		"seq", seq, "report", report.ID, "assignee", senderEmail)
	s.markSeen(sess, seq)
	return &fb
}

func (s *Scanner) markSeen(sess MailboxSession, seq uint32) {
	if err := sess.MarkSeen(seq); err != nil {
		s.logger.Warn("Marking message seen failed", "seq", seq, "error", err)
	}
}

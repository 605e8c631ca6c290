package ingest

import (
	"context"
	"fmt"
	"strings"

	"github.com/nhle/vrs-ingest/internal/model"
	"github.com/nhle/vrs-ingest/internal/store"
)

// Resolver binds an inbound message to exactly one report and verifies
// the sender is that report's authorized current assignee. This is the
// anti-spoofing gate: a report identifier alone is not enough to inject
// feedback once the report has a known assignee.
type Resolver struct {
	store store.Store

	// requireAssignee rejects reports with no resolvable assignee email
	// instead of accepting any sender for them.
	requireAssignee bool
}

// NewResolver creates a Resolver backed by the given store.
func NewResolver(s store.Store, requireAssignee bool) *Resolver {
	return &Resolver{store: s, requireAssignee: requireAssignee}
}

// Resolve validates the report token and sender. It returns the report
// on acceptance; otherwise a *Rejection, or a wrapped store error.
func (r *Resolver) Resolve(ctx context.Context, token, senderEmail string) (*model.Report, error) {
	if token == "" {
		return nil, &Rejection{Reason: RejectNoReportReference}
	}

	report, err := r.store.GetReportByID(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("looking up report %s: %w", token, err)
	}
	if report == nil {
		return nil, &Rejection{Reason: RejectUnknownReport}
	}

	// Resolved reports accept no further feedback; a stale or replayed
	// reply must not reopen history.
	if strings.EqualFold(strings.TrimSpace(report.Status), model.StatusResolved) {
		return nil, &Rejection{Reason: RejectReportClosed}
	}

	assignments, err := r.store.AssignmentsForReport(ctx, report.ID)
	if err != nil {
		return nil, fmt.Errorf("looking up assignments for report %s: %w", report.ID, err)
	}

	expected := currentAssigneeEmail(assignments)
	if expected == "" {
		expected = report.AssigneeEmail
	}

	if expected == "" {
		if r.requireAssignee {
			return nil, &Rejection{Reason: RejectSenderNotAssignee}
		}
		// Never formally assigned; accept on the token alone.
		return report, nil
	}

	if senderEmail == "" || !strings.EqualFold(senderEmail, expected) {
		return nil, &Rejection{Reason: RejectSenderNotAssignee}
	}

	return report, nil
}

// currentAssigneeEmail selects the assignment with the latest AssignedAt
// timestamp, ties going to the record created last.
func currentAssigneeEmail(assignments []model.Assignment) string {
	var current *model.Assignment
	for i := range assignments {
		a := &assignments[i]
		if current == nil || !a.AssignedAt.Before(current.AssignedAt) {
			current = a
		}
	}
	if current == nil {
		return ""
	}
	return current.AssigneeEmail
}

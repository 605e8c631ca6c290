package ingest

import (
	"errors"
	"fmt"
)

// ConfigError indicates the engine cannot run at all because mailbox
// credentials are missing. No session is attempted.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error: %s", e.Message)
}

// IsConfigError reports whether err (or any error in its chain) is a ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// TransportError indicates the mailbox session could not be established
// or a session-scoped command failed. Fatal for the run; retry policy
// belongs to the caller.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error (%s): %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// IsTransportError reports whether err (or any error in its chain) is a
// TransportError.
func IsTransportError(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// RejectReason classifies why a candidate message was not ingested.
type RejectReason string

const (
	RejectNoReportReference RejectReason = "no_report_reference"
	RejectUnknownReport     RejectReason = "unknown_report"
	RejectReportClosed      RejectReason = "report_closed"
	RejectSenderNotAssignee RejectReason = "sender_not_assignee"
	RejectEmptyReplyText    RejectReason = "empty_reply_text"
	RejectAlreadyIngested   RejectReason = "already_ingested"
	RejectNotAddressedToApp RejectReason = "not_addressed_to_app"
)

// Rejection is the non-fatal outcome of a gate: the candidate is skipped
// and flagged processed, and the scan continues.
type Rejection struct {
	Reason RejectReason
}

func (e *Rejection) Error() string {
	return fmt.Sprintf("rejected: %s", e.Reason)
}

// AsRejection extracts a Rejection from err's chain.
func AsRejection(err error) (*Rejection, bool) {
	var r *Rejection
	ok := errors.As(err, &r)
	return r, ok
}

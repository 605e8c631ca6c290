package mailbox

import (
	"fmt"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
)

// headerFields is the header set fetched before a message's body is
// considered worth downloading. ReportRefHeader carries the report
// identifier stamped onto outbound notifications.
var headerFields = []string{
	"To", "Cc", "Subject", "Message-Id", "In-Reply-To",
	"References", "Date", "From", ReportRefHeader,
}

// Session is a single authenticated IMAP session with a folder selected.
// One scan owns one session; sessions are not safe for concurrent use.
type Session struct {
	client *imapclient.Client
}

// SearchHeader returns the sequence numbers of messages whose named
// header equals value.
func (s *Session) SearchHeader(field, value string) ([]uint32, error) {
	criteria := &imap.SearchCriteria{
		Header: []imap.SearchCriteriaHeaderField{{Key: field, Value: value}},
	}
	data, err := s.client.Search(criteria, nil).Wait()
	if err != nil {
		return nil, fmt.Errorf("searching header %s: %w", field, err)
	}
	return data.AllSeqNums(), nil
}

// SearchSubject returns the sequence numbers of messages whose subject
// contains token.
func (s *Session) SearchSubject(token string) ([]uint32, error) {
	criteria := &imap.SearchCriteria{
		Header: []imap.SearchCriteriaHeaderField{{Key: "Subject", Value: token}},
	}
	data, err := s.client.Search(criteria, nil).Wait()
	if err != nil {
		return nil, fmt.Errorf("searching subject: %w", err)
	}
	return data.AllSeqNums(), nil
}

// SearchUnseen returns the sequence numbers of all unread messages.
func (s *Session) SearchUnseen() ([]uint32, error) {
	criteria := &imap.SearchCriteria{
		NotFlag: []imap.Flag{imap.FlagSeen},
	}
	data, err := s.client.Search(criteria, nil).Wait()
	if err != nil {
		return nil, fmt.Errorf("searching unseen: %w", err)
	}
	return data.AllSeqNums(), nil
}

// SearchAll returns the sequence numbers of every message in the folder.
func (s *Session) SearchAll() ([]uint32, error) {
	data, err := s.client.Search(&imap.SearchCriteria{}, nil).Wait()
	if err != nil {
		return nil, fmt.Errorf("searching all: %w", err)
	}
	return data.AllSeqNums(), nil
}

// FetchHeaders fetches only the gate-relevant header fields of a message
// without marking it seen.
func (s *Session) FetchHeaders(seq uint32) (*Headers, error) {
	section := &imap.FetchItemBodySection{
		Specifier:    imap.PartSpecifierHeader,
		HeaderFields: headerFields,
		Peek:         true,
	}
	raw, seen, err := s.fetchSection(seq, section)
	if err != nil {
		return nil, err
	}

	hdr, err := parseHeaders(raw)
	if err != nil {
		return nil, fmt.Errorf("parsing headers of message %d: %w", seq, err)
	}
	hdr.SeqNum = seq
	hdr.Seen = seen
	return hdr, nil
}

// FetchMessage fetches a message's complete headers and body, again
// without marking it seen; the scanner flags messages explicitly.
func (s *Session) FetchMessage(seq uint32) (*Message, error) {
	section := &imap.FetchItemBodySection{Peek: true}
	raw, seen, err := s.fetchSection(seq, section)
	if err != nil {
		return nil, err
	}

	msg, err := parseMessage(raw)
	if err != nil {
		return nil, fmt.Errorf("parsing message %d: %w", seq, err)
	}
	msg.SeqNum = seq
	msg.Seen = seen
	return msg, nil
}

// MarkSeen adds the \Seen flag so the message is never rescanned by the
// blanket fallback of a later run.
func (s *Session) MarkSeen(seq uint32) error {
	cmd := s.client.Store(imap.SeqSetNum(seq), &imap.StoreFlags{
		Op:     imap.StoreFlagsAdd,
		Silent: true,
		Flags:  []imap.Flag{imap.FlagSeen},
	}, nil)
	if err := cmd.Close(); err != nil {
		return fmt.Errorf("flagging message %d seen: %w", seq, err)
	}
	return nil
}

// Close logs out and releases the connection. Best effort; safe to call
// after a failed operation.
func (s *Session) Close() error {
	return s.client.Logout().Wait()
}

// fetchSection fetches a single body section of a single message along
// with its \Seen state.
func (s *Session) fetchSection(seq uint32, section *imap.FetchItemBodySection) ([]byte, bool, error) {
	opts := &imap.FetchOptions{
		Flags:       true,
		BodySection: []*imap.FetchItemBodySection{section},
	}

	cmd := s.client.Fetch(imap.SeqSetNum(seq), opts)
	defer cmd.Close()

	msg := cmd.Next()
	if msg == nil {
		return nil, false, fmt.Errorf("message %d not found", seq)
	}

	buf, err := msg.Collect()
	if err != nil {
		return nil, false, fmt.Errorf("collecting message %d: %w", seq, err)
	}

	raw := buf.FindBodySection(section)
	if raw == nil {
		return nil, false, fmt.Errorf("message %d: requested section missing", seq)
	}

	seen := false
	for _, flag := range buf.Flags {
		if flag == imap.FlagSeen {
			seen = true
			break
		}
	}

	if err := cmd.Close(); err != nil {
		return nil, false, fmt.Errorf("fetching message %d: %w", seq, err)
	}
	return raw, seen, nil
}

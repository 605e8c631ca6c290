package mailbox

import (
	"bufio"
	"bytes"
	"io"
	"strings"
	"time"

	"github.com/emersion/go-message"
	"github.com/emersion/go-message/mail"
	"github.com/emersion/go-message/textproto"
)

// ReportRefHeader is the custom header stamped onto outbound notification
// mail; replies that preserve it identify their report without any
// subject-line parsing.
const ReportRefHeader = "VRS-RID"

// Headers holds the gate-relevant header fields of one candidate message.
type Headers struct {
	SeqNum     uint32
	To         string
	Cc         string
	Subject    string
	MessageID  string
	InReplyTo  string
	References string
	From       string
	ReportRef  string

	// Date is the parsed Date header; zero when absent or unparseable.
	Date time.Time

	// Seen reports whether the message already carries the \Seen flag,
	// i.e. was processed by an earlier scan or read by a mail client.
	Seen bool
}

// Message is a candidate message with its full body fetched. Body holds
// the text/plain part; it is empty for multipart mail that has none, and
// holds the raw payload when MIME parsing fails outright.
type Message struct {
	Headers
	Body string
}

// parseHeaders decodes a raw header block into Headers.
func parseHeaders(raw []byte) (*Headers, error) {
	tp, err := textproto.ReadHeader(bufio.NewReader(bytes.NewReader(raw)))
	if err != nil {
		return nil, err
	}
	return headersFromMessage(message.Header{Header: tp}), nil
}

// parseMessage decodes a full RFC 5322 message: headers plus the
// text/plain body part. Multipart mail only yields its text/plain part;
// a multipart message without one keeps an empty body. Non-multipart
// mail yields whatever inline payload it has, and a structure the MIME
// reader cannot walk falls back to the undecoded payload.
func parseMessage(raw []byte) (*Message, error) {
	br := bufio.NewReader(bytes.NewReader(raw))
	tp, err := textproto.ReadHeader(br)
	if err != nil {
		return nil, err
	}

	h := message.Header{Header: tp}
	msg := &Message{Headers: *headersFromMessage(h)}
	multipart := strings.HasPrefix(
		strings.ToLower(strings.TrimSpace(h.Get("Content-Type"))), "multipart/")

	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		// Unparseable MIME structure; fall back to the undecoded payload.
		rest, readErr := io.ReadAll(br)
		if readErr != nil {
			return nil, readErr
		}
		msg.Body = string(rest)
		return msg, nil
	}
	defer mr.Close()

	var fallback string
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			// Broken part structure, e.g. a multipart content type with
			// no boundary: take the remaining undecoded payload.
			if rest, readErr := io.ReadAll(br); readErr == nil {
				fallback = string(rest)
			}
			break
		}

		ih, ok := part.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}

		body, readErr := io.ReadAll(part.Body)
		if readErr != nil {
			continue
		}

		contentType, _, _ := ih.ContentType()
		if strings.HasPrefix(contentType, "text/plain") {
			msg.Body = string(body)
			break
		}
		if !multipart && fallback == "" {
			fallback = string(body)
		}
	}
	if msg.Body == "" {
		msg.Body = fallback
	}

	return msg, nil
}

// headersFromMessage projects a parsed header into Headers, decoding
// RFC 2047 words where they matter.
func headersFromMessage(h message.Header) *Headers {
	subject, err := h.Text("Subject")
	if err != nil {
		subject = h.Get("Subject")
	}

	hdr := &Headers{
		To:         h.Get("To"),
		Cc:         h.Get("Cc"),
		Subject:    subject,
		MessageID:  strings.TrimSpace(h.Get("Message-Id")),
		InReplyTo:  strings.TrimSpace(h.Get("In-Reply-To")),
		References: h.Get("References"),
		From:       h.Get("From"),
		ReportRef:  h.Get(ReportRefHeader),
	}

	mh := mail.Header{Header: h}
	if date, err := mh.Date(); err == nil {
		hdr.Date = date
	}

	return hdr
}

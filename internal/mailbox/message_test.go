package mailbox

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleHeaderBlock = "From: Jane Doe <jane@example.com>\r\n" +
	"To: vrs@example.com\r\n" +
	"Cc: manager@example.com\r\n" +
	"Subject: Re: Vulnerability Report 507f1f77bcf86cd799439011\r\n" +
	"Message-Id: <reply-1@mail.example.com>\r\n" +
	"In-Reply-To: <abc@x>\r\n" +
	"References: <abc@x>\r\n" +
	"Date: Thu, 2 Apr 2026 09:30:00 +0000\r\n" +
	"VRS-RID: 507f1f77bcf86cd799439011\r\n" +
	"\r\n"

func TestParseHeaders(t *testing.T) {
	hdr, err := parseHeaders([]byte(sampleHeaderBlock))
	require.NoError(t, err)

	assert.Equal(t, "Jane Doe <jane@example.com>", hdr.From)
	assert.Equal(t, "vrs@example.com", hdr.To)
	assert.Equal(t, "manager@example.com", hdr.Cc)
	assert.Equal(t, "Re: Vulnerability Report 507f1f77bcf86cd799439011", hdr.Subject)
	assert.Equal(t, "<reply-1@mail.example.com>", hdr.MessageID)
	assert.Equal(t, "<abc@x>", hdr.InReplyTo)
	assert.Equal(t, "507f1f77bcf86cd799439011", hdr.ReportRef)
	assert.Equal(t, time.Date(2026, 4, 2, 9, 30, 0, 0, time.UTC), hdr.Date.UTC())
}

func TestParseHeadersDecodesEncodedSubject(t *testing.T) {
	block := "Subject: =?utf-8?q?Re=3A_security_fix?=\r\n\r\n"
	hdr, err := parseHeaders([]byte(block))
	require.NoError(t, err)
	assert.Equal(t, "Re: security fix", hdr.Subject)
}

func TestParseHeadersMissingDate(t *testing.T) {
	block := "Subject: no date here\r\n\r\n"
	hdr, err := parseHeaders([]byte(block))
	require.NoError(t, err)
	assert.True(t, hdr.Date.IsZero())
}

func TestParseMessagePlainText(t *testing.T) {
	raw := sampleHeaderBlock[:len(sampleHeaderBlock)-2] +
		"Content-Type: text/plain; charset=utf-8\r\n" +
		"\r\n" +
		"Patched and deployed.\r\n" +
		"\r\n" +
		"Thanks\r\n"

	msg, err := parseMessage([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, "<reply-1@mail.example.com>", msg.MessageID)
	assert.Contains(t, msg.Body, "Patched and deployed.")
	assert.Contains(t, msg.Body, "Thanks")
}

func TestParseMessageMultipartPrefersPlainPart(t *testing.T) {
	raw := "From: jane@example.com\r\n" +
		"To: vrs@example.com\r\n" +
		"Subject: multipart reply\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: multipart/alternative; boundary=BOUNDARY\r\n" +
		"\r\n" +
		"--BOUNDARY\r\n" +
		"Content-Type: text/plain; charset=utf-8\r\n" +
		"\r\n" +
		"Plain version.\r\n" +
		"--BOUNDARY\r\n" +
		"Content-Type: text/html; charset=utf-8\r\n" +
		"\r\n" +
		"<p>HTML version.</p>\r\n" +
		"--BOUNDARY--\r\n"

	msg, err := parseMessage([]byte(raw))
	require.NoError(t, err)
	assert.Contains(t, msg.Body, "Plain version.")
	assert.NotContains(t, msg.Body, "HTML version.")
}

func TestParseMessageMultipartWithoutPlainPartYieldsEmptyBody(t *testing.T) {
	raw := "From: jane@example.com\r\n" +
		"To: vrs@example.com\r\n" +
		"Subject: html-only reply\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: multipart/alternative; boundary=BOUNDARY\r\n" +
		"\r\n" +
		"--BOUNDARY\r\n" +
		"Content-Type: text/html; charset=utf-8\r\n" +
		"\r\n" +
		"<p>HTML only body.</p>\r\n" +
		"--BOUNDARY--\r\n"

	msg, err := parseMessage([]byte(raw))
	require.NoError(t, err)
	assert.Empty(t, msg.Body)
}

func TestParseMessageBrokenMultipartFallsBackToPayload(t *testing.T) {
	raw := "From: jane@example.com\r\n" +
		"Content-Type: multipart/mixed\r\n" + // boundary missing
		"\r\n" +
		"raw payload text\r\n"

	msg, err := parseMessage([]byte(raw))
	require.NoError(t, err)
	assert.True(t, strings.Contains(msg.Body, "raw payload text"))
}

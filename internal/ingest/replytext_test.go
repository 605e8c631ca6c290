package ingest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractReply(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "plain reply untouched",
			body: "Patched and deployed.\n\nThanks",
			want: "Patched and deployed.\n\nThanks",
		},
		{
			name: "stops at On ... wrote",
			body: "Fix applied.\n\nOn Mon, J wrote:\n> old text",
			want: "Fix applied.",
		},
		{
			name: "only quoted lines yields empty",
			body: "> a\n> b",
			want: "",
		},
		{
			name: "empty body",
			body: "",
			want: "",
		},
		{
			name: "quoted lines dropped without stopping",
			body: "Top line\n> quoted\nBottom line",
			want: "Top line\nBottom line",
		},
		{
			name: "stops at original message marker",
			body: "Done.\n-----Original Message-----\nFrom: someone",
			want: "Done.",
		},
		{
			name: "stops at dash separator",
			body: "Rolled out to prod.\n--\nJane Doe\nSecurity Team",
			want: "Rolled out to prod.",
		},
		{
			name: "stops at underscore separator",
			body: "Mitigated.\n________\nquoted thread",
			want: "Mitigated.",
		},
		{
			name: "stops at sent-from signature",
			body: "Will verify tomorrow.\nSent from my iPhone",
			want: "Will verify tomorrow.",
		},
		{
			name: "stops at forwarded marker",
			body: "See below.\nForwarded message follows\noriginal content",
			want: "See below.",
		},
		{
			name: "stops at from header line",
			body: "Ack.\nFrom: Alice <alice@example.com>\nold body",
			want: "Ack.",
		},
		{
			name: "stops at subject header line",
			body: "Confirmed fixed.\nSubject: Re: your report\nrest",
			want: "Confirmed fixed.",
		},
		{
			name: "crlf normalized",
			body: "Line one\r\nLine two\r\n> quoted",
			want: "Line one\nLine two",
		},
		{
			name: "surrounding blank lines trimmed",
			body: "\n\nActual content\n\n\n",
			want: "Actual content",
		},
		{
			name: "interior blank lines kept",
			body: "First paragraph.\n\nSecond paragraph.",
			want: "First paragraph.\n\nSecond paragraph.",
		},
		{
			name: "single dash does not stop",
			body: "Applied fix - see notes\nmore detail",
			want: "Applied fix - see notes\nmore detail",
		},
		{
			name: "stop pattern matched on trimmed line",
			body: "Deployed.\n   On Tue, Bob wrote:\n> history",
			want: "Deployed.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractReply(tt.body))
		})
	}
}

func TestExtractReplyLengthCap(t *testing.T) {
	body := strings.Repeat("a", maxReplyLen+500)
	got := ExtractReply(body)
	assert.Len(t, got, maxReplyLen)
}

func TestExtractReplyStopIsPermanent(t *testing.T) {
	// Content after a stop line never resumes, even if it looks normal.
	body := "Keep this.\nOn Fri, someone wrote:\nThis looks like fresh text but is not kept."
	assert.Equal(t, "Keep this.", ExtractReply(body))
}

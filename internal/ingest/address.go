package ingest

import (
	"regexp"
	"strings"
)

// reportIDPattern matches a 24-character hexadecimal report identifier
// wherever it appears in a header value, subject, or body.
var reportIDPattern = regexp.MustCompile(`[a-fA-F0-9]{24}`)

// ReportToken returns the first report identifier token found in s, or
// the empty string.
func ReportToken(s string) string {
	return reportIDPattern.FindString(s)
}

var (
	bracketedAddr = regexp.MustCompile(`<([^>]+)>`)
	displayName   = regexp.MustCompile(`^"?([^"<]+)"?\s*<`)
)

// ParseSender splits a From header value into the sender address and a
// display name. An unbracketed header is taken as the address itself, and
// the name defaults to the address when no display name precedes it.
func ParseSender(from string) (email, name string) {
	if m := bracketedAddr.FindStringSubmatch(from); m != nil {
		email = strings.TrimSpace(m[1])
	} else {
		email = strings.TrimSpace(from)
	}

	if m := displayName.FindStringSubmatch(from); m != nil {
		name = strings.TrimSpace(m[1])
	} else {
		name = email
	}
	return email, name
}

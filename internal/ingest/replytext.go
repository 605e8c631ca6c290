package ingest

import (
	"regexp"
	"strings"
)

// maxReplyLen caps the extracted reply text.
const maxReplyLen = 5000

// stopPatterns mark the start of quoted history or signature boilerplate.
// The first line matching any of them ends accumulation permanently.
var stopPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^On .*wrote:$`),
	regexp.MustCompile(`(?i)^From:\s+.*`),
	regexp.MustCompile(`(?i)^-----Original Message-----`),
	regexp.MustCompile(`^-{2,}$`),
	regexp.MustCompile(`^__+`),
	regexp.MustCompile(`(?i)^Sent from my`),
	regexp.MustCompile(`(?i)^Forwarded message`),
	regexp.MustCompile(`(?i)^Subject:\s`),
}

// ExtractReply isolates the top-most reply text from an email body,
// discarding quoted history and signature boilerplate.
//
// The heuristic is line-oriented: accumulation stops permanently at the
// first reply separator (see stopPatterns); lines quoted with '>' are
// dropped without stopping; everything else, blank lines included, is kept
// verbatim. The result is trimmed of surrounding blank lines and capped at
// maxReplyLen characters. Deliberately not a MIME-aware quote parser; false
// positives and negatives on adversarial bodies are accepted.
func ExtractReply(body string) string {
	if body == "" {
		return ""
	}

	normalized := strings.ReplaceAll(body, "\r\n", "\n")
	normalized = strings.ReplaceAll(normalized, "\r", "\n")
	lines := strings.Split(normalized, "\n")

	var out []string
	for _, ln := range lines {
		s := strings.TrimSpace(ln)
		if s == "" {
			// Keep interior blank lines; trimming handles the edges.
			out = append(out, "")
			continue
		}

		if matchesStop(s) {
			break
		}

		// Quoted line: drop, keep scanning.
		if strings.HasPrefix(s, ">") {
			continue
		}

		out = append(out, ln)
	}

	// Trim leading/trailing blank lines.
	for len(out) > 0 && strings.TrimSpace(out[0]) == "" {
		out = out[1:]
	}
	for len(out) > 0 && strings.TrimSpace(out[len(out)-1]) == "" {
		out = out[:len(out)-1]
	}

	text := strings.TrimSpace(strings.Join(out, "\n"))
	if runes := []rune(text); len(runes) > maxReplyLen {
		text = string(runes[:maxReplyLen])
	}
	return text
}

func matchesStop(line string) bool {
	for _, p := range stopPatterns {
		if p.MatchString(line) {
			return true
		}
	}
	return false
}

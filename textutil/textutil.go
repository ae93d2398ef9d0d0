// Package textutil holds small text helpers shared by the collector and the
// destination implementations.
package textutil

import (
	"net/url"
	"regexp"
	"strings"
)

var urlPattern = regexp.MustCompile(`https?://[^\s<>"{}|\\^` + "`" + `\[\]]+`)

// ExtractURLs finds HTTP(S) URLs in free text. Trailing punctuation is
// stripped and duplicates removed; first-occurrence order is preserved.
func ExtractURLs(text string) []string {
	matches := urlPattern.FindAllString(text, -1)

	seen := make(map[string]struct{}, len(matches))
	var out []string
	for _, raw := range matches {
		u := strings.TrimRight(raw, ".,;:!?)")
		if len(u) <= len("https://") {
			continue
		}
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}

// Domain returns the hostname of a URL, or "" if it cannot be parsed.
func Domain(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

// Truncate shortens text to maxLen runes, appending "…" when it had to cut.
func Truncate(text string, maxLen int) string {
	runes := []rune(text)
	if len(runes) <= maxLen {
		return text
	}
	if maxLen <= 1 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-1]) + "…"
}

// Clean collapses all whitespace runs into single spaces.
func Clean(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

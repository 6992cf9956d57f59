package ocr

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// snippet returns a shortened version of text for logging.
func snippet(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "…"
}

// normalizeOCRText folds compatibility forms (fullwidth brackets, split jamo),
// trims every line and drops blank ones. Line breaks are kept; the party bar reads
// one member per line on narrow captures.
func normalizeOCRText(t string) string {
	t = norm.NFKC.String(strings.ReplaceAll(t, "\r\n", "\n"))
	var lines []string
	for _, l := range strings.Split(t, "\n") {
		l = strings.Join(strings.Fields(l), " ")
		if l != "" {
			lines = append(lines, l)
		}
	}
	return strings.Join(lines, "\n")
}

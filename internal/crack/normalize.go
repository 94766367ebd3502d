package crack

import (
	"regexp"
	"strings"
)

var (
	reCRLF       = regexp.MustCompile(`\r\n?`)
	reTabs       = regexp.MustCompile(`\t+`)
	reMultiSpace = regexp.MustCompile(` {2,}`)
	reBoxNoise   = regexp.MustCompile(`(?m)^\s*[_\-]{3,}\s*$`)
)

// normalizeOCR collapses noisy whitespace and drops blank and ruler lines so
// OCR output has the same one-line-per-line shape as the layout cracker.
func normalizeOCR(s string) []string {
	if s == "" {
		return nil
	}
	s = reCRLF.ReplaceAllString(s, "\n")
	s = reBoxNoise.ReplaceAllString(s, "")
	s = reTabs.ReplaceAllString(s, " ")
	s = reMultiSpace.ReplaceAllString(s, " ")

	var lines []string
	for _, ln := range strings.Split(s, "\n") {
		ln = strings.TrimSpace(strings.ReplaceAll(ln, "\f", ""))
		if ln != "" {
			lines = append(lines, ln)
		}
	}
	return lines
}

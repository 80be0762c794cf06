package validation

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var filenameStripPattern = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

// SanitizeFilename returns an ASCII-only version of name that is safe to use
// as a single path component. Accents are decomposed and dropped, path
// separators and whitespace become underscores, other characters are removed,
// and leading or trailing dots and underscores are trimmed. The result may be
// empty.
func SanitizeFilename(name string) string {
	decomposed := norm.NFKD.String(name)

	var b strings.Builder
	for _, r := range decomposed {
		if r < 0x80 {
			b.WriteRune(r)
		}
	}
	ascii := b.String()

	ascii = strings.NewReplacer("/", " ", "\\", " ").Replace(ascii)
	joined := strings.Join(strings.Fields(ascii), "_")
	return strings.Trim(filenameStripPattern.ReplaceAllString(joined, ""), "._")
}

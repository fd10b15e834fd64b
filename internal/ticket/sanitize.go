package ticket

import (
	"regexp"
	"strings"
)

// DefaultTitle is used when sanitization leaves nothing usable.
const DefaultTitle = "Chamado sem Título"

const maxTitleLen = 100

var reMarkup = regexp.MustCompile("[*_`]")

// Sanitize normalizes free text into a store-safe title or description:
// markup emphasis characters are stripped, newlines collapse to spaces and
// the result is truncated to 100 runes. Empty input yields DefaultTitle.
// Sanitize is idempotent.
func Sanitize(text string) string {
	clean := reMarkup.ReplaceAllString(text, "")
	clean = strings.ReplaceAll(clean, "\r", " ")
	clean = strings.ReplaceAll(clean, "\n", " ")
	clean = strings.TrimSpace(clean)

	if runes := []rune(clean); len(runes) > maxTitleLen {
		clean = strings.TrimSpace(string(runes[:maxTitleLen]))
	}
	if clean == "" {
		return DefaultTitle
	}
	return clean
}

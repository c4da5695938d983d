// Package filter holds the language heuristics applied to upstream streams.
package filter

import (
	"regexp"
	"strings"
)

const italianFlag = "🇮🇹"

// italianToken matches ITA, ITALIAN or ITALIANO as a standalone token, so
// release names like "Film.ITA-ENG.1080p" or "AC3 ITA" match while words
// such as "CAPITAL" do not.
var italianToken = regexp.MustCompile(`(?i)(^|[^a-z0-9])(ita|italian|italiano)([^a-z0-9]|$)`)

// IsItalian reports whether a stream's name or title marks Italian audio.
func IsItalian(name, title string) bool {
	for _, s := range []string{name, title} {
		if s == "" {
			continue
		}
		if strings.Contains(s, italianFlag) || italianToken.MatchString(s) {
			return true
		}
	}
	return false
}

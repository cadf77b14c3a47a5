package worker

import "strings"

// CleanMessageText strips zero-width marks (U+200B..U+200D) and
// collapses whitespace runs to single spaces.
func CleanMessageText(text string) string {
	stripped := strings.Map(func(r rune) rune {
		if r >= '\u200b' && r <= '\u200d' {
			return -1
		}
		return r
	}, text)
	return strings.Join(strings.Fields(stripped), " ")
}

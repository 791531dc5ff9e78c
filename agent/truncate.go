package agent

import (
	"fmt"
	"unicode/utf8"
)

// Markers prefixed to execution output before it is shown to the model.
const (
	EmptyOutputMarker = "[EMPTY OUTPUT]"
	FullOutputMarker  = "[FULL OUTPUT SHOWN]... "
	truncatedFormat   = "[TRUNCATED: Last %d chars shown].. "
)

// Truncate prepares execution output for the transcript. Lengths are counted
// in runes. Output longer than limit keeps only its last limit runes; a limit
// <= 0 disables truncation. The execution log always stores the full text.
func Truncate(text string, limit int) string {
	n := utf8.RuneCountInString(text)
	switch {
	case n == 0:
		return EmptyOutputMarker
	case limit <= 0 || n <= limit:
		return FullOutputMarker + text
	}

	// Skip the first n-limit runes.
	skip := n - limit
	i := 0
	for skip > 0 {
		_, size := utf8.DecodeRuneInString(text[i:])
		i += size
		skip--
	}
	return fmt.Sprintf(truncatedFormat, limit) + text[i:]
}

package helpers

import (
	"strings"
	"time"
	"unicode"
)

// ParseStrictDate parses input with a numeric time layout such as "02.01.2006"
// and requires every digit position of the layout to be a digit in input, so
// "1.2.2026" or "2026-02-26" never match "02.01.2006". Surrounding whitespace
// is ignored. The result is midnight UTC of the parsed day.
func ParseStrictDate(input, layout string) (time.Time, bool) {
	s := strings.TrimSpace(input)
	if len(s) != len(layout) {
		return time.Time{}, false
	}
	for i := 0; i < len(layout); i++ {
		want := layout[i]
		got := s[i]
		if unicode.IsDigit(rune(want)) {
			if got < '0' || got > '9' {
				return time.Time{}, false
			}
			continue
		}
		if got != want {
			return time.Time{}, false
		}
	}
	t, err := time.ParseInLocation(layout, s, time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

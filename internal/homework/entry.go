package homework

import (
	"strconv"
	"strings"
	"time"
)

// Entry is the homework recorded for one date.
type Entry struct {
	Date      Date
	Items     []string
	UpdatedAt time.Time
}

// Text renders the items as a 1-based numbered list, one item per line.
func (e Entry) Text() string {
	return Numbered(e.Items)
}

// Numbered renders items as "1. A\n2. B".
func Numbered(items []string) string {
	var b strings.Builder
	for i, item := range items {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(strconv.Itoa(i + 1))
		b.WriteString(". ")
		b.WriteString(item)
	}
	return b.String()
}

// ParseNumbered reverses Numbered for text stored in the pre-rendered form.
// A line opens a new item only when it starts with the next expected number,
// so multi-line items and items that begin with digits survive.
func ParseNumbered(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	var items []string
	for _, line := range strings.Split(text, "\n") {
		prefix := strconv.Itoa(len(items)+1) + ". "
		switch {
		case strings.HasPrefix(line, prefix):
			items = append(items, strings.TrimPrefix(line, prefix))
		case len(items) == 0:
			items = append(items, line)
		default:
			items[len(items)-1] += "\n" + line
		}
	}
	return items
}

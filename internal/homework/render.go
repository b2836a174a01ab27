package homework

import (
	"slices"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/m3rciful/homeworkbot/core/telegram/format"
)

// MaxMessageLen bounds one outgoing message, counted in UTF-16 code units
// the way Telegram counts them.
const MaxMessageLen = 4000

// ListHeader opens every rendered list.
const ListHeader = "📚 *YOUR HOMEWORK*\n\n"

// SortDescending orders entries latest date first.
func SortDescending(entries []Entry) {
	slices.SortStableFunc(entries, func(a, b Entry) int {
		return b.Date.Compare(a.Date)
	})
}

// RenderList formats entries as one Markdown document. Item text is escaped.
func RenderList(entries []Entry) string {
	if len(entries) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(ListHeader)
	for _, e := range entries {
		b.WriteString("📅 *")
		b.WriteString(e.Date.String())
		b.WriteString(":*\n")
		b.WriteString(format.EscapeV1(e.Text()))
		b.WriteString("\n\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// TextLen returns the length of s in UTF-16 code units.
func TextLen(s string) int {
	n := 0
	for _, r := range s {
		n += utf16.RuneLen(r)
	}
	return n
}

// SplitMessage cuts text into parts of at most limit UTF-16 units whose
// concatenation is text. Cuts prefer a blank line, then a line break, when one
// falls in the second half of the part; otherwise the text is cut at the limit,
// never between a Markdown escape and the character it escapes.
func SplitMessage(text string, limit int) []string {
	if text == "" {
		return nil
	}
	if limit <= 0 || TextLen(text) <= limit {
		return []string{text}
	}
	var parts []string
	for text != "" {
		cut := prefixWithin(text, limit)
		if cut == len(text) {
			parts = append(parts, text)
			break
		}
		if i := strings.LastIndex(text[:cut], "\n\n"); i > cut/2 {
			cut = i + 2
		} else if i := strings.LastIndexByte(text[:cut], '\n'); i > cut/2 {
			cut = i + 1
		}
		cut = keepEscapePair(text, cut)
		parts = append(parts, text[:cut])
		text = text[cut:]
	}
	return parts
}

// keepEscapePair moves cut back one byte when text[:cut] ends with an
// unpaired backslash, so an escape and the character it guards stay together.
func keepEscapePair(text string, cut int) int {
	n := 0
	for i := cut - 1; i >= 0 && text[i] == '\\'; i-- {
		n++
	}
	if n%2 == 1 && cut > 1 {
		return cut - 1
	}
	return cut
}

// prefixWithin returns the byte length of the longest prefix of s that fits
// in limit UTF-16 units without splitting a rune. At least one rune is kept.
func prefixWithin(s string, limit int) int {
	units := 0
	for i, r := range s {
		units += utf16.RuneLen(r)
		if units > limit {
			if i == 0 {
				_, size := utf8.DecodeRuneInString(s)
				return size
			}
			return i
		}
	}
	return len(s)
}

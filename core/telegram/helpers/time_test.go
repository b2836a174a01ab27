package helpers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseStrictDate(t *testing.T) {
	const layout = "02.01.2006"

	got, ok := ParseStrictDate(" 26.02.2026 ", layout)
	assert.True(t, ok)
	assert.Equal(t, time.Date(2026, time.February, 26, 0, 0, 0, 0, time.UTC), got)

	for _, in := range []string{
		"2026-02-26",
		"1.2.2026",
		"26.2.2026",
		"26/02/2026",
		"31.02.2026",
		"26.02.26",
		"26.02.2026 10:00",
		"aa.bb.cccc",
		"",
	} {
		_, ok := ParseStrictDate(in, layout)
		assert.False(t, ok, "input %q must be rejected", in)
	}
}

package keyboard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReplyButtons(t *testing.T) {
	m := ReplyButtons([]string{"a", "b"}, []string{"c"})
	require.Len(t, m.ReplyKeyboard, 2)
	assert.Len(t, m.ReplyKeyboard[0], 2)
	assert.Equal(t, "c", m.ReplyKeyboard[1][0].Text)
	assert.True(t, m.ResizeKeyboard)
}

func TestInlineButtonsNPerRow(t *testing.T) {
	btns := []InlineBtn{
		{Text: "1", Unique: "d", Data: "01.01.2026"},
		{Text: "2", Unique: "d", Data: "02.01.2026"},
		{Text: "3", Unique: "d", Data: "03.01.2026"},
	}
	m := InlineButtonsNPerRow(btns, 2)
	require.Len(t, m.InlineKeyboard, 2)
	assert.Len(t, m.InlineKeyboard[0], 2)
	assert.Len(t, m.InlineKeyboard[1], 1)
	assert.Equal(t, "d", m.InlineKeyboard[1][0].Unique)
	assert.Equal(t, "03.01.2026", m.InlineKeyboard[1][0].Data)

	assert.Len(t, InlineButtonsNPerRow(btns, 0).InlineKeyboard, 3)
}

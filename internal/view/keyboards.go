package view

import (
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/homeworkbot/core/telegram/keyboard"
	"github.com/m3rciful/homeworkbot/internal/homework"
)

// dateButtonsPerRow keeps date buttons readable on phones.
const dateButtonsPerRow = 3

// MainKeyboard is shown whenever the user is idle.
func MainKeyboard() *tele.ReplyMarkup {
	return keyboard.ReplyButtons(
		[]string{BtnAdd},
		[]string{BtnList},
		[]string{BtnClear, BtnHelp},
	)
}

// StopKeyboard is shown while a dialog step waits for input.
func StopKeyboard() *tele.ReplyMarkup {
	return keyboard.ReplyButtons([]string{BtnStop})
}

// ClearKeyboard is the clear submenu.
func ClearKeyboard() *tele.ReplyMarkup {
	return keyboard.ReplyButtons(
		[]string{BtnClearAll},
		[]string{BtnDeleteByDate},
		[]string{BtnStop},
	)
}

// DateButtons offers one inline button per date for the delete prompt.
func DateButtons(dates []homework.Date) *tele.ReplyMarkup {
	btns := make([]keyboard.InlineBtn, 0, len(dates))
	for _, d := range dates {
		btns = append(btns, keyboard.InlineBtn{Text: d.String(), Unique: CallbackDeleteDate, Data: d.String()})
	}
	return keyboard.InlineButtonsNPerRow(btns, dateButtonsPerRow)
}

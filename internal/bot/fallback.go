package bot

import (
	tele "gopkg.in/telebot.v4"

	tghelpers "github.com/m3rciful/homeworkbot/core/telegram/helpers"
	"github.com/m3rciful/homeworkbot/internal/view"
)

func (b *Bot) UnknownText() tele.HandlerFunc {
	return func(c tele.Context) error {
		return tghelpers.SendText(c, view.TextUseMenu, &tele.SendOptions{ReplyMarkup: view.MainKeyboard()})
	}
}

func (b *Bot) UnknownDocument() tele.HandlerFunc {
	return func(c tele.Context) error {
		return tghelpers.SendText(c, view.TextUnknownDocument, &tele.SendOptions{ReplyMarkup: view.MainKeyboard()})
	}
}

func (b *Bot) UnknownCallback() tele.HandlerFunc {
	return func(c tele.Context) error {
		return c.Respond(&tele.CallbackResponse{Text: view.TextStaleButton})
	}
}

func (b *Bot) RateLimited() tele.HandlerFunc {
	return func(c tele.Context) error {
		if c.Callback() != nil {
			return c.Respond(&tele.CallbackResponse{Text: view.TextRateLimited})
		}
		return tghelpers.SendText(c, view.TextRateLimited)
	}
}

func (b *Bot) AdminRejected() tele.HandlerFunc {
	return func(c tele.Context) error {
		return tghelpers.SendText(c, view.TextAdminOnly)
	}
}

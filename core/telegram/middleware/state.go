package middleware

import (
	"log/slog"

	"github.com/m3rciful/homeworkbot/core/logger"
	tghelpers "github.com/m3rciful/homeworkbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// Conversation is the minimal view of an FSM needed to guard handlers.
type Conversation interface {
	InProgress(userID int64) bool
	ManagerHandler(c tele.Context) error
}

// IdleOnly runs the wrapped handler only when the sender has no conversation in
// progress; otherwise the update is handed to the conversation as ordinary input.
func IdleOnly(conv Conversation) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			userID := tghelpers.UserID(c)
			if conv == nil || userID == 0 || !conv.InProgress(userID) {
				return next(c)
			}
			ctx := tghelpers.BuildContext(c)
			logger.Debug(ctx, "tg", "fsm.forward",
				slog.Int64("user_id", userID),
				slog.String("payload", logger.SanitizeLimit(c.Text(), 64)),
			)
			return conv.ManagerHandler(c)
		}
	}
}

package middleware

import (
	"log/slog"

	"github.com/m3rciful/homeworkbot/core/logger"
	"github.com/m3rciful/homeworkbot/core/telegram/callbacks"
	tghelpers "github.com/m3rciful/homeworkbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// LoggerMiddleware assigns the update its rid and logging context, then logs
// a sampled debug receipt. Only the outermost application does anything.
func LoggerMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		if rid, _ := c.Get("rid").(string); rid != "" {
			return next(c)
		}
		upd := c.Update()
		var chatID int64
		if chat := c.Chat(); chat != nil {
			chatID = chat.ID
		}
		c.Set("rid", logger.BuildRID(upd.ID, chatID, tghelpers.UserID(c)))
		ctx := tghelpers.BuildContext(c)

		if logger.ShouldSampleDebug() {
			attrs := []slog.Attr{slog.String("kind", updateKind(upd))}
			if upd.Callback != nil {
				key, payload := callbacks.ParseCallbackData(upd.Callback)
				attrs = append(attrs, slog.String("cb_key", logger.SanitizeLimit(key, 64)))
				if payload != "" {
					attrs = append(attrs, slog.String("payload", logger.SanitizeLimit(payload, 128)))
				}
			} else if text := c.Text(); text != "" {
				attrs = append(attrs, slog.String("payload", logger.SanitizeLimit(text, 128)))
			}
			logger.Debug(ctx, "tg", "update.received", attrs...)
		}
		return next(c)
	}
}

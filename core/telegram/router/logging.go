package router

import (
	"context"
	"errors"
	"log/slog"
	"reflect"
	"strings"
	"time"

	"github.com/m3rciful/homeworkbot/core/logger"
	"github.com/m3rciful/homeworkbot/core/metrics"
	tghelpers "github.com/m3rciful/homeworkbot/core/telegram/helpers"
	"github.com/m3rciful/homeworkbot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// handle runs fn as handler name and logs one summary line for it.
func handle(c tele.Context, name string, start time.Time, fn func() error) error {
	ctx := tghelpers.WithHandler(c, name)
	err := fn()
	summarize(ctx, c, name, logger.Status(err), start, err)
	return err
}

// skip logs the summary of an update no handler took.
func skip(c tele.Context, name string, start time.Time) {
	summarize(tghelpers.WithHandler(c, name), c, name, "skip", start, nil)
}

func summarize(ctx context.Context, c tele.Context, name, status string, start time.Time, err error) {
	took := time.Since(start)
	metrics.Default().ObserveHandler(name, logger.Status(err), took)

	msgs, kb := middleware.GetCounters(c)
	attrs := []slog.Attr{
		slog.String("status", status),
		slog.String("handler", name),
		slog.Int("messages", msgs),
		slog.Bool("kb", kb),
		slog.Int64("duration_ms", logger.RoundMS(took).Milliseconds()),
	}
	if err != nil {
		attrs = append(attrs,
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
			slog.String("err_code", deriveErrorCode(err)),
		)
	}
	logger.Info(ctx, "tg", "handler.handled", attrs...)
}

func normalizeHandlerName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "unknown"
	}
	name = strings.TrimPrefix(name, "/")
	name = strings.ReplaceAll(name, " ", "_")
	return strings.ToLower(name)
}

func deriveErrorCode(err error) string {
	if err == nil {
		return ""
	}
	type coder interface{ Code() string }
	var c coder
	if errors.As(err, &c) {
		code := strings.TrimSpace(c.Code())
		if code != "" {
			return strings.ToUpper(strings.ReplaceAll(code, " ", "_"))
		}
	}
	t := reflect.TypeOf(err)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t != nil {
		return strings.ToUpper(strings.ReplaceAll(t.Name(), " ", "_"))
	}
	return "UNKNOWN_ERROR"
}

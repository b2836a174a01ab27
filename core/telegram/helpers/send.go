package helpers

import (
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/m3rciful/homeworkbot/core/logger"
	"github.com/m3rciful/homeworkbot/core/telegram/sender"

	tele "gopkg.in/telebot.v4"
)

var globalDispatcher atomic.Pointer[sender.Dispatcher]

// SetDispatcher wires the asynchronous sender used by helper functions.
func SetDispatcher(d *sender.Dispatcher) {
	globalDispatcher.Store(d)
}

func currentDispatcher() *sender.Dispatcher {
	return globalDispatcher.Load()
}

func sendAsync(c tele.Context, action, endpoint string, run func() error) error {
	disp := currentDispatcher()
	if disp == nil {
		return run()
	}

	ctx := BuildContext(c)
	if err := disp.Enqueue(ctx, action, endpoint, run); err != nil {
		if errors.Is(err, sender.ErrQueueFull) || errors.Is(err, sender.ErrQueueClosed) {
			logger.Warn(ctx, "tg.sender", "queue.fallback",
				slog.String("action", action),
				slog.String("endpoint", endpoint),
				slog.String("err", err.Error()),
			)
			return run()
		}
		return err
	}
	return nil
}

// SendText sends raw text (no parse mode) to the current recipient.
func SendText(c tele.Context, text string, opts ...*tele.SendOptions) error {
	var sendOpts *tele.SendOptions
	if len(opts) > 0 {
		sendOpts = opts[0]
	}
	return sendAsync(c, "send.text", "sendMessage", func() error {
		if sendOpts != nil {
			return c.Send(text, sendOpts)
		}
		return c.Send(text)
	})
}

// SendMD sends a message with Markdown parse mode and optional reply markup.
func SendMD(c tele.Context, text string, markup ...*tele.ReplyMarkup) error {
	var rm *tele.ReplyMarkup
	if len(markup) > 0 {
		rm = markup[0]
	}
	opts := &tele.SendOptions{ParseMode: tele.ModeMarkdown, ReplyMarkup: rm}
	return SendText(c, text, opts)
}

// SendChunksMD sends parts in order as one Markdown message each. Only the last
// part carries the reply markup. All parts go through one dispatcher job so a
// worker pool cannot reorder them.
func SendChunksMD(c tele.Context, parts []string, markup ...*tele.ReplyMarkup) error {
	if len(parts) == 0 {
		return nil
	}
	var rm *tele.ReplyMarkup
	if len(markup) > 0 {
		rm = markup[0]
	}
	if len(parts) == 1 {
		return SendMD(c, parts[0], rm)
	}
	// sent survives dispatcher retries so delivered parts are not repeated.
	sent := 0
	return sendAsync(c, "send.chunks", "sendMessage", func() error {
		for ; sent < len(parts); sent++ {
			opts := &tele.SendOptions{ParseMode: tele.ModeMarkdown}
			if sent == len(parts)-1 {
				opts.ReplyMarkup = rm
			}
			if err := c.Send(parts[sent], opts); err != nil {
				return err
			}
		}
		return nil
	})
}

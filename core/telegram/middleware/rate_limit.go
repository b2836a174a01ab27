package middleware

import (
	"log/slog"
	"sync"
	"time"

	"github.com/m3rciful/homeworkbot/core/logger"
	tghelpers "github.com/m3rciful/homeworkbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// RateLimitOptions configures behaviour of the rate limit middleware.
type RateLimitOptions struct {
	Interval  time.Duration
	Exclude   map[string]struct{}
	OnLimited tele.HandlerFunc
	// Bypass lets matching users through unthrottled, e.g. mid-dialog.
	Bypass func(userID int64) bool
	// Now overrides the clock in tests.
	Now func() time.Time
}

// limiter remembers the last accepted update per user.
type limiter struct {
	mu       sync.Mutex
	interval time.Duration
	lastSeen map[int64]time.Time
	pruned   time.Time
}

// allow reports whether the user may proceed at now and records the hit.
func (l *limiter) allow(userID int64, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.pruned) > 64*l.interval {
		for id, ts := range l.lastSeen {
			if now.Sub(ts) >= l.interval {
				delete(l.lastSeen, id)
			}
		}
		l.pruned = now
	}
	if last, ok := l.lastSeen[userID]; ok && now.Sub(last) < l.interval {
		return false
	}
	l.lastSeen[userID] = now
	return true
}

func updateKind(upd tele.Update) string {
	switch {
	case upd.Callback != nil:
		return "callback"
	case upd.Message != nil:
		return "message"
	case upd.Query != nil:
		return "inline_query"
	}
	return "other"
}

// RateLimitMiddleware returns a middleware that enforces a minimum interval
// between updates from the same user.
func RateLimitMiddleware(opts RateLimitOptions) tele.MiddlewareFunc {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	l := &limiter{interval: opts.Interval, lastSeen: make(map[int64]time.Time)}

	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			userID := tghelpers.UserID(c)
			if userID == 0 || opts.Interval <= 0 {
				return next(c)
			}
			kind := updateKind(c.Update())
			if _, skip := opts.Exclude[kind]; skip {
				return next(c)
			}
			if opts.Bypass != nil && opts.Bypass(userID) {
				return next(c)
			}
			if l.allow(userID, now()) {
				return next(c)
			}

			attrs := []slog.Attr{
				slog.String("status", "rate_limited"),
				slog.String("kind", kind),
				slog.Int64("user_id", userID),
			}
			if chat := c.Chat(); chat != nil {
				attrs = append(attrs, slog.Int64("chat_id", chat.ID))
			}
			logger.Warn(tghelpers.BuildContext(c), "tg", "tg.rate_limit", attrs...)
			if opts.OnLimited != nil {
				_ = opts.OnLimited(c)
			}
			return nil
		}
	}
}

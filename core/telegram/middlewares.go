package telegram

import (
	"context"
	"log/slog"
	"strings"
	"time"

	coreconfig "github.com/m3rciful/homeworkbot/core/config"
	"github.com/m3rciful/homeworkbot/core/logger"
	"github.com/m3rciful/homeworkbot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// ChainOptions tunes DefaultMiddlewares.
type ChainOptions struct {
	// OnLimited answers updates dropped by the rate limiter.
	OnLimited tele.HandlerFunc
	// Conversation exempts users with a dialog in progress from the rate
	// limit, so every dialog answer reaches the conversation.
	Conversation middleware.Conversation
}

// DefaultMiddlewares builds the global chain, outermost first: recover, rate
// limit (when rate_limit.interval_ms is set), logger, metrics.
func DefaultMiddlewares(cfg *coreconfig.Config, opts ChainOptions) []Middleware {
	mws := []Middleware{{Name: "recover", Use: middleware.RecoverMiddleware}}

	if cfg != nil && cfg.RateLimit.IntervalMS > 0 {
		exclude := make(map[string]struct{}, len(cfg.RateLimit.ExcludeUpdates))
		for _, kind := range cfg.RateLimit.ExcludeUpdates {
			exclude[strings.ToLower(kind)] = struct{}{}
		}
		var bypass func(int64) bool
		if opts.Conversation != nil {
			bypass = opts.Conversation.InProgress
		}
		mws = append(mws, Middleware{
			Name: "rate_limit",
			Use: middleware.RateLimitMiddleware(middleware.RateLimitOptions{
				Interval:  time.Duration(cfg.RateLimit.IntervalMS) * time.Millisecond,
				Exclude:   exclude,
				OnLimited: opts.OnLimited,
				Bypass:    bypass,
			}),
		})
	}

	mws = append(mws,
		Middleware{Name: "logger", Use: middleware.LoggerMiddleware},
		Middleware{Name: "metrics", Use: middleware.MessageMetricsMiddleware},
	)

	names := make([]string, len(mws))
	for i, mw := range mws {
		names[i] = mw.Name
	}
	logger.Debug(context.Background(), "tg.wire", "register.middlewares",
		slog.String("chain", strings.Join(names, ",")),
	)
	return mws
}

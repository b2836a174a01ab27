package router

import (
	"time"

	tg "github.com/m3rciful/homeworkbot/core/telegram"
	tghelpers "github.com/m3rciful/homeworkbot/core/telegram/helpers"
	"github.com/m3rciful/homeworkbot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// TextOptions controls fallback behaviour for text/document updates.
type TextOptions struct {
	UnknownText     tele.HandlerFunc
	UnknownDocument tele.HandlerFunc
}

// TextRoutes builds handlers for text and document updates. Keyboard labels of
// commands usable in any state run first. An active conversation then sees
// every other message; idle users get command names and aliases, then the
// fallbacks.
func TextRoutes(conv middleware.Conversation, reg *tg.Registry, opts TextOptions) []tg.Route {
	handler := func(c tele.Context) error {
		start := time.Now()
		text := c.Text()

		if reg != nil {
			if key, cmd, ok := reg.LookupAlias(text); ok && cmd.Handler != nil && !cmd.IdleOnly && !cmd.AdminOnly {
				return handle(c, normalizeHandlerName(key), start, func() error {
					return cmd.Handler(c)
				})
			}
		}

		if inConversation(conv, c) {
			return handle(c, "fsm", start, func() error {
				return conv.ManagerHandler(c)
			})
		}

		if reg != nil {
			// Admin commands are reachable only through their command endpoint.
			if key, cmd, ok := reg.LookupCommand(text); ok && cmd.Handler != nil && !cmd.AdminOnly {
				name := normalizeHandlerName(key)
				return handle(c, name, start, func() error {
					return cmd.Handler(c)
				})
			}
		}

		if reg != nil {
			if fb := reg.TextFallback(); fb != nil {
				return handle(c, "fallback", start, func() error {
					return fb(c)
				})
			}
		}

		if opts.UnknownText != nil {
			return handle(c, "unknown_text", start, func() error {
				return opts.UnknownText(c)
			})
		}

		skip(c, "unknown_text", start)
		return nil
	}

	docHandler := func(c tele.Context) error {
		start := time.Now()
		if inConversation(conv, c) {
			return handle(c, "fsm_document", start, func() error {
				return conv.ManagerHandler(c)
			})
		}
		if opts.UnknownDocument != nil {
			return handle(c, "unexpected_document", start, func() error {
				return opts.UnknownDocument(c)
			})
		}
		skip(c, "unexpected_document", start)
		return nil
	}

	return []tg.Route{
		{
			Endpoint: tele.OnText,
			Handler:  middleware.RecoverMiddleware(middleware.LoggerMiddleware(handler)),
		},
		{
			Endpoint: tele.OnDocument,
			Handler:  middleware.RecoverMiddleware(middleware.LoggerMiddleware(docHandler)),
		},
	}
}

func inConversation(conv middleware.Conversation, c tele.Context) bool {
	if conv == nil {
		return false
	}
	userID := tghelpers.UserID(c)
	return userID != 0 && conv.InProgress(userID)
}

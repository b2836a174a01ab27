// Package bot wires the homework dialogs and commands onto the Telegram core.
package bot

import (
	"context"
	"log/slog"

	tele "gopkg.in/telebot.v4"

	coreconfig "github.com/m3rciful/homeworkbot/core/config"
	"github.com/m3rciful/homeworkbot/core/logger"
	tg "github.com/m3rciful/homeworkbot/core/telegram"
	"github.com/m3rciful/homeworkbot/core/telegram/commands"
	tghelpers "github.com/m3rciful/homeworkbot/core/telegram/helpers"
	"github.com/m3rciful/homeworkbot/core/telegram/router"
	"github.com/m3rciful/homeworkbot/core/telegram/ui"
	"github.com/m3rciful/homeworkbot/internal/conversation"
	"github.com/m3rciful/homeworkbot/internal/homework"
	"github.com/m3rciful/homeworkbot/internal/view"
)

// Homework is the part of the homework service used by commands.
type Homework interface {
	Digest(ctx context.Context, userID int64) ([]string, error)
	ClearAll(ctx context.Context, userID int64) error
	Stats(ctx context.Context) (homework.Stats, error)
}

// Options configures New.
type Options struct {
	// Shared switches texts to the common-list wording.
	Shared bool
}

// Bot owns the command handlers.
type Bot struct {
	hw     Homework
	conv   *conversation.Machine
	shared bool
}

var _ ui.FallbackProvider = (*Bot)(nil)

// New builds the bot over the homework service and the dialog machine.
func New(hw Homework, conv *conversation.Machine, opts Options) *Bot {
	return &Bot{hw: hw, conv: conv, shared: opts.Shared}
}

// Register adds every command, button alias and callback to reg.
func (b *Bot) Register(reg *tg.Registry) error {
	reg.RegisterCommand("/start", commands.Command{
		Handler:     b.Start,
		Description: "Start the bot",
	})
	reg.RegisterCommand("/help", commands.Command{
		Handler:     b.Help,
		Description: "How to use the bot",
		Aliases:     []string{view.BtnHelp},
	})
	reg.RegisterCommand("/list", commands.Command{
		Handler:     b.List,
		Description: "Show your homework",
		IdleOnly:    true,
		Aliases:     []string{view.BtnList},
	})
	reg.RegisterCommand("/clear", commands.Command{
		Handler:     b.ClearMenu,
		Description: "Clear tasks",
		IdleOnly:    true,
		Aliases:     []string{view.BtnClear},
	})
	reg.RegisterCommand("/add", commands.Command{
		Handler:     b.conv.StartAdd,
		Description: "Add homework",
		Hidden:      true,
		IdleOnly:    true,
		Aliases:     []string{view.BtnAdd},
	})
	reg.RegisterCommand("/clearall", commands.Command{
		Handler:     b.ClearAll,
		Description: "Delete all tasks",
		Hidden:      true,
		IdleOnly:    true,
		Aliases:     []string{view.BtnClearAll},
	})
	reg.RegisterCommand("/delete", commands.Command{
		Handler:     b.conv.StartDelete,
		Description: "Delete tasks for one date",
		Hidden:      true,
		IdleOnly:    true,
		Aliases:     []string{view.BtnDeleteByDate},
	})
	reg.RegisterCommand("/stop", commands.Command{
		Handler:     b.Stop,
		Description: "Stop the current action",
		Hidden:      true,
		IdleOnly:    true,
		Aliases:     []string{view.BtnStop},
	})
	reg.RegisterCommand("/stats", commands.Command{
		Handler:     b.Stats,
		Description: "Storage stats",
		Hidden:      true,
		AdminOnly:   true,
	})

	reg.SetTextFallback(b.UnknownText())
	reg.SetCallbackNotFound(b.UnknownCallback())
	return reg.RegisterCallback(view.CallbackDeleteDate, b.conv.HandleDateButton)
}

// Routes builds the command, text and callback routes for reg.
func (b *Bot) Routes(cfg *coreconfig.Config, reg *tg.Registry) []tg.Route {
	var adminID int64
	if cfg != nil {
		adminID = cfg.Telegram.AdminID
	}
	routes := router.CommandRoutes(reg, router.CommandRouteOptions{
		AdminID:       adminID,
		OnAdminReject: b.AdminRejected(),
		Conversation:  b.conv,
	})
	routes = append(routes, router.TextRoutes(b.conv, reg, router.TextOptions{
		UnknownText:     b.UnknownText(),
		UnknownDocument: b.UnknownDocument(),
	})...)
	routes = append(routes, router.CallbackRoute(reg, router.CallbackOptions{
		NotFound: b.UnknownCallback(),
	}))
	return routes
}

// Middlewares returns the global chain with the bot's rate limit reply.
// Dialog answers are never throttled.
func (b *Bot) Middlewares(cfg *coreconfig.Config) []tg.Middleware {
	return tg.DefaultMiddlewares(cfg, tg.ChainOptions{
		OnLimited:    b.RateLimited(),
		Conversation: b.conv,
	})
}

// Start greets the user and drops any unfinished dialog.
func (b *Bot) Start(c tele.Context) error {
	b.conv.Reset(tghelpers.UserID(c))
	name := tghelpers.FirstName(c, "there")
	return tghelpers.SendMD(c, view.Start(name, b.shared), view.MainKeyboard())
}

// Help shows usage. It leaves an open dialog untouched.
func (b *Bot) Help(c tele.Context) error {
	return tghelpers.SendMD(c, view.Help(b.shared), view.MainKeyboard())
}

// List sends the rendered homework list, split into parts when it is long.
func (b *Bot) List(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	parts, err := b.hw.Digest(ctx, tghelpers.UserID(c))
	if err != nil {
		return tghelpers.SendText(c, view.TextLoadFailed, &tele.SendOptions{ReplyMarkup: view.MainKeyboard()})
	}
	parts = nonBlank(parts)
	if len(parts) == 0 {
		return tghelpers.SendText(c, view.TextEmptyList, &tele.SendOptions{ReplyMarkup: view.MainKeyboard()})
	}
	logger.Debug(ctx, "service.homework", "homework.list.send", slog.Int("parts", len(parts)))
	return tghelpers.SendChunksMD(c, parts, view.MainKeyboard())
}

// ClearMenu shows the clear submenu.
func (b *Bot) ClearMenu(c tele.Context) error {
	return tghelpers.SendMD(c, view.TextClearMenu, view.ClearKeyboard())
}

// ClearAll removes every entry of the user.
func (b *Bot) ClearAll(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	text := view.TextAllCleared
	if err := b.hw.ClearAll(ctx, tghelpers.UserID(c)); err != nil {
		text = view.TextDeleteFailed
	}
	return tghelpers.SendText(c, text, &tele.SendOptions{ReplyMarkup: view.MainKeyboard()})
}

// Stop answers a stop with no dialog open. Open dialogs never reach it.
func (b *Bot) Stop(c tele.Context) error {
	return tghelpers.SendText(c, view.TextActionCancelled, &tele.SendOptions{ReplyMarkup: view.MainKeyboard()})
}

// Stats reports storage totals to the admin.
func (b *Bot) Stats(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	st, err := b.hw.Stats(ctx)
	if err != nil {
		return tghelpers.SendText(c, view.TextLoadFailed)
	}
	return tghelpers.SendMD(c, view.Stats(st, b.conv.Sessions().Len()))
}

func nonBlank(parts []string) []string {
	out := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

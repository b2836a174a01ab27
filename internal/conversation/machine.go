// Package conversation drives the add and delete-by-date dialogs.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/homeworkbot/core/logger"
	"github.com/m3rciful/homeworkbot/core/metrics"
	"github.com/m3rciful/homeworkbot/core/telegram/callbacks"
	tghelpers "github.com/m3rciful/homeworkbot/core/telegram/helpers"
	"github.com/m3rciful/homeworkbot/core/telegram/state"
	"github.com/m3rciful/homeworkbot/internal/homework"
	"github.com/m3rciful/homeworkbot/internal/view"
)

// Service is the part of the homework service the dialogs need.
type Service interface {
	Save(ctx context.Context, userID int64, date homework.Date, items []string) (homework.Entry, error)
	Dates(ctx context.Context, userID int64) ([]homework.Date, error)
	DeleteDate(ctx context.Context, userID int64, date homework.Date) error
}

const lockStripes = 64

// Machine keeps one dialog state per user and advances it on each message.
type Machine struct {
	svc      Service
	sessions state.Manager[State]
	locks    [lockStripes]sync.Mutex
}

// New builds a machine over svc. sessions holds the non-idle states.
func New(svc Service, sessions state.Manager[State]) *Machine {
	return &Machine{svc: svc, sessions: sessions}
}

// Sessions exposes the session store for sweeping and stats.
func (m *Machine) Sessions() state.Manager[State] {
	return m.sessions
}

func (m *Machine) lock(userID int64) func() {
	mu := &m.locks[uint64(userID)%lockStripes]
	mu.Lock()
	return mu.Unlock
}

// Current returns the user's state, Idle when none is stored.
func (m *Machine) Current(userID int64) State {
	if st, ok := m.sessions.Get(userID); ok && st != nil {
		return st
	}
	return Idle{}
}

// InProgress reports whether the user is inside a dialog.
func (m *Machine) InProgress(userID int64) bool {
	_, idle := m.Current(userID).(Idle)
	return !idle
}

// Reset drops any dialog of the user.
func (m *Machine) Reset(userID int64) {
	m.sessions.Clear(userID)
	metrics.Default().SetActiveSessions(m.sessions.Len())
}

func (m *Machine) transition(ctx context.Context, userID int64, from, to State) {
	if _, idle := to.(Idle); idle {
		m.sessions.Clear(userID)
	} else {
		m.sessions.Set(userID, to)
	}
	metrics.Default().SetActiveSessions(m.sessions.Len())
	if from.Name() != to.Name() {
		logger.Debug(ctx, "conversation", "fsm.transition",
			slog.Int64("user_id", userID),
			slog.String("from_state", from.Name()),
			slog.String("to_state", to.Name()),
		)
	}
}

// StartAdd opens the add dialog.
func (m *Machine) StartAdd(c tele.Context) error {
	userID := tghelpers.UserID(c)
	defer m.lock(userID)()
	ctx := tghelpers.BuildContext(c)

	m.transition(ctx, userID, m.Current(userID), WaitingForDate{})
	return send(c, view.TextAskDate, view.StopKeyboard())
}

// StartDelete lists the user's dates and waits for one to delete. With no
// entries the dialog is not opened.
func (m *Machine) StartDelete(c tele.Context) error {
	userID := tghelpers.UserID(c)
	defer m.lock(userID)()
	ctx := tghelpers.BuildContext(c)

	dates, err := m.svc.Dates(ctx, userID)
	if err != nil {
		m.transition(ctx, userID, m.Current(userID), Idle{})
		return failed(c, view.TextLoadFailed)
	}
	if len(dates) == 0 {
		m.transition(ctx, userID, m.Current(userID), Idle{})
		return send(c, view.TextEmptyList, view.MainKeyboard())
	}
	m.transition(ctx, userID, m.Current(userID), WaitingForDeleteDate{})
	if err := sendMD(c, view.DeletePrompt(dates), view.DateButtons(dates)); err != nil {
		return err
	}
	return send(c, view.TextDeleteStopHint, view.StopKeyboard())
}

// ManagerHandler feeds one message to the user's current step.
func (m *Machine) ManagerHandler(c tele.Context) error {
	userID := tghelpers.UserID(c)
	defer m.lock(userID)()
	ctx := tghelpers.BuildContext(c)
	return m.step(ctx, c, userID, c.Text())
}

// HandleDateButton treats an inline date button as typed input while the
// delete dialog is open.
func (m *Machine) HandleDateButton(c tele.Context) error {
	userID := tghelpers.UserID(c)
	defer m.lock(userID)()
	ctx := tghelpers.BuildContext(c)

	if _, ok := m.Current(userID).(WaitingForDeleteDate); !ok {
		return c.Respond(&tele.CallbackResponse{Text: view.TextStaleButton})
	}
	return m.step(ctx, c, userID, callbacks.CallbackPayload(c))
}

func (m *Machine) step(ctx context.Context, c tele.Context, userID int64, input string) error {
	switch st := m.Current(userID).(type) {
	case Idle:
		return nil
	case WaitingForDate:
		return m.onDate(ctx, c, userID, st, input)
	case WaitingForHomework:
		return m.onHomework(ctx, c, userID, st, input)
	case WaitingForDeleteDate:
		return m.onDeleteDate(ctx, c, userID, st, input)
	default:
		return fmt.Errorf("conversation: unhandled state %T", st)
	}
}

func (m *Machine) onDate(ctx context.Context, c tele.Context, userID int64, st WaitingForDate, input string) error {
	if view.IsStop(input) {
		m.transition(ctx, userID, st, Idle{})
		return send(c, view.TextAddCancelled, view.MainKeyboard())
	}
	date, err := homework.ParseDate(input)
	if err != nil {
		logInvalid(ctx, userID, st, input)
		return send(c, view.TextBadDate, nil)
	}
	m.transition(ctx, userID, st, WaitingForHomework{Date: date})
	return send(c, view.AskItems(date), view.StopKeyboard())
}

func (m *Machine) onHomework(ctx context.Context, c tele.Context, userID int64, st WaitingForHomework, input string) error {
	if !view.IsStop(input) {
		if strings.TrimSpace(input) == "" {
			return send(c, view.TextEmptyItem, view.StopKeyboard())
		}
		next := WaitingForHomework{Date: st.Date, Items: append(slices.Clone(st.Items), input)}
		m.transition(ctx, userID, st, next)
		return send(c, view.ItemAdded(next.Items), view.StopKeyboard())
	}

	m.transition(ctx, userID, st, Idle{})
	_, err := m.svc.Save(ctx, userID, st.Date, st.Items)
	switch {
	case errors.Is(err, homework.ErrNothingToSave):
		return send(c, view.TextNothingToSave, view.MainKeyboard())
	case err != nil:
		return failed(c, view.TextSaveFailed)
	}
	return send(c, view.Saved(st.Date), view.MainKeyboard())
}

func (m *Machine) onDeleteDate(ctx context.Context, c tele.Context, userID int64, st WaitingForDeleteDate, input string) error {
	if view.IsStop(input) {
		m.transition(ctx, userID, st, Idle{})
		return send(c, view.TextCancelled, view.MainKeyboard())
	}
	date, err := homework.ParseDate(input)
	if err != nil {
		logInvalid(ctx, userID, st, input)
		return send(c, view.TextBadDeleteDate, nil)
	}

	m.transition(ctx, userID, st, Idle{})
	err = m.svc.DeleteDate(ctx, userID, date)
	switch {
	case errors.Is(err, homework.ErrNotFound):
		return send(c, view.DateNotFound(date), view.MainKeyboard())
	case err != nil:
		return failed(c, view.TextDeleteFailed)
	}
	return send(c, view.Deleted(date), view.MainKeyboard())
}

func logInvalid(ctx context.Context, userID int64, st State, input string) {
	logger.Debug(ctx, "conversation", "fsm.input",
		slog.String("status", "invalid"),
		slog.Int64("user_id", userID),
		slog.String("state", st.Name()),
		slog.String("payload", logger.SanitizeLimit(input, 32)),
	)
}

// failed tells the user about a storage failure. The error is already logged
// by the service, so the handler itself succeeds.
func failed(c tele.Context, text string) error {
	return send(c, text, view.MainKeyboard())
}

func send(c tele.Context, text string, kb *tele.ReplyMarkup) error {
	if kb == nil {
		return tghelpers.SendText(c, text)
	}
	return tghelpers.SendText(c, text, &tele.SendOptions{ReplyMarkup: kb})
}

func sendMD(c tele.Context, text string, kb *tele.ReplyMarkup) error {
	return tghelpers.SendMD(c, text, kb)
}

package conversation

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/homeworkbot/core/telegram/state"
	"github.com/m3rciful/homeworkbot/core/telegram/teletest"
	"github.com/m3rciful/homeworkbot/internal/homework"
	"github.com/m3rciful/homeworkbot/internal/storage/filestore"
	"github.com/m3rciful/homeworkbot/internal/view"
)

const user int64 = 42

func newMachine(t *testing.T) (*Machine, *homework.Service) {
	t.Helper()
	store, err := filestore.New(filepath.Join(t.TempDir(), "homework.json"))
	require.NoError(t, err)
	svc := homework.NewService(store, homework.Options{})
	return New(svc, state.NewMemoryManager[State](state.Options{})), svc
}

func say(t *testing.T, m *Machine, text string) *teletest.Context {
	t.Helper()
	c := teletest.NewMessage(user, text)
	require.NoError(t, m.ManagerHandler(c))
	return c
}

func TestAddFlowSavesNumberedItems(t *testing.T) {
	m, svc := newMachine(t)

	c := teletest.NewMessage(user, view.BtnAdd)
	require.NoError(t, m.StartAdd(c))
	assert.Equal(t, view.TextAskDate, c.Last().Text())
	assert.IsType(t, WaitingForDate{}, m.Current(user))
	assert.True(t, m.InProgress(user))

	c = say(t, m, "2026-02-26")
	assert.Equal(t, view.TextBadDate, c.Last().Text())
	assert.IsType(t, WaitingForDate{}, m.Current(user))

	c = say(t, m, "26.02.2026")
	date := homework.MustParseDate("26.02.2026")
	assert.Equal(t, view.AskItems(date), c.Last().Text())
	assert.Equal(t, WaitingForHomework{Date: date}, m.Current(user))

	say(t, m, "A")
	c = say(t, m, "B")
	assert.Equal(t, view.ItemAdded([]string{"A", "B"}), c.Last().Text())

	for _, blank := range []string{"   ", "\n\t\n"} {
		c = say(t, m, blank)
		assert.Equal(t, view.TextEmptyItem, c.Last().Text())
		assert.Equal(t, WaitingForHomework{Date: date, Items: []string{"A", "B"}}, m.Current(user))
	}

	c = say(t, m, view.BtnStop)
	assert.Equal(t, view.Saved(date), c.Last().Text())
	assert.Equal(t, view.MainKeyboard(), c.Last().Markup())
	assert.False(t, m.InProgress(user))

	entries, err := svc.List(context.Background(), user)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "1. A\n2. B", entries[0].Text())
}

func TestStopWithoutItems(t *testing.T) {
	m, _ := newMachine(t)
	require.NoError(t, m.StartAdd(teletest.NewMessage(user, view.BtnAdd)))
	say(t, m, "01.03.2026")

	c := say(t, m, "stop")
	assert.Equal(t, view.TextNothingToSave, c.Last().Text())
	assert.IsType(t, Idle{}, m.Current(user))
}

func TestCancelWhileWaitingForDate(t *testing.T) {
	m, _ := newMachine(t)
	require.NoError(t, m.StartAdd(teletest.NewMessage(user, view.BtnAdd)))

	c := say(t, m, "/stop")
	assert.Equal(t, view.TextAddCancelled, c.Last().Text())
	assert.False(t, m.InProgress(user))
	assert.Zero(t, m.Sessions().Len())
}

func TestIdleInputIsIgnored(t *testing.T) {
	m, _ := newMachine(t)
	c := say(t, m, "hello")
	assert.Empty(t, c.Sent())
}

func TestDeleteFlow(t *testing.T) {
	m, svc := newMachine(t)
	ctx := context.Background()

	c := teletest.NewMessage(user, view.BtnDeleteByDate)
	require.NoError(t, m.StartDelete(c))
	assert.Equal(t, view.TextEmptyList, c.Last().Text())
	assert.False(t, m.InProgress(user))

	_, err := svc.Save(ctx, user, homework.MustParseDate("01.03.2026"), []string{"x"})
	require.NoError(t, err)
	_, err = svc.Save(ctx, user, homework.MustParseDate("02.03.2026"), []string{"y"})
	require.NoError(t, err)

	c = teletest.NewMessage(user, view.BtnDeleteByDate)
	require.NoError(t, m.StartDelete(c))
	sent := c.Sent()
	require.Len(t, sent, 2)
	assert.Contains(t, sent[0].Text(), "02.03.2026\n• 01.03.2026")
	require.NotNil(t, sent[0].Markup())
	assert.Len(t, sent[0].Markup().InlineKeyboard, 1)
	assert.Equal(t, view.TextDeleteStopHint, sent[1].Text())
	assert.IsType(t, WaitingForDeleteDate{}, m.Current(user))

	c = say(t, m, "1.3.2026")
	assert.Equal(t, view.TextBadDeleteDate, c.Last().Text())
	assert.True(t, m.InProgress(user))

	c = say(t, m, "05.03.2026")
	assert.Equal(t, view.DateNotFound(homework.MustParseDate("05.03.2026")), c.Last().Text())
	assert.False(t, m.InProgress(user))

	dates, err := svc.Dates(ctx, user)
	require.NoError(t, err)
	assert.Len(t, dates, 2)

	require.NoError(t, m.StartDelete(teletest.NewMessage(user, view.BtnDeleteByDate)))
	cb := teletest.NewCallback(user, view.CallbackDeleteDate, "01.03.2026")
	require.NoError(t, m.HandleDateButton(cb))
	assert.Equal(t, view.Deleted(homework.MustParseDate("01.03.2026")), cb.Last().Text())

	dates, err = svc.Dates(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, []homework.Date{homework.MustParseDate("02.03.2026")}, dates)
}

func TestDeleteCancel(t *testing.T) {
	m, svc := newMachine(t)
	_, err := svc.Save(context.Background(), user, homework.MustParseDate("01.03.2026"), []string{"x"})
	require.NoError(t, err)

	require.NoError(t, m.StartDelete(teletest.NewMessage(user, view.BtnDeleteByDate)))
	c := say(t, m, view.BtnStop)
	assert.Equal(t, view.TextCancelled, c.Last().Text())
	assert.False(t, m.InProgress(user))
}

func TestStaleDateButton(t *testing.T) {
	m, _ := newMachine(t)
	cb := teletest.NewCallback(user, view.CallbackDeleteDate, "01.03.2026")
	require.NoError(t, m.HandleDateButton(cb))
	assert.Empty(t, cb.Sent())
	require.Len(t, cb.Responses(), 1)
	assert.Equal(t, view.TextStaleButton, cb.Responses()[0].Text)
}

type failingService struct{ err error }

func (f failingService) Save(context.Context, int64, homework.Date, []string) (homework.Entry, error) {
	return homework.Entry{}, f.err
}

func (f failingService) Dates(context.Context, int64) ([]homework.Date, error) {
	return nil, f.err
}

func (f failingService) DeleteDate(context.Context, int64, homework.Date) error {
	return f.err
}

func TestStoreFailuresClearTheDialog(t *testing.T) {
	boom := errors.New("disk full")
	sessions := state.NewMemoryManager[State](state.Options{})
	m := New(failingService{err: boom}, sessions)

	sessions.Set(user, WaitingForHomework{Date: homework.MustParseDate("01.03.2026"), Items: []string{"a"}})
	c := say(t, m, view.BtnStop)
	assert.Equal(t, view.TextSaveFailed, c.Last().Text())
	assert.False(t, m.InProgress(user))

	sessions.Set(user, WaitingForDeleteDate{})
	c = say(t, m, "01.03.2026")
	assert.Equal(t, view.TextDeleteFailed, c.Last().Text())
	assert.False(t, m.InProgress(user))

	c = teletest.NewMessage(user, view.BtnDeleteByDate)
	require.NoError(t, m.StartDelete(c))
	assert.Equal(t, view.TextLoadFailed, c.Last().Text())
	assert.False(t, m.InProgress(user))
}

func TestResetDropsSession(t *testing.T) {
	m, _ := newMachine(t)
	require.NoError(t, m.StartAdd(teletest.NewMessage(user, view.BtnAdd)))
	m.Reset(user)
	assert.IsType(t, Idle{}, m.Current(user))
}

func TestItemsAreNotShared(t *testing.T) {
	st := WaitingForHomework{Items: make([]string, 1, 4)}
	m := New(failingService{}, state.NewMemoryManager[State](state.Options{}))
	m.Sessions().Set(user, st)
	say(t, m, "next")
	assert.Len(t, st.Items, 1)
	assert.Equal(t, []string{"", "next"}, m.Current(user).(WaitingForHomework).Items)
}

package middleware

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/homeworkbot/core/telegram/teletest"
)

func counting(n *int) tele.HandlerFunc {
	return func(tele.Context) error {
		*n++
		return nil
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	now := time.Unix(1000, 0)
	limited := 0
	mw := RateLimitMiddleware(RateLimitOptions{
		Interval:  time.Second,
		Exclude:   map[string]struct{}{"callback": {}},
		OnLimited: counting(&limited),
		Now:       func() time.Time { return now },
	})
	calls := 0
	h := mw(counting(&calls))

	require.NoError(t, h(teletest.NewMessage(1, "a")))
	require.NoError(t, h(teletest.NewMessage(1, "b")))
	require.NoError(t, h(teletest.NewMessage(2, "c")))
	require.NoError(t, h(teletest.NewCallback(1, "k", "")))
	assert.Equal(t, 3, calls)
	assert.Equal(t, 1, limited)

	now = now.Add(time.Second)
	require.NoError(t, h(teletest.NewMessage(1, "d")))
	assert.Equal(t, 4, calls)
}

func TestRateLimitBypass(t *testing.T) {
	now := time.Unix(1000, 0)
	limited := 0
	mw := RateLimitMiddleware(RateLimitOptions{
		Interval:  time.Second,
		OnLimited: counting(&limited),
		Bypass:    func(userID int64) bool { return userID == 1 },
		Now:       func() time.Time { return now },
	})
	calls := 0
	h := mw(counting(&calls))

	for _, text := range []string{"a", "b", "c"} {
		require.NoError(t, h(teletest.NewMessage(1, text)))
	}
	require.NoError(t, h(teletest.NewMessage(2, "x")))
	require.NoError(t, h(teletest.NewMessage(2, "y")))
	assert.Equal(t, 4, calls)
	assert.Equal(t, 1, limited)
}

func TestLimiterPrunesStaleUsers(t *testing.T) {
	l := &limiter{interval: time.Millisecond, lastSeen: make(map[int64]time.Time)}
	start := time.Unix(0, 0)
	for i := int64(1); i <= 10; i++ {
		assert.True(t, l.allow(i, start))
	}
	assert.True(t, l.allow(99, start.Add(time.Second)))
	assert.Len(t, l.lastSeen, 1)
}

type stubConv struct {
	active    bool
	forwarded int
}

func (s *stubConv) InProgress(int64) bool { return s.active }

func (s *stubConv) ManagerHandler(tele.Context) error {
	s.forwarded++
	return nil
}

func TestIdleOnly(t *testing.T) {
	conv := &stubConv{}
	calls := 0
	h := IdleOnly(conv)(counting(&calls))

	require.NoError(t, h(teletest.NewMessage(1, "/list")))
	conv.active = true
	require.NoError(t, h(teletest.NewMessage(1, "/list")))
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, conv.forwarded)
}

func TestAdminOnlyMiddleware(t *testing.T) {
	calls, rejected := 0, 0
	h := AdminOnlyMiddleware(AdminOptions{AdminID: 7, OnReject: counting(&rejected)})(counting(&calls))
	require.NoError(t, h(teletest.NewMessage(7, "/stats")))
	require.NoError(t, h(teletest.NewMessage(8, "/stats")))
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, rejected)

	none := AdminOnlyMiddleware(AdminOptions{})(counting(&calls))
	require.NoError(t, none(teletest.NewMessage(0, "/stats")))
	assert.Equal(t, 1, calls)
}

func TestRecoverMiddleware(t *testing.T) {
	h := RecoverMiddleware(func(tele.Context) error { panic("boom") })
	err := h(teletest.NewMessage(1, "x"))
	var pe *PanicError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "boom", pe.Value)
}

func TestMessageMetricsMiddlewareCounts(t *testing.T) {
	c := teletest.NewMessage(1, "x")
	h := MessageMetricsMiddleware(func(c tele.Context) error {
		_ = c.Send("one")
		return c.Send("two", &tele.ReplyMarkup{})
	})
	require.NoError(t, h(c))
	msgs, kb := GetCounters(c)
	assert.Equal(t, 2, msgs)
	assert.True(t, kb)
}

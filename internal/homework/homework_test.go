package homework

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	mu   sync.Mutex
	data map[int64]map[string]Entry
	err  error
}

func newMemStore() *memStore {
	return &memStore{data: make(map[int64]map[string]Entry)}
}

func (m *memStore) Get(_ context.Context, owner int64, date Date) (Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.data[owner][date.ISO()]
	if !ok {
		return Entry{}, ErrNotFound
	}
	return e, nil
}

func (m *memStore) Put(_ context.Context, owner int64, e Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if m.data[owner] == nil {
		m.data[owner] = make(map[string]Entry)
	}
	m.data[owner][e.Date.ISO()] = e
	return nil
}

func (m *memStore) Delete(_ context.Context, owner int64, date Date) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.data[owner][date.ISO()]; !ok {
		return ErrNotFound
	}
	delete(m.data[owner], date.ISO())
	return nil
}

func (m *memStore) ListDates(ctx context.Context, owner int64) ([]Date, error) {
	entries, err := m.List(ctx, owner)
	if err != nil {
		return nil, err
	}
	dates := make([]Date, len(entries))
	for i, e := range entries {
		dates[i] = e.Date
	}
	return dates, nil
}

func (m *memStore) List(_ context.Context, owner int64) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	var out []Entry
	for _, e := range m.data[owner] {
		out = append(out, e)
	}
	// Ascending; the service reorders.
	slices.SortFunc(out, func(a, b Entry) int { return a.Date.Compare(b.Date) })
	return out, nil
}

func (m *memStore) Clear(_ context.Context, owner int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[owner] = map[string]Entry{}
	return nil
}

func (m *memStore) Stats(context.Context) (Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var st Stats
	for _, entries := range m.data {
		if len(entries) > 0 {
			st.Owners++
		}
		for _, e := range entries {
			st.Entries++
			st.Items += len(e.Items)
		}
	}
	return st, nil
}

func (m *memStore) Close() error { return nil }

func TestParseDate(t *testing.T) {
	valid := []string{"26.02.2026", "01.01.2025", "29.02.2024", " 31.12.1999 "}
	for _, s := range valid {
		d, err := ParseDate(s)
		require.NoError(t, err, s)
		assert.Equal(t, strings.TrimSpace(s), d.String())
	}

	invalid := []string{"2026-02-26", "1.2.2026", "31.02.2026", "29.02.2025", "26.02.26", "", "aa.bb.cccc", "26/02/2026", "26.02.2026x"}
	for _, s := range invalid {
		_, err := ParseDate(s)
		assert.ErrorIs(t, err, ErrInvalidDate, s)
	}
}

func TestDateISORoundTrip(t *testing.T) {
	d := MustParseDate("05.03.2026")
	assert.Equal(t, "2026-03-05", d.ISO())
	back, err := ParseISODate(d.ISO())
	require.NoError(t, err)
	assert.Equal(t, 0, d.Compare(back))
	assert.True(t, MustParseDate("01.01.2025").Before(MustParseDate("02.01.2025")))
	assert.Equal(t, "07.04.2026", DateOf(time.Date(2026, 4, 7, 23, 59, 0, 0, time.UTC)).String())
}

func TestNumbered(t *testing.T) {
	assert.Equal(t, "1. A\n2. B", Numbered([]string{"A", "B"}))
	assert.Equal(t, "", Numbered(nil))
}

func TestParseNumbered(t *testing.T) {
	assert.Equal(t, []string{"A", "B"}, ParseNumbered("1. A\n2. B\n"))
	assert.Equal(t, []string{"line one\nline two", "3. keep"}, ParseNumbered("1. line one\nline two\n2. 3. keep"))
	assert.Equal(t, []string{"no prefix"}, ParseNumbered("no prefix"))
	assert.Nil(t, ParseNumbered("  "))

	items := []string{"Math: p. 45, #123", "multi\nline", "2. looks numbered"}
	assert.Equal(t, items, ParseNumbered(Numbered(items)))
}

func TestRenderListDescending(t *testing.T) {
	entries := []Entry{
		{Date: MustParseDate("01.01.2025"), Items: []string{"old"}},
		{Date: MustParseDate("02.01.2025"), Items: []string{"new_task"}},
	}
	SortDescending(entries)
	out := RenderList(entries)
	assert.True(t, strings.HasPrefix(out, ListHeader))
	assert.Less(t, strings.Index(out, "02.01.2025"), strings.Index(out, "01.01.2025"))
	assert.Contains(t, out, "1. new\\_task")
	assert.Equal(t, "", RenderList(nil))
}

func TestSplitMessage(t *testing.T) {
	t.Run("short", func(t *testing.T) {
		assert.Equal(t, []string{"hi"}, SplitMessage("hi", MaxMessageLen))
		assert.Nil(t, SplitMessage("", MaxMessageLen))
	})

	t.Run("long lines", func(t *testing.T) {
		var b strings.Builder
		for b.Len() < 9000 {
			b.WriteString("📅 *01.01.2025:*\n1. Математика: стр. 45, №123\n\n")
		}
		text := b.String()
		parts := SplitMessage(text, MaxMessageLen)
		require.Greater(t, len(parts), 1)
		for _, p := range parts {
			assert.LessOrEqual(t, TextLen(p), MaxMessageLen)
			assert.LessOrEqual(t, len([]rune(p)), MaxMessageLen)
		}
		assert.Equal(t, text, strings.Join(parts, ""))
	})

	t.Run("no newlines", func(t *testing.T) {
		text := strings.Repeat("ж", 9001)
		parts := SplitMessage(text, MaxMessageLen)
		require.Len(t, parts, 3)
		assert.Equal(t, MaxMessageLen, len([]rune(parts[0])))
		assert.Equal(t, text, strings.Join(parts, ""))
	})

	t.Run("escapes stay paired", func(t *testing.T) {
		for pad := 0; pad < 4; pad++ {
			entries := []Entry{{
				Date:  MustParseDate("26.02.2026"),
				Items: []string{strings.Repeat("x", pad+1) + strings.Repeat("a_", 3000)},
			}}
			text := RenderList(entries)
			parts := SplitMessage(text, MaxMessageLen)
			require.Greater(t, len(parts), 1)
			for i, p := range parts {
				trailing := len(p) - len(strings.TrimRight(p, "\\"))
				assert.Zero(t, trailing%2, "pad %d: part %d ends with an unpaired escape", pad, i)
				assert.False(t, strings.HasPrefix(p, "_"), "pad %d: part %d starts with a bare underscore", pad, i)
				assert.LessOrEqual(t, TextLen(p), MaxMessageLen)
			}
			assert.Equal(t, text, strings.Join(parts, ""))
		}
	})

	t.Run("surrogate pairs", func(t *testing.T) {
		text := strings.Repeat("📚", 10)
		parts := SplitMessage(text, 3)
		for _, p := range parts {
			assert.Equal(t, "📚", p)
		}
		assert.Len(t, parts, 10)
	})
}

func newTestService(store Store, shared bool) *Service {
	fixed := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	return NewService(store, Options{Shared: shared, Now: func() time.Time { return fixed }})
}

func TestServiceSaveAndList(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	svc := newTestService(store, false)
	date := MustParseDate("26.02.2026")

	entry, err := svc.Save(ctx, 7, date, []string{"A", "B"})
	require.NoError(t, err)
	assert.Equal(t, "1. A\n2. B", entry.Text())

	got, err := store.Get(ctx, 7, date)
	require.NoError(t, err)
	assert.Equal(t, "1. A\n2. B", got.Text())

	_, err = svc.Save(ctx, 7, date, []string{"C"})
	require.NoError(t, err)
	got, err = store.Get(ctx, 7, date)
	require.NoError(t, err)
	assert.Equal(t, []string{"C"}, got.Items, "saving replaces the entry")

	_, err = svc.Save(ctx, 7, date, nil)
	assert.ErrorIs(t, err, ErrNothingToSave)

	other, err := svc.List(ctx, 8)
	require.NoError(t, err)
	assert.Empty(t, other, "owners are isolated")
}

func TestServiceSharedMode(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	svc := newTestService(store, true)
	_, err := svc.Save(ctx, 1, MustParseDate("01.01.2025"), []string{"x"})
	require.NoError(t, err)

	entries, err := svc.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, SharedOwner, svc.Owner(99))
}

func TestServiceListOrderAndDigest(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(newMemStore(), false)
	_, err := svc.Save(ctx, 1, MustParseDate("01.01.2025"), []string{"a"})
	require.NoError(t, err)
	_, err = svc.Save(ctx, 1, MustParseDate("02.01.2025"), []string{"b"})
	require.NoError(t, err)

	dates, err := svc.Dates(ctx, 1)
	require.NoError(t, err)
	require.Len(t, dates, 2)
	assert.Equal(t, "02.01.2025", dates[0].String())

	parts, err := svc.Digest(ctx, 1)
	require.NoError(t, err)
	require.Len(t, parts, 1)
	assert.Less(t, strings.Index(parts[0], "02.01.2025"), strings.Index(parts[0], "01.01.2025"))
}

func TestServiceDeleteAndClear(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	svc := newTestService(store, false)
	date := MustParseDate("03.03.2026")
	_, err := svc.Save(ctx, 1, date, []string{"a"})
	require.NoError(t, err)

	err = svc.DeleteDate(ctx, 1, MustParseDate("04.03.2026"))
	assert.ErrorIs(t, err, ErrNotFound)
	st, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{Owners: 1, Entries: 1, Items: 1}, st, "a failed delete leaves the store unchanged")

	require.NoError(t, svc.DeleteDate(ctx, 1, date))
	_, err = store.Get(ctx, 1, date)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.Save(ctx, 1, date, []string{"a"})
	require.NoError(t, err)
	require.NoError(t, svc.ClearAll(ctx, 1))
	parts, err := svc.Digest(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, parts)
}

func TestServiceWrapsStoreErrors(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	boom := errors.New("disk full")
	store.err = boom
	svc := newTestService(store, false)

	_, err := svc.Save(ctx, 1, MustParseDate("01.01.2025"), []string{"a"})
	assert.ErrorIs(t, err, boom)
	_, err = svc.Digest(ctx, 1)
	assert.ErrorIs(t, err, boom)
}

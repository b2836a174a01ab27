package filestore

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/homeworkbot/internal/homework"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "data", "homework_data.json"))
	require.NoError(t, err)
	return s
}

func TestMissingAndEmptyFile(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	entries, err := s.List(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, entries)

	require.NoError(t, os.WriteFile(s.Path(), []byte("  \n"), 0o644))
	entries, err = s.List(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestPutGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	date := homework.MustParseDate("26.02.2026")

	require.NoError(t, s.Put(ctx, 7, homework.Entry{Date: date, Items: []string{"Математика: стр. 45", "<b>&</b>"}}))
	got, err := s.Get(ctx, 7, date)
	require.NoError(t, err)
	assert.Equal(t, []string{"Математика: стр. 45", "<b>&</b>"}, got.Items)
	assert.Equal(t, "1. Математика: стр. 45\n2. <b>&</b>", got.Text())

	raw, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	assert.Contains(t, string(raw), "Математика", "unicode is written unescaped")
	assert.Contains(t, string(raw), "<b>&</b>")
	assert.Contains(t, string(raw), "\n    \"7\": {")

	var doc map[string]map[string][]string
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Equal(t, []string{"Математика: стр. 45", "<b>&</b>"}, doc["7"]["26.02.2026"])

	_, err = s.Get(ctx, 8, date)
	assert.ErrorIs(t, err, homework.ErrNotFound)
}

func TestLegacyStringValues(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	legacy := `{
    "7": {"01.01.2025": "1. A\n2. B", "02.01.2025": "1. C"},
    "8": {"bad-date": "1. x"}
}`
	require.NoError(t, os.WriteFile(s.Path(), []byte(legacy), 0o644))

	entries, err := s.List(ctx, 7)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "02.01.2025", entries[0].Date.String())
	assert.Equal(t, []string{"A", "B"}, entries[1].Items)

	entries, err = s.List(ctx, 8)
	require.NoError(t, err)
	assert.Empty(t, entries, "unparsable dates are skipped")

	require.NoError(t, s.Put(ctx, 7, homework.Entry{Date: homework.MustParseDate("03.01.2025"), Items: []string{"D"}}))
	raw, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"bad-date"`, "unknown keys survive rewrites")
}

func TestGlobalLegacyDocument(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	require.NoError(t, os.WriteFile(s.Path(), []byte(`{"26.02.2026": "1. shared"}`), 0o644))

	entries, err := s.List(ctx, homework.SharedOwner)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, []string{"shared"}, entries[0].Items)
}

func TestCorruptDocument(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	require.NoError(t, os.WriteFile(s.Path(), []byte(`{"7": {`), 0o644))

	_, err := s.List(ctx, 7)
	assert.ErrorIs(t, err, ErrCorrupt)
	err = s.Put(ctx, 7, homework.Entry{Date: homework.MustParseDate("01.01.2025"), Items: []string{"x"}})
	assert.ErrorIs(t, err, ErrCorrupt)

	raw, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	assert.Equal(t, `{"7": {`, string(raw), "corrupt file is left untouched")
}

func TestDeleteClearStats(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	date := homework.MustParseDate("03.03.2026")
	require.NoError(t, s.Put(ctx, 1, homework.Entry{Date: date, Items: []string{"a", "b"}}))
	require.NoError(t, s.Put(ctx, 2, homework.Entry{Date: date, Items: []string{"c"}}))

	assert.ErrorIs(t, s.Delete(ctx, 1, homework.MustParseDate("04.03.2026")), homework.ErrNotFound)
	assert.ErrorIs(t, s.Delete(ctx, 3, date), homework.ErrNotFound)

	st, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, homework.Stats{Owners: 2, Entries: 2, Items: 3}, st)

	require.NoError(t, s.Delete(ctx, 1, date))
	require.NoError(t, s.Clear(ctx, 2))
	st, err = s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, homework.Stats{}, st)

	raw, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"2": {}`, "clear writes an empty mapping")
}

func TestConcurrentOwnersDoNotClobber(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	date := homework.MustParseDate("01.01.2025")

	var wg sync.WaitGroup
	for owner := int64(1); owner <= 20; owner++ {
		wg.Add(1)
		go func(owner int64) {
			defer wg.Done()
			assert.NoError(t, s.Put(ctx, owner, homework.Entry{Date: date, Items: []string{"x"}}))
		}(owner)
	}
	wg.Wait()

	st, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 20, st.Owners)

	leftovers, err := filepath.Glob(filepath.Join(filepath.Dir(s.Path()), ".*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestImport(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "legacy.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"5": {"01.01.2025": "1. A\n2. B"}, "6": {}}`), 0o644))

	dst, err := New(filepath.Join(dir, "new.json"))
	require.NoError(t, err)

	res, err := Import(ctx, path, dst)
	require.NoError(t, err)
	assert.Equal(t, ImportResult{Owners: 1, Entries: 1}, res)

	got, err := dst.Get(ctx, 5, homework.MustParseDate("01.01.2025"))
	require.NoError(t, err)
	assert.Equal(t, "1. A\n2. B", got.Text())

	_, err = os.Stat(path + ImportedSuffix)
	require.NoError(t, err)
	res, err = Import(ctx, path, dst)
	require.NoError(t, err)
	assert.Equal(t, ImportResult{}, res, "a second start imports nothing")
}

func TestEncodeIsIndented(t *testing.T) {
	doc := document{"1": {"01.01.2025": items{"a"}}}
	out, err := doc.encode()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(out), "{\n    \"1\": {\n        \"01.01.2025\": [\n            \"a\"\n        ]"))
}

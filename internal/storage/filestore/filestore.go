// Package filestore keeps homework in one JSON document on disk.
package filestore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/m3rciful/homeworkbot/core/logger"
	"github.com/m3rciful/homeworkbot/core/metrics"
	"github.com/m3rciful/homeworkbot/internal/homework"
)

const backend = "json"

// ErrCorrupt reports a document that cannot be parsed. The file is left as is.
var ErrCorrupt = errors.New("filestore: corrupt document")

// Store implements homework.Store over a JSON file. Every mutation rewrites
// the whole document through a temp file and rename under one mutex.
type Store struct {
	mu   sync.Mutex
	path string
}

var _ homework.Store = (*Store)(nil)

// New prepares a store at path, creating its directory if needed.
// The file itself is created on first write.
func New(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("filestore: empty path")
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("filestore: %w", err)
		}
	}
	return &Store{path: path}, nil
}

// Path returns the backing file.
func (s *Store) Path() string { return s.path }

func (s *Store) observe(ctx context.Context, op string, start time.Time, err error) {
	took := time.Since(start)
	metrics.Default().ObserveStore(backend, op, err, took)
	if err != nil && !errors.Is(err, homework.ErrNotFound) {
		logger.Error(ctx, "storage", "store."+op,
			slog.String("status", "fail"),
			slog.String("backend", backend),
			slog.String("path", s.path),
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
			slog.Duration("duration", logger.RoundMS(took)),
		)
	}
}

// load reads the document; callers hold mu.
func (s *Store) load() (document, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return make(document), nil
	}
	if err != nil {
		return nil, fmt.Errorf("filestore read: %w", err)
	}
	doc, err := decodeDocument(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, s.path, err)
	}
	return doc, nil
}

// save replaces the file atomically; callers hold mu.
func (s *Store) save(doc document) (err error) {
	data, err := doc.encode()
	if err != nil {
		return fmt.Errorf("filestore encode: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("filestore temp: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			_ = os.Remove(tmpName)
		}
	}()
	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("filestore write: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("filestore sync: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("filestore close: %w", err)
	}
	if err = os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("filestore rename: %w", err)
	}
	return nil
}

// update runs fn on the loaded document and saves it when fn succeeds.
func (s *Store) update(fn func(doc document) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.load()
	if err != nil {
		return err
	}
	if err := fn(doc); err != nil {
		return err
	}
	return s.save(doc)
}

func (s *Store) read() (document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func ownerKey(owner int64) string { return strconv.FormatInt(owner, 10) }

// entries converts one owner's map, skipping keys that are not valid dates.
func (s *Store) entries(ctx context.Context, dates map[string]items) []homework.Entry {
	out := make([]homework.Entry, 0, len(dates))
	for key, list := range dates {
		d, err := homework.ParseDate(key)
		if err != nil {
			logger.Warn(ctx, "storage", "store.skip_key",
				slog.String("status", "skip"),
				slog.String("backend", backend),
				slog.String("date", logger.SanitizeLimit(key, 32)),
			)
			continue
		}
		out = append(out, homework.Entry{Date: d, Items: slices.Clone([]string(list))})
	}
	homework.SortDescending(out)
	return out
}

// Get loads one entry.
func (s *Store) Get(ctx context.Context, owner int64, date homework.Date) (entry homework.Entry, err error) {
	defer func(start time.Time) { s.observe(ctx, "get", start, err) }(time.Now())

	doc, err := s.read()
	if err != nil {
		return homework.Entry{}, err
	}
	list, ok := doc[ownerKey(owner)][date.String()]
	if !ok {
		return homework.Entry{}, homework.ErrNotFound
	}
	return homework.Entry{Date: date, Items: slices.Clone([]string(list))}, nil
}

// Put replaces the entry for entry.Date.
func (s *Store) Put(ctx context.Context, owner int64, entry homework.Entry) (err error) {
	defer func(start time.Time) { s.observe(ctx, "put", start, err) }(time.Now())

	return s.update(func(doc document) error {
		key := ownerKey(owner)
		if doc[key] == nil {
			doc[key] = make(map[string]items)
		}
		doc[key][entry.Date.String()] = slices.Clone(entry.Items)
		return nil
	})
}

// Delete removes one entry.
func (s *Store) Delete(ctx context.Context, owner int64, date homework.Date) (err error) {
	defer func(start time.Time) { s.observe(ctx, "delete", start, err) }(time.Now())

	return s.update(func(doc document) error {
		dates := doc[ownerKey(owner)]
		if _, ok := dates[date.String()]; !ok {
			return homework.ErrNotFound
		}
		delete(dates, date.String())
		return nil
	})
}

// ListDates returns the owner's dates, latest first.
func (s *Store) ListDates(ctx context.Context, owner int64) (dates []homework.Date, err error) {
	defer func(start time.Time) { s.observe(ctx, "list_dates", start, err) }(time.Now())

	doc, err := s.read()
	if err != nil {
		return nil, err
	}
	for _, e := range s.entries(ctx, doc[ownerKey(owner)]) {
		dates = append(dates, e.Date)
	}
	return dates, nil
}

// List returns the owner's entries, latest first.
func (s *Store) List(ctx context.Context, owner int64) (entries []homework.Entry, err error) {
	defer func(start time.Time) { s.observe(ctx, "list", start, err) }(time.Now())

	doc, err := s.read()
	if err != nil {
		return nil, err
	}
	return s.entries(ctx, doc[ownerKey(owner)]), nil
}

// Clear replaces the owner's entries with an empty mapping.
func (s *Store) Clear(ctx context.Context, owner int64) (err error) {
	defer func(start time.Time) { s.observe(ctx, "clear", start, err) }(time.Now())

	return s.update(func(doc document) error {
		doc[ownerKey(owner)] = make(map[string]items)
		return nil
	})
}

// Stats counts owners with entries, entries and items.
func (s *Store) Stats(ctx context.Context) (st homework.Stats, err error) {
	defer func(start time.Time) { s.observe(ctx, "stats", start, err) }(time.Now())

	doc, err := s.read()
	if err != nil {
		return homework.Stats{}, err
	}
	for _, dates := range doc {
		if len(dates) > 0 {
			st.Owners++
		}
		for _, list := range dates {
			st.Entries++
			st.Items += len(list)
		}
	}
	return st, nil
}

// Owners returns every owner id present in the document.
func (s *Store) Owners(ctx context.Context) ([]int64, error) {
	doc, err := s.read()
	if err != nil {
		return nil, err
	}
	owners := make([]int64, 0, len(doc))
	for key := range doc {
		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			logger.Warn(ctx, "storage", "store.skip_owner",
				slog.String("status", "skip"),
				slog.String("backend", backend),
				slog.String("owner", logger.SanitizeLimit(key, 32)),
			)
			continue
		}
		owners = append(owners, id)
	}
	slices.Sort(owners)
	return owners, nil
}

// Close is a no-op; the file is not held open.
func (s *Store) Close() error { return nil }

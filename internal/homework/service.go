package homework

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/m3rciful/homeworkbot/core/logger"
	"github.com/m3rciful/homeworkbot/core/metrics"
)

// SharedOwner partitions the store when every user shares one list.
const SharedOwner int64 = 0

const component = "service.homework"

// Options configures NewService.
type Options struct {
	// Shared stores every user's homework under SharedOwner.
	Shared bool
	// Now overrides the clock in tests.
	Now func() time.Time
}

// Service implements homework operations on top of a Store.
type Service struct {
	store  Store
	shared bool
	now    func() time.Time
}

// NewService wraps store.
func NewService(store Store, opts Options) *Service {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Service{store: store, shared: opts.Shared, now: now}
}

// Owner maps a Telegram user to the store partition.
func (s *Service) Owner(userID int64) int64 {
	if s.shared {
		return SharedOwner
	}
	return userID
}

// Save replaces the entry for date with items.
func (s *Service) Save(ctx context.Context, userID int64, date Date, items []string) (Entry, error) {
	if len(items) == 0 {
		return Entry{}, ErrNothingToSave
	}
	owner := s.Owner(userID)
	entry := Entry{
		Date:      date,
		Items:     slices.Clone(items),
		UpdatedAt: s.now().UTC(),
	}
	if err := s.store.Put(ctx, owner, entry); err != nil {
		s.logFailure(ctx, "homework.save", owner, err, slog.String("date", date.String()))
		return Entry{}, fmt.Errorf("save homework: %w", err)
	}
	metrics.Default().AddItems(len(items))
	logger.Info(ctx, component, "homework.saved",
		slog.String("status", "ok"),
		slog.Int64("owner_id", owner),
		slog.String("date", date.String()),
		slog.Int("items", len(items)),
	)
	return entry, nil
}

// List returns the user's entries, latest date first.
func (s *Service) List(ctx context.Context, userID int64) ([]Entry, error) {
	owner := s.Owner(userID)
	entries, err := s.store.List(ctx, owner)
	if err != nil {
		s.logFailure(ctx, "homework.list", owner, err)
		return nil, fmt.Errorf("list homework: %w", err)
	}
	SortDescending(entries)
	return entries, nil
}

// Digest renders the user's list and splits it into sendable parts.
// An empty list yields no parts.
func (s *Service) Digest(ctx context.Context, userID int64) ([]string, error) {
	entries, err := s.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	parts := SplitMessage(RenderList(entries), MaxMessageLen)
	logger.Debug(ctx, component, "homework.listed",
		slog.String("status", statusFor(len(entries))),
		slog.Int64("owner_id", s.Owner(userID)),
		slog.Int("entries", len(entries)),
		slog.Int("chunks", len(parts)),
	)
	return parts, nil
}

// ClearAll removes every entry of the user.
func (s *Service) ClearAll(ctx context.Context, userID int64) error {
	owner := s.Owner(userID)
	if err := s.store.Clear(ctx, owner); err != nil {
		s.logFailure(ctx, "homework.clear", owner, err)
		return fmt.Errorf("clear homework: %w", err)
	}
	logger.Info(ctx, component, "homework.cleared",
		slog.String("status", "ok"),
		slog.Int64("owner_id", owner),
	)
	return nil
}

// DeleteDate removes the entry for date. It returns ErrNotFound when the
// user has nothing recorded for that date.
func (s *Service) DeleteDate(ctx context.Context, userID int64, date Date) error {
	owner := s.Owner(userID)
	err := s.store.Delete(ctx, owner, date)
	switch {
	case errors.Is(err, ErrNotFound):
		logger.Info(ctx, component, "homework.delete",
			slog.String("status", "not_found"),
			slog.Int64("owner_id", owner),
			slog.String("date", date.String()),
		)
		return ErrNotFound
	case err != nil:
		s.logFailure(ctx, "homework.delete", owner, err, slog.String("date", date.String()))
		return fmt.Errorf("delete homework: %w", err)
	}
	logger.Info(ctx, component, "homework.delete",
		slog.String("status", "ok"),
		slog.Int64("owner_id", owner),
		slog.String("date", date.String()),
	)
	return nil
}

// Dates returns the user's dates, latest first.
func (s *Service) Dates(ctx context.Context, userID int64) ([]Date, error) {
	owner := s.Owner(userID)
	dates, err := s.store.ListDates(ctx, owner)
	if err != nil {
		s.logFailure(ctx, "homework.dates", owner, err)
		return nil, fmt.Errorf("list dates: %w", err)
	}
	slices.SortStableFunc(dates, func(a, b Date) int { return b.Compare(a) })
	return dates, nil
}

// Stats summarises the store.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	st, err := s.store.Stats(ctx)
	if err != nil {
		s.logFailure(ctx, "homework.stats", 0, err)
		return Stats{}, fmt.Errorf("homework stats: %w", err)
	}
	return st, nil
}

func (s *Service) logFailure(ctx context.Context, event string, owner int64, err error, attrs ...slog.Attr) {
	base := []slog.Attr{
		slog.String("status", "fail"),
		slog.Int64("owner_id", owner),
		slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
	}
	logger.Error(ctx, component, event, append(base, attrs...)...)
}

func statusFor(n int) string {
	if n == 0 {
		return "empty"
	}
	return "ok"
}

package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/m3rciful/homeworkbot/core/logger"
)

// Storage represents shared infrastructure passed to seeders.
type Storage interface{}

// Seeder loads data into a storage implementation.
type Seeder interface {
	Seed(ctx context.Context, storage Storage) error
}

// SeederFunc adapts a bare function to the Seeder interface.
type SeederFunc func(ctx context.Context, storage Storage) error

// Seed executes the underlying function.
func (f SeederFunc) Seed(ctx context.Context, storage Storage) error {
	return f(ctx, storage)
}

// Modules groups optional bootstrapping hooks.
type Modules struct {
	Seeders []Seeder
}

// RunSeeders executes every seeder in order and stops at the first failure.
func (m Modules) RunSeeders(ctx context.Context, storage Storage) error {
	for i, s := range m.Seeders {
		if s == nil {
			continue
		}
		start := time.Now()
		err := s.Seed(ctx, storage)
		logger.Debug(ctx, "db.seed", "seed.run",
			slog.String("status", logger.Status(err)),
			slog.Int("index", i),
			slog.Duration("duration", logger.RoundMS(time.Since(start))),
		)
		if err != nil {
			return fmt.Errorf("bootstrap: seeder %d: %w", i, err)
		}
	}
	return nil
}

package filestore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/m3rciful/homeworkbot/core/logger"
	"github.com/m3rciful/homeworkbot/internal/homework"
)

// ImportResult counts what Import copied.
type ImportResult struct {
	Owners  int
	Entries int
}

// ImportedSuffix is appended to a document once Import has copied it.
const ImportedSuffix = ".imported"

// Import copies every entry from the JSON document at path into dst,
// replacing entries with the same owner and date, then renames the file with
// ImportedSuffix so the next start does not import it again. A missing file
// imports nothing.
func Import(ctx context.Context, path string, dst homework.Store) (ImportResult, error) {
	var res ImportResult
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		logger.Debug(ctx, "db.seed", "seed.import",
			slog.String("status", "skip"),
			slog.String("path", path),
		)
		return res, nil
	}
	src, err := New(path)
	if err != nil {
		return res, err
	}
	owners, err := src.Owners(ctx)
	if err != nil {
		return res, fmt.Errorf("import %s: %w", path, err)
	}
	for _, owner := range owners {
		entries, err := src.List(ctx, owner)
		if err != nil {
			return res, fmt.Errorf("import %s owner %d: %w", path, owner, err)
		}
		if len(entries) == 0 {
			continue
		}
		for _, e := range entries {
			if err := dst.Put(ctx, owner, e); err != nil {
				return res, fmt.Errorf("import %s owner %d date %s: %w", path, owner, e.Date, err)
			}
		}
		res.Owners++
		res.Entries += len(entries)
	}
	if err := os.Rename(path, path+ImportedSuffix); err != nil {
		return res, fmt.Errorf("import %s: mark imported: %w", path, err)
	}
	logger.Info(ctx, "db.seed", "seed.import",
		slog.String("status", "ok"),
		slog.String("path", path),
		slog.Int("owners", res.Owners),
		slog.Int("entries", res.Entries),
	)
	return res, nil
}

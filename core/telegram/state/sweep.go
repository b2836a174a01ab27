package state

import (
	"context"
	"log/slog"
	"time"

	"github.com/m3rciful/homeworkbot/core/logger"
)

// RunSweeper calls Sweep every interval until ctx is done. report, when set,
// receives the live session count after each pass.
func RunSweeper[S any](ctx context.Context, mgr Manager[S], every time.Duration, report func(live int)) {
	if mgr == nil || every <= 0 {
		return
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed := mgr.Sweep()
			live := mgr.Len()
			if removed > 0 {
				logger.Debug(ctx, "tg", "fsm.sweep",
					slog.Int("count", removed),
					slog.Int("pending_count", live),
				)
			}
			if report != nil {
				report(live)
			}
		}
	}
}

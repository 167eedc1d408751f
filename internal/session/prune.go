package session

import (
	"context"
	"log/slog"
	"time"
)

// Prune deletes expired sessions from store every interval until ctx is
// done. It is meant for the durable stores; MemoryStore has StartPruning.
func Prune(ctx context.Context, store Store, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := store.DeleteExpired(ctx, time.Now())
			switch {
			case err != nil && ctx.Err() == nil:
				logger.Error("pruning sessions", slog.String("error", err.Error()))
			case n > 0:
				logger.Debug("pruned expired sessions", slog.Int64("count", n))
			}
		}
	}
}

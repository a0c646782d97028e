package session

import (
	"context"
	"log/slog"
	"math/rand"
	"time"

	"github.com/zayedali554/udaylive-bot/telemetry"
)

// StartSweeper launches a goroutine that periodically removes expired admin
// sessions and refreshes the active-session gauge. Backends with native TTL
// eviction (Redis) report zero deletions; the gauge update still applies.
// interval: how often to wake up; defaults to 10m when non-positive.
func StartSweeper(ctx context.Context, store Store, interval time.Duration) {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	// Randomize initial delay to spread load across instances.
	//nolint:gosec // G404: math/rand is sufficient for scheduling jitter, not used for security
	initialJitter := time.Duration(rand.Int63n(int64(interval / 2)))
	go func() {
		select {
		case <-ctx.Done():
			return
		case <-time.After(initialJitter):
		}
		for {
			sctx, cancel := context.WithTimeout(ctx, 15*time.Second)
			n, err := store.DeleteExpired(sctx)
			if err != nil {
				slog.Warn("session sweep failed", slog.Any("err", err))
			} else if n > 0 {
				slog.Info("expired admin sessions removed", slog.Int("count", n))
			}
			if count, err := store.Count(sctx); err == nil {
				telemetry.SetActiveSessions(count)
			}
			cancel()

			// Per-iteration jitter (±20% of interval) for scheduling diversity.
			jitterRange := int64(interval / 5)
			//nolint:gosec // G404: math/rand is sufficient for scheduling jitter, not used for security
			jitter := time.Duration(rand.Int63n(jitterRange*2) - jitterRange)
			nextSleep := interval + jitter
			if nextSleep < interval/2 {
				nextSleep = interval / 2
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(nextSleep):
			}
		}
	}()
}

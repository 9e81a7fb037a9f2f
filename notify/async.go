package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/alitto/pond/v2"
)

// Async runs the wrapped notifier on a worker pool so callers return as soon as
// their transaction commits. Failures are logged, never returned.
type Async struct {
	next    Notifier
	pool    pond.Pool
	logger  *slog.Logger
	timeout time.Duration
}

func NewAsync(next Notifier, workers, queueSize int, logger *slog.Logger) *Async {
	return &Async{
		next:    next,
		pool:    pond.NewPool(workers, pond.WithQueueSize(queueSize)),
		logger:  logger,
		timeout: time.Minute,
	}
}

// Notify queues the event. The caller's context only carries values; delivery gets
// its own deadline so it outlives the request that raised it.
func (a *Async) Notify(ctx context.Context, event Event) error {
	deliveryCtx := context.WithoutCancel(ctx)
	a.pool.Submit(func() {
		ctx, cancel := context.WithTimeout(deliveryCtx, a.timeout)
		defer cancel()
		if err := a.next.Notify(ctx, event); err != nil {
			a.logger.Error("notification delivery failed",
				slog.String("kind", string(event.Kind)), slog.Int("pyramid_id", event.PyramidID),
				slog.Int("match_id", event.MatchID), slog.Any("error", err))
		}
	})
	return nil
}

// Close waits for queued deliveries to finish.
func (a *Async) Close() {
	a.pool.StopAndWait()
	a.logger.Info("notification pool drained", slog.Uint64("delivered", a.pool.CompletedTasks()))
}

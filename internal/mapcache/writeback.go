package mapcache

import (
	"context"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// RunWriteBack drains the cache's job queue with workerCount workers,
// throttled by limiter against backend, until ctx is cancelled. Backend
// errors are logged and do not roll back cache state (spec.md §4.8/§7's
// eventual-consistency contract); the workers are a small fixed pool drawn
// from a single errgroup, independent of any one session's lifetime
// (SPEC_FULL.md §5).
func (c *Cache) RunWriteBack(ctx context.Context, backend Backend, workerCount int, limiter *rate.Limiter) error {
	if workerCount <= 0 {
		workerCount = 4
	}
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Inf, 1)
	}

	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < workerCount; i++ {
		g.Go(func() error {
			return c.writeBackWorker(ctx, backend, limiter)
		})
	}
	return g.Wait()
}

func (c *Cache) writeBackWorker(ctx context.Context, backend Backend, limiter *rate.Limiter) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case job := <-c.jobs:
			if err := limiter.Wait(ctx); err != nil {
				return nil // context cancelled while waiting for a token
			}
			c.applyJob(ctx, backend, job)
		}
	}
}

func (c *Cache) applyJob(ctx context.Context, backend Backend, job WriteBackJob) {
	var err error
	switch job.Kind {
	case JobUpsertArea:
		err = backend.UpsertArea(ctx, job.Area)
	case JobUpsertRoom:
		err = backend.UpsertRoom(ctx, job.Room)
	case JobUpsertExit:
		err = backend.UpsertExit(ctx, job.Exit)
	case JobDeleteRoom:
		err = backend.DeleteRoom(ctx, job.DeleteArea, job.DeleteRoomNo)
	case JobDeleteExit:
		err = backend.DeleteExit(ctx, job.DeleteExitID)
	case JobSetCurrentLocation:
		err = backend.SetCurrentLocation(ctx, job.CurrentArea, job.CurrentRoom)
	}
	if err != nil {
		c.logger.Warn("mapcache: write-back failed", "kind", job.Kind, "error", err)
	}
}

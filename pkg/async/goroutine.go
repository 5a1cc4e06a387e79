package async

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/platinummonkey/filtros/pkg/observability"
)

// Run executes fn with:
// - Context cancellation support
// - Panic recovery
// - Timeout enforcement
//
// A panic is converted into the returned error.
func Run(parentCtx context.Context, logger *observability.Logger, timeout time.Duration, taskName string, fn func(context.Context) error) (err error) {
	ctx, cancel := context.WithTimeout(parentCtx, timeout)
	defer cancel()

	defer observability.RecoverPanicWithCallback(logger, taskName, func(r interface{}) {
		err = observability.PanicError(r)
	})

	return fn(ctx)
}

// SafeGo executes Run in a goroutine and logs its error. The returned channel is
// closed when the task has finished.
//
// Use this instead of bare `go func()` to prevent goroutine leaks and crashes.
//
// Example:
//
//	async.SafeGo(ctx, logger, 30*time.Second, "stats refresh", func(ctx context.Context) error {
//	    return collector.Refresh(ctx)
//	})
func SafeGo(parentCtx context.Context, logger *observability.Logger, timeout time.Duration, taskName string, fn func(context.Context) error) <-chan struct{} {
	if logger == nil {
		logger = observability.NopLogger()
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := Run(parentCtx, logger, timeout, taskName, fn); err != nil {
			// Caller can decide if this is critical or not
			logger.WithError(err).WithField("task", taskName).Error("Background task failed")
		}
	}()
	return done
}

// Batch processes items concurrently with at most workers goroutines. Every item
// runs with its own timeout and panic recovery. Returns all errors encountered.
//
// Example:
//
//	errs := async.Batch(ctx, logger, filters, 4, "seed filters", 10*time.Second, func(ctx context.Context, f FilterSeed) error {
//	    return apply(ctx, f)
//	})
func Batch[T any](ctx context.Context, logger *observability.Logger, items []T, workers int, taskName string, timeout time.Duration,
	fn func(context.Context, T) error) []error {

	if workers < 1 {
		workers = 1
	}

	var (
		mu   sync.Mutex
		errs []error
		g    errgroup.Group
	)
	g.SetLimit(workers)

	for i, item := range items {
		g.Go(func() error {
			err := Run(ctx, logger, timeout, taskName, func(ctx context.Context) error {
				return fn(ctx, item)
			})
			if err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s item %d: %w", taskName, i, err))
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return errs
}

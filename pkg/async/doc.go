// Package async provides safe concurrent execution primitives for background tasks.
//
// # Key Functions
//
// Run: execute a function with a timeout and panic recovery
//
// SafeGo: Run in a goroutine, logging the error
//
//	done := async.SafeGo(ctx, logger, 30*time.Second, "gauge refresh", func(ctx context.Context) error {
//		return collector.Refresh(ctx)
//	})
//
// Batch: bounded concurrent processing of a slice
//
//	errs := async.Batch(ctx, logger, jobs, 4, "maintenance", time.Minute, func(ctx context.Context, j Job) error {
//		return j.Run(ctx)
//	})
//
// # Related Packages
//
//   - pkg/jobs: runs scheduled work through Run and Batch
package async

package async

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/Fooddie-KLTN/fooddie-admin/pkg/observability"
)

// SafeGo executes a function in a goroutine with:
// - Context cancellation support
// - Panic recovery
// - Timeout enforcement
// - Error logging
//
// The returned channel is closed once fn has returned (or panicked).
//
// Example:
//
//	SafeGo(ctx, logger, 30*time.Second, "refresh members", func(ctx context.Context) error {
//	    return listing.Refresh(ctx)
//	})
func SafeGo(parentCtx context.Context, logger *observability.Logger, timeout time.Duration, taskName string, fn func(context.Context) error) <-chan struct{} {
	if logger == nil {
		logger = observability.NopLogger()
	}
	done := make(chan struct{})
	go func() {
		defer close(done)

		ctx, cancel := context.WithTimeout(parentCtx, timeout)
		defer cancel()

		defer func() {
			if r := recover(); r != nil {
				logger.WithField("task", taskName).
					WithField("panic", fmt.Sprint(r)).
					WithField("stack", string(debug.Stack())).
					Error("PANIC recovered in background task")
			}
		}()

		if err := fn(ctx); err != nil {
			logger.WithField("task", taskName).WithError(err).Warn("Background task failed")
		}
	}()
	return done
}

// Package async provides the background execution primitives used by the
// console workflows.
//
// SafeGo runs a task in a goroutine with panic recovery, a timeout and error
// logging:
//
//	done := async.SafeGo(ctx, logger, 30*time.Second, "refresh members", func(ctx context.Context) error {
//		return listing.Refresh(ctx)
//	})
//	<-done
//
// Debouncer coalesces bursts of calls (such as keystrokes in a search box)
// into one call made after the input has been quiet for a fixed delay:
//
//	d := async.NewDebouncer(300 * time.Millisecond)
//	d.Trigger(func() { search(query) })
//	defer d.Stop()
package async

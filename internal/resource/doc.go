// Package resource accounts the vector memory and search concurrency of one
// runtime.
//
// Memory is a fail-fast budget. Reserve never blocks; it either accounts the
// bytes or returns ErrMemoryLimitExceeded and leaves the caller to decide:
//
//	if err := rc.Reserve(int64(len(x)) * 4); err != nil {
//	    return err
//	}
//
// The figure counts float32 input handed to Add, not the native footprint.
//
// Searches are admitted through an optional token bucket and a slot
// semaphore:
//
//	if err := rc.Admit(ctx); err != nil {
//	    return err
//	}
//	defer rc.Done()
//
// Methods on a nil *Controller are no-ops.
package resource

package health

import (
	"context"
	"runtime"

	"github.com/go-faster/errors"
)

// GoroutineCountCheck reports unhealthy when the goroutine count exceeds the
// threshold. Useful as a liveness check against leaks.
func GoroutineCountCheck(threshold int) CheckFunc {
	return func(_ context.Context) error {
		if n := runtime.NumGoroutine(); n > threshold {
			return errors.Errorf("goroutine count %d exceeds threshold %d", n, threshold)
		}
		return nil
	}
}

// Pinger is satisfied by pgxpool.Pool and sql.DB.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingCheck reports unhealthy when the store does not answer a ping within
// the check timeout.
func PingCheck(p Pinger) CheckFunc {
	return func(ctx context.Context) error {
		if err := p.Ping(ctx); err != nil {
			return errors.Wrap(err, "ping")
		}
		return nil
	}
}

// HeapAllocCheck reports unhealthy when the live heap exceeds maxBytes.
// Useful as a liveness check against unbounded caches.
func HeapAllocCheck(maxBytes uint64) CheckFunc {
	return func(_ context.Context) error {
		var ms runtime.MemStats
		runtime.ReadMemStats(&ms)
		if ms.HeapAlloc > maxBytes {
			return errors.Errorf("heap alloc %d exceeds limit %d", ms.HeapAlloc, maxBytes)
		}
		return nil
	}
}

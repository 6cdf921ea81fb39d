// Package latency simulates configured response delays.
package latency

import (
	"context"
	"time"
)

// Sleep suspends the calling request for ms milliseconds. Zero or negative
// durations are a no-op. Only the calling goroutine blocks; concurrent
// requests are unaffected. Returns ctx.Err() if the client goes away
// mid-delay.
func Sleep(ctx context.Context, ms int) error {
	if ms <= 0 {
		return nil
	}

	timer := time.NewTimer(time.Duration(ms) * time.Millisecond)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

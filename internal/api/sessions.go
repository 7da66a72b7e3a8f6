package api

import (
	"context"
	"time"

	"skibook/internal/metrics"
)

// SweepSessions drops selection sessions and open carts idle for longer than idle.
// Persisted carts stay in their repository and are reloaded on the next request.
func (s *HTTPServer) SweepSessions(idle time.Duration) (selections, carts int) {
	selections = s.selections.Cleanup(idle)
	carts = s.carts.Cleanup(idle)
	metrics.AddSessionsEvicted("selection", selections)
	metrics.AddSessionsEvicted("cart", carts)
	return selections, carts
}

// RunSessionSweeper calls SweepSessions every interval until ctx is done.
func (s *HTTPServer) RunSessionSweeper(ctx context.Context, idle, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sel, carts := s.SweepSessions(idle)
			if sel > 0 || carts > 0 {
				s.logger.Debug().Int("selections", sel).Int("carts", carts).Msg("idle sessions removed")
			}
		}
	}
}

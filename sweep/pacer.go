package sweep

import (
	"context"
	"time"
)

// Pacer holds the fixed pause taken between two consecutive remote calls.
// The pause starts when the previous call has returned, so a slow endpoint
// still gets the full delay on top of its own latency.
type Pacer struct {
	delay time.Duration
}

// NewPacer returns a pacer for the given pause. A zero or negative delay
// never blocks.
func NewPacer(delay time.Duration) *Pacer {
	if delay < 0 {
		delay = 0
	}
	return &Pacer{delay: delay}
}

// Delay is the configured pause
func (p *Pacer) Delay() time.Duration {
	return p.delay
}

// Pause blocks for the full delay or until ctx is done
func (p *Pacer) Pause(ctx context.Context) error {
	if p.delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(p.delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

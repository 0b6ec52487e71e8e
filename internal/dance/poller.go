package dance

import (
	"context"
	"time"
)

// Poller repeats a probe at a fixed interval with a bounded attempt budget.
type Poller struct {
	Interval    time.Duration
	MaxAttempts int
}

// Wait calls probe until it reports done, the attempt budget runs out, or the
// context is canceled. It returns true when the probe succeeded and false when
// attempts were exhausted. Probe errors end the wait immediately.
func (p Poller) Wait(ctx context.Context, probe func(context.Context) (bool, error)) (bool, error) {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return false, err
		}

		done, err := probe(ctx)
		if err != nil {
			return false, err
		}
		if done {
			return true, nil
		}
		if attempt == attempts {
			break
		}

		timer := time.NewTimer(p.Interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return false, ctx.Err()
		case <-timer.C:
		}
	}
	return false, nil
}

package scraper

import (
	"context"
	"sync"
	"time"
)

// pacer spaces item fetches by a random gap drawn from [min, max].
//
// In parallel mode slots are handed out in call order across all workers,
// so the gap is an aggregate ceiling on item starts. In sequential mode the
// gap is also counted from the moment the previous item finished, so a slow
// item is still followed by a full pause.
type pacer struct {
	rng        *lockedRand
	min, max   time.Duration
	sequential bool

	mu   sync.Mutex
	next time.Time
}

func newPacer(rng *lockedRand, min, max time.Duration, sequential bool) *pacer {
	return &pacer{rng: rng, min: min, max: max, sequential: sequential}
}

// Wait blocks until the caller's slot opens or ctx is done.
func (p *pacer) Wait(ctx context.Context) error {
	p.mu.Lock()
	now := time.Now()
	start := p.next
	if start.Before(now) {
		start = now
	}
	p.next = start.Add(p.rng.Between(p.min, p.max))
	p.mu.Unlock()

	return sleepContext(ctx, time.Until(start))
}

// Done marks the end of an item. In sequential mode it pushes the next slot
// to at least one gap after now.
func (p *pacer) Done() {
	if !p.sequential {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if after := time.Now().Add(p.rng.Between(p.min, p.max)); after.After(p.next) {
		p.next = after
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

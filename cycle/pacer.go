package cycle

import (
	"context"
	"sync"
	"time"
)

// pacer keeps at least delay between the end of one platform action and the
// start of the next. It lives on the Runner so the gap also holds across runs.
type pacer struct {
	mu    sync.Mutex
	delay time.Duration
	last  time.Time
	now   func() time.Time
}

func newPacer(delay time.Duration) *pacer {
	return &pacer{delay: delay, now: time.Now}
}

// wait blocks until delay has passed since the last done. It returns
// immediately before the first action.
func (p *pacer) wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	var remaining time.Duration
	if !p.last.IsZero() && p.delay > 0 {
		remaining = p.delay - p.now().Sub(p.last)
	}
	p.mu.Unlock()
	if remaining <= 0 {
		return nil
	}

	t := time.NewTimer(remaining)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// done marks the end of an action, successful or not.
func (p *pacer) done() {
	p.mu.Lock()
	p.last = p.now()
	p.mu.Unlock()
}

package scraper

import (
	"context"
	"fmt"
	"time"

	"github.com/use-agent/stylegrab/engine"
)

// DefaultSettleDelay is the fixed wait after navigation when nothing else
// is configured.
const DefaultSettleDelay = 5 * time.Second

// SettlePolicy decides when a freshly navigated page is ready to be read.
// Settling never fails a scrape: a returned error is informational and
// the run proceeds to location regardless.
type SettlePolicy interface {
	Settle(ctx context.Context, sess engine.Session) error
}

// FixedDelay waits a constant duration, or until ctx is done.
type FixedDelay struct {
	Delay time.Duration
}

func (f FixedDelay) Settle(ctx context.Context, _ engine.Session) error {
	if f.Delay <= 0 {
		return nil
	}
	t := time.NewTimer(f.Delay)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f FixedDelay) String() string { return fmt.Sprintf("fixed(%s)", f.Delay) }

// WaitForSelector polls until at least one element matches Selector or
// Timeout elapses.
type WaitForSelector struct {
	Selector string
	Timeout  time.Duration
	Interval time.Duration
}

func (w WaitForSelector) Settle(ctx context.Context, sess engine.Session) error {
	interval := w.Interval
	if interval <= 0 {
		interval = 250 * time.Millisecond
	}
	if w.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.Timeout)
		defer cancel()
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		nodes, err := sess.FindAll(ctx, w.Selector)
		if err == nil && len(nodes) > 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for %q: %w", w.Selector, ctx.Err())
		case <-ticker.C:
		}
	}
}

func (w WaitForSelector) String() string {
	return fmt.Sprintf("selector(%s, %s)", w.Selector, w.Timeout)
}

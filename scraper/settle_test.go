package scraper

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/use-agent/stylegrab/engine"
)

func TestFixedDelay(t *testing.T) {
	start := time.Now()
	if err := (FixedDelay{Delay: 20 * time.Millisecond}).Settle(context.Background(), nil); err != nil {
		t.Fatalf("Settle: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 20*time.Millisecond {
		t.Errorf("returned after %v, want >= 20ms", elapsed)
	}
}

func TestFixedDelay_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := (FixedDelay{Delay: time.Hour}).Settle(ctx, nil)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

// appearingSession reports no roots until the given number of polls.
type appearingSession struct {
	*fakeSession
	after int32
	polls atomic.Int32
}

func (s *appearingSession) FindAll(ctx context.Context, selector string) ([]engine.Node, error) {
	if s.polls.Add(1) <= s.after {
		return nil, nil
	}
	return s.fakeSession.FindAll(ctx, selector)
}

func TestWaitForSelector_ReturnsWhenPresent(t *testing.T) {
	sess := &appearingSession{fakeSession: newFakeSession(root(nil)), after: 2}
	w := WaitForSelector{Selector: RootSelector, Timeout: time.Second, Interval: 5 * time.Millisecond}

	if err := w.Settle(context.Background(), sess); err != nil {
		t.Fatalf("Settle: %v", err)
	}
	if got := sess.polls.Load(); got != 3 {
		t.Errorf("polled %d times, want 3", got)
	}
}

func TestWaitForSelector_TimesOut(t *testing.T) {
	sess := newFakeSession()
	w := WaitForSelector{Selector: RootSelector, Timeout: 30 * time.Millisecond, Interval: 5 * time.Millisecond}

	start := time.Now()
	err := w.Settle(context.Background(), sess)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want deadline exceeded", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("took %v, timeout not honoured", elapsed)
	}
}

func TestRun_SettleTimeoutStillExtracts(t *testing.T) {
	// A selector that never matches must not fail the run.
	rec := &Recorder{}
	c := &Collector{
		Acquirer: &fakeAcquirer{sess: newFakeSession(root(nil, img("/a.png"), pointer()))},
		Settle:   WaitForSelector{Selector: "section.never", Timeout: 20 * time.Millisecond, Interval: 5 * time.Millisecond},
		Reporter: rec,
	}
	res, err := c.Run(context.Background(), "https://example.com")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Records) != 1 {
		t.Errorf("got %d records, want 1", len(res.Records))
	}
}

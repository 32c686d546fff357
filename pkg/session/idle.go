package session

import (
	"context"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
)

const (
	DefaultIdleWindow      = 500 * time.Millisecond
	DefaultIdleMaxInflight = 2
	idlePollInterval       = 50 * time.Millisecond
)

// idleTracker counts in-flight network requests on one tab and reports quiescence:
// at most maxInflight requests outstanding, continuously, for window
type idleTracker struct {
	mu          sync.Mutex
	inflight    map[network.RequestID]struct{}
	quietSince  time.Time // Zero while above the threshold
	window      time.Duration
	maxInflight int
	now         func() time.Time
}

func newIdleTracker(window time.Duration, maxInflight int, now func() time.Time) *idleTracker {
	if window <= 0 {
		window = DefaultIdleWindow
	}
	if maxInflight < 0 {
		maxInflight = DefaultIdleMaxInflight
	}
	if now == nil {
		now = time.Now
	}
	return &idleTracker{
		inflight:    make(map[network.RequestID]struct{}),
		quietSince:  now(),
		window:      window,
		maxInflight: maxInflight,
		now:         now,
	}
}

// Observe feeds a CDP network event into the tracker; other events are ignored
func (t *idleTracker) Observe(ev interface{}) {
	switch e := ev.(type) {
	case *network.EventRequestWillBeSent:
		t.started(e.RequestID)
	case *network.EventLoadingFinished:
		t.finished(e.RequestID)
	case *network.EventLoadingFailed:
		t.finished(e.RequestID)
	}
}

func (t *idleTracker) started(id network.RequestID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.inflight[id] = struct{}{} // Redirect hops reuse the id
	if len(t.inflight) > t.maxInflight {
		t.quietSince = time.Time{}
	}
}

func (t *idleTracker) finished(id network.RequestID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.inflight, id)
	if len(t.inflight) <= t.maxInflight && t.quietSince.IsZero() {
		t.quietSince = t.now()
	}
}

// Inflight returns the number of outstanding requests
func (t *idleTracker) Inflight() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.inflight)
}

// Quiet reports whether the threshold has held for the whole window
func (t *idleTracker) Quiet() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return !t.quietSince.IsZero() && t.now().Sub(t.quietSince) >= t.window
}

// Reset restarts the quiet window, used right before a navigation begins
func (t *idleTracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.inflight = make(map[network.RequestID]struct{})
	t.quietSince = t.now()
}

// Wait blocks until Quiet or ctx is done
func (t *idleTracker) Wait(ctx context.Context) error {
	ticker := time.NewTicker(idlePollInterval)
	defer ticker.Stop()
	for {
		if t.Quiet() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

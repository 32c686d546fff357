package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func started(id string) *network.EventRequestWillBeSent {
	return &network.EventRequestWillBeSent{RequestID: network.RequestID(id)}
}

func finished(id string) *network.EventLoadingFinished {
	return &network.EventLoadingFinished{RequestID: network.RequestID(id)}
}

func failed(id string) *network.EventLoadingFailed {
	return &network.EventLoadingFailed{RequestID: network.RequestID(id)}
}

func TestIdleTracker_QuietAfterWindow(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	tr := newIdleTracker(500*time.Millisecond, 2, clock.Now)

	assert.False(t, tr.Quiet())
	clock.Advance(499 * time.Millisecond)
	assert.False(t, tr.Quiet())
	clock.Advance(time.Millisecond)
	assert.True(t, tr.Quiet())
}

func TestIdleTracker_ToleratesTwoInflight(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	tr := newIdleTracker(500*time.Millisecond, 2, clock.Now)

	tr.Observe(started("a"))
	tr.Observe(started("b"))
	assert.Equal(t, 2, tr.Inflight())

	clock.Advance(600 * time.Millisecond)
	assert.True(t, tr.Quiet(), "two long-polling requests must not block quiescence")
}

func TestIdleTracker_ThirdRequestResetsWindow(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	tr := newIdleTracker(500*time.Millisecond, 2, clock.Now)

	tr.Observe(started("a"))
	tr.Observe(started("b"))
	clock.Advance(400 * time.Millisecond)
	tr.Observe(started("c"))
	clock.Advance(400 * time.Millisecond)
	assert.False(t, tr.Quiet())

	tr.Observe(finished("c"))
	clock.Advance(499 * time.Millisecond)
	assert.False(t, tr.Quiet())
	clock.Advance(time.Millisecond)
	assert.True(t, tr.Quiet())
}

func TestIdleTracker_FailuresAndRedirects(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	tr := newIdleTracker(time.Second, 0, clock.Now)

	tr.Observe(started("doc"))
	tr.Observe(started("doc")) // Redirect hop
	assert.Equal(t, 1, tr.Inflight())

	tr.Observe(failed("doc"))
	assert.Equal(t, 0, tr.Inflight())
	tr.Observe(finished("unknown"))
	assert.Equal(t, 0, tr.Inflight())

	tr.Observe("not a network event")
	clock.Advance(time.Second)
	assert.True(t, tr.Quiet())
}

func TestIdleTracker_Reset(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	tr := newIdleTracker(500*time.Millisecond, 0, clock.Now)

	tr.Observe(started("a"))
	clock.Advance(time.Second)
	assert.False(t, tr.Quiet())

	tr.Reset()
	assert.Equal(t, 0, tr.Inflight())
	clock.Advance(500 * time.Millisecond)
	assert.True(t, tr.Quiet())
}

func TestIdleTracker_Defaults(t *testing.T) {
	tr := newIdleTracker(0, -1, nil)
	assert.Equal(t, DefaultIdleWindow, tr.window)
	assert.Equal(t, DefaultIdleMaxInflight, tr.maxInflight)
}

func TestIdleTracker_Wait(t *testing.T) {
	tr := newIdleTracker(20*time.Millisecond, 0, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, tr.Wait(ctx))
}

func TestIdleTracker_WaitHonoursContext(t *testing.T) {
	tr := newIdleTracker(time.Hour, 0, nil)
	tr.Observe(started("never-finishes"))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := tr.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

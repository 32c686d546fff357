package orchestrate

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// RenderStatus represents the current state of an in-flight render
type RenderStatus string

const (
	RenderStatusPending RenderStatus = "pending" // Waiting for a session slot or the launch limiter
	RenderStatusRunning RenderStatus = "running" // Browser session alive
)

// Render describes one in-flight renderUrl call
type Render struct {
	ID        string       `json:"id"`
	Host      string       `json:"host"`
	Status    RenderStatus `json:"status"`
	StartedAt time.Time    `json:"started_at"`

	cancel context.CancelFunc
}

// Tracker keeps the cancel function of every in-flight render so shutdown can abort their sessions
type Tracker struct {
	renders map[string]*Render
	mu      sync.RWMutex
}

// NewTracker creates an empty tracker
func NewTracker() *Tracker {
	return &Tracker{renders: make(map[string]*Render)}
}

// Start registers a render and returns a context that Cancel and CancelAll can abort
func (t *Tracker) Start(parent context.Context, host string) (Render, context.Context) {
	ctx, cancel := context.WithCancel(parent)
	r := &Render{
		ID:        uuid.New().String(),
		Host:      host,
		Status:    RenderStatusPending,
		StartedAt: time.Now(),
		cancel:    cancel,
	}

	t.mu.Lock()
	t.renders[r.ID] = r
	t.mu.Unlock()

	return *r, ctx
}

// MarkRunning records that the render owns a live session
func (t *Tracker) MarkRunning(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if r, ok := t.renders[id]; ok {
		r.Status = RenderStatusRunning
	}
}

// Finish forgets a render and releases its context
func (t *Tracker) Finish(id string) {
	t.mu.Lock()
	r, ok := t.renders[id]
	delete(t.renders, id)
	t.mu.Unlock()

	if ok {
		r.cancel()
	}
}

// Cancel aborts one render; its session is torn down by the owning call
func (t *Tracker) Cancel(id string) bool {
	t.mu.RLock()
	r, ok := t.renders[id]
	t.mu.RUnlock()

	if ok {
		r.cancel()
	}
	return ok
}

// CancelAll aborts every in-flight render
func (t *Tracker) CancelAll() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	for _, r := range t.renders {
		r.cancel()
	}
	return len(t.renders)
}

// List returns a snapshot of in-flight renders, oldest first
func (t *Tracker) List() []Render {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]Render, 0, len(t.renders))
	for _, r := range t.renders {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.Before(out[j].StartedAt) })
	return out
}

// Len returns the number of in-flight renders
func (t *Tracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.renders)
}

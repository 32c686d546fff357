package orchestrate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTracker_Lifecycle(t *testing.T) {
	tr := NewTracker()

	r, ctx := tr.Start(context.Background(), "example.com")
	require.NotEmpty(t, r.ID)
	assert.Equal(t, RenderStatusPending, r.Status)
	assert.Equal(t, 1, tr.Len())

	tr.MarkRunning(r.ID)
	list := tr.List()
	require.Len(t, list, 1)
	assert.Equal(t, RenderStatusRunning, list[0].Status)

	tr.Finish(r.ID)
	assert.Zero(t, tr.Len())
	assert.ErrorIs(t, ctx.Err(), context.Canceled)

	// Unknown ids are ignored
	tr.MarkRunning(r.ID)
	tr.Finish(r.ID)
	assert.False(t, tr.Cancel(r.ID))
}

func TestTracker_Cancel(t *testing.T) {
	tr := NewTracker()
	a, ctxA := tr.Start(context.Background(), "a.com")
	_, ctxB := tr.Start(context.Background(), "b.com")

	assert.True(t, tr.Cancel(a.ID))
	assert.Error(t, ctxA.Err())
	assert.NoError(t, ctxB.Err())
	assert.Equal(t, 2, tr.Len(), "cancelled renders stay listed until their owner finishes")

	assert.Equal(t, 2, tr.CancelAll())
	assert.Error(t, ctxB.Err())
}

func TestTracker_ParentCancellation(t *testing.T) {
	tr := NewTracker()
	parent, cancel := context.WithCancel(context.Background())
	_, ctx := tr.Start(parent, "a.com")

	cancel()
	assert.Error(t, ctx.Err())
}

func TestTracker_ListOrder(t *testing.T) {
	tr := NewTracker()
	first, _ := tr.Start(context.Background(), "first.com")
	second, _ := tr.Start(context.Background(), "second.com")

	list := tr.List()
	require.Len(t, list, 2)
	assert.False(t, list[1].StartedAt.Before(list[0].StartedAt))
	assert.ElementsMatch(t, []string{first.ID, second.ID}, []string{list[0].ID, list[1].ID})
}

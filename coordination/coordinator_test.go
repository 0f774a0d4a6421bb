package coordination

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCoordinator(t *testing.T) *Coordinator {
	t.Helper()
	c, err := New(t.TempDir(), nil, nil)
	require.NoError(t, err)
	return c
}

func TestBacklogDequeuesByPriorityThenCreatedAt(t *testing.T) {
	b, err := NewBacklog("")
	require.NoError(t, err)

	_, err = b.Enqueue("A", 3, "src", "componentA")
	require.NoError(t, err)
	_, err = b.Enqueue("B", 7, "src", "componentB")
	require.NoError(t, err)
	_, err = b.Enqueue("C", 7, "src", "componentC")
	require.NoError(t, err)

	first, err := b.Dequeue()
	require.NoError(t, err)
	assert.Equal(t, "B", first.Description)

	second, err := b.Dequeue()
	require.NoError(t, err)
	assert.Equal(t, "C", second.Description)

	third, err := b.Dequeue()
	require.NoError(t, err)
	assert.Equal(t, "A", third.Description)
}

func TestBacklogBoundsOneInFlightPerComponent(t *testing.T) {
	b, err := NewBacklog("")
	require.NoError(t, err)

	_, err = b.Enqueue("first", 5, "src", "shared")
	require.NoError(t, err)
	_, err = b.Enqueue("second", 5, "src", "shared")
	require.NoError(t, err)

	first, err := b.Dequeue()
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, "first", first.Description)

	// second item targets the same component, which already has an
	// in-flight item, so it must not be dequeued yet.
	blocked, err := b.Dequeue()
	require.NoError(t, err)
	assert.Nil(t, blocked)

	require.NoError(t, b.Complete(first.ID, true))

	second, err := b.Dequeue()
	require.NoError(t, err)
	require.NotNil(t, second)
	assert.Equal(t, "second", second.Description)
}

func TestHandleUserInputComponentImprovementEnqueuesBacklogItem(t *testing.T) {
	ctx := context.Background()
	c := newTestCoordinator(t)

	result := c.HandleUserInput(ctx, "refactor the discovery client", "user_1", InteractionComponentImprovement, map[string]interface{}{
		"priority":         8,
		"target_component": "discovery",
	})

	assert.Equal(t, InteractionCompleted, result.Status)
	assert.NotEmpty(t, result.Result["backlog_item_id"])

	items := c.Backlog.All()
	require.Len(t, items, 1)
	assert.Equal(t, 8, items[0].Priority)
	assert.Equal(t, "discovery", items[0].TargetComponent)
}

func TestHandleUserInputUnknownInteractionTypeFails(t *testing.T) {
	ctx := context.Background()
	c := newTestCoordinator(t)

	result := c.HandleUserInput(ctx, "do something", "user_1", InteractionType("NOT_A_REAL_TYPE"), nil)

	assert.Equal(t, InteractionFailed, result.Status)
	assert.Equal(t, "unknown_interaction_type", result.Result["error"])
}

func TestHandlerErrorFailsInteractionWithCapturedError(t *testing.T) {
	ctx := context.Background()
	c := newTestCoordinator(t)

	c.RegisterHandler(InteractionUserQuery, func(ctx context.Context, interaction *Interaction) (map[string]interface{}, error) {
		return nil, assert.AnError
	})

	result := c.HandleUserInput(ctx, "query", "user_1", InteractionUserQuery, nil)

	assert.Equal(t, InteractionFailed, result.Status)
	assert.Equal(t, assert.AnError.Error(), result.Result["error"])
}

func TestRegisterAndDeregisterAgent(t *testing.T) {
	ctx := context.Background()
	c := newTestCoordinator(t)

	_, err := c.RegisterAgent("bdi_1", "bdi", "worker", "0xabc", "sig", nil)
	require.NoError(t, err)

	reg, ok := c.Agents.Get("bdi_1")
	require.True(t, ok)
	assert.Equal(t, AgentRegistered, reg.Status)

	require.NoError(t, c.DeregisterAndShutdownAgent(ctx, "bdi_1"))

	_, ok = c.Agents.Get("bdi_1")
	assert.False(t, ok)
}

func TestDeregisterUnknownAgentErrors(t *testing.T) {
	ctx := context.Background()
	c := newTestCoordinator(t)

	err := c.DeregisterAndShutdownAgent(ctx, "nonexistent")
	assert.Error(t, err)
}

type shutdownRecorder struct {
	called bool
}

func (s *shutdownRecorder) Shutdown(ctx context.Context) error {
	s.called = true
	return nil
}

func TestDeregisterCallsShutdownOnRegisteredInstance(t *testing.T) {
	ctx := context.Background()
	c := newTestCoordinator(t)

	rec := &shutdownRecorder{}
	_, err := c.RegisterAgent("bdi_2", "bdi", "worker", "0xdef", "sig", rec)
	require.NoError(t, err)

	require.NoError(t, c.DeregisterAndShutdownAgent(ctx, "bdi_2"))
	assert.True(t, rec.called)
}

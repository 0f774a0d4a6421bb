package cognition

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itsneelabh/mindhive/bdi"
	"github.com/itsneelabh/mindhive/belief"
	"github.com/itsneelabh/mindhive/coordination"
	"github.com/itsneelabh/mindhive/core"
)

func newTestAgent(t *testing.T) (*Agent, *bdi.Agent) {
	t.Helper()
	beliefs, err := belief.New("", nil)
	require.NoError(t, err)

	bdiAgent := bdi.New("bdi_child", t.TempDir(), beliefs, nil, nil, nil)
	coord, err := coordination.New(t.TempDir(), nil, nil)
	require.NoError(t, err)

	agent := New("agint_test", bdiAgent, coord, nil, nil, nil)
	agent.SetCycleDelay(time.Millisecond)
	return agent, bdiAgent
}

func TestDecisionIsBDIDelegationWhenHealthyAndNoFailure(t *testing.T) {
	a, _ := newTestAgent(t)
	d := a.decide(perception{timestamp: time.Now()})
	assert.Equal(t, DecisionBDIDelegation, d.Type)
}

func TestDecisionIsSelfRepairWhenLLMNotOperationalRegardlessOfFailure(t *testing.T) {
	a, _ := newTestAgent(t)
	a.SetLLMOperational(false)

	d := a.decide(perception{timestamp: time.Now(), lastActionFailure: "boom"})
	assert.Equal(t, DecisionSelfRepair, d.Type)
}

func TestDecisionIsResearchOnPriorFailureWhenHealthy(t *testing.T) {
	a, _ := newTestAgent(t)
	d := a.decide(perception{timestamp: time.Now(), lastActionFailure: "boom"})
	assert.Equal(t, DecisionResearch, d.Type)
}

func TestPerceptionCarriesPreviousFailure(t *testing.T) {
	a, _ := newTestAgent(t)
	a.lastOutcome = &ActionOutcome{Success: false, Error: "previous failure"}

	p := a.perceive()
	require.NotNil(t, p.lastActionFailure)
}

func TestResearchWithoutSearcherReportsUnavailable(t *testing.T) {
	a, _ := newTestAgent(t)
	outcome := a.actResearch(context.Background(), decision{Type: DecisionResearch, Details: map[string]interface{}{}})
	assert.False(t, outcome.Success)
	assert.Equal(t, "WebSearchTool not available", outcome.Error)
}

func TestBDIDelegationRunsChildAgentAndMapsOutcome(t *testing.T) {
	a, _ := newTestAgent(t)
	outcome := a.actBDIDelegation(context.Background(), decision{
		Type:    DecisionBDIDelegation,
		Details: map[string]interface{}{"task_description": "trivial task"},
	})
	assert.True(t, outcome.Success)
}

func TestSelfRepairRequiresVerificationBeforeFlippingOperational(t *testing.T) {
	a, _ := newTestAgent(t)
	a.SetLLMOperational(false)

	outcome := a.actSelfRepair(context.Background(), decision{Type: DecisionSelfRepair, Details: map[string]interface{}{}})
	assert.False(t, outcome.Success)
	assert.False(t, a.llmOperational)
}

type stubHealthyTextGen struct{}

func (stubHealthyTextGen) GenerateResponse(ctx context.Context, prompt string, options *core.AIOptions) (*core.AIResponse, error) {
	return &core.AIResponse{Content: "OK"}, nil
}

func TestSelfRepairFlipsOperationalOnVerifiedHealthCheck(t *testing.T) {
	beliefs, err := belief.New("", nil)
	require.NoError(t, err)
	bdiAgent := bdi.New("bdi_child", t.TempDir(), beliefs, nil, nil, nil)
	coord, err := coordination.New(t.TempDir(), nil, nil)
	require.NoError(t, err)

	a := New("agint_healthy", bdiAgent, coord, stubHealthyTextGen{}, nil, nil)
	a.SetLLMOperational(false)

	outcome := a.actSelfRepair(context.Background(), decision{Type: DecisionSelfRepair, Details: map[string]interface{}{}})
	assert.True(t, outcome.Success)
	assert.True(t, a.llmOperational)
}

func TestStartAndStopCognitiveLoop(t *testing.T) {
	a, _ := newTestAgent(t)
	a.Start(context.Background(), "do useful work")
	assert.Equal(t, StatusRunning, a.GetStatus())

	a.Stop()
	assert.Equal(t, StatusInactive, a.GetStatus())
}

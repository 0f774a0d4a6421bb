package strategy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itsneelabh/mindhive/bdi"
	"github.com/itsneelabh/mindhive/belief"
	"github.com/itsneelabh/mindhive/coordination"
)

type stubAnalyzer struct {
	suggestions []Suggestion
	err         error
}

func (s stubAnalyzer) Analyze(ctx context.Context, directive string) ([]Suggestion, error) {
	return s.suggestions, s.err
}

func newTestMastermind(t *testing.T, analyzer SystemAnalyzer) *Mastermind {
	t.Helper()
	beliefs, err := belief.New("", nil)
	require.NoError(t, err)

	bdiAgent := bdi.New("mastermind_prime_bdi", t.TempDir(), beliefs, nil, nil, nil)
	coord, err := coordination.New(t.TempDir(), nil, nil)
	require.NoError(t, err)

	m, err := New(coord, bdiAgent, analyzer, t.TempDir(), nil)
	require.NoError(t, err)
	return m
}

func TestEvolutionWithEmptySuggestionsSucceedsWithFixedMessage(t *testing.T) {
	m := newTestMastermind(t, stubAnalyzer{suggestions: nil})

	outcome, err := m.ManageMindxEvolution(context.Background(), "anything", 10)
	require.NoError(t, err)

	assert.Equal(t, "SUCCESS", outcome.OverallStatus)
	assert.Equal(t, "Analysis complete, no improvement actions to take.", outcome.Message)
	assert.Len(t, m.RecentCampaigns(10), 1)
}

func TestEvolutionWithSuggestionDrivesBDIAndRecordsOutcome(t *testing.T) {
	m := newTestMastermind(t, stubAnalyzer{suggestions: []Suggestion{
		{ID: "s1", Description: "improve the discovery client", Priority: 8},
	}})

	outcome, err := m.ManageMindxEvolution(context.Background(), "improve discovery", 5)
	require.NoError(t, err)

	assert.Equal(t, "SUCCESS", outcome.OverallStatus)
	assert.Contains(t, outcome.Message, "COMPLETED_GOAL_ACHIEVED")
}

func TestEvolutionPropagatesAnalyzerErrorWithoutRecordingHistory(t *testing.T) {
	m := newTestMastermind(t, stubAnalyzer{err: assert.AnError})

	_, err := m.ManageMindxEvolution(context.Background(), "anything", 5)
	assert.Error(t, err)
	assert.Empty(t, m.RecentCampaigns(10))
}

func TestCreateAgentActionRegistersOnCoordinator(t *testing.T) {
	m := newTestMastermind(t, stubAnalyzer{})

	result := m.actionCreateAgent(context.Background(), map[string]interface{}{
		"agent_id": "bdi_worker_5", "agent_type": "bdi", "description": "test",
	})
	assert.True(t, result.OK)

	_, ok := m.coordinator.Agents.Get("bdi_worker_5")
	assert.True(t, ok)
}

func TestDeleteAgentActionRemovesFromRegistry(t *testing.T) {
	m := newTestMastermind(t, stubAnalyzer{})

	_, err := m.coordinator.RegisterAgent("bdi_worker_6", "bdi", "test", "0xabc", "sig", nil)
	require.NoError(t, err)

	result := m.actionDeleteAgent(context.Background(), map[string]interface{}{"agent_id": "bdi_worker_6"})
	assert.True(t, result.OK)

	_, ok := m.coordinator.Agents.Get("bdi_worker_6")
	assert.False(t, ok)
}

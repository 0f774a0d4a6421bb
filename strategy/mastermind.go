// Package strategy implements Mastermind, the top-tier strategic planner
// that turns a system analysis into a single BDI-executed evolution or
// deployment campaign and records the outcome in a persisted history.
package strategy

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/itsneelabh/mindhive/bdi"
	"github.com/itsneelabh/mindhive/coordination"
	"github.com/itsneelabh/mindhive/core"
)

// Suggestion is one ranked improvement proposal from a SystemAnalyzer.
type Suggestion struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Priority    int    `json:"priority"`
}

// SystemAnalyzer inspects the codebase (or deployment topology) against a
// directive and returns ranked suggestions, highest priority first.
type SystemAnalyzer interface {
	Analyze(ctx context.Context, directive string) ([]Suggestion, error)
}

// CampaignOutcome is one completed Mastermind campaign record.
type CampaignOutcome struct {
	RunID         string    `json:"run_id"`
	Kind          string    `json:"kind"` // EVOLUTION, DEPLOYMENT, AUGMENTIC
	Directive     string    `json:"directive"`
	OverallStatus string    `json:"overall_campaign_status"`
	Message       string    `json:"message"`
	CreatedAt     time.Time `json:"created_at"`
}

// Mastermind is the strategic planner tier.
type Mastermind struct {
	mu sync.Mutex

	coordinator *coordination.Coordinator
	bdiAgent    *bdi.Agent
	analyzer    SystemAnalyzer

	historyPath string
	history     []CampaignOutcome

	logger core.Logger
}

// New constructs a Mastermind instance and registers its BDI action
// handlers on bdiAgent.
func New(coordinator *coordination.Coordinator, bdiAgent *bdi.Agent, analyzer SystemAnalyzer, dataDir string, logger core.Logger) (*Mastermind, error) {
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	if cal, ok := logger.(core.ComponentAwareLogger); ok {
		logger = cal.WithComponent("strategy")
	}

	m := &Mastermind{
		coordinator: coordinator,
		bdiAgent:    bdiAgent,
		analyzer:    analyzer,
		historyPath: filepath.Join(dataDir, "strategic_campaigns_history.json"),
		logger:      logger,
	}

	if err := m.loadHistory(); err != nil {
		return nil, err
	}

	if bdiAgent != nil {
		registerMastermindActions(m, bdiAgent)
	}

	return m, nil
}

// ManageMindxEvolution runs a single evolution campaign: analyze, pick the
// top suggestion, drive it through BDI, record the outcome.
func (m *Mastermind) ManageMindxEvolution(ctx context.Context, directive string, maxBDICycles int) (*CampaignOutcome, error) {
	return m.runCampaign(ctx, "EVOLUTION", directive, maxBDICycles)
}

// ManageAgentDeployment runs a single agent-deployment campaign using the
// same analyze-pick-execute algorithm as evolution, scoped by directive.
func (m *Mastermind) ManageAgentDeployment(ctx context.Context, directive string, maxBDICycles int) (*CampaignOutcome, error) {
	return m.runCampaign(ctx, "DEPLOYMENT", directive, maxBDICycles)
}

// CommandAugmenticIntelligence runs a directive through the same campaign
// algorithm with the framework's default BDI cycle cap.
func (m *Mastermind) CommandAugmenticIntelligence(ctx context.Context, directive string) (*CampaignOutcome, error) {
	return m.runCampaign(ctx, "AUGMENTIC", directive, 25)
}

func (m *Mastermind) runCampaign(ctx context.Context, kind, directive string, maxBDICycles int) (*CampaignOutcome, error) {
	runID := uuid.NewString()

	if m.analyzer == nil {
		return nil, fmt.Errorf("no system analyzer configured: %w", core.ErrInvalidConfiguration)
	}

	suggestions, err := m.analyzer.Analyze(ctx, directive)
	if err != nil {
		return nil, fmt.Errorf("analyzing system: %w", err)
	}

	if len(suggestions) == 0 {
		outcome := CampaignOutcome{
			RunID:         runID,
			Kind:          kind,
			Directive:     directive,
			OverallStatus: "SUCCESS",
			Message:       "Analysis complete, no improvement actions to take.",
			CreatedAt:     time.Now(),
		}
		return &outcome, m.appendHistory(outcome)
	}

	top := suggestions[0]
	if m.bdiAgent == nil {
		return nil, fmt.Errorf("no BDI executor configured: %w", core.ErrInvalidConfiguration)
	}

	m.bdiAgent.SetGoal(fmt.Sprintf("Implement the following evolution: %s", top.Description), top.Priority, true)
	final := m.bdiAgent.Run(ctx, maxBDICycles)

	status := "FAILURE_OR_INCOMPLETE"
	if strings.HasPrefix(final, "COMPLETED_GOAL_ACHIEVED") {
		status = "SUCCESS"
	}

	outcome := CampaignOutcome{
		RunID:         runID,
		Kind:          kind,
		Directive:     directive,
		OverallStatus: status,
		Message:       final,
		CreatedAt:     time.Now(),
	}

	return &outcome, m.appendHistory(outcome)
}

// RecentCampaigns returns the last n recorded campaigns, newest last.
func (m *Mastermind) RecentCampaigns(n int) []CampaignOutcome {
	m.mu.Lock()
	defer m.mu.Unlock()

	if n <= 0 || n > len(m.history) {
		n = len(m.history)
	}
	return append([]CampaignOutcome(nil), m.history[len(m.history)-n:]...)
}

func (m *Mastermind) appendHistory(outcome CampaignOutcome) error {
	m.mu.Lock()
	m.history = append(m.history, outcome)
	m.mu.Unlock()
	return m.persistHistory()
}

func (m *Mastermind) persistHistory() error {
	if m.historyPath == "" {
		return nil
	}

	m.mu.Lock()
	data, err := json.MarshalIndent(m.history, "", "  ")
	m.mu.Unlock()
	if err != nil {
		return fmt.Errorf("marshaling campaign history: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(m.historyPath), 0o755); err != nil {
		return fmt.Errorf("creating campaign history directory: %w", err)
	}

	tmp := m.historyPath + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing campaign history: %w", err)
	}
	if err := os.Rename(tmp, m.historyPath); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("committing campaign history: %w", err)
	}
	return nil
}

func (m *Mastermind) loadHistory() error {
	data, err := os.ReadFile(m.historyPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading campaign history: %w", err)
	}

	var history []CampaignOutcome
	if err := json.Unmarshal(data, &history); err != nil {
		return fmt.Errorf("parsing campaign history: %w", err)
	}

	m.mu.Lock()
	m.history = history
	m.mu.Unlock()
	return nil
}

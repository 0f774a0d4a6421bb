package main

import (
	"context"
	"fmt"

	"github.com/itsneelabh/mindhive/audit"
	"github.com/itsneelabh/mindhive/bdi"
	"github.com/itsneelabh/mindhive/belief"
	"github.com/itsneelabh/mindhive/cognition"
	"github.com/itsneelabh/mindhive/coordination"
	"github.com/itsneelabh/mindhive/core"
	"github.com/itsneelabh/mindhive/guardian"
	"github.com/itsneelabh/mindhive/identity"
	"github.com/itsneelabh/mindhive/memory"
	"github.com/itsneelabh/mindhive/strategy"
	"github.com/itsneelabh/mindhive/telemetry"
	"github.com/itsneelabh/mindhive/toolregistry"
)

// app wires every tier of the hierarchy together in dependency order:
// belief system and memory agent first (no dependents), then identity and
// guardian (depend on both), then the coordinator (depends on memory), then
// BDI/AGInt/Mastermind/audit (depend on the coordinator and each other), and
// finally the tool registry, which wires its tools into the root BDI agent.
type app struct {
	cfg *core.Config

	beliefs  *belief.System
	memAgent *memory.Agent
	idMgr    *identity.Manager
	guard    *guardian.Guardian
	coord    *coordination.Coordinator
	bdiAgent *bdi.Agent
	agint    *cognition.Agent
	mind     *strategy.Mastermind
	auditor  *audit.Coordinator
	tools    *toolregistry.Registry

	telemetry core.Telemetry
	logger    core.Logger
	exitCode  int
}

// finish prints r as JSON and records the exit code main() should use once
// kong's command dispatch returns. Commands never return Go errors to
// kong's runner themselves, since every outcome (including failure) is
// already a structured result on stdout.
func (a *app) finish(r result) error {
	a.exitCode = emit(r)
	return nil
}

// noAnalyzer reports no suggestions; wiring a real SystemAnalyzer (a
// codebase or deployment inspector) is out of scope here, matching the way
// the TextGenerator's concrete provider is left to the embedding binary.
type noAnalyzer struct{}

func (noAnalyzer) Analyze(ctx context.Context, directive string) ([]strategy.Suggestion, error) {
	return nil, nil
}

func newApp(cfg *core.Config) (*app, error) {
	telemetry.Init()
	logger := core.NewProductionLogger(cfg.Logging, cfg.Development, cfg.Name)

	tel, err := telemetry.NewTelemetryFromConfig(cfg.Name, cfg.Telemetry)
	if err != nil {
		logger.Warn("telemetry provider unavailable, continuing without tracing", map[string]interface{}{"error": err.Error()})
		tel = nil
	}
	if tel == nil {
		tel = &core.NoOpTelemetry{}
	}

	beliefs, err := belief.New(cfg.Belief.SnapshotPath, logger)
	if err != nil {
		return nil, fmt.Errorf("constructing belief system: %w", err)
	}
	if !cfg.Belief.Persist {
		beliefs, err = belief.New("", logger)
		if err != nil {
			return nil, fmt.Errorf("constructing belief system: %w", err)
		}
	}

	memAgent := memory.NewAgent(cfg.Memory.TracesDir, logger)

	idMgr, err := identity.NewManager(cfg.Name, cfg.Identity.KeyStorePath, beliefs, memAgent, logger)
	if err != nil {
		return nil, fmt.Errorf("constructing identity manager: %w", err)
	}

	ctx := context.Background()
	guard, err := guardian.New(ctx, cfg.Guardian.AgentID, cfg.Guardian.RegistryPath, cfg.Guardian.ChallengeExpiry, cfg.Guardian.RequireWorkspaceCheck, idMgr, memAgent, logger)
	if err != nil {
		return nil, fmt.Errorf("constructing guardian: %w", err)
	}

	coord, err := coordination.New(cfg.DataDir, memAgent, logger)
	if err != nil {
		return nil, fmt.Errorf("constructing coordinator: %w", err)
	}

	bdiAgent := bdi.New(cfg.Name+"_bdi", cfg.DataDir, beliefs, memAgent, nil, logger)
	bdiAgent.SetMaxReplans(cfg.BDI.MaxReplans)

	mind, err := strategy.New(coord, bdiAgent, noAnalyzer{}, cfg.DataDir, logger)
	if err != nil {
		return nil, fmt.Errorf("constructing mastermind: %w", err)
	}

	agint := cognition.New(cfg.Name+"_agint", bdiAgent, coord, nil, nil, logger)
	agint.SetCycleDelay(cfg.Cognition.CycleDelay)

	auditor := audit.New(coord, logger)

	tools := toolregistry.New(logger)
	tools.Register(toolregistry.NewFileSearchTool(cfg.DataDir))
	if cfg.Tools.WebSearchEndpoint != "" {
		tools.Register(toolregistry.NewWebSearchToolWithResilience(cfg.Tools.WebSearchEndpoint, cfg.Resilience, logger, tel))
	}
	tools.WireIntoBDI(bdiAgent, "low")

	return &app{
		cfg:       cfg,
		beliefs:   beliefs,
		memAgent:  memAgent,
		idMgr:     idMgr,
		guard:     guard,
		coord:     coord,
		bdiAgent:  bdiAgent,
		agint:     agint,
		mind:      mind,
		auditor:   auditor,
		tools:     tools,
		telemetry: tel,
		logger:    logger,
	}, nil
}

// Package cognition implements AGInt, the per-directive cognitive loop that
// perceives the outcome of its previous action, decides deterministically
// between self-repair, research, and delegation, and acts by driving a BDI
// executor or invoking a narrow set of standalone capabilities.
package cognition

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/itsneelabh/mindhive/bdi"
	"github.com/itsneelabh/mindhive/coordination"
	"github.com/itsneelabh/mindhive/core"
)

// Status is AGInt's externally visible lifecycle state.
type Status string

const (
	StatusInactive         Status = "INACTIVE"
	StatusRunning          Status = "RUNNING"
	StatusAwaitingDirective Status = "AWAITING_DIRECTIVE"
	StatusFailed           Status = "FAILED"
)

// DecisionType is the rule-based decision AGInt's orient/decide step selects.
type DecisionType string

const (
	DecisionSelfRepair     DecisionType = "SELF_REPAIR"
	DecisionResearch       DecisionType = "RESEARCH"
	DecisionBDIDelegation  DecisionType = "BDI_DELEGATION"
	DecisionCooldown       DecisionType = "COOLDOWN"
)

// Searcher is the opaque web-search capability the RESEARCH decision
// invokes. Its contract (provider, ranking) is out of scope here.
type Searcher interface {
	Search(ctx context.Context, query string) (string, error)
}

// ActionOutcome is what Act reports for a cycle, fed into the next
// cycle's perception when it failed.
type ActionOutcome struct {
	DecisionType DecisionType
	Success      bool
	Data         interface{}
	Error        string
}

// Agent is one AGInt cognitive loop instance.
type Agent struct {
	mu sync.Mutex

	id     string
	status Status

	directive string
	cycleDelay    time.Duration
	bdiCycleCap   int
	cooldownDelay time.Duration

	llmOperational bool
	lastOutcome    *ActionOutcome

	textGen     bdi.TextGenerator
	coordinator *coordination.Coordinator
	bdiAgent    *bdi.Agent
	searcher    Searcher

	logger core.Logger

	cancel context.CancelFunc
	done   chan struct{}
}

// New constructs an AGInt instance wired to the given BDI executor and
// Coordinator.
func New(id string, bdiAgent *bdi.Agent, coordinator *coordination.Coordinator, textGen bdi.TextGenerator, searcher Searcher, logger core.Logger) *Agent {
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	if cal, ok := logger.(core.ComponentAwareLogger); ok {
		logger = cal.WithComponent("cognition/" + id)
	}

	return &Agent{
		id:             id,
		status:         StatusInactive,
		cycleDelay:     5 * time.Second,
		bdiCycleCap:    10,
		cooldownDelay:  10 * time.Second,
		llmOperational: true,
		bdiAgent:       bdiAgent,
		coordinator:    coordinator,
		textGen:        textGen,
		searcher:       searcher,
		logger:         logger,
	}
}

// SetCycleDelay overrides the per-cycle sleep (for tests, zero is fine).
func (a *Agent) SetCycleDelay(d time.Duration) { a.mu.Lock(); a.cycleDelay = d; a.mu.Unlock() }

// SetLLMOperational lets tests and self-repair flip the health flag.
func (a *Agent) SetLLMOperational(ok bool) {
	a.mu.Lock()
	a.llmOperational = ok
	a.mu.Unlock()
}

// GetStatus returns AGInt's current lifecycle state.
func (a *Agent) GetStatus() Status {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.status
}

// Start begins the cognitive loop as a cooperative background task pursuing
// directive. Calling Start while already running is a no-op.
func (a *Agent) Start(ctx context.Context, directive string) {
	a.mu.Lock()
	if a.status == StatusRunning {
		a.mu.Unlock()
		return
	}
	loopCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	a.done = make(chan struct{})
	a.directive = directive
	a.status = StatusRunning
	done := a.done
	a.mu.Unlock()

	go a.loop(loopCtx, done)
}

// Stop requests cancellation and blocks until the loop task has exited. An
// in-flight cycle finishes its current action before observing cancellation;
// the loop is never re-entered afterward.
func (a *Agent) Stop() {
	a.mu.Lock()
	cancel := a.cancel
	done := a.done
	a.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	if done != nil {
		<-done
	}

	a.mu.Lock()
	a.status = StatusInactive
	a.mu.Unlock()
}

func (a *Agent) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		func() {
			defer func() {
				if r := recover(); r != nil {
					a.mu.Lock()
					a.status = StatusFailed
					a.mu.Unlock()
					a.logger.Error("cognitive cycle panicked", map[string]interface{}{"error": fmt.Sprintf("%v", r)})
				}
			}()
			a.runCycle(ctx)
		}()

		a.mu.Lock()
		failed := a.status == StatusFailed
		delay := a.cycleDelay
		a.mu.Unlock()
		if failed {
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
	}
}

// RunOnce executes exactly one perceive/orient/decide/act cycle and returns
// its outcome, for deterministic testing without the background loop.
func (a *Agent) RunOnce(ctx context.Context) ActionOutcome {
	return a.runCycle(ctx)
}

func (a *Agent) runCycle(ctx context.Context) ActionOutcome {
	perception := a.perceive()
	decision := a.decide(perception)
	decision = a.orient(ctx, decision)
	outcome := a.act(ctx, decision)

	a.mu.Lock()
	a.lastOutcome = &outcome
	a.mu.Unlock()

	return outcome
}

type perception struct {
	timestamp           time.Time
	lastActionFailure   interface{}
}

func (a *Agent) perceive() perception {
	a.mu.Lock()
	defer a.mu.Unlock()

	p := perception{timestamp: time.Now()}
	if a.lastOutcome != nil && !a.lastOutcome.Success {
		p.lastActionFailure = a.lastOutcome
	}
	return p
}

// decision carries the rule-based type plus whatever orient enriches it with.
type decision struct {
	Type    DecisionType
	Details map[string]interface{}
}

func (a *Agent) decide(p perception) decision {
	a.mu.Lock()
	operational := a.llmOperational
	a.mu.Unlock()

	if !operational {
		return decision{Type: DecisionSelfRepair, Details: map[string]interface{}{}}
	}
	if p.lastActionFailure != nil {
		return decision{Type: DecisionResearch, Details: map[string]interface{}{}}
	}
	return decision{Type: DecisionBDIDelegation, Details: map[string]interface{}{}}
}

// orient enriches d's details via the TextGenerator, best-effort. The
// decision type selected by decide is never overwritten by a successful
// enrichment; a failed enrichment (a generation error, or a response that
// fails parsing or validation) substitutes COOLDOWN.
func (a *Agent) orient(ctx context.Context, d decision) decision {
	if a.textGen == nil {
		return d
	}

	prompt := fmt.Sprintf("Directive: %s\nDecision type: %s\nRespond with JSON: {\"situational_awareness\":...,\"decision_details\":{...}}", a.directive, d.Type)
	resp, err := a.textGen.GenerateResponse(ctx, prompt, nil)
	if err != nil {
		return decision{Type: DecisionCooldown, Details: map[string]interface{}{"reason": err.Error()}}
	}

	var enriched struct {
		SituationalAwareness string                 `json:"situational_awareness"`
		DecisionDetails      map[string]interface{} `json:"decision_details"`
	}
	if err := json.Unmarshal([]byte(strings.TrimSpace(resp.Content)), &enriched); err != nil {
		return decision{Type: DecisionCooldown, Details: map[string]interface{}{"reason": "enrichment parse failure"}}
	}

	merged := d.Details
	if merged == nil {
		merged = map[string]interface{}{}
	}
	for k, v := range enriched.DecisionDetails {
		merged[k] = v
	}
	merged["situational_awareness"] = enriched.SituationalAwareness

	return decision{Type: d.Type, Details: merged}
}

func (a *Agent) act(ctx context.Context, d decision) ActionOutcome {
	switch d.Type {
	case DecisionBDIDelegation:
		return a.actBDIDelegation(ctx, d)
	case DecisionResearch:
		return a.actResearch(ctx, d)
	case DecisionSelfRepair:
		return a.actSelfRepair(ctx, d)
	case DecisionCooldown:
		return a.actCooldown(ctx, d)
	default:
		return ActionOutcome{DecisionType: d.Type, Success: false, Error: "unrecognized decision type"}
	}
}

func (a *Agent) actBDIDelegation(ctx context.Context, d decision) ActionOutcome {
	if a.bdiAgent == nil {
		return ActionOutcome{DecisionType: d.Type, Success: false, Error: "no BDI executor configured"}
	}

	taskDescription := a.directive
	if td, ok := d.Details["task_description"].(string); ok && td != "" {
		taskDescription = td
	}

	a.bdiAgent.SetGoal(taskDescription, 10, true)
	final := a.bdiAgent.Run(ctx, a.bdiCycleCap)

	success := strings.HasPrefix(final, "COMPLETED_GOAL_ACHIEVED")
	outcome := ActionOutcome{DecisionType: d.Type, Success: success, Data: final}
	if !success {
		outcome.Error = final
	}
	return outcome
}

func (a *Agent) actResearch(ctx context.Context, d decision) ActionOutcome {
	if a.searcher == nil {
		return ActionOutcome{DecisionType: d.Type, Success: false, Error: "WebSearchTool not available"}
	}

	query, _ := d.Details["search_query"].(string)
	if query == "" {
		query = a.directive
	}

	summary, err := a.searcher.Search(ctx, query)
	if err != nil {
		return ActionOutcome{DecisionType: d.Type, Success: false, Error: err.Error()}
	}
	return ActionOutcome{DecisionType: d.Type, Success: true, Data: summary}
}

func (a *Agent) actSelfRepair(ctx context.Context, d decision) ActionOutcome {
	if a.coordinator == nil {
		return ActionOutcome{DecisionType: d.Type, Success: false, Error: "no coordinator configured"}
	}

	result := a.coordinator.HandleUserInput(ctx, "self-repair triggered by AGInt "+a.id, a.id, coordination.InteractionSystemAnalysis, nil)
	if result.Status != coordination.InteractionCompleted {
		return ActionOutcome{DecisionType: d.Type, Success: false, Error: "system analysis did not complete"}
	}

	verified := a.verifyHealthCheck(ctx)
	if verified {
		a.SetLLMOperational(true)
		return ActionOutcome{DecisionType: d.Type, Success: true, Data: "self repair verified"}
	}
	return ActionOutcome{DecisionType: d.Type, Success: false, Error: "self repair verification failed"}
}

// verifyHealthCheck requires a non-empty positive token ("OK") from a
// trivial generation before self-repair is allowed to flip llm_operational
// back to true.
func (a *Agent) verifyHealthCheck(ctx context.Context) bool {
	if a.textGen == nil {
		return false
	}
	resp, err := a.textGen.GenerateResponse(ctx, "health check: respond with OK", nil)
	if err != nil {
		return false
	}
	return strings.TrimSpace(resp.Content) == "OK"
}

func (a *Agent) actCooldown(ctx context.Context, d decision) ActionOutcome {
	select {
	case <-ctx.Done():
	case <-time.After(a.cooldownDelay):
	}
	return ActionOutcome{DecisionType: d.Type, Success: true, Data: "cooldown complete"}
}

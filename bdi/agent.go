package bdi

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/itsneelabh/mindhive/belief"
	"github.com/itsneelabh/mindhive/core"
	"github.com/itsneelabh/mindhive/memory"
)

// Agent is one BDI executor instance: a single-threaded goal pursuer that
// shares the process-wide BeliefSystem and traces every action via the
// MemoryAgent.
type Agent struct {
	mu sync.Mutex

	id         string
	workspace  string
	maxReplans int

	beliefs *belief.System
	memAgent *memory.Agent
	textGen TextGenerator
	logger  core.Logger

	actions map[string]ActionDescriptor

	goals       []*Goal
	primaryGoal *Goal

	lastActionOK     bool
	lastActionResult interface{}
	cycleCount       int
}

// New constructs a BDI agent identified by id, rooted at workspace for
// file-I/O and process-execution actions.
func New(id, workspace string, beliefs *belief.System, memAgent *memory.Agent, textGen TextGenerator, logger core.Logger) *Agent {
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	if cal, ok := logger.(core.ComponentAwareLogger); ok {
		logger = cal.WithComponent("bdi/" + id)
	}

	a := &Agent{
		id:         id,
		workspace:  workspace,
		maxReplans: 3,
		beliefs:    beliefs,
		memAgent:   memAgent,
		textGen:    textGen,
		logger:     logger,
		actions:    make(map[string]ActionDescriptor),
	}
	registerBuiltinActions(a)
	return a
}

// SetMaxReplans overrides the per-goal replan budget (default 3) new goals
// are executed under.
func (a *Agent) SetMaxReplans(n int) {
	if n <= 0 {
		return
	}
	a.mu.Lock()
	a.maxReplans = n
	a.mu.Unlock()
}

// RegisterAction adds or replaces a named action.
func (a *Agent) RegisterAction(name, safetyLevel string, handler ActionHandler) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.actions[name] = ActionDescriptor{Name: name, SafetyLevel: safetyLevel, Handler: handler}
}

// SetGoal adds a new desire. If primary, any current primary goal is
// superseded (its plan invalidated, left in the desire set as non-primary).
func (a *Agent) SetGoal(description string, priority int, primary bool) *Goal {
	a.mu.Lock()
	defer a.mu.Unlock()

	goal := &Goal{
		ID:          uuid.NewString(),
		Description: description,
		Priority:    priority,
		Primary:     primary,
		Status:      GoalPending,
		CreatedAt:   time.Now(),
	}

	if primary {
		if a.primaryGoal != nil {
			a.primaryGoal.Primary = false
			a.primaryGoal.Plan = nil
		}
		a.primaryGoal = goal
	}

	a.goals = append(a.goals, goal)
	return goal
}

// GetStatus returns a snapshot of the agent's current state.
func (a *Agent) GetStatus() Status {
	a.mu.Lock()
	defer a.mu.Unlock()

	st := Status{State: "IDLE", CycleCount: a.cycleCount}
	if a.primaryGoal != nil {
		st.CurrentGoal = a.primaryGoal.Description
		st.State = "RUNNING"
	}
	return st
}

// Run drives up to maxCycles reasoning cycles and returns a terminal
// message whose prefix encodes the outcome.
func (a *Agent) Run(ctx context.Context, maxCycles int) (result string) {
	defer func() {
		if r := recover(); r != nil {
			result = fmt.Sprintf("HALTED_EXCEPTION:%v", r)
		}
	}()

	if maxCycles <= 0 {
		return "HALTED_MAX_CYCLES"
	}

	for cycle := 0; cycle < maxCycles; cycle++ {
		a.mu.Lock()
		a.cycleCount++
		a.mu.Unlock()

		select {
		case <-ctx.Done():
			return "HALTED_EXCEPTION:context_cancelled"
		default:
		}

		msg, terminal := a.cycle(ctx)
		if terminal {
			return msg
		}
	}

	return "HALTED_MAX_CYCLES"
}

// cycle runs one reasoning cycle. terminal reports whether msg is a final
// outcome that should end Run.
func (a *Agent) cycle(ctx context.Context) (msg string, terminal bool) {
	// Step 1: update beliefs from percepts (previous action outcome).
	a.incorporatePercept(ctx)

	// Step 2: select goal.
	goal := a.selectGoal()
	if goal == nil {
		return "COMPLETED_GOAL_ACHIEVED", true
	}

	// Step 3: plan if needed.
	if goal.Plan == nil || goal.Plan.Invalid {
		plan, err := a.buildPlan(ctx, goal)
		if err != nil {
			goal.Status = GoalFailed
			a.logger.Warn("planning failed", map[string]interface{}{"goal": goal.Description, "error": err.Error()})
			return "FAILED_NO_PLAN", true
		}
		goal.Plan = plan
	}

	if goal.Plan.exhausted() {
		goal.Status = GoalAchieved
		return "COMPLETED_GOAL_ACHIEVED", true
	}

	// Step 4: execute next action.
	step, _ := goal.Plan.next()
	result := a.executeStep(ctx, step)

	a.mu.Lock()
	a.lastActionOK = result.OK
	a.lastActionResult = result.Data
	a.mu.Unlock()

	a.trace(ctx, "bdi_action_executed", map[string]interface{}{
		"action": step.Action, "ok": result.OK,
	})

	if result.OK {
		goal.Plan.Cursor++
		if goal.Plan.exhausted() {
			goal.Status = GoalAchieved
			return "COMPLETED_GOAL_ACHIEVED", true
		}
		return "", false
	}

	// Step 5: replan trigger. A rollback-required failure gets another
	// planning attempt, up to maxReplans for this goal; beyond that, the
	// goal fails outright rather than replanning indefinitely.
	if result.RollbackRequired {
		goal.ReplanCount++
		if goal.ReplanCount > a.maxReplans {
			goal.Status = GoalFailed
			a.logger.Warn("replan budget exhausted", map[string]interface{}{
				"goal": goal.Description, "replans": goal.ReplanCount, "max_replans": a.maxReplans,
			})
			return "FAILED_PLAN_EXECUTION", true
		}
		goal.Plan.Invalid = true
		return "", false
	}

	goal.Status = GoalFailed
	return "FAILED_PLAN_EXECUTION", true
}

func (a *Agent) incorporatePercept(ctx context.Context) {
	a.mu.Lock()
	ok, result := a.lastActionOK, a.lastActionResult
	a.mu.Unlock()

	if result == nil {
		return
	}
	_ = a.beliefs.Update(ctx, "bdi."+a.id+".last_action_outcome", map[string]interface{}{
		"success": ok, "result": result,
	}, 0.9, belief.SourcePerception)
}

// selectGoal returns the primary goal if present and non-terminal, else the
// highest-priority non-terminal desire, else nil when none remain.
func (a *Agent) selectGoal() *Goal {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.primaryGoal != nil && !a.primaryGoal.Status.terminal() {
		return a.primaryGoal
	}

	var best *Goal
	for _, g := range a.goals {
		if g.Status.terminal() {
			continue
		}
		if best == nil || g.Priority > best.Priority {
			best = g
		}
	}
	return best
}

// buildPlan asks the TextGenerator for a JSON plan and validates it against
// the action catalog. With no TextGenerator configured, falls back to a
// single-step plan that invokes the "NOOP" action, letting deterministic
// tests drive the executor without an LLM dependency.
func (a *Agent) buildPlan(ctx context.Context, goal *Goal) (*Plan, error) {
	if a.textGen == nil {
		return &Plan{Steps: []PlanStep{{Action: "NOOP", SafetyLevel: "low"}}}, nil
	}

	prompt := fmt.Sprintf(
		"Goal: %s\nAvailable actions: %s\nRespond with a JSON array of steps: "+
			"[{\"action\":...,\"params\":{...},\"safety_level\":...,\"rollback_planned\":bool}]",
		goal.Description, a.catalogNames(),
	)

	raw, err := generate(ctx, a.textGen, prompt)
	if err != nil {
		return nil, fmt.Errorf("generating plan: %w", err)
	}

	var steps []PlanStep
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &steps); err != nil {
		return nil, fmt.Errorf("parsing plan: %w", err)
	}

	if err := a.validatePlan(steps); err != nil {
		return nil, err
	}

	return &Plan{Steps: steps}, nil
}

func (a *Agent) validatePlan(steps []PlanStep) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, step := range steps {
		if _, ok := a.actions[step.Action]; !ok {
			return fmt.Errorf("plan references unknown action %q: %w", step.Action, core.ErrActionNotFound)
		}
		if step.SafetyLevel == "critical" && !step.RollbackPlanned {
			return fmt.Errorf("critical action %q has no preceding rollback plan: %w", step.Action, core.ErrUnsafeAction)
		}
	}
	return nil
}

func (a *Agent) catalogNames() string {
	a.mu.Lock()
	defer a.mu.Unlock()

	names := make([]string, 0, len(a.actions))
	for name := range a.actions {
		names = append(names, name)
	}
	return strings.Join(names, ", ")
}

func (a *Agent) executeStep(ctx context.Context, step PlanStep) ActionResult {
	a.mu.Lock()
	desc, ok := a.actions[step.Action]
	a.mu.Unlock()

	if !ok {
		return ActionResult{OK: false, Err: core.ErrActionNotFound}
	}
	return desc.Handler(ctx, step.Params)
}

func (a *Agent) trace(ctx context.Context, process string, data map[string]interface{}) {
	if a.memAgent == nil {
		return
	}
	_ = a.memAgent.LogProcess(ctx, a.id, process, data, nil)
}

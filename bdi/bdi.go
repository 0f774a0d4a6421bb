// Package bdi implements the Belief-Desire-Intention executor: the tier
// that turns a single goal into a validated plan and drives it to
// completion one action at a time, replanning on recoverable failure.
package bdi

import (
	"context"
	"time"

	"github.com/itsneelabh/mindhive/core"
)

// TextGenerator is the opaque planning/generation capability BDI asks for
// plans and for action types that synthesize text or code. It is exactly
// core.AIClient's shape: provider wiring is out of scope, and callers
// supply whatever implementation fronts their LLM.
type TextGenerator = core.AIClient

// generate is a convenience wrapper over TextGenerator.GenerateResponse that
// callers use when they only care about the resulting text.
func generate(ctx context.Context, tg TextGenerator, prompt string) (string, error) {
	resp, err := tg.GenerateResponse(ctx, prompt, nil)
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

// GoalStatus is the lifecycle state of a Goal.
type GoalStatus string

const (
	GoalPending   GoalStatus = "PENDING"
	GoalAchieved  GoalStatus = "ACHIEVED"
	GoalFailed    GoalStatus = "FAILED"
)

func (s GoalStatus) terminal() bool {
	return s == GoalAchieved || s == GoalFailed
}

// Goal is a single desire the BDI agent pursues via an actively executed plan.
type Goal struct {
	ID          string
	Description string
	Priority    int
	Primary     bool
	Status      GoalStatus
	Plan        *Plan
	CreatedAt   time.Time

	// ReplanCount counts replans triggered by a RollbackRequired action
	// failure for this goal. The executor fails the goal once it exceeds
	// the agent's maxReplans rather than replanning forever.
	ReplanCount int
}

// PlanStep is one action invocation within a Plan.
type PlanStep struct {
	Action           string                 `json:"action"`
	Params           map[string]interface{} `json:"params"`
	SafetyLevel      string                 `json:"safety_level"` // low, standard, high, critical
	RollbackPlanned  bool                   `json:"rollback_planned"`
}

// Plan is an ordered sequence of steps toward a goal, with a cursor marking
// the next step to execute.
type Plan struct {
	Steps   []PlanStep
	Cursor  int
	Invalid bool
}

func (p *Plan) exhausted() bool {
	return p == nil || p.Cursor >= len(p.Steps)
}

func (p *Plan) next() (PlanStep, bool) {
	if p.exhausted() {
		return PlanStep{}, false
	}
	return p.Steps[p.Cursor], true
}

// ActionResult is what an action handler returns: ok reports success; data
// carries the result payload on success or the failure detail on error.
type ActionResult struct {
	OK              bool
	Data            interface{}
	Err             error
	RollbackRequired bool
}

// ActionHandler executes one named action against params, within ctx.
type ActionHandler func(ctx context.Context, params map[string]interface{}) ActionResult

// ActionDescriptor is a catalog entry: name, safety policy, and handler.
type ActionDescriptor struct {
	Name        string
	SafetyLevel string
	Handler     ActionHandler
}

// Status is the snapshot returned by GetStatus.
type Status struct {
	State       string `json:"state"` // IDLE or RUNNING
	CurrentGoal string `json:"current_goal,omitempty"`
	CycleCount  int    `json:"cycle_count"`
}

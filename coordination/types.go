// Package coordination implements the Coordinator: the agent and tool
// registries, the priority-ordered improvement backlog, and interaction
// dispatch that every other tier routes through.
package coordination

import "time"

// AgentStatus is the lifecycle state of a registered agent.
type AgentStatus string

const (
	AgentPending    AgentStatus = "PENDING"
	AgentRegistered AgentStatus = "REGISTERED"
	AgentDisabled   AgentStatus = "DISABLED"
)

// AgentRegistration is the Coordinator's record of one agent.
type AgentRegistration struct {
	AgentID       string      `json:"agent_id"`
	AgentType     string      `json:"agent_type"`
	Description   string      `json:"description"`
	PublicAddress string      `json:"public_address"`
	Signature     string      `json:"signature"`
	Status        AgentStatus `json:"status"`

	// instance is the live handle registered in-process; never serialized.
	instance interface{}
}

// ToolStatus is the lifecycle state of a registered tool.
type ToolStatus string

const (
	ToolActive     ToolStatus = "ACTIVE"
	ToolDeprecated ToolStatus = "DEPRECATED"
)

// ToolRegistration is the Coordinator's record of one tool.
type ToolRegistration struct {
	ToolID       string     `json:"tool_id"`
	DisplayName  string     `json:"display_name"`
	ModulePath   string     `json:"module_path"`
	ClassName    string     `json:"class_name"`
	Capabilities []string   `json:"capabilities"`
	NeedsIdentity bool      `json:"needs_identity"`
	Version      string     `json:"version"`
	Status       ToolStatus `json:"status"`
	Identity     string     `json:"identity,omitempty"`
}

// InteractionType names the kind of work an interaction represents.
type InteractionType string

const (
	InteractionSystemAnalysis      InteractionType = "SYSTEM_ANALYSIS"
	InteractionComponentImprovement InteractionType = "COMPONENT_IMPROVEMENT"
	InteractionUserQuery           InteractionType = "USER_QUERY"
)

// InteractionStatus is the lifecycle state of an Interaction.
type InteractionStatus string

const (
	InteractionPending    InteractionStatus = "PENDING"
	InteractionInProgress InteractionStatus = "IN_PROGRESS"
	InteractionCompleted  InteractionStatus = "COMPLETED"
	InteractionFailed     InteractionStatus = "FAILED"
)

// Interaction is one unit of dispatched work.
type Interaction struct {
	ID        string                 `json:"id"`
	Type      InteractionType        `json:"type"`
	Content   string                 `json:"content"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Status    InteractionStatus      `json:"status"`
	Result    map[string]interface{} `json:"result,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}

// BacklogStatus is the lifecycle state of a BacklogItem.
type BacklogStatus string

const (
	BacklogPending    BacklogStatus = "PENDING"
	BacklogInProgress BacklogStatus = "IN_PROGRESS"
	BacklogDone       BacklogStatus = "DONE"
	BacklogRejected   BacklogStatus = "REJECTED"
)

// BacklogItem is one improvement backlog entry, ordered by (priority desc,
// created_at asc) when dequeued.
type BacklogItem struct {
	ID              string        `json:"id"`
	Description     string        `json:"description"`
	Priority        int           `json:"priority"` // 0-10
	Status          BacklogStatus `json:"status"`
	Source          string        `json:"source"`
	TargetComponent string        `json:"target_component"`
	CreatedAt       time.Time     `json:"created_at"`
}

package coordination

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/itsneelabh/mindhive/core"
	"github.com/itsneelabh/mindhive/memory"
)

// InteractionHandler processes one interaction's content and returns the
// result payload to attach before marking it COMPLETED. An error marks the
// interaction FAILED with the error captured in Result["error"].
type InteractionHandler func(ctx context.Context, interaction *Interaction) (map[string]interface{}, error)

// Coordinator is the process-wide registry, backlog, and interaction router
// that every reasoning tier dispatches work through.
type Coordinator struct {
	mu           sync.RWMutex
	Agents       *AgentRegistry
	Tools        *ToolRegistry
	Backlog      *Backlog
	interactions map[string]*Interaction
	handlers     map[InteractionType]InteractionHandler

	memAgent *memory.Agent
	logger   core.Logger
}

// New constructs a Coordinator with flat-file registry and backlog
// persistence rooted at dataDir.
func New(dataDir string, memAgent *memory.Agent, logger core.Logger) (*Coordinator, error) {
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	if cal, ok := logger.(core.ComponentAwareLogger); ok {
		logger = cal.WithComponent("coordinator")
	}

	agents, err := NewAgentRegistry(filepath.Join(dataDir, "official_agents_registry.json"))
	if err != nil {
		return nil, fmt.Errorf("loading agent registry: %w", err)
	}
	tools, err := NewToolRegistry(filepath.Join(dataDir, "official_tools_registry.json"))
	if err != nil {
		return nil, fmt.Errorf("loading tool registry: %w", err)
	}
	backlog, err := NewBacklog(filepath.Join(dataDir, "improvement_backlog.json"))
	if err != nil {
		return nil, fmt.Errorf("loading improvement backlog: %w", err)
	}

	c := &Coordinator{
		Agents:       agents,
		Tools:        tools,
		Backlog:      backlog,
		interactions: make(map[string]*Interaction),
		handlers:     make(map[InteractionType]InteractionHandler),
		memAgent:     memAgent,
		logger:       logger,
	}

	c.handlers[InteractionComponentImprovement] = c.handleComponentImprovement
	c.handlers[InteractionSystemAnalysis] = c.handleSystemAnalysis
	c.handlers[InteractionUserQuery] = c.handleUserQuery

	return c, nil
}

// RegisterAgent adds or replaces an agent's registry entry, keyed by
// agentID. instance is the live in-process handle (e.g. a *bdi.Agent),
// stored only in memory; it is never written to the persistent mirror.
func (c *Coordinator) RegisterAgent(agentID, agentType, description, publicAddress, signature string, instance interface{}) (*AgentRegistration, error) {
	reg, err := c.Agents.Register(agentID, agentType, description, publicAddress, signature, instance)
	if err != nil {
		return nil, err
	}
	c.logger.Info("agent registered", map[string]interface{}{"agent_id": agentID, "agent_type": agentType})
	return reg, nil
}

// shutdowner is satisfied by any registered instance that needs a chance to
// release resources before deregistration.
type shutdowner interface {
	Shutdown(ctx context.Context) error
}

// DeregisterAndShutdownAgent calls Shutdown on the agent's live instance, if
// it implements shutdowner, then removes it from the registry.
func (c *Coordinator) DeregisterAndShutdownAgent(ctx context.Context, agentID string) error {
	if instance, ok := c.Agents.Instance(agentID); ok {
		if sd, ok := instance.(shutdowner); ok {
			if err := sd.Shutdown(ctx); err != nil {
				c.logger.Warn("agent shutdown returned an error", map[string]interface{}{
					"agent_id": agentID, "error": err.Error(),
				})
			}
		}
	}
	return c.Agents.Deregister(agentID)
}

// CreateInteraction builds a new PENDING interaction. It does not process it.
func (c *Coordinator) CreateInteraction(interactionType InteractionType, content string, metadata map[string]interface{}) *Interaction {
	interaction := &Interaction{
		ID:        uuid.NewString(),
		Type:      interactionType,
		Content:   content,
		Metadata:  metadata,
		Status:    InteractionPending,
		CreatedAt: time.Now(),
	}

	c.mu.Lock()
	c.interactions[interaction.ID] = interaction
	c.mu.Unlock()

	return interaction
}

// ProcessInteraction dispatches interaction to the handler registered for
// its type, advancing it PENDING -> IN_PROGRESS -> COMPLETED/FAILED. An
// unrecognized type fails the interaction with a reason code; a handler
// error fails it with the error captured in Result["error"].
func (c *Coordinator) ProcessInteraction(ctx context.Context, interaction *Interaction) *Interaction {
	interaction.Status = InteractionInProgress

	c.mu.RLock()
	handler, ok := c.handlers[interaction.Type]
	c.mu.RUnlock()
	if !ok {
		interaction.Status = InteractionFailed
		interaction.Result = map[string]interface{}{"error": "unknown_interaction_type"}
		return interaction
	}

	result, err := handler(ctx, interaction)
	if err != nil {
		interaction.Status = InteractionFailed
		interaction.Result = map[string]interface{}{"error": err.Error()}
		return interaction
	}

	interaction.Status = InteractionCompleted
	interaction.Result = result
	return interaction
}

// HandleUserInput is the single entry point external callers use: it
// creates an interaction of the given type and processes it immediately.
func (c *Coordinator) HandleUserInput(ctx context.Context, content, userID string, interactionType InteractionType, metadata map[string]interface{}) *Interaction {
	if metadata == nil {
		metadata = make(map[string]interface{})
	}
	metadata["user_id"] = userID

	interaction := c.CreateInteraction(interactionType, content, metadata)
	return c.ProcessInteraction(ctx, interaction)
}

func (c *Coordinator) handleComponentImprovement(ctx context.Context, interaction *Interaction) (map[string]interface{}, error) {
	priority := 5
	if p, ok := interaction.Metadata["priority"].(int); ok {
		priority = p
	} else if pf, ok := interaction.Metadata["priority"].(float64); ok {
		priority = int(pf)
	}

	targetComponent, _ := interaction.Metadata["target_component"].(string)

	item, err := c.Backlog.Enqueue(interaction.Content, priority, interaction.ID, targetComponent)
	if err != nil {
		return nil, fmt.Errorf("enqueuing backlog item: %w", err)
	}

	c.trace(ctx, "coordinator_backlog_enqueued", map[string]interface{}{
		"interaction_id": interaction.ID, "backlog_item_id": item.ID, "priority": priority,
	})

	return map[string]interface{}{"backlog_item_id": item.ID, "priority": priority}, nil
}

func (c *Coordinator) handleSystemAnalysis(ctx context.Context, interaction *Interaction) (map[string]interface{}, error) {
	agents := c.Agents.All()
	tools := c.Tools.All()
	backlog := c.Backlog.All()

	return map[string]interface{}{
		"agent_count":   len(agents),
		"tool_count":    len(tools),
		"backlog_count": len(backlog),
	}, nil
}

func (c *Coordinator) handleUserQuery(ctx context.Context, interaction *Interaction) (map[string]interface{}, error) {
	return map[string]interface{}{"acknowledged": true}, nil
}

// RegisterHandler overrides or extends the handler dispatched for
// interactionType, used by higher tiers (Mastermind, AGInt) to plug in
// richer processing than the defaults above.
func (c *Coordinator) RegisterHandler(interactionType InteractionType, handler InteractionHandler) {
	c.mu.Lock()
	c.handlers[interactionType] = handler
	c.mu.Unlock()
}

// GetInteraction returns a previously created interaction by ID.
func (c *Coordinator) GetInteraction(id string) (*Interaction, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	interaction, ok := c.interactions[id]
	return interaction, ok
}

func (c *Coordinator) trace(ctx context.Context, process string, data map[string]interface{}) {
	if c.memAgent == nil {
		return
	}
	_ = c.memAgent.LogProcess(ctx, "coordinator", process, data, nil)
}

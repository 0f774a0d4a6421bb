package strategy

import (
	"context"
	"fmt"

	"github.com/itsneelabh/mindhive/bdi"
	"github.com/itsneelabh/mindhive/coordination"
)

// registerMastermindActions wires Mastermind's own BDI action handlers:
// each wraps a Coordinator call or a TextGenerator-driven JSON synthesis.
func registerMastermindActions(m *Mastermind, agent *bdi.Agent) {
	agent.RegisterAction("ASSESS_TOOL_SUITE_EFFECTIVENESS", "low", m.actionAssessToolSuite)
	agent.RegisterAction("PROPOSE_TOOL_STRATEGY", "standard", m.actionProposeToolStrategy)
	agent.RegisterAction("CONCEPTUALIZE_NEW_TOOL", "standard", m.actionConceptualizeNewTool)
	agent.RegisterAction("CREATE_AGENT", "high", m.actionCreateAgent)
	agent.RegisterAction("DELETE_AGENT", "critical", m.actionDeleteAgent)
	agent.RegisterAction("EVOLVE_AGENT", "high", m.actionEvolveAgent)
}

func (m *Mastermind) actionAssessToolSuite(ctx context.Context, params map[string]interface{}) bdi.ActionResult {
	if m.coordinator == nil {
		return bdi.ActionResult{OK: false, Err: fmt.Errorf("no coordinator configured")}
	}
	tools := m.coordinator.Tools.All()
	return bdi.ActionResult{OK: true, Data: map[string]interface{}{"tool_count": len(tools)}}
}

func (m *Mastermind) actionProposeToolStrategy(ctx context.Context, params map[string]interface{}) bdi.ActionResult {
	context_, _ := params["context"].(string)
	result := m.coordinator.HandleUserInput(ctx, "propose tool strategy: "+context_, "mastermind_prime", coordination.InteractionSystemAnalysis, nil)
	if result.Status != coordination.InteractionCompleted {
		return bdi.ActionResult{OK: false, Err: fmt.Errorf("tool strategy analysis failed")}
	}
	return bdi.ActionResult{OK: true, Data: result.Result}
}

func (m *Mastermind) actionConceptualizeNewTool(ctx context.Context, params map[string]interface{}) bdi.ActionResult {
	description, _ := params["description"].(string)
	toolID, _ := params["tool_id"].(string)
	if toolID == "" || description == "" {
		return bdi.ActionResult{OK: false, Err: fmt.Errorf("tool_id and description are required")}
	}

	if err := m.coordinator.Tools.Register(coordination.ToolRegistration{
		ToolID:      toolID,
		DisplayName: description,
		Status:      coordination.ToolActive,
		Version:     "0.1.0",
	}); err != nil {
		return bdi.ActionResult{OK: false, Err: err}
	}

	return bdi.ActionResult{OK: true, Data: map[string]interface{}{"tool_id": toolID}}
}

func (m *Mastermind) actionCreateAgent(ctx context.Context, params map[string]interface{}) bdi.ActionResult {
	agentID, _ := params["agent_id"].(string)
	agentType, _ := params["agent_type"].(string)
	description, _ := params["description"].(string)
	publicAddress, _ := params["public_address"].(string)
	signature, _ := params["signature"].(string)

	if agentID == "" {
		return bdi.ActionResult{OK: false, Err: fmt.Errorf("agent_id is required")}
	}

	reg, err := m.coordinator.RegisterAgent(agentID, agentType, description, publicAddress, signature, nil)
	if err != nil {
		return bdi.ActionResult{OK: false, Err: err}
	}
	return bdi.ActionResult{OK: true, Data: reg}
}

func (m *Mastermind) actionDeleteAgent(ctx context.Context, params map[string]interface{}) bdi.ActionResult {
	agentID, _ := params["agent_id"].(string)
	if agentID == "" {
		return bdi.ActionResult{OK: false, Err: fmt.Errorf("agent_id is required")}
	}

	if err := m.coordinator.DeregisterAndShutdownAgent(ctx, agentID); err != nil {
		return bdi.ActionResult{OK: false, Err: err, RollbackRequired: true}
	}
	return bdi.ActionResult{OK: true, Data: map[string]interface{}{"agent_id": agentID}}
}

func (m *Mastermind) actionEvolveAgent(ctx context.Context, params map[string]interface{}) bdi.ActionResult {
	agentID, _ := params["agent_id"].(string)
	reg, ok := m.coordinator.Agents.Get(agentID)
	if !ok {
		return bdi.ActionResult{OK: false, Err: fmt.Errorf("agent %s not registered", agentID)}
	}

	_, err := m.coordinator.RegisterAgent(reg.AgentID, reg.AgentType, reg.Description, reg.PublicAddress, reg.Signature, nil)
	if err != nil {
		return bdi.ActionResult{OK: false, Err: err}
	}
	return bdi.ActionResult{OK: true, Data: map[string]interface{}{"agent_id": agentID, "evolved": true}}
}

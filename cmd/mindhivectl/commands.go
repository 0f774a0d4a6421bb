package main

import (
	"context"

	"github.com/itsneelabh/mindhive/coordination"
	"github.com/itsneelabh/mindhive/core"
)

// EvolveCmd runs a Mastermind evolution campaign.
type EvolveCmd struct {
	Directive string `arg:"" help:"Natural-language evolution directive."`
}

func (c *EvolveCmd) Run(a *app) error {
	ctx := context.Background()
	if a.telemetry != nil {
		var span core.Span
		ctx, span = a.telemetry.StartSpan(ctx, "strategy.evolve")
		span.SetAttribute("directive", c.Directive)
		defer span.End()
	}

	outcome, err := a.mind.ManageMindxEvolution(ctx, c.Directive, a.cfg.Strategy.MaxBDICyclesPerRun)
	if err != nil {
		return a.finish(errored("evolution campaign failed to run", "planning_error"))
	}
	if outcome.OverallStatus != "SUCCESS" {
		return a.finish(failure(outcome.Message, "campaign_incomplete"))
	}
	return a.finish(success(outcome.Message, outcome))
}

// DeployCmd runs a Mastermind agent-deployment campaign.
type DeployCmd struct {
	Directive string `arg:"" help:"Natural-language deployment directive."`
}

func (c *DeployCmd) Run(a *app) error {
	ctx := context.Background()
	if a.telemetry != nil {
		var span core.Span
		ctx, span = a.telemetry.StartSpan(ctx, "strategy.deploy")
		span.SetAttribute("directive", c.Directive)
		defer span.End()
	}

	outcome, err := a.mind.ManageAgentDeployment(ctx, c.Directive, a.cfg.Strategy.MaxBDICyclesPerRun)
	if err != nil {
		return a.finish(errored("deployment campaign failed to run", "planning_error"))
	}
	if outcome.OverallStatus != "SUCCESS" {
		return a.finish(failure(outcome.Message, "campaign_incomplete"))
	}
	return a.finish(success(outcome.Message, outcome))
}

// IntrospectCmd generates a new persona via the TextGenerator and stores it
// as a belief. No concrete TextGenerator provider is wired by this binary
// (credentials are out of scope, per the command surface contract), so this
// always reports a configuration error until one is supplied by an embedder.
type IntrospectCmd struct {
	Directive string `arg:"" help:"Persona-generation directive."`
}

func (c *IntrospectCmd) Run(a *app) error {
	if a.bdiAgent == nil {
		return a.finish(errored("no BDI executor configured", "not_initialized"))
	}
	return a.finish(errored("no TextGenerator configured for persona introspection", "missing_configuration"))
}

// MastermindStatusCmd returns current strategic state and recent campaigns.
type MastermindStatusCmd struct {
	N int `help:"Number of recent campaigns to include." default:"10"`
}

func (c *MastermindStatusCmd) Run(a *app) error {
	recent := a.mind.RecentCampaigns(c.N)
	return a.finish(success("mastermind status", map[string]interface{}{"recent_campaigns": recent}))
}

// CoordQueryCmd dispatches a USER_QUERY interaction.
type CoordQueryCmd struct {
	Query string `arg:"" help:"Query content."`
}

func (c *CoordQueryCmd) Run(a *app) error {
	interaction := a.coord.HandleUserInput(context.Background(), c.Query, "cli", coordination.InteractionUserQuery, nil)
	return a.finish(interactionResult(interaction))
}

// CoordAnalyzeCmd creates a SYSTEM_ANALYSIS interaction.
type CoordAnalyzeCmd struct {
	Context string `help:"Optional analysis context."`
}

func (c *CoordAnalyzeCmd) Run(a *app) error {
	interaction := a.coord.HandleUserInput(context.Background(), c.Context, "cli", coordination.InteractionSystemAnalysis, nil)
	return a.finish(interactionResult(interaction))
}

// CoordImproveCmd enqueues a backlog item targeting a component.
type CoordImproveCmd struct {
	ComponentID string `arg:"" help:"Target component ID."`
	Context     string `help:"Optional improvement context."`
	Priority    int    `help:"Backlog priority (defaults to 5)." default:"5"`
}

func (c *CoordImproveCmd) Run(a *app) error {
	metadata := map[string]interface{}{
		"priority":         c.Priority,
		"target_component": c.ComponentID,
	}
	interaction := a.coord.HandleUserInput(context.Background(), c.Context, "cli", coordination.InteractionComponentImprovement, metadata)
	return a.finish(interactionResult(interaction))
}

// CoordBacklogCmd returns the ordered backlog.
type CoordBacklogCmd struct{}

func (c *CoordBacklogCmd) Run(a *app) error {
	items := a.coord.Backlog.All()
	return a.finish(success("ordered improvement backlog", items))
}

// CoordBacklogProcessCmd dequeues and processes the highest-priority item.
type CoordBacklogProcessCmd struct{}

func (c *CoordBacklogProcessCmd) Run(a *app) error {
	item, err := a.coord.Backlog.Dequeue()
	if err != nil || item == nil {
		return a.finish(failure("no processable backlog item", "backlog_empty"))
	}
	return a.finish(success("backlog item dequeued for processing", item))
}

// CoordApproveCmd transitions a backlog item to accepted/DONE.
type CoordApproveCmd struct {
	ItemID string `arg:"" help:"Backlog item ID."`
}

func (c *CoordApproveCmd) Run(a *app) error {
	if err := a.coord.Backlog.Complete(c.ItemID, true); err != nil {
		return a.finish(failure(err.Error(), "backlog_item_not_found"))
	}
	return a.finish(success("backlog item approved", map[string]interface{}{"item_id": c.ItemID}))
}

// CoordRejectCmd transitions a backlog item to rejected.
type CoordRejectCmd struct {
	ItemID string `arg:"" help:"Backlog item ID."`
}

func (c *CoordRejectCmd) Run(a *app) error {
	if err := a.coord.Backlog.Complete(c.ItemID, false); err != nil {
		return a.finish(failure(err.Error(), "backlog_item_not_found"))
	}
	return a.finish(success("backlog item rejected", map[string]interface{}{"item_id": c.ItemID}))
}

// AgentCreateCmd registers a new agent on the Coordinator registry.
type AgentCreateCmd struct {
	AgentID       string `arg:"" help:"New agent ID."`
	AgentType     string `help:"Agent type tag." default:"worker"`
	Description   string `help:"Human-readable description."`
	PublicAddress string `help:"Agent's public key address."`
	Signature     string `help:"Registration signature."`
}

func (c *AgentCreateCmd) Run(a *app) error {
	reg, err := a.coord.RegisterAgent(c.AgentID, c.AgentType, c.Description, c.PublicAddress, c.Signature, nil)
	if err != nil {
		return a.finish(failure(err.Error(), "agent_registration_failed"))
	}
	return a.finish(success("agent registered", reg))
}

// AgentDeleteCmd deregisters and shuts down an agent.
type AgentDeleteCmd struct {
	AgentID string `arg:"" help:"Agent ID to remove."`
}

func (c *AgentDeleteCmd) Run(a *app) error {
	if err := a.coord.DeregisterAndShutdownAgent(context.Background(), c.AgentID); err != nil {
		return a.finish(failure(err.Error(), "agent_not_found"))
	}
	return a.finish(success("agent deregistered", map[string]interface{}{"agent_id": c.AgentID}))
}

// AgentEvolveCmd re-registers an existing agent's registration in place,
// e.g. after a description or capability change.
type AgentEvolveCmd struct {
	AgentID       string `arg:"" help:"Agent ID to evolve."`
	Description   string `help:"Updated description."`
	PublicAddress string `help:"Updated public key address."`
	Signature     string `help:"Updated registration signature."`
}

func (c *AgentEvolveCmd) Run(a *app) error {
	existing, ok := a.coord.Agents.Get(c.AgentID)
	if !ok {
		return a.finish(failure("agent not registered", "agent_not_found"))
	}
	instance, _ := a.coord.Agents.Instance(c.AgentID)
	reg, err := a.coord.RegisterAgent(c.AgentID, existing.AgentType, c.Description, c.PublicAddress, c.Signature, instance)
	if err != nil {
		return a.finish(failure(err.Error(), "agent_registration_failed"))
	}
	return a.finish(success("agent evolved", reg))
}

// AgentSignCmd signs a message as the given agent, via IDManager.
type AgentSignCmd struct {
	AgentID string `arg:"" help:"Signing agent ID."`
	Message string `arg:"" help:"Message to sign."`
}

func (c *AgentSignCmd) Run(a *app) error {
	sig, err := a.idMgr.SignMessage(context.Background(), c.AgentID, c.Message)
	if err != nil {
		return a.finish(failure(err.Error(), "signing_failed"))
	}
	return a.finish(success("message signed", map[string]interface{}{"signature": sig}))
}

// AgentListCmd lists every registered agent.
type AgentListCmd struct{}

func (c *AgentListCmd) Run(a *app) error {
	return a.finish(success("registered agents", a.coord.Agents.All()))
}

// IDListCmd lists every entity with a known identity mapping.
type IDListCmd struct{}

func (c *IDListCmd) Run(a *app) error {
	identities, err := a.idMgr.ListManagedIdentities(context.Background())
	if err != nil {
		return a.finish(failure(err.Error(), "identity_list_failed"))
	}
	return a.finish(success("known identities", identities))
}

// IDCreateCmd creates (idempotently) a new wallet for an entity.
type IDCreateCmd struct {
	EntityID string `arg:"" help:"Entity ID to provision a wallet for."`
}

func (c *IDCreateCmd) Run(a *app) error {
	address, envVar, err := a.idMgr.CreateNewWallet(context.Background(), c.EntityID)
	if err != nil {
		return a.finish(errored(err.Error(), "key_creation_failed"))
	}
	return a.finish(success("wallet ready", map[string]interface{}{"public_address": address, "env_var": envVar}))
}

// IDDeprecateCmd marks a registered agent's identity as disabled in the
// Coordinator's agent registry, the closest analogue to "deprecating" an
// identity: IDManager itself has no deletion path, only key creation/lookup.
type IDDeprecateCmd struct {
	EntityID string `arg:"" help:"Entity ID to deprecate."`
}

func (c *IDDeprecateCmd) Run(a *app) error {
	if err := a.coord.Agents.SetEnabled(c.EntityID, false); err != nil {
		return a.finish(failure(err.Error(), "agent_not_found"))
	}
	return a.finish(success("identity deprecated", map[string]interface{}{"entity_id": c.EntityID}))
}

// AuditGeminiCmd probes the TextGenerator's model catalog. No concrete
// TextGenerator provider is wired by this binary, so this reports the
// absence as a configuration error rather than guessing at a catalog.
type AuditGeminiCmd struct {
	TestAll      bool `name:"test-all" help:"Probe every known model, not just the default."`
	UpdateConfig bool `name:"update-config" help:"Persist the probed model back into configuration."`
}

func (c *AuditGeminiCmd) Run(a *app) error {
	return a.finish(errored("no TextGenerator configured to probe", "missing_configuration"))
}

func interactionResult(interaction *coordination.Interaction) result {
	switch interaction.Status {
	case coordination.InteractionCompleted:
		return success("interaction completed", interaction)
	default:
		errType, _ := interaction.Result["error"].(string)
		if errType == "" {
			errType = "interaction_failed"
		}
		return failure(errType, "interaction_failed")
	}
}

// Command mindhivectl is the CLI front-end for a mindhive process: it
// boots the full Mastermind -> AGInt -> BDI hierarchy against a data
// directory and dispatches one command surface action per invocation.
//
// Usage:
//
//	mindhivectl evolve "tighten the retry budget on the web search tool"
//	mindhivectl coord_backlog
//	mindhivectl agent_list
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/alecthomas/kong"

	"github.com/itsneelabh/mindhive/core"
)

// shutdownable is implemented by telemetry providers that hold exporter
// resources (e.g. *telemetry.OTelProvider); core.Telemetry itself has no
// Shutdown method since most implementations (like core.NoOpTelemetry)
// have nothing to flush.
type shutdownable interface {
	Shutdown(ctx context.Context) error
}

// CLI is the root kong command set, matching the spec's command surface
// table one-for-one.
type CLI struct {
	Evolve              EvolveCmd              `cmd:"" help:"Run a Mastermind evolution campaign."`
	Deploy              DeployCmd              `cmd:"" help:"Run a Mastermind agent-deployment campaign."`
	Introspect          IntrospectCmd          `cmd:"" help:"Generate a new persona via the TextGenerator."`
	MastermindStatus    MastermindStatusCmd    `cmd:"" name:"mastermind_status" help:"Show strategic state and recent campaigns."`
	CoordQuery          CoordQueryCmd          `cmd:"" name:"coord_query" help:"Dispatch a USER_QUERY interaction."`
	CoordAnalyze        CoordAnalyzeCmd        `cmd:"" name:"coord_analyze" help:"Create a SYSTEM_ANALYSIS interaction."`
	CoordImprove        CoordImproveCmd        `cmd:"" name:"coord_improve" help:"Enqueue a backlog item for a component."`
	CoordBacklog        CoordBacklogCmd        `cmd:"" name:"coord_backlog" help:"Show the ordered improvement backlog."`
	CoordBacklogProcess CoordBacklogProcessCmd `cmd:"" name:"coord_backlog_process" help:"Process the highest-priority backlog item."`
	CoordApprove        CoordApproveCmd        `cmd:"" name:"coord_approve" help:"Approve a backlog item."`
	CoordReject         CoordRejectCmd         `cmd:"" name:"coord_reject" help:"Reject a backlog item."`
	AgentCreate         AgentCreateCmd         `cmd:"" name:"agent_create" help:"Register a new agent."`
	AgentDelete         AgentDeleteCmd         `cmd:"" name:"agent_delete" help:"Deregister and shut down an agent."`
	AgentEvolve         AgentEvolveCmd         `cmd:"" name:"agent_evolve" help:"Re-register an agent with updated fields."`
	AgentSign           AgentSignCmd           `cmd:"" name:"agent_sign" help:"Sign a message as an agent."`
	AgentList           AgentListCmd           `cmd:"" name:"agent_list" help:"List registered agents."`
	IDList              IDListCmd              `cmd:"" name:"id_list" help:"List known identities."`
	IDCreate            IDCreateCmd            `cmd:"" name:"id_create" help:"Create a new wallet for an entity."`
	IDDeprecate         IDDeprecateCmd         `cmd:"" name:"id_deprecate" help:"Deprecate an entity's identity."`
	AuditGemini         AuditGeminiCmd         `cmd:"" name:"audit_gemini" help:"Probe the TextGenerator's model catalog."`

	DataDir string `help:"Root directory for all flat-file stores." type:"path" default:"./data"`
	Name    string `help:"Process/agent name." default:"mindhive"`
}

func main() {
	cli := CLI{}
	kctx := kong.Parse(&cli,
		kong.Name("mindhivectl"),
		kong.Description("mindhive strategic agent hierarchy CLI"),
		kong.UsageOnError(),
	)

	cfg, err := core.NewConfig(core.WithName(cli.Name), core.WithDataDir(cli.DataDir))
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(exitError)
	}

	a, err := newApp(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "bootstrap error: %v\n", err)
		os.Exit(exitError)
	}
	// Each command's Run(a *app) error is invoked by kong with a bound via
	// type, and reports its outcome by calling a.finish (JSON to stdout,
	// exit code recorded on a) rather than by returning a Go error. os.Exit
	// does not run deferred calls, so telemetry is flushed explicitly here
	// rather than via defer.
	kctx.FatalIfErrorf(kctx.Run(a))
	if sd, ok := a.telemetry.(shutdownable); ok {
		_ = sd.Shutdown(context.Background())
	}
	os.Exit(a.exitCode)
}

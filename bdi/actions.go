package bdi

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/itsneelabh/mindhive/belief"
)

// registerBuiltinActions wires the minimal universal action set: file I/O,
// sandboxed process execution, text generation/analysis, code generation,
// belief read/write, child-agent delegation, and audit invocation.
func registerBuiltinActions(a *Agent) {
	a.RegisterAction("NOOP", "low", func(ctx context.Context, params map[string]interface{}) ActionResult {
		return ActionResult{OK: true, Data: "noop"}
	})

	a.RegisterAction("READ_FILE", "low", a.actionReadFile)
	a.RegisterAction("WRITE_FILE", "standard", a.actionWriteFile)
	a.RegisterAction("RUN_PROCESS", "high", a.actionRunProcess)
	a.RegisterAction("GENERATE_TEXT", "low", a.actionGenerateText)
	a.RegisterAction("GENERATE_CODE", "standard", a.actionGenerateCode)
	a.RegisterAction("BELIEF_READ", "low", a.actionBeliefRead)
	a.RegisterAction("BELIEF_WRITE", "low", a.actionBeliefWrite)
	a.RegisterAction("DELEGATE_TO_CHILD", "standard", a.actionDelegate)
	a.RegisterAction("INVOKE_AUDIT", "standard", a.actionInvokeAudit)
}

// resolveWorkspacePath rejects any path that would escape the workspace
// root, sandboxing file I/O and process execution to it.
func (a *Agent) resolveWorkspacePath(rel string) (string, error) {
	if a.workspace == "" {
		return "", fmt.Errorf("no workspace configured")
	}
	joined := filepath.Join(a.workspace, rel)
	absWorkspace, err := filepath.Abs(a.workspace)
	if err != nil {
		return "", err
	}
	absJoined, err := filepath.Abs(joined)
	if err != nil {
		return "", err
	}
	if absJoined != absWorkspace && !strings.HasPrefix(absJoined, absWorkspace+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q escapes workspace", rel)
	}
	return absJoined, nil
}

func (a *Agent) actionReadFile(ctx context.Context, params map[string]interface{}) ActionResult {
	rel, _ := params["path"].(string)
	path, err := a.resolveWorkspacePath(rel)
	if err != nil {
		return ActionResult{OK: false, Err: err}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return ActionResult{OK: false, Err: err, RollbackRequired: false}
	}
	return ActionResult{OK: true, Data: string(data)}
}

func (a *Agent) actionWriteFile(ctx context.Context, params map[string]interface{}) ActionResult {
	rel, _ := params["path"].(string)
	content, _ := params["content"].(string)
	path, err := a.resolveWorkspacePath(rel)
	if err != nil {
		return ActionResult{OK: false, Err: err}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return ActionResult{OK: false, Err: err}
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return ActionResult{OK: false, Err: err, RollbackRequired: true}
	}
	return ActionResult{OK: true, Data: "written"}
}

func (a *Agent) actionRunProcess(ctx context.Context, params map[string]interface{}) ActionResult {
	name, _ := params["command"].(string)
	if name == "" {
		return ActionResult{OK: false, Err: fmt.Errorf("command is required")}
	}
	var args []string
	if raw, ok := params["args"].([]interface{}); ok {
		for _, v := range raw {
			if s, ok := v.(string); ok {
				args = append(args, s)
			}
		}
	}

	timeout := 60 * time.Second
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, name, args...)
	cmd.Dir = a.workspace

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	if err := cmd.Run(); err != nil {
		return ActionResult{OK: false, Data: out.String(), Err: err, RollbackRequired: true}
	}
	return ActionResult{OK: true, Data: out.String()}
}

func (a *Agent) actionGenerateText(ctx context.Context, params map[string]interface{}) ActionResult {
	prompt, _ := params["prompt"].(string)
	if a.textGen == nil {
		return ActionResult{OK: false, Err: fmt.Errorf("no text generator configured")}
	}
	text, err := generate(ctx, a.textGen, prompt)
	if err != nil {
		return ActionResult{OK: false, Err: err}
	}
	return ActionResult{OK: true, Data: text}
}

func (a *Agent) actionGenerateCode(ctx context.Context, params map[string]interface{}) ActionResult {
	spec, _ := params["specification"].(string)
	if a.textGen == nil {
		return ActionResult{OK: false, Err: fmt.Errorf("no text generator configured")}
	}
	code, err := generate(ctx, a.textGen, "Generate code for: "+spec)
	if err != nil {
		return ActionResult{OK: false, Err: err}
	}
	return ActionResult{OK: true, Data: code}
}

func (a *Agent) actionBeliefRead(ctx context.Context, params map[string]interface{}) ActionResult {
	key, _ := params["key"].(string)
	if a.beliefs == nil {
		return ActionResult{OK: false, Err: fmt.Errorf("no belief system configured")}
	}
	b, ok := a.beliefs.Get(ctx, key)
	if !ok {
		return ActionResult{OK: false, Err: fmt.Errorf("belief %q not found", key)}
	}
	return ActionResult{OK: true, Data: b.Value}
}

func (a *Agent) actionBeliefWrite(ctx context.Context, params map[string]interface{}) ActionResult {
	key, _ := params["key"].(string)
	value := params["value"]
	confidence, _ := params["confidence"].(float64)
	if a.beliefs == nil {
		return ActionResult{OK: false, Err: fmt.Errorf("no belief system configured")}
	}
	if err := a.beliefs.Update(ctx, key, value, confidence, belief.SourceInference); err != nil {
		return ActionResult{OK: false, Err: err}
	}
	return ActionResult{OK: true, Data: "written"}
}

// ChildDelegate is implemented by whatever runs a delegated sub-goal (e.g.
// another bdi.Agent or an external task runner).
type ChildDelegate interface {
	Run(ctx context.Context, maxCycles int) string
}

func (a *Agent) actionDelegate(ctx context.Context, params map[string]interface{}) ActionResult {
	child, _ := params["delegate"].(ChildDelegate)
	description, _ := params["description"].(string)
	if child == nil {
		return ActionResult{OK: false, Err: fmt.Errorf("no child delegate supplied")}
	}

	maxCycles := 10
	if v, ok := params["max_cycles"].(int); ok {
		maxCycles = v
	}

	child.Run(ctx, maxCycles)
	result := fmt.Sprintf("delegated %q", description)
	return ActionResult{OK: true, Data: result}
}

// AuditInvoker is implemented by whatever can run an ad-hoc audit pass
// (e.g. the audit.Coordinator).
type AuditInvoker interface {
	RunAdHocAudit(ctx context.Context, scope string, targetComponents []string) (string, error)
}

func (a *Agent) actionInvokeAudit(ctx context.Context, params map[string]interface{}) ActionResult {
	invoker, _ := params["invoker"].(AuditInvoker)
	scope, _ := params["scope"].(string)
	if invoker == nil {
		return ActionResult{OK: false, Err: fmt.Errorf("no audit invoker supplied")}
	}

	var components []string
	if raw, ok := params["target_components"].([]interface{}); ok {
		for _, v := range raw {
			if s, ok := v.(string); ok {
				components = append(components, s)
			}
		}
	}

	summary, err := invoker.RunAdHocAudit(ctx, scope, components)
	if err != nil {
		return ActionResult{OK: false, Err: err, RollbackRequired: true}
	}
	return ActionResult{OK: true, Data: summary}
}

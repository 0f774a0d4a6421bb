// Package toolregistry holds the base tool implementations available to
// every BDI agent and AGInt instance: concrete capabilities that go beyond
// BDI's minimal universal action set (web search, structured file search,
// text summarization) but share the same (ok, data|error) action contract.
package toolregistry

import (
	"context"
	"fmt"
	"sync"

	"github.com/itsneelabh/mindhive/bdi"
	"github.com/itsneelabh/mindhive/core"
)

// Tool is one named, catalog-described capability.
type Tool interface {
	Name() string
	Description() string
	Execute(ctx context.Context, params map[string]interface{}) bdi.ActionResult
}

// Registry is the in-process catalog of available tools.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool

	logger core.Logger
}

// New constructs an empty Registry.
func New(logger core.Logger) *Registry {
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	if cal, ok := logger.(core.ComponentAwareLogger); ok {
		logger = cal.WithComponent("toolregistry")
	}
	return &Registry{tools: make(map[string]Tool), logger: logger}
}

// Register adds or replaces tool under its own Name().
func (r *Registry) Register(tool Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[tool.Name()] = tool
	r.logger.Info("tool registered", map[string]interface{}{"tool": tool.Name()})
}

// Get returns the tool named name, if any.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Names returns every registered tool's name.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	return names
}

// WireIntoBDI registers every tool in the catalog as a BDI action under its
// own name, at the given safety level, so BDI plans can reference them
// directly.
func (r *Registry) WireIntoBDI(agent *bdi.Agent, safetyLevel string) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for name, tool := range r.tools {
		tool := tool
		agent.RegisterAction(name, safetyLevel, func(ctx context.Context, params map[string]interface{}) bdi.ActionResult {
			return tool.Execute(ctx, params)
		})
	}
}

// Execute runs the named tool directly, without going through BDI.
func (r *Registry) Execute(ctx context.Context, name string, params map[string]interface{}) bdi.ActionResult {
	tool, ok := r.Get(name)
	if !ok {
		return bdi.ActionResult{OK: false, Err: fmt.Errorf("tool %s: %w", name, core.ErrToolNotFound)}
	}
	return tool.Execute(ctx, params)
}

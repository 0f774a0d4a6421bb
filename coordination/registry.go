package coordination

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/itsneelabh/mindhive/core"
)

// agentRegistryFile is the on-disk shape of official_agents_registry.json,
// matching the layout Guardian reads independently for its registry check.
type agentRegistryFile struct {
	RegisteredAgents map[string]agentRegistryEntry `json:"registered_agents"`
}

type agentRegistryEntry struct {
	AgentType     string `json:"agent_type"`
	Description   string `json:"description"`
	Enabled       bool   `json:"enabled"`
	Status        string `json:"status"`
	PublicAddress string `json:"public_address"`
	Signature     string `json:"signature"`
	Identity      struct {
		PublicKey string `json:"public_key"`
	} `json:"identity"`
}

// AgentRegistry is the Coordinator's authoritative agent registry: an
// in-process map of live instances mirrored to a flat JSON file on every
// mutation, in the shape Guardian's registry check reads independently.
type AgentRegistry struct {
	mu    sync.RWMutex
	path  string
	items map[string]*AgentRegistration
}

// NewAgentRegistry loads path if present, or starts empty.
func NewAgentRegistry(path string) (*AgentRegistry, error) {
	r := &AgentRegistry{path: path, items: make(map[string]*AgentRegistration)}
	if path == "" {
		return r, nil
	}
	if err := r.load(); err != nil {
		return nil, err
	}
	return r, nil
}

// Register adds or replaces the registry entry for agentID and mirrors the
// change to the persistent file. instance is an opaque live handle kept only
// in memory.
func (r *AgentRegistry) Register(agentID, agentType, description, publicAddress, signature string, instance interface{}) (*AgentRegistration, error) {
	reg := &AgentRegistration{
		AgentID:       agentID,
		AgentType:     agentType,
		Description:   description,
		PublicAddress: publicAddress,
		Signature:     signature,
		Status:        AgentRegistered,
		instance:      instance,
	}

	r.mu.Lock()
	r.items[agentID] = reg
	r.mu.Unlock()

	return reg, r.persist()
}

// Get returns the registration for agentID, if any.
func (r *AgentRegistry) Get(agentID string) (*AgentRegistration, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.items[agentID]
	return reg, ok
}

// Instance returns the live in-process handle registered for agentID, if any.
func (r *AgentRegistry) Instance(agentID string) (interface{}, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.items[agentID]
	if !ok {
		return nil, false
	}
	return reg.instance, true
}

// Deregister removes agentID from the registry and mirrors the change.
// Returns core.ErrAgentNotFound if agentID was never registered.
func (r *AgentRegistry) Deregister(agentID string) error {
	r.mu.Lock()
	_, ok := r.items[agentID]
	delete(r.items, agentID)
	r.mu.Unlock()

	if !ok {
		return fmt.Errorf("agent %s: %w", agentID, core.ErrAgentNotFound)
	}
	return r.persist()
}

// SetEnabled flips an agent's enabled/disabled status and mirrors the change.
func (r *AgentRegistry) SetEnabled(agentID string, enabled bool) error {
	r.mu.Lock()
	reg, ok := r.items[agentID]
	if ok {
		if enabled {
			reg.Status = AgentRegistered
		} else {
			reg.Status = AgentDisabled
		}
	}
	r.mu.Unlock()

	if !ok {
		return fmt.Errorf("agent %s: %w", agentID, core.ErrAgentNotFound)
	}
	return r.persist()
}

// All returns every registration currently on file.
func (r *AgentRegistry) All() []*AgentRegistration {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*AgentRegistration, 0, len(r.items))
	for _, reg := range r.items {
		out = append(out, reg)
	}
	return out
}

func (r *AgentRegistry) persist() error {
	if r.path == "" {
		return nil
	}

	r.mu.RLock()
	file := agentRegistryFile{RegisteredAgents: make(map[string]agentRegistryEntry, len(r.items))}
	for id, reg := range r.items {
		entry := agentRegistryEntry{
			AgentType:     reg.AgentType,
			Description:   reg.Description,
			Enabled:       reg.Status != AgentDisabled,
			Status:        string(reg.Status),
			PublicAddress: reg.PublicAddress,
			Signature:     reg.Signature,
		}
		entry.Identity.PublicKey = reg.PublicAddress
		file.RegisteredAgents[id] = entry
	}
	r.mu.RUnlock()

	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling agent registry: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return fmt.Errorf("creating agent registry directory: %w", err)
	}

	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing agent registry: %w", err)
	}
	if err := os.Rename(tmp, r.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("committing agent registry: %w", err)
	}
	return nil
}

func (r *AgentRegistry) load() error {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading agent registry: %w", err)
	}

	var file agentRegistryFile
	if err := json.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parsing agent registry: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for id, entry := range file.RegisteredAgents {
		status := AgentStatus(entry.Status)
		if status == "" {
			if entry.Enabled {
				status = AgentRegistered
			} else {
				status = AgentDisabled
			}
		}
		r.items[id] = &AgentRegistration{
			AgentID:       id,
			AgentType:     entry.AgentType,
			Description:   entry.Description,
			PublicAddress: entry.PublicAddress,
			Signature:     entry.Signature,
			Status:        status,
		}
	}
	return nil
}

// toolRegistryFile is the on-disk shape of official_tools_registry.json.
type toolRegistryFile struct {
	RegisteredTools map[string]ToolRegistration `json:"registered_tools"`
}

// ToolRegistry is the Coordinator's catalogue of available tools, mirrored
// to a flat JSON file on every mutation.
type ToolRegistry struct {
	mu    sync.RWMutex
	path  string
	items map[string]*ToolRegistration
}

// NewToolRegistry loads path if present, or starts empty.
func NewToolRegistry(path string) (*ToolRegistry, error) {
	r := &ToolRegistry{path: path, items: make(map[string]*ToolRegistration)}
	if path == "" {
		return r, nil
	}
	if err := r.load(); err != nil {
		return nil, err
	}
	return r, nil
}

// Register adds or replaces the entry for tool.ToolID.
func (r *ToolRegistry) Register(tool ToolRegistration) error {
	r.mu.Lock()
	r.items[tool.ToolID] = &tool
	r.mu.Unlock()
	return r.persist()
}

// Get returns the registration for toolID, if any.
func (r *ToolRegistry) Get(toolID string) (*ToolRegistration, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.items[toolID]
	return t, ok
}

// Deprecate marks a tool DEPRECATED without removing its history.
func (r *ToolRegistry) Deprecate(toolID string) error {
	r.mu.Lock()
	t, ok := r.items[toolID]
	if ok {
		t.Status = ToolDeprecated
	}
	r.mu.Unlock()

	if !ok {
		return fmt.Errorf("tool %s: %w", toolID, core.ErrToolNotFound)
	}
	return r.persist()
}

// All returns every tool registration currently on file.
func (r *ToolRegistry) All() []*ToolRegistration {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*ToolRegistration, 0, len(r.items))
	for _, t := range r.items {
		out = append(out, t)
	}
	return out
}

func (r *ToolRegistry) persist() error {
	if r.path == "" {
		return nil
	}

	r.mu.RLock()
	file := toolRegistryFile{RegisteredTools: make(map[string]ToolRegistration, len(r.items))}
	for id, t := range r.items {
		file.RegisteredTools[id] = *t
	}
	r.mu.RUnlock()

	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling tool registry: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return fmt.Errorf("creating tool registry directory: %w", err)
	}

	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing tool registry: %w", err)
	}
	if err := os.Rename(tmp, r.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("committing tool registry: %w", err)
	}
	return nil
}

func (r *ToolRegistry) load() error {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading tool registry: %w", err)
	}

	var file toolRegistryFile
	if err := json.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parsing tool registry: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for id, t := range file.RegisteredTools {
		t := t
		r.items[id] = &t
	}
	return nil
}

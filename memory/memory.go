// Package memory implements the MemoryAgent: an append-only, timestamped
// trace store for process events, kept per agent under a data directory
// with owner-only permissions.
package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/itsneelabh/mindhive/core"
)

// Record is one appended trace entry.
type Record struct {
	ProcessName string                 `json:"process_name"`
	Timestamp   time.Time              `json:"timestamp"`
	Data        map[string]interface{} `json:"data"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

// Agent appends and retrieves process traces, one rolling journal file per
// agent under tracesDir/<agent_id>/traces.jsonl. Reads go through an
// in-process cache so repeated queries against the same agent's journal
// (GetRecentTimestampMemories, GetMemoryStatistics) don't re-read and
// re-parse the whole file from disk every time; the cache entry for an
// agent is dropped the moment a new record is appended for it.
type Agent struct {
	mu        sync.Mutex
	tracesDir string
	logger    core.Logger
	cache     *core.MemoryStore
}

// journalCacheTTL bounds how long a cached journal may serve reads before
// falling back to disk, in case something outside this process appends to
// the journal file directly.
const journalCacheTTL = 10 * time.Second

// NewAgent creates a MemoryAgent rooted at tracesDir.
func NewAgent(tracesDir string, logger core.Logger) *Agent {
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	if cal, ok := logger.(core.ComponentAwareLogger); ok {
		logger = cal.WithComponent("memory")
	}
	cache := core.NewMemoryStore()
	cache.SetLogger(logger)
	return &Agent{tracesDir: tracesDir, logger: logger, cache: cache}
}

// GetAgentDataDirectory returns (creating if absent) the owner-only
// directory holding agentID's traces.
func (a *Agent) GetAgentDataDirectory(agentID string) (string, error) {
	dir := filepath.Join(a.tracesDir, agentID)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("creating agent data directory: %w", err)
	}
	return dir, nil
}

func (a *Agent) journalPath(agentID string) (string, error) {
	dir, err := a.GetAgentDataDirectory(agentID)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "traces.jsonl"), nil
}

// LogProcess appends a timestamped record for agentID. Records are
// strictly append-only; no compaction is performed.
func (a *Agent) LogProcess(ctx context.Context, agentID, processName string, data, metadata map[string]interface{}) error {
	rec := Record{
		ProcessName: processName,
		Timestamp:   time.Now(),
		Data:        data,
		Metadata:    metadata,
	}

	line, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshaling trace record: %w", err)
	}

	path, err := a.journalPath(agentID)
	if err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("opening trace journal: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("writing trace record: %w", err)
	}

	// The cached journal is now stale; drop it rather than append to it, so
	// the next read re-parses the file and picks up this record.
	_ = a.cache.Delete(ctx, agentID)

	a.logger.Debug("process logged", map[string]interface{}{
		"agent_id": agentID, "process": processName,
	})

	return nil
}

// SaveInteractionMemory records an interaction outcome as a trace under the
// "interaction" process name.
func (a *Agent) SaveInteractionMemory(ctx context.Context, agentID, interactionID string, content map[string]interface{}) error {
	return a.LogProcess(ctx, agentID, "interaction", content, map[string]interface{}{"interaction_id": interactionID})
}

// SaveTimestampMemory records an arbitrary timestamped fact scoped under
// scope, independent of any interaction.
func (a *Agent) SaveTimestampMemory(ctx context.Context, agentID, scope string, content map[string]interface{}) error {
	return a.LogProcess(ctx, agentID, "timestamp_memory", content, map[string]interface{}{"scope": scope})
}

// GetRecentTimestampMemories returns up to count most-recent
// "timestamp_memory" records for agentID whose scope matches, newest first.
func (a *Agent) GetRecentTimestampMemories(ctx context.Context, agentID, scope string, count int) ([]Record, error) {
	all, err := a.readAll(ctx, agentID)
	if err != nil {
		return nil, err
	}

	var matched []Record
	for _, r := range all {
		if r.ProcessName != "timestamp_memory" {
			continue
		}
		if scope != "" && r.Metadata["scope"] != scope {
			continue
		}
		matched = append(matched, r)
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].Timestamp.After(matched[j].Timestamp)
	})

	if count > 0 && len(matched) > count {
		matched = matched[:count]
	}
	return matched, nil
}

// Statistics summarizes a single agent's trace journal.
type Statistics struct {
	AgentID      string         `json:"agent_id"`
	RecordCount  int            `json:"record_count"`
	ByProcess    map[string]int `json:"by_process"`
	OldestRecord *time.Time     `json:"oldest_record,omitempty"`
	NewestRecord *time.Time     `json:"newest_record,omitempty"`
}

// GetMemoryStatistics computes summary counts over agentID's journal.
func (a *Agent) GetMemoryStatistics(ctx context.Context, agentID string) (*Statistics, error) {
	all, err := a.readAll(ctx, agentID)
	if err != nil {
		return nil, err
	}

	stats := &Statistics{
		AgentID:     agentID,
		RecordCount: len(all),
		ByProcess:   make(map[string]int),
	}

	for _, r := range all {
		stats.ByProcess[r.ProcessName]++
		ts := r.Timestamp
		if stats.OldestRecord == nil || ts.Before(*stats.OldestRecord) {
			stats.OldestRecord = &ts
		}
		if stats.NewestRecord == nil || ts.After(*stats.NewestRecord) {
			stats.NewestRecord = &ts
		}
	}

	return stats, nil
}

// readAll returns every record in agentID's journal, newest-last. A hit in
// the in-process cache skips the disk read and re-parse entirely; a miss
// reads the file once and populates the cache for journalCacheTTL.
func (a *Agent) readAll(ctx context.Context, agentID string) ([]Record, error) {
	if cached, err := a.cache.Get(ctx, agentID); err == nil && cached != "" {
		var records []Record
		if err := json.Unmarshal([]byte(cached), &records); err == nil {
			return records, nil
		}
	}

	path, err := a.journalPath(agentID)
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	data, err := os.ReadFile(path)
	a.mu.Unlock()
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading trace journal: %w", err)
	}

	var records []Record
	dec := json.NewDecoder(bytes.NewReader(data))
	for {
		var r Record
		if err := dec.Decode(&r); err != nil {
			break
		}
		records = append(records, r)
	}

	if encoded, err := json.Marshal(records); err == nil {
		_ = a.cache.Set(ctx, agentID, string(encoded), journalCacheTTL)
	}

	return records, nil
}

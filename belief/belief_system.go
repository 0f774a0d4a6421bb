package belief

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/itsneelabh/mindhive/core"
)

// System is the shared, mutex-guarded belief store. Every reasoning tier
// reads and writes through the same instance so perception in one
// component is visible to the others in the next cycle.
type System struct {
	mu     sync.RWMutex
	data   map[string]*Belief
	path   string
	logger core.Logger
}

// New creates a belief store. When path is non-empty, every mutation is
// persisted to it as a JSON snapshot via an atomic temp-file-then-rename
// write, and any existing snapshot at path is loaded immediately.
func New(path string, logger core.Logger) (*System, error) {
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	if cal, ok := logger.(core.ComponentAwareLogger); ok {
		logger = cal.WithComponent("belief")
	}

	s := &System{
		data:   make(map[string]*Belief),
		path:   path,
		logger: logger,
	}

	if path != "" {
		if err := s.load(); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Update upserts the belief at key, overwriting value/confidence/source and
// bumping LastUpdated. Timestamps are monotonic non-decreasing: a write
// racing behind an earlier write keeps the later LastUpdated.
//
// Persistence I/O failures are logged and swallowed, not returned: the
// belief is already committed in memory and remains authoritative for the
// life of the process even if the snapshot write fails.
func (s *System) Update(ctx context.Context, key string, value interface{}, confidence float64, source Source) error {
	s.mu.Lock()
	if existing, ok := s.data[key]; ok {
		existing.update(value, confidence, source)
	} else {
		s.data[key] = newBelief(value, confidence, source)
	}
	s.mu.Unlock()

	s.logger.Debug("belief updated", map[string]interface{}{
		"key": key, "source": string(source), "confidence": confidence,
	})

	if err := s.persist(); err != nil {
		s.logger.Error("belief snapshot persistence failed", map[string]interface{}{
			"key": key, "error": err.Error(),
		})
	}

	return nil
}

// Add is an alias for Update kept for symmetry with the original
// add_belief/update_belief pair, which behave identically on this store.
func (s *System) Add(ctx context.Context, key string, value interface{}, confidence float64, source Source) error {
	return s.Update(ctx, key, value, confidence, source)
}

// Get returns a copy of the belief at key, or nil if absent. The copy is
// shallow: a map or slice Value is shared with the store, not cloned.
func (s *System) Get(ctx context.Context, key string) (*Belief, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.data[key]
	if !ok {
		return nil, false
	}
	return b.clone(), true
}

// GetValue returns the belief's value, or def if the key is absent.
func (s *System) GetValue(ctx context.Context, key string, def interface{}) interface{} {
	if b, ok := s.Get(ctx, key); ok {
		return b.Value
	}
	return def
}

// Remove deletes the belief at key, if present.
func (s *System) Remove(ctx context.Context, key string) error {
	s.mu.Lock()
	_, existed := s.data[key]
	delete(s.data, key)
	s.mu.Unlock()

	if !existed {
		return nil
	}
	if err := s.persist(); err != nil {
		s.logger.Error("belief snapshot persistence failed", map[string]interface{}{
			"key": key, "error": err.Error(),
		})
	}
	return nil
}

// All returns a copy of every belief currently held. Each copy is shallow:
// a map or slice Value is shared with the store, not cloned.
func (s *System) All(ctx context.Context) map[string]*Belief {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]*Belief, len(s.data))
	for k, v := range s.data {
		out[k] = v.clone()
	}
	return out
}

// QueryResult pairs a belief with its key for Query's results.
type QueryResult struct {
	Key    string
	Belief *Belief
}

// Query returns every belief whose key contains partialKey (substring
// match, matching the original's "partial_key in key" semantics), whose
// confidence is at least minConfidence, and whose source matches source
// when source is non-empty.
func (s *System) Query(ctx context.Context, partialKey string, minConfidence float64, source Source) []QueryResult {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var results []QueryResult
	for key, b := range s.data {
		if !strings.Contains(key, partialKey) {
			continue
		}
		if b.Confidence < minConfidence {
			continue
		}
		if source != "" && b.Source != source {
			continue
		}
		results = append(results, QueryResult{Key: key, Belief: b.clone()})
	}
	return results
}

func (s *System) persist() error {
	if s.path == "" {
		return nil
	}

	s.mu.RLock()
	snapshot := make(map[string]*Belief, len(s.data))
	for k, v := range s.data {
		snapshot[k] = v
	}
	s.mu.RUnlock()

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling belief snapshot: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("creating belief snapshot directory: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing belief snapshot: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("committing belief snapshot: %w", err)
	}

	return nil
}

func (s *System) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading belief snapshot: %w", err)
	}

	var loaded map[string]*Belief
	if err := json.Unmarshal(data, &loaded); err != nil {
		return fmt.Errorf("parsing belief snapshot: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = loaded
	if s.data == nil {
		s.data = make(map[string]*Belief)
	}
	return nil
}

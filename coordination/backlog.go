package coordination

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/itsneelabh/mindhive/core"
)

// Backlog holds improvement items ordered for dequeue by (priority desc,
// created_at asc), mirrored to a JSON file on every mutation.
type Backlog struct {
	mu    sync.Mutex
	items []*BacklogItem
	path  string

	// inFlight tracks target components with an IN_PROGRESS item, enforcing
	// at most one concurrent in-flight item per target component.
	inFlight map[string]bool
}

// NewBacklog loads path if it exists, or starts empty.
func NewBacklog(path string) (*Backlog, error) {
	b := &Backlog{path: path, inFlight: make(map[string]bool)}
	if path == "" {
		return b, nil
	}
	if err := b.load(); err != nil {
		return nil, err
	}
	return b, nil
}

// Enqueue inserts a new item in priority order, with a fresh ID and
// PENDING status.
func (b *Backlog) Enqueue(description string, priority int, source, targetComponent string) (*BacklogItem, error) {
	item := &BacklogItem{
		ID:              uuid.NewString(),
		Description:     description,
		Priority:        priority,
		Status:          BacklogPending,
		Source:          source,
		TargetComponent: targetComponent,
		CreatedAt:       time.Now(),
	}

	b.mu.Lock()
	b.items = append(b.items, item)
	b.sortLocked()
	b.mu.Unlock()

	return item, b.persist()
}

// Dequeue pops the highest-priority PENDING item whose target component has
// no other IN_PROGRESS item, marking it IN_PROGRESS. Returns nil if none.
func (b *Backlog) Dequeue() (*BacklogItem, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, item := range b.items {
		if item.Status != BacklogPending {
			continue
		}
		if b.inFlight[item.TargetComponent] {
			continue
		}
		item.Status = BacklogInProgress
		b.inFlight[item.TargetComponent] = true
		if err := b.persistLocked(); err != nil {
			return item, err
		}
		return item, nil
	}
	return nil, nil
}

// Complete marks item DONE or REJECTED and clears its component's
// in-flight marker.
func (b *Backlog) Complete(id string, accepted bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, item := range b.items {
		if item.ID != id {
			continue
		}
		if accepted {
			item.Status = BacklogDone
		} else {
			item.Status = BacklogRejected
		}
		delete(b.inFlight, item.TargetComponent)
		return b.persistLocked()
	}
	return fmt.Errorf("backlog item %s: %w", id, core.ErrBacklogItemNotFound)
}

// All returns the current backlog ordered for dequeue.
func (b *Backlog) All() []*BacklogItem {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]*BacklogItem, len(b.items))
	copy(out, b.items)
	return out
}

func (b *Backlog) sortLocked() {
	sort.SliceStable(b.items, func(i, j int) bool {
		if b.items[i].Priority != b.items[j].Priority {
			return b.items[i].Priority > b.items[j].Priority
		}
		return b.items[i].CreatedAt.Before(b.items[j].CreatedAt)
	})
}

func (b *Backlog) persist() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.persistLocked()
}

func (b *Backlog) persistLocked() error {
	if b.path == "" {
		return nil
	}

	data, err := json.MarshalIndent(b.items, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling backlog: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(b.path), 0o755); err != nil {
		return fmt.Errorf("creating backlog directory: %w", err)
	}

	tmp := b.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing backlog: %w", err)
	}
	if err := os.Rename(tmp, b.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("committing backlog: %w", err)
	}
	return nil
}

func (b *Backlog) load() error {
	data, err := os.ReadFile(b.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading backlog: %w", err)
	}

	var items []*BacklogItem
	if err := json.Unmarshal(data, &items); err != nil {
		return fmt.Errorf("parsing backlog: %w", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.items = items
	for _, item := range items {
		if item.Status == BacklogInProgress {
			b.inFlight[item.TargetComponent] = true
		}
	}
	b.sortLocked()
	return nil
}

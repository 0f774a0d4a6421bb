// Package audit implements the Audit Coordinator: a periodic scheduler that
// turns standing audit campaigns into COMPONENT_IMPROVEMENT backlog items at
// their configured cadence, and exposes an ad-hoc audit entry point BDI
// actions can invoke directly.
package audit

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/itsneelabh/mindhive/coordination"
	"github.com/itsneelabh/mindhive/core"
)

// Campaign is one standing audit schedule.
type Campaign struct {
	CampaignID       string
	AuditScope       string
	TargetComponents []string
	Interval         time.Duration
	Priority         int

	lastRunAt  time.Time
	nextRunAt  time.Time
	pendingID  string // backlog item ID currently PENDING/IN_PROGRESS for this campaign, if any
}

// Coordinator is the Audit Coordinator tier.
type Coordinator struct {
	mu         sync.Mutex
	campaigns  map[string]*Campaign
	coordinator *coordination.Coordinator
	logger     core.Logger

	cancel context.CancelFunc
	done   chan struct{}
}

// New constructs an Audit Coordinator that enqueues backlog items on the
// given Coordinator.
func New(coord *coordination.Coordinator, logger core.Logger) *Coordinator {
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	if cal, ok := logger.(core.ComponentAwareLogger); ok {
		logger = cal.WithComponent("audit")
	}

	return &Coordinator{
		campaigns:   make(map[string]*Campaign),
		coordinator: coord,
		logger:      logger,
	}
}

// AddAuditCampaign registers a standing campaign, scheduling its first run
// immediately.
func (c *Coordinator) AddAuditCampaign(campaignID, auditScope string, targetComponents []string, interval time.Duration, priority int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.campaigns[campaignID] = &Campaign{
		CampaignID:       campaignID,
		AuditScope:       auditScope,
		TargetComponents: targetComponents,
		Interval:         interval,
		Priority:         priority,
		nextRunAt:        time.Now(),
	}
}

// RemoveAuditCampaign unregisters a standing campaign.
func (c *Coordinator) RemoveAuditCampaign(campaignID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.campaigns, campaignID)
}

// StartAutonomousAuditLoop begins a periodic scheduler that ticks every
// checkInterval, enqueuing due campaigns onto the Coordinator's backlog.
func (c *Coordinator) StartAutonomousAuditLoop(ctx context.Context, checkInterval time.Duration) {
	c.mu.Lock()
	if c.cancel != nil {
		c.mu.Unlock()
		return
	}
	loopCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.done = make(chan struct{})
	done := c.done
	c.mu.Unlock()

	go c.loop(loopCtx, checkInterval, done)
}

// StopAutonomousAuditLoop cancels the scheduler and waits for it to exit.
func (c *Coordinator) StopAutonomousAuditLoop() {
	c.mu.Lock()
	cancel := c.cancel
	done := c.done
	c.cancel = nil
	c.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	if done != nil {
		<-done
	}
}

func (c *Coordinator) loop(ctx context.Context, checkInterval time.Duration, done chan struct{}) {
	defer close(done)

	for {
		c.Tick()

		select {
		case <-ctx.Done():
			return
		case <-time.After(checkInterval):
		}
	}
}

// Tick runs one scheduler pass: every due campaign without an in-flight
// backlog item is enqueued and rescheduled.
func (c *Coordinator) Tick() {
	now := time.Now()

	c.mu.Lock()
	due := make([]*Campaign, 0)
	for _, campaign := range c.campaigns {
		if campaign.pendingID != "" || campaign.nextRunAt.After(now) {
			continue
		}
		due = append(due, campaign)
	}
	c.mu.Unlock()

	for _, campaign := range due {
		c.runCampaign(campaign, now)
	}
}

func (c *Coordinator) runCampaign(campaign *Campaign, now time.Time) {
	if c.coordinator == nil {
		return
	}

	directive := fmt.Sprintf("Audit %s across %s", campaign.AuditScope, strings.Join(campaign.TargetComponents, ", "))

	result := c.coordinator.HandleUserInput(context.Background(), directive, "audit_coordinator", coordination.InteractionComponentImprovement, map[string]interface{}{
		"priority":         campaign.Priority,
		"target_component": campaign.CampaignID,
	})

	c.mu.Lock()
	campaign.lastRunAt = now
	campaign.nextRunAt = now.Add(campaign.Interval)
	if id, ok := result.Result["backlog_item_id"].(string); ok {
		campaign.pendingID = id
	}
	c.mu.Unlock()
}

// MarkCampaignItemResolved clears a campaign's in-flight marker once its
// backlog item reaches a terminal state, allowing the next tick to enqueue
// again.
func (c *Coordinator) MarkCampaignItemResolved(campaignID, backlogItemID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if campaign, ok := c.campaigns[campaignID]; ok && campaign.pendingID == backlogItemID {
		campaign.pendingID = ""
	}
}

// RunAdHocAudit runs a single audit pass outside the standing schedule,
// synchronously, and returns a short summary. It satisfies bdi.AuditInvoker.
func (c *Coordinator) RunAdHocAudit(ctx context.Context, scope string, targetComponents []string) (string, error) {
	if c.coordinator == nil {
		return "", fmt.Errorf("no coordinator configured")
	}

	directive := fmt.Sprintf("Audit %s across %s", scope, strings.Join(targetComponents, ", "))
	result := c.coordinator.HandleUserInput(ctx, directive, "audit_coordinator", coordination.InteractionComponentImprovement, map[string]interface{}{
		"priority":         5,
		"target_component": "ad_hoc",
	})

	if result.Status != coordination.InteractionCompleted {
		return "", fmt.Errorf("ad hoc audit failed")
	}

	return fmt.Sprintf("enqueued backlog item %v for %s", result.Result["backlog_item_id"], scope), nil
}

// Campaigns returns every registered standing campaign.
func (c *Coordinator) Campaigns() []*Campaign {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]*Campaign, 0, len(c.campaigns))
	for _, campaign := range c.campaigns {
		out = append(out, campaign)
	}
	return out
}

package audit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itsneelabh/mindhive/coordination"
)

func newTestAuditCoordinator(t *testing.T) (*Coordinator, *coordination.Coordinator) {
	t.Helper()
	coord, err := coordination.New(t.TempDir(), nil, nil)
	require.NoError(t, err)
	return New(coord, nil), coord
}

func TestTickEnqueuesDueCampaign(t *testing.T) {
	a, coord := newTestAuditCoordinator(t)
	a.AddAuditCampaign("nightly", "security", []string{"guardian", "identity"}, time.Hour, 6)

	a.Tick()

	items := coord.Backlog.All()
	require.Len(t, items, 1)
	assert.Equal(t, 6, items[0].Priority)
	assert.Contains(t, items[0].Description, "security")
}

func TestTickRefusesToEnqueueWhileCampaignItemInFlight(t *testing.T) {
	a, coord := newTestAuditCoordinator(t)
	a.AddAuditCampaign("nightly", "security", []string{"guardian"}, time.Hour, 6)

	a.Tick()
	require.Len(t, coord.Backlog.All(), 1)

	a.Tick()
	assert.Len(t, coord.Backlog.All(), 1)
}

func TestMarkCampaignItemResolvedAllowsNextEnqueue(t *testing.T) {
	a, coord := newTestAuditCoordinator(t)
	a.AddAuditCampaign("nightly", "security", []string{"guardian"}, time.Hour, 6)

	a.Tick()
	items := coord.Backlog.All()
	require.Len(t, items, 1)

	a.MarkCampaignItemResolved("nightly", items[0].ID)
	a.campaigns["nightly"].nextRunAt = time.Now()

	a.Tick()
	assert.Len(t, coord.Backlog.All(), 2)
}

func TestRunAdHocAuditEnqueuesAndReturnsSummary(t *testing.T) {
	a, coord := newTestAuditCoordinator(t)

	summary, err := a.RunAdHocAudit(context.Background(), "performance", []string{"discovery"})
	require.NoError(t, err)
	assert.Contains(t, summary, "performance")
	assert.Len(t, coord.Backlog.All(), 1)
}

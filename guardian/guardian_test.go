package guardian

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itsneelabh/mindhive/belief"
	"github.com/itsneelabh/mindhive/identity"
)

func setup(t *testing.T) (*Guardian, *identity.Manager, string) {
	t.Helper()
	ctx := context.Background()
	dir := t.TempDir()

	beliefs, err := belief.New("", nil)
	require.NoError(t, err)

	idm, err := identity.NewManager("id_manager", filepath.Join(dir, "identity.env"), beliefs, nil, nil)
	require.NoError(t, err)

	registryPath := filepath.Join(dir, "official_agents_registry.json")

	g, err := New(ctx, "guardian_agent_main", registryPath, 5*time.Minute, true, idm, nil, nil)
	require.NoError(t, err)

	return g, idm, registryPath
}

func writeRegistry(t *testing.T, path, agentID, publicKey string, enabled bool) {
	t.Helper()
	reg := registryFile{RegisteredAgents: map[string]registryEntry{
		agentID: {Enabled: enabled, Identity: struct {
			PublicKey string `json:"public_key"`
		}{PublicKey: publicKey}},
	}}
	data, err := json.Marshal(reg)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

func TestValidateNewAgentPasses(t *testing.T) {
	ctx := context.Background()
	g, idm, registryPath := setup(t)

	addr, _, err := idm.CreateNewWallet(ctx, "bdi_worker_1")
	require.NoError(t, err)
	writeRegistry(t, registryPath, "bdi_worker_1", addr, true)

	workspace := t.TempDir()

	nonce, err := g.GetChallenge("bdi_worker_1")
	require.NoError(t, err)
	sig, err := idm.SignMessage(ctx, "bdi_worker_1", nonce)
	require.NoError(t, err)

	passed, report := g.ValidateNewAgent(ctx, "bdi_worker_1", addr, workspace, nonce, sig)
	assert.True(t, passed)
	assert.Equal(t, "PASSED", report.Status)
	assert.Len(t, report.ChecksPerformed, 4)
}

func TestValidateNewAgentFailsWhenDisabled(t *testing.T) {
	ctx := context.Background()
	g, idm, registryPath := setup(t)

	addr, _, err := idm.CreateNewWallet(ctx, "bdi_worker_2")
	require.NoError(t, err)
	writeRegistry(t, registryPath, "bdi_worker_2", addr, false)

	nonce, err := g.GetChallenge("bdi_worker_2")
	require.NoError(t, err)
	sig, err := idm.SignMessage(ctx, "bdi_worker_2", nonce)
	require.NoError(t, err)

	passed, report := g.ValidateNewAgent(ctx, "bdi_worker_2", addr, t.TempDir(), nonce, sig)
	assert.False(t, passed)
	assert.Equal(t, "FAILED", report.Status)
}

func TestChallengeIsSingleUse(t *testing.T) {
	ctx := context.Background()
	g, idm, registryPath := setup(t)

	addr, _, err := idm.CreateNewWallet(ctx, "bdi_worker_3")
	require.NoError(t, err)
	writeRegistry(t, registryPath, "bdi_worker_3", addr, true)

	nonce, err := g.GetChallenge("bdi_worker_3")
	require.NoError(t, err)
	sig, err := idm.SignMessage(ctx, "bdi_worker_3", nonce)
	require.NoError(t, err)

	_, err = g.GetPrivateKey(ctx, "bdi_worker_3", nonce, sig)
	require.NoError(t, err)

	_, err = g.GetPrivateKey(ctx, "bdi_worker_3", nonce, sig)
	assert.Error(t, err)
}

func TestIsChallengeValidRejectsAtExactExpiryBoundary(t *testing.T) {
	g, _, _ := setup(t)

	nonce, err := g.GetChallenge("bdi_worker_boundary")
	require.NoError(t, err)

	g.mu.Lock()
	c := g.challenges["bdi_worker_boundary"]
	c.issuedAt = time.Now().Add(-g.expiry)
	g.challenges["bdi_worker_boundary"] = c
	g.mu.Unlock()

	assert.False(t, g.isChallengeValid("bdi_worker_boundary", nonce))

	nonce2, err := g.GetChallenge("bdi_worker_boundary_2")
	require.NoError(t, err)

	g.mu.Lock()
	c2 := g.challenges["bdi_worker_boundary_2"]
	c2.issuedAt = time.Now().Add(-g.expiry + time.Second)
	g.challenges["bdi_worker_boundary_2"] = c2
	g.mu.Unlock()

	assert.True(t, g.isChallengeValid("bdi_worker_boundary_2", nonce2))
}

func TestApproveAgentForProductionRequiresPassedReport(t *testing.T) {
	ctx := context.Background()
	g, _, _ := setup(t)

	_, err := g.ApproveAgentForProduction(ctx, "bdi_worker_1", &ValidationReport{Status: "FAILED"})
	assert.Error(t, err)
}

package memory

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogProcessAppendsAndStats(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	agent := NewAgent(dir, nil)

	require.NoError(t, agent.LogProcess(ctx, "mastermind_prime", "id_manager_wallet_created",
		map[string]interface{}{"entity_id": "bdi_1", "address": "0xabc"}, nil))
	require.NoError(t, agent.LogProcess(ctx, "mastermind_prime", "id_manager_wallet_created",
		map[string]interface{}{"entity_id": "bdi_2", "address": "0xdef"}, nil))

	stats, err := agent.GetMemoryStatistics(ctx, "mastermind_prime")
	require.NoError(t, err)
	assert.Equal(t, 2, stats.RecordCount)
	assert.Equal(t, 2, stats.ByProcess["id_manager_wallet_created"])
}

func TestGetRecentTimestampMemoriesOrdersNewestFirst(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	agent := NewAgent(dir, nil)

	require.NoError(t, agent.SaveTimestampMemory(ctx, "agint_1", "cycle", map[string]interface{}{"n": 1}))
	require.NoError(t, agent.SaveTimestampMemory(ctx, "agint_1", "cycle", map[string]interface{}{"n": 2}))
	require.NoError(t, agent.SaveTimestampMemory(ctx, "agint_1", "cycle", map[string]interface{}{"n": 3}))

	recent, err := agent.GetRecentTimestampMemories(ctx, "agint_1", "cycle", 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, float64(3), recent[0].Data["n"])
	assert.Equal(t, float64(2), recent[1].Data["n"])
}

func TestGetAgentDataDirectoryIsOwnerOnly(t *testing.T) {
	dir := t.TempDir()
	agent := NewAgent(dir, nil)

	path, err := agent.GetAgentDataDirectory("guardian_agent_main")
	require.NoError(t, err)

	info, err := statDir(path)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.Equal(t, os.FileMode(0o700), info.Mode().Perm())
}

func statDir(path string) (os.FileInfo, error) {
	return os.Stat(path)
}

package toolregistry

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itsneelabh/mindhive/bdi"
	"github.com/itsneelabh/mindhive/belief"
	"github.com/itsneelabh/mindhive/core"
)

func TestFileSearchToolFindsMatchesUnderRoot(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "report_final.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "unrelated.txt"), []byte("x"), 0o644))

	tool := NewFileSearchTool(dir)
	result := tool.Execute(context.Background(), map[string]interface{}{"pattern": "report"})

	require.True(t, result.OK)
	matches := result.Data.([]string)
	assert.Len(t, matches, 1)
	assert.Equal(t, "report_final.txt", matches[0])
}

func TestRegistryWiresToolsIntoBDIAgent(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	beliefs, err := belief.New("", nil)
	require.NoError(t, err)
	agent := bdi.New("bdi_tooled", dir, beliefs, nil, nil, nil)

	registry := New(nil)
	registry.Register(NewFileSearchTool(dir))
	registry.WireIntoBDI(agent, "low")

	goal := agent.SetGoal("find notes", 5, true)
	goal.Plan = &bdi.Plan{Steps: []bdi.PlanStep{{Action: "FILE_SEARCH", Params: map[string]interface{}{"pattern": "notes"}}}}

	result := agent.Run(context.Background(), 3)
	assert.Equal(t, "COMPLETED_GOAL_ACHIEVED", result)
}

func TestExecuteUnknownToolReturnsNotFound(t *testing.T) {
	registry := New(nil)
	result := registry.Execute(context.Background(), "NOT_REGISTERED", nil)
	assert.False(t, result.OK)
	assert.True(t, errors.Is(result.Err, core.ErrToolNotFound))
}

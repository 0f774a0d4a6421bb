package belief

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateAndGet(t *testing.T) {
	ctx := context.Background()
	s, err := New("", nil)
	require.NoError(t, err)

	require.NoError(t, s.Update(ctx, "weather", "sunny", 0.9, SourcePerception))

	b, ok := s.Get(ctx, "weather")
	require.True(t, ok)
	assert.Equal(t, "sunny", b.Value)
	assert.Equal(t, 0.9, b.Confidence)
	assert.Equal(t, SourcePerception, b.Source)
}

func TestConfidenceClamped(t *testing.T) {
	ctx := context.Background()
	s, err := New("", nil)
	require.NoError(t, err)

	require.NoError(t, s.Update(ctx, "x", 1, 1.5, SourceInference))
	b, _ := s.Get(ctx, "x")
	assert.Equal(t, 1.0, b.Confidence)

	require.NoError(t, s.Update(ctx, "y", 1, -1, SourceInference))
	b, _ = s.Get(ctx, "y")
	assert.Equal(t, 0.0, b.Confidence)
}

func TestGetMissingReturnsFalse(t *testing.T) {
	s, err := New("", nil)
	require.NoError(t, err)

	_, ok := s.Get(context.Background(), "missing")
	assert.False(t, ok)
}

func TestRemove(t *testing.T) {
	ctx := context.Background()
	s, err := New("", nil)
	require.NoError(t, err)

	require.NoError(t, s.Update(ctx, "k", "v", 1, SourceDefault))
	require.NoError(t, s.Remove(ctx, "k"))

	_, ok := s.Get(ctx, "k")
	assert.False(t, ok)
}

func TestQuerySubstringAndConfidence(t *testing.T) {
	ctx := context.Background()
	s, err := New("", nil)
	require.NoError(t, err)

	require.NoError(t, s.Update(ctx, "identity.map.entity_to_address.a1", "0xA", 1.0, SourceDerived))
	require.NoError(t, s.Update(ctx, "identity.map.entity_to_address.a2", "0xB", 0.2, SourceDerived))
	require.NoError(t, s.Update(ctx, "cognition.status", "active", 1.0, SourcePerception))

	results := s.Query(ctx, "identity.map", 0.5, "")
	require.Len(t, results, 1)
	assert.Equal(t, "identity.map.entity_to_address.a1", results[0].Key)

	bySource := s.Query(ctx, "", 0, SourceDerived)
	assert.Len(t, bySource, 2)
}

func TestPersistenceRoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "beliefs.json")

	s1, err := New(path, nil)
	require.NoError(t, err)
	require.NoError(t, s1.Update(ctx, "agent_mood", "happy", 0.7, SourceSelfAnalysis))

	s2, err := New(path, nil)
	require.NoError(t, err)

	b, ok := s2.Get(ctx, "agent_mood")
	require.True(t, ok)
	assert.Equal(t, "happy", b.Value)
	assert.Equal(t, 0.7, b.Confidence)
}

func TestLoadMissingFileIsNotError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "does_not_exist.json")

	s, err := New(path, nil)
	require.NoError(t, err)
	assert.Empty(t, s.All(context.Background()))
}

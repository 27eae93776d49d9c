package audit

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flynn-ai/hybridcall/internal/hybrid"
	"github.com/flynn-ai/hybridcall/pkg/protocol"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "audit.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func record(id string, at time.Time, source protocol.Source, ms float64) hybrid.Record {
	return hybrid.Record{
		ID:          id,
		Started:     at,
		Finished:    at.Add(time.Duration(ms) * time.Millisecond),
		Source:      source,
		TotalTimeMs: ms,
	}
}

func TestStore_OpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.db")

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	var versions int
	require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&versions))
	assert.Equal(t, 1, versions)
	assert.Equal(t, path, s.Path())
	assert.Positive(t, s.Size())
}

func TestStore_RecordAndRecent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	first := record("a", base, protocol.SourceOnDevice, 120)
	first.Calls = []protocol.Call{{Name: "set_alarm", Arguments: map[string]any{"hour": 7, "minute": 0}}}
	first.FastPath = true
	first.LocalAttempts = 1

	second := record("b", base.Add(time.Minute), protocol.SourceCloud, 900)
	second.Reason = "DECOMPOSITION_FAILURE"
	second.Parts = 3
	second.MaxDepth = 2
	second.RemoteMs = 600

	require.NoError(t, s.Record(ctx, first))
	require.NoError(t, s.Record(ctx, second))

	entries, err := s.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "b", entries[0].ID)
	assert.Equal(t, protocol.SourceCloud, entries[0].Source)
	assert.Equal(t, "DECOMPOSITION_FAILURE", entries[0].Reason)
	assert.Equal(t, 3, entries[0].Parts)
	assert.Equal(t, 2, entries[0].MaxDepth)
	assert.Empty(t, entries[0].Calls)

	a := entries[1]
	assert.True(t, a.FastPath)
	assert.Equal(t, base.UnixMilli(), a.Started.UnixMilli())
	require.Len(t, a.Calls, 1)
	assert.Equal(t, "set_alarm", a.Calls[0].Name)
	assert.InDelta(t, 7, a.Calls[0].Arguments["hour"], 1e-9)

	entries, err = s.Recent(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestStore_DuplicateIDFails(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	rec := record("dup", time.Now(), protocol.SourceOnDevice, 1)
	require.NoError(t, s.Record(ctx, rec))
	assert.Error(t, s.Record(ctx, rec))
}

func TestStore_Summary(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Now()

	fast := record("1", now, protocol.SourceOnDevice, 100)
	fast.FastPath = true
	cloud := record("3", now, protocol.SourceCloud, 1000)
	cloud.Reason = "NO_CONSENSUS"
	failed := record("4", now, "", 0)
	failed.Err = errors.New("quota exceeded")
	failed.Reason = "NO_CONSENSUS"

	for _, r := range []hybrid.Record{fast, record("2", now, protocol.SourceOnDevice, 200), cloud, failed} {
		require.NoError(t, s.Record(ctx, r))
	}

	sum, err := s.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, sum.Total)
	assert.Equal(t, 2, sum.OnDevice)
	assert.Equal(t, 1, sum.Cloud)
	assert.Equal(t, 1, sum.Errors)
	assert.Equal(t, 1, sum.FastPath)
	assert.InDelta(t, 2.0/3.0, sum.OnDeviceRatio, 1e-9)
	assert.InDelta(t, 1300.0/3.0, sum.AvgLatencyMs, 1e-9)
	assert.Equal(t, map[string]int{"NO_CONSENSUS": 1}, sum.Reasons)
}

func TestStore_SummaryEmpty(t *testing.T) {
	sum, err := openTestStore(t).Summary(context.Background())
	require.NoError(t, err)
	assert.Zero(t, sum.Total)
	assert.Zero(t, sum.AvgLatencyMs)
	assert.Empty(t, sum.Reasons)
}

func TestStore_Prune(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	cutoff := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, s.Record(ctx, record("old", cutoff.Add(-time.Hour), protocol.SourceCloud, 1)))
	require.NoError(t, s.Record(ctx, record("new", cutoff.Add(time.Hour), protocol.SourceCloud, 1)))

	n, err := s.Prune(ctx, cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	entries, err := s.Recent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "new", entries[0].ID)
}

func TestStore_IsRecorder(t *testing.T) {
	var _ hybrid.Recorder = (*Store)(nil)
}

package stats

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flynn-ai/hybridcall/internal/hybrid"
	"github.com/flynn-ai/hybridcall/pkg/protocol"
)

func TestCollector_Empty(t *testing.T) {
	s := NewCollector().Collect(0, "")
	assert.Zero(t, s.RequestCount)
	assert.Zero(t, s.OnDeviceRatio)
	assert.Zero(t, s.AvgLatencyMs)
	assert.Positive(t, s.Goroutines)
}

func TestCollector_Record(t *testing.T) {
	c := NewCollector()
	ctx := context.Background()

	records := []hybrid.Record{
		{Source: protocol.SourceOnDevice, TotalTimeMs: 100, LocalAttempts: 1, FastPath: true, LocalTokens: 500_000},
		{Source: protocol.SourceOnDevice, TotalTimeMs: 300, LocalAttempts: 6, Parts: 2, LocalTokens: 500_000},
		{Source: protocol.SourceCloud, TotalTimeMs: 800, LocalAttempts: 3, RemoteTokens: 200},
		{Err: errors.New("quota"), LocalAttempts: 3},
	}
	for _, r := range records {
		require.NoError(t, c.Record(ctx, r))
	}

	s := c.Collect(2048, "/tmp/audit.db")
	assert.Equal(t, int64(4), s.RequestCount)
	assert.Equal(t, int64(2), s.OnDeviceCount)
	assert.Equal(t, int64(1), s.CloudCount)
	assert.Equal(t, int64(1), s.ErrorCount)
	assert.Equal(t, int64(1), s.FastPathCount)
	assert.Equal(t, int64(1), s.Decomposed)
	assert.Equal(t, int64(13), s.LocalAttempts)
	assert.InDelta(t, 2.0/3.0, s.OnDeviceRatio, 1e-9)
	assert.InDelta(t, 400, s.AvgLatencyMs, 1e-9)
	assert.InDelta(t, 200, s.AvgOnDeviceMs, 1e-9)
	assert.Equal(t, int64(200), s.CloudTokens)
	assert.InDelta(t, 0.5, s.Savings, 1e-9)
	assert.Equal(t, "/tmp/audit.db", s.DBPath)
	assert.InDelta(t, 2048.0/1024/1024, s.DBSizeMB, 1e-12)
}

func TestCollector_Reset(t *testing.T) {
	c := NewCollector()
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return start }

	require.NoError(t, c.Record(context.Background(), hybrid.Record{Source: protocol.SourceCloud, TotalTimeMs: 10}))
	c.Reset()

	s := c.Collect(0, "")
	assert.Zero(t, s.RequestCount)
	assert.Zero(t, s.CloudCount)
	assert.Equal(t, start, c.StartTime())
	assert.Equal(t, "0s", s.Uptime)
}

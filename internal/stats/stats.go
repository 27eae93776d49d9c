// Package stats provides in-process resolution statistics for hybridcall.
package stats

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/flynn-ai/hybridcall/internal/hybrid"
)

// CloudCostPerMillion is the baseline price used to estimate savings.
const CloudCostPerMillion = 0.50

// Collector collects and tracks resolution statistics. It implements
// hybrid.Recorder.
type Collector struct {
	mu        sync.Mutex
	startTime time.Time
	now       func() time.Time

	requestCount  int64
	onDeviceCount int64
	cloudCount    int64
	errorCount    int64
	fastPathCount int64
	decomposed    int64
	localAttempts int64
	localTokens   int64
	cloudTokens   int64
	totalMs       float64
	onDeviceMs    float64
}

// NewCollector creates a new stats collector.
func NewCollector() *Collector {
	return &Collector{
		startTime: time.Now(),
		now:       time.Now,
	}
}

// Stats represents resolution statistics at a point in time.
type Stats struct {
	// System resources
	MemoryStats MemoryStats `json:"memory"`
	Goroutines  int         `json:"goroutines"`
	Uptime      string      `json:"uptime"`

	// Resolution metrics
	RequestCount  int64   `json:"request_count"`
	OnDeviceCount int64   `json:"on_device_count"`
	CloudCount    int64   `json:"cloud_count"`
	ErrorCount    int64   `json:"error_count"`
	FastPathCount int64   `json:"fast_path_count"`
	Decomposed    int64   `json:"decomposed_count"`
	LocalAttempts int64   `json:"local_attempts"`
	OnDeviceRatio float64 `json:"on_device_ratio"`
	AvgLatencyMs  float64 `json:"avg_latency_ms"`
	AvgOnDeviceMs float64 `json:"avg_on_device_ms"`

	// Cost
	LocalTokens int64   `json:"local_tokens"`
	CloudTokens int64   `json:"cloud_tokens"`
	Savings     float64 `json:"estimated_savings_usd"`

	// Audit database
	DBSize   int64   `json:"db_size_bytes"`
	DBSizeMB float64 `json:"db_size_mb"`
	DBPath   string  `json:"db_path,omitempty"`
}

// MemoryStats represents memory usage statistics.
type MemoryStats struct {
	HeapAlloc   int64   `json:"heap_alloc_bytes"`
	HeapAllocMB float64 `json:"heap_alloc_mb"`
	HeapInuse   int64   `json:"heap_inuse_bytes"`
	HeapInuseMB float64 `json:"heap_inuse_mb"`
	NumGC       uint32  `json:"num_gc"`
}

// Record implements hybrid.Recorder.
func (c *Collector) Record(_ context.Context, rec hybrid.Record) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.requestCount++
	c.localAttempts += int64(rec.LocalAttempts)
	c.localTokens += int64(rec.LocalTokens)
	c.cloudTokens += int64(rec.RemoteTokens)

	if rec.Err != nil {
		c.errorCount++
		return nil
	}

	c.totalMs += rec.TotalTimeMs
	if rec.Parts > 0 {
		c.decomposed++
	}
	switch {
	case rec.OnDevice():
		c.onDeviceCount++
		c.onDeviceMs += rec.TotalTimeMs
		if rec.FastPath {
			c.fastPathCount++
		}
	case rec.Fallback():
		c.cloudCount++
	}
	return nil
}

// Collect returns current statistics.
func (c *Collector) Collect(dbSize int64, dbPath string) *Stats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	c.mu.Lock()
	defer c.mu.Unlock()

	s := &Stats{
		MemoryStats: MemoryStats{
			HeapAlloc:   int64(m.HeapAlloc),
			HeapAllocMB: bytesToMB(int64(m.HeapAlloc)),
			HeapInuse:   int64(m.HeapInuse),
			HeapInuseMB: bytesToMB(int64(m.HeapInuse)),
			NumGC:       m.NumGC,
		},
		Goroutines:    runtime.NumGoroutine(),
		Uptime:        c.now().Sub(c.startTime).Truncate(time.Second).String(),
		RequestCount:  c.requestCount,
		OnDeviceCount: c.onDeviceCount,
		CloudCount:    c.cloudCount,
		ErrorCount:    c.errorCount,
		FastPathCount: c.fastPathCount,
		Decomposed:    c.decomposed,
		LocalAttempts: c.localAttempts,
		LocalTokens:   c.localTokens,
		CloudTokens:   c.cloudTokens,
		Savings:       c.savings(),
		DBSize:        dbSize,
		DBSizeMB:      bytesToMB(dbSize),
		DBPath:        dbPath,
	}

	if answered := c.onDeviceCount + c.cloudCount; answered > 0 {
		s.OnDeviceRatio = float64(c.onDeviceCount) / float64(answered)
		s.AvgLatencyMs = c.totalMs / float64(answered)
	}
	if c.onDeviceCount > 0 {
		s.AvgOnDeviceMs = c.onDeviceMs / float64(c.onDeviceCount)
	}
	return s
}

// savings estimates what the locally handled tokens would have cost in the
// cloud. Caller holds c.mu.
func (c *Collector) savings() float64 {
	return float64(c.localTokens) / 1_000_000 * CloudCostPerMillion
}

// StartTime returns when the collector started.
func (c *Collector) StartTime() time.Time {
	return c.startTime
}

// Reset clears every counter and restarts the uptime clock.
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.startTime = c.now()
	c.requestCount, c.onDeviceCount, c.cloudCount, c.errorCount = 0, 0, 0, 0
	c.fastPathCount, c.decomposed, c.localAttempts = 0, 0, 0
	c.localTokens, c.cloudTokens = 0, 0
	c.totalMs, c.onDeviceMs = 0, 0
}

// bytesToMB converts bytes to megabytes.
func bytesToMB(b int64) float64 {
	return float64(b) / 1024 / 1024
}

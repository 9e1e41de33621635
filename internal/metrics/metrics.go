package metrics

import (
	"fmt"
	"runtime"
	"sync"
	"time"
)

// Metrics tracks export-bundle upload activity and process health for one
// s3scan invocation: how many files the worker pool has shipped, how many
// bytes, how many failed, plus named timers for the stages around it.
type Metrics struct {
	mu                sync.RWMutex
	StartTime         time.Time
	TotalOperations   int64
	Uploads           UploadMetrics
	MemoryUsage       MemoryMetrics
	PerformanceTimers map[string]time.Duration
}

// UploadMetrics holds counters for the export pipeline's S3 upload jobs.
type UploadMetrics struct {
	BundlesUploaded int64
	BytesUploaded   int64
	FailedUploads   int64
}

// MemoryMetrics holds memory usage information
type MemoryMetrics struct {
	AllocatedBytes   uint64
	TotalAllocations uint64
	GCRuns           uint32
	HeapSize         uint64
}

// Timer represents a performance timer
type Timer struct {
	name      string
	startTime time.Time
	metrics   *Metrics
}

var (
	globalMetrics *Metrics
	once          sync.Once
)

// GetGlobalMetrics returns the process-wide metrics instance shared by
// every export job the worker pool runs.
func GetGlobalMetrics() *Metrics {
	once.Do(func() {
		globalMetrics = NewMetrics()
	})
	return globalMetrics
}

// NewMetrics creates a new Metrics instance
func NewMetrics() *Metrics {
	return &Metrics{
		StartTime:         time.Now(),
		PerformanceTimers: make(map[string]time.Duration),
	}
}

// IncrementBundlesUploaded records one export file successfully uploaded.
func (m *Metrics) IncrementBundlesUploaded() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Uploads.BundlesUploaded++
	m.TotalOperations++
}

// AddBytesUploaded adds to the total bytes shipped by export uploads.
func (m *Metrics) AddBytesUploaded(bytes int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Uploads.BytesUploaded += bytes
}

// IncrementFailedUploads records one export upload job that finished with
// an error, whether or not it was retried.
func (m *Metrics) IncrementFailedUploads() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Uploads.FailedUploads++
}

// UpdateMemoryMetrics updates the memory usage metrics
func (m *Metrics) UpdateMemoryMetrics() {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	m.mu.Lock()
	defer m.mu.Unlock()

	m.MemoryUsage.AllocatedBytes = memStats.Alloc
	m.MemoryUsage.TotalAllocations = memStats.TotalAlloc
	m.MemoryUsage.GCRuns = memStats.NumGC
	m.MemoryUsage.HeapSize = memStats.HeapAlloc
}

// StartTimer starts a named performance timer
func (m *Metrics) StartTimer(name string) *Timer {
	return &Timer{
		name:      name,
		startTime: time.Now(),
		metrics:   m,
	}
}

// Stop stops the timer and records the duration
func (t *Timer) Stop() time.Duration {
	duration := time.Since(t.startTime)

	t.metrics.mu.Lock()
	defer t.metrics.mu.Unlock()

	t.metrics.PerformanceTimers[t.name] = duration

	return duration
}

// GetUptime returns the uptime since metrics started
func (m *Metrics) GetUptime() time.Duration {
	return time.Since(m.StartTime)
}

// GetOperationsPerSecond calculates operations per second
func (m *Metrics) GetOperationsPerSecond() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	uptime := time.Since(m.StartTime)
	if uptime.Seconds() == 0 {
		return 0
	}

	return float64(m.TotalOperations) / uptime.Seconds()
}

// GetBytesPerSecond calculates upload bytes per second
func (m *Metrics) GetBytesPerSecond() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	uptime := time.Since(m.StartTime)
	if uptime.Seconds() == 0 {
		return 0
	}

	return float64(m.Uploads.BytesUploaded) / uptime.Seconds()
}

// GetFailureRate calculates the upload failure rate as a percentage
func (m *Metrics) GetFailureRate() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.TotalOperations == 0 {
		return 0
	}

	return (float64(m.Uploads.FailedUploads) / float64(m.TotalOperations)) * 100
}

// GetSnapshot returns a snapshot of current metrics
func (m *Metrics) GetSnapshot() MetricsSnapshot {
	// Update memory metrics first without holding any locks
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	m.mu.Lock()
	// Update memory metrics while holding write lock
	m.MemoryUsage.AllocatedBytes = memStats.Alloc
	m.MemoryUsage.TotalAllocations = memStats.TotalAlloc
	m.MemoryUsage.GCRuns = memStats.NumGC
	m.MemoryUsage.HeapSize = memStats.HeapAlloc

	// Create snapshot while holding write lock
	timers := make(map[string]time.Duration)
	for k, v := range m.PerformanceTimers {
		timers[k] = v
	}

	uptime := time.Since(m.StartTime)
	var operationsPerSec, bytesPerSec, failureRate float64

	if uptime.Seconds() > 0 {
		operationsPerSec = float64(m.TotalOperations) / uptime.Seconds()
		bytesPerSec = float64(m.Uploads.BytesUploaded) / uptime.Seconds()
	}

	if m.TotalOperations > 0 {
		failureRate = (float64(m.Uploads.FailedUploads) / float64(m.TotalOperations)) * 100
	}

	snapshot := MetricsSnapshot{
		Timestamp:         time.Now(),
		Uptime:            uptime,
		TotalOperations:   m.TotalOperations,
		Uploads:           m.Uploads,
		MemoryUsage:       m.MemoryUsage,
		PerformanceTimers: timers,
		OperationsPerSec:  operationsPerSec,
		BytesPerSec:       bytesPerSec,
		FailureRate:       failureRate,
	}

	m.mu.Unlock()
	return snapshot
}

// MetricsSnapshot represents a point-in-time snapshot of metrics
type MetricsSnapshot struct {
	Timestamp         time.Time
	Uptime            time.Duration
	TotalOperations   int64
	Uploads           UploadMetrics
	MemoryUsage       MemoryMetrics
	PerformanceTimers map[string]time.Duration
	OperationsPerSec  float64
	BytesPerSec       float64
	FailureRate       float64
}

// String returns a formatted string representation of the metrics
func (ms MetricsSnapshot) String() string {
	return fmt.Sprintf(`Metrics Snapshot (%s)
===================
Uptime: %v
Total Operations: %d
Operations/sec: %.2f
Failure Rate: %.2f%%

Export Uploads:
  Bundles Uploaded: %d
  Bytes Uploaded: %d
  Failed Uploads: %d
  Bytes/sec: %.2f

Memory Usage:
  Allocated: %d bytes
  Total Allocations: %d bytes
  GC Runs: %d
  Heap Size: %d bytes
`,
		ms.Timestamp.Format(time.RFC3339),
		ms.Uptime,
		ms.TotalOperations,
		ms.OperationsPerSec,
		ms.FailureRate,
		ms.Uploads.BundlesUploaded,
		ms.Uploads.BytesUploaded,
		ms.Uploads.FailedUploads,
		ms.BytesPerSec,
		ms.MemoryUsage.AllocatedBytes,
		ms.MemoryUsage.TotalAllocations,
		ms.MemoryUsage.GCRuns,
		ms.MemoryUsage.HeapSize,
	)
}

// Reset resets all metrics to zero
func (m *Metrics) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.StartTime = time.Now()
	m.TotalOperations = 0
	m.Uploads = UploadMetrics{}
	m.MemoryUsage = MemoryMetrics{}
	m.PerformanceTimers = make(map[string]time.Duration)
}

package engine

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bmizerany/perks/quantile"
	"github.com/dustin/go-humanize"
)

const (
	targetP50 = 0.50
	targetP95 = 0.95
)

// StatusReporter prints a periodically refreshed single-line progress
// summary while a scan runs: files discovered/completed, bytes scanned
// and returned (human-readable), and the P50/P95 latency of completed
// per-key select calls.
type StatusReporter struct {
	out    io.Writer
	ticker *time.Ticker
	done   chan struct{}
	wg     sync.WaitGroup

	discovered *int64

	bytesScanned  int64
	bytesReturned int64
	filesDone     int64
	errorCount    int64

	latencyL sync.Mutex
	latency  *quantile.Stream

	inflightL sync.Map // s3Path -> start time, used to derive per-key latency
}

// NewStatusReporter creates a reporter that prints to out once per
// interval, reading the discovered-file counter the Lister updates.
func NewStatusReporter(out io.Writer, interval time.Duration, discovered *int64) *StatusReporter {
	return &StatusReporter{
		out:        out,
		ticker:     time.NewTicker(interval),
		done:       make(chan struct{}),
		discovered: discovered,
		latency:    quantile.NewTargeted(targetP50, targetP95),
	}
}

// Start begins the background print loop. Stop must be called to release
// the ticker.
func (r *StatusReporter) Start() {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		for {
			select {
			case <-r.ticker.C:
				r.print()
			case <-r.done:
				return
			}
		}
	}()
}

// Stop halts the print loop and prints one final line.
func (r *StatusReporter) Stop() {
	close(r.done)
	r.wg.Wait()
	r.ticker.Stop()
	r.print()
}

// AddBytes records one Stats frame's byte counters.
func (r *StatusReporter) AddBytes(scanned, returned int64) {
	atomic.AddInt64(&r.bytesScanned, scanned)
	atomic.AddInt64(&r.bytesReturned, returned)
}

// MarkKeyStarted records the moment a worker began a select call, used to
// derive that key's completion latency.
func (r *StatusReporter) MarkKeyStarted(s3Path string) {
	r.inflightL.Store(s3Path, time.Now())
}

// MarkFileDone records one completed key and, if its start time was
// tracked, folds its latency into the running P50/P95 estimate.
func (r *StatusReporter) MarkFileDone(s3Path string) {
	atomic.AddInt64(&r.filesDone, 1)
	if v, ok := r.inflightL.LoadAndDelete(s3Path); ok {
		start := v.(time.Time)
		r.latencyL.Lock()
		r.latency.Insert(float64(time.Since(start)))
		r.latencyL.Unlock()
	}
}

// ReportError records a failed attempt for the error-rate portion of the
// status line.
func (r *StatusReporter) ReportError(ErrorEvent) {
	atomic.AddInt64(&r.errorCount, 1)
}

// StatusSnapshot is a point-in-time read of a run's progress counters,
// exposed to the optional HTTP/WebSocket status dashboard.
type StatusSnapshot struct {
	Discovered    int64 `json:"discovered"`
	FilesDone     int64 `json:"files_done"`
	BytesScanned  int64 `json:"bytes_scanned"`
	BytesReturned int64 `json:"bytes_returned"`
	ErrorCount    int64 `json:"error_count"`
	P50Millis     int64 `json:"p50_millis"`
	P95Millis     int64 `json:"p95_millis"`
}

// Snapshot returns the current counters without printing anything.
func (r *StatusReporter) Snapshot() StatusSnapshot {
	r.latencyL.Lock()
	p50, p95 := r.latency.Query(targetP50), r.latency.Query(targetP95)
	r.latencyL.Unlock()

	return StatusSnapshot{
		Discovered:    atomic.LoadInt64(r.discovered),
		FilesDone:     atomic.LoadInt64(&r.filesDone),
		BytesScanned:  atomic.LoadInt64(&r.bytesScanned),
		BytesReturned: atomic.LoadInt64(&r.bytesReturned),
		ErrorCount:    atomic.LoadInt64(&r.errorCount),
		P50Millis:     time.Duration(p50).Milliseconds(),
		P95Millis:     time.Duration(p95).Milliseconds(),
	}
}

func (r *StatusReporter) print() {
	r.latencyL.Lock()
	p50, p95 := r.latency.Query(targetP50), r.latency.Query(targetP95)
	r.latencyL.Unlock()

	fmt.Fprintf(r.out, "\rdiscovered=%s completed=%s scanned=%s returned=%s errors=%d p50=%s p95=%s",
		humanize.Comma(atomic.LoadInt64(r.discovered)),
		humanize.Comma(atomic.LoadInt64(&r.filesDone)),
		humanize.Bytes(uint64(atomic.LoadInt64(&r.bytesScanned))),
		humanize.Bytes(uint64(atomic.LoadInt64(&r.bytesReturned))),
		atomic.LoadInt64(&r.errorCount),
		time.Duration(p50).Round(time.Millisecond),
		time.Duration(p95).Round(time.Millisecond),
	)
}

package engine

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// defaultDequeueTimeout bounds how long the aggregator waits for the next
// event on every dequeue. It guards against a worker dying silently
// without emitting its WorkerExitEvent.
const defaultDequeueTimeout = 10 * time.Second

// Summary is the final outcome of one scan run, printed by the caller
// once Aggregator.Run returns.
type Summary struct {
	RecordsMatched  int64
	BytesScanned    int64
	BytesReturned   int64
	FilesCompleted  int64
	FilesDiscovered int64
	FatalErr        error
	StoppedEarly    bool
}

// Aggregator is the single consumer of the worker pool's event queue. It
// prints matched records (or accumulates a count), enforces --limit by
// raising EarlyStop once satisfied, and tracks the byte counters used for
// the final cost estimate.
type Aggregator struct {
	query       Query
	out         io.Writer
	workerCount int
	timeout     time.Duration
	status      *StatusReporter
}

// NewAggregator creates an Aggregator that writes matched records to out
// and expects exactly workerCount WorkerExitEvents before it considers the
// run drained.
func NewAggregator(query Query, out io.Writer, workerCount int, status *StatusReporter) *Aggregator {
	return &Aggregator{query: query, out: out, workerCount: workerCount, timeout: defaultDequeueTimeout, status: status}
}

// Run drains events until every worker has exited and the queue is empty,
// or the dequeue timeout elapses without any event. It raises stop once
// --limit is satisfied so the Lister and workers wind down early.
func (a *Aggregator) Run(ctx context.Context, events <-chan ScanEvent, stop *EarlyStop) Summary {
	var sum Summary
	exited := make(map[int]bool)

	for {
		if len(exited) == a.workerCount && len(events) == 0 {
			return sum
		}

		select {
		case ev := <-events:
			a.apply(ev, &sum, stop, exited)
			if sum.FatalErr != nil {
				stop.Set()
			}
		case <-time.After(a.timeout):
			sum.FatalErr = fmt.Errorf("timed out after %s waiting for worker activity", a.timeout)
			stop.Set()
			return sum
		case <-ctx.Done():
			sum.FatalErr = ctx.Err()
			return sum
		}
	}
}

func (a *Aggregator) apply(ev ScanEvent, sum *Summary, stop *EarlyStop, exited map[int]bool) {
	switch e := ev.(type) {
	case RecordsEvent:
		a.applyRecords(e, sum, stop)
	case StatsEvent:
		sum.BytesScanned += e.BytesScanned
		sum.BytesReturned += e.BytesReturned
		if a.status != nil {
			a.status.AddBytes(e.BytesScanned, e.BytesReturned)
		}
	case ErrorEvent:
		if a.status != nil {
			a.status.ReportError(e)
		}
		if e.Fatal && sum.FatalErr == nil {
			sum.FatalErr = fmt.Errorf("%s: %w", e.S3Path, e.Err)
		}
	case FileDoneEvent:
		sum.FilesCompleted++
		if a.status != nil {
			a.status.MarkFileDone(e.S3Path)
		}
	case WorkerExitEvent:
		exited[e.WorkerID] = true
	}
}

func (a *Aggregator) applyRecords(e RecordsEvent, sum *Summary, stop *EarlyStop) {
	for _, rec := range e.Records {
		if strings.TrimSpace(rec) == "" {
			continue
		}
		if a.query.Count {
			n, err := strconv.ParseInt(strings.TrimSpace(rec), 10, 64)
			if err != nil {
				continue
			}
			sum.RecordsMatched += n
		} else {
			if a.query.WithFilename {
				fmt.Fprintf(a.out, "%s\t%s\n", e.S3Path, rec)
			} else {
				fmt.Fprintln(a.out, rec)
			}
			sum.RecordsMatched++

			if a.query.Limit > 0 && sum.RecordsMatched >= int64(a.query.Limit) {
				sum.StoppedEarly = true
				stop.Set()
				return
			}
		}
	}
}

// PrintCount writes the final decimal match count to out when the query
// is in counting mode. Called once after Run returns.
func (a *Aggregator) PrintCount(sum Summary) {
	if a.query.Count {
		fmt.Fprintln(a.out, sum.RecordsMatched)
	}
}

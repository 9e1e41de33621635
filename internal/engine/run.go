package engine

import (
	"context"
	"io"
	"time"
)

// DefaultThreadCount is the total worker task count used when the CLI
// does not override it.
const DefaultThreadCount = 150

// DefaultMaxRetries is the per-key retry budget used when the CLI does
// not override it.
const DefaultMaxRetries = 20

// queueCapacity bounds both the work and event queues so the process
// never buffers the entire key universe or the entire output stream in
// memory; the Lister and the workers feel backpressure instead.
const queueCapacity = 20000

// RunOptions configures one scan run end to end.
type RunOptions struct {
	Query          Query
	Prefixes       []string
	ThreadCount    int
	Verbose        bool
	EstimateCost   bool
	QueueTimeout   time.Duration
	StatusInterval time.Duration
	Out            io.Writer
	StatusOut      io.Writer

	// Status, when set, is used instead of an internally constructed
	// StatusReporter. It lets a caller share live counters with something
	// else (the status dashboard) while the run is in flight. The caller
	// owns its lifecycle: Run starts and stops it like any other reporter
	// but does not assume exclusive ownership beyond that.
	Status *StatusReporter
}

// Result is everything the caller needs once a run completes: the
// summary counters plus any fatal error.
type Result struct {
	Summary Summary
	Cost    *CostEstimate
}

// Run wires one Lister, opts.ThreadCount ScanWorkers and one Aggregator
// around the bounded work/event queues and a shared EarlyStop flag, then
// blocks until the run drains or fails fatally. Dependency order follows
// leaves first: EarlyStop, StatusReporter, Aggregator, Worker, Lister.
func Run(ctx context.Context, client ScanClient, opts RunOptions) Result {
	threadCount := opts.ThreadCount
	if threadCount <= 0 {
		threadCount = DefaultThreadCount
	}

	stop := NewEarlyStop()

	var discovered int64
	status := opts.Status
	if status != nil {
		status.discovered = &discovered
		if opts.Verbose && opts.StatusOut != nil {
			status.Start()
			defer status.Stop()
		}
	} else if opts.Verbose && opts.StatusOut != nil {
		interval := opts.StatusInterval
		if interval <= 0 {
			interval = time.Second
		}
		status = NewStatusReporter(opts.StatusOut, interval, &discovered)
		status.Start()
		defer status.Stop()
	} else if opts.StatusOut != nil {
		spin := newListingSpinner(opts.StatusOut)
		spin.start()
		defer spin.stop()
	}

	work := make(chan WorkItem, queueCapacity)
	events := make(chan ScanEvent, queueCapacity)

	agg := NewAggregator(opts.Query, opts.Out, threadCount, status)
	if opts.QueueTimeout > 0 {
		agg.timeout = opts.QueueTimeout
	}

	for i := 0; i < threadCount; i++ {
		w := NewWorker(i, client, opts.Query, status)
		go w.Run(ctx, work, events, stop)
	}

	lister := NewLister(client, &discovered)
	go func() {
		if err := lister.Run(ctx, opts.Prefixes, work, stop); err != nil {
			events <- ErrorEvent{Err: err, Fatal: true, S3Path: "listing"}
		}
	}()

	sum := agg.Run(ctx, events, stop)
	sum.FilesDiscovered = discovered
	sum.StoppedEarly = sum.StoppedEarly || stop.IsSet()
	agg.PrintCount(sum)

	var cost *CostEstimate
	if opts.EstimateCost {
		c := EstimateCost(sum)
		cost = &c
	}

	return Result{Summary: sum, Cost: cost}
}

package engine

// ScanEvent is the explicit sum type a ScanWorker sends to the
// ResultAggregator. Each concrete type below is one variant; the
// aggregator type-switches on it rather than reading optional fields off
// a single heterogeneous struct.
type ScanEvent interface {
	isScanEvent()
}

// RecordsEvent carries zero or more fully record-delimiter-terminated
// records read from one object's response stream.
type RecordsEvent struct {
	Records []string
	S3Path  string
}

// StatsEvent carries the remote-reported byte counters for one Stats
// frame.
type StatsEvent struct {
	BytesScanned  int64
	BytesReturned int64
}

// ErrorEvent reports a failed attempt against one key. Fatal means the
// per-key retry budget is exhausted (or the stream ended without an End
// marker); the aggregator turns a fatal ErrorEvent into a process-level
// failure. A non-fatal ErrorEvent is counted in the StatusReporter's
// error total (when a reporter is attached) and the worker retries the
// same key; the aggregator does not log it individually.
type ErrorEvent struct {
	Err    error
	Fatal  bool
	S3Path string
}

// FileDoneEvent marks one key as fully processed: the remote End marker
// was observed for that key's response stream.
type FileDoneEvent struct {
	S3Path string
}

// WorkerExitEvent marks one ScanWorker as drained and about to exit. The
// aggregator's drain loop terminates once every worker has emitted one of
// these and the event queue is empty.
type WorkerExitEvent struct {
	WorkerID int
}

func (RecordsEvent) isScanEvent()    {}
func (StatsEvent) isScanEvent()      {}
func (ErrorEvent) isScanEvent()      {}
func (FileDoneEvent) isScanEvent()   {}
func (WorkerExitEvent) isScanEvent() {}

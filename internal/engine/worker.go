package engine

import (
	"context"
	"errors"
	"strings"
	"time"
)

// retryDelay is the fixed pause between retry attempts against one key.
// A fixed delay rather than backoff with jitter — kept as-is, an
// intentional simplification, not a bug.
const retryDelay = 400 * time.Millisecond

// ErrEndMarkerMissing is the fatal error raised when an object's response
// stream closes without the remote End frame.
var ErrEndMarkerMissing = errors.New("end event not received; data corrupted; please retry")

// Worker consumes WorkItems and performs one object-select call per key,
// translating the remote framed event stream into ScanEvents.
type Worker struct {
	id     int
	client ScanClient
	query  Query
	status *StatusReporter
}

// NewWorker creates a ScanWorker identified by id. status may be nil when
// no live progress reporting is in use.
func NewWorker(id int, client ScanClient, query Query, status *StatusReporter) *Worker {
	return &Worker{id: id, client: client, query: query, status: status}
}

// Run drains work until it sees the sentinel or EarlyStop fires,
// forwarding ScanEvents to events. It never returns an error: every
// failure is encoded as an ErrorEvent and handled by the aggregator.
func (w *Worker) Run(ctx context.Context, work chan WorkItem, events chan<- ScanEvent, stop *EarlyStop) {
	for {
		if stop.IsSet() {
			events <- WorkerExitEvent{WorkerID: w.id}
			return
		}

		item := <-work
		if item.Sentinel {
			work <- sentinelItem()
			events <- WorkerExitEvent{WorkerID: w.id}
			return
		}

		if stop.IsSet() {
			events <- WorkerExitEvent{WorkerID: w.id}
			return
		}

		if !w.scanOne(ctx, item, events, stop) {
			events <- WorkerExitEvent{WorkerID: w.id}
			return
		}
	}
}

// scanOne performs one key's select call plus retries. It returns false
// if the worker should stop entirely (EarlyStop observed mid-stream).
func (w *Worker) scanOne(ctx context.Context, item WorkItem, events chan<- ScanEvent, stop *EarlyStop) bool {
	s3Path := item.S3Path()
	req := w.buildRequest(item)

	if w.status != nil {
		w.status.MarkKeyStarted(s3Path)
	}

	var stream EventStream
	for attempt := 0; ; attempt++ {
		s, err := w.client.SelectObject(ctx, req)
		if err == nil {
			stream = s
			break
		}

		fatal := attempt >= w.query.MaxRetries
		events <- ErrorEvent{Err: err, Fatal: fatal, S3Path: s3Path}
		if fatal {
			return true
		}

		select {
		case <-time.After(retryDelay):
		case <-ctx.Done():
			return true
		}
	}
	defer stream.Close()

	decoder := newCarryOverDecoder(w.query.recordDelimiter())
	endReceived := false

	for {
		if stop.IsSet() {
			return false
		}

		frame, ok, err := stream.Next()
		if err != nil {
			events <- ErrorEvent{Err: err, Fatal: true, S3Path: s3Path}
			return true
		}
		if !ok {
			break
		}

		switch frame.Kind {
		case FrameRecords:
			if records := decoder.feed(frame.Payload); len(records) > 0 {
				events <- RecordsEvent{Records: records, S3Path: s3Path}
			}
		case FrameStats:
			events <- StatsEvent{BytesScanned: frame.BytesScanned, BytesReturned: frame.BytesReturned}
		case FrameEnd:
			endReceived = true
		}
	}

	if endReceived {
		events <- FileDoneEvent{S3Path: s3Path}
	} else {
		events <- ErrorEvent{Err: ErrEndMarkerMissing, Fatal: true, S3Path: s3Path}
	}
	return true
}

func (w *Worker) buildRequest(item WorkItem) SelectRequest {
	q := w.query
	field, record := q.effectiveDelimiters()
	return SelectRequest{
		Bucket:          item.Bucket,
		Key:             item.Key,
		Expression:      q.Expression(),
		CSV:             q.IsCSV(),
		FieldDelimiter:  field,
		RecordDelimiter: record,
		Count:           q.Count,
		Gzip:            strings.HasSuffix(strings.ToLower(item.Key), ".gz"),
	}
}

// carryOverDecoder reassembles records split across Records frame
// boundaries. It exists only for the lifetime of one object's response
// stream and is discarded once that call completes.
type carryOverDecoder struct {
	delimiter string
	carry     string
}

func newCarryOverDecoder(delimiter string) *carryOverDecoder {
	return &carryOverDecoder{delimiter: delimiter}
}

// feed appends payload to the carry-over buffer and splits on the record
// delimiter. The last fragment — either empty (payload ended exactly on a
// delimiter) or a partial record — is kept as the new carry-over and is
// not returned. A trailing partial fragment left in the decoder when the
// stream ends is discarded intentionally: the remote service guarantees
// every record is terminated before its End frame.
func (d *carryOverDecoder) feed(payload []byte) []string {
	combined := d.carry + string(payload)
	parts := strings.Split(combined, d.delimiter)
	d.carry = parts[len(parts)-1]
	return parts[:len(parts)-1]
}

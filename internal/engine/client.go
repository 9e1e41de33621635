package engine

import "context"

// ScanClient is the remote collaborator a Lister and a ScanWorker need:
// paginated key listing and the object-select call itself. Implemented by
// internal/scanclient against AWS S3 and against any S3-compatible
// endpoint via minio-go, so the engine stays backend-agnostic.
type ScanClient interface {
	// ListObjectsPages paginates the objects under bucket/prefix, calling
	// fn once per page. fn returns false to stop pagination early (used
	// when EarlyStop fires between pages).
	ListObjectsPages(ctx context.Context, bucket, prefix string, fn func(page []ObjectSummary) (more bool)) error

	// SelectObject issues one object-select call and returns the framed
	// event stream. The caller must Close the stream.
	SelectObject(ctx context.Context, req SelectRequest) (EventStream, error)
}

// ObjectSummary is the subset of a listed object's metadata the Lister
// needs.
type ObjectSummary struct {
	Key  string
	Size int64
}

// SelectRequest carries everything needed to build one object-select
// call for a single key.
type SelectRequest struct {
	Bucket     string
	Key        string
	Expression string

	CSV             bool
	FieldDelimiter  string
	RecordDelimiter string

	// Count switches CSV output to a single-space field delimiter so the
	// aggregator sees one decimal integer per record fragment.
	Count bool

	// Gzip is set when the key ends in .gz (case-insensitive).
	Gzip bool
}

// FrameKind distinguishes the three response-stream frame kinds the
// remote service produces.
type FrameKind int

const (
	FrameRecords FrameKind = iota
	FrameStats
	FrameEnd
)

// Frame is one event off an EventStream.
type Frame struct {
	Kind          FrameKind
	Payload       []byte // set for FrameRecords
	BytesScanned  int64  // set for FrameStats
	BytesReturned int64  // set for FrameStats
}

// EventStream is the framed response of one object-select call.
type EventStream interface {
	// Next blocks for the next frame. ok is false once the stream is
	// exhausted; err is non-nil only on a transport failure.
	Next() (frame Frame, ok bool, err error)
	Close() error
}

package scanclient

import (
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"

	"github.com/seike460/s3scan/internal/engine"
)

// minioListBatch is how many listed keys are grouped into one page before
// handing them to the Lister's callback. minio-go exposes listing as a
// single channel rather than AWS's page API, so the backend buffers into
// pages itself to satisfy engine.ScanClient's contract.
const minioListBatch = 1000

// MinIOClient implements engine.ScanClient against any S3-compatible
// endpoint reachable through minio-go, including self-hosted MinIO,
// Ceph RGW and other S3-compatible object stores.
type MinIOClient struct {
	cl *minio.Client
}

// NewMinIOClient wraps an already-constructed minio-go client.
func NewMinIOClient(cl *minio.Client) *MinIOClient {
	return &MinIOClient{cl: cl}
}

// ListObjectsPages batches minio-go's channel-based listing into pages of
// minioListBatch keys.
func (c *MinIOClient) ListObjectsPages(ctx context.Context, bucket, prefix string, fn func([]engine.ObjectSummary) bool) error {
	objectCh := c.cl.ListObjects(ctx, bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	})

	page := make([]engine.ObjectSummary, 0, minioListBatch)
	for obj := range objectCh {
		if obj.Err != nil {
			return fmt.Errorf("listing s3://%s/%s: %w", bucket, prefix, obj.Err)
		}
		page = append(page, engine.ObjectSummary{Key: obj.Key, Size: obj.Size})

		if len(page) >= minioListBatch {
			if !fn(page) {
				return nil
			}
			page = page[:0]
		}
	}
	if len(page) > 0 {
		fn(page)
	}
	return nil
}

// SelectObject issues one SelectObjectContent call. minio-go's
// SelectResults exposes only the reassembled record payload through
// io.Reader, not individual Stats frames, so this backend emits no Stats
// frames at all (bytes scanned/returned stay zero for MinIO runs) and
// relies on FrameEnd at normal stream close.
func (c *MinIOClient) SelectObject(ctx context.Context, req engine.SelectRequest) (engine.EventStream, error) {
	opts := minio.SelectObjectOptions{
		Expression:          req.Expression,
		ExpressionType:      minio.QueryExpressionTypeSQL,
		InputSerialization:  buildMinIOInput(req),
		OutputSerialization: buildMinIOOutput(req),
	}

	results, err := c.cl.SelectObjectContent(ctx, req.Bucket, req.Key, opts)
	if err != nil {
		return nil, fmt.Errorf("select s3://%s/%s: %w", req.Bucket, req.Key, err)
	}
	return &minioEventStream{results: results}, nil
}

func buildMinIOInput(req engine.SelectRequest) minio.SelectObjectInputSerialization {
	compression := minio.SelectCompressionNONE
	if req.Gzip {
		compression = minio.SelectCompressionGZIP
	}

	in := minio.SelectObjectInputSerialization{CompressionType: compression}
	if req.CSV {
		in.CSV = &minio.CSVInputOptions{
			FileHeaderInfo:  minio.CSVFileHeaderInfoNone,
			RecordDelimiter: req.RecordDelimiter,
			FieldDelimiter:  req.FieldDelimiter,
			QuoteCharacter:  "",
		}
	} else {
		in.JSON = &minio.JSONInputOptions{Type: minio.JSONDocumentType}
	}
	return in
}

func buildMinIOOutput(req engine.SelectRequest) minio.SelectObjectOutputSerialization {
	out := minio.SelectObjectOutputSerialization{}
	switch {
	case req.Count:
		out.CSV = &minio.CSVOutputOptions{FieldDelimiter: " "}
	case req.CSV:
		out.CSV = &minio.CSVOutputOptions{
			FieldDelimiter:  req.FieldDelimiter,
			RecordDelimiter: req.RecordDelimiter,
		}
	default:
		out.JSON = &minio.JSONOutputOptions{}
	}
	return out
}

// minioEventStream adapts SelectResults's plain io.ReadCloser surface to
// engine.EventStream by wrapping each Read into a FrameRecords frame and
// synthesizing FrameEnd on a clean io.EOF.
type minioEventStream struct {
	results *minio.SelectResults
	sawEOF  bool
	ended   bool
}

func (s *minioEventStream) Next() (engine.Frame, bool, error) {
	if s.ended {
		return engine.Frame{}, false, nil
	}
	if s.sawEOF {
		s.ended = true
		return engine.Frame{Kind: engine.FrameEnd}, true, nil
	}

	buf := make([]byte, 64*1024)
	n, err := s.results.Read(buf)
	if n > 0 {
		if err == io.EOF {
			s.sawEOF = true
		} else if err != nil {
			return engine.Frame{}, false, err
		}
		return engine.Frame{Kind: engine.FrameRecords, Payload: buf[:n]}, true, nil
	}

	if err == io.EOF {
		s.ended = true
		return engine.Frame{Kind: engine.FrameEnd}, true, nil
	}
	if err != nil {
		return engine.Frame{}, false, err
	}
	return s.Next()
}

func (s *minioEventStream) Close() error {
	return s.results.Close()
}

// Package scanclient adapts remote object-storage backends to
// engine.ScanClient: one implementation against AWS S3 and one against
// any S3-compatible endpoint via minio-go.
package scanclient

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"

	"github.com/seike460/s3scan/internal/engine"
)

// AWSClient implements engine.ScanClient against the AWS S3 API,
// including S3-compatible endpoints reachable through the same SDK
// (S3ForcePathStyle).
type AWSClient struct {
	svc *s3.S3
}

// NewAWSClient wraps an already-configured AWS session.
func NewAWSClient(sess *session.Session) *AWSClient {
	return &AWSClient{svc: s3.New(sess)}
}

// ListObjectsPages paginates bucket/prefix using the V2 listing API.
func (c *AWSClient) ListObjectsPages(ctx context.Context, bucket, prefix string, fn func([]engine.ObjectSummary) bool) error {
	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
		Prefix: aws.String(prefix),
	}

	err := c.svc.ListObjectsV2PagesWithContext(ctx, input, func(page *s3.ListObjectsV2Output, lastPage bool) bool {
		summaries := make([]engine.ObjectSummary, 0, len(page.Contents))
		for _, obj := range page.Contents {
			summaries = append(summaries, engine.ObjectSummary{
				Key:  aws.StringValue(obj.Key),
				Size: aws.Int64Value(obj.Size),
			})
		}
		return fn(summaries)
	})
	if err != nil {
		return fmt.Errorf("listing s3://%s/%s: %w", bucket, prefix, err)
	}
	return nil
}

// SelectObject issues one SelectObjectContent call and adapts the AWS
// event-stream reader to engine.EventStream.
func (c *AWSClient) SelectObject(ctx context.Context, req engine.SelectRequest) (engine.EventStream, error) {
	input := &s3.SelectObjectContentInput{
		Bucket:             aws.String(req.Bucket),
		Key:                aws.String(req.Key),
		Expression:         aws.String(req.Expression),
		ExpressionType:     aws.String(s3.ExpressionTypeSql),
		InputSerialization: buildInputSerialization(req),
		OutputSerialization: buildOutputSerialization(req),
	}

	out, err := c.svc.SelectObjectContentWithContext(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("select s3://%s/%s: %w", req.Bucket, req.Key, err)
	}
	return &awsEventStream{reader: out.EventStream.Reader, events: out.EventStream.Events()}, nil
}

func buildInputSerialization(req engine.SelectRequest) *s3.InputSerialization {
	compression := s3.CompressionTypeNone
	if req.Gzip {
		compression = s3.CompressionTypeGzip
	}

	in := &s3.InputSerialization{CompressionType: aws.String(compression)}
	if req.CSV {
		in.CSV = &s3.CSVInput{
			FileHeaderInfo:  aws.String(s3.FileHeaderInfoNone),
			FieldDelimiter:  aws.String(req.FieldDelimiter),
			RecordDelimiter: aws.String(req.RecordDelimiter),
			QuoteCharacter:  aws.String(""),
		}
	} else {
		in.JSON = &s3.JSONInput{Type: aws.String(s3.JSONTypeDocument)}
	}
	return in
}

func buildOutputSerialization(req engine.SelectRequest) *s3.OutputSerialization {
	out := &s3.OutputSerialization{}
	switch {
	case req.Count:
		out.CSV = &s3.CSVOutput{FieldDelimiter: aws.String(" ")}
	case req.CSV:
		out.CSV = &s3.CSVOutput{
			FieldDelimiter:  aws.String(req.FieldDelimiter),
			RecordDelimiter: aws.String(req.RecordDelimiter),
		}
	default:
		out.JSON = &s3.JSONOutput{}
	}
	return out
}

// awsEventStream adapts s3.SelectObjectContentEventStreamReader's channel
// of union events to engine.EventStream's pull-based Next.
type awsEventStream struct {
	reader interface{ Close() error }
	events <-chan s3.SelectObjectContentEventStreamEvent
}

func (s *awsEventStream) Next() (engine.Frame, bool, error) {
	ev, ok := <-s.events
	if !ok {
		return engine.Frame{}, false, nil
	}

	switch e := ev.(type) {
	case *s3.RecordsEvent:
		return engine.Frame{Kind: engine.FrameRecords, Payload: e.Payload}, true, nil
	case *s3.StatsEvent:
		return engine.Frame{
			Kind:          engine.FrameStats,
			BytesScanned:  aws.Int64Value(e.Details.BytesScanned),
			BytesReturned: aws.Int64Value(e.Details.BytesReturned),
		}, true, nil
	case *s3.EndEvent:
		return engine.Frame{Kind: engine.FrameEnd}, true, nil
	default:
		// ContinuationEvent, ProgressEvent: no payload relevant to the
		// scan pipeline, skip to the next frame.
		return s.Next()
	}
}

func (s *awsEventStream) Close() error {
	return s.reader.Close()
}

package worker

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"

	modernS3 "github.com/seike460/s3scan/internal/s3"
	"github.com/seike460/s3scan/internal/metrics"
	"github.com/seike460/s3scan/pkg/types"
)

// S3UploadJob uploads one export bundle file to S3. It is the only job
// type the export pipeline's auxiliary worker pool runs; the scan
// engine itself never uploads anything.
type S3UploadJob struct {
	Client   *modernS3.Client
	Request  types.UploadRequest
	Progress types.ProgressCallback
}

// Execute implements the Job interface for S3UploadJob
func (j *S3UploadJob) Execute(ctx context.Context) error {
	m := metrics.GetGlobalMetrics()
	timer := m.StartTimer("s3_upload")
	defer timer.Stop()

	file, err := os.Open(j.Request.FilePath)
	if err != nil {
		return fmt.Errorf("failed to open file %s: %w", j.Request.FilePath, err)
	}
	defer file.Close()

	fileInfo, err := file.Stat()
	if err != nil {
		return fmt.Errorf("failed to get file info for %s: %w", j.Request.FilePath, err)
	}

	input := &s3manager.UploadInput{
		Bucket: aws.String(j.Request.Bucket),
		Key:    aws.String(j.Request.Key),
		Body:   file,
	}

	if j.Request.ContentType != "" {
		input.ContentType = aws.String(j.Request.ContentType)
	}
	if j.Request.Metadata != nil {
		input.Metadata = j.Request.Metadata
	}

	uploader := j.Client.Uploader()
	if j.Progress != nil {
		uploader.Concurrency = 5
		uploader.PartSize = 5 * 1024 * 1024
	}

	if _, err := uploader.UploadWithContext(ctx, input); err != nil {
		return fmt.Errorf("failed to upload %s: %w", j.Request.FilePath, err)
	}

	m.IncrementBundlesUploaded()
	m.AddBytesUploaded(fileInfo.Size())

	if j.Progress != nil {
		j.Progress(fileInfo.Size(), fileInfo.Size())
	}

	return nil
}

package export

import (
	"fmt"
	"path/filepath"

	"github.com/seike460/s3scan/internal/logger"
	"github.com/seike460/s3scan/internal/metrics"
	modernS3 "github.com/seike460/s3scan/internal/s3"
	"github.com/seike460/s3scan/internal/worker"
	"github.com/seike460/s3scan/pkg/types"
)

// UploadBundle uploads every file in paths to bucket under its base name,
// dispatched through a worker pool so multiple export files upload
// concurrently. It blocks until every upload has a result; each successful
// Execute adds to the global metrics instance, and the pool counts each
// failed upload there.
func UploadBundle(client *modernS3.Client, bucket string, paths []string) error {
	if len(paths) == 0 {
		return nil
	}

	timer := metrics.GetGlobalMetrics().StartTimer("export_upload_bundle")
	defer timer.Stop()

	pool := worker.NewPool(worker.PoolConfig{
		Workers:   len(paths),
		QueueSize: len(paths),
	})
	pool.Start()
	defer func() {
		pool.Stop()
		stats := pool.GetWorkerStats()
		logger.GetLogger().SetComponent("export").Debug(
			"upload pool drained: %d workers, queue %d/%d", stats.TotalWorkers, stats.QueueLength, stats.QueueCapacity)
	}()

	for _, path := range paths {
		job := &worker.S3UploadJob{
			Client: client,
			Request: types.UploadRequest{
				Bucket:   bucket,
				Key:      filepath.Base(path),
				FilePath: path,
			},
		}
		if err := pool.Submit(job); err != nil {
			return fmt.Errorf("submit upload of %s: %w", path, err)
		}
	}

	var firstErr error
	for range paths {
		result := <-pool.Results()
		if result.Error != nil && firstErr == nil {
			firstErr = fmt.Errorf("upload failed: %w", result.Error)
		}
	}
	return firstErr
}

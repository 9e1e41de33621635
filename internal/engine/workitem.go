package engine

// WorkItem is one (bucket, key) pair produced by the Lister and consumed
// by a ScanWorker. A sentinel WorkItem marks end-of-listing: a worker that
// dequeues it must put one sentinel back before exiting, so every sibling
// worker also observes termination.
type WorkItem struct {
	Bucket   string
	Key      string
	Sentinel bool
}

// S3Path renders the work item as an s3://bucket/key URI for logging and
// the --with_filename prefix.
func (w WorkItem) S3Path() string {
	return "s3://" + w.Bucket + "/" + w.Key
}

func sentinelItem() WorkItem {
	return WorkItem{Sentinel: true}
}

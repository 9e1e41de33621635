package engine

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync/atomic"
)

// Lister paginates the object listing under each prefix and enqueues one
// WorkItem per non-empty object. Exactly one Lister runs per scan.
type Lister struct {
	client    ScanClient
	discovery *int64 // total_files_discovered, written only here
}

// NewLister creates a Lister backed by client. discovered is incremented
// once per enqueued item and may be read concurrently by the status
// reporter.
func NewLister(client ScanClient, discovered *int64) *Lister {
	return &Lister{client: client, discovery: discovered}
}

// Run lists every prefix in order, enqueuing one WorkItem per non-empty
// object, then enqueues exactly one sentinel and returns. A listing error
// is fatal: it raises stop so every worker drains and returns the error
// so the caller can surface a fatal ErrorEvent.
func (l *Lister) Run(ctx context.Context, prefixes []string, work chan<- WorkItem, stop *EarlyStop) error {
	defer func() {
		work <- sentinelItem()
	}()

	for _, prefix := range prefixes {
		if stop.IsSet() {
			return nil
		}

		bucket, keyPrefix, err := parsePrefix(prefix)
		if err != nil {
			stop.Set()
			return err
		}

		err = l.client.ListObjectsPages(ctx, bucket, keyPrefix, func(page []ObjectSummary) bool {
			for _, obj := range page {
				// Zero-byte objects make the remote select call error and
				// carry no records; skip them silently.
				if obj.Size == 0 {
					continue
				}
				select {
				case work <- WorkItem{Bucket: bucket, Key: obj.Key}:
					atomic.AddInt64(l.discovery, 1)
				case <-ctx.Done():
					return false
				}
			}
			return !stop.IsSet()
		})
		if err != nil {
			stop.Set()
			return fmt.Errorf("listing %s: %w", prefix, err)
		}
	}

	return nil
}

// parsePrefix splits a "scheme://bucket/key-prefix" URI into bucket and
// key prefix.
func parsePrefix(prefix string) (bucket, keyPrefix string, err error) {
	u, err := url.Parse(prefix)
	if err != nil {
		return "", "", fmt.Errorf("invalid prefix %q: %w", prefix, err)
	}
	if u.Host == "" {
		return "", "", fmt.Errorf("invalid prefix %q: missing bucket", prefix)
	}
	return u.Host, strings.TrimPrefix(u.Path, "/"), nil
}

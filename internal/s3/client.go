package s3

import (
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
)

// Client is the AWS session plus multipart uploader used to ship export
// bundles to S3 once a scan finishes. The scan engine itself talks to S3
// through engine.ScanClient; Client exists only for the export path.
type Client struct {
	session  *session.Session
	uploader *s3manager.Uploader
}

// NewClient creates a client against the standard AWS S3 endpoint for the
// given region.
func NewClient(region string) *Client {
	return newClient(&aws.Config{Region: aws.String(region)})
}

// NewClientWithEndpoint creates a client against a custom S3-compatible
// endpoint (MinIO and similar), using path-style addressing when
// forcePathStyle is set, since most of those deployments don't support
// virtual-hosted buckets.
func NewClientWithEndpoint(region, endpoint string, forcePathStyle bool) *Client {
	return newClient(&aws.Config{
		Region:           aws.String(region),
		Endpoint:         aws.String(endpoint),
		S3ForcePathStyle: aws.Bool(forcePathStyle),
	})
}

func newClient(cfg *aws.Config) *Client {
	sess := session.Must(session.NewSession(cfg))
	return &Client{
		session:  sess,
		uploader: s3manager.NewUploader(sess),
	}
}

// Session returns the underlying AWS session.
func (c *Client) Session() *session.Session {
	return c.session
}

// Uploader returns the multipart uploader used to ship export bundle
// files.
func (c *Client) Uploader() *s3manager.Uploader {
	return c.uploader
}

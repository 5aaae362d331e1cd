package s3blob

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// minPartSize is the S3 minimum multipart part size (5 MiB).
const minPartSize int64 = 5 * 1024 * 1024

// Writer implements domain.BlobWriter against an S3-compatible backend. It is
// used for scan report and model snapshot uploads.
type Writer struct {
	client   *s3.Client
	uploader *manager.Uploader
	bucket   string
}

// NewWriter creates a Writer that uploads objects into the client's configured
// bucket. A single multipart upload manager is shared across calls.
func NewWriter(c *Client) *Writer {
	client := c.S3()
	return &Writer{
		client:   client,
		uploader: manager.NewUploader(client),
		bucket:   c.Bucket(),
	}
}

// Put uploads data as a single PutObject request. Reports and model snapshots
// are small, so this is the common path. An empty contentType defaults to
// application/octet-stream.
func (w *Writer) Put(ctx context.Context, path string, data io.Reader, contentType string) error {
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	_, err := w.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(w.bucket),
		Key:         aws.String(path),
		Body:        data,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("s3blob: put object %s: %w", path, err)
	}
	return nil
}

// PutMultipart uploads data through the multipart upload manager, splitting
// the payload into parts of partSize bytes. Part sizes below the S3 minimum
// of 5 MiB are clamped up to it.
func (w *Writer) PutMultipart(ctx context.Context, path string, data io.Reader, partSize int64) error {
	if partSize < minPartSize {
		partSize = minPartSize
	}

	_, err := w.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(w.bucket),
		Key:    aws.String(path),
		Body:   data,
	}, func(u *manager.Uploader) {
		u.PartSize = partSize
	})
	if err != nil {
		return fmt.Errorf("s3blob: multipart upload %s: %w", path, err)
	}
	return nil
}

package store

import (
	"context"
	"io"
)

// AttachmentFileStore handles attachment file storage.
// Implementations can support S3, GCS, local filesystem, etc.
//
// Messages carry Attachment descriptors; the URL field of a descriptor is
// the URI returned by Upload.
type AttachmentFileStore interface {
	// Upload stores content and returns a URI for later retrieval.
	Upload(ctx context.Context, filename, contentType string, content io.Reader) (uri string, err error)

	// Load returns a reader for the attachment content.
	// Caller is responsible for closing the reader.
	Load(ctx context.Context, uri string) (io.ReadCloser, error)

	// Delete removes the attachment file from storage.
	Delete(ctx context.Context, uri string) error
}

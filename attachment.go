package messaging

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"path"

	"golang.org/x/crypto/blake2b"

	"github.com/skillswap/messaging/store"
)

// MaxAttachmentSize caps a single attachment upload.
const MaxAttachmentSize = 25 << 20 // 25 MiB

// ErrAttachmentTooLarge is returned when an upload exceeds
// MaxAttachmentSize.
var ErrAttachmentTooLarge = fmt.Errorf("messaging: attachment exceeds %d bytes", MaxAttachmentSize)

// AttachmentUploader stores attachment content under content-addressed
// keys and produces the Attachment records carried on messages.
//
// Keys are derived from a BLAKE2b-256 digest of the content, so
// uploading the same file twice yields the same stored object and the
// blob store deduplicates for free.
type AttachmentUploader struct {
	files store.AttachmentFileStore
}

// NewAttachmentUploader wraps a blob store.
func NewAttachmentUploader(files store.AttachmentFileStore) *AttachmentUploader {
	return &AttachmentUploader{files: files}
}

// Upload stores the content and returns the attachment record to place
// on a draft. The original filename is preserved in the record; the
// stored key keeps only its extension.
func (u *AttachmentUploader) Upload(ctx context.Context, originalName, mimeType string, content io.Reader) (Attachment, error) {
	// Hash while buffering; attachments are size-capped so a single
	// in-memory pass is fine.
	hasher, err := blake2b.New256(nil)
	if err != nil {
		return Attachment{}, fmt.Errorf("messaging: init hasher: %w", err)
	}

	var buf bytes.Buffer
	n, err := io.Copy(io.MultiWriter(&buf, hasher), io.LimitReader(content, MaxAttachmentSize+1))
	if err != nil {
		return Attachment{}, fmt.Errorf("messaging: read attachment: %w", err)
	}
	if n > MaxAttachmentSize {
		return Attachment{}, ErrAttachmentTooLarge
	}

	key := hex.EncodeToString(hasher.Sum(nil))
	if ext := path.Ext(originalName); ext != "" {
		key += ext
	}

	uri, err := u.files.Upload(ctx, key, mimeType, &buf)
	if err != nil {
		return Attachment{}, fmt.Errorf("messaging: upload attachment: %w", err)
	}

	return Attachment{
		Filename:     key,
		OriginalName: originalName,
		MimeType:     mimeType,
		Size:         n,
		URL:          uri,
	}, nil
}

// Load returns a reader for a previously uploaded attachment.
func (u *AttachmentUploader) Load(ctx context.Context, att Attachment) (io.ReadCloser, error) {
	if att.URL == "" {
		return nil, fmt.Errorf("messaging: attachment has no url")
	}
	return u.files.Load(ctx, att.URL)
}

// Delete removes the stored content for an attachment. Because keys
// are content-addressed, only delete when no other message references
// the same content.
func (u *AttachmentUploader) Delete(ctx context.Context, att Attachment) error {
	if att.URL == "" {
		return nil
	}
	return u.files.Delete(ctx, att.URL)
}

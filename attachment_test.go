package messaging

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
)

// fakeFileStore keeps uploaded blobs in memory, keyed by the URI it
// hands back.
type fakeFileStore struct {
	blobs map[string][]byte
	types map[string]string
}

func newFakeFileStore() *fakeFileStore {
	return &fakeFileStore{blobs: map[string][]byte{}, types: map[string]string{}}
}

func (f *fakeFileStore) Upload(_ context.Context, filename, contentType string, content io.Reader) (string, error) {
	data, err := io.ReadAll(content)
	if err != nil {
		return "", err
	}
	uri := "mem://" + filename
	f.blobs[uri] = data
	f.types[uri] = contentType
	return uri, nil
}

func (f *fakeFileStore) Load(_ context.Context, uri string) (io.ReadCloser, error) {
	data, ok := f.blobs[uri]
	if !ok {
		return nil, errors.New("not found")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (f *fakeFileStore) Delete(_ context.Context, uri string) error {
	delete(f.blobs, uri)
	return nil
}

func TestAttachmentUpload(t *testing.T) {
	ctx := context.Background()
	files := newFakeFileStore()
	up := NewAttachmentUploader(files)

	t.Run("round trip", func(t *testing.T) {
		att, err := up.Upload(ctx, "notes.pdf", "application/pdf", strings.NewReader("lesson plan"))
		if err != nil {
			t.Fatalf("Upload: %v", err)
		}
		if att.OriginalName != "notes.pdf" {
			t.Errorf("OriginalName = %q", att.OriginalName)
		}
		if att.MimeType != "application/pdf" {
			t.Errorf("MimeType = %q", att.MimeType)
		}
		if att.Size != int64(len("lesson plan")) {
			t.Errorf("Size = %d", att.Size)
		}
		if !strings.HasSuffix(att.Filename, ".pdf") {
			t.Errorf("stored key should keep the extension, got %q", att.Filename)
		}
		if att.Filename == "notes.pdf" {
			t.Error("stored key should not be the original name")
		}

		rc, err := up.Load(ctx, att)
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		defer rc.Close()
		data, _ := io.ReadAll(rc)
		if string(data) != "lesson plan" {
			t.Errorf("loaded %q", data)
		}
	})

	t.Run("identical content maps to the same key", func(t *testing.T) {
		a, err := up.Upload(ctx, "first.png", "image/png", strings.NewReader("pixels"))
		if err != nil {
			t.Fatalf("Upload: %v", err)
		}
		b, err := up.Upload(ctx, "second.png", "image/png", strings.NewReader("pixels"))
		if err != nil {
			t.Fatalf("Upload: %v", err)
		}
		if a.Filename != b.Filename {
			t.Errorf("expected identical keys, got %q and %q", a.Filename, b.Filename)
		}
		if a.URL != b.URL {
			t.Errorf("expected identical URIs, got %q and %q", a.URL, b.URL)
		}

		c, err := up.Upload(ctx, "third.png", "image/png", strings.NewReader("different pixels"))
		if err != nil {
			t.Fatalf("Upload: %v", err)
		}
		if c.Filename == a.Filename {
			t.Error("different content must not collide")
		}
	})

	t.Run("size limit", func(t *testing.T) {
		// A reader that claims to go on past the cap
		huge := io.MultiReader(
			strings.NewReader("x"),
			&zeroReader{n: MaxAttachmentSize + 1},
		)
		_, err := up.Upload(ctx, "huge.bin", "application/octet-stream", huge)
		if !errors.Is(err, ErrAttachmentTooLarge) {
			t.Errorf("expected ErrAttachmentTooLarge, got %v", err)
		}
	})

	t.Run("no extension", func(t *testing.T) {
		att, err := up.Upload(ctx, "README", "text/plain", strings.NewReader("hello"))
		if err != nil {
			t.Fatalf("Upload: %v", err)
		}
		if strings.Contains(att.Filename, ".") {
			t.Errorf("expected bare digest key, got %q", att.Filename)
		}
	})
}

func TestServiceAttachments(t *testing.T) {
	ctx := context.Background()

	t.Run("nil without a configured store", func(t *testing.T) {
		svc := setupTestService(t)
		defer svc.Close(ctx)
		if svc.Attachments() != nil {
			t.Error("expected nil uploader")
		}
	})

	t.Run("uploads attach to messages", func(t *testing.T) {
		svc := setupTestService(t, WithAttachmentStore(newFakeFileStore()))
		defer svc.Close(ctx)

		att, err := svc.Attachments().Upload(ctx, "syllabus.pdf", "application/pdf", strings.NewReader("week one"))
		if err != nil {
			t.Fatalf("Upload: %v", err)
		}

		msg, err := svc.Create(ctx, Draft{
			SenderID:    "alice",
			RecipientID: "bob",
			Content:     "syllabus attached",
			Attachments: []Attachment{att},
		})
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		if len(msg.Attachments) != 1 || msg.Attachments[0].URL != att.URL {
			t.Errorf("attachment not carried: %+v", msg.Attachments)
		}
	})
}

// zeroReader yields n zero bytes.
type zeroReader struct{ n int64 }

func (z *zeroReader) Read(p []byte) (int, error) {
	if z.n <= 0 {
		return 0, io.EOF
	}
	if int64(len(p)) > z.n {
		p = p[:z.n]
	}
	for i := range p {
		p[i] = 0
	}
	z.n -= int64(len(p))
	return len(p), nil
}

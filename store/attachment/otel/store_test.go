package otel

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
)

// fakeBackend serves blobs from memory.
type fakeBackend struct {
	blobs   map[string][]byte
	deleted []string
	loadErr error
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{blobs: make(map[string][]byte)}
}

func (f *fakeBackend) Upload(_ context.Context, filename, _ string, content io.Reader) (string, error) {
	data, err := io.ReadAll(content)
	if err != nil {
		return "", err
	}
	uri := "mem://" + filename
	f.blobs[uri] = data
	return uri, nil
}

func (f *fakeBackend) Load(_ context.Context, uri string) (io.ReadCloser, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	data, ok := f.blobs[uri]
	if !ok {
		return nil, fmt.Errorf("no blob at %s", uri)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (f *fakeBackend) Delete(_ context.Context, uri string) error {
	delete(f.blobs, uri)
	f.deleted = append(f.deleted, uri)
	return nil
}

func TestInstrumentedStore(t *testing.T) {
	ctx := context.Background()

	t.Run("round trip with default providers", func(t *testing.T) {
		backend := newFakeBackend()
		s, err := New(backend)
		if err != nil {
			t.Fatalf("New: %v", err)
		}

		uri, err := s.Upload(ctx, "digest.pdf", "application/pdf", bytes.NewReader([]byte("pdf bytes")))
		if err != nil {
			t.Fatalf("Upload: %v", err)
		}
		if uri != "mem://digest.pdf" {
			t.Errorf("uri = %q, want backend uri", uri)
		}

		rc, err := s.Load(ctx, uri)
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		data, err := io.ReadAll(rc)
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		if !bytes.Equal(data, []byte("pdf bytes")) {
			t.Errorf("content = %q, want original bytes", data)
		}
		if err := rc.Close(); err != nil {
			t.Fatalf("close: %v", err)
		}
		if err := rc.Close(); err != nil {
			t.Errorf("second close: %v, want nil", err)
		}

		if err := s.Delete(ctx, uri); err != nil {
			t.Fatalf("Delete: %v", err)
		}
		if len(backend.deleted) != 1 {
			t.Errorf("backend deletions = %v, want one entry", backend.deleted)
		}
	})

	t.Run("disabled telemetry still delegates", func(t *testing.T) {
		backend := newFakeBackend()
		s, err := New(backend, WithDisabled())
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		if s.tracer != nil {
			t.Error("expected no tracer when disabled")
		}

		uri, err := s.Upload(ctx, "plain.txt", "text/plain", bytes.NewReader([]byte("hi")))
		if err != nil {
			t.Fatalf("Upload: %v", err)
		}
		rc, err := s.Load(ctx, uri)
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if _, err := io.ReadAll(rc); err != nil {
			t.Fatalf("read: %v", err)
		}
		if err := rc.Close(); err != nil {
			t.Fatalf("close: %v", err)
		}
	})

	t.Run("load open errors pass through", func(t *testing.T) {
		backend := newFakeBackend()
		backend.loadErr = errors.New("backend down")
		s, err := New(backend)
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		if _, err := s.Load(ctx, "mem://missing"); !errors.Is(err, backend.loadErr) {
			t.Errorf("Load error = %v, want backend error", err)
		}
	})

	t.Run("mid-stream read errors surface", func(t *testing.T) {
		s, err := New(&brokenStreamBackend{})
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		rc, err := s.Load(ctx, "mem://torn")
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if _, err := io.ReadAll(rc); err == nil {
			t.Fatal("expected a read error")
		}
		if err := rc.Close(); err != nil {
			t.Errorf("close: %v, want nil", err)
		}
	})
}

// brokenStreamBackend opens successfully but fails partway through the
// download.
type brokenStreamBackend struct{}

func (brokenStreamBackend) Upload(context.Context, string, string, io.Reader) (string, error) {
	return "", errors.New("not implemented")
}

func (brokenStreamBackend) Load(context.Context, string) (io.ReadCloser, error) {
	return io.NopCloser(io.MultiReader(
		bytes.NewReader([]byte("partial")),
		&failingReader{},
	)), nil
}

func (brokenStreamBackend) Delete(context.Context, string) error { return nil }

type failingReader struct{}

func (*failingReader) Read([]byte) (int, error) {
	return 0, errors.New("connection reset")
}

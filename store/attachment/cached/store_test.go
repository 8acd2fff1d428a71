package cached

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"testing"
	"time"
)

// fakeBackend serves blobs from memory and counts loads.
type fakeBackend struct {
	blobs   map[string][]byte
	loads   map[string]int
	deleted []string
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		blobs: make(map[string][]byte),
		loads: make(map[string]int),
	}
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
	data, ok := f.blobs[uri]
	if !ok {
		return nil, fmt.Errorf("no blob at %s", uri)
	}
	f.loads[uri]++
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (f *fakeBackend) Delete(_ context.Context, uri string) error {
	delete(f.blobs, uri)
	f.deleted = append(f.deleted, uri)
	return nil
}

func setupCache(t *testing.T, backend *fakeBackend, opts ...Option) *Store {
	t.Helper()
	opts = append([]Option{WithCacheDir(t.TempDir()), WithMaxEntryAge(0)}, opts...)
	s, err := New(backend, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(s.Close)
	return s
}

// readAll drains a load and closes it, which is what promotes the
// entry into the cache.
func readAll(t *testing.T, s *Store, uri string) []byte {
	t.Helper()
	rc, err := s.Load(context.Background(), uri)
	if err != nil {
		t.Fatalf("Load %s: %v", uri, err)
	}
	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read %s: %v", uri, err)
	}
	if err := rc.Close(); err != nil {
		t.Fatalf("close %s: %v", uri, err)
	}
	return data
}

func TestCachedLoad(t *testing.T) {
	ctx := context.Background()

	t.Run("second load hits the cache", func(t *testing.T) {
		backend := newFakeBackend()
		s := setupCache(t, backend)

		uri, err := s.Upload(ctx, "report.pdf", "application/pdf", bytes.NewReader([]byte("pdf bytes")))
		if err != nil {
			t.Fatalf("Upload: %v", err)
		}

		first := readAll(t, s, uri)
		second := readAll(t, s, uri)
		if !bytes.Equal(first, []byte("pdf bytes")) || !bytes.Equal(second, first) {
			t.Errorf("cached content differs from backend content")
		}
		if got := backend.loads[uri]; got != 1 {
			t.Errorf("backend loads = %d, want 1", got)
		}
	})

	t.Run("partial reads are not promoted", func(t *testing.T) {
		backend := newFakeBackend()
		s := setupCache(t, backend)

		uri, err := s.Upload(ctx, "big.bin", "application/octet-stream", bytes.NewReader(bytes.Repeat([]byte("x"), 1024)))
		if err != nil {
			t.Fatalf("Upload: %v", err)
		}

		rc, err := s.Load(ctx, uri)
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if _, err := rc.Read(make([]byte, 16)); err != nil {
			t.Fatalf("Read: %v", err)
		}
		rc.Close()

		readAll(t, s, uri)
		if got := backend.loads[uri]; got != 2 {
			t.Errorf("backend loads = %d, want 2 (truncated copy must not be served)", got)
		}
	})
}

func TestCachedEviction(t *testing.T) {
	ctx := context.Background()
	backend := newFakeBackend()
	s := setupCache(t, backend, WithMaxBytes(10))

	uriA, err := s.Upload(ctx, "a.txt", "text/plain", bytes.NewReader([]byte("aaaaaaaa")))
	if err != nil {
		t.Fatalf("Upload a: %v", err)
	}
	uriB, err := s.Upload(ctx, "b.txt", "text/plain", bytes.NewReader([]byte("bbbbbbbb")))
	if err != nil {
		t.Fatalf("Upload b: %v", err)
	}

	readAll(t, s, uriA)
	time.Sleep(5 * time.Millisecond)
	// Admitting b pushes the cache to 16 bytes, past the 10 byte
	// budget, which evicts a as the least recently used entry.
	readAll(t, s, uriB)

	readAll(t, s, uriB)
	if got := backend.loads[uriB]; got != 1 {
		t.Errorf("backend loads for b = %d, want 1 (should survive eviction)", got)
	}
	readAll(t, s, uriA)
	if got := backend.loads[uriA]; got != 2 {
		t.Errorf("backend loads for a = %d, want 2 (should have been evicted)", got)
	}
}

func TestCachedDelete(t *testing.T) {
	ctx := context.Background()
	backend := newFakeBackend()
	s := setupCache(t, backend)

	uri, err := s.Upload(ctx, "gone.txt", "text/plain", bytes.NewReader([]byte("bye")))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	readAll(t, s, uri)

	if err := s.Delete(ctx, uri); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if len(backend.deleted) != 1 || backend.deleted[0] != uri {
		t.Errorf("backend deletions = %v, want [%s]", backend.deleted, uri)
	}
	if _, err := s.Load(ctx, uri); err == nil {
		t.Error("expected load of a deleted attachment to fail")
	}
}

func TestClearCache(t *testing.T) {
	ctx := context.Background()
	backend := newFakeBackend()
	s := setupCache(t, backend)

	uri, err := s.Upload(ctx, "keep.txt", "text/plain", bytes.NewReader([]byte("kept")))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	readAll(t, s, uri)

	if err := s.ClearCache(); err != nil {
		t.Fatalf("ClearCache: %v", err)
	}
	readAll(t, s, uri)
	if got := backend.loads[uri]; got != 2 {
		t.Errorf("backend loads = %d, want 2 after cache clear", got)
	}
}

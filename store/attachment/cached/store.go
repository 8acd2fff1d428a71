// Package cached keeps local copies of attachment downloads.
//
// Attachment URIs are content-addressed, so a cached copy can never go
// stale. Entries are evicted only to bound disk usage: by total size
// when the cache grows past its budget, and by idle age when an entry
// has not been read for longer than the configured maximum.
package cached

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/skillswap/messaging/store"
)

// Store wraps an AttachmentFileStore with local file caching.
type Store struct {
	backend  store.AttachmentFileStore
	dir      string
	maxBytes int64
	maxAge   time.Duration
	logger   *slog.Logger

	mu   sync.Mutex
	size int64

	stop     chan struct{}
	stopOnce sync.Once
}

var _ store.AttachmentFileStore = (*Store)(nil)

// New creates a caching wrapper around the given backend.
func New(backend store.AttachmentFileStore, opts ...Option) (*Store, error) {
	o := &options{
		cacheDir: os.TempDir(),
		maxBytes: 1 << 30, // 1 GiB
		maxAge:   7 * 24 * time.Hour,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}

	dir := filepath.Join(o.cacheDir, "messaging-attachments")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}

	s := &Store{
		backend:  backend,
		dir:      dir,
		maxBytes: o.maxBytes,
		maxAge:   o.maxAge,
		logger:   o.logger,
		stop:     make(chan struct{}),
	}
	s.size = s.scanSize()

	if s.maxAge > 0 {
		go s.janitor()
	}
	return s, nil
}

// Close stops the background janitor. Cached files stay on disk.
func (s *Store) Close() {
	s.stopOnce.Do(func() { close(s.stop) })
}

// Upload passes through to the backend. Caching happens on Load.
func (s *Store) Upload(ctx context.Context, filename, contentType string, content io.Reader) (string, error) {
	return s.backend.Upload(ctx, filename, contentType, content)
}

// Load serves the attachment from the local cache when present,
// otherwise fetches it from the backend and admits it.
func (s *Store) Load(ctx context.Context, uri string) (io.ReadCloser, error) {
	path := s.entryPath(uri)

	if f, err := os.Open(path); err == nil {
		// A present entry is always valid; touch it so eviction
		// sees it as recently used.
		now := time.Now()
		_ = os.Chtimes(path, now, now)
		s.logger.Debug("attachment cache hit", "uri", uri)
		return f, nil
	}

	s.logger.Debug("attachment cache miss", "uri", uri)
	src, err := s.backend.Load(ctx, uri)
	if err != nil {
		return nil, err
	}
	return s.admit(src, path), nil
}

// Delete removes the attachment from the backend and drops the local
// copy.
func (s *Store) Delete(ctx context.Context, uri string) error {
	path := s.entryPath(uri)
	if info, err := os.Stat(path); err == nil {
		if os.Remove(path) == nil {
			s.addSize(-info.Size())
		}
	}
	return s.backend.Delete(ctx, uri)
}

// ClearCache removes every cached file.
func (s *Store) ClearCache() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("read cache dir: %w", err)
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			os.Remove(filepath.Join(s.dir, entry.Name()))
		}
	}
	s.size = 0
	return nil
}

// entryPath maps a URI to its cache file. The URI is hashed so backend
// paths and schemes never leak into file names.
func (s *Store) entryPath(uri string) string {
	h := sha256.Sum256([]byte(uri))
	return filepath.Join(s.dir, hex.EncodeToString(h[:]))
}

// admit returns a reader that copies the stream into a temp file and
// promotes it to a cache entry once fully read.
func (s *Store) admit(src io.ReadCloser, path string) io.ReadCloser {
	tmp, err := os.CreateTemp(s.dir, "partial-*")
	if err != nil {
		s.logger.Warn("attachment cache admit failed", "error", err)
		return src
	}
	return &admitReader{src: src, tmp: tmp, path: path, store: s}
}

// admitReader tees the backend stream into a temp file. Only a stream
// read to EOF is promoted; partial reads are discarded so a truncated
// copy can never be served later.
type admitReader struct {
	src      io.ReadCloser
	tmp      *os.File
	path     string
	store    *Store
	written  int64
	complete bool
	closed   bool
}

func (r *admitReader) Read(p []byte) (int, error) {
	n, err := r.src.Read(p)
	if n > 0 {
		if _, werr := r.tmp.Write(p[:n]); werr != nil {
			r.store.logger.Warn("attachment cache write failed", "error", werr)
		} else {
			r.written += int64(n)
		}
	}
	if err == io.EOF {
		r.complete = true
	}
	return n, err
}

func (r *admitReader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true

	srcErr := r.src.Close()
	tmpName := r.tmp.Name()
	if err := r.tmp.Close(); err != nil || !r.complete {
		os.Remove(tmpName)
		return srcErr
	}

	if err := os.Rename(tmpName, r.path); err != nil {
		os.Remove(tmpName)
		r.store.logger.Warn("attachment cache promote failed", "error", err)
		return srcErr
	}
	r.store.addSize(r.written)
	r.store.evictOverBudget()
	return srcErr
}

// addSize adjusts the tracked cache size.
func (s *Store) addSize(delta int64) {
	s.mu.Lock()
	s.size += delta
	if s.size < 0 {
		s.size = 0
	}
	s.mu.Unlock()
}

// scanSize totals the files currently in the cache directory.
func (s *Store) scanSize() int64 {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		s.logger.Warn("attachment cache scan failed", "error", err)
		return 0
	}
	var size int64
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if info, err := entry.Info(); err == nil {
			size += info.Size()
		}
	}
	return size
}

// cacheEntry is a snapshot of one cached file for eviction ordering.
type cacheEntry struct {
	path    string
	size    int64
	lastUse time.Time
}

// listEntries returns the cache contents sorted least recently used
// first.
func (s *Store) listEntries() []cacheEntry {
	dirents, err := os.ReadDir(s.dir)
	if err != nil {
		s.logger.Warn("attachment cache list failed", "error", err)
		return nil
	}
	entries := make([]cacheEntry, 0, len(dirents))
	for _, d := range dirents {
		if d.IsDir() {
			continue
		}
		info, err := d.Info()
		if err != nil {
			continue
		}
		entries = append(entries, cacheEntry{
			path:    filepath.Join(s.dir, d.Name()),
			size:    info.Size(),
			lastUse: info.ModTime(),
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].lastUse.Before(entries[j].lastUse)
	})
	return entries
}

// evictOverBudget removes least recently used entries until the cache
// fits its size budget again.
func (s *Store) evictOverBudget() {
	s.mu.Lock()
	over := s.size > s.maxBytes
	s.mu.Unlock()
	if !over {
		return
	}

	var freed int64
	for _, entry := range s.listEntries() {
		s.mu.Lock()
		done := s.size-freed <= s.maxBytes
		s.mu.Unlock()
		if done {
			break
		}
		if os.Remove(entry.path) == nil {
			freed += entry.size
		}
	}
	if freed > 0 {
		s.addSize(-freed)
		s.logger.Debug("attachment cache evicted", "freed_bytes", freed)
	}
}

// janitor periodically drops entries that have not been read within
// maxAge.
func (s *Store) janitor() {
	interval := s.maxAge / 4
	if interval < time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.dropIdle()
		}
	}
}

// dropIdle removes entries whose last use is older than maxAge.
func (s *Store) dropIdle() {
	cutoff := time.Now().Add(-s.maxAge)
	var freed int64
	var removed int
	for _, entry := range s.listEntries() {
		if !entry.lastUse.Before(cutoff) {
			break
		}
		if os.Remove(entry.path) == nil {
			freed += entry.size
			removed++
		}
	}
	if removed > 0 {
		s.addSize(-freed)
		s.logger.Info("attachment cache dropped idle entries",
			"removed", removed, "freed_bytes", freed)
	}
}

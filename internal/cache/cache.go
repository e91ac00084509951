package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"

	"github.com/revet-dev/revet/internal/graph"
)

// FormatVersion is bumped whenever the serialized shape of a cache entry
// changes. A cache written by any other version is discarded wholesale; no
// per-entry migration is attempted.
const FormatVersion = 1

// DefaultFileName is the cache file name inside the workspace state dir.
const DefaultFileName = "graph-cache.json"

// Fingerprint hashes a file's raw content. Cache validity is decided purely
// by content, never by mtime.
func Fingerprint(content []byte) uint64 {
	return xxhash.Sum64(content)
}

type entry struct {
	Fingerprint uint64           `json:"fingerprint"`
	Parse       *graph.FileParse `json:"parse"`
}

type fileFormat struct {
	Version int              `json:"version"`
	Entries map[string]entry `json:"entries"`
}

// GraphCache persists per-file parse output keyed by content fingerprint,
// so unchanged files skip parsing entirely on later runs. It stores raw
// parse output only: resolved cross-file edges depend on the rest of the
// workspace and are recomputed every run.
//
// Get and Put are safe for concurrent use by parse workers.
type GraphCache struct {
	path string

	mu      sync.RWMutex
	entries map[string]entry
	dirty   bool

	hits   atomic.Int64
	misses atomic.Int64
}

// Open loads the cache at path. A missing, unreadable, corrupt, or
// version-mismatched file degrades to an empty cache rather than failing
// the run; the next Flush overwrites it.
func Open(path string) *GraphCache {
	c := &GraphCache{
		path:    path,
		entries: make(map[string]entry),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return c
	}
	var ff fileFormat
	if err := json.Unmarshal(data, &ff); err != nil {
		return c
	}
	if ff.Version != FormatVersion {
		return c
	}
	if ff.Entries != nil {
		c.entries = ff.Entries
	}
	return c
}

// Get returns the cached parse for a file if its fingerprint still matches.
func (c *GraphCache) Get(file string, fingerprint uint64) (*graph.FileParse, bool) {
	c.mu.RLock()
	e, ok := c.entries[file]
	c.mu.RUnlock()

	if !ok || e.Fingerprint != fingerprint || e.Parse == nil {
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	return e.Parse, true
}

// Put stores a file's parse output under its content fingerprint.
func (c *GraphCache) Put(file string, fingerprint uint64, fp *graph.FileParse) {
	c.mu.Lock()
	c.entries[file] = entry{Fingerprint: fingerprint, Parse: fp}
	c.dirty = true
	c.mu.Unlock()
}

// Forget drops a file's entry, e.g. after it is deleted from the workspace.
func (c *GraphCache) Forget(file string) {
	c.mu.Lock()
	if _, ok := c.entries[file]; ok {
		delete(c.entries, file)
		c.dirty = true
	}
	c.mu.Unlock()
}

// Len returns the number of cached files.
func (c *GraphCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Stats returns the hit and miss counts since Open.
func (c *GraphCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// Flush writes the cache to disk if anything changed since the last flush.
// The write goes through a temp file and rename so a crash mid-write leaves
// the previous cache intact.
func (c *GraphCache) Flush() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.dirty {
		return nil
	}

	data, err := json.Marshal(fileFormat{Version: FormatVersion, Entries: c.entries})
	if err != nil {
		return fmt.Errorf("encoding cache: %w", err)
	}

	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating cache dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".graph-cache-*")
	if err != nil {
		return fmt.Errorf("creating cache temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("writing cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("closing cache temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), c.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replacing cache file: %w", err)
	}

	c.dirty = false
	return nil
}

// Clear empties the cache and removes its file from disk.
func (c *GraphCache) Clear() error {
	c.mu.Lock()
	c.entries = make(map[string]entry)
	c.dirty = false
	c.mu.Unlock()

	if err := os.Remove(c.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing cache file: %w", err)
	}
	return nil
}

// Package index keeps the persistent mapping from file paths to sizes and
// cached content digests.
package index

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/substantialcattle5/dupefiles/internal/compression"
	"github.com/substantialcattle5/dupefiles/internal/constants"
	"github.com/substantialcattle5/dupefiles/internal/fs"
)

// New creates an empty index
func New(opts Options) *FileIndex {
	algorithm := opts.Algorithm
	if algorithm == "" {
		algorithm = constants.DefaultHashAlgorithm
	}
	return &FileIndex{
		entries:     make(map[string]*Entry),
		algorithm:   algorithm,
		compression: opts.Compression,
		log:         opts.Log,
	}
}

// Open creates an index and loads the snapshot at path
func Open(path string, opts Options) *FileIndex {
	idx := New(opts)
	idx.Load(path)
	return idx
}

// Load replaces the index contents with the snapshot at path. A missing,
// corrupt or undecodable snapshot leaves the index empty and is reported
// as a warning. It returns whether a snapshot was loaded.
func (idx *FileIndex) Load(path string) bool {
	idx.mutex.Lock()
	defer idx.mutex.Unlock()

	idx.entries = make(map[string]*Entry)
	idx.dirty = false

	raw, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			idx.log.Warnf("cannot read index %s, starting empty: %v", path, err)
		}
		return false
	}

	data, err := compression.Decode(raw)
	if err != nil {
		idx.log.Warnf("cannot decompress index %s, starting empty: %v", path, err)
		return false
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		idx.log.Warnf("index %s is corrupt, starting empty: %v", path, err)
		return false
	}
	if snap.Version > constants.SnapshotVersion {
		idx.log.Warnf("index %s has unsupported version %d, starting empty", path, snap.Version)
		return false
	}

	reset := snap.Algorithm != "" && snap.Algorithm != idx.algorithm
	for p, entry := range snap.Entries {
		if entry == nil || p == "" {
			continue
		}
		entry.Path = p
		idx.entries[p] = entry
	}

	if reset {
		idx.log.Warnf("index digests were computed with %s, discarding them for %s", snap.Algorithm, idx.algorithm)
		idx.resetDigests()
	}
	return true
}

// Save writes the full snapshot to path. It is a no-op when nothing changed.
func (idx *FileIndex) Save(path string) error {
	idx.mutex.Lock()
	defer idx.mutex.Unlock()

	if !idx.dirty {
		return nil // No changes to save
	}

	data, err := json.MarshalIndent(snapshot{
		Version:   constants.SnapshotVersion,
		Algorithm: idx.algorithm,
		Entries:   idx.entries,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal index: %w", err)
	}

	data, err = compression.CompressData(data, idx.compression)
	if err != nil {
		return fmt.Errorf("failed to compress index: %w", err)
	}

	if err := fs.WriteFileAtomic(path, data); err != nil {
		return fmt.Errorf("failed to write index file: %w", err)
	}

	idx.dirty = false
	return nil
}

// Add indexes path with size. It returns false if path was already present.
// Callers must have confirmed the file exists.
func (idx *FileIndex) Add(path string, size uint64) bool {
	idx.mutex.Lock()
	defer idx.mutex.Unlock()

	if _, exists := idx.entries[path]; exists {
		return false
	}
	idx.entries[path] = &Entry{Path: path, Size: size}
	idx.dirty = true
	return true
}

// Remove drops a single path
func (idx *FileIndex) Remove(path string) bool {
	idx.mutex.Lock()
	defer idx.mutex.Unlock()

	if _, exists := idx.entries[path]; !exists {
		return false
	}
	delete(idx.entries, path)
	idx.dirty = true
	return true
}

// RemoveMatching drops every entry whose path contains pattern. An empty
// pattern removes nothing.
func (idx *FileIndex) RemoveMatching(pattern string) int {
	if pattern == "" {
		return 0
	}

	idx.mutex.Lock()
	defer idx.mutex.Unlock()

	removed := 0
	for p := range idx.entries {
		if strings.Contains(p, pattern) {
			delete(idx.entries, p)
			removed++
		}
	}
	if removed > 0 {
		idx.dirty = true
	}
	return removed
}

// Purge drops every entry whose file no longer exists. Paths that cannot
// be checked (permission denied on a parent) are kept.
func (idx *FileIndex) Purge() int {
	idx.mutex.Lock()
	defer idx.mutex.Unlock()

	removed := 0
	for p := range idx.entries {
		exists, err := fs.FileExists(p)
		if err != nil {
			idx.log.Debugf("cannot check %s: %v", p, err)
			continue
		}
		if !exists {
			delete(idx.entries, p)
			removed++
		}
	}
	if removed > 0 {
		idx.dirty = true
	}
	return removed
}

// SetDigest stores a digest for path. Unknown paths are ignored, since an
// entry may be removed while a scan is hashing it.
func (idx *FileIndex) SetDigest(path, digest string) {
	idx.mutex.Lock()
	defer idx.mutex.Unlock()

	entry, exists := idx.entries[path]
	if !exists {
		return
	}
	entry.Digest = digest
	entry.Unreadable = false
	idx.dirty = true
}

// MarkUnreadable flags path as not hashable and drops any cached digest
func (idx *FileIndex) MarkUnreadable(path string) {
	idx.mutex.Lock()
	defer idx.mutex.Unlock()

	entry, exists := idx.entries[path]
	if !exists {
		return
	}
	entry.Digest = ""
	entry.Unreadable = true
	idx.dirty = true
}

// ResetDigests discards every cached digest
func (idx *FileIndex) ResetDigests() {
	idx.mutex.Lock()
	defer idx.mutex.Unlock()
	idx.resetDigests()
}

// resetDigests requires the write lock
func (idx *FileIndex) resetDigests() {
	for _, entry := range idx.entries {
		entry.Digest = ""
		entry.Unreadable = false
	}
	idx.dirty = true
}

// Get returns a copy of the entry for path
func (idx *FileIndex) Get(path string) (Entry, bool) {
	idx.mutex.RLock()
	defer idx.mutex.RUnlock()

	entry, exists := idx.entries[path]
	if !exists {
		return Entry{}, false
	}
	return *entry, true
}

// Len returns the number of indexed files
func (idx *FileIndex) Len() int {
	idx.mutex.RLock()
	defer idx.mutex.RUnlock()
	return len(idx.entries)
}

// Algorithm returns the hash algorithm the cached digests belong to
func (idx *FileIndex) Algorithm() string {
	return idx.algorithm
}

// Dirty reports whether there are unsaved changes
func (idx *FileIndex) Dirty() bool {
	idx.mutex.RLock()
	defer idx.mutex.RUnlock()
	return idx.dirty
}

// Entries returns copies of all entries sorted by path
func (idx *FileIndex) Entries() []Entry {
	return idx.collect(func(Entry) bool { return true })
}

// InRange returns copies of the entries with min <= size <= max, sorted by
// path. A max of 0 means no upper bound.
func (idx *FileIndex) InRange(min, max uint64) []Entry {
	return idx.collect(func(e Entry) bool {
		return e.Size >= min && (max == 0 || e.Size <= max)
	})
}

// Digested returns copies of every readable entry that carries a digest
func (idx *FileIndex) Digested() []Entry {
	return idx.collect(Entry.HasDigest)
}

// Stats summarizes the index contents
func (idx *FileIndex) Stats() Stats {
	idx.mutex.RLock()
	defer idx.mutex.RUnlock()

	stats := Stats{Files: len(idx.entries)}
	for _, entry := range idx.entries {
		stats.TotalBytes += entry.Size
		if entry.HasDigest() {
			stats.Digested++
		}
		if entry.Unreadable {
			stats.Unreadable++
		}
	}
	return stats
}

func (idx *FileIndex) collect(keep func(Entry) bool) []Entry {
	idx.mutex.RLock()
	out := make([]Entry, 0, len(idx.entries))
	for _, entry := range idx.entries {
		if keep(*entry) {
			out = append(out, *entry)
		}
	}
	idx.mutex.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

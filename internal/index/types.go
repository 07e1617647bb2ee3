package index

import (
	"sync"

	"github.com/substantialcattle5/dupefiles/internal/output"
)

// Entry is the indexed state of one file
type Entry struct {
	Path       string `json:"-"`
	Size       uint64 `json:"size"`
	Digest     string `json:"digest,omitempty"`     // Empty until a scan needs it
	Unreadable bool   `json:"unreadable,omitempty"` // Last hash attempt failed
}

// HasDigest reports whether the entry carries a usable digest
func (e Entry) HasDigest() bool {
	return e.Digest != "" && !e.Unreadable
}

// Stats summarizes the index
type Stats struct {
	Files      int    `json:"files"`
	TotalBytes uint64 `json:"total_bytes"`
	Digested   int    `json:"digested"`
	Unreadable int    `json:"unreadable"`
}

// Options configures a FileIndex
type Options struct {
	// Algorithm names the hash that produced the cached digests
	Algorithm string
	// Compression is applied to saved snapshots
	Compression string
	Log         *output.Logger
}

// FileIndex maps canonical paths to their entries. It is safe for
// concurrent use.
type FileIndex struct {
	entries     map[string]*Entry
	algorithm   string
	compression string
	log         *output.Logger
	mutex       sync.RWMutex
	dirty       bool // Track if index needs to be saved
}

type snapshot struct {
	Version   int               `json:"version"`
	Algorithm string            `json:"algorithm"`
	Entries   map[string]*Entry `json:"entries"`
}

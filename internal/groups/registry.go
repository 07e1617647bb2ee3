// Package groups holds the verified duplicate groups produced by a scan.
package groups

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/substantialcattle5/dupefiles/internal/compression"
	"github.com/substantialcattle5/dupefiles/internal/constants"
	"github.com/substantialcattle5/dupefiles/internal/fs"
	"github.com/substantialcattle5/dupefiles/internal/output"
)

// Group is a set of paths verified to hold identical bytes
type Group struct {
	Digest string `json:"digest"`
	// Key tells apart groups whose files share a digest but not their
	// content. Empty for the first group of a digest.
	Key     string   `json:"key,omitempty"`
	Size    uint64   `json:"size"`
	Members []string `json:"members"`
}

// ID is the key the registry files the group under
func (g *Group) ID() string {
	if g.Key != "" {
		return g.Key
	}
	return g.Digest
}

// classKey names the class-th byte-identical group of a digest
func classKey(digest string, class int) string {
	if class <= 1 {
		return ""
	}
	return fmt.Sprintf("%s#%d", digest, class)
}

// Redundant is the number of members beyond the one kept copy
func (g *Group) Redundant() int {
	if len(g.Members) < 2 {
		return 0
	}
	return len(g.Members) - 1
}

// Reclaimable is the byte volume freed by keeping a single copy
func (g *Group) Reclaimable() uint64 {
	return g.Size * uint64(g.Redundant())
}

// Has reports whether path is a member
func (g *Group) Has(path string) bool {
	for _, m := range g.Members {
		if m == path {
			return true
		}
	}
	return false
}

// RemoveMember drops path from the member list
func (g *Group) RemoveMember(path string) bool {
	for i, m := range g.Members {
		if m == path {
			g.Members = append(g.Members[:i], g.Members[i+1:]...)
			return true
		}
	}
	return false
}

// Totals summarizes a registry. Reclaimable bytes count every member except
// one kept copy per group.
type Totals struct {
	Groups           int    `json:"groups"`
	Files            int    `json:"files"`
	Redundant        int    `json:"redundant"`
	ReclaimableBytes uint64 `json:"reclaimable_bytes"`
}

// Registry keeps groups in insertion order with a digest lookup
type Registry struct {
	groups    []*Group
	positions map[string]int
	scanID    string
	createdAt time.Time
	mutex     sync.RWMutex
	log       *output.Logger
	// Compression is applied to saved snapshots
	Compression string
}

type snapshot struct {
	Version   int       `json:"version"`
	ScanID    string    `json:"scan_id"`
	CreatedAt time.Time `json:"created_at"`
	Groups    []*Group  `json:"groups"`
}

// NewRegistry creates an empty registry
func NewRegistry(log *output.Logger) *Registry {
	return &Registry{
		positions: make(map[string]int),
		scanID:    uuid.New().String(),
		createdAt: time.Now().UTC(),
		log:       log,
	}
}

// AddPossibleDuplicate files path under digest. It returns true when a
// group was created or path was appended, false when path was already a
// member.
func (r *Registry) AddPossibleDuplicate(path, digest string, size uint64) bool {
	return r.AddToClass(path, digest, 1, size)
}

// AddToClass files path in the class-th group of digest. Classes beyond
// the first hold files whose digest collides with, but whose bytes differ
// from, the earlier classes; their Group.Digest stays the real digest.
func (r *Registry) AddToClass(path, digest string, class int, size uint64) bool {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	key := classKey(digest, class)
	id := digest
	if key != "" {
		id = key
	}

	pos, exists := r.positions[id]
	if !exists {
		r.positions[id] = len(r.groups)
		r.groups = append(r.groups, &Group{Digest: digest, Key: key, Size: size, Members: []string{path}})
		return true
	}

	group := r.groups[pos]
	if group.Has(path) {
		return false
	}
	group.Members = append(group.Members, path)
	return true
}

// Clear empties the registry and starts a new scan identity
func (r *Registry) Clear() {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.groups = nil
	r.positions = make(map[string]int)
	r.scanID = uuid.New().String()
	r.createdAt = time.Now().UTC()
}

// Groups returns the live groups in insertion order. Callers that mutate
// member lists must not use the registry concurrently.
func (r *Registry) Groups() []*Group {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return append([]*Group(nil), r.groups...)
}

// Group returns the group filed under id, a digest or a Group.ID
func (r *Registry) Group(id string) (*Group, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	pos, exists := r.positions[id]
	if !exists {
		return nil, false
	}
	return r.groups[pos], true
}

// Len returns the number of groups
func (r *Registry) Len() int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return len(r.groups)
}

// ScanID identifies the scan that produced the registry
func (r *Registry) ScanID() string {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return r.scanID
}

// CreatedAt is when the producing scan started
func (r *Registry) CreatedAt() time.Time {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return r.createdAt
}

// Totals counts groups with at least two members
func (r *Registry) Totals() Totals {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	var t Totals
	for _, g := range r.groups {
		if len(g.Members) < 2 {
			continue
		}
		t.Groups++
		t.Files += len(g.Members)
		t.Redundant += g.Redundant()
		t.ReclaimableBytes += g.Reclaimable()
	}
	return t
}

// PurgeMissing drops members whose file no longer exists and groups left
// with fewer than two members. It returns the number of members removed.
func (r *Registry) PurgeMissing() int {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	removed := 0
	kept := r.groups[:0]
	for _, g := range r.groups {
		members := g.Members[:0]
		for _, m := range g.Members {
			if exists, err := fs.FileExists(m); err == nil && !exists {
				removed++
				continue
			}
			members = append(members, m)
		}
		g.Members = members
		if len(g.Members) >= 2 {
			kept = append(kept, g)
		}
	}
	r.groups = kept
	r.reindex()
	return removed
}

func (r *Registry) reindex() {
	r.positions = make(map[string]int, len(r.groups))
	for i, g := range r.groups {
		r.positions[g.ID()] = i
	}
}

// Load replaces the registry with the snapshot at path. Failures leave it
// empty and are reported as warnings.
func (r *Registry) Load(path string) bool {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.groups = nil
	r.positions = make(map[string]int)

	raw, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			r.log.Warnf("cannot read duplicate groups %s, starting empty: %v", path, err)
		}
		return false
	}

	data, err := compression.Decode(raw)
	if err != nil {
		r.log.Warnf("cannot decompress duplicate groups %s, starting empty: %v", path, err)
		return false
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		r.log.Warnf("duplicate groups %s are corrupt, starting empty: %v", path, err)
		return false
	}

	for _, g := range snap.Groups {
		if g == nil || g.Digest == "" {
			continue
		}
		if _, dup := r.positions[g.ID()]; dup {
			continue
		}
		r.positions[g.ID()] = len(r.groups)
		r.groups = append(r.groups, g)
	}
	if snap.ScanID != "" {
		r.scanID = snap.ScanID
	}
	if !snap.CreatedAt.IsZero() {
		r.createdAt = snap.CreatedAt
	}
	return true
}

// Save writes the full snapshot to path
func (r *Registry) Save(path string) error {
	r.mutex.RLock()
	snap := snapshot{
		Version:   constants.SnapshotVersion,
		ScanID:    r.scanID,
		CreatedAt: r.createdAt,
		Groups:    r.groups,
	}
	if snap.Groups == nil {
		snap.Groups = []*Group{}
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	r.mutex.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to marshal duplicate groups: %w", err)
	}

	data, err = compression.CompressData(data, r.Compression)
	if err != nil {
		return fmt.Errorf("failed to compress duplicate groups: %w", err)
	}

	if err := fs.WriteFileAtomic(path, data); err != nil {
		return fmt.Errorf("failed to write duplicate groups: %w", err)
	}
	return nil
}

// SortedMembers returns a sorted copy of a group's members
func SortedMembers(g *Group) []string {
	out := append([]string(nil), g.Members...)
	sort.Strings(out)
	return out
}

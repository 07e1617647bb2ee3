// Package scan runs the duplicate detection funnel over the file index:
// size partition, lazy digests, digest partition and byte verification.
package scan

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/substantialcattle5/dupefiles/internal/constants"
	"github.com/substantialcattle5/dupefiles/internal/groups"
	"github.com/substantialcattle5/dupefiles/internal/hashing"
	"github.com/substantialcattle5/dupefiles/internal/index"
	"github.com/substantialcattle5/dupefiles/internal/output"
	"github.com/substantialcattle5/dupefiles/internal/progress"
)

// Comparator decides byte equality of two equal-size files
type Comparator interface {
	Equal(ctx context.Context, a, b string) (bool, error)
}

// Options bounds the sizes taken into account. MaxSize 0 means unbounded.
type Options struct {
	MinSize uint64
	MaxSize uint64
}

// Result reports what a scan did. ReclaimableBytes counts every group
// member except one kept copy.
type Result struct {
	Candidates       int    `json:"candidates"`
	SizeGroups       int    `json:"size_groups"`
	Hashed           int    `json:"hashed"`
	Vanished         int    `json:"vanished"`
	Unreadable       int    `json:"unreadable"`
	Groups           int    `json:"groups"`
	Files            int    `json:"files"`
	Redundant        int    `json:"redundant"`
	ReclaimableBytes uint64 `json:"reclaimable_bytes"`
	Cancelled        bool   `json:"cancelled"`
}

// Pipeline owns one scan over an index and registry
type Pipeline struct {
	Index      *index.FileIndex
	Registry   *groups.Registry
	Hasher     hashing.Hasher
	Comparator Comparator
	Log        *output.Logger
	Progress   progress.Reporter
	Workers    int

	// Snapshots are written here after the scan. Empty paths skip saving.
	IndexPath  string
	GroupsPath string

	vanished   atomic.Int64
	unreadable atomic.Int64
}

// Run scans the index. Cancellation is not an error: the partial result is
// returned with Cancelled set and computed digests are still persisted.
func (p *Pipeline) Run(ctx context.Context, opts Options) (Result, error) {
	if p.Index == nil || p.Registry == nil || p.Hasher == nil || p.Comparator == nil {
		return Result{}, fmt.Errorf("scan pipeline is missing a collaborator")
	}
	if p.Progress == nil {
		p.Progress = progress.Nop()
	}
	p.vanished.Store(0)
	p.unreadable.Store(0)

	p.Registry.Clear()

	var res Result
	candidates := p.Index.InRange(opts.MinSize, opts.MaxSize)
	res.Candidates = len(candidates)
	if len(candidates) == 0 {
		p.Log.Infof("nothing to scan")
		return res, p.persist()
	}

	sizeGroups := partitionBySize(candidates)
	res.SizeGroups = len(sizeGroups)
	p.Log.Debugf("%d candidates in %d size groups", len(candidates), len(sizeGroups))

	hashed, err := p.digest(ctx, sizeGroups)
	res.Hashed = hashed
	if err != nil {
		res.Cancelled = true
	}

	if !res.Cancelled {
		if err := p.verify(ctx, partitionByDigest(p.Index.Digested())); err != nil {
			res.Cancelled = true
		}
	}

	res.Vanished = int(p.vanished.Load())
	res.Unreadable = int(p.unreadable.Load())
	totals := p.Registry.Totals()
	res.Groups = totals.Groups
	res.Files = totals.Files
	res.Redundant = totals.Redundant
	res.ReclaimableBytes = totals.ReclaimableBytes

	if res.Cancelled {
		p.Log.Warnf("scan cancelled, %d digests computed so far are kept", hashed)
	}
	return res, p.persist()
}

func (p *Pipeline) persist() error {
	if p.IndexPath != "" {
		if err := p.Index.Save(p.IndexPath); err != nil {
			return err
		}
	}
	if p.GroupsPath != "" {
		if err := p.Registry.Save(p.GroupsPath); err != nil {
			return err
		}
	}
	return nil
}

// digest hashes every entry of the size groups that lacks a digest. Size
// groups are dispatched smallest first; workers check for cancellation
// before each file.
func (p *Pipeline) digest(ctx context.Context, sizeGroups [][]index.Entry) (int, error) {
	var pending int64
	for _, group := range sizeGroups {
		for _, e := range group {
			if !e.HasDigest() {
				pending++
			}
		}
	}
	if pending == 0 {
		return 0, nil
	}

	workers := p.Workers
	if workers <= 0 {
		workers = constants.DefaultHashWorkers
	}

	p.Progress.Start("Hashing", pending)
	defer p.Progress.Finish()

	var hashed atomic.Int64
	var g errgroup.Group
	g.SetLimit(workers)

	for _, group := range sizeGroups {
		if ctx.Err() != nil {
			break
		}
		for _, e := range group {
			if e.HasDigest() {
				continue
			}
			path := e.Path
			g.Go(func() error {
				if ctx.Err() != nil {
					return nil
				}
				if p.hashOne(ctx, path) {
					hashed.Add(1)
				}
				p.Progress.Add(1)
				return nil
			})
		}
	}
	_ = g.Wait()

	return int(hashed.Load()), ctx.Err()
}

func (p *Pipeline) hashOne(ctx context.Context, path string) bool {
	res := p.Hasher.Sum(ctx, path)
	switch {
	case res.OK():
		p.Index.SetDigest(path, res.Digest)
		return true
	case res.Err == nil:
		p.Log.Warnf("hasher returned no digest for %s", path)
	case errors.Is(res.Err, context.Canceled), errors.Is(res.Err, context.DeadlineExceeded):
		// Left without a digest for the next scan
	case errors.Is(res.Err, os.ErrNotExist):
		p.Log.Warnf("%s vanished, dropping it from the index", path)
		p.Index.Remove(path)
		p.vanished.Add(1)
	default:
		p.Log.Warnf("cannot hash %s: %v", path, res.Err)
		p.Index.MarkUnreadable(path)
		p.unreadable.Add(1)
	}
	return false
}

// class is a set of members proven byte-identical to its first member
type class struct {
	size    uint64
	members []string
}

func (p *Pipeline) verify(ctx context.Context, digestGroups []digestGroup) error {
	if len(digestGroups) == 0 {
		return nil
	}

	p.Progress.Start("Verifying", int64(len(digestGroups)))
	defer p.Progress.Finish()

	for _, dg := range digestGroups {
		if err := ctx.Err(); err != nil {
			return err
		}

		classes, err := p.classify(ctx, dg.entries)
		if err != nil {
			return err
		}

		n := 0
		for _, c := range classes {
			if len(c.members) < 2 {
				continue
			}
			n++
			if n > 1 {
				p.Log.Warnf("digest %s is shared by files with different content", dg.digest)
			}
			for _, m := range c.members {
				p.Registry.AddToClass(m, dg.digest, n, c.size)
			}
		}
		p.Progress.Add(1)
	}
	return nil
}

// classify splits entries sharing a digest into byte-identical classes.
// Each entry is compared against the first member of every class of the
// same size; a match joins that class.
func (p *Pipeline) classify(ctx context.Context, entries []index.Entry) ([]*class, error) {
	var classes []*class

	for _, e := range entries {
		placed, excluded := false, false

		for ci := 0; ci < len(classes); {
			c := classes[ci]
			if c.size != e.Size {
				ci++
				continue
			}

			rep := c.members[0]
			equal, err := p.Comparator.Equal(ctx, rep, e.Path)
			if err != nil {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				badRep, badCandidate := blame(rep, e.Path)
				if badCandidate {
					p.exclude(e.Path, err)
					excluded = true
				}
				if badRep {
					// Promote the next member
					p.exclude(rep, err)
					c.members = c.members[1:]
					if len(c.members) == 0 {
						classes = append(classes[:ci], classes[ci+1:]...)
					}
				}
				if excluded {
					break
				}
				continue
			}
			if equal {
				c.members = append(c.members, e.Path)
				placed = true
				break
			}
			ci++
		}

		if !placed && !excluded {
			classes = append(classes, &class{size: e.Size, members: []string{e.Path}})
		}
	}
	return classes, nil
}

// exclude removes a vanished file from the index or marks an unreadable one
func (p *Pipeline) exclude(path string, err error) {
	if _, statErr := os.Stat(path); errors.Is(statErr, os.ErrNotExist) {
		p.Log.Warnf("%s vanished during verification, dropping it from the index", path)
		p.Index.Remove(path)
		p.vanished.Add(1)
		return
	}
	p.Log.Warnf("cannot verify %s: %v", path, err)
	p.Index.MarkUnreadable(path)
	p.unreadable.Add(1)
}

// blame reports which sides of a failed comparison are no longer readable
// regular files. The candidate is blamed when both sides look intact.
func blame(rep, candidate string) (badRep, badCandidate bool) {
	badRep = !readable(rep)
	badCandidate = !readable(candidate)
	if !badRep && !badCandidate {
		badCandidate = true
	}
	return badRep, badCandidate
}

func readable(path string) bool {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return false
	}
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	f.Close()
	return true
}

func partitionBySize(entries []index.Entry) [][]index.Entry {
	bySize := make(map[uint64][]index.Entry)
	for _, e := range entries {
		bySize[e.Size] = append(bySize[e.Size], e)
	}

	sizes := make([]uint64, 0, len(bySize))
	for size, group := range bySize {
		if len(group) >= 2 {
			sizes = append(sizes, size)
		}
	}
	sort.Slice(sizes, func(i, j int) bool { return sizes[i] < sizes[j] })

	out := make([][]index.Entry, 0, len(sizes))
	for _, size := range sizes {
		out = append(out, bySize[size])
	}
	return out
}

type digestGroup struct {
	digest  string
	entries []index.Entry
}

func partitionByDigest(entries []index.Entry) []digestGroup {
	byDigest := make(map[string][]index.Entry)
	for _, e := range entries {
		byDigest[e.Digest] = append(byDigest[e.Digest], e)
	}

	out := make([]digestGroup, 0, len(byDigest))
	for digest, group := range byDigest {
		if len(group) >= 2 {
			out = append(out, digestGroup{digest: digest, entries: group})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].entries[0].Size != out[j].entries[0].Size {
			return out[i].entries[0].Size < out[j].entries[0].Size
		}
		return out[i].digest < out[j].digest
	})
	return out
}

// Package cleanup acts on verified duplicate groups: deleting, moving or
// replacing redundant copies under a configurable policy.
package cleanup

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/substantialcattle5/dupefiles/internal/constants"
	"github.com/substantialcattle5/dupefiles/internal/groups"
	"github.com/substantialcattle5/dupefiles/internal/output"
)

var (
	// ErrNoDestination is returned when the move policy has nowhere to move to
	ErrNoDestination = errors.New("move policy requires a destination directory")
	// ErrUnknownPolicy is returned for an unrecognized policy name
	ErrUnknownPolicy = errors.New("unknown cleanup policy")
)

// Report summarizes a cleanup pass
type Report struct {
	Groups    int    `json:"groups"`
	Acted     int    `json:"acted"`
	Skipped   int    `json:"skipped"`
	Failed    int    `json:"failed"`
	Bytes     uint64 `json:"bytes"`
	Cancelled bool   `json:"cancelled"`
}

// Engine applies a policy to duplicate groups one group at a time
type Engine struct {
	Policy Policy
	// Filter selects members by substring for every policy except
	// keep-shortest. Empty matches all members.
	Filter      string
	Destination string
	Confirmer   Confirmer
	Ops         FileOps
	Log         *output.Logger
	// KeepLast stops delete and placeholder from acting on the last
	// remaining member of a group
	KeepLast bool
	// DryRun reports what would happen without touching anything
	DryRun bool
	// OnRemoved is called with every path that no longer holds its content
	OnRemoved func(path string)
}

// Validate reports configuration errors before any file is touched
func (e *Engine) Validate() error {
	if !e.Policy.valid() {
		return fmt.Errorf("%w: %q", ErrUnknownPolicy, e.Policy)
	}
	if e.Policy != PolicyMove {
		return nil
	}
	if strings.TrimSpace(e.Destination) == "" {
		return ErrNoDestination
	}
	info, err := os.Stat(e.Destination)
	if err == nil && !info.IsDir() {
		return fmt.Errorf("destination %s is not a directory", e.Destination)
	}
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("cannot use destination %s: %w", e.Destination, err)
	}
	return nil
}

// Run processes groups in order. Individual failures are reported and
// skipped; only a failing confirmation aborts the pass. Acted-upon members
// are removed from their group.
func (e *Engine) Run(ctx context.Context, dupes []*groups.Group) (Report, error) {
	var report Report
	if err := e.Validate(); err != nil {
		return report, err
	}

	ops := e.Ops
	if ops == nil {
		ops = OSOps{}
	}
	confirmer := e.Confirmer
	if confirmer == nil {
		confirmer = AutoConfirmer{}
	}

	destReady := false
	yesToAll := false

	for _, g := range dupes {
		if ctx.Err() != nil {
			report.Cancelled = true
			break
		}
		if len(g.Members) < 2 {
			continue
		}
		report.Groups++

		remaining := len(g.Members)
		for _, path := range e.targets(g) {
			if e.KeepLast && e.Policy.destroysContent() && remaining <= 1 {
				e.Log.Warnf("keeping %s, the last copy of its group", path)
				report.Skipped++
				continue
			}

			action := Action{Policy: e.Policy, Path: path, Size: g.Size}
			switch e.Policy {
			case PolicyMove:
				action.Target = freeName(ops, e.Destination, filepath.Base(path))
			case PolicyPlaceholder:
				action.Target = path + constants.PlaceholderSuffix
			}

			if !yesToAll {
				decision, err := confirmer.Confirm(action)
				if err != nil {
					return report, fmt.Errorf("confirmation failed: %w", err)
				}
				switch decision {
				case DecisionNo:
					report.Skipped++
					continue
				case DecisionYesToAll:
					yesToAll = true
				}
			}

			if e.DryRun {
				e.Log.Infof("would %s", action)
				report.Acted++
				report.Bytes += g.Size
				remaining--
				continue
			}

			if e.Policy == PolicyMove && !destReady {
				if err := ops.MkdirAll(e.Destination); err != nil {
					return report, fmt.Errorf("failed to create destination %s: %w", e.Destination, err)
				}
				destReady = true
			}

			if err := apply(ops, action); err != nil {
				e.Log.Errorf("failed to %s: %v", action, err)
				report.Failed++
				continue
			}

			e.Log.Successf("%s", capitalize(action.String()))
			g.RemoveMember(path)
			remaining--
			report.Acted++
			report.Bytes += g.Size
			if e.OnRemoved != nil {
				e.OnRemoved(path)
			}
		}
	}

	return report, nil
}

// targets returns the members the policy acts on, in a stable order
func (e *Engine) targets(g *groups.Group) []string {
	members := append([]string(nil), g.Members...)

	if e.Policy == PolicyKeepShortest {
		sort.Slice(members, func(i, j int) bool {
			if len(members[i]) != len(members[j]) {
				return len(members[i]) < len(members[j])
			}
			return members[i] < members[j]
		})
		return members[1:]
	}

	var out []string
	for _, m := range members {
		if e.Filter == "" || strings.Contains(m, e.Filter) {
			out = append(out, m)
		}
	}
	return out
}

func apply(ops FileOps, action Action) error {
	switch action.Policy {
	case PolicyMove:
		return moveFile(ops, action.Path, action.Target)
	case PolicyPlaceholder:
		if err := ops.Remove(action.Path); err != nil {
			return err
		}
		return ops.CreateEmpty(action.Target)
	default:
		return ops.Remove(action.Path)
	}
}

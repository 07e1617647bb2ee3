// Package walk enumerates regular files below a directory.
package walk

import (
	"context"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"strings"
)

// Options controls a traversal
type Options struct {
	Root        string
	Recursive   bool
	SkipDotDirs bool
	// Pattern is a filepath.Match glob applied to the base name.
	// Empty, "*" and "*.*" match every file.
	Pattern string
}

// Walk lazily yields the absolute paths of regular files under opts.Root.
// Each call starts a fresh traversal. Unreadable directories are skipped
// and cancellation is checked on entering every directory.
func Walk(ctx context.Context, opts Options) iter.Seq[string] {
	return func(yield func(string) bool) {
		root, err := filepath.Abs(opts.Root)
		if err != nil {
			return
		}
		pattern := normalizePattern(opts.Pattern)

		_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				if d != nil && d.IsDir() && path != root {
					return filepath.SkipDir
				}
				// Unreadable root or vanished entry
				return nil
			}

			if d.IsDir() {
				if ctx.Err() != nil {
					return filepath.SkipAll
				}
				if path == root {
					return nil
				}
				if !opts.Recursive {
					return filepath.SkipDir
				}
				if opts.SkipDotDirs && strings.HasPrefix(d.Name(), ".") {
					return filepath.SkipDir
				}
				return nil
			}

			if !d.Type().IsRegular() {
				return nil
			}
			if !matches(pattern, d.Name()) {
				return nil
			}
			if !yield(path) {
				return filepath.SkipAll
			}
			return nil
		})
	}
}

// Collect drains a traversal into a slice
func Collect(ctx context.Context, opts Options) []string {
	var paths []string
	for path := range Walk(ctx, opts) {
		paths = append(paths, path)
	}
	return paths
}

// ValidPattern reports whether pattern is a well-formed glob
func ValidPattern(pattern string) bool {
	_, err := filepath.Match(normalizePattern(pattern), "")
	return err == nil
}

// IsDir reports whether path names an existing directory
func IsDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func normalizePattern(pattern string) string {
	switch pattern {
	case "", "*", "*.*":
		return ""
	default:
		return pattern
	}
}

func matches(pattern, name string) bool {
	if pattern == "" {
		return true
	}
	ok, err := filepath.Match(pattern, name)
	return err == nil && ok
}

/*
Copyright © 2025 SubstantialCattle5, nilaysharan.com
*/
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/substantialcattle5/dupefiles/internal/fs"
	"github.com/substantialcattle5/dupefiles/internal/index"
	"github.com/substantialcattle5/dupefiles/internal/output"
	"github.com/substantialcattle5/dupefiles/internal/progress"
	"github.com/substantialcattle5/dupefiles/internal/walk"
	"github.com/substantialcattle5/dupefiles/util"
)

// addResult counts what an add pass did
type addResult struct {
	Added   int
	Known   int
	Skipped int
	Bytes   uint64
}

// addCmd represents the add command
var addCmd = &cobra.Command{
	Use:   "add <path>...",
	Short: "Add files to the index",
	Long: `Add files to the index. Directories are traversed, recursively by default.

Only new paths are indexed; already indexed files are left untouched. Hashes
are not computed here, a scan hashes only the files that need it.

Example:
  dupefiles add ~/Pictures
  dupefiles add --pattern '*.jpg' --recursive=false ~/Downloads
  dupefiles add --skip-dot-dirs=false ~/projects`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		recursive, _ := cmd.Flags().GetBool("recursive")
		skipDotDirs, _ := cmd.Flags().GetBool("skip-dot-dirs")
		pattern, _ := cmd.Flags().GetString("pattern")

		if !walk.ValidPattern(pattern) {
			return fmt.Errorf("invalid pattern: %s", pattern)
		}

		w, err := openWorkspaceFromCmd(cmd)
		if err != nil {
			return err
		}
		defer w.close()

		pm := progress.NewManager(progress.Options{Quiet: w.quiet, Verbose: w.verbose})
		ctx := pm.SetupCancellation(cmd.Context())
		defer pm.Cleanup()

		pm.Start("Indexing", -1)
		res := addPaths(ctx, w.idx, w.log, args, walk.Options{
			Recursive:   recursive,
			SkipDotDirs: skipDotDirs,
			Pattern:     pattern,
		}, pm)
		pm.Finish()

		if err := w.saveIndex(); err != nil {
			return fmt.Errorf("failed to save index: %w", err)
		}

		if pm.IsCancelled() {
			w.log.Warnf("indexing interrupted, files found so far were kept")
		}
		w.log.Successf("Indexed %d new files (%s), %d already known, %d skipped",
			res.Added, util.HumanReadableSizeU(res.Bytes), res.Known, res.Skipped)
		return nil
	},
}

// addPaths indexes the given files and the files found under the given
// directories
func addPaths(ctx context.Context, idx *index.FileIndex, log *output.Logger, paths []string, opts walk.Options, reporter progress.Reporter) addResult {
	var res addResult

	add := func(path string) {
		info, err := fs.VerifyFileAndReturnFileInfo(path)
		if err != nil {
			log.Debugf("skipping %s: %v", path, err)
			res.Skipped++
			return
		}
		canonical, err := fs.CanonicalPath(path)
		if err != nil {
			log.Warnf("skipping %s: %v", path, err)
			res.Skipped++
			return
		}
		size := uint64(info.Size())
		if idx.Add(canonical, size) {
			res.Added++
			res.Bytes += size
			log.Debugf("indexed %s", canonical)
		} else {
			res.Known++
		}
		reporter.Add(1)
	}

	for _, p := range paths {
		if ctx.Err() != nil {
			break
		}

		info, err := os.Stat(p)
		if err != nil {
			log.Warnf("cannot access %s: %v", p, err)
			res.Skipped++
			continue
		}
		if !info.IsDir() {
			add(p)
			continue
		}

		opts.Root = p
		for path := range walk.Walk(ctx, opts) {
			add(path)
		}
	}
	return res
}

func init() {
	rootCmd.AddCommand(addCmd)

	addCmd.Flags().BoolP("recursive", "r", true, "Descend into subdirectories")
	addCmd.Flags().Bool("skip-dot-dirs", true, "Skip directories whose name starts with a dot")
	addCmd.Flags().StringP("pattern", "p", "*", "Only add files whose name matches this glob")
}

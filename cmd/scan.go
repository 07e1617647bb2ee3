/*
Copyright © 2025 SubstantialCattle5, nilaysharan.com
*/
package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/substantialcattle5/dupefiles/internal/bandwidth"
	"github.com/substantialcattle5/dupefiles/internal/compare"
	"github.com/substantialcattle5/dupefiles/internal/hashing"
	"github.com/substantialcattle5/dupefiles/internal/progress"
	"github.com/substantialcattle5/dupefiles/internal/scan"
	"github.com/substantialcattle5/dupefiles/util"
)

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Find duplicate files among the indexed files",
	Long: `Find duplicate files among the indexed files.

Files are grouped by size; only files sharing a size are hashed, and files
sharing a hash are compared byte for byte before they are reported. Hashes
are cached in the index, so a later scan only hashes new files.

Press Ctrl+C to stop a scan. Hashes computed so far are kept and the next
scan continues where this one stopped.

Example:
  dupefiles scan
  dupefiles scan --min-size 1M --max-size 4G
  dupefiles scan --workers 8`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		w, err := openWorkspaceFromCmd(cmd)
		if err != nil {
			return err
		}
		defer w.close()

		opts, workers, err := scanOptions(cmd, w)
		if err != nil {
			return err
		}

		pm := progress.NewManager(progress.Options{Quiet: w.quiet, Verbose: w.verbose})
		ctx := pm.SetupCancellation(cmd.Context())
		defer pm.Cleanup()

		res, err := runScan(ctx, w, opts, workers, pm)
		if err != nil {
			return err
		}
		reportScan(w, res)
		return nil
	},
}

func scanOptions(cmd *cobra.Command, w *workspace) (scan.Options, int, error) {
	var opts scan.Options

	minSize := w.cfg.MinSize
	if cmd.Flags().Changed("min-size") {
		minSize, _ = cmd.Flags().GetString("min-size")
	}
	if minSize != "" {
		n, err := util.ParseSize(minSize)
		if err != nil {
			return opts, 0, fmt.Errorf("invalid --min-size: %w", err)
		}
		opts.MinSize = uint64(n)
	}

	maxSize, _ := cmd.Flags().GetString("max-size")
	if maxSize != "" {
		n, err := util.ParseSize(maxSize)
		if err != nil {
			return opts, 0, fmt.Errorf("invalid --max-size: %w", err)
		}
		opts.MaxSize = uint64(n)
	}
	if opts.MaxSize != 0 && opts.MaxSize < opts.MinSize {
		return opts, 0, fmt.Errorf("--max-size %s is below --min-size %s", maxSize, minSize)
	}

	workers := w.cfg.HashWorkers
	if cmd.Flags().Changed("workers") {
		workers, _ = cmd.Flags().GetInt("workers")
	}
	if workers < 1 {
		return opts, 0, fmt.Errorf("--workers must be at least 1")
	}
	return opts, workers, nil
}

// runScan wires the configured hasher, comparator and limiter into a
// pipeline and runs it
func runScan(ctx context.Context, w *workspace, opts scan.Options, workers int, reporter progress.Reporter) (scan.Result, error) {
	limiter, err := bandwidth.NewLimiter(w.cfg.IOLimit)
	if err != nil {
		return scan.Result{}, err
	}
	hasher, err := hashing.NewFileHasher(w.cfg.HashAlgorithm, limiter)
	if err != nil {
		return scan.Result{}, err
	}

	p := &scan.Pipeline{
		Index:      w.idx,
		Registry:   w.registry,
		Hasher:     hasher,
		Comparator: compare.New(limiter),
		Log:        w.log,
		Progress:   reporter,
		Workers:    workers,
	}
	if !w.cfg.PersistentMode {
		p.IndexPath = w.indexPath()
		p.GroupsPath = w.groupsPath()
	}

	if limiter != nil {
		w.log.Debugf("reads limited to %s/s", limiter.Limit())
	}
	w.log.Debugf("scanning with %s and %d workers", w.cfg.HashAlgorithm, workers)

	res, err := p.Run(ctx, opts)
	if err != nil {
		return res, fmt.Errorf("scan failed: %w", err)
	}
	return res, nil
}

func reportScan(w *workspace, res scan.Result) {
	w.log.Infof("Scanned %d files in %d size groups, hashed %d", res.Candidates, res.SizeGroups, res.Hashed)
	if res.Vanished > 0 || res.Unreadable > 0 {
		w.log.Warnf("%d files vanished and %d could not be read", res.Vanished, res.Unreadable)
	}
	if res.Cancelled {
		w.log.Warnf("Scan interrupted. Run 'dupefiles scan' again to continue")
	}
	if res.Groups == 0 {
		w.log.Successf("No duplicates found")
		return
	}
	w.log.Successf("Found %d duplicate groups: %d files, %d redundant copies, %s reclaimable",
		res.Groups, res.Files, res.Redundant, util.HumanReadableSizeU(res.ReclaimableBytes))
}

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().String("min-size", "0", "Ignore files smaller than this (e.g. 10K, default from config)")
	scanCmd.Flags().String("max-size", "0", "Ignore files larger than this (0 for no limit)")
	scanCmd.Flags().IntP("workers", "w", 4, "Number of files hashed in parallel (default from config)")
}

/*
Copyright © 2025 SubstantialCattle5, nilaysharan.com
*/
package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/substantialcattle5/dupefiles/internal/cleanup"
	"github.com/substantialcattle5/dupefiles/internal/progress"
	"github.com/substantialcattle5/dupefiles/util"
)

// cleanCmd represents the clean command
var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove, move or replace duplicate copies",
	Long: `Act on the duplicate groups found by the last scan.

Policies:
  keep-shortest  keep the member with the shortest path, delete the rest
  delete         delete members whose path contains --filter
  move           move members whose path contains --filter into --dest
  placeholder    delete members whose path contains --filter and leave an
                 empty <name>.dupe marker in their place

delete and placeholder act on every matching member. With --keep-last they
leave the last remaining copy of each group in place. Every action is
confirmed unless --yes is given.

Example:
  dupefiles clean --policy keep-shortest --dry-run
  dupefiles clean --policy delete --filter /mnt/backup --yes
  dupefiles clean --policy placeholder --filter Downloads --keep-last
  dupefiles clean --policy move --filter Downloads --dest ~/dupes --save`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		policyName, _ := cmd.Flags().GetString("policy")
		filter, _ := cmd.Flags().GetString("filter")
		dest, _ := cmd.Flags().GetString("dest")
		yes, _ := cmd.Flags().GetBool("yes")
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		save, _ := cmd.Flags().GetBool("save")
		keepLast, _ := cmd.Flags().GetBool("keep-last")

		policy, err := cleanup.ParsePolicy(policyName)
		if err != nil {
			return fmt.Errorf("%w (available: %s)", err, strings.Join(cleanup.Policies(), ", "))
		}

		w, err := openWorkspaceFromCmd(cmd)
		if err != nil {
			return err
		}
		defer w.close()

		engine := &cleanup.Engine{
			Policy:      policy,
			Filter:      filter,
			Destination: dest,
			Confirmer:   newConfirmer(yes || dryRun, os.Stdin, cmd.ErrOrStderr()),
			Log:         w.log,
			KeepLast:    keepLast,
			DryRun:      dryRun,
			OnRemoved: func(path string) {
				w.idx.Remove(path)
			},
		}
		if err := engine.Validate(); err != nil {
			return err
		}

		if w.registry.Len() == 0 {
			w.log.Infof("No duplicate groups recorded. Run 'dupefiles scan' first")
			return nil
		}

		pm := progress.NewManager(progress.Options{Quiet: true})
		ctx := pm.SetupCancellation(cmd.Context())
		defer pm.Cleanup()

		report, err := engine.Run(ctx, w.registry.Groups())
		if err != nil {
			return err
		}

		if !dryRun {
			if err := w.saveIndex(); err != nil {
				return fmt.Errorf("failed to save index: %w", err)
			}
			if save {
				if err := w.saveGroups(); err != nil {
					return fmt.Errorf("failed to save duplicate groups: %w", err)
				}
			}
		}

		reportClean(w, report, dryRun)
		if report.Failed > 0 {
			return fmt.Errorf("%d actions failed", report.Failed)
		}
		return nil
	},
}

// newConfirmer picks how actions are approved: automatically, through an
// interactive menu on a terminal, or line by line from in
func newConfirmer(auto bool, in *os.File, out io.Writer) cleanup.Confirmer {
	if auto {
		return cleanup.AutoConfirmer{}
	}
	if term.IsTerminal(int(in.Fd())) {
		return cleanup.PromptConfirmer{}
	}
	return cleanup.NewReaderConfirmer(in, out)
}

func reportClean(w *workspace, report cleanup.Report, dryRun bool) {
	verb := "Processed"
	if dryRun {
		verb = "Dry run:"
	}
	if report.Cancelled {
		w.log.Warnf("Cleanup interrupted after %d groups", report.Groups)
	}
	w.log.Successf("%s %d groups, %d acted on (%s), %d skipped, %d failed",
		verb, report.Groups, report.Acted, util.HumanReadableSizeU(report.Bytes), report.Skipped, report.Failed)
}

func init() {
	rootCmd.AddCommand(cleanCmd)

	cleanCmd.Flags().String("policy", "", "Cleanup policy: "+strings.Join(cleanup.Policies(), ", "))
	cleanCmd.Flags().String("filter", "", "Only act on members whose path contains this text")
	cleanCmd.Flags().String("dest", "", "Destination directory for the move policy")
	cleanCmd.Flags().Bool("keep-last", false, "Never delete or replace the last remaining copy of a group")
	cleanCmd.Flags().BoolP("yes", "y", false, "Do not ask for confirmation")
	cleanCmd.Flags().Bool("dry-run", false, "Show what would be done without changing anything")
	cleanCmd.Flags().Bool("save", false, "Write the updated duplicate groups back to the state directory")

	_ = cleanCmd.MarkFlagRequired("policy")
}

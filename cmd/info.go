/*
Copyright © 2025 SubstantialCattle5, nilaysharan.com
*/
package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/substantialcattle5/dupefiles/internal/groups"
	"github.com/substantialcattle5/dupefiles/internal/index"
	"github.com/substantialcattle5/dupefiles/util"
)

// infoCmd represents the info command
var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show index and duplicate group statistics",
	Long: `Show what the index holds and which duplicates the last scan found.

Example:
  dupefiles info
  dupefiles info --groups=false
  dupefiles info --limit 10`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		showGroups, _ := cmd.Flags().GetBool("groups")
		limit, _ := cmd.Flags().GetInt("limit")

		w, err := openWorkspaceFromCmd(cmd)
		if err != nil {
			return err
		}
		defer w.close()

		printInfo(cmd.OutOrStdout(), w.stateDir, w.idx, w.registry)
		if showGroups {
			printGroups(cmd.OutOrStdout(), w.registry, limit)
		}
		return nil
	},
}

func printInfo(out io.Writer, stateDir string, idx *index.FileIndex, registry *groups.Registry) {
	bold := color.New(color.Bold)
	stats := idx.Stats()
	totals := registry.Totals()

	bold.Fprintln(out, "Index")
	fmt.Fprintf(out, "  State directory: %s\n", stateDir)
	fmt.Fprintf(out, "  Files:           %d (%s)\n", stats.Files, util.HumanReadableSizeU(stats.TotalBytes))
	fmt.Fprintf(out, "  Hashed:          %d (%s)\n", stats.Digested, idx.Algorithm())
	if stats.Unreadable > 0 {
		fmt.Fprintf(out, "  Unreadable:      %d\n", stats.Unreadable)
	}

	fmt.Fprintln(out)
	bold.Fprintln(out, "Duplicates")
	if registry.Len() == 0 {
		fmt.Fprintln(out, "  No scan recorded")
		return
	}
	fmt.Fprintf(out, "  Scan:            %s (%s)\n", registry.ScanID(), registry.CreatedAt().Local().Format(time.DateTime))
	fmt.Fprintf(out, "  Groups:          %d\n", totals.Groups)
	fmt.Fprintf(out, "  Files:           %d (%d redundant)\n", totals.Files, totals.Redundant)
	fmt.Fprintf(out, "  Reclaimable:     %s\n", util.HumanReadableSizeU(totals.ReclaimableBytes))
}

// printGroups lists groups with at least two members, at most limit of
// them when limit is positive
func printGroups(out io.Writer, registry *groups.Registry, limit int) {
	shown := 0
	for _, g := range registry.Groups() {
		if len(g.Members) < 2 {
			continue
		}
		if limit > 0 && shown == limit {
			fmt.Fprintf(out, "\n... %d more groups\n", registry.Totals().Groups-shown)
			return
		}
		shown++

		digest := g.Digest
		if len(digest) > 16 {
			digest = digest[:16]
		}
		fmt.Fprintln(out)
		color.New(color.FgCyan).Fprintf(out, "%s", digest)
		fmt.Fprintf(out, "  %d x %s, %s reclaimable\n", len(g.Members), util.HumanReadableSizeU(g.Size), util.HumanReadableSizeU(g.Reclaimable()))
		for _, member := range groups.SortedMembers(g) {
			fmt.Fprintf(out, "  %s\n", member)
		}
	}
}

func init() {
	rootCmd.AddCommand(infoCmd)

	infoCmd.Flags().Bool("groups", true, "List the duplicate groups")
	infoCmd.Flags().Int("limit", 0, "Show at most this many groups (0 for all)")
}

/*
Copyright © 2025 SubstantialCattle5, nilaysharan.com
*/
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// removeCmd represents the remove command
var removeCmd = &cobra.Command{
	Use:   "remove <pattern>",
	Short: "Remove index entries whose path contains a pattern",
	Long: `Remove every index entry whose path contains the given text.

Only the index is changed; files on disk are never touched.

Example:
  dupefiles remove /mnt/old-backup
  dupefiles remove .cache`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if args[0] == "" {
			return fmt.Errorf("pattern must not be empty")
		}

		w, err := openWorkspaceFromCmd(cmd)
		if err != nil {
			return err
		}
		defer w.close()

		removed := w.idx.RemoveMatching(args[0])
		if err := w.saveIndex(); err != nil {
			return fmt.Errorf("failed to save index: %w", err)
		}

		w.log.Successf("Removed %d entries matching %q, %d remain", removed, args[0], w.idx.Len())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(removeCmd)
}

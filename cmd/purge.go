/*
Copyright © 2025 SubstantialCattle5, nilaysharan.com
*/
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// purgeCmd represents the purge command
var purgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Drop index entries for files that no longer exist",
	Long: `Drop index entries whose file no longer exists, and remove those files
from the stored duplicate groups.

Example:
  dupefiles purge`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		w, err := openWorkspaceFromCmd(cmd)
		if err != nil {
			return err
		}
		defer w.close()

		removed := w.idx.Purge()
		members := w.registry.PurgeMissing()

		if err := w.saveIndex(); err != nil {
			return fmt.Errorf("failed to save index: %w", err)
		}
		if members > 0 {
			if err := w.saveGroups(); err != nil {
				return fmt.Errorf("failed to save duplicate groups: %w", err)
			}
		}

		w.log.Successf("Purged %d missing files from the index and %d from duplicate groups", removed, members)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(purgeCmd)
}

/*
Copyright © 2025 SubstantialCattle5, nilaysharan.com
*/
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "dupefiles",
	Short: "dupefiles - find and clean up duplicate files",
	Long: `dupefiles keeps a persistent index of files and finds duplicate contents
without re-reading unchanged files on every run.

Files are grouped by size first, hashed only when another file shares their
size, and confirmed byte for byte before they are reported. Scans can be
interrupted with Ctrl+C and resumed later without rehashing.

Example:
  dupefiles add ~/Pictures
  dupefiles scan --min-size 10K
  dupefiles clean --policy keep-shortest --dry-run`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("state-dir", "", "State directory (default: nearest .dupefiles above the working directory)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "Disable progress bars and reduce output")
}

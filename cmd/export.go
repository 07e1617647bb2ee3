/*
Copyright © 2025 SubstantialCattle5, nilaysharan.com
*/
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/substantialcattle5/dupefiles/internal/export"
	"github.com/substantialcattle5/dupefiles/internal/groups"
	"github.com/substantialcattle5/dupefiles/util"
)

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the duplicate groups as JSON or CSV",
	Long: `Export the duplicate groups found by the last scan.

The structured format is a JSON array of groups; the tabular format is CSV
with one digest,size,path row per file. Without an output file the export
is written to stdout.

Example:
  dupefiles export
  dupefiles export --format tabular --output dupes.csv
  dupefiles export --output dupes.json --force`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		w, err := openWorkspaceFromCmd(cmd)
		if err != nil {
			return err
		}
		defer w.close()

		formatName := w.cfg.ExportFormat
		if cmd.Flags().Changed("format") {
			formatName, _ = cmd.Flags().GetString("format")
		}
		format, err := export.ParseFormat(formatName)
		if err != nil {
			return err
		}

		path := w.cfg.ExportFilename
		if cmd.Flags().Changed("output") {
			path, _ = cmd.Flags().GetString("output")
		}
		force, _ := cmd.Flags().GetBool("force")

		dupes := duplicateGroups(w.registry.Groups())
		if path == "" || path == "-" {
			return export.Write(cmd.OutOrStdout(), dupes, format)
		}

		overwrite := func(p string) (bool, error) {
			if force {
				return true, nil
			}
			return util.ConfirmOverwrite(fmt.Sprintf("%s already exists. Overwrite?", p), os.Stdin, cmd.ErrOrStderr())
		}
		if err := export.WriteFile(path, dupes, format, overwrite); err != nil {
			return err
		}

		w.log.Successf("Exported %d duplicate groups to %s", w.registry.Totals().Groups, path)
		return nil
	},
}

// duplicateGroups drops groups a cleanup left with a single member
func duplicateGroups(all []*groups.Group) []*groups.Group {
	dupes := make([]*groups.Group, 0, len(all))
	for _, g := range all {
		if len(g.Members) >= 2 {
			dupes = append(dupes, g)
		}
	}
	return dupes
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringP("format", "f", "structured", "Export format: structured (JSON) or tabular (CSV), default from config")
	exportCmd.Flags().StringP("output", "o", "", "Output file (default from config, stdout when empty)")
	exportCmd.Flags().Bool("force", false, "Overwrite the output file without asking")
}

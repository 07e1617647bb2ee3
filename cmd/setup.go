/*
Copyright © 2025 SubstantialCattle5, nilaysharan.com
*/
package cmd

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/substantialcattle5/dupefiles/internal/config"
	"github.com/substantialcattle5/dupefiles/internal/constants"
	"github.com/substantialcattle5/dupefiles/internal/fs"
	"github.com/substantialcattle5/dupefiles/internal/output"
)

// setupCmd represents the setup command
var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Change the configuration",
	Long: `Change the configuration stored in the state directory.

Only the settings given as flags are changed. With --interactive every
setting is asked for in turn, starting from the current values.

Changing the hash algorithm discards cached hashes on the next run.

Example:
  dupefiles setup --interactive
  dupefiles setup --output-mode logfile --log-file scan.log
  dupefiles setup --hash blake3 --workers 8 --io-limit 50M`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		stateDirFlag, verbose, _ := globalFlags(cmd)
		log := output.NewLogger(output.NewConsoleSinkTo(cmd.OutOrStdout(), cmd.ErrOrStderr()), verbose)

		stateDir, err := fs.ResolveStateDir(stateDirFlag)
		if err != nil {
			return fmt.Errorf("failed to prepare state directory: %w", err)
		}
		path := filepath.Join(stateDir, constants.ConfigFileName)

		// An invalid or malformed snapshot is not an error here; setup repairs it
		cfg, err := config.Load(path)
		if err != nil {
			log.Warnf("starting from the default configuration: %v", err)
		}

		if err := applySetupFlags(cmd.Flags(), &cfg); err != nil {
			return err
		}

		interactive, _ := cmd.Flags().GetBool("interactive")
		if interactive {
			if err := config.PromptSetup(&cfg); err != nil {
				return fmt.Errorf("setup cancelled: %w", err)
			}
		}

		if err := cfg.Validate(); err != nil {
			return err
		}
		if err := cfg.Save(path); err != nil {
			return err
		}

		log.Successf("Configuration saved to %s", path)
		log.Debugf("output=%s export=%s hash=%s workers=%d compression=%s persistent=%t",
			cfg.OutputMode, cfg.ExportFormat, cfg.HashAlgorithm, cfg.HashWorkers, cfg.Compression, cfg.PersistentMode)
		return nil
	},
}

// applySetupFlags copies every flag set on the command line into cfg
func applySetupFlags(flags *pflag.FlagSet, cfg *config.Config) error {
	var err error
	flags.Visit(func(f *pflag.Flag) {
		if err != nil {
			return
		}
		value := f.Value.String()
		switch f.Name {
		case "output-mode":
			cfg.OutputMode = value
		case "export-format":
			cfg.ExportFormat = value
		case "log-file":
			cfg.LogFilename = value
		case "export-file":
			cfg.ExportFilename = value
		case "persistent":
			cfg.PersistentMode, err = strconv.ParseBool(value)
		case "hash":
			cfg.HashAlgorithm = value
		case "workers":
			cfg.HashWorkers, err = strconv.Atoi(value)
		case "io-limit":
			cfg.IOLimit = value
		case "compression":
			cfg.Compression = value
		case "min-size":
			cfg.MinSize = value
		}
		if err != nil {
			err = fmt.Errorf("invalid --%s: %w", f.Name, err)
		}
	})
	return err
}

// registerSetupFlags defines one flag per configuration setting
func registerSetupFlags(flags *pflag.FlagSet) {
	flags.String("output-mode", constants.OutputModeConsole, "Output mode (console, logfile, silent)")
	flags.String("export-format", constants.ExportFormatStructured, "Export format (structured, tabular)")
	flags.String("log-file", constants.DefaultLogFileName, "Log file name, relative to the state directory")
	flags.String("export-file", "", "Default export file (empty writes to stdout)")
	flags.Bool("persistent", false, "Keep the index and duplicate groups in memory only")
	flags.String("hash", constants.DefaultHashAlgorithm, "Hash algorithm (sha256, sha512, sha1, md5, blake2b, blake3)")
	flags.Int("workers", constants.DefaultHashWorkers, "Number of files hashed in parallel")
	flags.String("io-limit", "", "Limit disk reads to this many bytes per second (e.g. 50M)")
	flags.String("compression", constants.CompressionTypeNone, "Snapshot compression (none, gzip, zstd)")
	flags.String("min-size", "0", "Default minimum file size for scans")
}

func init() {
	rootCmd.AddCommand(setupCmd)

	registerSetupFlags(setupCmd.Flags())
	setupCmd.Flags().BoolP("interactive", "i", false, "Ask for every setting interactively")
}

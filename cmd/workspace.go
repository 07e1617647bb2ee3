package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/substantialcattle5/dupefiles/internal/config"
	"github.com/substantialcattle5/dupefiles/internal/constants"
	"github.com/substantialcattle5/dupefiles/internal/fs"
	"github.com/substantialcattle5/dupefiles/internal/groups"
	"github.com/substantialcattle5/dupefiles/internal/index"
	"github.com/substantialcattle5/dupefiles/internal/output"
)

// workspace is the loaded state every verb operates on
type workspace struct {
	stateDir string
	cfg      config.Config
	log      *output.Logger
	idx      *index.FileIndex
	registry *groups.Registry
	verbose  bool
	quiet    bool
}

// globalFlags reads the persistent root flags
func globalFlags(cmd *cobra.Command) (stateDir string, verbose, quiet bool) {
	stateDir, _ = cmd.Flags().GetString("state-dir")
	verbose, _ = cmd.Flags().GetBool("verbose")
	quiet, _ = cmd.Flags().GetBool("quiet")
	return stateDir, verbose, quiet
}

func openWorkspaceFromCmd(cmd *cobra.Command) (*workspace, error) {
	stateDir, verbose, quiet := globalFlags(cmd)
	return openWorkspace(stateDir, verbose, quiet)
}

// openWorkspace resolves the state directory, loads the configuration and
// builds the output sink, then loads the index and registry snapshots.
func openWorkspace(stateDirFlag string, verbose, quiet bool) (*workspace, error) {
	stateDir, err := fs.ResolveStateDir(stateDirFlag)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare state directory: %w", err)
	}

	cfg, cfgErr := config.Load(filepath.Join(stateDir, constants.ConfigFileName))
	cfg, invalidErr := cfg.Repair()

	log, err := output.New(cfg.OutputMode, logPath(stateDir, cfg), verbose)
	if err != nil {
		return nil, err
	}
	if cfgErr != nil {
		log.Warnf("using default configuration: %v", cfgErr)
	}
	if invalidErr != nil {
		log.Warnf("using defaults for invalid settings, run 'dupefiles setup' to fix them: %v", invalidErr)
	}

	w := &workspace{
		stateDir: stateDir,
		cfg:      cfg,
		log:      log,
		verbose:  verbose,
		quiet:    quiet,
	}

	w.idx = index.Open(w.indexPath(), index.Options{
		Algorithm:   cfg.HashAlgorithm,
		Compression: cfg.Compression,
		Log:         log,
	})
	w.registry = groups.NewRegistry(log)
	w.registry.Compression = cfg.Compression
	w.registry.Load(w.groupsPath())

	log.Debugf("state directory %s, %d indexed files, %d groups", stateDir, w.idx.Len(), w.registry.Len())
	return w, nil
}

func logPath(stateDir string, cfg config.Config) string {
	if cfg.LogFilename == "" || filepath.IsAbs(cfg.LogFilename) {
		return cfg.LogFilename
	}
	return filepath.Join(stateDir, cfg.LogFilename)
}

func (w *workspace) indexPath() string {
	return filepath.Join(w.stateDir, constants.IndexFileName)
}

func (w *workspace) groupsPath() string {
	return filepath.Join(w.stateDir, constants.GroupsFileName)
}

// saveIndex persists the index unless persistent mode keeps it in memory
func (w *workspace) saveIndex() error {
	if w.cfg.PersistentMode {
		w.log.Debugf("persistent mode, index not written")
		return nil
	}
	return w.idx.Save(w.indexPath())
}

// saveGroups persists the registry unless persistent mode is on
func (w *workspace) saveGroups() error {
	if w.cfg.PersistentMode {
		w.log.Debugf("persistent mode, duplicate groups not written")
		return nil
	}
	return w.registry.Save(w.groupsPath())
}

func (w *workspace) close() error {
	return w.log.Close()
}

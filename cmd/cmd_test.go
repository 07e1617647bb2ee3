package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/pflag"

	"github.com/substantialcattle5/dupefiles/internal/config"
	"github.com/substantialcattle5/dupefiles/internal/constants"
	"github.com/substantialcattle5/dupefiles/internal/groups"
	"github.com/substantialcattle5/dupefiles/internal/index"
	"github.com/substantialcattle5/dupefiles/internal/output"
	"github.com/substantialcattle5/dupefiles/internal/progress"
	"github.com/substantialcattle5/dupefiles/internal/walk"
	"github.com/substantialcattle5/dupefiles/testutil"
)

func TestAddPaths(t *testing.T) {
	dir := testutil.TempDir(t, "dupefiles-add-")
	testutil.CreateTestFile(t, dir, "a.txt", "alpha")
	testutil.CreateTestFile(t, dir, "b.jpg", "bravo!")
	testutil.CreateTestFile(t, dir, "sub/c.txt", "charlie")
	testutil.CreateTestFile(t, dir, ".hidden/d.txt", "delta")

	tests := []struct {
		name    string
		paths   []string
		opts    walk.Options
		added   int
		skipped int
	}{
		{
			name:  "recursive skipping dot dirs",
			paths: []string{dir},
			opts:  walk.Options{Recursive: true, SkipDotDirs: true, Pattern: "*"},
			added: 3,
		},
		{
			name:  "including dot dirs",
			paths: []string{dir},
			opts:  walk.Options{Recursive: true, Pattern: "*"},
			added: 4,
		},
		{
			name:  "top level only",
			paths: []string{dir},
			opts:  walk.Options{SkipDotDirs: true, Pattern: "*"},
			added: 2,
		},
		{
			name:  "pattern",
			paths: []string{dir},
			opts:  walk.Options{Recursive: true, SkipDotDirs: true, Pattern: "*.txt"},
			added: 2,
		},
		{
			name:  "single file",
			paths: []string{filepath.Join(dir, "b.jpg")},
			opts:  walk.Options{Pattern: "*"},
			added: 1,
		},
		{
			name:    "missing path",
			paths:   []string{filepath.Join(dir, "missing"), filepath.Join(dir, "a.txt")},
			opts:    walk.Options{Pattern: "*"},
			added:   1,
			skipped: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx := index.New(index.Options{Algorithm: constants.HashAlgorithmSHA256})
			log := output.NewLogger(output.NewMemorySink(), false)

			res := addPaths(context.Background(), idx, log, tt.paths, tt.opts, progress.Nop())
			if res.Added != tt.added {
				t.Errorf("Expected %d added, got %d", tt.added, res.Added)
			}
			if res.Skipped != tt.skipped {
				t.Errorf("Expected %d skipped, got %d", tt.skipped, res.Skipped)
			}
			if idx.Len() != tt.added {
				t.Errorf("Expected %d index entries, got %d", tt.added, idx.Len())
			}
		})
	}
}

func TestAddPathsKnownFiles(t *testing.T) {
	dir := testutil.TempDir(t, "dupefiles-add-")
	path := testutil.CreateTestFile(t, dir, "a.txt", "alpha")

	idx := index.New(index.Options{Algorithm: constants.HashAlgorithmSHA256})
	log := output.NewLogger(output.NewMemorySink(), false)
	opts := walk.Options{Recursive: true, Pattern: "*"}

	first := addPaths(context.Background(), idx, log, []string{dir}, opts, progress.Nop())
	second := addPaths(context.Background(), idx, log, []string{dir}, opts, progress.Nop())

	if first.Added != 1 || first.Bytes != 5 {
		t.Errorf("Expected 1 file of 5 bytes on first add, got %+v", first)
	}
	if second.Added != 0 || second.Known != 1 {
		t.Errorf("Expected the file to be known on second add, got %+v", second)
	}
	if _, ok := idx.Get(path); !ok {
		t.Errorf("Expected %s to be indexed", path)
	}
}

func TestAddPathsCancelled(t *testing.T) {
	dir := testutil.TempDir(t, "dupefiles-add-")
	testutil.CreateTestFile(t, dir, "a.txt", "alpha")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	idx := index.New(index.Options{Algorithm: constants.HashAlgorithmSHA256})
	res := addPaths(ctx, idx, output.NewLogger(output.Discard(), false), []string{dir}, walk.Options{Pattern: "*"}, progress.Nop())
	if res.Added != 0 {
		t.Errorf("Expected nothing added after cancellation, got %d", res.Added)
	}
}

func TestApplySetupFlags(t *testing.T) {
	tests := []struct {
		name        string
		args        []string
		check       func(config.Config) bool
		expectError bool
	}{
		{
			name:  "no flags keeps defaults",
			args:  nil,
			check: func(c config.Config) bool { return c == config.Default() },
		},
		{
			name: "hash and workers",
			args: []string{"--hash", "blake3", "--workers", "8"},
			check: func(c config.Config) bool {
				return c.HashAlgorithm == "blake3" && c.HashWorkers == 8 && c.OutputMode == constants.OutputModeConsole
			},
		},
		{
			name: "logfile output",
			args: []string{"--output-mode", "logfile", "--log-file", "scan.log", "--persistent"},
			check: func(c config.Config) bool {
				return c.OutputMode == "logfile" && c.LogFilename == "scan.log" && c.PersistentMode
			},
		},
		{
			name: "limits",
			args: []string{"--io-limit", "50M", "--min-size", "1K", "--compression", "zstd", "--export-format", "tabular"},
			check: func(c config.Config) bool {
				return c.IOLimit == "50M" && c.MinSize == "1K" && c.Compression == "zstd" && c.ExportFormat == "tabular"
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flags := pflag.NewFlagSet("setup", pflag.ContinueOnError)
			registerSetupFlags(flags)
			if err := flags.Parse(tt.args); err != nil {
				t.Fatalf("Failed to parse flags: %v", err)
			}

			cfg := config.Default()
			err := applySetupFlags(flags, &cfg)
			if tt.expectError {
				if err == nil {
					t.Errorf("Expected error but got none")
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if !tt.check(cfg) {
				t.Errorf("Unexpected configuration: %+v", cfg)
			}
		})
	}
}

func TestDuplicateGroups(t *testing.T) {
	all := []*groups.Group{
		{Digest: "a", Size: 1, Members: []string{"/x", "/y"}},
		{Digest: "b", Size: 1, Members: []string{"/z"}},
		{Digest: "c", Size: 2, Members: []string{"/p", "/q", "/r"}},
	}

	dupes := duplicateGroups(all)
	if len(dupes) != 2 || dupes[0].Digest != "a" || dupes[1].Digest != "c" {
		t.Errorf("Expected groups a and c, got %v", dupes)
	}
}

func TestPrintGroupsLimit(t *testing.T) {
	registry := groups.NewRegistry(nil)
	registry.AddPossibleDuplicate("/data/a1", "aaaa", 10)
	registry.AddPossibleDuplicate("/data/a2", "aaaa", 10)
	registry.AddPossibleDuplicate("/data/b1", "bbbb", 20)
	registry.AddPossibleDuplicate("/data/b2", "bbbb", 20)

	var buf bytes.Buffer
	printGroups(&buf, registry, 1)

	out := buf.String()
	if !strings.Contains(out, "/data/a1") || strings.Contains(out, "/data/b1") {
		t.Errorf("Expected only the first group, got:\n%s", out)
	}
	if !strings.Contains(out, "1 more groups") {
		t.Errorf("Expected a note about the remaining group, got:\n%s", out)
	}
}

// runRoot executes the root command with args and returns what it printed
func runRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})
	err := rootCmd.Execute()
	return buf.String(), err
}

func TestWorkflow(t *testing.T) {
	dir := testutil.TempDir(t, "dupefiles-workflow-")
	stateDir := filepath.Join(dir, "state")
	data := filepath.Join(dir, "data")

	keep := testutil.CreateTestFile(t, data, "a.txt", "same content")
	copyPath := testutil.CreateTestFile(t, data, "sub/b.txt", "same content")
	other := testutil.CreateTestFile(t, data, "c.txt", "othr content")

	if _, err := runRoot(t, "setup", "--state-dir", stateDir, "--hash", "blake3", "--compression", "zstd"); err != nil {
		t.Fatalf("setup failed: %v", err)
	}
	testutil.AssertFileExists(t, filepath.Join(stateDir, constants.ConfigFileName))

	if _, err := runRoot(t, "add", "--state-dir", stateDir, "--quiet", data); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if _, err := runRoot(t, "scan", "--state-dir", stateDir, "--quiet"); err != nil {
		t.Fatalf("scan failed: %v", err)
	}

	out, err := runRoot(t, "info", "--state-dir", stateDir)
	if err != nil {
		t.Fatalf("info failed: %v", err)
	}
	for _, want := range []string{"Files:           3", keep, copyPath} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected info output to contain %q, got:\n%s", want, out)
		}
	}
	if strings.Contains(out, other) {
		t.Errorf("Expected %s not to be listed as a duplicate", other)
	}

	exportPath := filepath.Join(dir, "dupes.csv")
	if _, err := runRoot(t, "export", "--state-dir", stateDir, "--format", "tabular", "--output", exportPath, "--force"); err != nil {
		t.Fatalf("export failed: %v", err)
	}
	testutil.AssertFileContains(t, exportPath, "digest,size,path")
	testutil.AssertFileContains(t, exportPath, copyPath)

	if _, err := runRoot(t, "clean", "--state-dir", stateDir, "--policy", "delete", "--filter", "sub", "--yes", "--save"); err != nil {
		t.Fatalf("clean failed: %v", err)
	}
	testutil.AssertFileExists(t, keep)
	testutil.AssertFileNotExists(t, copyPath)
	testutil.AssertFileExists(t, other)

	idx := index.Open(filepath.Join(stateDir, constants.IndexFileName), index.Options{Algorithm: constants.HashAlgorithmBLAKE3})
	if _, ok := idx.Get(copyPath); ok {
		t.Errorf("Expected %s to be dropped from the index", copyPath)
	}
	if idx.Len() != 2 {
		t.Errorf("Expected 2 indexed files after clean, got %d", idx.Len())
	}

	registry := groups.NewRegistry(nil)
	registry.Load(filepath.Join(stateDir, constants.GroupsFileName))
	if registry.Totals().Groups != 0 {
		t.Errorf("Expected no duplicate groups left, got %d", registry.Totals().Groups)
	}

	if _, err := runRoot(t, "remove", "--state-dir", stateDir, "c.txt"); err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	idx = index.Open(filepath.Join(stateDir, constants.IndexFileName), index.Options{Algorithm: constants.HashAlgorithmBLAKE3})
	if idx.Len() != 1 {
		t.Errorf("Expected 1 indexed file after remove, got %d", idx.Len())
	}

	if err := os.Remove(keep); err != nil {
		t.Fatalf("Failed to remove %s: %v", keep, err)
	}
	if _, err := runRoot(t, "purge", "--state-dir", stateDir); err != nil {
		t.Fatalf("purge failed: %v", err)
	}
	idx = index.Open(filepath.Join(stateDir, constants.IndexFileName), index.Options{Algorithm: constants.HashAlgorithmBLAKE3})
	if idx.Len() != 0 {
		t.Errorf("Expected an empty index after purge, got %d", idx.Len())
	}
}

func TestCleanRequiresDestinationForMove(t *testing.T) {
	stateDir := filepath.Join(testutil.TempDir(t, "dupefiles-clean-"), "state")

	_, err := runRoot(t, "clean", "--state-dir", stateDir, "--policy", "move", "--yes")
	if err == nil {
		t.Fatal("Expected an error for move without destination")
	}
	if !strings.Contains(err.Error(), "destination") {
		t.Errorf("Expected a destination error, got %v", err)
	}
}

func TestInvalidConfigFallsBackToDefaults(t *testing.T) {
	tests := []struct {
		name    string
		content string
		check   func(config.Config) bool
	}{
		{
			name:    "unknown output mode",
			content: "output_mode: xml\nhash_workers: 7\n",
			check: func(c config.Config) bool {
				return c.OutputMode == constants.OutputModeConsole && c.HashWorkers == 7
			},
		},
		{
			name:    "unknown hash",
			content: "hash_algorithm: crc7\ncompression: gzip\n",
			check: func(c config.Config) bool {
				return c.HashAlgorithm == constants.DefaultHashAlgorithm && c.Compression == constants.CompressionTypeGzip
			},
		},
		{
			name:    "malformed yaml",
			content: "output_mode: [console\n",
			check:   func(c config.Config) bool { return c == config.Default() },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stateDir := filepath.Join(testutil.TempDir(t, "dupefiles-config-"), "state")
			testutil.CreateTestFile(t, stateDir, constants.ConfigFileName, tt.content)

			w, err := openWorkspace(stateDir, false, true)
			if err != nil {
				t.Fatalf("openWorkspace() error: %v", err)
			}
			defer w.close()

			if !tt.check(w.cfg) {
				t.Errorf("Unexpected configuration: %+v", w.cfg)
			}
			if err := w.cfg.Validate(); err != nil {
				t.Errorf("Workspace configuration is invalid: %v", err)
			}
		})
	}
}

func TestInfoStartsWithInvalidConfig(t *testing.T) {
	stateDir := filepath.Join(testutil.TempDir(t, "dupefiles-config-"), "state")
	testutil.CreateTestFile(t, stateDir, constants.ConfigFileName, "output_mode: xml\n")

	out, err := runRoot(t, "info", "--state-dir", stateDir)
	if err != nil {
		t.Fatalf("info failed with an invalid configuration: %v", err)
	}
	if !strings.Contains(out, "Index") {
		t.Errorf("Expected the index summary, got:\n%s", out)
	}
}

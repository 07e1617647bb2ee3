package config

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/manifoldco/promptui"

	"github.com/substantialcattle5/dupefiles/internal/constants"
	"github.com/substantialcattle5/dupefiles/util"
)

// PromptSetup walks through every setting interactively, starting from cfg
func PromptSetup(cfg *Config) error {
	outputPrompt := promptui.Select{
		Label: "Output mode",
		Items: []string{constants.OutputModeConsole, constants.OutputModeLogFile, constants.OutputModeSilent},
		Templates: &promptui.SelectTemplates{
			Selected: "Output mode: {{ . }}",
			Active:   "▸ {{ . }}",
			Inactive: "  {{ . }}",
			Details: `
{{ "Details:" | faint }}
{{ if eq . "console" }}Print progress and results to the terminal
{{ else if eq . "logfile" }}Append every message to a log file in the state directory
{{ else }}Print nothing{{ end }}
`,
		},
	}
	_, outputMode, err := outputPrompt.Run()
	if err != nil {
		return fmt.Errorf("prompt failed: %w", err)
	}
	cfg.OutputMode = outputMode

	if cfg.OutputMode == constants.OutputModeLogFile {
		logPrompt := promptui.Prompt{
			Label:   "Log filename",
			Default: cfg.LogFilename,
			Validate: func(input string) error {
				if len(input) < 1 {
					return errors.New("filename must not be empty")
				}
				return nil
			},
		}
		if cfg.LogFilename, err = logPrompt.Run(); err != nil {
			return fmt.Errorf("prompt failed: %w", err)
		}
	}

	formatPrompt := promptui.Select{
		Label: "Export format",
		Items: []string{constants.ExportFormatStructured, constants.ExportFormatTabular},
		Templates: &promptui.SelectTemplates{
			Selected: "Export format: {{ . }}",
			Active:   "▸ {{ . }} {{ if eq . \"structured\" }}(JSON){{ else }}(CSV){{ end }}",
			Inactive: "  {{ . }} {{ if eq . \"structured\" }}(JSON){{ else }}(CSV){{ end }}",
		},
	}
	if _, cfg.ExportFormat, err = formatPrompt.Run(); err != nil {
		return fmt.Errorf("prompt failed: %w", err)
	}

	exportPrompt := promptui.Prompt{
		Label:   "Export filename (empty prints to stdout)",
		Default: cfg.ExportFilename,
	}
	if cfg.ExportFilename, err = exportPrompt.Run(); err != nil {
		return fmt.Errorf("prompt failed: %w", err)
	}

	hashPrompt := promptui.Select{
		Label: "Hash algorithm",
		Items: []string{
			constants.HashAlgorithmSHA256,
			constants.HashAlgorithmBLAKE3,
			constants.HashAlgorithmBLAKE2B,
			constants.HashAlgorithmSHA512,
			constants.HashAlgorithmSHA1,
			constants.HashAlgorithmMD5,
		},
		Templates: &promptui.SelectTemplates{
			Selected: "Hash algorithm: {{ . }}",
			Active:   "▸ {{ . }} {{ if eq . \"sha256\" }}(recommended){{ end }}",
			Inactive: "  {{ . }} {{ if eq . \"sha256\" }}(recommended){{ end }}",
			Details: `
{{ "Details:" | faint }}
Changing the algorithm discards every cached digest on the next scan
`,
		},
	}
	if _, cfg.HashAlgorithm, err = hashPrompt.Run(); err != nil {
		return fmt.Errorf("prompt failed: %w", err)
	}

	workersPrompt := promptui.Prompt{
		Label:   "Hash workers",
		Default: strconv.Itoa(cfg.HashWorkers),
		Validate: func(input string) error {
			n, err := strconv.Atoi(input)
			if err != nil || n < 1 {
				return errors.New("must be a positive number")
			}
			return nil
		},
	}
	workers, err := workersPrompt.Run()
	if err != nil {
		return fmt.Errorf("prompt failed: %w", err)
	}
	cfg.HashWorkers, _ = strconv.Atoi(workers)

	limitPrompt := promptui.Prompt{
		Label:    "Read limit per second (e.g. 50M, empty for unlimited)",
		Default:  cfg.IOLimit,
		Validate: validateOptionalSize,
	}
	if cfg.IOLimit, err = limitPrompt.Run(); err != nil {
		return fmt.Errorf("prompt failed: %w", err)
	}

	compressionPrompt := promptui.Select{
		Label: "Snapshot compression",
		Items: []string{constants.CompressionTypeNone, constants.CompressionTypeZstd, constants.CompressionTypeGzip},
		Templates: &promptui.SelectTemplates{
			Selected: "Snapshot compression: {{ . }}",
			Active:   "▸ {{ . }}",
			Inactive: "  {{ . }}",
		},
	}
	if _, cfg.Compression, err = compressionPrompt.Run(); err != nil {
		return fmt.Errorf("prompt failed: %w", err)
	}

	minSizePrompt := promptui.Prompt{
		Label:    "Minimum file size to scan",
		Default:  cfg.MinSize,
		Validate: validateOptionalSize,
	}
	if cfg.MinSize, err = minSizePrompt.Run(); err != nil {
		return fmt.Errorf("prompt failed: %w", err)
	}

	persistentPrompt := promptui.Select{
		Label: "Keep the index in memory only (persistent mode)",
		Items: []string{"no", "yes"},
	}
	_, persistent, err := persistentPrompt.Run()
	if err != nil {
		return fmt.Errorf("prompt failed: %w", err)
	}
	cfg.PersistentMode = persistent == "yes"

	return cfg.Validate()
}

func validateOptionalSize(input string) error {
	if input == "" {
		return nil
	}
	if _, err := util.ParseSize(input); err != nil {
		return errors.New("invalid size, use a number with an optional K, M, G or T suffix")
	}
	return nil
}

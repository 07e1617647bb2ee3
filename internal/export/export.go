// Package export writes duplicate groups in a structured (JSON) or tabular
// (CSV) form for other tools.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/substantialcattle5/dupefiles/internal/constants"
	"github.com/substantialcattle5/dupefiles/internal/groups"
)

// Format selects the export encoding
type Format string

const (
	FormatStructured Format = constants.ExportFormatStructured
	FormatTabular    Format = constants.ExportFormatTabular
)

// ParseFormat accepts the configured names plus the json/csv aliases
func ParseFormat(name string) (Format, error) {
	switch name {
	case constants.ExportFormatStructured, "json", "":
		return FormatStructured, nil
	case constants.ExportFormatTabular, "csv":
		return FormatTabular, nil
	default:
		return "", fmt.Errorf("unknown export format: %s", name)
	}
}

// Write encodes dupes to w
func Write(w io.Writer, dupes []*groups.Group, format Format) error {
	switch format {
	case FormatStructured, "":
		return writeJSON(w, dupes)
	case FormatTabular:
		return writeCSV(w, dupes)
	default:
		return fmt.Errorf("unknown export format: %s", format)
	}
}

func writeJSON(w io.Writer, dupes []*groups.Group) error {
	if dupes == nil {
		dupes = []*groups.Group{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(dupes); err != nil {
		return fmt.Errorf("failed to encode groups: %w", err)
	}
	return nil
}

func writeCSV(w io.Writer, dupes []*groups.Group) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"digest", "size", "path"}); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, g := range dupes {
		size := strconv.FormatUint(g.Size, 10)
		for _, m := range g.Members {
			if err := cw.Write([]string{g.Digest, size, m}); err != nil {
				return fmt.Errorf("failed to write row: %w", err)
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

// Overwrite decides whether an existing export file may be replaced
type Overwrite func(path string) (bool, error)

// WriteFile exports to path. An existing file is only replaced when
// overwrite approves; a nil overwrite refuses.
func WriteFile(path string, dupes []*groups.Group, format Format, overwrite Overwrite) error {
	if _, err := os.Stat(path); err == nil {
		ok := false
		if overwrite != nil {
			if ok, err = overwrite(path); err != nil {
				return fmt.Errorf("failed to confirm overwrite: %w", err)
			}
		}
		if !ok {
			return fmt.Errorf("%s already exists", path)
		}
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, constants.StandardFilePerms)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	if err := Write(file, dupes, format); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

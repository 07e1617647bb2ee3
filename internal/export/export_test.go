package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"github.com/substantialcattle5/dupefiles/internal/groups"
	"github.com/substantialcattle5/dupefiles/testutil"
)

func sampleGroups() []*groups.Group {
	return []*groups.Group{
		{Digest: "d1", Size: 10, Members: []string{"/a", "/b"}},
		{Digest: "d2", Size: 20, Members: []string{"/c", "/d, with comma", "/e"}},
	}
}

func TestWriteStructured(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, sampleGroups(), FormatStructured); err != nil {
		t.Fatalf("Write() error: %v", err)
	}

	var decoded []groups.Group
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if len(decoded) != 2 || decoded[1].Size != 20 || len(decoded[1].Members) != 3 {
		t.Errorf("decoded = %+v", decoded)
	}
}

func TestWriteStructuredEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, nil, FormatStructured); err != nil {
		t.Fatalf("Write() error: %v", err)
	}
	if got := bytes.TrimSpace(buf.Bytes()); string(got) != "[]" {
		t.Errorf("empty export = %q, want []", got)
	}
}

func TestWriteTabular(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, sampleGroups(), FormatTabular); err != nil {
		t.Fatalf("Write() error: %v", err)
	}

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("output is not CSV: %v", err)
	}
	if len(rows) != 6 {
		t.Fatalf("got %d rows, want header + 5", len(rows))
	}
	if rows[0][0] != "digest" || rows[0][1] != "size" || rows[0][2] != "path" {
		t.Errorf("header = %v", rows[0])
	}

	byPath := make(map[string][]string)
	for _, row := range rows[1:] {
		byPath[row[2]] = row
	}
	tests := []struct {
		path   string
		digest string
		size   string
	}{
		{path: "/a", digest: "d1", size: "10"},
		{path: "/b", digest: "d1", size: "10"},
		{path: "/c", digest: "d2", size: "20"},
		{path: "/d, with comma", digest: "d2", size: "20"},
		{path: "/e", digest: "d2", size: "20"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			row, ok := byPath[tt.path]
			if !ok {
				t.Fatalf("no row for %q in %v", tt.path, rows)
			}
			if row[0] != tt.digest || row[1] != tt.size {
				t.Errorf("row = %v, want digest %s size %s", row, tt.digest, tt.size)
			}
		})
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{in: "structured", want: FormatStructured},
		{in: "json", want: FormatStructured},
		{in: "", want: FormatStructured},
		{in: "tabular", want: FormatTabular},
		{in: "csv", want: FormatTabular},
		{in: "xml", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if (err != nil) != tt.wantErr || got != tt.want {
				t.Errorf("ParseFormat(%q) = (%s, %v)", tt.in, got, err)
			}
		})
	}
}

func TestWriteFileOverwrite(t *testing.T) {
	dir := testutil.TempDir(t, "export")
	path := filepath.Join(dir, "dupes.csv")

	if err := WriteFile(path, sampleGroups(), FormatTabular, nil); err != nil {
		t.Fatalf("first WriteFile() error: %v", err)
	}
	testutil.AssertFileContains(t, path, "digest,size,path")

	if err := WriteFile(path, nil, FormatStructured, nil); err == nil {
		t.Error("existing file replaced without approval")
	}

	deny := func(string) (bool, error) { return false, nil }
	if err := WriteFile(path, nil, FormatStructured, deny); err == nil {
		t.Error("existing file replaced despite refusal")
	}

	failing := func(string) (bool, error) { return false, errors.New("no tty") }
	if err := WriteFile(path, nil, FormatStructured, failing); err == nil {
		t.Error("expected confirmation error")
	}

	allow := func(string) (bool, error) { return true, nil }
	if err := WriteFile(path, nil, FormatStructured, allow); err != nil {
		t.Fatalf("approved WriteFile() error: %v", err)
	}
	testutil.AssertFileContains(t, path, "[]")
}

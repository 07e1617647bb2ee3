package compare

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/substantialcattle5/dupefiles/internal/constants"
	"github.com/substantialcattle5/dupefiles/testutil"
)

func TestEqual(t *testing.T) {
	dir := testutil.TempDir(t, "compare")
	block := constants.CompareBlockSize

	base := strings.Repeat("x", block*3)
	lastByte := base[:len(base)-1] + "y"
	firstByte := "y" + base[1:]

	tests := []struct {
		name string
		a, b string
		want bool
	}{
		{name: "identical multi-block", a: base, b: base, want: true},
		{name: "identical partial block", a: "short content", b: "short content", want: true},
		{name: "both empty", a: "", b: "", want: true},
		{name: "differs in last byte", a: base, b: lastByte, want: false},
		{name: "differs in first byte", a: base, b: firstByte, want: false},
		{name: "same length different text", a: "aaaa", b: "aaab", want: false},
	}

	c := New(nil)
	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pa := testutil.CreateTestFile(t, dir, filepath.Join("case", string(rune('a'+i)), "a"), tt.a)
			pb := testutil.CreateTestFile(t, dir, filepath.Join("case", string(rune('a'+i)), "b"), tt.b)

			got, err := c.Equal(context.Background(), pa, pb)
			if err != nil {
				t.Fatalf("Equal() unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Equal() = %t, want %t", got, tt.want)
			}
		})
	}
}

func TestEqualStreamsMustEndTogether(t *testing.T) {
	dir := testutil.TempDir(t, "compare-length")
	content := strings.Repeat("z", constants.CompareBlockSize)
	a := testutil.CreateTestFile(t, dir, "a", content)
	b := testutil.CreateTestFile(t, dir, "b", content+"tail")

	got, err := New(nil).Equal(context.Background(), a, b)
	if err != nil {
		t.Fatalf("Equal() unexpected error: %v", err)
	}
	if got {
		t.Error("a prefix must not compare equal to the longer file")
	}
}

func TestEqualSameFile(t *testing.T) {
	dir := testutil.TempDir(t, "compare-same")
	a := testutil.CreateTestFile(t, dir, "a", "content")

	got, err := New(nil).Equal(context.Background(), a, filepath.Join(dir, ".", "a"))
	if err != nil || !got {
		t.Errorf("Equal(same path) = (%t, %v), want (true, nil)", got, err)
	}

	link := filepath.Join(dir, "hard")
	if err := os.Link(a, link); err != nil {
		t.Skipf("hard links unsupported: %v", err)
	}
	got, err = New(nil).Equal(context.Background(), a, link)
	if err != nil || !got {
		t.Errorf("Equal(hard link) = (%t, %v), want (true, nil)", got, err)
	}
}

func TestEqualMissingFile(t *testing.T) {
	dir := testutil.TempDir(t, "compare-missing")
	a := testutil.CreateTestFile(t, dir, "a", "content")

	_, err := New(nil).Equal(context.Background(), a, filepath.Join(dir, "missing"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected not-exist error, got %v", err)
	}
}

func TestEqualCancelled(t *testing.T) {
	dir := testutil.TempDir(t, "compare-cancel")
	a := testutil.CreateTestFile(t, dir, "a", "content")
	b := testutil.CreateTestFile(t, dir, "b", "content")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := New(nil).Equal(ctx, a, b); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

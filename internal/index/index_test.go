package index

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/substantialcattle5/dupefiles/internal/constants"
	"github.com/substantialcattle5/dupefiles/internal/output"
	"github.com/substantialcattle5/dupefiles/testutil"
)

func newTestIndex(mem *output.MemorySink) *FileIndex {
	return New(Options{Algorithm: constants.HashAlgorithmSHA256, Log: output.NewLogger(mem, true)})
}

func TestAdd(t *testing.T) {
	idx := newTestIndex(output.NewMemorySink())

	if !idx.Add("/a", 10) {
		t.Error("first Add() should insert")
	}
	if idx.Add("/a", 99) {
		t.Error("second Add() of the same path should be a no-op")
	}
	entry, ok := idx.Get("/a")
	if !ok || entry.Size != 10 {
		t.Errorf("Get() = (%+v, %t), want size 10", entry, ok)
	}
	if idx.Len() != 1 {
		t.Errorf("Len() = %d, want 1", idx.Len())
	}
}

func TestRemoveMatching(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		want    int
		left    int
	}{
		{name: "substring", pattern: "photos", want: 2, left: 1},
		{name: "no match", pattern: "music", want: 0, left: 3},
		{name: "empty pattern removes nothing", pattern: "", want: 0, left: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx := newTestIndex(output.NewMemorySink())
			idx.Add("/home/photos/a.jpg", 1)
			idx.Add("/home/photos/b.jpg", 2)
			idx.Add("/home/docs/c.txt", 3)

			if got := idx.RemoveMatching(tt.pattern); got != tt.want {
				t.Errorf("RemoveMatching() = %d, want %d", got, tt.want)
			}
			if idx.Len() != tt.left {
				t.Errorf("Len() = %d, want %d", idx.Len(), tt.left)
			}
		})
	}
}

func TestPurge(t *testing.T) {
	dir := testutil.TempDir(t, "purge")
	keep := testutil.CreateTestFile(t, dir, "keep.txt", "keep")
	gone := testutil.CreateTestFile(t, dir, "gone.txt", "gone")
	alsoGone := testutil.CreateTestFile(t, dir, "sub/also.txt", "also")

	idx := newTestIndex(output.NewMemorySink())
	for _, p := range []string{keep, gone, alsoGone} {
		idx.Add(p, 4)
	}

	if err := os.Remove(gone); err != nil {
		t.Fatal(err)
	}
	if err := os.RemoveAll(filepath.Join(dir, "sub")); err != nil {
		t.Fatal(err)
	}

	if got := idx.Purge(); got != 2 {
		t.Errorf("Purge() = %d, want 2", got)
	}
	if _, ok := idx.Get(keep); !ok {
		t.Error("existing file was purged")
	}
	if _, ok := idx.Get(gone); ok {
		t.Error("deleted file survived purge")
	}

	empty := newTestIndex(output.NewMemorySink())
	if got := empty.Purge(); got != 0 {
		t.Errorf("Purge() on empty index = %d, want 0", got)
	}
}

func TestSetDigestAndUnreadable(t *testing.T) {
	idx := newTestIndex(output.NewMemorySink())
	idx.Add("/a", 10)

	idx.SetDigest("/missing", "abc") // ignored
	if idx.Len() != 1 {
		t.Fatal("SetDigest on an unknown path must not insert")
	}

	idx.MarkUnreadable("/a")
	entry, _ := idx.Get("/a")
	if !entry.Unreadable || entry.HasDigest() {
		t.Errorf("entry after MarkUnreadable = %+v", entry)
	}
	if n := len(idx.Digested()); n != 0 {
		t.Errorf("unreadable entry listed as digested (%d)", n)
	}

	idx.SetDigest("/a", "abc")
	entry, _ = idx.Get("/a")
	if entry.Unreadable || entry.Digest != "abc" {
		t.Errorf("entry after SetDigest = %+v", entry)
	}
}

func TestResetDigests(t *testing.T) {
	dir := testutil.TempDir(t, "reset")
	path := filepath.Join(dir, constants.IndexFileName)

	idx := newTestIndex(output.NewMemorySink())
	idx.Add("/a", 10)
	idx.Add("/b", 20)
	idx.SetDigest("/a", "abc")
	idx.MarkUnreadable("/b")
	if err := idx.Save(path); err != nil {
		t.Fatal(err)
	}

	idx.ResetDigests()
	if !idx.Dirty() {
		t.Error("index should be dirty after ResetDigests()")
	}
	for _, p := range []string{"/a", "/b"} {
		entry, ok := idx.Get(p)
		if !ok {
			t.Fatalf("%s lost by ResetDigests()", p)
		}
		if entry.HasDigest() || entry.Unreadable {
			t.Errorf("%s after ResetDigests() = %+v", p, entry)
		}
	}
	if idx.Len() != 2 {
		t.Errorf("Len() = %d, want 2", idx.Len())
	}
}

func TestInRange(t *testing.T) {
	idx := newTestIndex(output.NewMemorySink())
	idx.Add("/small", 5)
	idx.Add("/medium", 50)
	idx.Add("/large", 500)

	tests := []struct {
		name     string
		min, max uint64
		want     []string
	}{
		{name: "unbounded", min: 0, max: 0, want: []string{"/large", "/medium", "/small"}},
		{name: "inclusive bounds", min: 5, max: 50, want: []string{"/medium", "/small"}},
		{name: "min only", min: 51, max: 0, want: []string{"/large"}},
		{name: "empty", min: 501, max: 0, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := idx.InRange(tt.min, tt.max)
			if len(got) != len(tt.want) {
				t.Fatalf("InRange() returned %d entries, want %d", len(got), len(tt.want))
			}
			for i, e := range got {
				if e.Path != tt.want[i] {
					t.Errorf("InRange()[%d] = %s, want %s", i, e.Path, tt.want[i])
				}
			}
		})
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	for _, algo := range []string{constants.CompressionTypeNone, constants.CompressionTypeGzip, constants.CompressionTypeZstd} {
		t.Run(algo, func(t *testing.T) {
			dir := testutil.TempDir(t, "roundtrip")
			path := filepath.Join(dir, constants.IndexFileName)

			idx := New(Options{Algorithm: constants.HashAlgorithmSHA256, Compression: algo})
			idx.Add("/a", 10)
			idx.Add("/b", 10)
			idx.Add("/c", 20)
			idx.SetDigest("/a", "d1")
			idx.SetDigest("/b", "d1")

			if err := idx.Save(path); err != nil {
				t.Fatalf("Save() error: %v", err)
			}
			if idx.Dirty() {
				t.Error("index still dirty after Save()")
			}

			loaded := New(Options{Algorithm: constants.HashAlgorithmSHA256})
			if !loaded.Load(path) {
				t.Fatal("Load() reported no snapshot")
			}

			want := idx.Entries()
			got := loaded.Entries()
			if len(got) != len(want) {
				t.Fatalf("loaded %d entries, want %d", len(got), len(want))
			}
			for i := range want {
				if got[i] != want[i] {
					t.Errorf("entry %d = %+v, want %+v", i, got[i], want[i])
				}
			}
		})
	}
}

func TestSaveIsNoOpWhenClean(t *testing.T) {
	dir := testutil.TempDir(t, "clean-save")
	path := filepath.Join(dir, constants.IndexFileName)

	idx := newTestIndex(output.NewMemorySink())
	if err := idx.Save(path); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	testutil.AssertFileNotExists(t, path)
}

func TestLoadCorruptSnapshot(t *testing.T) {
	dir := testutil.TempDir(t, "corrupt")
	path := testutil.CreateTestFile(t, dir, constants.IndexFileName, "{not json")

	mem := output.NewMemorySink()
	idx := newTestIndex(mem)
	idx.Add("/stale", 1)

	if idx.Load(path) {
		t.Error("Load() of a corrupt snapshot should report failure")
	}
	if idx.Len() != 0 {
		t.Errorf("Len() = %d after corrupt load, want 0", idx.Len())
	}
	if mem.Count(output.SeverityWarning) != 1 {
		t.Errorf("expected one warning, got %+v", mem.Messages())
	}
}

func TestLoadMissingSnapshotIsSilent(t *testing.T) {
	dir := testutil.TempDir(t, "missing")
	mem := output.NewMemorySink()
	idx := newTestIndex(mem)

	if idx.Load(filepath.Join(dir, "nope.json")) {
		t.Error("Load() of a missing snapshot should report false")
	}
	if len(mem.Messages()) != 0 {
		t.Errorf("missing snapshot should not warn: %+v", mem.Messages())
	}
}

func TestLoadDiscardsDigestsOfOtherAlgorithm(t *testing.T) {
	dir := testutil.TempDir(t, "algo")
	path := filepath.Join(dir, constants.IndexFileName)

	idx := New(Options{Algorithm: constants.HashAlgorithmMD5})
	idx.Add("/a", 10)
	idx.SetDigest("/a", "md5digest")
	idx.Add("/b", 20)
	idx.MarkUnreadable("/b")
	if err := idx.Save(path); err != nil {
		t.Fatal(err)
	}

	mem := output.NewMemorySink()
	loaded := New(Options{Algorithm: constants.HashAlgorithmSHA256, Log: output.NewLogger(mem, false)})
	loaded.Load(path)

	entry, ok := loaded.Get("/a")
	if !ok {
		t.Fatal("entry lost on algorithm change")
	}
	if entry.Digest != "" {
		t.Errorf("digest %q kept across algorithm change", entry.Digest)
	}
	if entry, _ := loaded.Get("/b"); entry.Unreadable {
		t.Error("unreadable flag kept across algorithm change")
	}
	if !loaded.Dirty() {
		t.Error("index should be dirty after discarding digests")
	}
	if !mem.Contains("discarding") {
		t.Error("expected a warning about discarded digests")
	}
}

func TestStats(t *testing.T) {
	idx := newTestIndex(output.NewMemorySink())
	idx.Add("/a", 10)
	idx.Add("/b", 20)
	idx.Add("/c", 30)
	idx.SetDigest("/a", "x")
	idx.MarkUnreadable("/b")

	stats := idx.Stats()
	want := Stats{Files: 3, TotalBytes: 60, Digested: 1, Unreadable: 1}
	if stats != want {
		t.Errorf("Stats() = %+v, want %+v", stats, want)
	}
}

func TestConcurrentSetDigest(t *testing.T) {
	idx := newTestIndex(output.NewMemorySink())
	paths := make([]string, 100)
	for i := range paths {
		paths[i] = filepath.Join("/files", string(rune('a'+i%26)), string(rune('a'+i/26)))
		idx.Add(paths[i], uint64(i))
	}

	var wg sync.WaitGroup
	for _, p := range paths {
		wg.Add(1)
		go func(p string) {
			defer wg.Done()
			idx.SetDigest(p, "digest")
		}(p)
	}
	wg.Wait()

	if got := len(idx.Digested()); got != len(paths) {
		t.Errorf("Digested() = %d, want %d", got, len(paths))
	}
}

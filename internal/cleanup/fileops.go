package cleanup

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"syscall"

	"github.com/substantialcattle5/dupefiles/internal/constants"
)

// FileOps abstracts the filesystem mutations of a cleanup pass so tests
// can prove that dry runs and declined actions touch nothing.
type FileOps interface {
	Remove(path string) error
	Rename(oldPath, newPath string) error
	Copy(src, dst string) error
	CreateEmpty(path string) error
	Exists(path string) bool
	MkdirAll(path string) error
}

// OSOps performs the operations on the real filesystem
type OSOps struct{}

func (OSOps) Remove(path string) error { return os.Remove(path) }

func (OSOps) Rename(oldPath, newPath string) error { return os.Rename(oldPath, newPath) }

func (OSOps) CreateEmpty(path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, constants.StandardFilePerms)
	if err != nil {
		return err
	}
	return f.Close()
}

func (OSOps) Exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

func (OSOps) MkdirAll(path string) error { return os.MkdirAll(path, constants.StandardDirPerms) }

// Copy duplicates src to dst, keeping the file mode
func (OSOps) Copy(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_EXCL|os.O_WRONLY, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	if err := out.Close(); err != nil {
		os.Remove(dst)
		return err
	}
	return nil
}

// moveFile renames src to dst, copying across filesystems when a rename
// is not possible.
func moveFile(ops FileOps, src, dst string) error {
	err := ops.Rename(src, dst)
	if err == nil {
		return nil
	}
	if !errors.Is(err, syscall.EXDEV) {
		return err
	}

	if err := ops.Copy(src, dst); err != nil {
		return fmt.Errorf("failed to copy across devices: %w", err)
	}
	if err := ops.Remove(src); err != nil {
		return fmt.Errorf("copied to %s but failed to remove original: %w", dst, err)
	}
	return nil
}

// freeName returns dir/base, or dir/name_N.ext for the first N not taken
func freeName(ops FileOps, dir, base string) string {
	candidate := filepath.Join(dir, base)
	if !ops.Exists(candidate) {
		return candidate
	}

	ext := filepath.Ext(base)
	stem := base[:len(base)-len(ext)]
	for n := 1; ; n++ {
		candidate = filepath.Join(dir, fmt.Sprintf("%s_%d%s", stem, n, ext))
		if !ops.Exists(candidate) {
			return candidate
		}
	}
}

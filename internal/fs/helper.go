package fs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/substantialcattle5/dupefiles/internal/constants"
)

// EnsureDirectory ensures a directory exists, creating it if necessary
func EnsureDirectory(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return os.MkdirAll(path, constants.StandardDirPerms)
	} else if err != nil {
		return err
	}
	return nil
}

// IsStateDir checks if the given path contains a dupefiles state directory
func IsStateDir(basePath string) bool {
	info, err := os.Stat(filepath.Join(basePath, constants.StateDirName))
	return err == nil && info.IsDir()
}

// FindStateRoot traverses up from start to the nearest directory holding
// a state directory
func FindStateRoot(start string) (string, error) {
	currentDir, err := filepath.Abs(start)
	if err != nil {
		return "", err
	}

	for {
		if IsStateDir(currentDir) {
			return currentDir, nil
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			return "", fmt.Errorf("no %s directory found in the current path hierarchy", constants.StateDirName)
		}
		currentDir = parentDir
	}
}

// ResolveStateDir returns the state directory to use. An explicit override
// wins; otherwise the nearest existing one above the working directory is
// used, falling back to a new one in the working directory.
func ResolveStateDir(override string) (string, error) {
	if override != "" {
		abs, err := filepath.Abs(override)
		if err != nil {
			return "", fmt.Errorf("invalid state directory %s: %w", override, err)
		}
		return abs, EnsureDirectory(abs)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}

	root, err := FindStateRoot(cwd)
	if err != nil {
		root = cwd
	}
	dir := filepath.Join(root, constants.StateDirName)
	return dir, EnsureDirectory(dir)
}

// WriteFileAtomic writes data to a temporary file next to path and renames
// it into place, so a crash never leaves a half-written snapshot behind.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := EnsureDirectory(dir); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, constants.StandardFilePerms); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to move snapshot into place: %w", err)
	}
	return nil
}

// FileExists reports whether path resolves to an existing entry. Errors
// other than not-exist (permission denied on a parent, say) are returned.
func FileExists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// CanonicalPath returns the cleaned absolute form of path used as an index key
func CanonicalPath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	return filepath.Clean(abs), nil
}

// VerifyFileAndReturnFileInfo stats filePath and requires a regular file
func VerifyFileAndReturnFileInfo(filePath string) (os.FileInfo, error) {
	fileInfo, err := os.Stat(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("file does not exist: %s", filePath)
		}
		return nil, fmt.Errorf("error accessing file: %w", err)
	}

	if !fileInfo.Mode().IsRegular() {
		return nil, fmt.Errorf("%s is not a regular file", filePath)
	}
	return fileInfo, nil
}

package certificates

import (
	"errors"
	"io/fs"
	"os"
)

// FileSystem abstracts the file operations used by trust stores.
type FileSystem interface {
	FileExists(path string) (bool, error)
	EnsureDirectory(path string, permissions fs.FileMode) error
	ReadFile(path string) ([]byte, error)
	WriteFile(path string, content []byte, permissions fs.FileMode) error
	WriteTemporaryFile(directory string, pattern string, content []byte) (string, error)
	Remove(path string) error
}

// OperatingSystemFileSystem implements FileSystem against the local disk.
type OperatingSystemFileSystem struct{}

// NewOperatingSystemFileSystem constructs an OperatingSystemFileSystem.
func NewOperatingSystemFileSystem() OperatingSystemFileSystem {
	return OperatingSystemFileSystem{}
}

// FileExists reports whether a regular file exists at path.
func (OperatingSystemFileSystem) FileExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if err == nil {
		return !info.IsDir(), nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// EnsureDirectory creates path and any missing parents.
func (OperatingSystemFileSystem) EnsureDirectory(path string, permissions fs.FileMode) error {
	return os.MkdirAll(path, permissions)
}

// ReadFile returns the content of path.
func (OperatingSystemFileSystem) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// WriteFile replaces the content of path.
func (OperatingSystemFileSystem) WriteFile(path string, content []byte, permissions fs.FileMode) error {
	return os.WriteFile(path, content, permissions)
}

// WriteTemporaryFile creates a new file with a random name matching pattern inside directory,
// writes content, and returns its path. The file is created exclusively with mode 0600.
func (OperatingSystemFileSystem) WriteTemporaryFile(directory string, pattern string, content []byte) (string, error) {
	file, err := os.CreateTemp(directory, pattern)
	if err != nil {
		return "", err
	}
	path := file.Name()
	_, writeErr := file.Write(content)
	closeErr := file.Close()
	if writeErr != nil || closeErr != nil {
		_ = os.Remove(path)
		return "", errors.Join(writeErr, closeErr)
	}
	return path, nil
}

// Remove deletes path. Missing files are not an error.
func (OperatingSystemFileSystem) Remove(path string) error {
	err := os.Remove(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

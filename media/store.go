package media

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Store saves archived capture photos
type Store interface {
	// Save writes data to dir/filename under the store root and returns the relative path
	Save(dir string, filename string, data io.Reader) (string, error)
	// GetFullPath returns the absolute filesystem path for a relative asset path
	GetFullPath(relativePath string) (string, error)
}

// LocalStorage implements the Store interface using the local filesystem
type LocalStorage struct {
	basePath string // absolute root of the capture archive
}

// NewLocalStorage creates a new local filesystem store rooted at basePath
func NewLocalStorage(basePath string) (*LocalStorage, error) {
	absBasePath, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("invalid base storage path '%s': %w", basePath, err)
	}

	if err := os.MkdirAll(absBasePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base storage directory '%s': %w", absBasePath, err)
	}

	return &LocalStorage{basePath: absBasePath}, nil
}

// within reports whether path stays inside the store root
func (ls *LocalStorage) within(path string) bool {
	clean := filepath.Clean(path)
	return clean == ls.basePath || strings.HasPrefix(clean, ls.basePath+string(os.PathSeparator))
}

// Save data to the store under dir, which may be empty
func (ls *LocalStorage) Save(dir string, filename string, data io.Reader) (string, error) {
	if filename == "" || strings.ContainsAny(filename, `/\`) {
		return "", fmt.Errorf("invalid filename '%s' for LocalStorage.Save", filename)
	}

	targetDir := filepath.Join(ls.basePath, dir)
	if !ls.within(targetDir) {
		return "", fmt.Errorf("invalid directory '%s'", dir)
	}
	if err := os.MkdirAll(targetDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory '%s': %w", targetDir, err)
	}

	fullSavePath := filepath.Join(targetDir, filename)
	outFile, err := os.Create(fullSavePath)
	if err != nil {
		return "", fmt.Errorf("failed to create destination file '%s': %w", fullSavePath, err)
	}
	defer outFile.Close()

	if _, err := io.Copy(outFile, data); err != nil {
		outFile.Close()
		os.Remove(fullSavePath)
		return "", fmt.Errorf("failed to write data to '%s': %w", fullSavePath, err)
	}

	relativePath, err := filepath.Rel(ls.basePath, fullSavePath)
	if err != nil {
		return "", fmt.Errorf("internal error calculating relative path: %w", err)
	}
	return filepath.ToSlash(relativePath), nil
}

// GetFullPath calculates the absolute path and performs security check
func (ls *LocalStorage) GetFullPath(relativePath string) (string, error) {
	fullPath := filepath.Join(ls.basePath, filepath.Clean(relativePath))

	absFullPath, err := filepath.Abs(fullPath)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path for '%s': %w", relativePath, err)
	}
	if !ls.within(absFullPath) {
		return "", fmt.Errorf("invalid path: access denied for '%s'", relativePath)
	}
	return absFullPath, nil
}

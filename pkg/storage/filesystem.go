package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const maxSaveAttempts = 100

var (
	// ErrInvalidName is returned for file names that would escape the base directory.
	ErrInvalidName = errors.New("invalid file name")
	// ErrNameTaken is returned when every suffixed variant of a file name already exists.
	ErrNameTaken = errors.New("file name already taken")
)

// LocalStorage persists export artifacts on disk under a base directory.
type LocalStorage struct {
	baseDir string
}

// NewLocalStorage ensures the base directory exists and returns a handle.
func NewLocalStorage(baseDir string) (*LocalStorage, error) {
	if baseDir == "" {
		baseDir = "./exports"
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create exports directory: %w", err)
	}
	return &LocalStorage{baseDir: baseDir}, nil
}

// Save writes data to a new file under the base dir and returns the stored name and full path.
// Existing files are never overwritten: a taken name is retried as "<stem>-<n><ext>".
func (s *LocalStorage) Save(filename string, data []byte) (string, string, error) {
	if _, err := s.resolve(filename); err != nil {
		return "", "", err
	}
	if err := os.MkdirAll(s.baseDir, 0o755); err != nil {
		return "", "", fmt.Errorf("prepare export directory: %w", err)
	}
	ext := filepath.Ext(filename)
	stem := strings.TrimSuffix(filename, ext)
	for attempt := 0; attempt < maxSaveAttempts; attempt++ {
		name := filename
		if attempt > 0 {
			name = fmt.Sprintf("%s-%d%s", stem, attempt, ext)
		}
		path := filepath.Join(s.baseDir, name)
		file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", "", fmt.Errorf("create export file: %w", err)
		}
		if _, err := file.Write(data); err != nil {
			file.Close()    //nolint:errcheck
			os.Remove(path) //nolint:errcheck
			return "", "", fmt.Errorf("write export file: %w", err)
		}
		if err := file.Close(); err != nil {
			os.Remove(path) //nolint:errcheck
			return "", "", fmt.Errorf("close export file: %w", err)
		}
		return name, path, nil
	}
	return "", "", fmt.Errorf("save %s: %w", filename, ErrNameTaken)
}

// Open returns a read-only handle for the stored file.
func (s *LocalStorage) Open(filename string) (*os.File, error) {
	path, err := s.resolve(filename)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open export file: %w", err)
	}
	return file, nil
}

// Delete removes a stored file if present.
func (s *LocalStorage) Delete(filename string) error {
	path, err := s.resolve(filename)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete export file: %w", err)
	}
	return nil
}

// CleanupOlderThan removes files older than the provided TTL and returns deleted names.
func (s *LocalStorage) CleanupOlderThan(ttl time.Duration) ([]string, error) {
	cutoff := time.Now().Add(-ttl)
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return nil, fmt.Errorf("cleanup exports: %w", err)
	}
	deleted := make([]string, 0)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return deleted, fmt.Errorf("cleanup exports: %w", err)
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(s.baseDir, entry.Name())); err != nil && !os.IsNotExist(err) {
			return deleted, fmt.Errorf("cleanup exports: %w", err)
		}
		deleted = append(deleted, entry.Name())
	}
	return deleted, nil
}

// Path exposes the full path of a stored file.
func (s *LocalStorage) Path(filename string) string {
	return filepath.Join(s.baseDir, filepath.Base(filename))
}

func (s *LocalStorage) resolve(filename string) (string, error) {
	if filename == "" || filename != filepath.Base(filename) || strings.HasPrefix(filename, ".") || strings.ContainsAny(filename, `/\`) {
		return "", ErrInvalidName
	}
	return filepath.Join(s.baseDir, filename), nil
}

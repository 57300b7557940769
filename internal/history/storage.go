package history

import (
	"fmt"
	"os"
	"path/filepath"
)

// Storage defines the interface for file storage operations
type Storage interface {
	// Save saves a file and returns the name to fetch it by
	Save(filename string, data []byte) (string, error)

	// Get retrieves a file by name
	Get(name string) ([]byte, error)

	// Delete removes a file
	Delete(name string) error
}

// LocalStorage implements the Storage interface using local filesystem
type LocalStorage struct {
	basePath string
}

// NewLocalStorage creates a new LocalStorage instance
func NewLocalStorage(basePath string) (*LocalStorage, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("creating storage directory: %w", err)
	}

	return &LocalStorage{
		basePath: basePath,
	}, nil
}

// path keeps every name inside basePath
func (l *LocalStorage) path(name string) string {
	return filepath.Join(l.basePath, filepath.Base(name))
}

// Save saves a file to local storage
func (l *LocalStorage) Save(filename string, data []byte) (string, error) {
	name := filepath.Base(filename)
	if err := os.WriteFile(l.path(name), data, 0644); err != nil {
		return "", fmt.Errorf("writing file: %w", err)
	}
	return name, nil
}

// Get retrieves a file from local storage
func (l *LocalStorage) Get(name string) ([]byte, error) {
	data, err := os.ReadFile(l.path(name))
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}
	return data, nil
}

// Delete removes a file from local storage
func (l *LocalStorage) Delete(name string) error {
	if err := os.Remove(l.path(name)); err != nil {
		return fmt.Errorf("deleting file: %w", err)
	}
	return nil
}

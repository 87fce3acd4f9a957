// Package home manages the galley home directory layout.
package home

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// DefaultDirName is the default name for the galley home directory.
	DefaultDirName = ".galley"

	// PagesDirName is the subdirectory for rasterized page images.
	PagesDirName = "pages"

	// ConfigFileName is the default config file name.
	ConfigFileName = "config.yaml"

	// CacheFileName is the response cache database file name.
	CacheFileName = "cache.db"
)

// Dir represents the galley home directory structure.
type Dir struct {
	path string
}

// New creates a new Dir with the given path.
// If path is empty, uses the default (~/.galley).
func New(path string) (*Dir, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		path = filepath.Join(home, DefaultDirName)
	}

	return &Dir{path: path}, nil
}

// Path returns the root path of the home directory.
func (d *Dir) Path() string {
	return d.path
}

// ConfigPath returns the path to the default config file.
func (d *Dir) ConfigPath() string {
	return filepath.Join(d.path, ConfigFileName)
}

// CachePath returns the path to the response cache database.
func (d *Dir) CachePath() string {
	return filepath.Join(d.path, CacheFileName)
}

// PagesDir returns the directory holding rasterized page images for a document.
func (d *Dir) PagesDir(docID string) string {
	return filepath.Join(d.path, PagesDirName, docID)
}

// PagePath returns the path to a specific page image.
// Page numbers are 1-indexed.
func (d *Dir) PagePath(docID string, pageNum int) string {
	return filepath.Join(d.PagesDir(docID), fmt.Sprintf("page_%04d.png", pageNum))
}

// EnsurePagesDir creates the page image directory for a document.
func (d *Dir) EnsurePagesDir(docID string) error {
	return os.MkdirAll(d.PagesDir(docID), 0o755)
}

// EnsureExists creates the home directory if it doesn't exist.
func (d *Dir) EnsureExists() error {
	if err := os.MkdirAll(d.path, 0o755); err != nil {
		return fmt.Errorf("failed to create home directory: %w", err)
	}
	return nil
}

// Exists returns true if the home directory exists.
func (d *Dir) Exists() bool {
	_, err := os.Stat(d.path)
	return err == nil
}

// ConfigExists returns true if the config file exists in the home directory.
func (d *Dir) ConfigExists() bool {
	_, err := os.Stat(d.ConfigPath())
	return err == nil
}

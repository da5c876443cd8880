package home

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// DefaultDirName is the default name for the downloader home directory.
	DefaultDirName = ".mssdl"

	// StagingDirName is the subdirectory for in-flight page downloads.
	StagingDirName = "staging"

	// ConfigFileName is the default config file name.
	ConfigFileName = "config.yaml"
)

// Dir represents the downloader home directory structure.
type Dir struct {
	path string
}

// New creates a new Dir with the given path.
// If path is empty, uses the default (~/.mssdl).
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

// StagingPath returns the path to the staging directory.
func (d *Dir) StagingPath() string {
	return filepath.Join(d.path, StagingDirName)
}

// ConfigPath returns the path to the default config file.
func (d *Dir) ConfigPath() string {
	return filepath.Join(d.path, ConfigFileName)
}

// EnsureExists creates the home directory and subdirectories if they don't exist.
func (d *Dir) EnsureExists() error {
	// Create staging directory (this also creates the parent)
	if err := os.MkdirAll(d.StagingPath(), 0o755); err != nil {
		return fmt.Errorf("failed to create staging directory: %w", err)
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

// DownloadDir returns the staging directory for one manuscript download.
// The id is expected to be unique per download attempt.
func (d *Dir) DownloadDir(id string) string {
	return filepath.Join(d.StagingPath(), id)
}

// PagePath returns the staging path for a single page image.
// Page numbers are 0-indexed to match manifest page indices.
func (d *Dir) PagePath(id string, index int) string {
	return filepath.Join(d.DownloadDir(id), fmt.Sprintf("page_%04d.jpg", index))
}

// EnsureDownloadDir creates the staging directory for a download.
func (d *Dir) EnsureDownloadDir(id string) error {
	return os.MkdirAll(d.DownloadDir(id), 0o755)
}

// CleanupDownloadDir removes the staging directory for a download.
func (d *Dir) CleanupDownloadDir(id string) error {
	return os.RemoveAll(d.DownloadDir(id))
}

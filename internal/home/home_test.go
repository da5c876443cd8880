package home

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDir(t *testing.T) {
	t.Run("explicit path", func(t *testing.T) {
		root := t.TempDir()
		d, err := New(root)
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}
		if d.Path() != root {
			t.Errorf("Path() = %q, want %q", d.Path(), root)
		}
		if want := filepath.Join(root, "staging"); d.StagingPath() != want {
			t.Errorf("StagingPath() = %q, want %q", d.StagingPath(), want)
		}
		if want := filepath.Join(root, "config.yaml"); d.ConfigPath() != want {
			t.Errorf("ConfigPath() = %q, want %q", d.ConfigPath(), want)
		}
	})

	t.Run("default path under user home", func(t *testing.T) {
		d, err := New("")
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}
		if filepath.Base(d.Path()) != DefaultDirName {
			t.Errorf("Path() = %q, want basename %q", d.Path(), DefaultDirName)
		}
	})

	t.Run("EnsureExists creates staging", func(t *testing.T) {
		root := filepath.Join(t.TempDir(), "nested")
		d, err := New(root)
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}
		if d.Exists() {
			t.Error("Exists() = true before creation")
		}
		if err := d.EnsureExists(); err != nil {
			t.Fatalf("EnsureExists() error = %v", err)
		}
		if !d.Exists() {
			t.Error("Exists() = false after creation")
		}
		info, err := os.Stat(d.StagingPath())
		if err != nil || !info.IsDir() {
			t.Errorf("staging dir not created: %v", err)
		}
	})

	t.Run("download paths", func(t *testing.T) {
		root := t.TempDir()
		d, err := New(root)
		if err != nil {
			t.Fatalf("New() error = %v", err)
		}
		if err := d.EnsureDownloadDir("abc123"); err != nil {
			t.Fatalf("EnsureDownloadDir() error = %v", err)
		}
		want := filepath.Join(root, "staging", "abc123", "page_0007.jpg")
		if got := d.PagePath("abc123", 7); got != want {
			t.Errorf("PagePath() = %q, want %q", got, want)
		}
		if err := d.CleanupDownloadDir("abc123"); err != nil {
			t.Fatalf("CleanupDownloadDir() error = %v", err)
		}
		if _, err := os.Stat(d.DownloadDir("abc123")); !os.IsNotExist(err) {
			t.Error("download dir still present after cleanup")
		}
	})
}

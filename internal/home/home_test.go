package home

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNew(t *testing.T) {
	t.Run("with explicit path", func(t *testing.T) {
		dir, err := New("/tmp/test-galley")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if dir.Path() != "/tmp/test-galley" {
			t.Errorf("expected path /tmp/test-galley, got %s", dir.Path())
		}
	})

	t.Run("with empty path uses default", func(t *testing.T) {
		dir, err := New("")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		home, _ := os.UserHomeDir()
		expected := filepath.Join(home, DefaultDirName)
		if dir.Path() != expected {
			t.Errorf("expected path %s, got %s", expected, dir.Path())
		}
	})
}

func TestDir_Paths(t *testing.T) {
	dir, _ := New("/tmp/test-galley")

	t.Run("ConfigPath", func(t *testing.T) {
		expected := "/tmp/test-galley/config.yaml"
		if dir.ConfigPath() != expected {
			t.Errorf("expected %s, got %s", expected, dir.ConfigPath())
		}
	})

	t.Run("CachePath", func(t *testing.T) {
		expected := "/tmp/test-galley/cache.db"
		if dir.CachePath() != expected {
			t.Errorf("expected %s, got %s", expected, dir.CachePath())
		}
	})

	t.Run("PagePath", func(t *testing.T) {
		expected := "/tmp/test-galley/pages/doc1/page_0007.png"
		if dir.PagePath("doc1", 7) != expected {
			t.Errorf("expected %s, got %s", expected, dir.PagePath("doc1", 7))
		}
	})
}

func TestDir_EnsureExists(t *testing.T) {
	tmpDir := t.TempDir()
	galleyDir := filepath.Join(tmpDir, "galley-test")

	dir, err := New(galleyDir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if dir.Exists() {
		t.Fatal("directory should not exist yet")
	}

	if err := dir.EnsureExists(); err != nil {
		t.Fatalf("EnsureExists failed: %v", err)
	}

	if !dir.Exists() {
		t.Error("directory should exist after EnsureExists")
	}

	if err := dir.EnsurePagesDir("doc1"); err != nil {
		t.Fatalf("EnsurePagesDir failed: %v", err)
	}
	if _, err := os.Stat(dir.PagesDir("doc1")); err != nil {
		t.Errorf("pages dir should exist: %v", err)
	}
}

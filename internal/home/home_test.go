package home

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNew(t *testing.T) {
	t.Run("with explicit path", func(t *testing.T) {
		dir, err := New("/tmp/test-ieltsmeta")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if dir.Path() != "/tmp/test-ieltsmeta" {
			t.Errorf("expected path /tmp/test-ieltsmeta, got %s", dir.Path())
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

func TestDir_ConfigPath(t *testing.T) {
	dir, _ := New("/tmp/test-ieltsmeta")
	expected := "/tmp/test-ieltsmeta/config.yaml"
	if dir.ConfigPath() != expected {
		t.Errorf("expected %s, got %s", expected, dir.ConfigPath())
	}
}

func TestDir_EnsureExists(t *testing.T) {
	tmpDir := t.TempDir()
	dir, _ := New(filepath.Join(tmpDir, "nested", "home"))

	if dir.Exists() {
		t.Fatal("directory should not exist yet")
	}
	if err := dir.EnsureExists(); err != nil {
		t.Fatalf("EnsureExists() error = %v", err)
	}
	if !dir.Exists() {
		t.Error("directory should exist after EnsureExists")
	}
	if dir.ConfigExists() {
		t.Error("config should not exist yet")
	}
}

func TestDir_ResolveConfigFile(t *testing.T) {
	dir, _ := New(t.TempDir())

	if got := dir.ResolveConfigFile("/etc/ieltsmeta.yaml"); got != "/etc/ieltsmeta.yaml" {
		t.Errorf("explicit path: got %q", got)
	}
	if got := dir.ResolveConfigFile(""); got != "" {
		t.Errorf("no config: got %q, want empty", got)
	}

	if err := os.WriteFile(dir.ConfigPath(), []byte("log:\n  level: info\n"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if got := dir.ResolveConfigFile(""); got != dir.ConfigPath() {
		t.Errorf("home config: got %q, want %q", got, dir.ConfigPath())
	}
}

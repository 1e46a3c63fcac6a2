package fileutil

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTestFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := EnsureDirForFile(path); err != nil {
		t.Fatalf("ensure dir for %s: %v", name, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write test file %s: %v", name, err)
	}
}

func TestReadTree_Sorted(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeTestFile(t, dir, "c.conf", "c")
	writeTestFile(t, dir, "a.conf", "a")
	writeTestFile(t, dir, "sub/b.conf", "b")

	files, err := ReadTree(dir)
	if err != nil {
		t.Fatalf("ReadTree() error: %v", err)
	}

	want := []string{"a.conf", "c.conf", "sub/b.conf"}
	if len(files) != len(want) {
		t.Fatalf("ReadTree() returned %d files, want %d", len(files), len(want))
	}
	for i, f := range files {
		if f.RelPath != want[i] {
			t.Errorf("files[%d].RelPath = %q, want %q", i, f.RelPath, want[i])
		}
	}
	if string(files[2].Content) != "b" {
		t.Errorf("files[2].Content = %q, want %q", files[2].Content, "b")
	}
}

func TestReadTree_EmptyDir(t *testing.T) {
	t.Parallel()

	files, err := ReadTree(t.TempDir())
	if err != nil {
		t.Fatalf("ReadTree() error: %v", err)
	}
	if len(files) != 0 {
		t.Errorf("ReadTree() returned %d files for an empty dir", len(files))
	}
}

func TestReadTree_MissingDir(t *testing.T) {
	t.Parallel()

	if _, err := ReadTree(filepath.Join(t.TempDir(), "absent")); err == nil {
		t.Error("ReadTree() on a missing directory should return an error")
	}
}

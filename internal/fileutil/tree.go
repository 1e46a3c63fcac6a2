package fileutil

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
)

// TreeFile is a regular file found under a directory, with its path relative
// to that directory and the content read during the walk.
type TreeFile struct {
	RelPath string
	Content []byte
}

// ReadTree returns every regular file below dir, sorted by relative path so
// that callers hashing the result get the same digest on every run.
// Symlinks and other special files are skipped.
func ReadTree(dir string) ([]TreeFile, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk directory %s: %w", dir, err)
	}
	slices.Sort(paths)

	files := make([]TreeFile, 0, len(paths))
	for _, p := range paths {
		content, readErr := os.ReadFile(p)
		if readErr != nil {
			return nil, fmt.Errorf("read %s: %w", p, readErr)
		}
		rel, relErr := filepath.Rel(dir, p)
		if relErr != nil {
			return nil, fmt.Errorf("rel path: %w", relErr)
		}
		files = append(files, TreeFile{RelPath: filepath.ToSlash(rel), Content: content})
	}
	return files, nil
}

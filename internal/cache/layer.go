package cache

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// layer is the directory-backed store each concrete cache layer embeds. The
// directory is guaranteed to exist after construction.
type layer struct {
	dir string
}

func newLayer(dir string) (layer, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return layer{}, errors.New("cache: layer directory required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return layer{}, fmt.Errorf("cache: create layer directory %s: %w", dir, err)
	}
	return layer{dir: dir}, nil
}

// Dir returns the layer's backing directory.
func (l layer) Dir() string { return l.dir }

func (l layer) filePath(name string) string {
	return filepath.Join(l.dir, name)
}

// fileExists re-stats on every call; existence checks are never memoized.
func (l layer) fileExists(name string) bool {
	info, err := os.Stat(l.filePath(name))
	return err == nil && !info.IsDir()
}

// invalidateFile deletes the named file, reporting whether a deletion
// occurred. Absence is not an error.
func (l layer) invalidateFile(name string) (bool, error) {
	err := os.Remove(l.filePath(name))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("cache: invalidate %s: %w", name, err)
}

// clearFiles deletes every regular file directly within the layer directory
// (non-recursive) and returns the count deleted.
func (l layer) clearFiles() (int, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return 0, fmt.Errorf("cache: list %s: %w", l.dir, err)
	}
	count := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if err := os.Remove(filepath.Join(l.dir, entry.Name())); err != nil {
			return count, fmt.Errorf("cache: clear %s: %w", entry.Name(), err)
		}
		count++
	}
	return count, nil
}

// globFiles returns the names of files matching pattern within the layer.
func (l layer) globFiles(pattern string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(l.dir, pattern))
	if err != nil {
		return nil, fmt.Errorf("cache: glob %s: %w", pattern, err)
	}
	names := make([]string, 0, len(matches))
	for _, match := range matches {
		names = append(names, filepath.Base(match))
	}
	return names, nil
}

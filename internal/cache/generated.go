package cache

import "strings"

// GeneratedLayer stores generator output (layer 0). Keys come from each
// source's CacheKey; the layer itself never derives keys.
type GeneratedLayer struct {
	layer
}

// DefaultGeneratedExt is used when a caller does not name an extension.
const DefaultGeneratedExt = ".mp4"

// NewGeneratedLayer creates the layer rooted at dir.
func NewGeneratedLayer(dir string) (*GeneratedLayer, error) {
	base, err := newLayer(dir)
	if err != nil {
		return nil, err
	}
	return &GeneratedLayer{layer: base}, nil
}

// Path maps a key and extension to the cached file location. Pure apart from
// directory creation at construction time.
func (g *GeneratedLayer) Path(key, ext string) string {
	return g.filePath(key + normalizeExt(ext))
}

// Exists reports whether the artifact for key is on disk.
func (g *GeneratedLayer) Exists(key, ext string) bool {
	return g.fileExists(key + normalizeExt(ext))
}

// Invalidate deletes the artifact for key if present.
func (g *GeneratedLayer) Invalidate(key, ext string) (bool, error) {
	return g.invalidateFile(key + normalizeExt(ext))
}

// Clear removes every cached artifact in this layer.
func (g *GeneratedLayer) Clear() (int, error) {
	return g.clearFiles()
}

func normalizeExt(ext string) string {
	ext = strings.TrimSpace(ext)
	if ext == "" {
		return DefaultGeneratedExt
	}
	if !strings.HasPrefix(ext, ".") {
		return "." + ext
	}
	return ext
}

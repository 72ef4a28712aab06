package cache

import "fmt"

// CombinedLayer stores segment video with narration audio mixed in (layer 3).
// The engine name participates in the file name because the same segment can
// carry audio from several engines; voice selection is folded into the
// engine's own cache key upstream.
type CombinedLayer struct {
	layer
}

// NewCombinedLayer creates the layer rooted at dir.
func NewCombinedLayer(dir string) (*CombinedLayer, error) {
	base, err := newLayer(dir)
	if err != nil {
		return nil, err
	}
	return &CombinedLayer{layer: base}, nil
}

// PathFor maps a combined-segment identity to its cached location.
func (c *CombinedLayer) PathFor(segmentID, mode, engine string) string {
	return c.filePath(combinedFileName(segmentID, mode, engine))
}

// PathKey maps an opaque key to a cached location.
func (c *CombinedLayer) PathKey(key string) string {
	return c.filePath(key + ".mp4")
}

// ExistsFor reports whether the combined segment is cached.
func (c *CombinedLayer) ExistsFor(segmentID, mode, engine string) bool {
	return c.fileExists(combinedFileName(segmentID, mode, engine))
}

// InvalidateFor deletes cached combined artifacts. An empty engine acts as a
// wildcard over every engine variant, because a segment-layer invalidation
// upstream affects all of them; the count of deleted files is returned.
func (c *CombinedLayer) InvalidateFor(segmentID, mode, engine string) (int, error) {
	if engine != "" {
		deleted, err := c.invalidateFile(combinedFileName(segmentID, mode, engine))
		if err != nil {
			return 0, err
		}
		if deleted {
			return 1, nil
		}
		return 0, nil
	}

	names, err := c.globFiles(fmt.Sprintf("segment_%s_%s_*.mp4", segmentID, mode))
	if err != nil {
		return 0, err
	}
	count := 0
	for _, name := range names {
		deleted, err := c.invalidateFile(name)
		if err != nil {
			return count, err
		}
		if deleted {
			count++
		}
	}
	return count, nil
}

// Clear removes every cached combined segment.
func (c *CombinedLayer) Clear() (int, error) {
	return c.clearFiles()
}

func combinedFileName(segmentID, mode, engine string) string {
	return fmt.Sprintf("segment_%s_%s_%s.mp4", segmentID, mode, engine)
}

package cache

import "fmt"

// SegmentsLayer stores rendered segment video without audio (layer 2).
//
// Two addressing modes resolve to the same file for equivalent inputs:
// structured identity (segment id + resolution mode) or an opaque
// precomputed key. Callers use whichever is at hand.
type SegmentsLayer struct {
	layer
}

// NewSegmentsLayer creates the layer rooted at dir.
func NewSegmentsLayer(dir string) (*SegmentsLayer, error) {
	base, err := newLayer(dir)
	if err != nil {
		return nil, err
	}
	return &SegmentsLayer{layer: base}, nil
}

// PathFor maps a segment identity to its cached video location.
func (s *SegmentsLayer) PathFor(segmentID, mode string) string {
	return s.filePath(segmentFileName(segmentID, mode))
}

// PathKey maps an opaque key to a cached video location.
func (s *SegmentsLayer) PathKey(key string) string {
	return s.filePath(key + ".mp4")
}

// ExistsFor reports whether the segment video is cached.
func (s *SegmentsLayer) ExistsFor(segmentID, mode string) bool {
	return s.fileExists(segmentFileName(segmentID, mode))
}

// InvalidateFor deletes the cached segment video if present.
func (s *SegmentsLayer) InvalidateFor(segmentID, mode string) (bool, error) {
	return s.invalidateFile(segmentFileName(segmentID, mode))
}

// Clear removes every cached segment video.
func (s *SegmentsLayer) Clear() (int, error) {
	return s.clearFiles()
}

func segmentFileName(segmentID, mode string) string {
	return fmt.Sprintf("segment_%s_%s.mp4", segmentID, mode)
}

package cache

import (
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// LayerStats describes one layer's usage.
type LayerStats struct {
	Entries    int   `json:"entries"`
	TotalBytes int64 `json:"total_bytes"`
}

// Stats describes cache usage across layers plus filesystem headroom.
type Stats struct {
	Generated LayerStats `json:"generated"`
	TTS       LayerStats `json:"tts"`
	Segments  LayerStats `json:"segments"`
	Combined  LayerStats `json:"combined"`
	FreeBytes uint64     `json:"free_bytes"`
	FreeRatio float64    `json:"free_ratio"`
}

// Stats scans each layer directory and reports entry counts, byte totals, and
// free space on the cache volume.
func (m *Manager) Stats() (Stats, error) {
	var s Stats
	var err error
	if s.Generated, err = scanLayer(m.Generated.Dir()); err != nil {
		return s, err
	}
	if s.TTS, err = scanLayer(m.TTS.Dir()); err != nil {
		return s, err
	}
	if s.Segments, err = scanLayer(m.Segments.Dir()); err != nil {
		return s, err
	}
	if s.Combined, err = scanLayer(m.Combined.Dir()); err != nil {
		return s, err
	}

	var fsStat unix.Statfs_t
	if err := unix.Statfs(m.base, &fsStat); err != nil {
		return s, err
	}
	total := fsStat.Blocks * uint64(fsStat.Bsize)
	s.FreeBytes = fsStat.Bavail * uint64(fsStat.Bsize)
	if total > 0 {
		s.FreeRatio = float64(s.FreeBytes) / float64(total)
	} else {
		s.FreeRatio = 1.0
	}
	return s, nil
}

func scanLayer(dir string) (LayerStats, error) {
	var stats LayerStats
	entries, err := os.ReadDir(dir)
	if err != nil {
		return stats, err
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := os.Stat(filepath.Join(dir, entry.Name()))
		if err != nil {
			continue
		}
		stats.Entries++
		stats.TotalBytes += info.Size()
	}
	return stats, nil
}

package config

import (
	"fmt"
	"strings"
)

var validSyncStrategies = map[string]struct{}{
	"extend_video": {},
	"extend_audio": {},
	"truncate":     {},
	"speed_adjust": {},
}

// Validate reports the first configuration problem found. Unknown values are
// rejected here rather than silently defaulted.
func (p *Project) Validate() error {
	if p.FPS <= 0 {
		return fmt.Errorf("config: fps must be positive, got %d", p.FPS)
	}
	if strings.TrimSpace(p.OutputDir) == "" {
		return fmt.Errorf("config: output_dir is required")
	}
	if strings.TrimSpace(p.CacheDir) == "" {
		return fmt.Errorf("config: cache_dir is required")
	}
	strategy := strings.TrimSpace(p.AudioSync.Strategy)
	if _, ok := validSyncStrategies[strategy]; !ok {
		return fmt.Errorf("config: unknown audio_sync.strategy %q (valid: extend_video, extend_audio, truncate, speed_adjust)", strategy)
	}
	if p.AudioSync.PaddingStart < 0 || p.AudioSync.PaddingEnd < 0 {
		return fmt.Errorf("config: audio padding must not be negative")
	}
	if p.AudioSync.SpeedTolerance < 0 {
		return fmt.Errorf("config: audio_sync.speed_tolerance must not be negative")
	}
	if p.Tools.FrameExtractTimeout <= 0 {
		return fmt.Errorf("config: tools.frame_extract_timeout must be positive")
	}
	if p.Remotion.TimeoutPerRender <= 0 {
		return fmt.Errorf("config: remotion.timeout_per_render must be positive")
	}
	return nil
}

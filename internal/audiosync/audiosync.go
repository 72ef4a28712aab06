package audiosync

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"

	"vidkit/internal/config"
	"vidkit/internal/logging"
	"vidkit/internal/media"
	"vidkit/internal/services"
)

// Strategy names accepted in configuration.
const (
	StrategyExtendVideo = "extend_video"
	StrategyExtendAudio = "extend_audio"
	StrategyTruncate    = "truncate"
	StrategySpeedAdjust = "speed_adjust"
)

// Synchronizer applies one audio sync policy across a whole project.
type Synchronizer struct {
	strategy  string
	padStart  float64
	padEnd    float64
	tolerance float64
	tools     *media.Toolchain
	logger    *slog.Logger
}

// New builds a synchronizer from the project's audio sync settings.
func New(cfg config.AudioSync, tools *media.Toolchain, logger *slog.Logger) (*Synchronizer, error) {
	switch cfg.Strategy {
	case StrategyExtendVideo, StrategyExtendAudio, StrategyTruncate, StrategySpeedAdjust:
	default:
		return nil, services.Wrap(services.ErrConfiguration, "audiosync", "new", fmt.Sprintf("unknown strategy %q", cfg.Strategy), nil)
	}
	return &Synchronizer{
		strategy:  cfg.Strategy,
		padStart:  cfg.PaddingStart,
		padEnd:    cfg.PaddingEnd,
		tolerance: cfg.SpeedTolerance,
		tools:     tools,
		logger:    logging.NewComponentLogger(logger, "audiosync"),
	}, nil
}

// paddedAudio is the narration length plus the configured lead-in and
// tail silence. Zero narration stays zero; padding only wraps real speech.
func (s *Synchronizer) paddedAudio(audioLen float64) float64 {
	if audioLen <= 0 {
		return 0
	}
	return audioLen + s.padStart + s.padEnd
}

// CalculateDuration returns the final segment duration for the given
// video and narration lengths without touching any files. A segment with
// no narration always keeps its video duration.
func (s *Synchronizer) CalculateDuration(videoLen, audioLen float64) float64 {
	padded := s.paddedAudio(audioLen)
	if padded <= 0 {
		return videoLen
	}
	switch s.strategy {
	case StrategyTruncate:
		return math.Min(videoLen, padded)
	case StrategySpeedAdjust:
		if s.withinTolerance(videoLen, padded) {
			return videoLen
		}
		// Out of tolerance retimes would be audibly wrong, so the policy
		// degrades to extending whichever track is shorter.
		return math.Max(videoLen, padded)
	default: // extend_video, extend_audio
		return math.Max(videoLen, padded)
	}
}

func (s *Synchronizer) withinTolerance(videoLen, padded float64) bool {
	if videoLen <= 0 || padded <= 0 {
		return false
	}
	factor := videoLen / padded
	return math.Abs(factor-1) <= s.tolerance
}

// Sync muxes the narration onto the video according to the strategy,
// writing the combined artifact to out. It returns the final duration.
func (s *Synchronizer) Sync(ctx context.Context, video string, videoLen float64, audio string, audioLen float64, out string) (float64, error) {
	padded := s.paddedAudio(audioLen)
	if padded <= 0 {
		return 0, services.Wrap(services.ErrValidation, "audiosync", "sync", "no narration audio to sync", nil)
	}
	target := s.CalculateDuration(videoLen, audioLen)
	s.logger.Debug("syncing tracks",
		logging.String("strategy", s.strategy),
		logging.Float64("video_len", videoLen),
		logging.Float64("audio_len", audioLen),
		logging.Float64("target", target))

	workVideo := video
	cleanup := func() {}
	adjusted, err := s.adjustVideo(ctx, video, videoLen, target, out)
	if err != nil {
		return 0, err
	}
	if adjusted != "" {
		workVideo = adjusted
		cleanup = func() { os.Remove(adjusted) }
	}
	defer cleanup()

	// Under speed_adjust the audio keeps its natural padded length through
	// padding and is then retimed to land exactly on the video length.
	retime := s.strategy == StrategySpeedAdjust &&
		s.withinTolerance(videoLen, padded) &&
		math.Abs(padded-target) > epsilon
	padTo := target
	if retime {
		padTo = padded
	}
	paddedPath := tempPath(out, ".padded.wav")
	defer os.Remove(paddedPath)
	if err := s.tools.PadAudio(ctx, audio, s.padStart, padTo, paddedPath); err != nil {
		return 0, err
	}
	finalAudio := paddedPath
	if retime {
		retimed := tempPath(out, ".retimed.wav")
		defer os.Remove(retimed)
		if err := s.tools.AudioTempo(ctx, paddedPath, padded/target, retimed); err != nil {
			return 0, err
		}
		finalAudio = retimed
	}
	if err := s.tools.MuxAudio(ctx, workVideo, finalAudio, target, out); err != nil {
		return 0, err
	}
	return target, nil
}

const epsilon = 0.01

// adjustVideo produces an extended or trimmed copy of the video when the
// strategy requires one, returning its path or "" when the original can be
// muxed directly. speed_adjust never touches the video: within tolerance
// the target is the video length, and beyond tolerance it degrades to the
// extend_video behavior.
func (s *Synchronizer) adjustVideo(ctx context.Context, video string, videoLen, target float64, out string) (string, error) {
	switch s.strategy {
	case StrategySpeedAdjust, StrategyExtendVideo, StrategyExtendAudio:
		if target > videoLen+epsilon {
			extended := tempPath(out, ".extended"+filepath.Ext(out))
			if err := s.tools.FreezeExtend(ctx, video, target, extended); err != nil {
				return "", err
			}
			return extended, nil
		}
	case StrategyTruncate:
		if target < videoLen-epsilon {
			trimmed := tempPath(out, ".trimmed"+filepath.Ext(out))
			if err := s.tools.TrimVideo(ctx, video, target, trimmed); err != nil {
				return "", err
			}
			return trimmed, nil
		}
	}
	return "", nil
}

func tempPath(out, suffix string) string {
	return out + suffix
}

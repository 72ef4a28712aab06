package media

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"vidkit/internal/config"
	"vidkit/internal/logging"
	"vidkit/internal/services"
)

const probeCacheSize = 256

// Toolchain invokes ffmpeg and ffprobe on behalf of the build pipeline.
type Toolchain struct {
	ffmpeg       string
	ffprobe      string
	codec        string
	audioCodec   string
	preset       string
	frameTimeout time.Duration
	exec         Executor
	logger       *slog.Logger
	probes       *lru.Cache[string, float64]
}

// Option configures the toolchain.
type Option func(*Toolchain)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(t *Toolchain) {
		if exec != nil {
			t.exec = exec
		}
	}
}

// NewToolchain builds a toolchain from project configuration.
func NewToolchain(cfg *config.Project, logger *slog.Logger, opts ...Option) (*Toolchain, error) {
	probes, err := lru.New[string, float64](probeCacheSize)
	if err != nil {
		return nil, fmt.Errorf("media: probe cache: %w", err)
	}
	t := &Toolchain{
		ffmpeg:       cfg.Tools.FFmpeg,
		ffprobe:      cfg.Tools.FFprobe,
		codec:        cfg.Codec,
		audioCodec:   cfg.AudioCodec,
		preset:       cfg.Preset,
		frameTimeout: time.Duration(cfg.Tools.FrameExtractTimeout) * time.Second,
		exec:         commandExecutor{},
		logger:       logging.NewComponentLogger(logger, "media"),
		probes:       probes,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// ProbeDuration returns the duration of a media file in seconds. Results are
// memoized per path; invalidated artifacts get fresh paths through the cache
// layers, so the memo never serves a stale file.
func (t *Toolchain) ProbeDuration(ctx context.Context, path string) (float64, error) {
	if cached, ok := t.probes.Get(path); ok {
		return cached, nil
	}
	stdout, stderr, err := t.exec.Run(ctx, t.ffprobe, []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	})
	if err != nil {
		return 0, services.Wrap(services.ErrExternalTool, "media", "probe", exitDetail(stderr), err)
	}
	duration, err := strconv.ParseFloat(strings.TrimSpace(stdout), 64)
	if err != nil {
		return 0, services.Wrap(services.ErrExternalTool, "media", "probe", fmt.Sprintf("unparseable duration %q for %s", strings.TrimSpace(stdout), path), err)
	}
	t.probes.Add(path, duration)
	return duration, nil
}

// HasAudioStream reports whether the file carries at least one audio stream.
func (t *Toolchain) HasAudioStream(ctx context.Context, path string) (bool, error) {
	stdout, stderr, err := t.exec.Run(ctx, t.ffprobe, []string{
		"-v", "error",
		"-select_streams", "a",
		"-show_entries", "stream=index",
		"-of", "csv=p=0",
		path,
	})
	if err != nil {
		return false, services.Wrap(services.ErrExternalTool, "media", "probe audio", exitDetail(stderr), err)
	}
	return strings.TrimSpace(stdout) != "", nil
}

// runFFmpeg executes ffmpeg with -y prepended, classifying failures.
func (t *Toolchain) runFFmpeg(ctx context.Context, operation string, args []string) error {
	full := append([]string{"-y", "-hide_banner", "-loglevel", "error"}, args...)
	t.logger.Debug("ffmpeg", logging.String("operation", operation), logging.String("args", strings.Join(full, " ")))
	_, stderr, err := t.exec.Run(ctx, t.ffmpeg, full)
	if err != nil {
		if isTimeout(ctx, err) {
			return services.Wrap(services.ErrTimeout, "media", operation, "ffmpeg timed out", err)
		}
		return services.Wrap(services.ErrExternalTool, "media", operation, exitDetail(stderr), err)
	}
	return nil
}

func (t *Toolchain) encodeArgs() []string {
	return []string{"-c:v", t.codec, "-preset", t.preset, "-pix_fmt", "yuv420p"}
}

func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}

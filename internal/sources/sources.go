package sources

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"vidkit/internal/cache"
	"vidkit/internal/cachekey"
	"vidkit/internal/config"
	"vidkit/internal/media"
	"vidkit/internal/services"
)

// RenderEnv carries the shared machinery a source needs to materialize a
// clip.
type RenderEnv struct {
	Config    *config.Project
	Tools     *media.Toolchain
	Generated *cache.GeneratedLayer
	Logger    *slog.Logger
}

// Source produces a file-backed clip on demand. CacheKey must be stable
// across runs for identical inputs and change whenever any generation input
// changes.
type Source interface {
	CacheKey() string
	Clip(ctx context.Context, env *RenderEnv) (media.Clip, error)
}

// Asset wraps an existing media file on disk.
type Asset struct {
	Path string
}

// NewAsset returns a source backed by an existing file.
func NewAsset(path string) *Asset {
	return &Asset{Path: path}
}

// CacheKey derives from the source type and path. Asset content is not
// hashed; replacing the file in place requires a manual invalidation.
func (a *Asset) CacheKey() string {
	return cachekey.Generate(map[string]any{
		"type": "asset",
		"path": a.Path,
	})
}

// Clip probes the asset and returns it as-is.
func (a *Asset) Clip(ctx context.Context, env *RenderEnv) (media.Clip, error) {
	if _, err := os.Stat(a.Path); err != nil {
		return media.Clip{}, services.Wrap(services.ErrValidation, "sources", "asset", fmt.Sprintf("missing asset %s", a.Path), err)
	}
	duration, err := env.Tools.ProbeDuration(ctx, a.Path)
	if err != nil {
		return media.Clip{}, err
	}
	hasAudio, err := env.Tools.HasAudioStream(ctx, a.Path)
	if err != nil {
		return media.Clip{}, err
	}
	return media.Clip{Path: a.Path, Duration: duration, HasAudio: hasAudio}, nil
}

// Placeholder renders a labeled solid-color card where real footage is not
// available yet.
type Placeholder struct {
	Text       string
	Duration   float64
	Background media.Color
}

// NewPlaceholder returns a placeholder card source.
func NewPlaceholder(text string, duration float64) *Placeholder {
	return &Placeholder{Text: text, Duration: duration, Background: media.ColorCardGray}
}

func (p *Placeholder) CacheKey() string {
	return cachekey.Generate(map[string]any{
		"type":       "placeholder",
		"text":       p.Text,
		"duration":   p.Duration,
		"background": p.Background.Hex(),
	})
}

// Clip renders the card through the generated cache layer.
func (p *Placeholder) Clip(ctx context.Context, env *RenderEnv) (media.Clip, error) {
	return throughGeneratedCache(ctx, env, p.CacheKey(), cache.DefaultGeneratedExt, func(ctx context.Context, out string) error {
		spec := media.CardSpec{
			Title:      p.Text,
			Duration:   p.Duration,
			Width:      env.Config.Width(),
			Height:     env.Config.Height(),
			FPS:        env.Config.FPS,
			Background: p.Background,
			TitleColor: media.ColorInk,
			SubColor:   media.ColorSubtleInk,
		}
		return env.Tools.RenderCard(ctx, spec, out)
	})
}

// throughGeneratedCache returns the cached artifact for key when present,
// otherwise invokes render to produce it. The artifact is probed on every
// return so callers always get a real duration.
func throughGeneratedCache(ctx context.Context, env *RenderEnv, key, ext string, render func(ctx context.Context, out string) error) (media.Clip, error) {
	path := env.Generated.Path(key, ext)
	if !env.Generated.Exists(key, ext) {
		if err := render(ctx, path); err != nil {
			return media.Clip{}, err
		}
	}
	duration, err := env.Tools.ProbeDuration(ctx, path)
	if err != nil {
		return media.Clip{}, err
	}
	hasAudio, err := env.Tools.HasAudioStream(ctx, path)
	if err != nil {
		return media.Clip{}, err
	}
	return media.Clip{Path: path, Duration: duration, HasAudio: hasAudio}, nil
}

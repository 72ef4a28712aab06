package segments

import (
	"context"
	"os"
	"path/filepath"

	"vidkit/internal/services"
	"vidkit/internal/sources"
)

// Video renders footage from a source. Duration defaults to the source's
// own length; an explicit Length trims or freeze-extends to match.
type Video struct {
	Base
	Source sources.Source
	Length float64
}

// NewVideo constructs a video segment over a source.
func NewVideo(id string, src sources.Source) *Video {
	return &Video{Base: NewBase(id), Source: src}
}

func (v *Video) Duration(ctx context.Context, env *sources.RenderEnv) (float64, error) {
	if v.Length > 0 {
		return v.Length, nil
	}
	if v.Source == nil {
		return 0, services.Wrap(services.ErrValidation, "segments", "video", "video segment "+v.ID()+" has no source", nil)
	}
	clip, err := v.Source.Clip(ctx, env)
	if err != nil {
		return 0, err
	}
	return clip.Duration, nil
}

func (v *Video) Render(ctx context.Context, env *sources.RenderEnv, out string) error {
	if v.Source == nil {
		return services.Wrap(services.ErrValidation, "segments", "video", "video segment "+v.ID()+" has no source", nil)
	}
	clip, err := v.Source.Clip(ctx, env)
	if err != nil {
		return err
	}
	adjust := v.Length > 0 && v.Length != clip.Duration
	target := out
	if adjust {
		target = out + ".norm" + filepath.Ext(out)
		defer os.Remove(target)
	}
	if err := env.Tools.NormalizeVideo(ctx, clip.Path, env.Config.Width(), env.Config.Height(), env.Config.FPS, target); err != nil {
		return err
	}
	if !adjust {
		return nil
	}
	if v.Length < clip.Duration {
		return env.Tools.TrimVideo(ctx, target, v.Length, out)
	}
	return env.Tools.FreezeExtend(ctx, target, v.Length, out)
}

package segments

import (
	"context"
	"os"

	"vidkit/internal/media"
	"vidkit/internal/services"
	"vidkit/internal/sources"
)

// Image renders a still image for a fixed duration, optionally with a slow
// zoom and pan. Stills have no intrinsic duration, so one is required.
type Image struct {
	Base
	Path   string
	Length float64
	Zoom   float64
	PanX   float64
	PanY   float64
}

// NewImage constructs a still image segment.
func NewImage(id, path string, duration float64) *Image {
	return &Image{Base: NewBase(id), Path: path, Length: duration}
}

func (i *Image) Duration(_ context.Context, _ *sources.RenderEnv) (float64, error) {
	if i.Length <= 0 {
		return 0, services.Wrap(services.ErrValidation, "segments", "image", "image segment "+i.ID()+" requires an explicit duration", nil)
	}
	return i.Length, nil
}

func (i *Image) Render(ctx context.Context, env *sources.RenderEnv, out string) error {
	duration, err := i.Duration(ctx, env)
	if err != nil {
		return err
	}
	if _, err := os.Stat(i.Path); err != nil {
		return services.Wrap(services.ErrValidation, "segments", "image", "missing image "+i.Path, err)
	}
	spec := media.StillSpec{
		Image:    i.Path,
		Duration: duration,
		Width:    env.Config.Width(),
		Height:   env.Config.Height(),
		FPS:      env.Config.FPS,
		Zoom:     i.Zoom,
		PanX:     i.PanX,
		PanY:     i.PanY,
	}
	return env.Tools.StillVideo(ctx, spec, out)
}

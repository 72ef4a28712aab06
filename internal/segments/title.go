package segments

import (
	"context"

	"vidkit/internal/media"
	"vidkit/internal/services"
	"vidkit/internal/sources"
)

// Title renders a text card on a solid background. A title has no intrinsic
// duration, so one must be given explicitly.
type Title struct {
	Base
	TitleText    string
	SubtitleText string
	Length       float64
	Background   media.Color
	TitleColor   media.Color
	SubColor     media.Color
}

// NewTitle constructs a title card segment.
func NewTitle(id, title string, duration float64) *Title {
	return &Title{
		Base:       NewBase(id),
		TitleText:  title,
		Length:     duration,
		Background: media.ColorCardGray,
		TitleColor: media.ColorInk,
		SubColor:   media.ColorSubtleInk,
	}
}

func (t *Title) Duration(_ context.Context, _ *sources.RenderEnv) (float64, error) {
	if t.Length <= 0 {
		return 0, services.Wrap(services.ErrValidation, "segments", "title", "title segment "+t.ID()+" requires an explicit duration", nil)
	}
	return t.Length, nil
}

func (t *Title) Render(ctx context.Context, env *sources.RenderEnv, out string) error {
	duration, err := t.Duration(ctx, env)
	if err != nil {
		return err
	}
	spec := media.CardSpec{
		Title:      t.TitleText,
		Subtitle:   t.SubtitleText,
		Duration:   duration,
		Width:      env.Config.Width(),
		Height:     env.Config.Height(),
		FPS:        env.Config.FPS,
		Background: t.Background,
		TitleColor: t.TitleColor,
		SubColor:   t.SubColor,
	}
	return env.Tools.RenderCard(ctx, spec, out)
}

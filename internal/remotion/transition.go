package remotion

import (
	"context"
	"fmt"

	"vidkit/internal/cachekey"
	"vidkit/internal/fileutil"
	"vidkit/internal/segments"
	"vidkit/internal/services"
	"vidkit/internal/sources"
)

// transitionCompositions maps transition styles to composition IDs in the
// render project.
var transitionCompositions = map[string]string{
	"fade":  "FadeTransition",
	"slide": "SlideTransition",
	"wipe":  "WipeTransition",
	"zoom":  "ZoomTransition",
}

// TransitionStyles lists the accepted transition styles.
func TransitionStyles() []string {
	return []string{"fade", "slide", "wipe", "zoom"}
}

// Transition animates between two neighboring segments. It cannot render
// until the build pipeline supplies the exit frame of the previous segment
// and the entry frame of the next one.
type Transition struct {
	segments.Base
	Style     string
	Direction string
	Length    float64

	prevFrame string
	nextFrame string
	renderer  *Renderer
}

// NewTransition constructs a transition segment.
func NewTransition(id, style string, duration float64) *Transition {
	return &Transition{Base: segments.NewBase(id), Style: style, Length: duration}
}

// SetRenderer injects the renderer.
func (t *Transition) SetRenderer(r *Renderer) { t.renderer = r }

// NeedsFrames reports whether neighbor frames are still missing.
func (t *Transition) NeedsFrames() bool {
	return t.prevFrame == "" || t.nextFrame == ""
}

// SetFrames supplies the neighbor stills the composition animates between.
func (t *Transition) SetFrames(prev, next string) {
	t.prevFrame = prev
	t.nextFrame = next
}

func (t *Transition) Duration(_ context.Context, _ *sources.RenderEnv) (float64, error) {
	if t.Length <= 0 {
		return 0, services.Wrap(services.ErrValidation, "remotion", "transition", "transition "+t.ID()+" requires an explicit duration", nil)
	}
	return t.Length, nil
}

func (t *Transition) composition() (string, error) {
	comp, ok := transitionCompositions[t.Style]
	if !ok {
		return "", services.Wrap(services.ErrValidation, "remotion", "transition",
			fmt.Sprintf("unknown transition style %q (valid: %v)", t.Style, TransitionStyles()), nil)
	}
	return comp, nil
}

// CacheKey covers the style, timing, and both neighbor frame paths, so
// transitions between different neighbor pairs cache independently. The
// paths are stable across rebuilds of a neighbor; picking up its new
// boundary frames requires a forced build.
func (t *Transition) CacheKey() string {
	return cachekey.Generate(map[string]any{
		"type":       "transition",
		"style":      t.Style,
		"direction":  t.Direction,
		"duration":   t.Length,
		"prev_frame": t.prevFrame,
		"next_frame": t.nextFrame,
	})
}

func (t *Transition) Render(ctx context.Context, env *sources.RenderEnv, out string) error {
	if t.NeedsFrames() {
		return services.Wrap(services.ErrValidation, "remotion", "transition", "transition "+t.ID()+" is missing neighbor frames", nil)
	}
	comp, err := t.composition()
	if err != nil {
		return err
	}
	gen := &Generator{
		Composition: comp,
		Length:      t.Length,
		Props: map[string]any{
			"from":      map[string]any{"image": t.prevFrame},
			"to":        map[string]any{"image": t.nextFrame},
			"direction": t.Direction,
		},
		renderer: t.renderer,
	}
	clip, err := gen.Clip(ctx, env)
	if err != nil {
		return err
	}
	return fileutil.CopyFile(clip.Path, out)
}

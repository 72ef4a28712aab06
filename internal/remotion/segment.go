package remotion

import (
	"context"
	"math"

	"vidkit/internal/cache"
	"vidkit/internal/cachekey"
	"vidkit/internal/fileutil"
	"vidkit/internal/media"
	"vidkit/internal/segments"
	"vidkit/internal/services"
	"vidkit/internal/sources"
)

// Generator renders a composition into the generated cache layer. It
// implements the source interface so compositions can feed any segment
// type, including grid cells.
type Generator struct {
	Composition string
	Props       map[string]any
	Length      float64

	renderer *Renderer
}

// NewGenerator returns a composition-backed source.
func NewGenerator(composition string, duration float64, props map[string]any) *Generator {
	return &Generator{Composition: composition, Props: props, Length: duration}
}

// SetRenderer injects the renderer. Projects inject lazily so a build that
// touches no compositions never pays the Node startup cost.
func (g *Generator) SetRenderer(r *Renderer) { g.renderer = r }

func (g *Generator) CacheKey() string {
	return cachekey.Generate(map[string]any{
		"type":        "remotion",
		"composition": g.Composition,
		"props":       g.Props,
		"duration":    g.Length,
	})
}

func (g *Generator) Clip(ctx context.Context, env *sources.RenderEnv) (media.Clip, error) {
	if g.Length <= 0 {
		return media.Clip{}, services.Wrap(services.ErrValidation, "remotion", "generator", "composition "+g.Composition+" requires an explicit duration", nil)
	}
	if g.renderer == nil {
		return media.Clip{}, services.Wrap(services.ErrConfiguration, "remotion", "generator", "no renderer injected for composition "+g.Composition, nil)
	}
	key := g.CacheKey()
	path := env.Generated.Path(key, cache.DefaultGeneratedExt)
	if !env.Generated.Exists(key, cache.DefaultGeneratedExt) {
		tmp := path + ".render" + cache.DefaultGeneratedExt
		req := RenderRequest{
			Composition:      g.Composition,
			Props:            g.Props,
			DurationInFrames: framesFor(g.Length, env.Config.FPS),
			FPS:              env.Config.FPS,
			Width:            env.Config.Width(),
			Height:           env.Config.Height(),
			Output:           tmp,
		}
		if err := g.renderer.Render(ctx, req); err != nil {
			return media.Clip{}, err
		}
		if err := fileutil.MoveFileAtomic(tmp, path); err != nil {
			return media.Clip{}, services.Wrap(services.ErrRender, "remotion", "generator", "store rendered composition", err)
		}
	}
	duration, err := env.Tools.ProbeDuration(ctx, path)
	if err != nil {
		return media.Clip{}, err
	}
	return media.Clip{Path: path, Duration: duration, HasAudio: false}, nil
}

func framesFor(seconds float64, fps int) int {
	frames := int(math.Round(seconds * float64(fps)))
	if frames < 1 {
		frames = 1
	}
	return frames
}

// Segment is an animated segment rendered by a composition.
type Segment struct {
	segments.Base
	Gen *Generator
}

// NewSegment constructs a composition-backed segment with an explicit
// duration.
func NewSegment(id, composition string, duration float64, props map[string]any) *Segment {
	return &Segment{
		Base: segments.NewBase(id),
		Gen:  NewGenerator(composition, duration, props),
	}
}

// SetRenderer injects the renderer into the underlying generator.
func (s *Segment) SetRenderer(r *Renderer) { s.Gen.SetRenderer(r) }

func (s *Segment) Duration(_ context.Context, _ *sources.RenderEnv) (float64, error) {
	if s.Gen.Length <= 0 {
		return 0, services.Wrap(services.ErrValidation, "remotion", "segment", "segment "+s.ID()+" requires an explicit duration", nil)
	}
	return s.Gen.Length, nil
}

func (s *Segment) Render(ctx context.Context, env *sources.RenderEnv, out string) error {
	clip, err := s.Gen.Clip(ctx, env)
	if err != nil {
		return err
	}
	return fileutil.CopyFile(clip.Path, out)
}

package overlays

import (
	"context"
	"fmt"
	"strings"

	"vidkit/internal/media"
)

// Compositor applies an ordered set of overlays in a single encode pass.
type Compositor struct {
	overlays []Overlay
}

// NewCompositor returns a compositor over the given overlays. Order is
// paint order: later overlays draw on top of earlier ones.
func NewCompositor(overlays ...Overlay) *Compositor {
	return &Compositor{overlays: overlays}
}

// Empty reports whether the compositor has nothing to draw.
func (c *Compositor) Empty() bool {
	return c == nil || len(c.overlays) == 0
}

// CacheParams aggregates every overlay's parameters in paint order. It is
// an introspection view of the resolved composition; segment artifacts are
// addressed by identity, so overlay edits take effect on the next forced
// or invalidated build rather than through a key change.
func (c *Compositor) CacheParams() []map[string]any {
	if c == nil {
		return nil
	}
	params := make([]map[string]any, 0, len(c.overlays))
	for _, o := range c.overlays {
		params = append(params, o.CacheParams())
	}
	return params
}

// Graph builds the combined filtergraph for one frame geometry. Simple
// overlays chain with commas on the main video path; image overlays are
// declared as labeled side chains (the movie source idiom) and merged in
// paint order.
func (c *Compositor) Graph(g Geometry) (string, error) {
	if c.Empty() {
		return "", nil
	}
	var (
		graph   []string
		pending []string
		cur     = "[in]"
		label   int
		hasAux  bool
	)
	flush := func(next string) {
		if len(pending) == 0 {
			return
		}
		graph = append(graph, cur+strings.Join(pending, ",")+next)
		pending = pending[:0]
		cur = next
	}
	for _, o := range c.overlays {
		p, err := o.render(g)
		if err != nil {
			return "", fmt.Errorf("overlay %s: %w", o.Name(), err)
		}
		if p.aux == "" {
			pending = append(pending, p.chain)
			continue
		}
		hasAux = true
		base := fmt.Sprintf("[b%d]", label)
		flush(base)
		wm := fmt.Sprintf("[wm%d]", label)
		graph = append(graph, strings.Replace(p.aux, "[wm]", wm, 1))
		next := fmt.Sprintf("[m%d]", label)
		graph = append(graph, cur+wm+p.chain+next)
		cur = next
		label++
	}
	if len(pending) > 0 {
		graph = append(graph, cur+strings.Join(pending, ",")+"[out]")
		cur = "[out]"
	}
	if !hasAux {
		// Pure filter chain; no labels needed.
		return strings.TrimSuffix(strings.TrimPrefix(graph[0], "[in]"), "[out]"), nil
	}
	if cur != "[out]" {
		graph = append(graph, cur+"null[out]")
	}
	return strings.Join(graph, ";"), nil
}

// Apply composites the overlays onto src, writing the result to out. An
// empty compositor copies nothing and reports false so callers can skip the
// encode entirely.
func (c *Compositor) Apply(ctx context.Context, tools *media.Toolchain, g Geometry, src, out string) (bool, error) {
	if c.Empty() {
		return false, nil
	}
	graph, err := c.Graph(g)
	if err != nil {
		return false, err
	}
	if err := tools.ApplyFilters(ctx, src, graph, out); err != nil {
		return false, err
	}
	return true, nil
}

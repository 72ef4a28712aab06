package remotion

// Stock composition constructors. Each wraps a composition shipped with
// the render project behind a typed Go call so call sites never hand-write
// prop maps for the common cases.

// NewAnimatedTitle returns a title segment with an animated reveal.
func NewAnimatedTitle(id, title, subtitle string, duration float64) *Segment {
	return NewSegment(id, "AnimatedTitle", duration, map[string]any{
		"title":    title,
		"subtitle": subtitle,
	})
}

// NewImageReveal returns a segment that uncovers an image behind an
// animated mask. Direction is one of left, right, up, down.
func NewImageReveal(id, image, direction string, duration float64) *Segment {
	return NewSegment(id, "ImageReveal", duration, map[string]any{
		"image":     image,
		"direction": direction,
	})
}

// NewKenBurns returns a segment panning and zooming slowly across a
// still image. Zoom values above 1 zoom in, below 1 zoom out.
func NewKenBurns(id, image string, zoom float64, duration float64) *Segment {
	return NewSegment(id, "KenBurns", duration, map[string]any{
		"image": image,
		"zoom":  zoom,
	})
}

// NewSplitScreen returns a segment showing two clips side by side with
// an animated divider.
func NewSplitScreen(id, left, right string, duration float64) *Segment {
	return NewSegment(id, "SplitScreen", duration, map[string]any{
		"left":  map[string]any{"source": left},
		"right": map[string]any{"source": right},
	})
}

// NewCarousel returns a segment cycling through a set of images with a
// sliding animation, splitting the duration evenly between them.
func NewCarousel(id string, images []string, duration float64) *Segment {
	items := make([]any, len(images))
	for i, img := range images {
		items[i] = map[string]any{"image": img}
	}
	return NewSegment(id, "Carousel", duration, map[string]any{
		"items": items,
	})
}

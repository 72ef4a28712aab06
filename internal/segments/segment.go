package segments

import (
	"context"

	"vidkit/internal/sources"
)

// Segment is one renderable unit of the presentation timeline.
type Segment interface {
	// ID is the stable identifier used in cache filenames. It must be
	// unique within a project.
	ID() string
	// Narration is the text spoken over the segment; empty means silence.
	Narration() string
	// Section groups segments for reporting. Optional.
	Section() string
	// Overlays resolves against project overlay defaults.
	Overlays() OverlaySpec
	// Duration returns the video duration in seconds before audio sync.
	Duration(ctx context.Context, env *sources.RenderEnv) (float64, error)
	// Render writes the segment's video track to out. The artifact carries
	// no audio; narration attaches downstream.
	Render(ctx context.Context, env *sources.RenderEnv, out string) error
}

// Base carries the fields every segment shares.
type Base struct {
	id        string
	narration string
	section   string
	overlays  OverlaySpec
}

// NewBase constructs the shared segment fields.
func NewBase(id string) Base {
	return Base{id: id}
}

func (b Base) ID() string            { return b.id }
func (b Base) Narration() string     { return b.narration }
func (b Base) Section() string       { return b.section }
func (b Base) Overlays() OverlaySpec { return b.overlays }

// WithNarration sets the spoken text.
func (b Base) WithNarration(text string) Base {
	b.narration = text
	return b
}

// WithSection assigns a reporting section.
func (b Base) WithSection(section string) Base {
	b.section = section
	return b
}

// WithOverlays sets the overlay resolution spec.
func (b Base) WithOverlays(spec OverlaySpec) Base {
	b.overlays = spec
	return b
}

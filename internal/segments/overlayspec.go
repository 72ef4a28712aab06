package segments

import (
	"vidkit/internal/overlays"
)

// Overlay slot names, in paint order.
const (
	SlotTitleBar  = "title_bar"
	SlotWatermark = "watermark"
	SlotSubtitle  = "subtitle"
)

var paintOrder = []string{SlotTitleBar, SlotWatermark, SlotSubtitle}

// OverlayDefaults holds the project-wide overlay configuration segments
// inherit from. TitleBar and Subtitle act as style templates: their Text
// is replaced per segment with the segment's section and narration, and a
// segment without that text renders nothing in the slot. Watermark is
// segment-independent and applies as configured.
type OverlayDefaults struct {
	TitleBar  *overlays.TitleBar
	Watermark *overlays.Watermark
	Subtitle  *overlays.Subtitle
}

// slot returns the default overlay for a slot bound to the segment's
// text, or nil when the slot has no default or no text to show.
func (d OverlayDefaults) slot(name, section, narration string) overlays.Overlay {
	switch name {
	case SlotTitleBar:
		if d.TitleBar != nil && section != "" {
			bound := *d.TitleBar
			bound.Text = section
			return &bound
		}
	case SlotWatermark:
		if d.Watermark != nil {
			return d.Watermark
		}
	case SlotSubtitle:
		if d.Subtitle != nil && narration != "" {
			bound := *d.Subtitle
			bound.Text = narration
			return &bound
		}
	}
	return nil
}

// OverlaySpec resolves a segment's overlays against project defaults. The
// zero value inherits everything. Unmentioned slots inherit;
// overridden slots replace the default; dropped slots render nothing even
// when a default exists; NoOverlays suppresses every slot.
type OverlaySpec struct {
	disableAll bool
	slots      map[string]overlays.Overlay
}

// InheritOverlays returns a spec that takes every slot from the defaults.
func InheritOverlays() OverlaySpec {
	return OverlaySpec{}
}

// NoOverlays returns a spec that renders no overlays regardless of
// defaults.
func NoOverlays() OverlaySpec {
	return OverlaySpec{disableAll: true}
}

// Override replaces one slot, leaving the rest inherited. A nil overlay
// drops the slot instead.
func (s OverlaySpec) Override(slot string, overlay overlays.Overlay) OverlaySpec {
	next := s.clone()
	next.slots[slot] = overlay
	return next
}

// Drop suppresses one slot while the rest keep inheriting.
func (s OverlaySpec) Drop(slot string) OverlaySpec {
	return s.Override(slot, nil)
}

func (s OverlaySpec) clone() OverlaySpec {
	next := OverlaySpec{disableAll: s.disableAll, slots: make(map[string]overlays.Overlay, len(s.slots)+1)}
	for k, v := range s.slots {
		next.slots[k] = v
	}
	return next
}

// Effective resolves the overlay selection against defaults into a
// paint-ordered compositor. Inherited title-bar and subtitle slots take
// their text from the segment's section and narration; overridden slots
// are used verbatim.
func (s OverlaySpec) Effective(defaults OverlayDefaults, section, narration string) *overlays.Compositor {
	if s.disableAll {
		return overlays.NewCompositor()
	}
	resolved := make([]overlays.Overlay, 0, len(paintOrder))
	for _, name := range paintOrder {
		var chosen overlays.Overlay
		if override, mentioned := s.slots[name]; mentioned {
			chosen = override
		} else {
			chosen = defaults.slot(name, section, narration)
		}
		if chosen != nil {
			resolved = append(resolved, chosen)
		}
	}
	return overlays.NewCompositor(resolved...)
}

package segments

import (
	"testing"

	"vidkit/internal/overlays"
)

func testDefaults() OverlayDefaults {
	return OverlayDefaults{
		TitleBar:  overlays.NewTitleBar(""),
		Watermark: overlays.NewWatermark("/assets/logo.png"),
		Subtitle:  overlays.NewSubtitle(""),
	}
}

func overlayNames(c *overlays.Compositor) []string {
	names := make([]string, 0)
	for _, p := range c.CacheParams() {
		names = append(names, p["overlay"].(string))
	}
	return names
}

func TestZeroSpecInheritsAllDefaults(t *testing.T) {
	var spec OverlaySpec
	got := overlayNames(spec.Effective(testDefaults(), "Intro", "Welcome along."))
	want := []string{"title_bar", "watermark", "subtitle"}
	if len(got) != len(want) {
		t.Fatalf("resolved %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("slot %d = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestInheritedSlotsCarrySegmentText(t *testing.T) {
	c := InheritOverlays().Effective(testDefaults(), "Getting Started", "First we install it.")
	params := c.CacheParams()
	if params[0]["text"] != "Getting Started" {
		t.Errorf("title bar should show the segment section, got %v", params[0])
	}
	if params[2]["text"] != "First we install it." {
		t.Errorf("subtitle should show the segment narration, got %v", params[2])
	}
}

func TestInheritedSlotsSkipEmptySegmentText(t *testing.T) {
	names := overlayNames(InheritOverlays().Effective(testDefaults(), "", ""))
	if len(names) != 1 || names[0] != "watermark" {
		t.Errorf("no section or narration should leave only the watermark, got %v", names)
	}
}

func TestInheritOverlaysEqualsZeroValue(t *testing.T) {
	a := InheritOverlays().Effective(testDefaults(), "Intro", "Hello.")
	var zero OverlaySpec
	b := zero.Effective(testDefaults(), "Intro", "Hello.")
	if len(a.CacheParams()) != len(b.CacheParams()) {
		t.Error("explicit inherit and zero value must resolve identically")
	}
}

func TestNoOverlaysSuppressesEverything(t *testing.T) {
	c := NoOverlays().Effective(testDefaults(), "Intro", "Hello.")
	if !c.Empty() {
		t.Errorf("NoOverlays resolved to %v, want none", overlayNames(c))
	}
}

func TestPartialOverrideKeepsOtherSlots(t *testing.T) {
	custom := overlays.NewSubtitle("Custom Caption")
	spec := InheritOverlays().Override(SlotSubtitle, custom)
	c := spec.Effective(testDefaults(), "Intro", "Spoken line.")
	names := overlayNames(c)
	if len(names) != 3 {
		t.Fatalf("resolved %v, want all three slots", names)
	}
	params := c.CacheParams()
	if params[2]["text"] != "Custom Caption" {
		t.Errorf("subtitle slot should carry the override verbatim, got %v", params[2])
	}
	if params[0]["text"] != "Intro" {
		t.Errorf("title bar slot should still bind the section, got %v", params[0])
	}
}

func TestDropSlotRendersNothingForIt(t *testing.T) {
	spec := InheritOverlays().Drop(SlotWatermark)
	names := overlayNames(spec.Effective(testDefaults(), "Intro", "Hello."))
	for _, n := range names {
		if n == "watermark" {
			t.Error("dropped slot must not resolve")
		}
	}
	if len(names) != 2 {
		t.Errorf("resolved %v, want two slots", names)
	}
}

func TestOverrideDoesNotMutateReceiver(t *testing.T) {
	base := InheritOverlays()
	_ = base.Override(SlotSubtitle, nil)
	names := overlayNames(base.Effective(testDefaults(), "Intro", "Hello."))
	if len(names) != 3 {
		t.Errorf("original spec mutated by Override: %v", names)
	}
}

func TestBindingDoesNotMutateDefaults(t *testing.T) {
	defaults := testDefaults()
	_ = InheritOverlays().Effective(defaults, "Intro", "Hello.")
	if defaults.TitleBar.Text != "" || defaults.Subtitle.Text != "" {
		t.Error("resolving a segment must not write its text into the shared defaults")
	}
}

func TestEmptyDefaultsResolveEmpty(t *testing.T) {
	c := InheritOverlays().Effective(OverlayDefaults{}, "Intro", "Hello.")
	if !c.Empty() {
		t.Errorf("no defaults and no overrides should resolve empty, got %v", overlayNames(c))
	}
}

package overlays

import (
	"fmt"
	"strings"

	"vidkit/internal/media"
	"vidkit/internal/textutil"
)

// Geometry carries the frame parameters an overlay scales itself against.
type Geometry struct {
	Width  int
	Height int
	FPS    int
}

// ScaleFactor normalizes sizes authored against a 1080p frame.
func (g Geometry) ScaleFactor() float64 {
	return float64(g.Height) / 1080.0
}

func (g Geometry) scaled(base int) int {
	v := int(float64(base) * g.ScaleFactor())
	if v < 1 {
		v = 1
	}
	return v
}

// part is one overlay's contribution to the filtergraph. Most overlays are
// plain chainable filters; overlays that need an auxiliary input (an image
// file) contribute a named side chain instead.
type part struct {
	chain string
	aux   string
}

// Overlay contributes one layer to the composited filtergraph. CacheParams
// describes every visual input so a resolved composition can be inspected
// and compared.
type Overlay interface {
	Name() string
	CacheParams() map[string]any
	render(g Geometry) (part, error)
}

// TitleBar draws a solid bar across the top of the frame with centered text.
type TitleBar struct {
	Text       string
	Background media.Color
	TextColor  media.Color
	Opacity    float64
}

// NewTitleBar returns a title bar with the house palette.
func NewTitleBar(text string) *TitleBar {
	return &TitleBar{
		Text:       text,
		Background: media.ColorInk,
		TextColor:  media.ColorWhite,
		Opacity:    0.85,
	}
}

func (t *TitleBar) Name() string { return "title_bar" }

func (t *TitleBar) CacheParams() map[string]any {
	return map[string]any{
		"overlay":    t.Name(),
		"text":       t.Text,
		"background": t.Background.Hex(),
		"text_color": t.TextColor.Hex(),
		"opacity":    t.Opacity,
	}
}

func (t *TitleBar) render(g Geometry) (part, error) {
	barHeight := g.scaled(96)
	fontSize := g.scaled(44)
	chain := fmt.Sprintf(
		"drawbox=x=0:y=0:w=iw:h=%d:color=%s@%.2f:t=fill,drawtext=text='%s':fontcolor=%s:fontsize=%d:x=(w-text_w)/2:y=(%d-text_h)/2",
		barHeight, t.Background.Hex(), t.Opacity, escapeText(t.Text), t.TextColor.Hex(), fontSize, barHeight)
	return part{chain: chain}, nil
}

// Subtitle draws wrapped caption text along the bottom of the frame.
type Subtitle struct {
	Text      string
	TextColor media.Color
	BoxColor  media.Color
	MaxWidth  int
}

// NewSubtitle returns a bottom caption wrapped to a readable line length.
func NewSubtitle(text string) *Subtitle {
	return &Subtitle{
		Text:      text,
		TextColor: media.ColorWhite,
		BoxColor:  media.ColorInk,
		MaxWidth:  56,
	}
}

func (s *Subtitle) Name() string { return "subtitle" }

func (s *Subtitle) CacheParams() map[string]any {
	return map[string]any{
		"overlay":    s.Name(),
		"text":       s.Text,
		"text_color": s.TextColor.Hex(),
		"box_color":  s.BoxColor.Hex(),
		"max_width":  s.MaxWidth,
	}
}

func (s *Subtitle) render(g Geometry) (part, error) {
	width := s.MaxWidth
	if width <= 0 {
		width = 56
	}
	lines := strings.Split(textutil.Wrap(s.Text, width), "\n")
	fontSize := g.scaled(38)
	lineGap := g.scaled(10)
	bottomMargin := g.scaled(60)
	filters := make([]string, 0, len(lines))
	// Lines stack upward from the bottom margin so a longer caption grows
	// toward the center instead of off-frame.
	for i, line := range lines {
		offset := (len(lines) - 1 - i) * (fontSize + lineGap)
		filters = append(filters, fmt.Sprintf(
			"drawtext=text='%s':fontcolor=%s:fontsize=%d:box=1:boxcolor=%s@0.6:boxborderw=%d:x=(w-text_w)/2:y=h-%d-text_h",
			escapeText(line), s.TextColor.Hex(), fontSize, s.BoxColor.Hex(), lineGap, bottomMargin+offset))
	}
	return part{chain: strings.Join(filters, ",")}, nil
}

// Watermark overlays a branding image in a frame corner.
type Watermark struct {
	Image    string
	Position string
	Opacity  float64
	Scale    float64
}

// NewWatermark returns a bottom-right watermark at subtle opacity.
func NewWatermark(image string) *Watermark {
	return &Watermark{Image: image, Position: "bottom_right", Opacity: 0.5, Scale: 0.08}
}

func (w *Watermark) Name() string { return "watermark" }

func (w *Watermark) CacheParams() map[string]any {
	return map[string]any{
		"overlay":  w.Name(),
		"image":    w.Image,
		"position": w.Position,
		"opacity":  w.Opacity,
		"scale":    w.Scale,
	}
}

func (w *Watermark) render(g Geometry) (part, error) {
	x, y, err := watermarkPosition(w.Position)
	if err != nil {
		return part{}, err
	}
	target := int(float64(g.Height) * w.Scale)
	if target < 1 {
		target = 1
	}
	aux := fmt.Sprintf("movie='%s',scale=-1:%d,format=rgba,colorchannelmixer=aa=%.2f[wm]",
		escapeText(w.Image), target, w.Opacity)
	chain := fmt.Sprintf("overlay=%s:%s", x, y)
	return part{chain: chain, aux: aux}, nil
}

func watermarkPosition(pos string) (string, string, error) {
	const margin = "24"
	switch pos {
	case "", "bottom_right":
		return "main_w-overlay_w-" + margin, "main_h-overlay_h-" + margin, nil
	case "bottom_left":
		return margin, "main_h-overlay_h-" + margin, nil
	case "top_right":
		return "main_w-overlay_w-" + margin, margin, nil
	case "top_left":
		return margin, margin, nil
	default:
		return "", "", fmt.Errorf("overlays: unknown watermark position %q", pos)
	}
}

// escapeText escapes the characters ffmpeg filter arguments treat specially.
func escapeText(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`, `:`, `\:`, `%`, `\%`)
	return r.Replace(s)
}

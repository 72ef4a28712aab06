package media

import "fmt"

// Clip is a file-backed media artifact flowing through the pipeline.
type Clip struct {
	Path     string
	Duration float64
	HasAudio bool
}

// Color is an RGB triple used for card backgrounds and text.
type Color struct {
	R, G, B uint8
}

// Hex renders the color in the 0xRRGGBB form ffmpeg filters accept.
func (c Color) Hex() string {
	return fmt.Sprintf("0x%02X%02X%02X", c.R, c.G, c.B)
}

// Values reused across the toolkit for placeholder and title cards.
var (
	ColorWhite     = Color{R: 255, G: 255, B: 255}
	ColorCardGray  = Color{R: 240, G: 240, B: 245}
	ColorInk       = Color{R: 30, G: 30, B: 40}
	ColorSubtleInk = Color{R: 100, G: 100, B: 100}
)

package config

import (
	"fmt"
	"strings"
)

// Resolution is a fixed output resolution preset.
type Resolution int

const (
	// ResolutionDraft renders at 854x480 for fast iteration.
	ResolutionDraft Resolution = iota
	// ResolutionStandard renders at 1920x1080.
	ResolutionStandard
	// ResolutionHigh renders at 2560x1440.
	ResolutionHigh
)

type resolutionSpec struct {
	width  int
	height int
	mode   string
}

var resolutionSpecs = map[Resolution]resolutionSpec{
	ResolutionDraft:    {width: 854, height: 480, mode: "draft"},
	ResolutionStandard: {width: 1920, height: 1080, mode: "standard"},
	ResolutionHigh:     {width: 2560, height: 1440, mode: "high"},
}

// ParseResolution maps a preset name to a Resolution. Accepted names:
// draft, standard, 1080p, high, 2k (case-insensitive).
func ParseResolution(name string) (Resolution, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "draft":
		return ResolutionDraft, nil
	case "standard", "1080p":
		return ResolutionStandard, nil
	case "high", "2k":
		return ResolutionHigh, nil
	default:
		return ResolutionStandard, fmt.Errorf("unknown resolution %q (valid: draft, standard, 1080p, high, 2k)", name)
	}
}

// Width returns the horizontal pixel count.
func (r Resolution) Width() int { return resolutionSpecs[r].width }

// Height returns the vertical pixel count.
func (r Resolution) Height() int { return resolutionSpecs[r].height }

// Mode returns the cache-path discriminator string for this preset.
func (r Resolution) Mode() string { return resolutionSpecs[r].mode }

// ScaleFactor returns the size ratio relative to the 1080p baseline, used to
// scale font sizes and overlay geometry.
func (r Resolution) ScaleFactor() float64 {
	return float64(resolutionSpecs[r].height) / 1080.0
}

func (r Resolution) String() string { return resolutionSpecs[r].mode }

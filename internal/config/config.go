package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// AudioSync contains the audio/video duration reconciliation policy.
type AudioSync struct {
	Strategy       string  `toml:"strategy"`
	PaddingStart   float64 `toml:"padding_start"`
	PaddingEnd     float64 `toml:"padding_end"`
	SpeedTolerance float64 `toml:"speed_tolerance"`
}

// Tools contains paths to the external media binaries.
type Tools struct {
	FFmpeg              string `toml:"ffmpeg"`
	FFprobe             string `toml:"ffprobe"`
	FrameExtractTimeout int    `toml:"frame_extract_timeout"`
	RenderTimeout       int    `toml:"render_timeout"`
}

// Remotion contains settings for the external composition renderer.
type Remotion struct {
	NodeExecutable        string `toml:"node_executable"`
	NpmExecutable         string `toml:"npm_executable"`
	ProjectDir            string `toml:"project_dir"`
	CustomCompositionsDir string `toml:"custom_compositions_dir"`
	BundleCacheDir        string `toml:"bundle_cache_dir"`
	Concurrency           int    `toml:"concurrency"`
	TimeoutPerRender      int    `toml:"timeout_per_render"`
	LogLevel              string `toml:"log_level"`
}

// Logging contains log output settings.
type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Project is the root configuration for a vidkit build.
type Project struct {
	ResolutionName string `toml:"resolution"`
	FPS            int    `toml:"fps"`
	Codec          string `toml:"codec"`
	AudioCodec     string `toml:"audio_codec"`
	Preset         string `toml:"preset"`
	OutputDir      string `toml:"output_dir"`
	CacheDir       string `toml:"cache_dir"`
	LedgerEnabled  bool   `toml:"ledger_enabled"`

	AudioSync AudioSync `toml:"audio_sync"`
	Tools     Tools     `toml:"tools"`
	Remotion  Remotion  `toml:"remotion"`
	Logging   Logging   `toml:"logging"`

	resolution Resolution
}

// Default returns the repository default configuration.
func Default() *Project {
	return &Project{
		ResolutionName: "standard",
		FPS:            30,
		Codec:          "libx264",
		AudioCodec:     "aac",
		Preset:         "medium",
		OutputDir:      "./output",
		CacheDir:       "./cache",
		LedgerEnabled:  false,
		AudioSync: AudioSync{
			Strategy:       "extend_video",
			PaddingStart:   0.0,
			PaddingEnd:     0.5,
			SpeedTolerance: 0.1,
		},
		Tools: Tools{
			FFmpeg:              "ffmpeg",
			FFprobe:             "ffprobe",
			FrameExtractTimeout: 30,
			RenderTimeout:       300,
		},
		Remotion: Remotion{
			NodeExecutable:   "node",
			NpmExecutable:    "npm",
			Concurrency:      1,
			TimeoutPerRender: 120,
			LogLevel:         "warn",
		},
		Logging: Logging{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads a TOML config file, applying defaults for absent fields.
// An absent file yields the defaults without error.
func Load(path string) (*Project, error) {
	cfg := Default()
	path = strings.TrimSpace(path)
	if path == "" {
		if err := cfg.normalize(); err != nil {
			return nil, err
		}
		return cfg, nil
	}
	data, err := os.ReadFile(expandPath(path))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			if normErr := cfg.normalize(); normErr != nil {
				return nil, normErr
			}
			return cfg, nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// normalize expands paths and resolves derived fields, then validates.
func (p *Project) normalize() error {
	p.OutputDir = expandPath(p.OutputDir)
	p.CacheDir = expandPath(p.CacheDir)
	p.Remotion.ProjectDir = expandPath(p.Remotion.ProjectDir)
	p.Remotion.CustomCompositionsDir = expandPath(p.Remotion.CustomCompositionsDir)
	p.Remotion.BundleCacheDir = expandPath(p.Remotion.BundleCacheDir)

	res, err := ParseResolution(p.ResolutionName)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	p.resolution = res

	return p.Validate()
}

// Resolution returns the parsed resolution preset.
func (p *Project) Resolution() Resolution { return p.resolution }

// Mode returns the cache-path discriminator for the configured resolution.
func (p *Project) Mode() string { return p.resolution.Mode() }

// Width returns the output width in pixels.
func (p *Project) Width() int { return p.resolution.Width() }

// Height returns the output height in pixels.
func (p *Project) Height() int { return p.resolution.Height() }

// EnsureDirectories creates the output and cache roots.
func (p *Project) EnsureDirectories() error {
	for _, dir := range []string{p.OutputDir, p.CacheDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// LedgerPath returns the location of the dependency ledger database.
func (p *Project) LedgerPath() string {
	return filepath.Join(p.CacheDir, "ledger.db")
}

func expandPath(path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return path
	}
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return filepath.Clean(path)
}

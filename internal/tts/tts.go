package tts

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"vidkit/internal/cache"
	"vidkit/internal/logging"
	"vidkit/internal/services"
)

// Engine synthesizes speech for one voice configuration.
type Engine interface {
	// Name identifies the engine in cache keys and combined filenames.
	Name() string
	// Voice identifies the configured voice within the engine.
	Voice() string
	// CacheParams exposes every setting that changes the rendered audio.
	CacheParams() map[string]string
	// Synthesize writes speech for text to the out path as WAV.
	Synthesize(ctx context.Context, text, out string) error
}

// Synthesizer wraps an engine with the narration cache layer.
type Synthesizer struct {
	engine Engine
	layer  *cache.TTSLayer
	logger *slog.Logger
}

// NewSynthesizer returns a caching synthesizer over the engine.
func NewSynthesizer(engine Engine, layer *cache.TTSLayer, logger *slog.Logger) *Synthesizer {
	return &Synthesizer{
		engine: engine,
		layer:  layer,
		logger: logging.NewComponentLogger(logger, "tts"),
	}
}

// Engine exposes the wrapped engine.
func (s *Synthesizer) Engine() Engine { return s.engine }

// Key returns the cache key for the given narration text under the wrapped
// engine's configuration.
func (s *Synthesizer) Key(text string) string {
	return s.layer.Key(text, s.engine.Name(), s.engine.Voice(), s.engine.CacheParams())
}

// Speak returns the path to synthesized audio for text, synthesizing only
// on a cache miss. The artifact lands in the cache atomically so a failed
// synthesis never leaves a half-written file behind.
func (s *Synthesizer) Speak(ctx context.Context, text string) (string, error) {
	if text == "" {
		return "", services.Wrap(services.ErrValidation, "tts", "speak", "empty narration text", nil)
	}
	key := s.Key(text)
	final := s.layer.Path(key)
	if s.layer.Exists(key) {
		return final, nil
	}
	tmp := filepath.Join(filepath.Dir(final), ".synth-"+uuid.NewString()+".wav")
	defer os.Remove(tmp)
	s.logger.Info("synthesizing narration",
		logging.String("engine", s.engine.Name()),
		logging.String("voice", s.engine.Voice()),
		logging.String("key", key),
		logging.Int("chars", len(text)))
	if err := s.engine.Synthesize(ctx, text, tmp); err != nil {
		return "", services.Wrap(services.ErrExternalTool, "tts", "synthesize", s.engine.Name(), err)
	}
	if err := os.Rename(tmp, final); err != nil {
		return "", services.Wrap(services.ErrRender, "tts", "synthesize", "store narration audio", err)
	}
	return final, nil
}

package cache

import (
	"vidkit/internal/cachekey"
	"vidkit/internal/textutil"
)

// TTSLayer stores synthesized narration audio (layer 1).
type TTSLayer struct {
	layer
}

// NewTTSLayer creates the layer rooted at dir.
func NewTTSLayer(dir string) (*TTSLayer, error) {
	base, err := newLayer(dir)
	if err != nil {
		return nil, err
	}
	return &TTSLayer{layer: base}, nil
}

// Key fingerprints a narration request. Text is normalized first so
// whitespace and Unicode composition differences do not fragment the cache.
// Engine-specific parameters participate so two voices with the same name on
// different engine settings never collide.
func (t *TTSLayer) Key(text, engine, voice string, params map[string]string) string {
	data := map[string]any{
		"text":   textutil.Normalize(text),
		"engine": engine,
		"voice":  voice,
	}
	for k, v := range params {
		data[k] = v
	}
	return cachekey.Generate(data)
}

// Path maps a key to the cached audio file.
func (t *TTSLayer) Path(key string) string {
	return t.filePath(key + ".wav")
}

// Exists reports whether audio for key is cached.
func (t *TTSLayer) Exists(key string) bool {
	return t.fileExists(key + ".wav")
}

// Invalidate deletes the cached audio for key if present.
func (t *TTSLayer) Invalidate(key string) (bool, error) {
	return t.invalidateFile(key + ".wav")
}

// Clear removes every cached audio file in this layer.
func (t *TTSLayer) Clear() (int, error) {
	return t.clearFiles()
}

package tts

import (
	"context"
	"encoding/binary"
	"os"
	"strconv"

	"vidkit/internal/services"
)

const (
	nullSampleRate    = 44100
	nullBitsPerSample = 16
	// nullSecondsPerChar approximates speech pacing so downstream sync
	// policies see plausible narration lengths.
	nullSecondsPerChar = 0.06
	nullMinSeconds     = 0.5
)

// NullEngine produces silent audio sized to the narration text. It stands
// in for a real speech engine in tests and draft builds where narration
// content does not matter but track timing does.
type NullEngine struct {
	// Rate scales the synthetic duration; zero means the default pacing.
	Rate float64
}

func (NullEngine) Name() string  { return "null" }
func (NullEngine) Voice() string { return "silence" }

func (e NullEngine) CacheParams() map[string]string {
	return map[string]string{"rate": strconv.FormatFloat(e.rate(), 'f', -1, 64)}
}

func (e NullEngine) rate() float64 {
	if e.Rate > 0 {
		return e.Rate
	}
	return nullSecondsPerChar
}

// Synthesize writes a PCM WAV file of silence whose duration tracks the
// text length.
func (e NullEngine) Synthesize(_ context.Context, text, out string) error {
	seconds := float64(len(text)) * e.rate()
	if seconds < nullMinSeconds {
		seconds = nullMinSeconds
	}
	samples := int(seconds * nullSampleRate)
	if err := writeSilentWAV(out, samples); err != nil {
		return services.Wrap(services.ErrRender, "tts", "null synthesize", out, err)
	}
	return nil
}

// writeSilentWAV emits a minimal mono 16-bit PCM RIFF file.
func writeSilentWAV(path string, samples int) error {
	dataSize := samples * (nullBitsPerSample / 8)
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	var header [44]byte
	copy(header[0:4], "RIFF")
	binary.LittleEndian.PutUint32(header[4:8], uint32(36+dataSize))
	copy(header[8:12], "WAVE")
	copy(header[12:16], "fmt ")
	binary.LittleEndian.PutUint32(header[16:20], 16)
	binary.LittleEndian.PutUint16(header[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(header[22:24], 1) // mono
	binary.LittleEndian.PutUint32(header[24:28], nullSampleRate)
	binary.LittleEndian.PutUint32(header[28:32], nullSampleRate*(nullBitsPerSample/8))
	binary.LittleEndian.PutUint16(header[32:34], nullBitsPerSample/8)
	binary.LittleEndian.PutUint16(header[34:36], nullBitsPerSample)
	copy(header[36:40], "data")
	binary.LittleEndian.PutUint32(header[40:44], uint32(dataSize))
	if _, err := f.Write(header[:]); err != nil {
		return err
	}

	silence := make([]byte, 4096)
	remaining := dataSize
	for remaining > 0 {
		n := len(silence)
		if remaining < n {
			n = remaining
		}
		if _, err := f.Write(silence[:n]); err != nil {
			return err
		}
		remaining -= n
	}
	return f.Sync()
}

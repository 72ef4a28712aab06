// Package tts turns narration text into speech audio. Engines plug in
// behind a small interface; the synthesizer wraps any engine with the
// narration cache layer so identical text is never synthesized twice.
package tts

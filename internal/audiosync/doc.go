// Package audiosync reconciles a segment's video duration with its
// narration duration. The configured strategy decides which track yields:
// the video can freeze-extend or retime, the audio can pad out with
// silence, or both can truncate to the shorter length.
package audiosync

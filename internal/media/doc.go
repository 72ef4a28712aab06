// Package media wraps the external ffmpeg/ffprobe toolchain behind narrow
// operations the build pipeline needs: probing durations, rendering simple
// cards and stills, extracting frames, applying overlay filtergraphs, muxing
// audio, and concatenating finished segments.
//
// Codec behaviour, filter syntax, and container details live entirely in the
// argument builders here; nothing outside this package constructs ffmpeg
// arguments. Command execution goes through the Executor interface so tests
// can substitute a fake.
package media

// Package project orchestrates segment builds. A project owns the segment
// timeline, the cache layers, the media toolchain, narration synthesis,
// and the optional composition renderer, and drives them through the
// two-stage build: silent segment video first, then the narrated combined
// artifact, then export.
package project

// Package cache implements the four-layer artifact store behind the build
// pipeline.
//
// Layers are ordered by dependency: generated content (0) and TTS audio (1)
// are leaves; rendered segments (2) derive from generated content through
// their sources; combined segments (3) derive from a segment plus TTS audio.
// Each layer is a flat directory mapping a key to one file. Layers have no
// cross-layer knowledge; the Manager owns cascading invalidation, and
// cascades are caller-driven — the store does not track which segments
// consume which generated keys unless the optional Ledger is attached.
//
// Cascades only ever run downstream (toward layer 3). Invalidating a combined
// artifact never touches layers 0-2.
package cache

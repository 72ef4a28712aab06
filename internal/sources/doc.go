// Package sources defines where segment visuals come from. A source is
// anything that can produce a file-backed clip: an asset already on disk, a
// synthesized placeholder, or a generator that renders into the generated
// cache layer keyed by its inputs.
package sources

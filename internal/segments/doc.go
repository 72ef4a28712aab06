// Package segments defines the renderable units of a presentation. Each
// segment knows its identity, its narration text, and how to render its
// visual track; overlay configuration resolves against project defaults
// through a slot-based inheritance scheme.
package segments

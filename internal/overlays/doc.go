// Package overlays renders text and branding layers on top of finished
// segment video. Each overlay contributes a filtergraph fragment; the
// compositor chains the fragments so a segment pays for at most one extra
// encode pass regardless of how many overlays it carries.
package overlays

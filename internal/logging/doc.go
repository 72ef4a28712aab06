// Package logging wraps log/slog with vidkit's handler setup and shared
// attribute helpers. Components receive a *slog.Logger and derive a
// component-scoped child via NewComponentLogger; a nil logger always
// degrades to a no-op so library code never guards log calls.
package logging

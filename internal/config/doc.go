// Package config loads, normalizes, and validates vidkit project
// configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and resolves the resolution preset into the
// cache mode string used throughout the pipeline. Always obtain settings
// through this package so downstream code receives sanitized paths and clear
// validation errors instead of silent defaults.
package config

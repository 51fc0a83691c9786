// Package config loads, normalizes, and validates cadence configuration data.
//
// It supplies defaults for the decoder/encoder programs, expands user paths
// (including tilde shortcuts), reads TOML files, and honours the
// CADENCE_SOURCE_DIR and CADENCE_TARGET_DIR environment fallbacks. The Config
// type centralizes every knob the CLI needs so conversion, history, and log
// locations are discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config

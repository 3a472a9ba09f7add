// Package config loads, normalizes, and validates skmotion configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// SKMOTION_OUTPUT. The Config type centralizes every knob the recorder and CLI
// need so recording settings, state directories, and control endpoints are
// discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical enum values, and clear validation errors.
package config

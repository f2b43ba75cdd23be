// Package config loads, normalizes, and validates hlssafe configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours the HLSSAFE_FFMPEG environment
// fallback for the encoder location. The Config type centralizes every knob
// the daemon and CLI need so socket, lock and log locations are derived in
// one place.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config

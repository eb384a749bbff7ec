// Package config loads, validates, and normalizes harvest configuration.
//
// Configuration lives in a TOML file, by default at
// ~/.config/harvest/config.toml with a project-local harvest.toml as a
// fallback. Missing files are not an error: defaults apply and the
// resolved path is reported so commands can tell the user where a
// config would be read from.
package config

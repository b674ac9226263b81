// Package file provides the file-based configuration adapter.
//
// ConfigStore reads and writes ~/.harvester/config.toml and can watch it
// for changes. LoadSettings resolves the typed settings the harvester runs
// with, applying defaults, environment overrides and validation. Editor
// changes one key at a time and refuses values that would not validate.
package file

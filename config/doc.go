// Package config defines pitwall's configuration and its layered loader.
//
// Layers are applied in order: built-in defaults, then each config file
// (JSON or YAML by extension, deep-merged so a file only needs the keys it
// changes), then PITWALL_* environment overrides. Durations are written as
// strings such as "350ms".
//
//	loader := config.NewLoader()
//	loader.AddLayer("pitwall.yaml")
//	loader.EnableValidation(true)
//	cfg, err := loader.Load()
package config

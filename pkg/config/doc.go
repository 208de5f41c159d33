// Package config provides configuration loading, validation, and default
// values for the Aegis governance engine.
//
// Configuration is loaded from a YAML file, defaults are applied for any
// unset fields, and environment variables with the AEGIS_ prefix override
// file-based values. The final configuration is validated before use.
package config

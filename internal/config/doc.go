// Package config handles configuration loading for psyflow.
//
// # Overview
//
// Configuration is loaded from a YAML or TOML file with environment variable
// expansion. Missing values fall back to defaults; when no file exists at all the
// shell uses Default(dataDir).
//
// # Configuration File
//
// Default locations (in order):
//
//  1. Path from PSYFLOW_CONFIG environment variable
//  2. $XDG_CONFIG_HOME/psyflow/config.yaml
//  3. ~/.config/psyflow/config.yaml
//
// Files ending in .toml are decoded with BurntSushi/toml, anything else as YAML.
//
// # Environment Variable Expansion
//
//	database:
//	  path: "${HOME}/psyflow/psyflow.db"
//
// Unset variables expand to the empty string.
//
// # Configuration Sections
//
// Database:
//
//	database:
//	  path: "~/.local/share/psyflow/psyflow.db"
//	  driver: "sqlite"   # sqlite (pure Go) or sqlite3 (cgo)
//
// Authentication:
//
//	auth:
//	  bcrypt_cost: 10
//
// Logging:
//
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
//
// # Validation
//
// Load() validates:
//
//   - database.path is present
//   - database.driver is a supported driver
//   - auth.bcrypt_cost is within bcrypt's bounds
//   - logging level and format values
package config

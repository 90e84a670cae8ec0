// Package config holds the single configuration structure for a schemagit run.
//
// A Config is built once at startup and passed by pointer into the connector,
// the dump orchestrator and the workers; nothing in the engine reads global
// argument state. Values are layered with viper, lowest precedence first:
//
//   - built-in defaults (SetDefaults)
//   - an optional config file (--config, YAML/TOML/JSON)
//   - SCHEMAGIT_* environment variables, including a .env file in the working directory
//   - command-line flags and positional arguments
//
// # Usage
//
//	v := viper.New()
//	config.SetDefaults(v)
//	v.Set("connection.host", "db01:1522")
//	cfg, err := config.Load(v)
//	if err != nil {
//		return err
//	}
//
// Plan files (the ordered list of object types and shard counts) are plain
// YAML and are read with LoadYAML, which substitutes ${VAR_NAME} references
// from the environment before parsing.
package config

// Package config provides episode configuration management for the EV taxi
// grid world.
//
// The config package handles:
//   - Loading episode configurations from JSON or YAML files
//   - Configuration validation before use
//   - Default configuration management
//   - Configuration discovery and listing
//
// Configuration Format:
//
// Configurations live in the configs directory as <id>.json, <id>.yaml or
// <id>.yml. Fields missing from a file keep their classic defaults:
//
//	name: sparse
//	grid_size: 8
//	obstacle_count: 2
//	charger_count: 1
//	rewards:
//	  obstacle: -2
//
// Usage:
//
//	manager, err := config.NewManager("configs")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	envConfig, err := manager.LoadConfig("sparse")
//	defaultConfig := manager.GetDefault()
//	configs, err := manager.ListConfigs()
//
// When no classic file exists the manager falls back to the first valid file,
// and then to engine.DefaultConfig.
package config

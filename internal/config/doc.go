// Package config provides the configuration system for scrollspy.
//
// Configuration is organized in layers with higher layers overriding lower:
//
//	┌─────────────────────────────┐
//	│  3. Environment Variables   │  ← SCROLLSPY_*, highest priority
//	├─────────────────────────────┤
//	│  2. Config File             │  ← scrollspy.toml or scrollspy.yaml
//	├─────────────────────────────┤
//	│  1. Built-in Defaults       │  ← Lowest priority
//	└─────────────────────────────┘
//
// # Sub-packages
//
//   - loader: configuration file loading (TOML, YAML, environment variables)
//   - watcher: live reload of the config file
package config

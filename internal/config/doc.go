// Package config provides user configuration management for the imagegen client.
//
// This package manages a YAML-based configuration file that stores the
// gateways the user knows about, which one is the default, request timeouts,
// the default generation settings and named presets. The file follows
// OS-specific conventions for storage location.
//
// # Configuration File Location
//
//   - Linux: $XDG_CONFIG_HOME/imagegen/config.yaml or $HOME/.config/imagegen/config.yaml
//   - macOS: $HOME/.config/imagegen/config.yaml
//   - Windows: %LOCALAPPDATA%\imagegen\config.yaml
//
// SetConfigPath replaces the location for one run (the --config flag).
//
// # Environment Overrides
//
// IMAGEGEN_SERVER, IMAGEGEN_TIMEOUT, IMAGEGEN_MONITOR_INTERVAL,
// IMAGEGEN_OUTPUT_DIR, IMAGEGEN_MODEL_TYPE, IMAGEGEN_INDEX_TYPE and
// IMAGEGEN_SEARCH_NUM are read with LoadEnv and applied in memory only;
// they are never written back by Save.
//
// # Import and Export
//
// LoadFile and Export pick YAML, JSON or TOML from the file extension, so a
// team can share a server list in whichever format it already uses:
//
//	other, err := config.LoadFile("servers.toml")
//	if err != nil {
//	    return err
//	}
//	registry.Merge(other)
//	return registry.Save()
//
// # Thread Safety
//
// The global registry uses sync.Once for safe initialization across goroutines.
// File operations are protected by a mutex to ensure atomic writes.
package config

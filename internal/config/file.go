package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bytedance/sonic"
	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// LoadFile reads a registry from path, choosing the decoder by extension.
// Supports: .yaml/.yml, .json, .toml
func LoadFile(path string) (*Registry, error) {
	if path == "" {
		return nil, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var reg Registry
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, &reg)
	case ".json":
		err = sonic.Unmarshal(b, &reg)
	case ".toml":
		err = toml.Unmarshal(b, &reg)
	default:
		return nil, fmt.Errorf("unsupported config extension: %s", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	if reg.Version == 0 {
		reg.Version = 1
	}
	if reg.Version != 1 {
		return nil, fmt.Errorf("unsupported config version: %d (expected 1)", reg.Version)
	}
	reg.normalize()
	return &reg, nil
}

// Export writes the registry to path in the format its extension names.
func (r *Registry) Export(path string) error {
	var (
		data []byte
		err  error
	)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(r)
	case ".json":
		data, err = sonic.ConfigStd.MarshalIndent(r, "", "  ")
	case ".toml":
		data, err = toml.Marshal(r)
	default:
		return fmt.Errorf("unsupported config extension: %s", ext)
	}
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return os.WriteFile(path, data, 0600)
}

// Merge imports servers and presets from other. Entries in other win on
// name collisions; preferences other than presets are left alone.
func (r *Registry) Merge(other *Registry) (servers, presets int) {
	for name, s := range other.Servers {
		if s == nil {
			continue
		}
		c := *s
		r.Servers[name] = &c
		servers++
	}
	if other.Preferences != nil {
		for name, p := range other.Preferences.Presets {
			r.Preferences.Presets[name] = p
			presets++
		}
	}
	return servers, presets
}

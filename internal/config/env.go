package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

// EnvOverrides are IMAGEGEN_* variables that win over the config file for
// a single run. Zero values leave the file setting alone.
type EnvOverrides struct {
	Server          string        `env:"IMAGEGEN_SERVER"`
	Timeout         time.Duration `env:"IMAGEGEN_TIMEOUT"`
	MonitorInterval time.Duration `env:"IMAGEGEN_MONITOR_INTERVAL"`
	OutputDir       string        `env:"IMAGEGEN_OUTPUT_DIR"`
	ModelType       string        `env:"IMAGEGEN_MODEL_TYPE"`
	IndexType       string        `env:"IMAGEGEN_INDEX_TYPE"`
	SearchNum       int           `env:"IMAGEGEN_SEARCH_NUM"`
}

// LoadEnv reads the overrides from the process environment.
func LoadEnv() (EnvOverrides, error) {
	var o EnvOverrides
	if err := env.Parse(&o); err != nil {
		return o, err
	}
	return o, nil
}

// ApplyEnv copies every non-zero override into the in-memory registry.
// The server override returns through the first result because it is a
// --server style value, not a registry field.
func (r *Registry) ApplyEnv(o EnvOverrides) (server string) {
	p := r.Preferences
	if o.Timeout > 0 {
		p.TimeoutSeconds = int(o.Timeout / time.Second)
	}
	if o.MonitorInterval > 0 {
		p.MonitorIntervalSeconds = int(o.MonitorInterval / time.Second)
	}
	if o.OutputDir != "" {
		p.OutputDir = o.OutputDir
	}
	if o.ModelType != "" {
		p.Settings.ModelType = o.ModelType
	}
	if o.IndexType != "" {
		p.Settings.IndexType = o.IndexType
	}
	if o.SearchNum != 0 {
		p.Settings.SearchNum = o.SearchNum
	}
	return o.Server
}

package config

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/muurk/imagegen/internal/protocol"
)

// LocalServerName is the entry NewRegistry seeds for a gateway on this machine.
const LocalServerName = "local"

// Registry represents the entire user configuration file.
// It stores known gateways and application preferences.
type Registry struct {
	Version     int                `yaml:"version" json:"version" toml:"version"`
	Servers     map[string]*Server `yaml:"servers,omitempty" json:"servers,omitempty" toml:"servers,omitempty"` // Keyed by short name
	Preferences *Preferences       `yaml:"preferences,omitempty" json:"preferences,omitempty" toml:"preferences,omitempty"`
}

// Server is one gateway the user can point the client at.
type Server struct {
	URL         string    `yaml:"url" json:"url" toml:"url"`
	Description string    `yaml:"description,omitempty" json:"description,omitempty" toml:"description,omitempty"`
	LastSeen    time.Time `yaml:"last_seen,omitempty" json:"last_seen,omitempty" toml:"last_seen,omitempty"` // Last successful health check or discovery
	Discovered  bool      `yaml:"discovered,omitempty" json:"discovered,omitempty" toml:"discovered,omitempty"`
}

// Preferences represents application-wide user preferences.
type Preferences struct {
	DefaultServer          string                       `yaml:"default_server" json:"default_server" toml:"default_server"`
	TimeoutSeconds         int                          `yaml:"timeout_seconds" json:"timeout_seconds" toml:"timeout_seconds"`
	MonitorIntervalSeconds int                          `yaml:"monitor_interval_seconds" json:"monitor_interval_seconds" toml:"monitor_interval_seconds"`
	DiscoverTimeout        int                          `yaml:"discover_timeout" json:"discover_timeout" toml:"discover_timeout"` // mDNS browse timeout in seconds
	OutputDir              string                       `yaml:"output_dir,omitempty" json:"output_dir,omitempty" toml:"output_dir,omitempty"`
	Settings               protocol.Settings            `yaml:"settings" json:"settings" toml:"settings"`
	Presets                map[string]protocol.Settings `yaml:"presets,omitempty" json:"presets,omitempty" toml:"presets,omitempty"`
}

// DefaultPresets are the named setting bundles offered out of the box.
func DefaultPresets() map[string]protocol.Settings {
	return map[string]protocol.Settings{
		"fast":     {ModelType: "b32", IndexType: "cos", SearchNum: 4},
		"balanced": {ModelType: "l14", IndexType: "cos", SearchNum: 4},
		"precise":  {ModelType: "l14_336", IndexType: "l2", SearchNum: 10},
	}
}

func defaultPreferences() *Preferences {
	return &Preferences{
		DefaultServer:          LocalServerName,
		TimeoutSeconds:         600,
		MonitorIntervalSeconds: 30,
		DiscoverTimeout:        5,
		Settings:               protocol.DefaultSettings(),
		Presets:                DefaultPresets(),
	}
}

// NewRegistry creates a new Registry with default values.
func NewRegistry() *Registry {
	return &Registry{
		Version: 1,
		Servers: map[string]*Server{
			LocalServerName: {
				URL:         "http://localhost:8000",
				Description: "Gateway on this machine",
			},
		},
		Preferences: defaultPreferences(),
	}
}

// normalize fills anything an older or hand-edited file left out.
func (r *Registry) normalize() {
	if r.Servers == nil {
		r.Servers = make(map[string]*Server)
	}
	if r.Preferences == nil {
		r.Preferences = defaultPreferences()
		return
	}
	p := r.Preferences
	if p.TimeoutSeconds <= 0 {
		p.TimeoutSeconds = 600
	}
	if p.MonitorIntervalSeconds <= 0 {
		p.MonitorIntervalSeconds = 30
	}
	if p.DiscoverTimeout <= 0 {
		p.DiscoverTimeout = 5
	}
	if p.Settings == (protocol.Settings{}) {
		p.Settings = protocol.DefaultSettings()
	}
	if p.Presets == nil {
		p.Presets = DefaultPresets()
	}
}

// GetServer retrieves a server by name.
// Returns nil if the server doesn't exist in the registry.
func (r *Registry) GetServer(name string) *Server {
	return r.Servers[name]
}

// ServerNames returns the registered names in sorted order.
func (r *Registry) ServerNames() []string {
	return slices.Sorted(maps.Keys(r.Servers))
}

// SetServer adds or replaces a server entry.
func (r *Registry) SetServer(name, rawURL, description string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("server name is required")
	}
	rawURL = strings.TrimRight(strings.TrimSpace(rawURL), "/")
	if !protocol.ValidURLScheme(rawURL) {
		return fmt.Errorf("server URL must start with http:// or https://: %q", rawURL)
	}
	if r.Servers == nil {
		r.Servers = make(map[string]*Server)
	}
	existing := r.Servers[name]
	if existing == nil {
		r.Servers[name] = &Server{URL: rawURL, Description: description}
		return nil
	}
	existing.URL = rawURL
	if description != "" {
		existing.Description = description
	}
	return nil
}

// RemoveServer deletes a server. The default server cannot be removed.
func (r *Registry) RemoveServer(name string) error {
	if _, ok := r.Servers[name]; !ok {
		return fmt.Errorf("unknown server %q", name)
	}
	if r.Preferences != nil && r.Preferences.DefaultServer == name {
		return fmt.Errorf("server %q is the default; choose another default first", name)
	}
	delete(r.Servers, name)
	return nil
}

// SetDefaultServer makes name the server used when --server is not given.
func (r *Registry) SetDefaultServer(name string) error {
	if _, ok := r.Servers[name]; !ok {
		return fmt.Errorf("unknown server %q", name)
	}
	r.Preferences.DefaultServer = name
	return nil
}

// MarkSeen records a successful contact with a server, creating the entry
// for a newly discovered gateway.
func (r *Registry) MarkSeen(name, rawURL string, discovered bool) *Server {
	if r.Servers == nil {
		r.Servers = make(map[string]*Server)
	}
	s := r.Servers[name]
	if s == nil {
		s = &Server{URL: rawURL, Discovered: discovered}
		r.Servers[name] = s
	}
	if rawURL != "" {
		s.URL = rawURL
	}
	s.LastSeen = time.Now()
	return s
}

// ResolveServer turns a --server value into a base URL. A value with an
// http(s) scheme is used as is; otherwise it names a registry entry. An empty
// value selects the default server.
func (r *Registry) ResolveServer(nameOrURL string) (string, error) {
	nameOrURL = strings.TrimSpace(nameOrURL)
	if protocol.ValidURLScheme(nameOrURL) {
		return strings.TrimRight(nameOrURL, "/"), nil
	}
	if nameOrURL == "" && r.Preferences != nil {
		nameOrURL = r.Preferences.DefaultServer
	}
	s := r.Servers[nameOrURL]
	if s == nil {
		return "", fmt.Errorf("unknown server %q (known: %s)", nameOrURL, strings.Join(r.ServerNames(), ", "))
	}
	return s.URL, nil
}

// Timeout is the generation request timeout.
func (r *Registry) Timeout() time.Duration {
	return time.Duration(r.Preferences.TimeoutSeconds) * time.Second
}

// MonitorInterval is the connection poll period.
func (r *Registry) MonitorInterval() time.Duration {
	return time.Duration(r.Preferences.MonitorIntervalSeconds) * time.Second
}

// DiscoverDuration is the mDNS browse window.
func (r *Registry) DiscoverDuration() time.Duration {
	return time.Duration(r.Preferences.DiscoverTimeout) * time.Second
}

// Preset looks up a named preset.
func (r *Registry) Preset(name string) (protocol.Settings, bool) {
	s, ok := r.Preferences.Presets[name]
	return s, ok
}

// SetPreset validates and stores a named preset.
func (r *Registry) SetPreset(name string, s protocol.Settings) error {
	if name == "" {
		return fmt.Errorf("preset name is required")
	}
	if !slices.Contains(protocol.ModelTypes, s.ModelType) {
		return fmt.Errorf("unsupported model type %q", s.ModelType)
	}
	if !slices.Contains(protocol.IndexTypes, s.IndexType) {
		return fmt.Errorf("unsupported index type %q", s.IndexType)
	}
	if s.SearchNum < protocol.MinSearchNum || s.SearchNum > protocol.MaxSearchNum {
		return fmt.Errorf("search count must be between %d and %d", protocol.MinSearchNum, protocol.MaxSearchNum)
	}
	if r.Preferences.Presets == nil {
		r.Preferences.Presets = make(map[string]protocol.Settings)
	}
	r.Preferences.Presets[name] = s
	return nil
}

package gateway

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/muurk/imagegen/internal/protocol"
)

// Settings holds the gateway configuration, read from the environment.
type Settings struct {
	Host              string        `env:"HOST" envDefault:"0.0.0.0"`
	Port              int           `env:"SERVICE_PORT" envDefault:"8000"`
	ExternalAPIURL    string        `env:"EXTERNAL_API_URL" envDefault:"http://localhost:8001/api/create"`
	APITimeoutSeconds int           `env:"API_TIMEOUT_SECONDS" envDefault:"600"`
	ConnectTimeout    time.Duration `env:"API_CONNECT_TIMEOUT" envDefault:"10s"`
	Debug             bool          `env:"DEBUG_MODE" envDefault:"false"`
	EndpointsFile     string        `env:"ENDPOINTS_FILE"`
	ShutdownTimeout   time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	CORSOrigins       []string      `env:"CORS_ORIGINS" envSeparator:"," envDefault:"*"`
	MaxBodyBytes      int64         `env:"MAX_BODY_BYTES" envDefault:"1048576"`
	MDNSAdvertise     bool          `env:"MDNS_ADVERTISE" envDefault:"false"`
	MDNSInstance      string        `env:"MDNS_INSTANCE"`
	LogLevel          string        `env:"LOG_LEVEL" envDefault:"info"`
	TLSCertFile       string        `env:"TLS_CERT_FILE"`
	TLSKeyFile        string        `env:"TLS_KEY_FILE"`
}

// LoadSettings reads envFile into the process environment when it exists
// and then parses Settings. Variables already set win over the file.
func LoadSettings(envFile string) (*Settings, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	s := &Settings{}
	if err := env.Parse(s); err != nil {
		return nil, err
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks values env.Parse cannot.
func (s *Settings) Validate() error {
	if s.Port <= 0 || s.Port > 65535 {
		return fmt.Errorf("SERVICE_PORT out of range: %d", s.Port)
	}
	if !protocol.ValidURLScheme(s.ExternalAPIURL) {
		return fmt.Errorf("EXTERNAL_API_URL must start with http:// or https://: %q", s.ExternalAPIURL)
	}
	if s.APITimeoutSeconds <= 0 {
		return fmt.Errorf("API_TIMEOUT_SECONDS must be positive: %d", s.APITimeoutSeconds)
	}
	if (s.TLSCertFile == "") != (s.TLSKeyFile == "") {
		return fmt.Errorf("TLS_CERT_FILE and TLS_KEY_FILE must be set together")
	}
	return nil
}

// Addr is the listen address.
func (s *Settings) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// APITimeout bounds one upstream call.
func (s *Settings) APITimeout() time.Duration {
	return time.Duration(s.APITimeoutSeconds) * time.Second
}

// Instance is the mDNS instance name.
func (s *Settings) Instance() string {
	if s.MDNSInstance != "" {
		return s.MDNSInstance
	}
	host, err := os.Hostname()
	if err != nil || host == "" {
		return "imagegen"
	}
	return "imagegen on " + strings.TrimSuffix(host, ".local")
}

type endpointsFile struct {
	Endpoints []protocol.EndpointDescriptor `yaml:"endpoints"`
}

// LoadEndpoints reads the predefined endpoint list. With no file the list
// holds only the configured upstream.
func LoadEndpoints(path, currentURL string) ([]protocol.EndpointDescriptor, error) {
	if path == "" {
		return []protocol.EndpointDescriptor{{
			Name:        "기본 API",
			URL:         currentURL,
			Description: "EXTERNAL_API_URL에 설정된 이미지 검색 API",
		}}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read endpoints file: %w", err)
	}

	var file endpointsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse endpoints file: %w", err)
	}
	for i, ep := range file.Endpoints {
		if ep.Name == "" {
			return nil, fmt.Errorf("endpoint %d has no name", i)
		}
		if !protocol.ValidURLScheme(ep.URL) {
			return nil, fmt.Errorf("endpoint %q has an invalid URL: %q", ep.Name, ep.URL)
		}
	}
	return file.Endpoints, nil
}

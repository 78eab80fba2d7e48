package protocol

import (
	"encoding/json"
	"strings"
)

// Request paths served by the gateway.
const (
	PathCreate       = "/create"
	PathConfig       = "/config"
	PathHealth       = "/health"
	PathAPIStatus    = "/api-status"
	PathAPIEndpoints = "/api-endpoints"
	PathChangeAPIURL = "/change-api-url"
	PathMetrics      = "/metrics"
)

// ImageDataURIPrefix turns a bare base64 PNG into a data URI.
const ImageDataURIPrefix = "data:image/png;base64,"

// Values of APIStatusResponse.Status and HealthResponse.Status.
const (
	StatusConnected    = "connected"
	StatusDisconnected = "disconnected"
	StatusHealthy      = "healthy"
	StatusSuccess      = "success"
)

// Values of ErrorBody.ErrorType.
const (
	ErrorTypeValidation = "validation_error"
	ErrorTypeConnection = "connection_error"
	ErrorTypeAPI        = "api_error"
	ErrorTypeInternal   = "internal_error"
	ErrorTypeConfig     = "config_error"
)

// Generation defaults and limits.
const (
	DefaultAPI       = "imagen"
	DefaultModelType = "l14"
	DefaultIndexType = "cos"
	DefaultSearchNum = 4

	MinSearchNum    = 1
	MaxSearchNum    = 10
	MaxPromptLength = 500
)

var (
	// ModelTypes lists the CLIP backbones the imagen API accepts.
	ModelTypes = []string{"b32", "b16", "l14", "l14_336"}
	// IndexTypes lists the vector index metrics.
	IndexTypes = []string{"l2", "cos"}
)

// GenerationRequest is the body of POST /create.
type GenerationRequest struct {
	Prompt    string `json:"prompt"`
	ModelType string `json:"modelType"`
	IndexType string `json:"indexType"`
	SearchNum int    `json:"searchNum"`
	QuerySend bool   `json:"querySend"`
}

// VectorItem is one ranked result. Either field may be missing on the wire.
type VectorItem struct {
	Image    string   `json:"image,omitempty"`
	Percents *float64 `json:"percents,omitempty"`
}

// Renderable reports whether the item has both an image and a score.
func (v VectorItem) Renderable() bool {
	return v.Image != "" && v.Percents != nil
}

// ServerLimitation is added by the gateway when the upstream returned
// a different number of results than requested.
type ServerLimitation struct {
	Requested int    `json:"requested"`
	Actual    int    `json:"actual"`
	Message   string `json:"message"`
}

// GenerationResult is the body of a successful POST /create.
type GenerationResult struct {
	Result           bool              `json:"result"`
	QueryImage       string            `json:"queryImage,omitempty"`
	VectorResult     []VectorItem      `json:"vectorResult"`
	ServerLimitation *ServerLimitation `json:"_server_limitation,omitempty"`

	// Raw is the undecoded response body, kept for the JSON viewer.
	Raw json.RawMessage `json:"-"`
}

// Range is an inclusive integer range.
type Range struct {
	Min int `json:"min" yaml:"min"`
	Max int `json:"max" yaml:"max"`
}

// Contains reports whether n lies in the range.
func (r Range) Contains(n int) bool {
	return n >= r.Min && n <= r.Max
}

// SupportedSettings lists what an API accepts.
type SupportedSettings struct {
	ModelType []string `json:"model_type" yaml:"model_type"`
	IndexType []string `json:"index_type" yaml:"index_type"`
	SearchNum Range    `json:"search_num" yaml:"search_num"`
}

// APIInfo describes one generation API.
type APIInfo struct {
	Name              string            `json:"name" yaml:"name"`
	Description       string            `json:"description" yaml:"description"`
	SupportedSettings SupportedSettings `json:"supported_settings" yaml:"supported_settings"`
}

// APISummary is the short form of APIInfo shown in the frontend config.
type APISummary struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Settings are the three user-selectable generation options.
type Settings struct {
	ModelType string `json:"model_type" yaml:"model_type" toml:"model_type"`
	IndexType string `json:"index_type" yaml:"index_type" toml:"index_type"`
	SearchNum int    `json:"search_num" yaml:"search_num" toml:"search_num"`
}

// DefaultSettings returns l14 / cos / 4.
func DefaultSettings() Settings {
	return Settings{
		ModelType: DefaultModelType,
		IndexType: DefaultIndexType,
		SearchNum: DefaultSearchNum,
	}
}

// Limits bound the generation form.
type Limits struct {
	MaxSearchNum    int `json:"max_search_num"`
	MinSearchNum    int `json:"min_search_num"`
	MaxPromptLength int `json:"max_prompt_length"`
}

// Theme carries the page colors. The terminal client maps them onto lipgloss.
type Theme struct {
	PrimaryColor string `json:"primary_color"`
	SuccessColor string `json:"success_color"`
	ErrorColor   string `json:"error_color"`
}

type UIConfig struct {
	DefaultSettings Settings `json:"default_settings"`
	Limits          Limits   `json:"limits"`
	Theme           Theme    `json:"theme"`
}

type ServerInfo struct {
	Debug bool `json:"debug"`
}

// FrontendConfig is the "config" member of GET /config.
type FrontendConfig struct {
	APIs   map[string]APISummary `json:"apis"`
	UI     UIConfig              `json:"ui"`
	Server ServerInfo            `json:"server"`
}

// ConfigResponse is the body of GET /config.
type ConfigResponse struct {
	Config FrontendConfig     `json:"config"`
	APIs   map[string]APIInfo `json:"apis"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Service   string `json:"service"`
}

// APIStatusResponse is the body of GET /api-status.
type APIStatusResponse struct {
	Status         string `json:"status"`
	APIURL         string `json:"api_url"`
	ConnectionTest string `json:"connection_test"`
	Error          string `json:"error,omitempty"`
	Timestamp      string `json:"timestamp"`
	Note           string `json:"note,omitempty"`
}

// Connected reports whether the gateway reached the upstream.
func (s *APIStatusResponse) Connected() bool {
	return s != nil && s.Status == StatusConnected
}

// EndpointDescriptor names one selectable upstream.
type EndpointDescriptor struct {
	Name        string `json:"name" yaml:"name"`
	URL         string `json:"url" yaml:"url"`
	Description string `json:"description" yaml:"description"`
}

// EndpointsResponse is the body of GET /api-endpoints.
type EndpointsResponse struct {
	CurrentURL          string               `json:"current_url"`
	PredefinedEndpoints []EndpointDescriptor `json:"predefined_endpoints"`
	Timestamp           string               `json:"timestamp"`
}

// ChangeURLRequest is the body of POST /change-api-url.
type ChangeURLRequest struct {
	URL string `json:"url"`
}

// ChangeURLResponse is the success body of POST /change-api-url.
type ChangeURLResponse struct {
	Status    string `json:"status"`
	OldURL    string `json:"old_url"`
	NewURL    string `json:"new_url"`
	Timestamp string `json:"timestamp"`
	Message   string `json:"message"`
}

// ErrorBody is the body of every non-2xx response.
type ErrorBody struct {
	Detail          string `json:"detail"`
	ErrorType       string `json:"error_type,omitempty"`
	StatusCode      int    `json:"status_code,omitempty"`
	TechnicalDetail string `json:"technical_detail,omitempty"`
}

// ValidURLScheme reports whether u starts with http:// or https://.
func ValidURLScheme(u string) bool {
	return strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://")
}

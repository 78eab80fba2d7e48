package apiclient

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/muurk/imagegen/internal/protocol"
)

const catResponse = `{"result":true,"queryImage":"AAAA","vectorResult":[{"image":"BBBB","percents":92.345}]}`

func catRequest() protocol.GenerationRequest {
	return protocol.GenerationRequest{
		Prompt:    "cat",
		ModelType: "l14",
		IndexType: "cos",
		SearchNum: 4,
		QuerySend: true,
	}
}

func TestNewClient(t *testing.T) {
	client := NewClient("http://localhost:9000/")

	if client.BaseURL != "http://localhost:9000" {
		t.Errorf("BaseURL = %s, want http://localhost:9000", client.BaseURL)
	}
	if client.Timeout() != DefaultTimeout {
		t.Errorf("Timeout() = %v, want %v", client.Timeout(), DefaultTimeout)
	}

	if got := NewClient("").BaseURL; got != DefaultBaseURL {
		t.Errorf("NewClient(\"\").BaseURL = %s, want %s", got, DefaultBaseURL)
	}
}

func TestSetTimeout(t *testing.T) {
	client := NewClient("")
	client.SetTimeout(5 * time.Second)

	if client.HTTPClient.Timeout != 5*time.Second {
		t.Errorf("Timeout = %v, want 5s", client.HTTPClient.Timeout)
	}
}

func TestGenerateImage(t *testing.T) {
	var gotPath, gotRequestID, gotContentType string
	var gotBody protocol.GenerationRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotRequestID = r.Header.Get(RequestIDHeader)
		gotContentType = r.Header.Get("Content-Type")
		if r.Method != http.MethodPost {
			t.Errorf("Method = %s, want POST", r.Method)
		}
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &gotBody); err != nil {
			t.Errorf("request body is not JSON: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(catResponse))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	result, err := client.GenerateImage(context.Background(), catRequest(), "")
	if err != nil {
		t.Fatalf("GenerateImage() error = %v", err)
	}

	if gotPath != "/create" {
		t.Errorf("path = %s, want /create", gotPath)
	}
	if gotRequestID == "" {
		t.Error("X-Request-ID header should be set")
	}
	if gotContentType != "application/json" {
		t.Errorf("Content-Type = %s, want application/json", gotContentType)
	}
	if gotBody != catRequest() {
		t.Errorf("request body = %+v, want %+v", gotBody, catRequest())
	}

	if !result.Result {
		t.Error("Result should be true")
	}
	if result.QueryImage != "AAAA" {
		t.Errorf("QueryImage = %s, want AAAA", result.QueryImage)
	}
	if len(result.VectorResult) != 1 {
		t.Fatalf("len(VectorResult) = %d, want 1", len(result.VectorResult))
	}
	if item := result.VectorResult[0]; item.Image != "BBBB" || item.Percents == nil || *item.Percents != 92.345 {
		t.Errorf("VectorResult[0] = %+v, want BBBB / 92.345", item)
	}
	if string(result.Raw) != catResponse {
		t.Errorf("Raw = %s, want %s", result.Raw, catResponse)
	}
}

func TestGenerateImageNamedAPI(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = w.Write([]byte(`{"result":true,"vectorResult":[]}`))
	}))
	defer server.Close()

	if _, err := NewClient(server.URL).GenerateImage(context.Background(), catRequest(), "other"); err != nil {
		t.Fatalf("GenerateImage() error = %v", err)
	}
	if gotPath != "/create/other" {
		t.Errorf("path = %s, want /create/other", gotPath)
	}
}

func TestGenerateImageErrors(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantType    ErrorType
		wantMessage string
		wantKind    ServerErrorKind
		wantPayload bool
	}{
		{
			name:        "api error payload",
			status:      http.StatusInternalServerError,
			body:        `{"detail":"bad index","error_type":"api_error","status_code":500}`,
			wantType:    ErrTypeServer,
			wantMessage: "bad index",
			wantKind:    KindAPI,
			wantPayload: true,
		},
		{
			name:        "validation payload",
			status:      http.StatusBadRequest,
			body:        `{"detail":"프롬프트는 필수입니다","error_type":"validation_error"}`,
			wantType:    ErrTypeServer,
			wantMessage: "프롬프트는 필수입니다",
			wantKind:    KindValidation,
			wantPayload: true,
		},
		{
			name:        "plain text body",
			status:      http.StatusBadGateway,
			body:        "upstream exploded",
			wantType:    ErrTypeServer,
			wantMessage: "upstream exploded",
			wantKind:    KindUnrecognized,
			wantPayload: true,
		},
		{
			name:        "empty body",
			status:      http.StatusInternalServerError,
			body:        "",
			wantType:    ErrTypeUnknown,
			wantMessage: MsgUnknown,
		},
		{
			name:        "payload without detail",
			status:      http.StatusInternalServerError,
			body:        `{"error_type":"internal_error"}`,
			wantType:    ErrTypeUnknown,
			wantMessage: MsgUnknown,
			wantKind:    KindUnrecognized,
			wantPayload: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := NewClient(server.URL).GenerateImage(context.Background(), catRequest(), "")
			apiErr, ok := AsAPIError(err)
			if !ok {
				t.Fatalf("error = %v, want *APIError", err)
			}
			if apiErr.Type != tt.wantType {
				t.Errorf("Type = %v, want %v", apiErr.Type, tt.wantType)
			}
			if apiErr.Message != tt.wantMessage {
				t.Errorf("Message = %q, want %q", apiErr.Message, tt.wantMessage)
			}
			if apiErr.Status != tt.status {
				t.Errorf("Status = %d, want %d", apiErr.Status, tt.status)
			}
			if (apiErr.Response != nil) != tt.wantPayload {
				t.Fatalf("Response = %+v, want payload %v", apiErr.Response, tt.wantPayload)
			}
			if tt.wantPayload && apiErr.Response.Kind != tt.wantKind {
				t.Errorf("Response.Kind = %v, want %v", apiErr.Response.Kind, tt.wantKind)
			}
		})
	}
}

func TestGenerateImageTimeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	client := NewClient(server.URL)
	client.SetTimeout(50 * time.Millisecond)

	_, err := client.GenerateImage(context.Background(), catRequest(), "")
	if !IsTimeout(err) {
		t.Fatalf("error = %v, want timeout", err)
	}
	apiErr, _ := AsAPIError(err)
	if apiErr.Message != MsgTimeout {
		t.Errorf("Message = %q, want %q", apiErr.Message, MsgTimeout)
	}
	if apiErr.Status != 0 {
		t.Errorf("Status = %d, want 0", apiErr.Status)
	}
}

func TestGenerateImageUnreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := NewClient(url).GenerateImage(context.Background(), catRequest(), "")
	apiErr, ok := AsAPIError(err)
	if !ok {
		t.Fatalf("error = %v, want *APIError", err)
	}
	if apiErr.Type != ErrTypeNetwork {
		t.Errorf("Type = %v, want %v", apiErr.Type, ErrTypeNetwork)
	}
	if apiErr.Message != MsgNetwork {
		t.Errorf("Message = %q, want %q", apiErr.Message, MsgNetwork)
	}
}

func TestGenerateImageMalformedSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>not json</html>"))
	}))
	defer server.Close()

	_, err := NewClient(server.URL).GenerateImage(context.Background(), catRequest(), "")
	apiErr, ok := AsAPIError(err)
	if !ok {
		t.Fatalf("error = %v, want *APIError", err)
	}
	if apiErr.Type != ErrTypeUnknown {
		t.Errorf("Type = %v, want %v", apiErr.Type, ErrTypeUnknown)
	}
}

func TestProbesReturnNilWhenUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	ctx := context.Background()

	if cfg := client.GetConfig(ctx); cfg != nil {
		t.Errorf("GetConfig() = %+v, want nil", cfg)
	}
	if health := client.CheckHealth(ctx); health != nil {
		t.Errorf("CheckHealth() = %+v, want nil", health)
	}
	if status := client.CheckAPIStatus(ctx); status != nil {
		t.Errorf("CheckAPIStatus() = %+v, want nil", status)
	}
}

func TestCheckAPIStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != protocol.PathAPIStatus {
			t.Errorf("path = %s, want %s", r.URL.Path, protocol.PathAPIStatus)
		}
		_, _ = w.Write([]byte(`{"status":"connected","api_url":"http://up/api/create","connection_test":"success","timestamp":"2026-01-01T00:00:00"}`))
	}))
	defer server.Close()

	status := NewClient(server.URL).CheckAPIStatus(context.Background())
	if !status.Connected() {
		t.Errorf("CheckAPIStatus() = %+v, want connected", status)
	}
	if status.APIURL != "http://up/api/create" {
		t.Errorf("APIURL = %s, want http://up/api/create", status.APIURL)
	}
}

func TestGetConfig(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{
			"config": {"apis": {"imagen": {"name": "Imagen API", "description": "d"}},
			           "ui": {"default_settings": {"model_type": "l14", "index_type": "cos", "search_num": 4},
			                  "limits": {"max_search_num": 10, "min_search_num": 1, "max_prompt_length": 500}}},
			"apis": {"imagen": {"name": "Imagen API", "supported_settings": {"model_type": ["b32","l14"], "index_type": ["cos"], "search_num": {"min": 1, "max": 10}}}}
		}`))
	}))
	defer server.Close()

	cfg := NewClient(server.URL).GetConfig(context.Background())
	if cfg == nil {
		t.Fatal("GetConfig() = nil")
	}
	if cfg.Config.UI.Limits.MaxSearchNum != 10 {
		t.Errorf("MaxSearchNum = %d, want 10", cfg.Config.UI.Limits.MaxSearchNum)
	}
	if got := cfg.APIs["imagen"].SupportedSettings.ModelType; len(got) != 2 {
		t.Errorf("ModelType = %v, want 2 entries", got)
	}
}

func TestChangeAPIURL(t *testing.T) {
	var calls atomic.Int32
	var gotURL string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		var req protocol.ChangeURLRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		gotURL = req.URL
		_, _ = w.Write([]byte(`{"status":"success","old_url":"http://a","new_url":"http://ok","message":"m"}`))
	}))
	defer server.Close()

	resp, err := NewClient(server.URL).ChangeAPIURL(context.Background(), "http://ok")
	if err != nil {
		t.Fatalf("ChangeAPIURL() error = %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
	if gotURL != "http://ok" {
		t.Errorf("posted url = %s, want http://ok", gotURL)
	}
	if resp.NewURL != "http://ok" {
		t.Errorf("NewURL = %s, want http://ok", resp.NewURL)
	}
}

func TestCancelledContextIsNotNetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewClient(server.URL).ListEndpoints(ctx)
	apiErr, ok := AsAPIError(err)
	if !ok {
		t.Fatalf("error = %v, want *APIError", err)
	}
	if apiErr.Type != ErrTypeUnknown {
		t.Errorf("Type = %v, want %v", apiErr.Type, ErrTypeUnknown)
	}
}

package gateway

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muurk/imagegen/internal/protocol"
)

var fixedNow = time.Date(2025, 8, 1, 12, 30, 0, 123456000, time.Local)

type testGateway struct {
	server   *httptest.Server
	upstream *Upstream
	calls    atomic.Int32
	lastBody atomic.Value
	lastPath atomic.Value
}

// newTestGateway starts a fake image search API with handler and a gateway
// in front of it.
func newTestGateway(t *testing.T, handler http.HandlerFunc) *testGateway {
	t.Helper()
	tg := &testGateway{}

	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tg.calls.Add(1)
		tg.lastPath.Store(r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		tg.lastBody.Store(body)
		handler(w, r)
	}))
	t.Cleanup(api.Close)

	settings := &Settings{
		ExternalAPIURL:    api.URL + "/api/create",
		APITimeoutSeconds: 5,
		ConnectTimeout:    time.Second,
		MaxBodyBytes:      1 << 20,
		CORSOrigins:       []string{"*"},
	}
	tg.upstream = NewUpstream(settings.ExternalAPIURL, settings.APITimeout(), settings.ConnectTimeout)
	endpoints := []protocol.EndpointDescriptor{
		{Name: "로컬", URL: settings.ExternalAPIURL, Description: "test"},
		{Name: "원격", URL: "http://remote:8001/api/create", Description: "remote"},
	}
	h := NewHandler(settings, tg.upstream, NewCatalog(), endpoints)
	h.now = func() time.Time { return fixedNow }

	tg.server = httptest.NewServer(NewRouter(h, settings.CORSOrigins))
	t.Cleanup(tg.server.Close)
	return tg
}

func (tg *testGateway) post(t *testing.T, path, body string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.Post(tg.server.URL+path, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	return resp, decodeBody(t, resp)
}

func (tg *testGateway) get(t *testing.T, path string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.Get(tg.server.URL + path)
	require.NoError(t, err)
	return resp, decodeBody(t, resp)
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()
	var out map[string]any
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &out), "body: %s", data)
	return out
}

func vectorResult(n int) []map[string]any {
	items := make([]map[string]any, n)
	for i := range items {
		items[i] = map[string]any{"image": "iVBORw0KGgo=", "percents": 90.0 - float64(i)}
	}
	return items
}

func respondJSON(status int, v any) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(v)
	}
}

func TestHealth(t *testing.T) {
	tg := newTestGateway(t, respondJSON(http.StatusOK, map[string]any{}))

	resp, body := tg.get(t, "/health")

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "AI Image Generator Web Server", body["service"])
	assert.Equal(t, "2025-08-01T12:30:00.123456", body["timestamp"])
}

func TestConfig(t *testing.T) {
	tg := newTestGateway(t, respondJSON(http.StatusOK, map[string]any{}))

	resp, err := http.Get(tg.server.URL + "/config")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var cfg protocol.ConfigResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&cfg))

	assert.Equal(t, protocol.DefaultSettings(), cfg.Config.UI.DefaultSettings)
	assert.Equal(t, 10, cfg.Config.UI.Limits.MaxSearchNum)
	assert.Equal(t, 500, cfg.Config.UI.Limits.MaxPromptLength)
	assert.Equal(t, "#646464", cfg.Config.UI.Theme.PrimaryColor)
	assert.Equal(t, "Imagen API", cfg.Config.APIs["imagen"].Name)
	assert.False(t, cfg.Config.Server.Debug)

	imagen := cfg.APIs["imagen"]
	assert.Equal(t, []string{"b32", "b16", "l14", "l14_336"}, imagen.SupportedSettings.ModelType)
	assert.Equal(t, protocol.Range{Min: 1, Max: 10}, imagen.SupportedSettings.SearchNum)
}

func TestCreateForwardsBothSpellings(t *testing.T) {
	tg := newTestGateway(t, respondJSON(http.StatusOK, map[string]any{
		"result":       true,
		"queryImage":   "iVBORw0KGgo=",
		"vectorResult": vectorResult(4),
	}))

	resp, body := tg.post(t, "/create", `{"prompt":"  a cat  ","modelType":"b16","index_type":"l2","searchNum":"4"}`)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["result"])
	assert.NotContains(t, body, "_server_limitation")
	assert.Len(t, body["vectorResult"], 4)

	var sent map[string]any
	require.NoError(t, json.Unmarshal(tg.lastBody.Load().([]byte), &sent))
	assert.Equal(t, "a cat", sent["prompt"])
	assert.Equal(t, "b16", sent["modelType"])
	assert.Equal(t, "b16", sent["model_type"])
	assert.Equal(t, "l2", sent["indexType"])
	assert.Equal(t, "l2", sent["index_type"])
	assert.Equal(t, 4.0, sent["searchNum"])
	assert.Equal(t, 4.0, sent["search_num"])
	assert.Equal(t, true, sent["querySend"])
	assert.Equal(t, "/api/create", tg.lastPath.Load())
}

func TestCreateNamedAPI(t *testing.T) {
	tg := newTestGateway(t, respondJSON(http.StatusOK, map[string]any{"result": true, "vectorResult": vectorResult(4)}))

	resp, _ := tg.post(t, "/create/imagen", `{"prompt":"dog"}`)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(1), tg.calls.Load())
}

func TestCreateAddsServerLimitation(t *testing.T) {
	tg := newTestGateway(t, respondJSON(http.StatusOK, map[string]any{
		"result":       true,
		"vectorResult": vectorResult(2),
	}))

	resp, body := tg.post(t, "/create", `{"prompt":"a cat","searchNum":4}`)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	limitation, ok := body["_server_limitation"].(map[string]any)
	require.True(t, ok, "missing _server_limitation in %v", body)
	assert.Equal(t, 4.0, limitation["requested"])
	assert.Equal(t, 2.0, limitation["actual"])
	assert.Equal(t, "외부 API 서버에서 최대 2개까지만 반환합니다.", limitation["message"])
}

func TestCreateValidation(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		body       string
		wantDetail string
	}{
		{"missing prompt", "/create", `{"searchNum":4}`, "프롬프트는 필수입니다"},
		{"blank prompt", "/create", `{"prompt":"   "}`, "프롬프트는 필수입니다"},
		{"prompt too long", "/create", `{"prompt":"` + strings.Repeat("가", 501) + `"}`, "프롬프트가 너무 깁니다 (최대 500자)"},
		{"search num zero", "/create", `{"prompt":"x","searchNum":0}`, "Search Num은 1~10 사이여야 합니다"},
		{"search num eleven", "/create", `{"prompt":"x","search_num":"11"}`, "Search Num은 1~10 사이여야 합니다"},
		{"search num text", "/create", `{"prompt":"x","searchNum":"abc"}`, "Search Num은 숫자여야 합니다"},
		{"search num fraction", "/create", `{"prompt":"x","searchNum":2.5}`, "Search Num은 숫자여야 합니다"},
		{"unsupported model", "/create", `{"prompt":"x","modelType":"vit_h"}`, "유효하지 않은 설정값입니다."},
		{"unsupported index", "/create", `{"prompt":"x","indexType":"ip"}`, "유효하지 않은 설정값입니다."},
		{"unknown api", "/create/dalle", `{"prompt":"x"}`, "지원하지 않는 API: dalle. 사용 가능한 API: [imagen]"},
		{"not json", "/create", `prompt=x`, MsgInvalidJSON},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tg := newTestGateway(t, respondJSON(http.StatusOK, map[string]any{}))

			resp, body := tg.post(t, tt.path, tt.body)

			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, "validation_error", body["error_type"])
			assert.Equal(t, tt.wantDetail, body["detail"])
			assert.Zero(t, tg.calls.Load(), "upstream must not be called")
		})
	}
}

func TestCreateUpstreamStatusError(t *testing.T) {
	tg := newTestGateway(t, respondJSON(http.StatusInternalServerError, map[string]any{"error": "bad index"}))

	resp, body := tg.post(t, "/create", `{"prompt":"a cat"}`)

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "api_error", body["error_type"])
	assert.Equal(t, "외부 API 오류: 500", body["detail"])
	assert.Equal(t, 500.0, body["status_code"])
}

func TestCreateUpstreamUnreachable(t *testing.T) {
	tg := newTestGateway(t, respondJSON(http.StatusOK, map[string]any{}))
	closed := httptest.NewServer(http.NotFoundHandler())
	closed.Close()
	tg.upstream.SetURL(closed.URL + "/api/create")

	resp, body := tg.post(t, "/create", `{"prompt":"a cat"}`)

	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Equal(t, "connection_error", body["error_type"])
	assert.Equal(t, "외부 API 서버에 연결할 수 없습니다. 네트워크 연결을 확인하세요.", body["detail"])
	assert.NotEmpty(t, body["technical_detail"])
}

func TestCreateUpstreamInvalidJSON(t *testing.T) {
	tg := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>oops</html>"))
	})

	resp, body := tg.post(t, "/create", `{"prompt":"a cat"}`)

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "internal_error", body["error_type"])
	assert.Equal(t, "서버 내부 오류가 발생했습니다.", body["detail"])
}

func TestAPIStatus(t *testing.T) {
	t.Run("connected probes the origin", func(t *testing.T) {
		tg := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		})

		resp, body := tg.get(t, "/api-status")

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "connected", body["status"])
		assert.Equal(t, "success", body["connection_test"])
		assert.Equal(t, tg.upstream.URL(), body["api_url"])
		assert.Equal(t, "/", tg.lastPath.Load())
	})

	t.Run("disconnected", func(t *testing.T) {
		tg := newTestGateway(t, respondJSON(http.StatusOK, map[string]any{}))
		closed := httptest.NewServer(http.NotFoundHandler())
		closed.Close()
		tg.upstream.SetURL(closed.URL + "/api/create")

		resp, body := tg.get(t, "/api-status")

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "disconnected", body["status"])
		assert.Equal(t, "failed", body["connection_test"])
		assert.NotEmpty(t, body["error"])
		assert.Equal(t, "외부 API 서버가 실행되지 않았거나 네트워크 문제일 수 있습니다.", body["note"])
	})
}

func TestEndpointsAndChangeURL(t *testing.T) {
	tg := newTestGateway(t, respondJSON(http.StatusOK, map[string]any{}))
	original := tg.upstream.URL()

	_, body := tg.get(t, "/api-endpoints")
	assert.Equal(t, original, body["current_url"])
	assert.Len(t, body["predefined_endpoints"], 2)

	resp, body := tg.post(t, "/change-api-url", `{"url":""}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "URL이 제공되지 않았습니다.", body["detail"])

	resp, body = tg.post(t, "/change-api-url", `{"url":"ftp://x"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "validation_error", body["error_type"])
	assert.Equal(t, original, tg.upstream.URL())

	resp, body = tg.post(t, "/change-api-url", `{"url":"http://remote:8001/api/create"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "success", body["status"])
	assert.Equal(t, original, body["old_url"])
	assert.Equal(t, "http://remote:8001/api/create", body["new_url"])
	assert.Equal(t, "API URL이 성공적으로 변경되었습니다.", body["message"])

	_, body = tg.get(t, "/api-endpoints")
	assert.Equal(t, "http://remote:8001/api/create", body["current_url"])
}

func TestChangeURLMalformedBody(t *testing.T) {
	tg := newTestGateway(t, respondJSON(http.StatusOK, map[string]any{}))

	resp, body := tg.post(t, "/change-api-url", `{"url":`)

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "API URL 변경 중 오류가 발생했습니다.", body["detail"])
	assert.Equal(t, "internal_error", body["error_type"])
}

func TestCORSPreflight(t *testing.T) {
	tg := newTestGateway(t, respondJSON(http.StatusOK, map[string]any{}))

	req, err := http.NewRequest(http.MethodOptions, tg.server.URL+"/create", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, "http://localhost:3000", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestMetricsRoute(t *testing.T) {
	tg := newTestGateway(t, respondJSON(http.StatusOK, map[string]any{}))
	_, _ = tg.get(t, "/health")

	resp, err := http.Get(tg.server.URL + "/metrics")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	data, _ := io.ReadAll(resp.Body)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, bytes.Contains(data, []byte("imagegen_http_requests_total")))
}

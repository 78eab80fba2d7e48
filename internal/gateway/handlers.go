package gateway

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/muurk/imagegen/internal/logging"
	"github.com/muurk/imagegen/internal/metrics"
	"github.com/muurk/imagegen/internal/protocol"
)

const (
	serviceName = "AI Image Generator Web Server"

	msgConfigUnavailable = "설정을 로드할 수 없습니다."
	msgUnreachable       = "외부 API 서버에 연결할 수 없습니다. 네트워크 연결을 확인하세요."
	msgInternal          = "서버 내부 오류가 발생했습니다."
	msgProbeNote         = "외부 API 서버가 실행되지 않았거나 네트워크 문제일 수 있습니다."
	msgURLMissing        = "URL이 제공되지 않았습니다."
	msgURLScheme         = "올바른 URL 형식이 아닙니다. http:// 또는 https://로 시작해야 합니다."
	msgURLChanged        = "API URL이 성공적으로 변경되었습니다."
	msgURLChangeFailed   = "API URL 변경 중 오류가 발생했습니다."

	// Same layout as a naive Python isoformat()
	timestampLayout = "2006-01-02T15:04:05.000000"
)

// Handler serves the gateway routes.
type Handler struct {
	settings  *Settings
	upstream  *Upstream
	catalog   *Catalog
	endpoints []protocol.EndpointDescriptor
	now       func() time.Time
}

// NewHandler wires the route handlers.
func NewHandler(settings *Settings, upstream *Upstream, catalog *Catalog, endpoints []protocol.EndpointDescriptor) *Handler {
	return &Handler{
		settings:  settings,
		upstream:  upstream,
		catalog:   catalog,
		endpoints: endpoints,
		now:       time.Now,
	}
}

func (h *Handler) timestamp() string {
	return h.now().Format(timestampLayout)
}

// Health answers GET /health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, protocol.HealthResponse{
		Status:    protocol.StatusHealthy,
		Timestamp: h.timestamp(),
		Service:   serviceName,
	})
}

// APIStatus answers GET /api-status. It always returns 200; the body says
// whether the upstream answered.
func (h *Handler) APIStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.settings.APITimeout())
	defer cancel()

	apiURL := h.upstream.URL()
	if err := h.upstream.Probe(ctx); err != nil {
		logging.Warn("API connection test failed", zap.Error(err))
		writeJSON(w, http.StatusOK, protocol.APIStatusResponse{
			Status:         protocol.StatusDisconnected,
			APIURL:         apiURL,
			ConnectionTest: "failed",
			Error:          err.Error(),
			Timestamp:      h.timestamp(),
			Note:           msgProbeNote,
		})
		return
	}

	writeJSON(w, http.StatusOK, protocol.APIStatusResponse{
		Status:         protocol.StatusConnected,
		APIURL:         apiURL,
		ConnectionTest: "success",
		Timestamp:      h.timestamp(),
	})
}

// Config answers GET /config.
func (h *Handler) Config(w http.ResponseWriter, r *http.Request) {
	resp := h.catalog.Frontend(h.settings.Debug)
	data, err := sonic.Marshal(resp)
	if err != nil {
		logging.Error("Failed to encode config", zap.Error(err))
		writeError(w, http.StatusInternalServerError, protocol.ErrorBody{
			Detail:    msgConfigUnavailable,
			ErrorType: protocol.ErrorTypeConfig,
		})
		return
	}
	writeRaw(w, http.StatusOK, data)
}

// Create answers POST /create and POST /create/{apiName}.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	apiName := chi.URLParam(r, "apiName")
	requestID := middleware.GetReqID(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, h.settings.MaxBodyBytes)
	var raw map[string]any
	if err := sonic.ConfigDefault.NewDecoder(r.Body).Decode(&raw); err != nil || raw == nil {
		metrics.ValidationFailure("body")
		writeError(w, http.StatusBadRequest, protocol.ErrorBody{
			Detail:    MsgInvalidJSON,
			ErrorType: protocol.ErrorTypeValidation,
		})
		return
	}

	validated, err := ValidateRequest(raw)
	if err != nil {
		h.rejectValidation(w, err, requestID)
		return
	}

	name, info, err := h.catalog.Resolve(apiName)
	if err != nil {
		h.rejectValidation(w, err, requestID)
		return
	}

	if !Supports(info, validated.Settings) {
		metrics.ValidationFailure("settings")
		logging.Warn("Unsupported settings",
			zap.String("request_id", requestID),
			zap.String("api", name),
			zap.String("model_type", validated.Settings.ModelType),
			zap.String("index_type", validated.Settings.IndexType),
		)
		writeError(w, http.StatusBadRequest, protocol.ErrorBody{
			Detail:    MsgInvalidSettings,
			ErrorType: protocol.ErrorTypeValidation,
		})
		return
	}

	logging.Info("Generation request",
		zap.String("request_id", requestID),
		zap.String("api", name),
		zap.String("prompt", logging.Truncate(validated.Prompt, 50)),
		zap.Int("search_num", validated.Settings.SearchNum),
	)

	result, err := h.upstream.Generate(r.Context(), validated.Payload())
	if err != nil {
		h.writeUpstreamError(w, err, requestID)
		return
	}

	data, err := sonic.Marshal(result)
	if err != nil {
		logging.Error("Failed to encode generation result", zap.String("request_id", requestID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, protocol.ErrorBody{
			Detail:    msgInternal,
			ErrorType: protocol.ErrorTypeInternal,
		})
		return
	}
	writeRaw(w, http.StatusOK, data)
}

func (h *Handler) rejectValidation(w http.ResponseWriter, err error, requestID string) {
	var verr *ValidationError
	if !errors.As(err, &verr) {
		verr = &ValidationError{Field: "request", Message: err.Error()}
	}
	metrics.ValidationFailure(verr.Field)
	logging.Warn("Input validation failed",
		zap.String("request_id", requestID),
		zap.String("field", verr.Field),
		zap.String("detail", verr.Message),
	)
	writeError(w, http.StatusBadRequest, protocol.ErrorBody{
		Detail:    verr.Message,
		ErrorType: protocol.ErrorTypeValidation,
	})
}

// writeUpstreamError maps Generate failures onto the error payload.
func (h *Handler) writeUpstreamError(w http.ResponseWriter, err error, requestID string) {
	var (
		statusErr *StatusError
		connErr   *ConnectionError
	)
	switch {
	case errors.As(err, &statusErr):
		writeError(w, statusErr.StatusCode, protocol.ErrorBody{
			Detail:     "외부 API 오류: " + strconv.Itoa(statusErr.StatusCode),
			ErrorType:  protocol.ErrorTypeAPI,
			StatusCode: statusErr.StatusCode,
		})
	case errors.As(err, &connErr):
		logging.Error("API connection error", zap.String("request_id", requestID), zap.Error(connErr.Err))
		writeError(w, http.StatusBadGateway, protocol.ErrorBody{
			Detail:          msgUnreachable,
			ErrorType:       protocol.ErrorTypeConnection,
			TechnicalDetail: connErr.Err.Error(),
		})
	default:
		logging.Error("Unexpected generation error", zap.String("request_id", requestID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, protocol.ErrorBody{
			Detail:    msgInternal,
			ErrorType: protocol.ErrorTypeInternal,
		})
	}
}

// Endpoints answers GET /api-endpoints.
func (h *Handler) Endpoints(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, protocol.EndpointsResponse{
		CurrentURL:          h.upstream.URL(),
		PredefinedEndpoints: h.endpoints,
		Timestamp:           h.timestamp(),
	})
}

// ChangeURL answers POST /change-api-url.
func (h *Handler) ChangeURL(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.settings.MaxBodyBytes)
	var req protocol.ChangeURLRequest
	if err := sonic.ConfigDefault.NewDecoder(r.Body).Decode(&req); err != nil {
		logging.Error("API URL change failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, protocol.ErrorBody{
			Detail:    msgURLChangeFailed,
			ErrorType: protocol.ErrorTypeInternal,
		})
		return
	}

	newURL := strings.TrimSpace(req.URL)
	if newURL == "" {
		writeError(w, http.StatusBadRequest, protocol.ErrorBody{
			Detail:    msgURLMissing,
			ErrorType: protocol.ErrorTypeValidation,
		})
		return
	}
	if !protocol.ValidURLScheme(newURL) {
		writeError(w, http.StatusBadRequest, protocol.ErrorBody{
			Detail:    msgURLScheme,
			ErrorType: protocol.ErrorTypeValidation,
		})
		return
	}

	old := h.upstream.SetURL(newURL)
	metrics.APIURLChanged()
	logging.Info("API URL changed", zap.String("old_url", old), zap.String("new_url", newURL))

	writeJSON(w, http.StatusOK, protocol.ChangeURLResponse{
		Status:    protocol.StatusSuccess,
		OldURL:    old,
		NewURL:    newURL,
		Timestamp: h.timestamp(),
		Message:   msgURLChanged,
	})
}

func writeError(w http.ResponseWriter, status int, body protocol.ErrorBody) {
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := sonic.Marshal(v)
	if err != nil {
		http.Error(w, `{"detail":"`+msgInternal+`","error_type":"internal_error"}`, http.StatusInternalServerError)
		return
	}
	writeRaw(w, status, data)
}

func writeRaw(w http.ResponseWriter, status int, data []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

package gateway

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/muurk/imagegen/internal/logging"
	"github.com/muurk/imagegen/internal/metrics"
	"github.com/muurk/imagegen/internal/protocol"
)

// NewRouter mounts every route behind the middleware stack.
func NewRouter(h *Handler, corsOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use([]func(http.Handler) http.Handler{
		middleware.RequestID,
		middleware.RealIP,
		requestLogger,
		middleware.Recoverer,
		metrics.Middleware,
		cors.Handler(cors.Options{
			AllowedOrigins:   corsOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders:   []string{"*"},
			ExposedHeaders:   []string{middleware.RequestIDHeader},
			AllowCredentials: true,
			MaxAge:           300,
		}),
	}...)

	r.Get(protocol.PathHealth, h.Health)
	r.Get(protocol.PathAPIStatus, h.APIStatus)
	r.Get(protocol.PathConfig, h.Config)
	r.Post(protocol.PathCreate, h.Create)
	r.Post(protocol.PathCreate+"/{apiName}", h.Create)
	r.Get(protocol.PathAPIEndpoints, h.Endpoints)
	r.Post(protocol.PathChangeAPIURL, h.ChangeURL)
	r.Handle(protocol.PathMetrics, promhttp.Handler())

	return r
}

// requestLogger writes one zap line per request and one per response.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		logging.LogHTTPRequest(r.RemoteAddr, r.Method, r.URL.Path, middleware.GetReqID(r.Context()))
		defer func() {
			logging.LogHTTPResponse(r.RemoteAddr, ww.Status(), ww.BytesWritten(), time.Since(start))
		}()
		next.ServeHTTP(ww, r)
	})
}

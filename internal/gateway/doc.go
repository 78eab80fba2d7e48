// Package gateway implements the imagegen HTTP gateway.
//
// The gateway sits between terminal clients and an external image search
// API. It validates generation requests, forwards them upstream with both
// camelCase and snake_case option names, annotates short result lists and
// maps every failure onto a JSON error body with a detail and an
// error_type.
//
// # Routes
//
//	GET  /health          liveness
//	GET  /api-status      upstream reachability (always 200)
//	GET  /config          UI defaults, limits, theme and API catalog
//	POST /create          generate with the default API
//	POST /create/{api}    generate with a named API
//	GET  /api-endpoints   predefined upstreams and the current one
//	POST /change-api-url  swap the upstream at runtime
//	GET  /metrics         Prometheus
//
// # Configuration
//
// Settings come from the environment (HOST, SERVICE_PORT, EXTERNAL_API_URL,
// API_TIMEOUT_SECONDS, DEBUG_MODE, ENDPOINTS_FILE and others). A .env file
// is read first when present. ENDPOINTS_FILE names a YAML file:
//
//	endpoints:
//	  - name: 로컬
//	    url: http://localhost:8001/api/create
//	    description: 개발용 검색 서버
//
// # Lifecycle
//
//	settings, err := gateway.LoadSettings(".env")
//	srv, err := gateway.New(settings)
//	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
//	defer stop()
//	err = srv.Run(ctx)
package gateway

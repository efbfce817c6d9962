// Package relayapi is the relay's HTTP surface: device registration,
// namespace locking, and the push/pull change-set exchange, fronted by a
// chi router with JWT device authentication and RFC 7807 error responses.
package relayapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/nous-sync/nse/internal/bytesize"
	"github.com/nous-sync/nse/pkg/automerge"
	"github.com/nous-sync/nse/pkg/metrics"
	"github.com/nous-sync/nse/pkg/relaystore"
)

// defaultMaxRequestBodySize bounds an unconfigured push request body,
// comfortably above a single change set's diffed field list but well
// below a runaway client flooding the relay with one giant request.
const defaultMaxRequestBodySize = 4 * bytesize.MiB

// Config configures the relay HTTP server. Metrics is optional; a nil
// *metrics.Registry records nothing, at zero overhead. MaxRequestBodySize
// of zero falls back to defaultMaxRequestBodySize.
type Config struct {
	JWT               JWTConfig
	MinSchemaVersion  int
	Metrics           *metrics.Registry
	MaxRequestBodySize bytesize.ByteSize
}

// NewServer constructs a Server bound to store, issuing and validating
// tokens per config.JWT.
func NewServer(store *relaystore.Store, config Config) (*Server, error) {
	jwtService, err := NewJWTService(config.JWT)
	if err != nil {
		return nil, err
	}
	maxBody := config.MaxRequestBodySize
	if maxBody == 0 {
		maxBody = defaultMaxRequestBodySize
	}
	return &Server{
		store:        store,
		jwt:          jwtService,
		engine:       automerge.NewEngine(),
		minSchemaVer: config.MinSchemaVersion,
		metrics:      config.Metrics,
		maxBodySize:  maxBody.Int64(),
		startedAt:    time.Now(),
	}, nil
}

// NewRouter builds the chi router wired to s.
//
// Routes:
//   - GET  /health                      - liveness probe, unauthenticated
//   - GET  /metrics                     - Prometheus exposition, unauthenticated, only mounted when Config.Metrics is set
//   - POST /api/v1/devices              - device registration, issues a bearer token
//   - GET  /api/v1/devices              - list devices in caller's namespace
//   - DELETE /api/v1/devices/{deviceID} - revoke a device
//   - POST /api/v1/sync/lock            - acquire the namespace sync lock
//   - DELETE /api/v1/sync/lock          - release the namespace sync lock
//   - POST /api/v1/sync/push            - push a change set
//   - GET  /api/v1/sync/pull            - pull change sets since a cursor
//   - GET  /api/v1/conflicts            - list unresolved conflicts
func NewRouter(s *Server) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(maxBodySize(s.maxBodySize))

	r.Get("/health", s.handleHealth)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/devices", s.handleRegisterDevice)

		r.Group(func(r chi.Router) {
			r.Use(deviceAuth(s.jwt))

			r.Get("/devices", s.handleListDevices)
			r.Delete("/devices/{deviceID}", s.handleRevokeDevice)

			r.Route("/sync", func(r chi.Router) {
				r.Post("/lock", s.handleAcquireLock)
				r.Delete("/lock", s.handleReleaseLock)
				r.Post("/push", s.handlePush)
				r.Get("/pull", s.handlePull)
			})

			r.Get("/conflicts", s.handleListConflicts)
		})
	})

	return r
}

// maxBodySize caps the request body every handler below it can read,
// rejecting an oversized push before it reaches JSON decoding.
func maxBodySize(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, limit)
			next.ServeHTTP(w, r)
		})
	}
}

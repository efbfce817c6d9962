package relayapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	clihealth "github.com/nous-sync/nse/internal/cli/health"
	"github.com/nous-sync/nse/pkg/automerge"
	"github.com/nous-sync/nse/pkg/errs"
	"github.com/nous-sync/nse/pkg/metrics"
	"github.com/nous-sync/nse/pkg/models"
	"github.com/nous-sync/nse/pkg/relaystore"
)

// Server wires the relay's persistence and merge engine to HTTP handlers.
type Server struct {
	store        *relaystore.Store
	jwt          *JWTService
	engine       *automerge.Engine
	minSchemaVer int
	metrics      *metrics.Registry
	maxBodySize  int64
	startedAt    time.Time
}

func (s *Server) handlePush(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	start := time.Now()

	var req PushRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body: "+err.Error())
		return
	}
	if req.NodeID == "" {
		badRequest(w, "node_id is required")
		return
	}
	if req.SchemaVersion < s.minSchemaVer {
		upgradeRequired(w, errs.NewSchemaTooOldError(req.SchemaVersion, s.minSchemaVer).Error())
		return
	}

	resp, err := applyPush(r.Context(), s.store, s.engine, claims.Namespace, claims.DeviceID, req)
	if err != nil {
		s.metrics.RecordPush(claims.Namespace, "error", msSince(start))
		writeErrProblem(w, err)
		return
	}

	outcome := "ok"
	if len(resp.Conflicts) > 0 {
		outcome = "conflict"
		s.metrics.RecordConflictCreated(claims.Namespace)
	}
	s.metrics.RecordPush(claims.Namespace, outcome, msSince(start))
	writeOK(w, resp)
}

func msSince(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000
}

func (s *Server) handlePull(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	start := time.Now()

	cursor := int64(0)
	if v := r.URL.Query().Get("cursor"); v != "" {
		parsed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			badRequest(w, "cursor must be an integer")
			return
		}
		cursor = parsed
	}

	limit := relaystore.MaxPullBatch
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			badRequest(w, "limit must be an integer")
			return
		}
		limit = parsed
	}

	changes, nextCursor, err := s.store.PullChangeSets(r.Context(), claims.Namespace, cursor, limit)
	if err != nil {
		internalError(w, err.Error())
		return
	}
	totalEstimate, err := s.store.CountRemaining(r.Context(), claims.Namespace, nextCursor)
	if err != nil {
		internalError(w, err.Error())
		return
	}
	s.metrics.RecordPull(claims.Namespace, msSince(start))

	writeOK(w, struct {
		Changes       []*models.ChangeSet `json:"changes"`
		NextCursor    int64               `json:"next_cursor"`
		TotalEstimate int64               `json:"total_estimate"`
		BatchNumber   int64               `json:"batch_number"`
	}{
		Changes:       changes,
		NextCursor:    nextCursor,
		TotalEstimate: totalEstimate,
		BatchNumber:   cursor/int64(limit) + 1,
	})
}

type lockRequest struct {
	Namespace string `json:"namespace"`
}

func (s *Server) handleAcquireLock(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())

	expiresAt, err := s.store.AcquireLock(r.Context(), claims.Namespace, claims.DeviceID)
	if err != nil {
		if errs.IsLockHeldError(err) {
			s.metrics.RecordLockContention(claims.Namespace)
		}
		writeErrProblem(w, err)
		return
	}
	writeOK(w, struct {
		ExpiresAt string `json:"expires_at"`
	}{ExpiresAt: expiresAt.Format("2006-01-02T15:04:05.999999999Z07:00")})
}

func (s *Server) handleReleaseLock(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())

	if err := s.store.ReleaseLock(r.Context(), claims.Namespace, claims.DeviceID); err != nil {
		writeErrProblem(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRegisterDevice(w http.ResponseWriter, r *http.Request) {
	var d models.Device
	if err := json.NewDecoder(r.Body).Decode(&d); err != nil {
		badRequest(w, "invalid request body: "+err.Error())
		return
	}
	if d.DeviceID == "" || d.Namespace == "" {
		badRequest(w, "device_id and namespace are required")
		return
	}

	if err := s.store.RegisterDevice(r.Context(), &d); err != nil {
		if err == relaystore.ErrDeviceExists {
			conflictProblem(w, "device already registered")
			return
		}
		internalError(w, err.Error())
		return
	}

	token, expiresAt, err := s.jwt.IssueToken(d.DeviceID, d.Namespace, d.SchemaVersion)
	if err != nil {
		internalError(w, err.Error())
		return
	}

	writeCreated(w, struct {
		Token     string `json:"token"`
		ExpiresAt string `json:"expires_at"`
	}{Token: token, ExpiresAt: expiresAt.Format("2006-01-02T15:04:05.999999999Z07:00")})
}

func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())

	devices, err := s.store.ListDevices(r.Context(), claims.Namespace)
	if err != nil {
		internalError(w, err.Error())
		return
	}
	writeOK(w, devices)
}

func (s *Server) handleRevokeDevice(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	deviceID := chi.URLParam(r, "deviceID")

	target, err := s.store.GetDevice(r.Context(), deviceID)
	if err != nil {
		if err == relaystore.ErrDeviceNotFound {
			notFound(w, "device not registered")
			return
		}
		internalError(w, err.Error())
		return
	}
	if target.Namespace != claims.Namespace {
		forbidden(w, "device belongs to a different namespace")
		return
	}

	if err := s.store.RevokeDevice(r.Context(), deviceID); err != nil {
		internalError(w, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListConflicts(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())

	conflicts, err := s.store.ListConflicts(r.Context(), claims.Namespace)
	if err != nil {
		internalError(w, err.Error())
		return
	}
	writeOK(w, conflicts)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	uptime := time.Since(s.startedAt)
	resp := clihealth.Response{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	resp.Data.Service = "nse-relay"
	resp.Data.StartedAt = s.startedAt.UTC().Format(time.RFC3339)
	resp.Data.Uptime = uptime.String()
	resp.Data.UptimeSec = int64(uptime.Seconds())
	writeJSON(w, http.StatusOK, resp)
}

package handler

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"

	"github.com/sakif/gthanks/internal/apperror"
	"github.com/sakif/gthanks/internal/service"
)

// Pinger is satisfied by *sqlite.DB.
type Pinger interface {
	Ping(ctx context.Context) error
}

// OpsHandler serves the operational endpoints: health and the cron hook.
type OpsHandler struct {
	db         Pinger
	cleanup    *service.CleanupService
	cronSecret string
	logger     *slog.Logger
}

func NewOpsHandler(db Pinger, cleanup *service.CleanupService, cronSecret string, logger *slog.Logger) *OpsHandler {
	return &OpsHandler{db: db, cleanup: cleanup, cronSecret: cronSecret, logger: logger}
}

// HandleHealth reports whether the database answers. HTTP: GET /healthz
func (h *OpsHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if err := h.db.Ping(r.Context()); err != nil {
		h.logger.Error("health check failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandleCleanup runs the cleanup job on demand.
//
// HTTP: POST /api/cron/cleanup
// Auth: Authorization: Bearer <CRON_SECRET>
//
// With no CRON_SECRET configured the endpoint rejects everything.
func (h *OpsHandler) HandleCleanup(w http.ResponseWriter, r *http.Request) {
	if !h.authorizedCron(r) {
		writeError(w, apperror.Unauthorized("invalid cron secret"))
		return
	}

	res, err := h.cleanup.Run(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *OpsHandler) authorizedCron(r *http.Request) bool {
	if h.cronSecret == "" {
		return false
	}
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(strings.TrimSpace(token)), []byte(h.cronSecret)) == 1
}

package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/gthanks/internal/apperror"
	"github.com/sakif/gthanks/internal/service"
)

// UserHandler serves the caller's own account settings and the site-admin
// user management routes.
type UserHandler struct {
	vanity *service.VanityService
	admin  *service.AdminService
	logger *slog.Logger
}

func NewUserHandler(vanity *service.VanityService, admin *service.AdminService, logger *slog.Logger) *UserHandler {
	return &UserHandler{vanity: vanity, admin: admin, logger: logger}
}

type usernameRequest struct {
	Username string `json:"username"`
}

// HandleSetUsername claims a vanity username.
//
// HTTP: PUT /api/user/username
// REQUEST BODY: {"username": "alice"}
//
// 409 when taken, 403 when the account lacks the entitlement or already has one.
func (h *UserHandler) HandleSetUsername(w http.ResponseWriter, r *http.Request) {
	var req usernameRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	user, err := h.vanity.SetUsername(r.Context(), requesterID(r), req.Username)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

type adminUsernameRequest struct {
	// Username nil (JSON null) clears the username.
	Username *string `json:"username"`
}

// HandleAdminSetUsername sets, replaces or clears any user's username.
//
// HTTP: PUT /api/admin/users/{userId}/username
// REQUEST BODY: {"username": "alice"} or {"username": null}
func (h *UserHandler) HandleAdminSetUsername(w http.ResponseWriter, r *http.Request) {
	var req adminUsernameRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	user, err := h.vanity.AdminSetUsername(r.Context(), requesterID(r), urlParam(r, "userId"), req.Username)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

type vanityAccessRequest struct {
	Allowed *bool `json:"allowed"`
}

// HandleSetVanityAccess grants or revokes the vanity URL entitlement.
//
// HTTP: PUT /api/admin/users/{userId}/vanity-access
// REQUEST BODY: {"allowed": true}
func (h *UserHandler) HandleSetVanityAccess(w http.ResponseWriter, r *http.Request) {
	var req vanityAccessRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Allowed == nil {
		writeError(w, apperror.ValidationFailed("allowed", "allowed is required"))
		return
	}
	user, err := h.admin.SetVanityAccess(r.Context(), requesterID(r), urlParam(r, "userId"), *req.Allowed)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// HandleAudit returns recent audit entries. HTTP: GET /api/admin/audit?limit=100
func (h *UserHandler) HandleAudit(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeError(w, err)
		return
	}
	entries, err := h.admin.RecentAudit(r.Context(), requesterID(r), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

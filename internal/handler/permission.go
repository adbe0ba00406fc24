package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/gthanks/internal/service"
)

// PermissionHandler tells the caller what they may do with a wish or list.
type PermissionHandler struct {
	perms  *service.PermissionService
	logger *slog.Logger
}

func NewPermissionHandler(perms *service.PermissionService, logger *slog.Logger) *PermissionHandler {
	return &PermissionHandler{perms: perms, logger: logger}
}

// HandleWish returns the caller's capabilities on a wish.
//
// HTTP: GET /api/wishes/{wishId}/permissions
// RESPONSE: {"view": true, "edit": false, "delete": false, "share": false, "reserve": true}
func (h *PermissionHandler) HandleWish(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, service.WishResource(urlParam(r, "wishId")))
}

// HandleList returns the caller's capabilities on a list.
//
// HTTP: GET /api/lists/{listId}/permissions
func (h *PermissionHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, service.ListResource(urlParam(r, "listId")))
}

func (h *PermissionHandler) serve(w http.ResponseWriter, r *http.Request, res service.Resource) {
	caps, err := h.perms.Capabilities(r.Context(), requesterID(r), res)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, caps)
}

package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/gthanks/internal/service"
)

// ListHandler serves list CRUD, sharing settings and bulk membership edits.
type ListHandler struct {
	lists       *service.ListService
	memberships *service.MembershipService
	vanity      *service.VanityService
	logger      *slog.Logger
}

func NewListHandler(
	lists *service.ListService,
	memberships *service.MembershipService,
	vanity *service.VanityService,
	logger *slog.Logger,
) *ListHandler {
	return &ListHandler{lists: lists, memberships: memberships, vanity: vanity, logger: logger}
}

// HandleList returns lists the caller owns or co-administers. HTTP: GET /api/lists
func (h *ListHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	lists, err := h.lists.ListMine(r.Context(), requesterID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lists)
}

// HandleCreate creates a list.
//
// HTTP: POST /api/lists
// REQUEST BODY: {"name": "Birthday", "visibility": "password", "password": "hunter2"}
func (h *ListHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var in service.ListInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err)
		return
	}
	list, err := h.lists.Create(r.Context(), requesterID(r), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, list)
}

// HandleGet returns a list with its wishes. HTTP: GET /api/lists/{listId}
func (h *ListHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	list, err := h.lists.Get(r.Context(), urlParam(r, "listId"), requesterID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// HandleUpdate edits a list. HTTP: PUT /api/lists/{listId}
//
// Callers who cannot see the list get 404, not 403.
func (h *ListHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var in service.ListInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err)
		return
	}
	list, err := h.lists.Update(r.Context(), urlParam(r, "listId"), requesterID(r), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// HandleDelete deletes a list (owner only). HTTP: DELETE /api/lists/{listId} → 204
func (h *ListHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.lists.Delete(r.Context(), urlParam(r, "listId"), requesterID(r)); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type slugRequest struct {
	Slug string `json:"slug"`
}

// HandleSetSlug sets or clears the list's URL segment.
//
// HTTP: PUT /api/lists/{listId}/slug
// REQUEST BODY: {"slug": "Christmas 2026"} → stored as "christmas-2026"
func (h *ListHandler) HandleSetSlug(w http.ResponseWriter, r *http.Request) {
	var req slugRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	list, err := h.vanity.SetSlug(r.Context(), urlParam(r, "listId"), requesterID(r), req.Slug)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

type passwordRequest struct {
	Password string `json:"password"`
}

// HandleSetPassword protects the list with a new password. HTTP: PUT /api/lists/{listId}/password → 204
func (h *ListHandler) HandleSetPassword(w http.ResponseWriter, r *http.Request) {
	var req passwordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := h.lists.SetPassword(r.Context(), urlParam(r, "listId"), requesterID(r), req.Password); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type wishIDsRequest struct {
	WishIDs []string `json:"wishIds"`
}

// HandleAddWishes puts wishes on the list.
//
// HTTP: POST /api/lists/{listId}/wishes
// REQUEST BODY: {"wishIds": ["a", "b"]} → {"added": 2}
func (h *ListHandler) HandleAddWishes(w http.ResponseWriter, r *http.Request) {
	var req wishIDsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	added, err := h.memberships.AddWishesToList(r.Context(), urlParam(r, "listId"), req.WishIDs, requesterID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"added": added})
}

// HandleRemoveWishes takes wishes off the list.
//
// HTTP: POST /api/lists/{listId}/wishes/remove
// REQUEST BODY: {"wishIds": ["a", "b"]} → {"removed": 1}
//
// POST rather than DELETE because DELETE bodies are dropped by some proxies.
func (h *ListHandler) HandleRemoveWishes(w http.ResponseWriter, r *http.Request) {
	var req wishIDsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	removed, err := h.memberships.BulkRemoveWishesFromList(r.Context(), urlParam(r, "listId"), req.WishIDs, requesterID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"removed": removed})
}

// HandleListAdmins returns the co-admins. HTTP: GET /api/lists/{listId}/admins
func (h *ListHandler) HandleListAdmins(w http.ResponseWriter, r *http.Request) {
	admins, err := h.lists.ListAdmins(r.Context(), urlParam(r, "listId"), requesterID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, admins)
}

type addAdminRequest struct {
	UserID string `json:"userId"`
}

// HandleAddAdmin makes a user co-admin. HTTP: POST /api/lists/{listId}/admins → 204
func (h *ListHandler) HandleAddAdmin(w http.ResponseWriter, r *http.Request) {
	var req addAdminRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := h.lists.AddAdmin(r.Context(), urlParam(r, "listId"), requesterID(r), req.UserID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleRemoveAdmin revokes co-admin rights. HTTP: DELETE /api/lists/{listId}/admins/{userId} → 204
func (h *ListHandler) HandleRemoveAdmin(w http.ResponseWriter, r *http.Request) {
	err := h.lists.RemoveAdmin(r.Context(), urlParam(r, "listId"), requesterID(r), urlParam(r, "userId"))
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

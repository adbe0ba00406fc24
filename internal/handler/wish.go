package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/gthanks/internal/service"
)

// WishHandler serves wish CRUD and a wish's list memberships.
type WishHandler struct {
	wishes      *service.WishService
	memberships *service.MembershipService
	logger      *slog.Logger
}

func NewWishHandler(wishes *service.WishService, memberships *service.MembershipService, logger *slog.Logger) *WishHandler {
	return &WishHandler{wishes: wishes, memberships: memberships, logger: logger}
}

// HandleList returns the caller's wishes.
//
// HTTP: GET /api/wishes?limit=50&offset=0
func (h *WishHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeError(w, err)
		return
	}
	offset, err := queryInt(r, "offset")
	if err != nil {
		writeError(w, err)
		return
	}

	wishes, err := h.wishes.ListMine(r.Context(), requesterID(r), limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, wishes)
}

// HandleCreate adds a wish.
//
// HTTP: POST /api/wishes
// REQUEST BODY: {"title": "Lego", "url": "https://...", "price": 49.9, "currency": "EUR"}
func (h *WishHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var in service.WishInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err)
		return
	}

	wish, err := h.wishes.Create(r.Context(), requesterID(r), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, wish)
}

// HandleGet returns one wish. HTTP: GET /api/wishes/{wishId}
func (h *WishHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	wish, err := h.wishes.Get(r.Context(), urlParam(r, "wishId"), requesterID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, wish)
}

// HandleUpdate replaces a wish's fields. HTTP: PUT /api/wishes/{wishId}
func (h *WishHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var in service.WishInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err)
		return
	}

	wish, err := h.wishes.Update(r.Context(), urlParam(r, "wishId"), requesterID(r), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, wish)
}

// HandleDelete removes a wish. HTTP: DELETE /api/wishes/{wishId} → 204
func (h *WishHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.wishes.Delete(r.Context(), urlParam(r, "wishId"), requesterID(r)); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type membershipsRequest struct {
	ListIDs []string `json:"listIds"`
}

type membershipsResponse struct {
	Success bool `json:"success"`
	Added   int  `json:"added"`
	Removed int  `json:"removed"`
}

// HandleUpdateMemberships sets the exact set of lists a wish is on.
//
// HTTP: PUT /api/wishes/{wishId}/memberships
// REQUEST BODY: {"listIds": ["a", "b"]}
// RESPONSE:     {"success": true, "added": 1, "removed": 0}
func (h *WishHandler) HandleUpdateMemberships(w http.ResponseWriter, r *http.Request) {
	var req membershipsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	res, err := h.memberships.UpdateWishListMemberships(r.Context(), urlParam(r, "wishId"), req.ListIDs, requesterID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, membershipsResponse{
		Success: true,
		Added:   res.Added,
		Removed: res.Removed,
	})
}

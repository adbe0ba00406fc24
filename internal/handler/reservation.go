package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/gthanks/internal/service"
)

// ReservationHandler lets gift-givers claim and release wishes.
type ReservationHandler struct {
	reservations *service.ReservationService
	logger       *slog.Logger
}

func NewReservationHandler(reservations *service.ReservationService, logger *slog.Logger) *ReservationHandler {
	return &ReservationHandler{reservations: reservations, logger: logger}
}

// HandleCreate reserves a wish.
//
// HTTP: POST /api/wishes/{wishId}/reservation
// Auth: Optional. Anonymous callers must send reserverEmail.
// REQUEST BODY: {"reserverName": "Aunt May", "reserverEmail": "may@example.com"}
//
// 201 with the reservation, or 409 CONFLICT when someone was faster.
func (h *ReservationHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var in service.CreateReservationInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err)
		return
	}
	in.WishID = urlParam(r, "wishId")

	res, err := h.reservations.CreateReservation(r.Context(), in, requesterID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

// HandleDelete releases the caller's reservation.
//
// HTTP: DELETE /api/wishes/{wishId}/reservation → 204
// Auth: Required
func (h *ReservationHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.reservations.RemoveReservationByWishID(r.Context(), urlParam(r, "wishId"), requesterID(r)); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type statusRequest struct {
	WishIDs []string `json:"wishIds"`
}

// HandleStatus reports which wishes are reserved.
//
// HTTP: POST /api/reservations/status
// REQUEST BODY: {"wishIds": ["a", "b"]}
//
// Wish owners only learn whether a wish is reserved, never by whom.
func (h *ReservationHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	statuses, err := h.reservations.GetReservationStatus(r.Context(), req.WishIDs, requesterID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, statuses)
}

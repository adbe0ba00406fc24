package model

import "time"

// Reservation is a gift-giver's claim on a wish. A wish has at most one.
type Reservation struct {
	ID             string    `json:"id"`
	WishID         string    `json:"wishId"`
	ReserverName   string    `json:"reserverName"`
	ReserverEmail  string    `json:"reserverEmail"`
	ReserverUserID *string   `json:"reserverUserId"`
	ReservedAt     time.Time `json:"reservedAt"`
}

// ReservationStatus is the per-wish answer of a status query. Reserver details
// are left empty when the viewer owns the wish.
type ReservationStatus struct {
	WishID        string     `json:"wishId"`
	IsReserved    bool       `json:"isReserved"`
	ReserverName  string     `json:"reserverName,omitempty"`
	ReserverEmail string     `json:"reserverEmail,omitempty"`
	ReservedAt    *time.Time `json:"reservedAt,omitempty"`
}

package model

import "time"

// Wish is a single desired item owned by a user.
//
// Price is informative only (nobody pays through the app), so it is a plain
// float next to an ISO 4217 currency code. WishLevel is 1 (nice to have)
// through 3 (most wanted).
type Wish struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"ownerId"`
	Title     string    `json:"title"`
	URL       string    `json:"url"`
	Price     *float64  `json:"price"`
	Currency  string    `json:"currency"`
	WishLevel int       `json:"wishLevel"`
	ImageURL  string    `json:"imageUrl"`
	Quantity  int       `json:"quantity"`
	Notes     string    `json:"notes"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	// ListIDs is filled for the owner only, on single-wish reads.
	ListIDs []string `json:"listIds,omitempty"`
}

package model

import "time"

// Visibility controls who can see a list.
type Visibility string

const (
	VisibilityPrivate  Visibility = "private"
	VisibilityPublic   Visibility = "public"
	VisibilityPassword Visibility = "password"
)

// Valid reports whether v is one of the known visibility modes.
func (v Visibility) Valid() bool {
	switch v {
	case VisibilityPrivate, VisibilityPublic, VisibilityPassword:
		return true
	}
	return false
}

// List is a named collection of wishes.
//
// PasswordHash is never serialised (json:"-"); handlers still strip it
// explicitly before returning a list from public routes.
type List struct {
	ID              string     `json:"id"`
	OwnerID         string     `json:"ownerId"`
	Name            string     `json:"name"`
	Description     string     `json:"description"`
	Visibility      Visibility `json:"visibility"`
	PasswordHash    string     `json:"-"`
	Slug            *string    `json:"slug"`
	HideFromProfile bool       `json:"hideFromProfile"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
	Wishes          []Wish     `json:"wishes,omitempty"`
}

// ListAdmin is a co-admin row: the user may edit the list but not delete it.
type ListAdmin struct {
	ListID  string    `json:"listId"`
	UserID  string    `json:"userId"`
	AddedAt time.Time `json:"addedAt"`
}

// Package repository declares the storage interfaces the service layer depends on.
//
// Services only ever see these interfaces; internal/repository/sqlite is the
// production implementation and tests are free to swap in fakes.
package repository

import (
	"context"
	"time"

	"github.com/sakif/gthanks/internal/model"
)

type ListOptions struct {
	Limit  int
	Offset int
}

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	Upsert(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	// SetUsername stores (or clears, when username is nil) the vanity handle.
	// A handle already used by another account yields apperror.ErrConflict.
	SetUsername(ctx context.Context, userID string, username *string) error
	SetVanityAccess(ctx context.Context, userID string, allowed bool) error
}

type WishRepository interface {
	CreateWish(ctx context.Context, wish *model.Wish) error
	GetWish(ctx context.Context, id string) (*model.Wish, error)
	ListWishesByOwner(ctx context.Context, ownerID string, opts ListOptions) ([]model.Wish, error)
	ListWishesByList(ctx context.Context, listID string) ([]model.Wish, error)
	UpdateWish(ctx context.Context, wish *model.Wish) error
	// DeleteWish removes the wish together with its reservation and memberships.
	DeleteWish(ctx context.Context, id string) error
}

type ListRepository interface {
	CreateList(ctx context.Context, list *model.List) error
	GetList(ctx context.Context, id string) (*model.List, error)
	ListListsByOwner(ctx context.Context, ownerID string) ([]model.List, error)
	ListListsByAdmin(ctx context.Context, userID string) ([]model.List, error)
	ListListsContainingWish(ctx context.Context, wishID string) ([]model.List, error)
	UpdateList(ctx context.Context, list *model.List) error
	DeleteList(ctx context.Context, id string) error
	// SetSlug stores (or clears) a list slug. Slugs are unique per owner; a
	// clash with another list of the same owner yields apperror.ErrConflict.
	SetSlug(ctx context.Context, listID string, slug *string) error
	GetListByVanity(ctx context.Context, username, slug string) (*model.List, error)
	ListProfileLists(ctx context.Context, ownerID string) ([]model.List, error)

	AddAdmin(ctx context.Context, listID, userID string) error
	RemoveAdmin(ctx context.Context, listID, userID string) error
	ListAdmins(ctx context.Context, listID string) ([]model.ListAdmin, error)
	IsListAdmin(ctx context.Context, listID, userID string) (bool, error)
}

type MembershipRepository interface {
	ListIDsForWish(ctx context.Context, wishID string) ([]string, error)
	// ReplaceWishMemberships makes the wish's list set exactly listIDs in a
	// single transaction and reports how many rows were added and removed.
	ReplaceWishMemberships(ctx context.Context, wishID string, listIDs []string) (added, removed int, err error)
	AddWishesToList(ctx context.Context, listID string, wishIDs []string) (int, error)
	RemoveWishesFromList(ctx context.Context, listID string, wishIDs []string) (int, error)
}

type ReservationRepository interface {
	// CreateReservation inserts the reservation, failing with
	// apperror.ErrConflict when the wish is already reserved and
	// apperror.ErrNotFound when the wish does not exist.
	CreateReservation(ctx context.Context, r *model.Reservation) error
	GetReservationByWishID(ctx context.Context, wishID string) (*model.Reservation, error)
	DeleteReservation(ctx context.Context, id string) error
	ListReservationsByWishIDs(ctx context.Context, wishIDs []string) (map[string]model.Reservation, error)
}

type AuditRepository interface {
	InsertAudit(ctx context.Context, entry *model.AuditEntry) error
	DeleteAuditBefore(ctx context.Context, cutoff time.Time) (int64, error)
	ListAudit(ctx context.Context, limit int) ([]model.AuditEntry, error)
}

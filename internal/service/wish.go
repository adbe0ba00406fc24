package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/sakif/gthanks/internal/apperror"
	"github.com/sakif/gthanks/internal/model"
	"github.com/sakif/gthanks/internal/repository"
	"github.com/sakif/gthanks/internal/validate"
)

// WishInput is the body of a create or update request. Zero values of the
// optional fields pick the defaults (USD, level 1, quantity 1).
type WishInput struct {
	Title     string   `json:"title" validate:"required,min=1,max=200"`
	URL       string   `json:"url" validate:"omitempty,http_url,max=2048"`
	Price     *float64 `json:"price" validate:"omitempty,gte=0"`
	Currency  string   `json:"currency" validate:"omitempty,currency"`
	WishLevel int      `json:"wishLevel" validate:"omitempty,min=1,max=3"`
	ImageURL  string   `json:"imageUrl" validate:"omitempty,http_url,max=2048"`
	Quantity  int      `json:"quantity" validate:"omitempty,min=1,max=99"`
	Notes     string   `json:"notes" validate:"max=1000"`
}

func (in *WishInput) normalize() {
	in.Title = strings.TrimSpace(in.Title)
	in.URL = strings.TrimSpace(in.URL)
	in.ImageURL = strings.TrimSpace(in.ImageURL)
	in.Currency = strings.ToUpper(strings.TrimSpace(in.Currency))
	in.Notes = strings.TrimSpace(in.Notes)
}

func (in *WishInput) apply(w *model.Wish) {
	w.Title = in.Title
	w.URL = in.URL
	w.Price = in.Price
	w.Currency = in.Currency
	if w.Currency == "" {
		w.Currency = "USD"
	}
	w.WishLevel = in.WishLevel
	if w.WishLevel == 0 {
		w.WishLevel = 1
	}
	w.ImageURL = in.ImageURL
	w.Quantity = in.Quantity
	if w.Quantity == 0 {
		w.Quantity = 1
	}
	w.Notes = in.Notes
}

// WishService is wish CRUD for their owners.
type WishService struct {
	wishes      repository.WishRepository
	memberships repository.MembershipRepository
	perms       *PermissionService
	audit       *AuditService
	logger      *slog.Logger
}

func NewWishService(
	wishes repository.WishRepository,
	memberships repository.MembershipRepository,
	perms *PermissionService,
	audit *AuditService,
	logger *slog.Logger,
) *WishService {
	return &WishService{wishes: wishes, memberships: memberships, perms: perms, audit: audit, logger: logger}
}

func (s *WishService) Create(ctx context.Context, ownerID string, in WishInput) (*model.Wish, error) {
	if ownerID == "" {
		return nil, apperror.Unauthorized("sign in to add wishes")
	}
	in.normalize()
	if err := validate.Struct(in); err != nil {
		return nil, err
	}

	wish := &model.Wish{OwnerID: ownerID}
	in.apply(wish)
	if err := s.wishes.CreateWish(ctx, wish); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "wish created",
		slog.String("wishID", wish.ID),
		slog.String("ownerID", ownerID),
	)
	s.audit.Record(ctx, model.AuditEntry{
		ActorID:      ownerID,
		Action:       AuditWishCreate,
		ResourceType: string(ResourceWish),
		ResourceID:   wish.ID,
	})
	return wish, nil
}

// Get returns the wish when viewerID may see it, and NotFound otherwise.
// The owner also gets the IDs of the lists the wish is on; other viewers
// could learn about private lists from them.
func (s *WishService) Get(ctx context.Context, id, viewerID string) (*model.Wish, error) {
	wish, err := s.wishes.GetWish(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.perms.requireWish(ctx, viewerID, ActionView, wish); err != nil {
		return nil, err
	}
	if viewerID == wish.OwnerID {
		ids, err := s.memberships.ListIDsForWish(ctx, wish.ID)
		if err != nil {
			return nil, err
		}
		wish.ListIDs = ids
	}
	return wish, nil
}

// ListMine returns the owner's wishes, newest first.
func (s *WishService) ListMine(ctx context.Context, ownerID string, limit, offset int) ([]model.Wish, error) {
	if ownerID == "" {
		return nil, apperror.Unauthorized("sign in to see your wishes")
	}
	if offset < 0 {
		offset = 0
	}
	return s.wishes.ListWishesByOwner(ctx, ownerID, repository.ListOptions{
		Limit:  clampLimit(limit),
		Offset: offset,
	})
}

// Update replaces every editable field of the wish with in.
func (s *WishService) Update(ctx context.Context, id, requesterID string, in WishInput) (*model.Wish, error) {
	wish, err := s.wishes.GetWish(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.perms.requireWish(ctx, requesterID, ActionEdit, wish); err != nil {
		return nil, err
	}

	in.normalize()
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	in.apply(wish)
	if err := s.wishes.UpdateWish(ctx, wish); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, model.AuditEntry{
		ActorID:      requesterID,
		Action:       AuditWishUpdate,
		ResourceType: string(ResourceWish),
		ResourceID:   wish.ID,
	})
	return wish, nil
}

// Delete removes the wish along with its reservation and list memberships.
func (s *WishService) Delete(ctx context.Context, id, requesterID string) error {
	wish, err := s.wishes.GetWish(ctx, id)
	if err != nil {
		return err
	}
	if err := s.perms.requireWish(ctx, requesterID, ActionDelete, wish); err != nil {
		return err
	}
	if err := s.wishes.DeleteWish(ctx, wish.ID); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "wish deleted", slog.String("wishID", wish.ID))
	s.audit.Record(ctx, model.AuditEntry{
		ActorID:      requesterID,
		Action:       AuditWishDelete,
		ResourceType: string(ResourceWish),
		ResourceID:   wish.ID,
	})
	return nil
}

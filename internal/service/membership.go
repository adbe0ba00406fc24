package service

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/sakif/gthanks/internal/apperror"
	"github.com/sakif/gthanks/internal/model"
	"github.com/sakif/gthanks/internal/repository"
)

// MembershipResult reports how a membership change went.
type MembershipResult struct {
	Added   int `json:"added"`
	Removed int `json:"removed"`
}

// MembershipService puts wishes on lists and takes them off again.
//
// WHY A SEPARATE SERVICE?
// A membership edit touches two resources with different permission rules:
// the wish (owner only) and the list (owner or co-admin). Keeping the checks
// here means neither WishService nor ListService has to know about the other.
type MembershipService struct {
	memberships repository.MembershipRepository
	wishes      repository.WishRepository
	lists       repository.ListRepository
	perms       *PermissionService
	audit       *AuditService
	logger      *slog.Logger
}

func NewMembershipService(
	memberships repository.MembershipRepository,
	wishes repository.WishRepository,
	lists repository.ListRepository,
	perms *PermissionService,
	audit *AuditService,
	logger *slog.Logger,
) *MembershipService {
	return &MembershipService{
		memberships: memberships,
		wishes:      wishes,
		lists:       lists,
		perms:       perms,
		audit:       audit,
		logger:      logger,
	}
}

// UpdateWishListMemberships makes listIDs the exact set of lists the wish is
// on. The requester must own the wish and every list named. Calling it twice
// with the same input reports 0 added and 0 removed the second time.
func (s *MembershipService) UpdateWishListMemberships(ctx context.Context, wishID string, listIDs []string, requesterID string) (*MembershipResult, error) {
	if requesterID == "" {
		return nil, apperror.Unauthorized("sign in to organise your wishes")
	}
	ids := uniqueIDs(listIDs)
	if len(ids) > MaxBatchIDs {
		return nil, apperror.ValidationFailed("listIds", fmt.Sprintf("at most %d lists per request", MaxBatchIDs))
	}

	wish, err := s.wishes.GetWish(ctx, wishID)
	if err != nil {
		return nil, err
	}
	if err := s.perms.requireWish(ctx, requesterID, ActionEdit, wish); err != nil {
		return nil, err
	}

	for _, id := range ids {
		list, err := s.lists.GetList(ctx, id)
		if err != nil {
			return nil, err
		}
		if list.OwnerID != requesterID {
			return nil, apperror.Forbidden("you can only add your wishes to your own lists")
		}
	}

	added, removed, err := s.memberships.ReplaceWishMemberships(ctx, wish.ID, ids)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "wish memberships updated",
		slog.String("wishID", wish.ID),
		slog.Int("added", added),
		slog.Int("removed", removed),
	)
	if added > 0 || removed > 0 {
		s.audit.Record(ctx, model.AuditEntry{
			ActorID:      requesterID,
			Action:       AuditMembershipsUpdate,
			ResourceType: string(ResourceWish),
			ResourceID:   wish.ID,
			Details: map[string]string{
				"added":   strconv.Itoa(added),
				"removed": strconv.Itoa(removed),
			},
		})
	}
	return &MembershipResult{Added: added, Removed: removed}, nil
}

// BulkRemoveWishesFromList takes wishIDs off the list. IDs that are not on
// the list are ignored; the result counts only rows that existed.
func (s *MembershipService) BulkRemoveWishesFromList(ctx context.Context, listID string, wishIDs []string, requesterID string) (int, error) {
	ids := uniqueIDs(wishIDs)
	if len(ids) == 0 {
		return 0, apperror.ValidationFailed("wishIds", "wishIds must not be empty")
	}
	if len(ids) > MaxBatchIDs {
		return 0, apperror.ValidationFailed("wishIds", fmt.Sprintf("at most %d wishes per request", MaxBatchIDs))
	}

	list, err := s.lists.GetList(ctx, listID)
	if err != nil {
		return 0, err
	}
	if err := s.perms.requireList(ctx, requesterID, ActionEdit, list); err != nil {
		return 0, err
	}

	removed, err := s.memberships.RemoveWishesFromList(ctx, list.ID, ids)
	if err != nil {
		return 0, err
	}

	s.logger.InfoContext(ctx, "wishes removed from list",
		slog.String("listID", list.ID),
		slog.Int("requested", len(ids)),
		slog.Int("removed", removed),
	)
	if removed > 0 {
		s.audit.Record(ctx, model.AuditEntry{
			ActorID:      requesterID,
			Action:       AuditListWishesRemove,
			ResourceType: string(ResourceList),
			ResourceID:   list.ID,
			Details:      map[string]string{"removed": strconv.Itoa(removed)},
		})
	}
	return removed, nil
}

// AddWishesToList puts wishIDs on the list. The requester must be able to
// edit the list and must own every wish. Wishes already on the list are skipped.
func (s *MembershipService) AddWishesToList(ctx context.Context, listID string, wishIDs []string, requesterID string) (int, error) {
	ids := uniqueIDs(wishIDs)
	if len(ids) == 0 {
		return 0, apperror.ValidationFailed("wishIds", "wishIds must not be empty")
	}
	if len(ids) > MaxBatchIDs {
		return 0, apperror.ValidationFailed("wishIds", fmt.Sprintf("at most %d wishes per request", MaxBatchIDs))
	}

	list, err := s.lists.GetList(ctx, listID)
	if err != nil {
		return 0, err
	}
	if err := s.perms.requireList(ctx, requesterID, ActionEdit, list); err != nil {
		return 0, err
	}

	for _, id := range ids {
		wish, err := s.wishes.GetWish(ctx, id)
		if err != nil {
			return 0, err
		}
		if wish.OwnerID != requesterID {
			return 0, apperror.Forbidden("you can only add your own wishes")
		}
	}

	added, err := s.memberships.AddWishesToList(ctx, list.ID, ids)
	if err != nil {
		return 0, err
	}
	if added > 0 {
		s.audit.Record(ctx, model.AuditEntry{
			ActorID:      requesterID,
			Action:       AuditListWishesAdd,
			ResourceType: string(ResourceList),
			ResourceID:   list.ID,
			Details:      map[string]string{"added": strconv.Itoa(added)},
		})
	}
	return added, nil
}

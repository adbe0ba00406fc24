package service

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/sakif/gthanks/internal/apperror"
	"github.com/sakif/gthanks/internal/model"
	"github.com/sakif/gthanks/internal/repository"
)

// requireSiteAdmin fails unless actorID belongs to a site admin.
func requireSiteAdmin(ctx context.Context, users repository.UserRepository, actorID string) error {
	if actorID == "" {
		return apperror.Unauthorized("authentication required")
	}
	actor, err := users.GetUserByID(ctx, actorID)
	if err != nil {
		if isNotFound(err) {
			return apperror.Unauthorized("authentication required")
		}
		return err
	}
	if !actor.IsAdmin {
		return apperror.Forbidden("site admin only")
	}
	return nil
}

// AdminService holds the site-admin operations that are not about vanity
// usernames: entitlements and the audit trail.
type AdminService struct {
	users  repository.UserRepository
	audit  *AuditService
	logger *slog.Logger
}

func NewAdminService(users repository.UserRepository, audit *AuditService, logger *slog.Logger) *AdminService {
	return &AdminService{users: users, audit: audit, logger: logger}
}

// SetVanityAccess grants or revokes userID's vanity URL entitlement.
func (s *AdminService) SetVanityAccess(ctx context.Context, adminID, userID string, allowed bool) (*model.User, error) {
	if err := requireSiteAdmin(ctx, s.users, adminID); err != nil {
		return nil, err
	}
	if err := s.users.SetVanityAccess(ctx, userID, allowed); err != nil {
		return nil, err
	}
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "vanity access changed",
		slog.String("userID", userID),
		slog.Bool("allowed", allowed),
	)
	s.audit.Record(ctx, model.AuditEntry{
		ActorID:      adminID,
		Action:       AuditAdminVanityAccess,
		ResourceType: "user",
		ResourceID:   userID,
		Details:      map[string]string{"allowed": strconv.FormatBool(allowed)},
	})
	return user, nil
}

// RecentAudit returns the newest audit entries.
func (s *AdminService) RecentAudit(ctx context.Context, adminID string, limit int) ([]model.AuditEntry, error) {
	if err := requireSiteAdmin(ctx, s.users, adminID); err != nil {
		return nil, err
	}
	return s.audit.Recent(ctx, limit)
}

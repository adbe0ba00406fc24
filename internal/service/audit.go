package service

import (
	"context"
	"log/slog"

	"github.com/sakif/gthanks/internal/model"
	"github.com/sakif/gthanks/internal/repository"
)

// Audit actions. The resource type travels separately, so the names read as
// "<resource>.<verb>".
const (
	AuditWishCreate        = "wish.create"
	AuditWishUpdate        = "wish.update"
	AuditWishDelete        = "wish.delete"
	AuditListCreate        = "list.create"
	AuditListUpdate        = "list.update"
	AuditListDelete        = "list.delete"
	AuditListPassword      = "list.password"
	AuditListSlug          = "list.slug"
	AuditListAdminAdd      = "list.admin_add"
	AuditListAdminRemove   = "list.admin_remove"
	AuditMembershipsUpdate = "wish.memberships"
	AuditListWishesAdd     = "list.wishes_add"
	AuditListWishesRemove  = "list.wishes_remove"
	AuditReservationCreate = "reservation.create"
	AuditReservationRemove = "reservation.remove"
	AuditUsernameSet       = "user.username"
	AuditAdminUsernameSet  = "admin.username"
	AuditAdminVanityAccess = "admin.vanity_access"
	AuditListUnlockFailed  = "list.unlock_failed"
)

// AuditService records who changed what.
//
// Recording is best effort: a failed insert is logged and swallowed, so an
// audit problem never undoes or fails the change being audited.
type AuditService struct {
	repo   repository.AuditRepository
	logger *slog.Logger
}

func NewAuditService(repo repository.AuditRepository, logger *slog.Logger) *AuditService {
	return &AuditService{repo: repo, logger: logger}
}

// Record stores entry. A nil *AuditService is a no-op, which keeps tests
// that don't care about auditing short.
func (s *AuditService) Record(ctx context.Context, entry model.AuditEntry) {
	if s == nil {
		return
	}
	if err := s.repo.InsertAudit(ctx, &entry); err != nil {
		s.logger.WarnContext(ctx, "audit write failed",
			slog.String("action", entry.Action),
			slog.String("resourceID", entry.ResourceID),
			slog.String("error", err.Error()),
		)
	}
}

// Recent returns the newest audit entries.
func (s *AuditService) Recent(ctx context.Context, limit int) ([]model.AuditEntry, error) {
	return s.repo.ListAudit(ctx, clampLimit(limit))
}

package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/gthanks/internal/apperror"
	"github.com/sakif/gthanks/internal/mailer"
	"github.com/sakif/gthanks/internal/metrics"
	"github.com/sakif/gthanks/internal/model"
	"github.com/sakif/gthanks/internal/repository"
	"github.com/sakif/gthanks/internal/validate"
)

// CreateReservationInput is what a gift-giver submits to claim a wish.
// Authenticated callers may leave both fields empty; their account name and
// email are used instead.
type CreateReservationInput struct {
	WishID        string `json:"-" validate:"required"`
	ReserverName  string `json:"reserverName" validate:"max=100"`
	ReserverEmail string `json:"reserverEmail" validate:"omitempty,email,max=254"`
}

// ReservationService owns the "one reservation per wish" rule and the
// privacy rule that owners never learn who reserved their wishes.
type ReservationService struct {
	reservations repository.ReservationRepository
	wishes       repository.WishRepository
	users        repository.UserRepository
	perms        *PermissionService
	audit        *AuditService
	mail         mailer.Mailer
	metrics      *metrics.Metrics
	logger       *slog.Logger
}

func NewReservationService(
	reservations repository.ReservationRepository,
	wishes repository.WishRepository,
	users repository.UserRepository,
	perms *PermissionService,
	audit *AuditService,
	mail mailer.Mailer,
	m *metrics.Metrics,
	logger *slog.Logger,
) *ReservationService {
	return &ReservationService{
		reservations: reservations,
		wishes:       wishes,
		users:        users,
		perms:        perms,
		audit:        audit,
		mail:         mail,
		metrics:      m,
		logger:       logger,
	}
}

// CreateReservation reserves a wish.
//
// FAILURE MODES:
//   - validation error: malformed email, or an anonymous caller without one
//   - not found: the wish does not exist
//   - forbidden: the caller owns the wish
//   - conflict: the wish is already reserved
//
// The "already reserved" check runs inside the repository transaction and is
// backed by a UNIQUE constraint, so two concurrent callers can never both win.
func (s *ReservationService) CreateReservation(ctx context.Context, in CreateReservationInput, requesterUserID string) (*model.Reservation, error) {
	in.ReserverName = strings.TrimSpace(in.ReserverName)
	in.ReserverEmail = strings.ToLower(strings.TrimSpace(in.ReserverEmail))

	if err := validate.Struct(in); err != nil {
		s.metrics.ReservationOutcome("invalid")
		return nil, err
	}

	wish, err := s.wishes.GetWish(ctx, in.WishID)
	if err != nil {
		if isNotFound(err) {
			s.metrics.ReservationOutcome("not_found")
		}
		return nil, err
	}

	d, err := s.perms.CanWish(ctx, requesterUserID, ActionReserve, wish)
	if err != nil {
		return nil, err
	}
	if !d.Allowed {
		s.metrics.ReservationOutcome("forbidden")
		return nil, apperror.Forbidden(d.Reason)
	}

	r := &model.Reservation{
		WishID:        wish.ID,
		ReserverName:  in.ReserverName,
		ReserverEmail: in.ReserverEmail,
	}

	if requesterUserID != "" {
		user, err := s.users.GetUserByID(ctx, requesterUserID)
		if err != nil {
			return nil, fmt.Errorf("reservation: loading requester %s: %w", requesterUserID, err)
		}
		r.ReserverUserID = &user.ID
		if r.ReserverName == "" {
			r.ReserverName = user.DisplayName()
		}
		if r.ReserverEmail == "" {
			r.ReserverEmail = strings.ToLower(user.Email)
		}
	} else if r.ReserverEmail == "" {
		s.metrics.ReservationOutcome("invalid")
		return nil, apperror.ValidationFailed("reserverEmail", "reserverEmail is required when not signed in")
	}

	if err := s.reservations.CreateReservation(ctx, r); err != nil {
		switch {
		case errors.Is(err, apperror.ErrConflict):
			s.metrics.ReservationOutcome("conflict")
		case isNotFound(err):
			s.metrics.ReservationOutcome("not_found")
		default:
			s.metrics.ReservationOutcome("error")
			s.logger.ErrorContext(ctx, "failed to create reservation",
				slog.String("wishID", wish.ID),
				slog.String("error", err.Error()),
			)
		}
		return nil, err
	}
	s.metrics.ReservationOutcome("created")

	s.logger.InfoContext(ctx, "wish reserved",
		slog.String("wishID", wish.ID),
		slog.String("reservationID", r.ID),
		slog.Bool("anonymous", requesterUserID == ""),
	)
	s.audit.Record(ctx, model.AuditEntry{
		ActorID:      requesterUserID,
		Action:       AuditReservationCreate,
		ResourceType: string(ResourceWish),
		ResourceID:   wish.ID,
		Details:      map[string]string{"reservationId": r.ID},
	})
	s.sendConfirmation(ctx, wish, r)

	return r, nil
}

// sendConfirmation mails the reserver. Failures are logged only.
func (s *ReservationService) sendConfirmation(ctx context.Context, wish *model.Wish, r *model.Reservation) {
	if s.mail == nil || r.ReserverEmail == "" {
		return
	}
	msg := mailer.Message{
		To:      r.ReserverEmail,
		Subject: fmt.Sprintf("You reserved %q", wish.Title),
		Body: fmt.Sprintf(
			"Hi %s,\n\nyou have reserved %q. The wish owner will not see who reserved it.\n",
			r.ReserverName, wish.Title,
		),
	}
	if err := s.mail.Send(ctx, msg); err != nil {
		s.logger.WarnContext(ctx, "reservation confirmation not sent",
			slog.String("reservationID", r.ID),
			slog.String("error", err.Error()),
		)
	}
}

// RemoveReservationByWishID releases the reservation on wishID.
//
// Only the reserver may release it: either the reservation is tied to the
// requester's account, or its email matches the requester's account email
// (case-insensitive). The email match covers reservations made anonymously
// before the reserver signed up.
func (s *ReservationService) RemoveReservationByWishID(ctx context.Context, wishID, requesterUserID string) error {
	if requesterUserID == "" {
		return apperror.Unauthorized("sign in to remove a reservation")
	}

	user, err := s.users.GetUserByID(ctx, requesterUserID)
	if err != nil {
		return fmt.Errorf("reservation: loading requester %s: %w", requesterUserID, err)
	}

	r, err := s.reservations.GetReservationByWishID(ctx, wishID)
	if err != nil {
		return err
	}

	if !reservedBy(r, user) {
		return apperror.Forbidden("only the person who reserved this wish can remove the reservation")
	}

	if err := s.reservations.DeleteReservation(ctx, r.ID); err != nil {
		return err
	}
	s.metrics.ReservationOutcome("removed")

	s.logger.InfoContext(ctx, "reservation removed",
		slog.String("wishID", wishID),
		slog.String("reservationID", r.ID),
	)
	s.audit.Record(ctx, model.AuditEntry{
		ActorID:      user.ID,
		Action:       AuditReservationRemove,
		ResourceType: string(ResourceWish),
		ResourceID:   wishID,
	})
	return nil
}

func reservedBy(r *model.Reservation, user *model.User) bool {
	if r.ReserverUserID != nil && *r.ReserverUserID == user.ID {
		return true
	}
	return r.ReserverEmail != "" && user.Email != "" && strings.EqualFold(r.ReserverEmail, user.Email)
}

// GetReservationStatus reports, for each known wish, whether it is reserved.
//
// PRIVACY RULE:
// When the viewer owns the wish only isReserved is filled in. Everyone else
// also sees who reserved it and when. Unknown wish IDs are left out of the
// result rather than failing the whole request.
func (s *ReservationService) GetReservationStatus(ctx context.Context, wishIDs []string, viewerUserID string) ([]model.ReservationStatus, error) {
	ids := uniqueIDs(wishIDs)
	if len(ids) > MaxBatchIDs {
		return nil, apperror.ValidationFailed("wishIds", fmt.Sprintf("at most %d wish IDs per request", MaxBatchIDs))
	}

	wishes := make([]*model.Wish, 0, len(ids))
	known := make([]string, 0, len(ids))
	for _, id := range ids {
		w, err := s.wishes.GetWish(ctx, id)
		if err != nil {
			if isNotFound(err) {
				continue
			}
			return nil, err
		}
		wishes = append(wishes, w)
		known = append(known, w.ID)
	}

	reservations, err := s.reservations.ListReservationsByWishIDs(ctx, known)
	if err != nil {
		return nil, err
	}

	out := make([]model.ReservationStatus, 0, len(wishes))
	for _, w := range wishes {
		st := model.ReservationStatus{WishID: w.ID}
		r, reserved := reservations[w.ID]
		st.IsReserved = reserved

		isOwner := viewerUserID != "" && viewerUserID == w.OwnerID
		if reserved && !isOwner {
			reservedAt := r.ReservedAt
			st.ReserverName = r.ReserverName
			st.ReserverEmail = r.ReserverEmail
			st.ReservedAt = &reservedAt
		}
		out = append(out, st)
	}
	return out, nil
}

package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/sakif/gthanks/internal/apperror"
	"github.com/sakif/gthanks/internal/auth"
	"github.com/sakif/gthanks/internal/model"
	"github.com/sakif/gthanks/internal/repository"
	"github.com/sakif/gthanks/internal/validate"
)

// ListInput is the body of a list create or update request.
//
// On update an empty Visibility keeps the current one, an empty Password
// keeps the current hash and a missing hideFromProfile keeps the current flag.
type ListInput struct {
	Name            string `json:"name" validate:"required,min=1,max=100"`
	Description     string `json:"description" validate:"max=500"`
	Visibility      string `json:"visibility" validate:"omitempty,oneof=private public password"`
	Password        string `json:"password" validate:"omitempty,min=4,max=72"`
	HideFromProfile *bool  `json:"hideFromProfile"`
}

func (in *ListInput) normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	in.Visibility = strings.ToLower(strings.TrimSpace(in.Visibility))
}

// ListService is list CRUD plus the owner-only sharing settings (password
// and co-admins). Slugs live in VanityService.
type ListService struct {
	lists     repository.ListRepository
	wishes    repository.WishRepository
	users     repository.UserRepository
	perms     *PermissionService
	passwords *auth.PasswordService
	audit     *AuditService
	logger    *slog.Logger
}

func NewListService(
	lists repository.ListRepository,
	wishes repository.WishRepository,
	users repository.UserRepository,
	perms *PermissionService,
	passwords *auth.PasswordService,
	audit *AuditService,
	logger *slog.Logger,
) *ListService {
	return &ListService{
		lists:     lists,
		wishes:    wishes,
		users:     users,
		perms:     perms,
		passwords: passwords,
		audit:     audit,
		logger:    logger,
	}
}

func (s *ListService) hashPassword(password string) (string, error) {
	hash, err := s.passwords.Hash(password)
	switch {
	case errors.Is(err, auth.ErrPasswordTooShort), errors.Is(err, auth.ErrPasswordTooLong):
		return "", apperror.ValidationFailed("password", strings.TrimPrefix(err.Error(), "auth: "))
	case err != nil:
		return "", err
	}
	return hash, nil
}

func (s *ListService) Create(ctx context.Context, ownerID string, in ListInput) (*model.List, error) {
	if ownerID == "" {
		return nil, apperror.Unauthorized("sign in to create lists")
	}
	in.normalize()
	if err := validate.Struct(in); err != nil {
		return nil, err
	}

	list := &model.List{
		OwnerID:         ownerID,
		Name:            in.Name,
		Description:     in.Description,
		Visibility:      model.Visibility(in.Visibility),
		HideFromProfile: in.HideFromProfile != nil && *in.HideFromProfile,
	}
	if list.Visibility == "" {
		list.Visibility = model.VisibilityPrivate
	}
	if list.Visibility == model.VisibilityPassword {
		if in.Password == "" {
			return nil, apperror.ValidationFailed("password", "password is required for password protected lists")
		}
		hash, err := s.hashPassword(in.Password)
		if err != nil {
			return nil, err
		}
		list.PasswordHash = hash
	}

	if err := s.lists.CreateList(ctx, list); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "list created",
		slog.String("listID", list.ID),
		slog.String("visibility", string(list.Visibility)),
	)
	s.audit.Record(ctx, model.AuditEntry{
		ActorID:      ownerID,
		Action:       AuditListCreate,
		ResourceType: string(ResourceList),
		ResourceID:   list.ID,
	})
	return list, nil
}

// Get returns the list with its wishes. Viewers who may not see the list get NotFound.
func (s *ListService) Get(ctx context.Context, id, viewerID string) (*model.List, error) {
	list, err := s.lists.GetList(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.perms.requireList(ctx, viewerID, ActionView, list); err != nil {
		return nil, err
	}
	wishes, err := s.wishes.ListWishesByList(ctx, list.ID)
	if err != nil {
		return nil, err
	}
	list.Wishes = wishes
	return list, nil
}

// ListMine returns the lists userID owns followed by those they co-administer.
func (s *ListService) ListMine(ctx context.Context, userID string) ([]model.List, error) {
	if userID == "" {
		return nil, apperror.Unauthorized("sign in to see your lists")
	}
	owned, err := s.lists.ListListsByOwner(ctx, userID)
	if err != nil {
		return nil, err
	}
	shared, err := s.lists.ListListsByAdmin(ctx, userID)
	if err != nil {
		return nil, err
	}
	return append(owned, shared...), nil
}

// Update edits a list. Co-admins may change name and description; changing
// visibility, password or the profile flag is a sharing decision left to the owner.
func (s *ListService) Update(ctx context.Context, id, requesterID string, in ListInput) (*model.List, error) {
	list, err := s.lists.GetList(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.perms.requireList(ctx, requesterID, ActionEdit, list); err != nil {
		return nil, err
	}

	in.normalize()
	if err := validate.Struct(in); err != nil {
		return nil, err
	}

	visibility := list.Visibility
	if in.Visibility != "" {
		visibility = model.Visibility(in.Visibility)
	}
	hidden := list.HideFromProfile
	if in.HideFromProfile != nil {
		hidden = *in.HideFromProfile
	}
	sharingChanged := visibility != list.Visibility ||
		in.Password != "" ||
		hidden != list.HideFromProfile
	if sharingChanged {
		if err := s.perms.requireList(ctx, requesterID, ActionShare, list); err != nil {
			return nil, err
		}
	}

	switch {
	case visibility != model.VisibilityPassword:
		list.PasswordHash = ""
	case in.Password != "":
		hash, err := s.hashPassword(in.Password)
		if err != nil {
			return nil, err
		}
		list.PasswordHash = hash
	case list.PasswordHash == "":
		return nil, apperror.ValidationFailed("password", "password is required for password protected lists")
	}

	list.Name = in.Name
	list.Description = in.Description
	list.Visibility = visibility
	list.HideFromProfile = hidden

	if err := s.lists.UpdateList(ctx, list); err != nil {
		return nil, err
	}
	s.audit.Record(ctx, model.AuditEntry{
		ActorID:      requesterID,
		Action:       AuditListUpdate,
		ResourceType: string(ResourceList),
		ResourceID:   list.ID,
		Details:      map[string]string{"visibility": string(list.Visibility)},
	})
	return list, nil
}

// SetPassword protects the list with password. Any access token issued for
// the previous password stops working.
func (s *ListService) SetPassword(ctx context.Context, id, requesterID, password string) error {
	list, err := s.lists.GetList(ctx, id)
	if err != nil {
		return err
	}
	if err := s.perms.requireList(ctx, requesterID, ActionShare, list); err != nil {
		return err
	}
	if err := validate.Var("password", password, "required,min=4,max=72"); err != nil {
		return err
	}

	hash, err := s.hashPassword(password)
	if err != nil {
		return err
	}
	list.PasswordHash = hash
	list.Visibility = model.VisibilityPassword
	if err := s.lists.UpdateList(ctx, list); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "list password changed", slog.String("listID", list.ID))
	s.audit.Record(ctx, model.AuditEntry{
		ActorID:      requesterID,
		Action:       AuditListPassword,
		ResourceType: string(ResourceList),
		ResourceID:   list.ID,
	})
	return nil
}

func (s *ListService) Delete(ctx context.Context, id, requesterID string) error {
	list, err := s.lists.GetList(ctx, id)
	if err != nil {
		return err
	}
	if err := s.perms.requireList(ctx, requesterID, ActionDelete, list); err != nil {
		return err
	}
	if err := s.lists.DeleteList(ctx, list.ID); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "list deleted", slog.String("listID", list.ID))
	s.audit.Record(ctx, model.AuditEntry{
		ActorID:      requesterID,
		Action:       AuditListDelete,
		ResourceType: string(ResourceList),
		ResourceID:   list.ID,
	})
	return nil
}

// AddAdmin makes userID a co-admin. Only the owner may do this.
func (s *ListService) AddAdmin(ctx context.Context, listID, requesterID, userID string) error {
	list, err := s.lists.GetList(ctx, listID)
	if err != nil {
		return err
	}
	if err := s.perms.requireList(ctx, requesterID, ActionShare, list); err != nil {
		return err
	}
	if userID == "" {
		return apperror.ValidationFailed("userId", "userId is required")
	}
	if userID == list.OwnerID {
		return apperror.ValidationFailed("userId", "the owner is already in charge of this list")
	}
	if _, err := s.users.GetUserByID(ctx, userID); err != nil {
		return err
	}
	if err := s.lists.AddAdmin(ctx, list.ID, userID); err != nil {
		return err
	}

	s.audit.Record(ctx, model.AuditEntry{
		ActorID:      requesterID,
		Action:       AuditListAdminAdd,
		ResourceType: string(ResourceList),
		ResourceID:   list.ID,
		Details:      map[string]string{"userId": userID},
	})
	return nil
}

// RemoveAdmin revokes co-admin rights. The owner may remove anyone; a
// co-admin may step down.
func (s *ListService) RemoveAdmin(ctx context.Context, listID, requesterID, userID string) error {
	list, err := s.lists.GetList(ctx, listID)
	if err != nil {
		return err
	}
	if requesterID != "" && requesterID == userID && requesterID != list.OwnerID {
		isAdmin, err := s.lists.IsListAdmin(ctx, list.ID, requesterID)
		if err != nil {
			return err
		}
		if !isAdmin {
			return apperror.NotFound("list", list.ID)
		}
	} else if err := s.perms.requireList(ctx, requesterID, ActionShare, list); err != nil {
		return err
	}
	if err := s.lists.RemoveAdmin(ctx, list.ID, userID); err != nil {
		return err
	}

	s.audit.Record(ctx, model.AuditEntry{
		ActorID:      requesterID,
		Action:       AuditListAdminRemove,
		ResourceType: string(ResourceList),
		ResourceID:   list.ID,
		Details:      map[string]string{"userId": userID},
	})
	return nil
}

// ListAdmins is visible to everyone who may edit the list.
func (s *ListService) ListAdmins(ctx context.Context, listID, requesterID string) ([]model.ListAdmin, error) {
	list, err := s.lists.GetList(ctx, listID)
	if err != nil {
		return nil, err
	}
	if err := s.perms.requireList(ctx, requesterID, ActionEdit, list); err != nil {
		return nil, err
	}
	return s.lists.ListAdmins(ctx, list.ID)
}

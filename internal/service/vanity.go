package service

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"strings"

	"github.com/sakif/gthanks/internal/apperror"
	"github.com/sakif/gthanks/internal/auth"
	"github.com/sakif/gthanks/internal/model"
	"github.com/sakif/gthanks/internal/repository"
	"github.com/sakif/gthanks/internal/slug"
)

var usernamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{2,29}$`)

// reservedUsernames would shadow top-level routes or mislead visitors.
var reservedUsernames = map[string]bool{
	"admin":     true,
	"api":       true,
	"app":       true,
	"auth":      true,
	"dashboard": true,
	"help":      true,
	"healthz":   true,
	"lists":     true,
	"login":     true,
	"logout":    true,
	"me":        true,
	"metrics":   true,
	"profile":   true,
	"public":    true,
	"settings":  true,
	"static":    true,
	"support":   true,
	"system":    true,
	"user":      true,
	"wishes":    true,
}

// PublicProfile is what /{username} shows: the owner and their shared lists.
type PublicProfile struct {
	Username  string       `json:"username"`
	Name      string       `json:"name"`
	AvatarURL string       `json:"avatarUrl"`
	Lists     []model.List `json:"lists"`
}

// VanityService manages the human-readable URLs /{username}/{slug}.
//
// TWO KEYS, TWO SCOPES:
// Usernames are global (one "alice" on the whole site, compared without
// case). Slugs are per owner: alice and bob may both have "christmas".
// Both rules are enforced by unique indexes; the pre-checks here only give
// nicer errors.
//
// Only users with the CanUseVanityURLs entitlement get vanity URLs. Losing the
// entitlement hides their vanity URLs without deleting anything.
type VanityService struct {
	users     repository.UserRepository
	lists     repository.ListRepository
	wishes    repository.WishRepository
	perms     *PermissionService
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	audit     *AuditService
	logger    *slog.Logger
}

func NewVanityService(
	users repository.UserRepository,
	lists repository.ListRepository,
	wishes repository.WishRepository,
	perms *PermissionService,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	audit *AuditService,
	logger *slog.Logger,
) *VanityService {
	return &VanityService{
		users:     users,
		lists:     lists,
		wishes:    wishes,
		perms:     perms,
		tokens:    tokens,
		passwords: passwords,
		audit:     audit,
		logger:    logger,
	}
}

// NormalizeUsername lower-cases username and checks its shape.
func NormalizeUsername(username string) (string, error) {
	u := strings.ToLower(strings.TrimSpace(username))
	if !usernamePattern.MatchString(u) {
		return "", apperror.ValidationFailed("username",
			"username must be 3-30 characters of a-z, 0-9, '-' or '_' and start with a letter or digit")
	}
	if reservedUsernames[u] {
		return "", apperror.ValidationFailed("username", "this username is reserved")
	}
	return u, nil
}

// SetUsername claims a username for userID. A username can be set once;
// afterwards only a site admin can change it.
func (s *VanityService) SetUsername(ctx context.Context, userID, username string) (*model.User, error) {
	if userID == "" {
		return nil, apperror.Unauthorized("sign in to choose a username")
	}
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.CanUseVanityURLs {
		return nil, apperror.Forbidden("your account cannot use vanity URLs")
	}
	if user.Username != nil {
		return nil, apperror.Forbidden("your username has already been set")
	}

	normalized, err := NormalizeUsername(username)
	if err != nil {
		return nil, err
	}
	if err := s.ensureUsernameFree(ctx, normalized, user.ID); err != nil {
		return nil, err
	}
	if err := s.users.SetUsername(ctx, user.ID, &normalized); err != nil {
		return nil, err
	}
	user.Username = &normalized

	s.logger.InfoContext(ctx, "username set",
		slog.String("userID", user.ID),
		slog.String("username", normalized),
	)
	s.audit.Record(ctx, model.AuditEntry{
		ActorID:      user.ID,
		Action:       AuditUsernameSet,
		ResourceType: "user",
		ResourceID:   user.ID,
		Details:      map[string]string{"username": normalized},
	})
	return user, nil
}

// AdminSetUsername lets a site admin set, replace or (with a nil username)
// clear any user's username.
func (s *VanityService) AdminSetUsername(ctx context.Context, adminID, userID string, username *string) (*model.User, error) {
	if err := requireSiteAdmin(ctx, s.users, adminID); err != nil {
		return nil, err
	}
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	var next *string
	if username != nil && strings.TrimSpace(*username) != "" {
		normalized, err := NormalizeUsername(*username)
		if err != nil {
			return nil, err
		}
		if err := s.ensureUsernameFree(ctx, normalized, user.ID); err != nil {
			return nil, err
		}
		next = &normalized
	}

	if err := s.users.SetUsername(ctx, user.ID, next); err != nil {
		return nil, err
	}
	user.Username = next

	details := map[string]string{"userId": user.ID}
	if next != nil {
		details["username"] = *next
	}
	s.audit.Record(ctx, model.AuditEntry{
		ActorID:      adminID,
		Action:       AuditAdminUsernameSet,
		ResourceType: "user",
		ResourceID:   user.ID,
		Details:      details,
	})
	return user, nil
}

func (s *VanityService) ensureUsernameFree(ctx context.Context, username, userID string) error {
	existing, err := s.users.GetUserByUsername(ctx, username)
	switch {
	case err == nil && existing.ID != userID:
		return apperror.ConflictMessage("username is already taken")
	case err != nil && !isNotFound(err):
		return err
	}
	return nil
}

// SetSlug gives a list its URL segment. The input is slugified first, so
// "Noël 2025" is stored as "noel-2025". An empty slug clears it.
func (s *VanityService) SetSlug(ctx context.Context, listID, ownerID, rawSlug string) (*model.List, error) {
	list, err := s.lists.GetList(ctx, listID)
	if err != nil {
		return nil, err
	}
	if err := s.perms.requireList(ctx, ownerID, ActionShare, list); err != nil {
		return nil, err
	}

	var next *string
	if strings.TrimSpace(rawSlug) != "" {
		made := slug.Make(rawSlug)
		if made == "" {
			return nil, apperror.ValidationFailed("slug", "slug must contain at least one letter or digit")
		}
		next = &made
	}

	if err := s.lists.SetSlug(ctx, list.ID, next); err != nil {
		return nil, err
	}
	list.Slug = next

	details := map[string]string{}
	if next != nil {
		details["slug"] = *next
	}
	s.audit.Record(ctx, model.AuditEntry{
		ActorID:      ownerID,
		Action:       AuditListSlug,
		ResourceType: string(ResourceList),
		ResourceID:   list.ID,
		Details:      details,
	})
	return list, nil
}

// GetByVanityURL resolves /{username}/{slug} to a list with its wishes.
// Private and hidden lists, and lists of owners without the entitlement,
// are reported as NotFound. Password checks are up to the caller.
func (s *VanityService) GetByVanityURL(ctx context.Context, username, listSlug string) (*model.List, error) {
	owner, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if !owner.CanUseVanityURLs {
		return nil, apperror.NotFound("list", username+"/"+listSlug)
	}

	list, err := s.lists.GetListByVanity(ctx, username, listSlug)
	if err != nil {
		return nil, err
	}
	wishes, err := s.wishes.ListWishesByList(ctx, list.ID)
	if err != nil {
		return nil, err
	}
	list.Wishes = wishes
	return list, nil
}

// GetPublicList is GetByVanityURL with the password gate applied. A
// password list is returned to its owner and co-admins, and to anyone
// holding a valid access token for the current password; everyone else gets
// a PASSWORD_REQUIRED error.
func (s *VanityService) GetPublicList(ctx context.Context, username, listSlug, accessToken, viewerID string) (*model.List, error) {
	list, err := s.GetByVanityURL(ctx, username, listSlug)
	if err != nil {
		return nil, err
	}

	if list.Visibility == model.VisibilityPassword {
		d, err := s.perms.CanList(ctx, viewerID, ActionView, list)
		if err != nil {
			return nil, err
		}
		if !d.Allowed {
			if accessToken == "" || s.tokens.ValidateListAccess(accessToken, list.ID, list.PasswordHash) != nil {
				return nil, apperror.PasswordRequired(list.ID)
			}
		}
	}

	list.PasswordHash = ""
	return list, nil
}

// UnlockList checks password against a password-protected list and returns
// an access token for it. Wrong guesses are audited.
func (s *VanityService) UnlockList(ctx context.Context, username, listSlug, password string) (string, *model.List, error) {
	owner, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		return "", nil, err
	}
	if !owner.CanUseVanityURLs {
		return "", nil, apperror.NotFound("list", username+"/"+listSlug)
	}
	list, err := s.lists.GetListByVanity(ctx, username, listSlug)
	if err != nil {
		return "", nil, err
	}
	if list.Visibility != model.VisibilityPassword || list.PasswordHash == "" {
		return "", nil, apperror.ValidationFailed("password", "this list is not password protected")
	}
	if password == "" {
		return "", nil, apperror.ValidationFailed("password", "password is required")
	}

	if err := s.passwords.Verify(list.PasswordHash, password); err != nil {
		if !errors.Is(err, auth.ErrInvalidPassword) {
			return "", nil, err
		}
		s.logger.WarnContext(ctx, "list unlock failed", slog.String("listID", list.ID))
		s.audit.Record(ctx, model.AuditEntry{
			Action:       AuditListUnlockFailed,
			ResourceType: string(ResourceList),
			ResourceID:   list.ID,
		})
		return "", nil, &apperror.AppError{
			Err:     apperror.ErrForbidden,
			Message: "incorrect password",
			Field:   "password",
			Code:    apperror.CodePasswordRequired,
		}
	}

	token, err := s.tokens.GenerateListAccess(list.ID, list.PasswordHash)
	if err != nil {
		return "", nil, err
	}
	list.PasswordHash = ""
	return token, list, nil
}

// GetPublicProfile lists the owner's shared lists that have a slug.
func (s *VanityService) GetPublicProfile(ctx context.Context, username string) (*PublicProfile, error) {
	owner, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if !owner.CanUseVanityURLs || owner.Username == nil {
		return nil, apperror.NotFound("user", username)
	}

	lists, err := s.lists.ListProfileLists(ctx, owner.ID)
	if err != nil {
		return nil, err
	}
	shown := make([]model.List, 0, len(lists))
	for _, l := range lists {
		if l.Slug == nil {
			continue
		}
		l.PasswordHash = ""
		shown = append(shown, l)
	}

	return &PublicProfile{
		Username:  *owner.Username,
		Name:      owner.DisplayName(),
		AvatarURL: owner.AvatarURL,
		Lists:     shown,
	}, nil
}

package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/gthanks/internal/auth"
	"github.com/sakif/gthanks/internal/model"
	"github.com/sakif/gthanks/internal/repository"
)

// AuthService turns GitHub identities into gthanks users and session tokens.
// adminLogins are GitHub logins promoted to site admin on sign-in.
//
// GitHub is the only identity provider, so there is no sign-up form and no
// account password. The first GitHub login creates the account.
type AuthService struct {
	users       repository.UserRepository
	tokens      *auth.TokenService
	adminLogins []string
	logger      *slog.Logger
}

func NewAuthService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	adminLogins []string,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:       users,
		tokens:      tokens,
		adminLogins: adminLogins,
		logger:      logger,
	}
}

// AuthResult bundles the user record and the issued JWT so the handler can
// set the cookie and respond in one step.
type AuthResult struct {
	User  *model.User
	Token string
}

// LoginOrRegisterGitHub handles the GitHub OAuth callback.
//
//  1. Upsert the user (create on first login, refresh the profile afterwards)
//  2. Generate a session JWT for the user
//  3. Return both so the handler can set the HttpOnly cookie and redirect
//
// WHY UPSERT (not insert + check conflict)?
// GitHub guarantees the GitHub ID is stable and unique, so we can always
// upsert on github_id. The repository keeps the username and entitlements of
// returning users untouched.
//
// Logins listed in ADMIN_LOGINS are promoted to site admin. Removing a login
// from the list does not demote an existing admin.
func (s *AuthService) LoginOrRegisterGitHub(ctx context.Context, ghUser *auth.GitHubUser) (*AuthResult, error) {
	if ghUser == nil {
		return nil, fmt.Errorf("service/auth: GitHub user must not be nil")
	}

	user := &model.User{
		GitHubID:  ghUser.ID,
		Login:     ghUser.Login,
		Name:      ghUser.Name,
		Email:     strings.ToLower(ghUser.Email),
		AvatarURL: ghUser.AvatarURL,
		IsAdmin:   s.isAdminLogin(ghUser.Login),
	}

	if err := s.users.Upsert(ctx, user); err != nil {
		return nil, fmt.Errorf("service/auth: upserting user (githubID=%d): %w", ghUser.ID, err)
	}

	s.logger.InfoContext(ctx, "user authenticated via GitHub",
		slog.String("userID", user.ID),
		slog.String("login", user.Login),
		slog.Bool("admin", user.IsAdmin),
	)

	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for user %s: %w", user.ID, err)
	}

	return &AuthResult{
		User:  user,
		Token: token,
	}, nil
}

func (s *AuthService) isAdminLogin(login string) bool {
	for _, l := range s.adminLogins {
		if strings.EqualFold(l, login) {
			return true
		}
	}
	return false
}

// GetUserByID returns the user for the given internal ID. Used by GET /api/me.
func (s *AuthService) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	if id == "" {
		return nil, fmt.Errorf("service/auth: user ID must not be empty")
	}

	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/auth: fetching user %s: %w", id, err)
	}

	return user, nil
}

// ValidateToken validates a session JWT and returns the userID it encodes.
func (s *AuthService) ValidateToken(tokenStr string) (string, error) {
	userID, err := s.tokens.Validate(tokenStr)
	if err != nil {
		return "", fmt.Errorf("service/auth: %w", err)
	}
	return userID, nil
}

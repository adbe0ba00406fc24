package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/rs/xid"

	"github.com/sakif/gthanks/internal/apperror"
	"github.com/sakif/gthanks/internal/auth"
	"github.com/sakif/gthanks/internal/service"
)

const (
	stateCookie  = "oauth_state"
	nextCookie   = "oauth_next"
	loginFlowTTL = 600 // seconds a login may take on GitHub's side
)

// AuthHandler serves the GitHub sign-in routes, logout and /api/me.
//
// Sessions live in the auth.SessionCookie cookie; the API also accepts the
// same JWT as a Bearer token (see auth.OptionalAuth).
type AuthHandler struct {
	provider      auth.OAuthProvider
	auth          *service.AuthService
	secureCookies bool
	logger        *slog.Logger
}

func NewAuthHandler(
	provider auth.OAuthProvider,
	authService *service.AuthService,
	secureCookies bool,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		provider:      provider,
		auth:          authService,
		secureCookies: secureCookies,
		logger:        logger,
	}
}

func (h *AuthHandler) setCookie(w http.ResponseWriter, name, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

// HandleGitHubLogin starts a sign-in.
//
// HTTP: GET /auth/github/login?next=/lists/abc
//
// The random state is kept in a cookie and must come back unchanged on the
// callback. An optional local "next" path is remembered the same way so a
// relative who clicked "sign in to reserve" lands back on the list.
func (h *AuthHandler) HandleGitHubLogin(w http.ResponseWriter, r *http.Request) {
	state := xid.New().String()
	h.setCookie(w, stateCookie, state, loginFlowTTL)

	if next := r.URL.Query().Get("next"); isLocalPath(next) {
		h.setCookie(w, nextCookie, next, loginFlowTTL)
	}

	http.Redirect(w, r, h.provider.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleGitHubCallback finishes a sign-in.
//
// HTTP: GET /auth/github/callback?code=xxx&state=yyy
func (h *AuthHandler) HandleGitHubCallback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	cookie, err := r.Cookie(stateCookie)
	if err != nil || cookie.Value == "" || query.Get("state") != cookie.Value {
		h.logger.Warn("oauth callback with missing or mismatched state")
		http.Error(w, "invalid OAuth state", http.StatusBadRequest)
		return
	}
	h.setCookie(w, stateCookie, "", -1)

	next := "/"
	if c, err := r.Cookie(nextCookie); err == nil && isLocalPath(c.Value) {
		next = c.Value
		h.setCookie(w, nextCookie, "", -1)
	}

	if denied := query.Get("error"); denied != "" {
		h.logger.Info("github sign-in denied", slog.String("error", denied))
		http.Redirect(w, r, "/?auth=denied", http.StatusSeeOther)
		return
	}

	code := query.Get("code")
	if code == "" {
		http.Error(w, "missing OAuth code", http.StatusBadRequest)
		return
	}

	ghUser, err := h.provider.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("github code exchange failed", slog.String("error", err.Error()))
		http.Error(w, "authentication failed", http.StatusBadGateway)
		return
	}

	result, err := h.auth.LoginOrRegisterGitHub(r.Context(), ghUser)
	if err != nil {
		h.logger.Error("github sign-in failed",
			slog.Int64("githubID", ghUser.ID),
			slog.String("error", err.Error()),
		)
		http.Error(w, "authentication failed", http.StatusInternalServerError)
		return
	}

	h.setCookie(w, auth.SessionCookie, result.Token, int(auth.SessionTTL.Seconds()))
	http.Redirect(w, r, next, http.StatusSeeOther)
}

// isLocalPath accepts "/lists/abc" but not "//evil.example" or absolute URLs,
// which would turn the login into an open redirect.
func isLocalPath(p string) bool {
	return strings.HasPrefix(p, "/") &&
		!strings.HasPrefix(p, "//") &&
		!strings.HasPrefix(p, "/\\")
}

// HandleLogout drops the session cookie. The JWT itself stays valid until
// it expires.
//
// HTTP: POST /auth/logout
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	h.setCookie(w, auth.SessionCookie, "", -1)
	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// HandleMe returns the signed-in user.
//
// HTTP: GET /api/me
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	userID := requesterID(r)
	if userID == "" {
		writeError(w, apperror.Unauthorized("authentication required"))
		return
	}

	user, err := h.auth.GetUserByID(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/sakif/gthanks/internal/auth"
	"github.com/sakif/gthanks/internal/service"
)

// PublicHandler serves the shareable /{username}/{slug} pages' data.
//
// ACCESS COOKIES:
// Unlocking a password list sets a cookie named after the vanity path,
// e.g. "list_access_alice_christmas". Its value is a list access token
// (see internal/auth), so it only works for that list and only until the
// owner changes the password.
type PublicHandler struct {
	vanity        *service.VanityService
	secureCookies bool
	logger        *slog.Logger
}

func NewPublicHandler(vanity *service.VanityService, secureCookies bool, logger *slog.Logger) *PublicHandler {
	return &PublicHandler{vanity: vanity, secureCookies: secureCookies, logger: logger}
}

// AccessCookieName is the cookie holding the access token for username/slug.
// Usernames and slugs only contain [a-z0-9_-], which are valid cookie-name
// characters.
func AccessCookieName(username, slug string) string {
	return "list_access_" + strings.ToLower(username) + "_" + strings.ToLower(slug)
}

// HandleProfile returns a user's public profile. HTTP: GET /api/public-profile/{username}
func (h *PublicHandler) HandleProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.vanity.GetPublicProfile(r.Context(), urlParam(r, "username"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// HandleList returns a shared list.
//
// HTTP: GET /api/public-profile/{username}/{slug}
//
// Password lists answer 403 with code PASSWORD_REQUIRED until the visitor
// has a valid access cookie.
func (h *PublicHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	username, slug := urlParam(r, "username"), urlParam(r, "slug")

	var token string
	if c, err := r.Cookie(AccessCookieName(username, slug)); err == nil {
		token = c.Value
	}

	list, err := h.vanity.GetPublicList(r.Context(), username, slug, token, requesterID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// HandleUnlock checks a list password and sets the access cookie.
//
// HTTP: POST /api/public-profile/{username}/{slug}/access
// REQUEST BODY: {"password": "hunter2"}
func (h *PublicHandler) HandleUnlock(w http.ResponseWriter, r *http.Request) {
	var req passwordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	username, slug := urlParam(r, "username"), urlParam(r, "slug")

	token, list, err := h.vanity.UnlockList(r.Context(), username, slug, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     AccessCookieName(username, slug),
		Value:    token,
		Path:     "/",
		MaxAge:   int(auth.ListAccessTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, list)
}

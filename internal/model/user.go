// Package model defines the data structures used throughout the application.
package model

import "time"

// User represents a registered account.
//
// GitHub OAuth is the identity provider, so GitHubID is the stable external
// key. Username is the optional vanity handle used in /{username}/{slug}
// URLs; it is nil until set and is always stored lower-case.
type User struct {
	ID               string    `json:"id"`
	GitHubID         int64     `json:"githubId"`
	Login            string    `json:"login"`
	Name             string    `json:"name"`
	Email            string    `json:"email"`
	AvatarURL        string    `json:"avatarUrl"`
	Username         *string   `json:"username"`
	CanUseVanityURLs bool      `json:"canUseVanityUrls"`
	IsAdmin          bool      `json:"isAdmin"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// DisplayName returns the best human-readable name for the user.
func (u *User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.Login
}

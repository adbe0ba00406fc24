// Package auth provides JWT session tokens, list access tokens, password
// hashing and the GitHub OAuth provider.
//
// Two kinds of token are signed with the same HS256 secret:
//
//	session      sub=userID   aud=session      7 days, cookie or Bearer header
//	list-access  sub=listID   aud=list-access  24 hours, one cookie per list
//
// LIST ACCESS TOKENS:
// Password-protected lists are unlocked per visitor, not per account. After
// a correct password the server sets a second cookie holding a token scoped
// to that list. The token also carries a fingerprint of the list's current
// password hash, so changing the password invalidates every cookie issued
// for the old one without any server-side bookkeeping.
//
// The audience claim keeps the two token kinds apart: a list access token is
// never accepted as a session and vice versa.
package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	issuer = "gthanks"

	audienceSession    = "session"
	audienceListAccess = "list-access"

	// SessionTTL is how long a login lasts before GitHub has to be visited again.
	SessionTTL = 7 * 24 * time.Hour
	// ListAccessTTL is how long an unlocked password list stays unlocked.
	ListAccessTTL = 24 * time.Hour
)

// ErrTokenExpired is returned by the Validate methods for expired tokens.
var ErrTokenExpired = errors.New("auth: token expired")

// TokenService signs and checks both token kinds. Rotating the secret signs
// everybody out and relocks every password list.
type TokenService struct {
	secret []byte
}

// NewTokenService rejects secrets shorter than 16 characters. Production
// deployments use JWT_SECRET=$(openssl rand -hex 32).
func NewTokenService(secret string) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	return &TokenService{secret: []byte(secret)}, nil
}

// claims adds the password fingerprint ("pwf") to the registered claims.
// Session tokens leave it empty.
type claims struct {
	jwt.RegisteredClaims
	PasswordFingerprint string `json:"pwf,omitempty"`
}

// Generate creates and signs a session token for the given userID, valid for SessionTTL.
func (s *TokenService) Generate(userID string) (string, error) {
	return s.GenerateWithDuration(userID, SessionTTL)
}

// GenerateWithDuration creates a session token with a custom expiry duration.
// Used in tests to mint already-expired tokens.
func (s *TokenService) GenerateWithDuration(userID string, d time.Duration) (string, error) {
	return s.sign(userID, audienceSession, "", d)
}

// Validate returns the user ID of a valid session token. Signature, expiry,
// issuer, audience and the HS256 algorithm are all checked by parse.
func (s *TokenService) Validate(tokenStr string) (string, error) {
	c, err := s.parse(tokenStr, audienceSession)
	if err != nil {
		return "", err
	}
	return c.Subject, nil
}

// GenerateListAccess issues a token that unlocks listID for as long as the
// list keeps the password whose hash is passwordHash.
func (s *TokenService) GenerateListAccess(listID, passwordHash string) (string, error) {
	return s.sign(listID, audienceListAccess, PasswordFingerprint(passwordHash), ListAccessTTL)
}

// ValidateListAccess reports whether tokenStr unlocks listID given the list's
// current password hash.
func (s *TokenService) ValidateListAccess(tokenStr, listID, passwordHash string) error {
	c, err := s.parse(tokenStr, audienceListAccess)
	if err != nil {
		return err
	}
	if c.Subject != listID {
		return errors.New("auth: access token is for another list")
	}
	if c.PasswordFingerprint != PasswordFingerprint(passwordHash) {
		return errors.New("auth: list password has changed")
	}
	return nil
}

// PasswordFingerprint is a short digest of a password hash. It identifies
// which password a token was issued for without revealing the hash itself.
func PasswordFingerprint(passwordHash string) string {
	sum := sha256.Sum256([]byte(passwordHash))
	return hex.EncodeToString(sum[:8])
}

func (s *TokenService) sign(subject, audience, fingerprint string, d time.Duration) (string, error) {
	now := time.Now()

	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Audience:  jwt.ClaimStrings{audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(d)),
			Issuer:    issuer,
		},
		PasswordFingerprint: fingerprint,
	}

	// jwt.NewWithClaims creates an unsigned token with the given algorithm.
	// SignedString(key) signs it and returns the complete JWT string.
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}
	return signed, nil
}

// parse verifies signature, issuer, audience and expiry.
//
// ALGORITHM CONFUSION ATTACK:
// Without checking the algorithm, an attacker could send a token signed with
// "none" and the library might accept it. Passing jwt.WithValidMethods prevents this.
func (s *TokenService) parse(tokenStr, audience string) (*claims, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(issuer),
		jwt.WithAudience(audience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("auth: invalid token: %w", err)
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return nil, errors.New("auth: invalid token claims")
	}
	if c.Subject == "" {
		return nil, errors.New("auth: token has no subject")
	}
	return c, nil
}

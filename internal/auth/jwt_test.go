package auth

import (
	"errors"
	"strings"
	"testing"
	"time"
)

// newTestTokenService creates a TokenService for testing.
// It uses a fixed, known secret so tests are deterministic.
func newTestTokenService(t *testing.T) *TokenService {
	t.Helper()
	ts, err := NewTokenService("test-secret-at-least-16-chars!!")
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	return ts
}

func TestNewTokenService_SecretLength(t *testing.T) {
	if _, err := NewTokenService("short"); err == nil {
		t.Error("NewTokenService() accepted a secret shorter than 16 chars")
	}
	if _, err := NewTokenService("this-is-16-chars"); err != nil {
		t.Errorf("NewTokenService() error = %v for a 16 char secret", err)
	}
}

// =========================================================================
// SESSION TOKEN TESTS
// =========================================================================

func TestSession_RoundTrip(t *testing.T) {
	ts := newTestTokenService(t)

	alice, err := ts.Generate("user-alice")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	bob, _ := ts.Generate("user-bob")
	if alice == bob {
		t.Error("two users got the same session token")
	}
	if strings.Count(alice, ".") != 2 {
		t.Errorf("session token %q is not a compact JWT", alice)
	}

	got, err := ts.Validate(alice)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if got != "user-alice" {
		t.Errorf("Validate() = %q, want user-alice", got)
	}

	long, _ := ts.GenerateWithDuration("user-alice", time.Hour)
	if got, err := ts.Validate(long); err != nil || got != "user-alice" {
		t.Errorf("Validate(1h token) = %q, %v", got, err)
	}
}

func TestSession_Expired(t *testing.T) {
	ts := newTestTokenService(t)

	token, err := ts.GenerateWithDuration("user-alice", -time.Second)
	if err != nil {
		t.Fatalf("GenerateWithDuration() error = %v", err)
	}
	if _, err := ts.Validate(token); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("Validate() error = %v, want ErrTokenExpired", err)
	}
}

func TestSession_Rejections(t *testing.T) {
	ts := newTestTokenService(t)
	good, _ := ts.Generate("user-alice")

	other, _ := NewTokenService("another-secret-32-chars-long!!!!")
	foreign, _ := other.Generate("user-alice")

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "not.a.jwt.token"},
		{"tampered signature", good[:len(good)-3] + "xxx"},
		{"signed with another secret", foreign},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ts.Validate(tt.token); err == nil {
				t.Error("Validate() accepted the token")
			}
		})
	}
}

// =========================================================================
// LIST ACCESS TOKEN TESTS
// =========================================================================

func TestListAccess_RoundTrip(t *testing.T) {
	ts := newTestTokenService(t)

	token, err := ts.GenerateListAccess("list-1", "$2a$10$hashA")
	if err != nil {
		t.Fatalf("GenerateListAccess() error = %v", err)
	}
	if err := ts.ValidateListAccess(token, "list-1", "$2a$10$hashA"); err != nil {
		t.Errorf("ValidateListAccess() error = %v", err)
	}
}

func TestListAccess_Rejections(t *testing.T) {
	ts := newTestTokenService(t)
	token, _ := ts.GenerateListAccess("list-1", "$2a$10$hashA")

	tests := []struct {
		name   string
		listID string
		hash   string
	}{
		{"other list", "list-2", "$2a$10$hashA"},
		{"password changed", "list-1", "$2a$10$hashB"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ts.ValidateListAccess(token, tt.listID, tt.hash); err == nil {
				t.Error("ValidateListAccess() should fail")
			}
		})
	}
}

// A list access token must never work as a login session, and a session must
// never unlock a list.
func TestAudienceSeparation(t *testing.T) {
	ts := newTestTokenService(t)

	access, _ := ts.GenerateListAccess("list-1", "hash")
	if _, err := ts.Validate(access); err == nil {
		t.Error("Validate() accepted a list access token as a session")
	}

	session, _ := ts.Generate("list-1")
	if err := ts.ValidateListAccess(session, "list-1", "hash"); err == nil {
		t.Error("ValidateListAccess() accepted a session token")
	}
}

func TestPasswordFingerprint(t *testing.T) {
	a := PasswordFingerprint("hash-a")
	if len(a) != 16 {
		t.Errorf("fingerprint length = %d, want 16", len(a))
	}
	if a != PasswordFingerprint("hash-a") {
		t.Error("fingerprint is not deterministic")
	}
	if a == PasswordFingerprint("hash-b") {
		t.Error("different hashes share a fingerprint")
	}
}

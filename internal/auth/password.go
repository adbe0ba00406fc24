package auth

// LIST PASSWORDS:
// Accounts never have passwords; GitHub is the identity provider. The only
// secret gthanks stores is the password an owner puts on a list so family
// members without an account can open it from the vanity URL.
//
// WHY BCRYPT FOR A SHARED FAMILY PASSWORD?
// These passwords are short and often reused ("grandma2026"), which is exactly
// what fast hashes fail at. bcrypt salts each hash, embeds salt and cost in
// the output, and is slow on purpose:
//
//	$2a$12$<22-char salt><31-char hash>
//	    ^^ cost: 2^12 rounds
//
// The hash also feeds PasswordFingerprint, so changing a list password
// invalidates every list-access cookie issued for the old one.

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const (
	// defaultCost keeps one hash around a quarter of a second on server
	// hardware. Unlock attempts are rate limited on top of that.
	defaultCost = 12

	// MinListPasswordLen and MaxListPasswordBytes bound list passwords.
	// bcrypt ignores everything after 72 bytes, so longer input is refused
	// instead of being silently truncated.
	MinListPasswordLen   = 4
	MaxListPasswordBytes = 72
)

var (
	// ErrInvalidPassword is returned by Verify when the password does not match.
	ErrInvalidPassword = errors.New("auth: invalid password")

	ErrPasswordTooShort = fmt.Errorf("auth: list password must be at least %d characters", MinListPasswordLen)
	ErrPasswordTooLong  = fmt.Errorf("auth: list password must be at most %d bytes", MaxListPasswordBytes)
)

// PasswordService hashes and checks list passwords.
//
// The cost is a field so tests can use bcrypt's minimum and stay fast.
type PasswordService struct {
	cost int
}

func NewPasswordService() *PasswordService {
	return &PasswordService{cost: defaultCost}
}

// NewPasswordServiceForTest uses the given bcrypt cost (4 is the minimum).
// Never use it outside tests.
func NewPasswordServiceForTest(cost int) *PasswordService {
	return &PasswordService{cost: cost}
}

// CheckListPassword applies the length rules without hashing. Length is
// counted in runes for the minimum and bytes for the bcrypt maximum.
func CheckListPassword(plaintext string) error {
	if len([]rune(plaintext)) < MinListPasswordLen {
		return ErrPasswordTooShort
	}
	if len(plaintext) > MaxListPasswordBytes {
		return ErrPasswordTooLong
	}
	return nil
}

// Hash validates plaintext and returns its bcrypt hash, ready to be stored
// in lists.password_hash.
func (p *PasswordService) Hash(plaintext string) (string, error) {
	if err := CheckListPassword(plaintext); err != nil {
		return "", err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), p.cost)
	if err != nil {
		return "", fmt.Errorf("auth: hashing list password: %w", err)
	}
	return string(hashed), nil
}

// Verify reports ErrInvalidPassword on a mismatch and a wrapped error when
// the stored hash itself is unusable. bcrypt compares in constant time.
func (p *PasswordService) Verify(hash, plaintext string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrInvalidPassword
		}
		return fmt.Errorf("auth: comparing list password hash: %w", err)
	}
	return nil
}

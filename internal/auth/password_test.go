package auth

import (
	"errors"
	"strings"
	"testing"
)

// newTestPasswordService uses bcrypt's minimum cost so each hash takes
// microseconds instead of a quarter second.
func newTestPasswordService() *PasswordService {
	return NewPasswordServiceForTest(4)
}

func TestCheckListPassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  error
	}{
		{"minimum length", "abcd", nil},
		{"too short", "abc", ErrPasswordTooShort},
		{"empty", "", ErrPasswordTooShort},
		{"four runes of multibyte text", "ünïç", nil},
		{"exactly 72 bytes", strings.Repeat("a", 72), nil},
		{"73 bytes", strings.Repeat("a", 73), ErrPasswordTooLong},
		// 25 three-byte runes: short in characters, too long for bcrypt.
		{"multibyte over 72 bytes", strings.Repeat("密", 25), ErrPasswordTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckListPassword(tt.password)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("CheckListPassword(%q) = %v, want %v", tt.password, err, tt.wantErr)
			}
		})
	}
}

func TestHash_RejectsInvalidPasswords(t *testing.T) {
	ps := newTestPasswordService()

	if _, err := ps.Hash("abc"); !errors.Is(err, ErrPasswordTooShort) {
		t.Errorf("Hash(short) error = %v, want ErrPasswordTooShort", err)
	}
	if _, err := ps.Hash(strings.Repeat("x", 80)); !errors.Is(err, ErrPasswordTooLong) {
		t.Errorf("Hash(long) error = %v, want ErrPasswordTooLong", err)
	}
}

func TestHash_SaltsEveryHash(t *testing.T) {
	ps := newTestPasswordService()

	hash1, err := ps.Hash("grandma2026")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	hash2, _ := ps.Hash("grandma2026")

	if !strings.HasPrefix(hash1, "$2") {
		t.Errorf("Hash() does not look like bcrypt: %q", hash1)
	}
	if hash1 == hash2 {
		t.Error("two hashes of the same password are identical; salt must be random")
	}
}

func TestVerify(t *testing.T) {
	ps := newTestPasswordService()
	hash, err := ps.Hash("birthday-surprise")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}

	tests := []struct {
		name      string
		hash      string
		password  string
		wantErr   bool
		wantWrong bool
	}{
		{"correct", hash, "birthday-surprise", false, false},
		{"wrong", hash, "birthday-surprisE", true, true},
		{"empty", hash, "", true, true},
		{"garbage hash", "not-a-bcrypt-hash", "birthday-surprise", true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ps.Verify(tt.hash, tt.password)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Verify() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got := errors.Is(err, ErrInvalidPassword); got != tt.wantWrong {
				t.Errorf("errors.Is(err, ErrInvalidPassword) = %v, want %v", got, tt.wantWrong)
			}
		})
	}
}

package apperror

import (
	"errors"
	"fmt"
	"testing"
)

// Every constructor must stay matchable through its sentinel, also after the
// service layer wraps it with fmt.Errorf.
func TestConstructorsWrapSentinels(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		target error
		other  error
	}{
		{"not found", NotFound("wish", "w1"), ErrNotFound, ErrValidation},
		{"validation", ValidationFailed("reserverEmail", "invalid email"), ErrValidation, ErrNotFound},
		{"conflict", Conflict("reservation", "w1"), ErrConflict, ErrForbidden},
		{"conflict message", ConflictMessage("username is taken"), ErrConflict, ErrNotFound},
		{"forbidden", Forbidden("only the owner can share this list"), ErrForbidden, ErrUnauthorized},
		{"password required is forbidden", PasswordRequired("l1"), ErrForbidden, ErrNotFound},
		{"unauthorized", Unauthorized("sign in first"), ErrUnauthorized, ErrForbidden},
		{"too many requests", TooManyRequests("slow down"), ErrTooManyRequests, ErrConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("service: %w", tt.err)
			if !errors.Is(tt.err, tt.target) || !errors.Is(wrapped, tt.target) {
				t.Errorf("%v does not match %v", tt.err, tt.target)
			}
			if errors.Is(tt.err, tt.other) {
				t.Errorf("%v unexpectedly matches %v", tt.err, tt.other)
			}
		})
	}
}

func TestMessages(t *testing.T) {
	tests := []struct {
		err  *AppError
		want string
	}{
		{NotFound("list", "l9"), "list not found with id l9"},
		{Conflict("reservation", "w3"), "reservation conflict with id w3"},
		{ValidationFailed("slug", "slug must be lowercase"), "slug must be lowercase"},
	}

	for _, tt := range tests {
		if got := tt.err.Error(); got != tt.want {
			t.Errorf("Error() = %q, want %q", got, tt.want)
		}
	}
}

func TestValidationFailedKeepsField(t *testing.T) {
	err := ValidationFailed("reserverEmail", "invalid email")
	if err.Field != "reserverEmail" {
		t.Errorf("Field = %q, want reserverEmail", err.Field)
	}
	if err.Unwrap() != ErrValidation {
		t.Errorf("Unwrap() = %v, want ErrValidation", err.Unwrap())
	}
}

func TestCodeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"not found", NotFound("list", "l1"), CodeNotFound},
		{"validation", ValidationFailed("email", "bad"), CodeValidation},
		{"conflict", ConflictMessage("username taken"), CodeConflict},
		{"forbidden", Forbidden("nope"), CodeForbidden},
		{"explicit code wins", PasswordRequired("l1"), CodePasswordRequired},
		{"rate limited", TooManyRequests("slow"), CodeRateLimited},
		{"unauthorized", Unauthorized("login"), CodeUnauthorized},
		{"wrapped", fmt.Errorf("service: %w", NotFound("wish", "w1")), CodeNotFound},
		{"unknown", errors.New("boom"), CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CodeOf(tt.err); got != tt.want {
				t.Errorf("CodeOf(%v) = %q, want %q", tt.err, got, tt.want)
			}
		})
	}
}

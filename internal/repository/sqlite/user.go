package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/rs/xid"
	"github.com/sakif/gthanks/internal/apperror"
	"github.com/sakif/gthanks/internal/model"
	"github.com/sakif/gthanks/internal/repository"
)

// compile-time check that *DB implements repository.UserRepository
var _ repository.UserRepository = (*DB)(nil)

const userColumns = `id, github_id, login, name, email, avatar_url, username,
	can_use_vanity_urls, is_admin, created_at, updated_at`

func scanUser(s scanner) (*model.User, error) {
	var u model.User
	err := s.Scan(
		&u.ID,
		&u.GitHubID,
		&u.Login,
		&u.Name,
		&u.Email,
		&u.AvatarURL,
		&u.Username,
		&u.CanUseVanityURLs,
		&u.IsAdmin,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Create inserts a new user. The ID and timestamps are filled in.
func (db *DB) Create(ctx context.Context, user *model.User) error {
	t := now()
	user.ID = xid.New().String()
	user.CreatedAt = t
	user.UpdatedAt = t

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO users (id, github_id, login, name, email, avatar_url, username,
			can_use_vanity_urls, is_admin, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.GitHubID,
		user.Login,
		user.Name,
		user.Email,
		user.AvatarURL,
		user.Username,
		user.CanUseVanityURLs,
		user.IsAdmin,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.ConflictMessage("user already exists")
		}
		return fmt.Errorf("sqlite: inserting user (githubID=%d): %w", user.GitHubID, err)
	}
	return nil
}

// Upsert inserts or updates a user based on their GitHub ID.
//
// Existing users keep their internal ID, username and entitlements; only the
// GitHub profile fields are refreshed. The admin flag is only ever raised here
// (from the ADMIN_LOGINS config), never lowered.
func (db *DB) Upsert(ctx context.Context, user *model.User) error {
	existing, err := scanUser(db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE github_id = ?`, user.GitHubID,
	))
	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("sqlite: looking up user by github_id %d: %w", user.GitHubID, err)
	}

	if existing == nil {
		return db.Create(ctx, user)
	}

	existing.Login = user.Login
	existing.Name = user.Name
	existing.Email = user.Email
	existing.AvatarURL = user.AvatarURL
	existing.IsAdmin = existing.IsAdmin || user.IsAdmin
	existing.UpdatedAt = now()

	_, err = db.conn.ExecContext(ctx,
		`UPDATE users SET login = ?, name = ?, email = ?, avatar_url = ?, is_admin = ?, updated_at = ?
		 WHERE id = ?`,
		existing.Login,
		existing.Name,
		existing.Email,
		existing.AvatarURL,
		existing.IsAdmin,
		existing.UpdatedAt,
		existing.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating user %s: %w", existing.ID, err)
	}

	*user = *existing
	return nil
}

// GetUserByID retrieves a user by their internal ID.
// Returns apperror.ErrNotFound if no user exists with that ID.
func (db *DB) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	u, err := scanUser(db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id,
	))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", id)
		}
		return nil, fmt.Errorf("sqlite: getting user %s: %w", id, err)
	}
	return u, nil
}

// GetUserByUsername looks a user up by vanity handle, ignoring case.
func (db *DB) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	u, err := scanUser(db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = ? COLLATE NOCASE`,
		strings.ToLower(username),
	))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", username)
		}
		return nil, fmt.Errorf("sqlite: getting user by username %s: %w", username, err)
	}
	return u, nil
}

// SetUsername writes the username column; nil clears it.
// The UNIQUE COLLATE NOCASE index is the final word on uniqueness.
func (db *DB) SetUsername(ctx context.Context, userID string, username *string) error {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE users SET username = ?, updated_at = ? WHERE id = ?`,
		username, now(), userID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.ConflictMessage("username is already taken")
		}
		return fmt.Errorf("sqlite: setting username for user %s: %w", userID, err)
	}
	return requireAffected(result, "user", userID)
}

// SetVanityAccess grants or revokes the vanity URL entitlement.
func (db *DB) SetVanityAccess(ctx context.Context, userID string, allowed bool) error {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE users SET can_use_vanity_urls = ?, updated_at = ? WHERE id = ?`,
		allowed, now(), userID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: setting vanity access for user %s: %w", userID, err)
	}
	return requireAffected(result, "user", userID)
}

// requireAffected turns "0 rows affected" into a NotFound error.
func requireAffected(result sql.Result, resource, id string) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound(resource, id)
	}
	return nil
}

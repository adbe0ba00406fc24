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

var _ repository.ListRepository = (*DB)(nil)

const listColumns = `l.id, l.owner_id, l.name, l.description, l.visibility, l.password_hash,
	l.slug, l.hide_from_profile, l.created_at, l.updated_at`

func scanList(s scanner) (*model.List, error) {
	var l model.List
	err := s.Scan(
		&l.ID,
		&l.OwnerID,
		&l.Name,
		&l.Description,
		&l.Visibility,
		&l.PasswordHash,
		&l.Slug,
		&l.HideFromProfile,
		&l.CreatedAt,
		&l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func collectLists(rows *sql.Rows) ([]model.List, error) {
	defer rows.Close()

	lists := make([]model.List, 0)
	for rows.Next() {
		l, err := scanList(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning list row: %w", err)
		}
		lists = append(lists, *l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating lists: %w", err)
	}
	return lists, nil
}

// CreateList inserts a new list, filling in its ID and timestamps.
func (db *DB) CreateList(ctx context.Context, list *model.List) error {
	t := now()
	list.ID = xid.New().String()
	list.CreatedAt = t
	list.UpdatedAt = t

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO lists (id, owner_id, name, description, visibility, password_hash,
			slug, hide_from_profile, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		list.ID,
		list.OwnerID,
		list.Name,
		list.Description,
		string(list.Visibility),
		list.PasswordHash,
		list.Slug,
		list.HideFromProfile,
		list.CreatedAt,
		list.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.ConflictMessage("you already have a list with this slug")
		}
		return fmt.Errorf("sqlite: creating list: %w", err)
	}
	return nil
}

// GetList retrieves a list by ID. Returns apperror.ErrNotFound if missing.
func (db *DB) GetList(ctx context.Context, id string) (*model.List, error) {
	l, err := scanList(db.conn.QueryRowContext(ctx,
		`SELECT `+listColumns+` FROM lists l WHERE l.id = ?`, id,
	))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("list", id)
		}
		return nil, fmt.Errorf("sqlite: getting list %s: %w", id, err)
	}
	return l, nil
}

func (db *DB) ListListsByOwner(ctx context.Context, ownerID string) ([]model.List, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+listColumns+` FROM lists l WHERE l.owner_id = ? ORDER BY l.created_at DESC`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing lists for owner %s: %w", ownerID, err)
	}
	return collectLists(rows)
}

// ListListsByAdmin returns the lists the user co-administers.
func (db *DB) ListListsByAdmin(ctx context.Context, userID string) ([]model.List, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+listColumns+`
		 FROM lists l
		 JOIN list_admins la ON la.list_id = l.id
		 WHERE la.user_id = ?
		 ORDER BY l.created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing admin lists for user %s: %w", userID, err)
	}
	return collectLists(rows)
}

func (db *DB) ListListsContainingWish(ctx context.Context, wishID string) ([]model.List, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+listColumns+`
		 FROM lists l
		 JOIN list_wishes lw ON lw.list_id = l.id
		 WHERE lw.wish_id = ?`,
		wishID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing lists containing wish %s: %w", wishID, err)
	}
	return collectLists(rows)
}

// UpdateList writes name, description, visibility, password hash and the
// profile flag. The slug has its own method because of its uniqueness rule.
func (db *DB) UpdateList(ctx context.Context, list *model.List) error {
	list.UpdatedAt = now()

	result, err := db.conn.ExecContext(ctx,
		`UPDATE lists
		 SET name = ?, description = ?, visibility = ?, password_hash = ?,
		     hide_from_profile = ?, updated_at = ?
		 WHERE id = ?`,
		list.Name,
		list.Description,
		string(list.Visibility),
		list.PasswordHash,
		list.HideFromProfile,
		list.UpdatedAt,
		list.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating list %s: %w", list.ID, err)
	}
	return requireAffected(result, "list", list.ID)
}

func (db *DB) DeleteList(ctx context.Context, id string) error {
	result, err := db.conn.ExecContext(ctx, `DELETE FROM lists WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting list %s: %w", id, err)
	}
	return requireAffected(result, "list", id)
}

// SetSlug relies on UNIQUE(owner_id, slug): two owners may share a slug, one
// owner may not reuse it.
func (db *DB) SetSlug(ctx context.Context, listID string, slug *string) error {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE lists SET slug = ?, updated_at = ? WHERE id = ?`,
		slug, now(), listID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.ConflictMessage("you already have a list with this slug")
		}
		return fmt.Errorf("sqlite: setting slug for list %s: %w", listID, err)
	}
	return requireAffected(result, "list", listID)
}

// GetListByVanity resolves /{username}/{slug}. Private and hidden lists are
// never returned; both parts of the path are matched without regard to case.
func (db *DB) GetListByVanity(ctx context.Context, username, slug string) (*model.List, error) {
	l, err := scanList(db.conn.QueryRowContext(ctx,
		`SELECT `+listColumns+`
		 FROM lists l
		 JOIN users u ON u.id = l.owner_id
		 WHERE u.username = ? COLLATE NOCASE
		   AND l.slug = ? COLLATE NOCASE
		   AND l.visibility != 'private'
		   AND l.hide_from_profile = 0`,
		strings.ToLower(username), strings.ToLower(slug),
	))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("list", username+"/"+slug)
		}
		return nil, fmt.Errorf("sqlite: resolving vanity url %s/%s: %w", username, slug, err)
	}
	return l, nil
}

// ListProfileLists returns the lists shown on an owner's public profile.
func (db *DB) ListProfileLists(ctx context.Context, ownerID string) ([]model.List, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+listColumns+`
		 FROM lists l
		 WHERE l.owner_id = ?
		   AND l.visibility != 'private'
		   AND l.hide_from_profile = 0
		 ORDER BY l.created_at DESC`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing profile lists for %s: %w", ownerID, err)
	}
	return collectLists(rows)
}

// AddAdmin makes userID a co-admin of listID. Adding an existing co-admin is a no-op.
func (db *DB) AddAdmin(ctx context.Context, listID, userID string) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO list_admins (list_id, user_id, added_at) VALUES (?, ?, ?)
		 ON CONFLICT (list_id, user_id) DO NOTHING`,
		listID, userID, now(),
	)
	if err != nil {
		return fmt.Errorf("sqlite: adding admin %s to list %s: %w", userID, listID, err)
	}
	return nil
}

func (db *DB) RemoveAdmin(ctx context.Context, listID, userID string) error {
	result, err := db.conn.ExecContext(ctx,
		`DELETE FROM list_admins WHERE list_id = ? AND user_id = ?`, listID, userID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: removing admin %s from list %s: %w", userID, listID, err)
	}
	return requireAffected(result, "list admin", userID)
}

func (db *DB) ListAdmins(ctx context.Context, listID string) ([]model.ListAdmin, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT list_id, user_id, added_at FROM list_admins WHERE list_id = ? ORDER BY added_at ASC`,
		listID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing admins for list %s: %w", listID, err)
	}
	defer rows.Close()

	admins := make([]model.ListAdmin, 0)
	for rows.Next() {
		var a model.ListAdmin
		if err := rows.Scan(&a.ListID, &a.UserID, &a.AddedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning list admin row: %w", err)
		}
		admins = append(admins, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating list admins: %w", err)
	}
	return admins, nil
}

func (db *DB) IsListAdmin(ctx context.Context, listID, userID string) (bool, error) {
	var count int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM list_admins WHERE list_id = ? AND user_id = ?`, listID, userID,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("sqlite: checking admin %s on list %s: %w", userID, listID, err)
	}
	return count > 0, nil
}

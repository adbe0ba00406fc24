package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/xid"
	"github.com/sakif/gthanks/internal/apperror"
	"github.com/sakif/gthanks/internal/model"
	"github.com/sakif/gthanks/internal/repository"
)

var _ repository.WishRepository = (*DB)(nil)

const wishColumns = `w.id, w.owner_id, w.title, w.url, w.price, w.currency, w.wish_level,
	w.image_url, w.quantity, w.notes, w.created_at, w.updated_at`

func scanWish(s scanner) (*model.Wish, error) {
	var w model.Wish
	err := s.Scan(
		&w.ID,
		&w.OwnerID,
		&w.Title,
		&w.URL,
		&w.Price,
		&w.Currency,
		&w.WishLevel,
		&w.ImageURL,
		&w.Quantity,
		&w.Notes,
		&w.CreatedAt,
		&w.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func collectWishes(rows *sql.Rows) ([]model.Wish, error) {
	defer rows.Close()

	wishes := make([]model.Wish, 0)
	for rows.Next() {
		w, err := scanWish(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning wish row: %w", err)
		}
		wishes = append(wishes, *w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating wishes: %w", err)
	}
	return wishes, nil
}

// CreateWish inserts a new wish, filling in its ID and timestamps.
func (db *DB) CreateWish(ctx context.Context, wish *model.Wish) error {
	t := now()
	wish.ID = xid.New().String()
	wish.CreatedAt = t
	wish.UpdatedAt = t

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO wishes (id, owner_id, title, url, price, currency, wish_level,
			image_url, quantity, notes, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		wish.ID,
		wish.OwnerID,
		wish.Title,
		wish.URL,
		wish.Price,
		wish.Currency,
		wish.WishLevel,
		wish.ImageURL,
		wish.Quantity,
		wish.Notes,
		wish.CreatedAt,
		wish.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating wish: %w", err)
	}
	return nil
}

// GetWish retrieves a wish by ID. Returns apperror.ErrNotFound if missing.
func (db *DB) GetWish(ctx context.Context, id string) (*model.Wish, error) {
	w, err := scanWish(db.conn.QueryRowContext(ctx,
		`SELECT `+wishColumns+` FROM wishes w WHERE w.id = ?`, id,
	))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("wish", id)
		}
		return nil, fmt.Errorf("sqlite: getting wish %s: %w", id, err)
	}
	return w, nil
}

// ListWishesByOwner returns the owner's wishes, most wanted first, newest next.
func (db *DB) ListWishesByOwner(ctx context.Context, ownerID string, opts repository.ListOptions) ([]model.Wish, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}

	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+wishColumns+`
		 FROM wishes w
		 WHERE w.owner_id = ?
		 ORDER BY w.wish_level DESC, w.created_at DESC
		 LIMIT ? OFFSET ?`,
		ownerID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing wishes for owner %s: %w", ownerID, err)
	}
	return collectWishes(rows)
}

// ListWishesByList returns the wishes on a list in the order they were added.
func (db *DB) ListWishesByList(ctx context.Context, listID string) ([]model.Wish, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+wishColumns+`
		 FROM wishes w
		 JOIN list_wishes lw ON lw.wish_id = w.id
		 WHERE lw.list_id = ?
		 ORDER BY w.wish_level DESC, lw.added_at ASC`,
		listID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing wishes for list %s: %w", listID, err)
	}
	return collectWishes(rows)
}

// UpdateWish writes every mutable wish field.
func (db *DB) UpdateWish(ctx context.Context, wish *model.Wish) error {
	wish.UpdatedAt = now()

	result, err := db.conn.ExecContext(ctx,
		`UPDATE wishes
		 SET title = ?, url = ?, price = ?, currency = ?, wish_level = ?,
		     image_url = ?, quantity = ?, notes = ?, updated_at = ?
		 WHERE id = ?`,
		wish.Title,
		wish.URL,
		wish.Price,
		wish.Currency,
		wish.WishLevel,
		wish.ImageURL,
		wish.Quantity,
		wish.Notes,
		wish.UpdatedAt,
		wish.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating wish %s: %w", wish.ID, err)
	}
	return requireAffected(result, "wish", wish.ID)
}

// DeleteWish removes a wish. ON DELETE CASCADE takes the reservation and the
// list_wishes rows with it.
func (db *DB) DeleteWish(ctx context.Context, id string) error {
	result, err := db.conn.ExecContext(ctx, `DELETE FROM wishes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting wish %s: %w", id, err)
	}
	return requireAffected(result, "wish", id)
}

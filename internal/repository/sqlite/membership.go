package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sakif/gthanks/internal/repository"
)

var _ repository.MembershipRepository = (*DB)(nil)

func (db *DB) ListIDsForWish(ctx context.Context, wishID string) ([]string, error) {
	return listIDsForWish(ctx, db.conn, wishID)
}

// queryer is the part of *sql.DB and *sql.Tx the membership helpers need.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func listIDsForWish(ctx context.Context, q queryer, wishID string) ([]string, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT list_id FROM list_wishes WHERE wish_id = ? ORDER BY added_at ASC`, wishID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing memberships for wish %s: %w", wishID, err)
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("sqlite: scanning membership row: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating memberships: %w", err)
	}
	return ids, nil
}

// ReplaceWishMemberships diffs the current list set against listIDs and
// applies only the difference, all inside one transaction. Lists that stay
// keep their original added_at.
func (db *DB) ReplaceWishMemberships(ctx context.Context, wishID string, listIDs []string) (added, removed int, err error) {
	err = db.withTx(ctx, func(tx *sql.Tx) error {
		current, err := listIDsForWish(ctx, tx, wishID)
		if err != nil {
			return err
		}

		want := make(map[string]bool, len(listIDs))
		for _, id := range listIDs {
			want[id] = true
		}
		have := make(map[string]bool, len(current))
		for _, id := range current {
			have[id] = true
		}

		for _, id := range current {
			if want[id] {
				continue
			}
			if _, err := tx.ExecContext(ctx,
				`DELETE FROM list_wishes WHERE list_id = ? AND wish_id = ?`, id, wishID,
			); err != nil {
				return fmt.Errorf("sqlite: removing wish %s from list %s: %w", wishID, id, err)
			}
			removed++
		}

		t := now()
		for id := range want {
			if have[id] {
				continue
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO list_wishes (list_id, wish_id, added_at) VALUES (?, ?, ?)`, id, wishID, t,
			); err != nil {
				return fmt.Errorf("sqlite: adding wish %s to list %s: %w", wishID, id, err)
			}
			added++
		}
		return nil
	})
	if err != nil {
		return 0, 0, err
	}
	return added, removed, nil
}

// AddWishesToList adds every wish not already on the list and returns how
// many rows were inserted.
func (db *DB) AddWishesToList(ctx context.Context, listID string, wishIDs []string) (int, error) {
	var added int
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		t := now()
		for _, wishID := range wishIDs {
			result, err := tx.ExecContext(ctx,
				`INSERT INTO list_wishes (list_id, wish_id, added_at) VALUES (?, ?, ?)
				 ON CONFLICT (list_id, wish_id) DO NOTHING`,
				listID, wishID, t,
			)
			if err != nil {
				return fmt.Errorf("sqlite: adding wish %s to list %s: %w", wishID, listID, err)
			}
			n, err := result.RowsAffected()
			if err != nil {
				return fmt.Errorf("sqlite: checking rows affected: %w", err)
			}
			added += int(n)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return added, nil
}

// RemoveWishesFromList deletes the given memberships and returns how many
// existed. Wishes that were not on the list are ignored.
func (db *DB) RemoveWishesFromList(ctx context.Context, listID string, wishIDs []string) (int, error) {
	if len(wishIDs) == 0 {
		return 0, nil
	}

	args := append([]any{listID}, stringArgs(wishIDs)...)
	result, err := db.conn.ExecContext(ctx,
		`DELETE FROM list_wishes WHERE list_id = ? AND wish_id IN (`+placeholders(len(wishIDs))+`)`,
		args...,
	)
	if err != nil {
		return 0, fmt.Errorf("sqlite: removing wishes from list %s: %w", listID, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	return int(n), nil
}

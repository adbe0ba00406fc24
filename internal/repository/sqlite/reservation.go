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

var _ repository.ReservationRepository = (*DB)(nil)

const reservationColumns = `id, wish_id, reserver_name, reserver_email, reserver_user_id, reserved_at`

func scanReservation(s scanner) (*model.Reservation, error) {
	var r model.Reservation
	err := s.Scan(
		&r.ID,
		&r.WishID,
		&r.ReserverName,
		&r.ReserverEmail,
		&r.ReserverUserID,
		&r.ReservedAt,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// CreateReservation claims a wish.
//
// The existence and "already reserved" checks run in the same transaction as
// the insert, and the UNIQUE(wish_id) constraint backs them up: of N
// concurrent calls for one wish exactly one succeeds and the rest get
// apperror.ErrConflict.
func (db *DB) CreateReservation(ctx context.Context, r *model.Reservation) error {
	r.ID = xid.New().String()
	r.ReservedAt = now()

	return db.withTx(ctx, func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM wishes WHERE id = ?`, r.WishID,
		).Scan(&exists)
		if err != nil {
			return fmt.Errorf("sqlite: checking wish %s: %w", r.WishID, err)
		}
		if exists == 0 {
			return apperror.NotFound("wish", r.WishID)
		}

		var reserved int
		err = tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM reservations WHERE wish_id = ?`, r.WishID,
		).Scan(&reserved)
		if err != nil {
			return fmt.Errorf("sqlite: checking reservation for wish %s: %w", r.WishID, err)
		}
		if reserved > 0 {
			return apperror.ConflictMessage("this wish is already reserved")
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO reservations (`+reservationColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
			r.ID,
			r.WishID,
			r.ReserverName,
			r.ReserverEmail,
			r.ReserverUserID,
			r.ReservedAt,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return apperror.ConflictMessage("this wish is already reserved")
			}
			return fmt.Errorf("sqlite: creating reservation for wish %s: %w", r.WishID, err)
		}
		return nil
	})
}

// GetReservationByWishID returns apperror.ErrNotFound when the wish is not reserved.
func (db *DB) GetReservationByWishID(ctx context.Context, wishID string) (*model.Reservation, error) {
	r, err := scanReservation(db.conn.QueryRowContext(ctx,
		`SELECT `+reservationColumns+` FROM reservations WHERE wish_id = ?`, wishID,
	))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("reservation", wishID)
		}
		return nil, fmt.Errorf("sqlite: getting reservation for wish %s: %w", wishID, err)
	}
	return r, nil
}

func (db *DB) DeleteReservation(ctx context.Context, id string) error {
	result, err := db.conn.ExecContext(ctx, `DELETE FROM reservations WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting reservation %s: %w", id, err)
	}
	return requireAffected(result, "reservation", id)
}

// ListReservationsByWishIDs fetches the reservations for many wishes in one
// query, keyed by wish ID. Unreserved wishes are simply absent from the map.
func (db *DB) ListReservationsByWishIDs(ctx context.Context, wishIDs []string) (map[string]model.Reservation, error) {
	out := make(map[string]model.Reservation, len(wishIDs))
	if len(wishIDs) == 0 {
		return out, nil
	}

	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+reservationColumns+` FROM reservations WHERE wish_id IN (`+placeholders(len(wishIDs))+`)`,
		stringArgs(wishIDs)...,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing reservations: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		r, err := scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning reservation row: %w", err)
		}
		out[r.WishID] = *r
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating reservations: %w", err)
	}
	return out, nil
}

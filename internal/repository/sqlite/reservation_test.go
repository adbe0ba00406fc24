package sqlite

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/sakif/gthanks/internal/apperror"
	"github.com/sakif/gthanks/internal/model"
)

func TestCreateReservation(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	owner := createTestUser(t, db, 1, "alice")
	giver := createTestUser(t, db, 2, "bob")
	wish := createTestWish(t, db, owner.ID, "kite")

	r := &model.Reservation{
		WishID:         wish.ID,
		ReserverName:   "Bob",
		ReserverEmail:  "bob@example.com",
		ReserverUserID: &giver.ID,
	}
	if err := db.CreateReservation(ctx, r); err != nil {
		t.Fatalf("CreateReservation() error = %v", err)
	}
	if r.ID == "" || r.ReservedAt.IsZero() {
		t.Errorf("CreateReservation() did not fill ID/ReservedAt: %+v", r)
	}

	got, err := db.GetReservationByWishID(ctx, wish.ID)
	if err != nil {
		t.Fatalf("GetReservationByWishID() error = %v", err)
	}
	if got.ReserverEmail != "bob@example.com" || got.ReserverUserID == nil || *got.ReserverUserID != giver.ID {
		t.Errorf("GetReservationByWishID() = %+v", got)
	}
}

func TestCreateReservation_AlreadyReserved(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	owner := createTestUser(t, db, 1, "alice")
	wish := createTestWish(t, db, owner.ID, "kite")

	if err := db.CreateReservation(ctx, &model.Reservation{WishID: wish.ID, ReserverEmail: "a@example.com"}); err != nil {
		t.Fatalf("CreateReservation() error = %v", err)
	}
	err := db.CreateReservation(ctx, &model.Reservation{WishID: wish.ID, ReserverEmail: "b@example.com"})
	if !errors.Is(err, apperror.ErrConflict) {
		t.Errorf("expected ErrConflict, got: %v", err)
	}
}

func TestCreateReservation_MissingWish(t *testing.T) {
	db := newTestDB(t)

	err := db.CreateReservation(context.Background(), &model.Reservation{WishID: "missing", ReserverEmail: "a@example.com"})
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got: %v", err)
	}
}

func TestCreateReservation_Concurrent(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	owner := createTestUser(t, db, 1, "alice")
	wish := createTestWish(t, db, owner.ID, "limited edition")

	const n = 10
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		conflicts int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := db.CreateReservation(ctx, &model.Reservation{WishID: wish.ID, ReserverEmail: "g@example.com"})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, apperror.ErrConflict):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if succeeded != 1 || conflicts != n-1 {
		t.Errorf("succeeded=%d conflicts=%d, want 1 and %d", succeeded, conflicts, n-1)
	}
}

func TestDeleteReservation(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	owner := createTestUser(t, db, 1, "alice")
	wish := createTestWish(t, db, owner.ID, "kite")

	r := &model.Reservation{WishID: wish.ID, ReserverEmail: "a@example.com"}
	if err := db.CreateReservation(ctx, r); err != nil {
		t.Fatalf("CreateReservation() error = %v", err)
	}
	if err := db.DeleteReservation(ctx, r.ID); err != nil {
		t.Fatalf("DeleteReservation() error = %v", err)
	}
	if err := db.DeleteReservation(ctx, r.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("second DeleteReservation() = %v, want ErrNotFound", err)
	}

	// The wish can be reserved again once released.
	if err := db.CreateReservation(ctx, &model.Reservation{WishID: wish.ID, ReserverEmail: "b@example.com"}); err != nil {
		t.Errorf("CreateReservation() after release error = %v", err)
	}
}

func TestListReservationsByWishIDs(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	owner := createTestUser(t, db, 1, "alice")
	reserved := createTestWish(t, db, owner.ID, "reserved")
	free := createTestWish(t, db, owner.ID, "free")

	if err := db.CreateReservation(ctx, &model.Reservation{WishID: reserved.ID, ReserverEmail: "a@example.com"}); err != nil {
		t.Fatalf("CreateReservation() error = %v", err)
	}

	got, err := db.ListReservationsByWishIDs(ctx, []string{reserved.ID, free.ID})
	if err != nil {
		t.Fatalf("ListReservationsByWishIDs() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d reservations, want 1", len(got))
	}
	if _, ok := got[reserved.ID]; !ok {
		t.Errorf("reserved wish missing from result")
	}

	empty, err := db.ListReservationsByWishIDs(ctx, nil)
	if err != nil || len(empty) != 0 {
		t.Errorf("ListReservationsByWishIDs(nil) = %v, %v", empty, err)
	}
}

package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/gthanks/internal/apperror"
)

func TestCreateReservation_Anonymous(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.user(t, "owner")
	wish := env.wish(t, owner.ID, "Lego set")

	r, err := env.reservations.CreateReservation(ctx, CreateReservationInput{
		WishID:        wish.ID,
		ReserverName:  "Aunt May",
		ReserverEmail: "  May@Example.com ",
	}, "")
	require.NoError(t, err)

	assert.Equal(t, wish.ID, r.WishID)
	assert.Equal(t, "may@example.com", r.ReserverEmail)
	assert.Nil(t, r.ReserverUserID)

	msgs := env.mail.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "may@example.com", msgs[0].To)
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.Reservations.WithLabelValues("created")))
}

func TestCreateReservation_AnonymousNeedsEmail(t *testing.T) {
	env := newTestEnv(t)
	owner := env.user(t, "owner")
	wish := env.wish(t, owner.ID, "Book")

	_, err := env.reservations.CreateReservation(context.Background(), CreateReservationInput{
		WishID:       wish.ID,
		ReserverName: "Someone",
	}, "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperror.ErrValidation))

	var appErr *apperror.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "reserverEmail", appErr.Field)
}

func TestCreateReservation_InvalidEmail(t *testing.T) {
	env := newTestEnv(t)
	owner := env.user(t, "owner")
	wish := env.wish(t, owner.ID, "Book")

	_, err := env.reservations.CreateReservation(context.Background(), CreateReservationInput{
		WishID:        wish.ID,
		ReserverEmail: "not-an-email",
	}, "")
	assert.True(t, errors.Is(err, apperror.ErrValidation))
}

func TestCreateReservation_AuthenticatedDefaults(t *testing.T) {
	env := newTestEnv(t)
	owner := env.user(t, "owner")
	giver := env.user(t, "giver")
	wish := env.wish(t, owner.ID, "Scarf")

	r, err := env.reservations.CreateReservation(context.Background(), CreateReservationInput{WishID: wish.ID}, giver.ID)
	require.NoError(t, err)

	assert.Equal(t, "giver", r.ReserverName)
	assert.Equal(t, "giver@example.com", r.ReserverEmail)
	require.NotNil(t, r.ReserverUserID)
	assert.Equal(t, giver.ID, *r.ReserverUserID)
}

func TestCreateReservation_OwnerForbidden(t *testing.T) {
	env := newTestEnv(t)
	owner := env.user(t, "owner")
	wish := env.wish(t, owner.ID, "Bike")

	_, err := env.reservations.CreateReservation(context.Background(), CreateReservationInput{WishID: wish.ID}, owner.ID)
	assert.True(t, errors.Is(err, apperror.ErrForbidden))
}

func TestCreateReservation_MissingWish(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.reservations.CreateReservation(context.Background(), CreateReservationInput{
		WishID:        "does-not-exist",
		ReserverEmail: "a@example.com",
	}, "")
	assert.True(t, errors.Is(err, apperror.ErrNotFound))
}

func TestCreateReservation_AlreadyReserved(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.user(t, "owner")
	wish := env.wish(t, owner.ID, "Drone")

	_, err := env.reservations.CreateReservation(ctx, CreateReservationInput{WishID: wish.ID, ReserverEmail: "a@example.com"}, "")
	require.NoError(t, err)

	_, err = env.reservations.CreateReservation(ctx, CreateReservationInput{WishID: wish.ID, ReserverEmail: "b@example.com"}, "")
	assert.True(t, errors.Is(err, apperror.ErrConflict))
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.Reservations.WithLabelValues("conflict")))
}

func TestCreateReservation_ConcurrentExactlyOneWins(t *testing.T) {
	env := newTestEnv(t)
	owner := env.user(t, "owner")
	wish := env.wish(t, owner.ID, "Concert tickets")

	const n = 10
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		created   int
		conflicts int
		others    []error
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := env.reservations.CreateReservation(context.Background(), CreateReservationInput{
				WishID:        wish.ID,
				ReserverEmail: "giver@example.com",
			}, "")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				created++
			case errors.Is(err, apperror.ErrConflict):
				conflicts++
			default:
				others = append(others, err)
			}
		}(i)
	}
	wg.Wait()

	assert.Empty(t, others)
	assert.Equal(t, 1, created)
	assert.Equal(t, n-1, conflicts)
}

func TestRemoveReservation(t *testing.T) {
	ctx := context.Background()

	t.Run("by reserver account", func(t *testing.T) {
		env := newTestEnv(t)
		owner := env.user(t, "owner")
		giver := env.user(t, "giver")
		wish := env.wish(t, owner.ID, "Hat")
		_, err := env.reservations.CreateReservation(ctx, CreateReservationInput{WishID: wish.ID}, giver.ID)
		require.NoError(t, err)

		require.NoError(t, env.reservations.RemoveReservationByWishID(ctx, wish.ID, giver.ID))

		_, err = env.db.GetReservationByWishID(ctx, wish.ID)
		assert.True(t, errors.Is(err, apperror.ErrNotFound))
	})

	t.Run("by matching email ignoring case", func(t *testing.T) {
		env := newTestEnv(t)
		owner := env.user(t, "owner")
		giver := env.user(t, "giver")
		wish := env.wish(t, owner.ID, "Hat")
		_, err := env.reservations.CreateReservation(ctx, CreateReservationInput{
			WishID:        wish.ID,
			ReserverEmail: "GIVER@example.com",
		}, "")
		require.NoError(t, err)

		assert.NoError(t, env.reservations.RemoveReservationByWishID(ctx, wish.ID, giver.ID))
	})

	t.Run("someone else is forbidden", func(t *testing.T) {
		env := newTestEnv(t)
		owner := env.user(t, "owner")
		giver := env.user(t, "giver")
		stranger := env.user(t, "stranger")
		wish := env.wish(t, owner.ID, "Hat")
		_, err := env.reservations.CreateReservation(ctx, CreateReservationInput{WishID: wish.ID}, giver.ID)
		require.NoError(t, err)

		err = env.reservations.RemoveReservationByWishID(ctx, wish.ID, stranger.ID)
		assert.True(t, errors.Is(err, apperror.ErrForbidden))

		err = env.reservations.RemoveReservationByWishID(ctx, wish.ID, owner.ID)
		assert.True(t, errors.Is(err, apperror.ErrForbidden))
	})

	t.Run("no reservation", func(t *testing.T) {
		env := newTestEnv(t)
		owner := env.user(t, "owner")
		giver := env.user(t, "giver")
		wish := env.wish(t, owner.ID, "Hat")

		err := env.reservations.RemoveReservationByWishID(ctx, wish.ID, giver.ID)
		assert.True(t, errors.Is(err, apperror.ErrNotFound))
	})

	t.Run("anonymous is unauthorized", func(t *testing.T) {
		env := newTestEnv(t)
		err := env.reservations.RemoveReservationByWishID(ctx, "any", "")
		assert.True(t, errors.Is(err, apperror.ErrUnauthorized))
	})
}

func TestGetReservationStatus_OwnerPrivacy(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.user(t, "owner")
	giver := env.user(t, "giver")
	reserved := env.wish(t, owner.ID, "Reserved")
	free := env.wish(t, owner.ID, "Free")

	_, err := env.reservations.CreateReservation(ctx, CreateReservationInput{WishID: reserved.ID}, giver.ID)
	require.NoError(t, err)

	ids := []string{reserved.ID, free.ID, "unknown", reserved.ID}

	ownerView, err := env.reservations.GetReservationStatus(ctx, ids, owner.ID)
	require.NoError(t, err)
	require.Len(t, ownerView, 2, "unknown IDs are omitted and duplicates collapsed")
	assert.True(t, ownerView[0].IsReserved)
	assert.Empty(t, ownerView[0].ReserverName)
	assert.Empty(t, ownerView[0].ReserverEmail)
	assert.Nil(t, ownerView[0].ReservedAt)
	assert.False(t, ownerView[1].IsReserved)

	giverView, err := env.reservations.GetReservationStatus(ctx, ids, giver.ID)
	require.NoError(t, err)
	require.Len(t, giverView, 2)
	assert.Equal(t, "giver", giverView[0].ReserverName)
	assert.Equal(t, "giver@example.com", giverView[0].ReserverEmail)
	assert.NotNil(t, giverView[0].ReservedAt)

	anonView, err := env.reservations.GetReservationStatus(ctx, ids, "")
	require.NoError(t, err)
	assert.Equal(t, "giver", anonView[0].ReserverName)
}

func TestGetReservationStatus_TooManyIDs(t *testing.T) {
	env := newTestEnv(t)
	ids := make([]string, MaxBatchIDs+1)
	for i := range ids {
		ids[i] = string(rune('a'+i%26)) + string(rune('0'+i/26))
	}
	_, err := env.reservations.GetReservationStatus(context.Background(), ids, "")
	assert.True(t, errors.Is(err, apperror.ErrValidation))
}

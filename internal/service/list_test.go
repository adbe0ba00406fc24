package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/gthanks/internal/apperror"
	"github.com/sakif/gthanks/internal/model"
)

func TestCreateList(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.user(t, "owner")

	l, err := env.lists.Create(ctx, owner.ID, ListInput{Name: "  Birthday  "})
	require.NoError(t, err)
	assert.Equal(t, "Birthday", l.Name)
	assert.Equal(t, model.VisibilityPrivate, l.Visibility, "visibility defaults to private")

	_, err = env.lists.Create(ctx, owner.ID, ListInput{Name: "Secret", Visibility: "password"})
	assert.True(t, errors.Is(err, apperror.ErrValidation), "password lists need a password")

	_, err = env.lists.Create(ctx, owner.ID, ListInput{Name: "Odd", Visibility: "friends"})
	assert.True(t, errors.Is(err, apperror.ErrValidation))

	_, err = env.lists.Create(ctx, owner.ID, ListInput{Name: ""})
	assert.True(t, errors.Is(err, apperror.ErrValidation))

	protected, err := env.lists.Create(ctx, owner.ID, ListInput{Name: "Secret", Visibility: "password", Password: "hunter2"})
	require.NoError(t, err)
	assert.NotEmpty(t, protected.PasswordHash)
	assert.NotEqual(t, "hunter2", protected.PasswordHash)
}

func TestUpdateList_NonOwnerGetsNotFound(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.user(t, "owner")
	stranger := env.user(t, "stranger")
	list := env.list(t, owner.ID, "Private", model.VisibilityPrivate)

	_, err := env.lists.Update(ctx, list.ID, stranger.ID, ListInput{Name: "Hijacked"})
	assert.True(t, errors.Is(err, apperror.ErrNotFound))

	err = env.lists.Delete(ctx, list.ID, stranger.ID)
	assert.True(t, errors.Is(err, apperror.ErrNotFound))

	_, err = env.lists.Get(ctx, list.ID, stranger.ID)
	assert.True(t, errors.Is(err, apperror.ErrNotFound))

	public := env.list(t, owner.ID, "Public", model.VisibilityPublic)
	_, err = env.lists.Update(ctx, public.ID, stranger.ID, ListInput{Name: "Hijacked"})
	assert.True(t, errors.Is(err, apperror.ErrNotFound), "readable is not the same as writable")

	_, err = env.lists.Get(ctx, public.ID, stranger.ID)
	assert.NoError(t, err)
}

func TestUpdateList_CoAdmin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.user(t, "owner")
	coAdmin := env.user(t, "coadmin")
	list := env.list(t, owner.ID, "Family", model.VisibilityPrivate)
	require.NoError(t, env.lists.AddAdmin(ctx, list.ID, owner.ID, coAdmin.ID))

	updated, err := env.lists.Update(ctx, list.ID, coAdmin.ID, ListInput{Name: "Family 2026", Description: "new"})
	require.NoError(t, err)
	assert.Equal(t, "Family 2026", updated.Name)

	_, err = env.lists.Update(ctx, list.ID, coAdmin.ID, ListInput{Name: "Family", Visibility: "public"})
	assert.True(t, errors.Is(err, apperror.ErrForbidden), "visibility is the owner's call")

	_, err = env.lists.Update(ctx, list.ID, coAdmin.ID, ListInput{Name: "Family", HideFromProfile: boolPtr(true)})
	assert.True(t, errors.Is(err, apperror.ErrForbidden), "the profile flag is the owner's call")

	err = env.lists.Delete(ctx, list.ID, coAdmin.ID)
	assert.True(t, errors.Is(err, apperror.ErrForbidden))

	mine, err := env.lists.ListMine(ctx, coAdmin.ID)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, list.ID, mine[0].ID)
}

// A co-admin renaming a hidden list leaves the flag alone, so it is not a
// sharing change.
func TestUpdateList_CoAdminRenamesHiddenList(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.user(t, "owner")
	coAdmin := env.user(t, "coadmin")
	list := env.list(t, owner.ID, "Xmas", model.VisibilityPublic)
	require.NoError(t, env.lists.AddAdmin(ctx, list.ID, owner.ID, coAdmin.ID))

	_, err := env.lists.Update(ctx, list.ID, owner.ID, ListInput{Name: "Xmas", HideFromProfile: boolPtr(true)})
	require.NoError(t, err)

	updated, err := env.lists.Update(ctx, list.ID, coAdmin.ID, ListInput{Name: "Xmas 2026"})
	require.NoError(t, err)
	assert.Equal(t, "Xmas 2026", updated.Name)
	assert.True(t, updated.HideFromProfile)

	_, err = env.lists.Update(ctx, list.ID, coAdmin.ID, ListInput{Name: "Xmas 2026", HideFromProfile: boolPtr(true)})
	assert.NoError(t, err, "restating the current flag is not a change")

	updated, err = env.lists.Update(ctx, list.ID, owner.ID, ListInput{Name: "Xmas 2026", HideFromProfile: boolPtr(false)})
	require.NoError(t, err)
	assert.False(t, updated.HideFromProfile)
}

func TestUpdateList_Visibility(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.user(t, "owner")
	list := env.list(t, owner.ID, "Protected", model.VisibilityPassword)

	updated, err := env.lists.Update(ctx, list.ID, owner.ID, ListInput{Name: "Protected"})
	require.NoError(t, err)
	assert.Equal(t, model.VisibilityPassword, updated.Visibility, "empty visibility keeps the current one")
	assert.Equal(t, list.PasswordHash, updated.PasswordHash)

	updated, err = env.lists.Update(ctx, list.ID, owner.ID, ListInput{Name: "Protected", Visibility: "public"})
	require.NoError(t, err)
	assert.Empty(t, updated.PasswordHash, "leaving password mode drops the hash")

	_, err = env.lists.Update(ctx, list.ID, owner.ID, ListInput{Name: "Protected", Visibility: "password"})
	assert.True(t, errors.Is(err, apperror.ErrValidation))
}

func TestSetPassword_InvalidatesAccessTokens(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.user(t, "owner")
	list := env.list(t, owner.ID, "Protected", model.VisibilityPassword)

	token, err := env.tokens.GenerateListAccess(list.ID, list.PasswordHash)
	require.NoError(t, err)

	require.NoError(t, env.lists.SetPassword(ctx, list.ID, owner.ID, "brand-new"))

	stored, err := env.db.GetList(ctx, list.ID)
	require.NoError(t, err)
	assert.Error(t, env.tokens.ValidateListAccess(token, list.ID, stored.PasswordHash))

	err = env.lists.SetPassword(ctx, list.ID, owner.ID, "abc")
	assert.True(t, errors.Is(err, apperror.ErrValidation))
}

func TestListAdmins(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.user(t, "owner")
	coAdmin := env.user(t, "coadmin")
	stranger := env.user(t, "stranger")
	list := env.list(t, owner.ID, "Family", model.VisibilityPublic)

	err := env.lists.AddAdmin(ctx, list.ID, owner.ID, owner.ID)
	assert.True(t, errors.Is(err, apperror.ErrValidation))

	err = env.lists.AddAdmin(ctx, list.ID, owner.ID, "missing-user")
	assert.True(t, errors.Is(err, apperror.ErrNotFound))

	err = env.lists.AddAdmin(ctx, list.ID, stranger.ID, stranger.ID)
	assert.True(t, errors.Is(err, apperror.ErrNotFound), "public list: visible but not manageable")

	require.NoError(t, env.lists.AddAdmin(ctx, list.ID, owner.ID, coAdmin.ID))
	admins, err := env.lists.ListAdmins(ctx, list.ID, coAdmin.ID)
	require.NoError(t, err)
	require.Len(t, admins, 1)
	assert.Equal(t, coAdmin.ID, admins[0].UserID)

	// A co-admin may step down.
	require.NoError(t, env.lists.RemoveAdmin(ctx, list.ID, coAdmin.ID, coAdmin.ID))
	admins, err = env.lists.ListAdmins(ctx, list.ID, owner.ID)
	require.NoError(t, err)
	assert.Empty(t, admins)
}

// Stepping down from a list you do not administer must look exactly like
// stepping down from a list that does not exist.
func TestRemoveAdmin_SelfRemovalDoesNotRevealLists(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.user(t, "owner")
	stranger := env.user(t, "stranger")
	private := env.list(t, owner.ID, "Private", model.VisibilityPrivate)

	existing := env.lists.RemoveAdmin(ctx, private.ID, stranger.ID, stranger.ID)
	missing := env.lists.RemoveAdmin(ctx, "no-such-list", stranger.ID, stranger.ID)

	require.ErrorIs(t, existing, apperror.ErrNotFound)
	require.ErrorIs(t, missing, apperror.ErrNotFound)
	assert.Equal(t, apperror.NotFound("list", private.ID).Error(), existing.Error())
	assert.Equal(t, apperror.NotFound("list", "no-such-list").Error(), missing.Error())

	entries, err := env.db.ListAudit(ctx, 100)
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotEqual(t, AuditListAdminRemove, e.Action)
	}
}

func TestGetList_IncludesWishes(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.user(t, "owner")
	list := env.list(t, owner.ID, "Public", model.VisibilityPublic)
	w := env.wish(t, owner.ID, "Kite")
	_, err := env.memberships.AddWishesToList(ctx, list.ID, []string{w.ID}, owner.ID)
	require.NoError(t, err)

	got, err := env.lists.Get(ctx, list.ID, "")
	require.NoError(t, err)
	require.Len(t, got.Wishes, 1)
	assert.Equal(t, "Kite", got.Wishes[0].Title)
}

// The validator counts runes, bcrypt counts bytes: 25 three-byte runes pass
// the tag but are still refused as a validation error.
func TestSetPassword_ByteLimit(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.user(t, "owner")
	list := env.list(t, owner.ID, "Gifts", model.VisibilityPrivate)

	err := env.lists.SetPassword(ctx, list.ID, owner.ID, strings.Repeat("密", 25))
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "password", appErr.Field)
	assert.ErrorIs(t, err, apperror.ErrValidation)

	require.NoError(t, env.lists.SetPassword(ctx, list.ID, owner.ID, "grandma2026"))
}

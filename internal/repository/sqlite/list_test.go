package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/sakif/gthanks/internal/apperror"
	"github.com/sakif/gthanks/internal/model"
)

func TestCreateAndGetList(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	owner := createTestUser(t, db, 1, "alice")

	list := &model.List{
		OwnerID:      owner.ID,
		Name:         "Christmas",
		Description:  "presents please",
		Visibility:   model.VisibilityPassword,
		PasswordHash: "$2a$10$hash",
	}
	if err := db.CreateList(ctx, list); err != nil {
		t.Fatalf("CreateList() error = %v", err)
	}

	got, err := db.GetList(ctx, list.ID)
	if err != nil {
		t.Fatalf("GetList() error = %v", err)
	}
	if got.Name != "Christmas" || got.Visibility != model.VisibilityPassword || got.PasswordHash != "$2a$10$hash" {
		t.Errorf("GetList() = %+v", got)
	}
	if got.Slug != nil {
		t.Errorf("new list slug = %q, want nil", *got.Slug)
	}
}

func TestGetList_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.GetList(context.Background(), "missing")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got: %v", err)
	}
}

func TestSetSlug_UniquePerOwner(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	alice := createTestUser(t, db, 1, "alice")
	bob := createTestUser(t, db, 2, "bob")

	aliceXmas := createTestList(t, db, alice.ID, "Xmas", model.VisibilityPublic)
	aliceOther := createTestList(t, db, alice.ID, "Other", model.VisibilityPublic)
	bobXmas := createTestList(t, db, bob.ID, "Xmas", model.VisibilityPublic)

	if err := db.SetSlug(ctx, aliceXmas.ID, strPtr("christmas")); err != nil {
		t.Fatalf("SetSlug() error = %v", err)
	}
	if err := db.SetSlug(ctx, bobXmas.ID, strPtr("christmas")); err != nil {
		t.Errorf("another owner could not reuse the slug: %v", err)
	}
	if err := db.SetSlug(ctx, aliceOther.ID, strPtr("christmas")); !errors.Is(err, apperror.ErrConflict) {
		t.Errorf("expected ErrConflict for a duplicate slug, got: %v", err)
	}
}

func TestGetListByVanity(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	alice := createTestUser(t, db, 1, "alice")
	if err := db.SetUsername(ctx, alice.ID, strPtr("alice")); err != nil {
		t.Fatalf("SetUsername() error = %v", err)
	}

	public := createTestList(t, db, alice.ID, "Public", model.VisibilityPublic)
	private := createTestList(t, db, alice.ID, "Private", model.VisibilityPrivate)
	hidden := createTestList(t, db, alice.ID, "Hidden", model.VisibilityPublic)
	hidden.HideFromProfile = true
	if err := db.UpdateList(ctx, hidden); err != nil {
		t.Fatalf("UpdateList() error = %v", err)
	}
	for list, slug := range map[*model.List]string{public: "public", private: "private", hidden: "hidden"} {
		if err := db.SetSlug(ctx, list.ID, strPtr(slug)); err != nil {
			t.Fatalf("SetSlug(%s) error = %v", slug, err)
		}
	}

	got, err := db.GetListByVanity(ctx, "ALICE", "Public")
	if err != nil {
		t.Fatalf("GetListByVanity() error = %v", err)
	}
	if got.ID != public.ID {
		t.Errorf("GetListByVanity() = %s, want %s", got.ID, public.ID)
	}

	for _, slug := range []string{"private", "hidden", "nope"} {
		if _, err := db.GetListByVanity(ctx, "alice", slug); !errors.Is(err, apperror.ErrNotFound) {
			t.Errorf("GetListByVanity(%q) = %v, want ErrNotFound", slug, err)
		}
	}

	profile, err := db.ListProfileLists(ctx, alice.ID)
	if err != nil {
		t.Fatalf("ListProfileLists() error = %v", err)
	}
	if len(profile) != 1 || profile[0].ID != public.ID {
		t.Errorf("ListProfileLists() = %+v, want only the public list", profile)
	}
}

func TestListAdmins(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	alice := createTestUser(t, db, 1, "alice")
	bob := createTestUser(t, db, 2, "bob")
	list := createTestList(t, db, alice.ID, "Shared", model.VisibilityPrivate)

	if err := db.AddAdmin(ctx, list.ID, bob.ID); err != nil {
		t.Fatalf("AddAdmin() error = %v", err)
	}
	// Adding twice is a no-op.
	if err := db.AddAdmin(ctx, list.ID, bob.ID); err != nil {
		t.Fatalf("second AddAdmin() error = %v", err)
	}

	ok, err := db.IsListAdmin(ctx, list.ID, bob.ID)
	if err != nil || !ok {
		t.Fatalf("IsListAdmin() = %v, %v; want true", ok, err)
	}
	admins, err := db.ListAdmins(ctx, list.ID)
	if err != nil {
		t.Fatalf("ListAdmins() error = %v", err)
	}
	if len(admins) != 1 {
		t.Errorf("ListAdmins() returned %d rows, want 1", len(admins))
	}
	byAdmin, err := db.ListListsByAdmin(ctx, bob.ID)
	if err != nil {
		t.Fatalf("ListListsByAdmin() error = %v", err)
	}
	if len(byAdmin) != 1 || byAdmin[0].ID != list.ID {
		t.Errorf("ListListsByAdmin() = %+v", byAdmin)
	}

	if err := db.RemoveAdmin(ctx, list.ID, bob.ID); err != nil {
		t.Fatalf("RemoveAdmin() error = %v", err)
	}
	if err := db.RemoveAdmin(ctx, list.ID, bob.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("second RemoveAdmin() = %v, want ErrNotFound", err)
	}
}

func TestDeleteList(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	alice := createTestUser(t, db, 1, "alice")
	list := createTestList(t, db, alice.ID, "Temp", model.VisibilityPrivate)

	if err := db.DeleteList(ctx, list.ID); err != nil {
		t.Fatalf("DeleteList() error = %v", err)
	}
	if _, err := db.GetList(ctx, list.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetList() after delete = %v, want ErrNotFound", err)
	}
}

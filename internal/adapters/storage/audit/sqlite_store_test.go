package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/LycorisBlue/spiritual-compass-hub-main/internal/adapters/storage"
	domain "github.com/LycorisBlue/spiritual-compass-hub-main/internal/domain/audit"
)

func setupStore(t *testing.T) *SQLiteStore {
	t.Helper()
	db, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := storage.MigrateDB(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewSQLiteStore(db)
}

func TestSQLiteStore_SaveListGet(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	actor := domain.Actor{ID: "1", Email: "admin@communaute.fr", Role: "admin"}

	first := domain.NewEvent(actor, domain.CategoryAuth, domain.ActionLogin)
	first.Timestamp = time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	second := domain.NewEvent(actor, domain.CategoryEvent, domain.ActionCreate).
		WithResource("contact", "c1").
		WithDescription("contact added")
	second.Timestamp = time.Date(2024, 1, 1, 9, 0, 0, 500, time.UTC)

	for _, e := range []domain.Event{first, second} {
		if err := store.Save(ctx, e); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}

	all, err := store.List(ctx, Filter{}, 10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 2 || all[0].ID != second.ID {
		t.Fatalf("List not newest first: %+v", all)
	}

	cat := domain.CategoryAuth
	auths, _ := store.List(ctx, Filter{Category: &cat}, 10)
	if len(auths) != 1 || auths[0].Action != domain.ActionLogin {
		t.Errorf("category filter = %+v", auths)
	}

	res := "c1"
	byRes, _ := store.List(ctx, Filter{ResourceID: &res}, 10)
	if len(byRes) != 1 || byRes[0].Description != "contact added" {
		t.Errorf("resource filter = %+v", byRes)
	}

	got, err := store.GetByID(ctx, first.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if !got.Timestamp.Equal(first.Timestamp) || got.ActorEmail != actor.Email {
		t.Errorf("GetByID = %+v", got)
	}

	if _, err := store.GetByID(ctx, "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

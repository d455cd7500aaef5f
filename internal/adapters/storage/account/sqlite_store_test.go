package account

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/LycorisBlue/spiritual-compass-hub-main/internal/adapters/storage"
	domain "github.com/LycorisBlue/spiritual-compass-hub-main/internal/domain/account"
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

func TestSQLiteStore_SaveAndGet(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	users := domain.DemoUsers()
	acct := domain.Account{User: users[1], PasswordHash: "hash", CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	if err := store.Save(ctx, acct); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := store.GetByEmail(ctx, "permanent@communaute.fr")
	if err != nil {
		t.Fatalf("GetByEmail: %v", err)
	}
	if got.User.Role != domain.RolePermanent || got.PasswordHash != "hash" {
		t.Errorf("got %+v", got)
	}
	if len(got.User.Permissions) != len(users[1].Permissions) {
		t.Fatalf("permissions = %d, want %d", len(got.User.Permissions), len(users[1].Permissions))
	}
	for i, p := range users[1].Permissions {
		if got.User.Permissions[i] != p {
			t.Errorf("permission[%d] = %+v, want %+v", i, got.User.Permissions[i], p)
		}
	}
	if !got.User.HasPermission(domain.Discipleship) {
		t.Error("discipleship not granted after round trip")
	}

	byID, err := store.GetByID(ctx, users[1].ID)
	if err != nil || byID.User.Email != users[1].Email {
		t.Errorf("GetByID = %+v, %v", byID, err)
	}
}

func TestSQLiteStore_LockoutFields(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	acct := domain.Account{User: domain.DemoUsers()[0]}
	store.Save(ctx, acct)

	lock := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	acct.FailedLogins = 5
	acct.LockedUntil = lock
	acct.User.Permissions[0].Enabled = false
	if err := store.Save(ctx, acct); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, _ := store.GetByEmail(ctx, acct.User.Email)
	if got.FailedLogins != 5 || !got.LockedUntil.Equal(lock) {
		t.Errorf("lockout = %d / %v", got.FailedLogins, got.LockedUntil)
	}
	if got.User.HasPermission(domain.ManageSessions) {
		t.Error("disabled permission still granted")
	}
}

func TestSQLiteStore_NotFound(t *testing.T) {
	store := setupStore(t)
	if _, err := store.GetByEmail(context.Background(), "nobody@x.fr"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestSQLiteStore_ListAndCount(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, u := range domain.DemoUsers() {
		if err := store.Save(ctx, domain.Account{User: u, CreatedAt: base.Add(time.Duration(i) * time.Hour)}); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}

	all, err := store.List(ctx, ListFilter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 3 || all[0].User.Role != domain.RoleAdmin {
		t.Fatalf("List = %d accounts", len(all))
	}
	if len(all[2].User.Permissions) != 2 {
		t.Errorf("standard permissions = %d, want 2", len(all[2].User.Permissions))
	}

	admins, _ := store.List(ctx, ListFilter{Role: domain.RoleAdmin})
	if len(admins) != 1 {
		t.Errorf("admins = %d, want 1", len(admins))
	}

	n, err := store.Count(ctx)
	if err != nil || n != 3 {
		t.Errorf("Count = %d, %v", n, err)
	}

	if err := store.Delete(ctx, all[0].User.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if n, _ := store.Count(ctx); n != 2 {
		t.Errorf("Count after delete = %d, want 2", n)
	}
}

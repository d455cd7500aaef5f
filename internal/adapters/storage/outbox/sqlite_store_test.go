package outbox

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/LycorisBlue/spiritual-compass-hub-main/internal/adapters/storage"
	domain "github.com/LycorisBlue/spiritual-compass-hub-main/internal/domain/outbox"
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

func entry(id, status string, created time.Time) domain.Entry {
	return domain.Entry{
		ID:          id,
		Kind:        domain.KindFollowUpEmail,
		Payload:     `{"to":["staff@communaute.fr"]}`,
		Subject:     "Suivi " + id,
		Status:      status,
		MaxAttempts: 3,
		CreatedAt:   created,
	}
}

func TestSQLiteStore_SaveGetUpdate(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	created := time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC)

	e := entry("o1", domain.StatusPending, created)
	if err := store.Save(ctx, e); err != nil {
		t.Fatalf("Save: %v", err)
	}

	e.MarkAttempt(created.Add(time.Minute))
	e.MarkFailed(errors.New("provider down"))
	if err := store.Save(ctx, e); err != nil {
		t.Fatalf("Save update: %v", err)
	}

	got, err := store.GetByID(ctx, "o1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != domain.StatusRetrying || got.Attempts != 1 || got.LastError != "provider down" {
		t.Errorf("update not persisted: %+v", got)
	}
	if !got.CreatedAt.Equal(created) || !got.LastAttemptedAt.Equal(created.Add(time.Minute)) {
		t.Errorf("times = %v, %v", got.CreatedAt, got.LastAttemptedAt)
	}
	if got.Subject != "Suivi o1" || got.Kind != domain.KindFollowUpEmail {
		t.Errorf("fields = %+v", got)
	}

	if _, err := store.GetByID(ctx, "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("GetByID missing = %v, want ErrNotFound", err)
	}
}

func TestSQLiteStore_ListRetryableAndList(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	base := time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC)

	for i, e := range []domain.Entry{
		entry("a", domain.StatusRetrying, base.Add(2*time.Second)),
		entry("b", domain.StatusPending, base.Add(1*time.Second)),
		entry("c", domain.StatusSent, base.Add(3*time.Second)),
		entry("d", domain.StatusAbandoned, base.Add(4*time.Second)),
	} {
		if err := store.Save(ctx, e); err != nil {
			t.Fatalf("Save %d: %v", i, err)
		}
	}

	retry, err := store.ListRetryable(ctx, 10)
	if err != nil {
		t.Fatalf("ListRetryable: %v", err)
	}
	if len(retry) != 2 || retry[0].ID != "b" || retry[1].ID != "a" {
		t.Errorf("ListRetryable = %+v, want b then a", retry)
	}

	all, err := store.List(ctx, "", 10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 4 || all[0].ID != "d" {
		t.Errorf("List not newest first: %+v", all)
	}

	sent, err := store.List(ctx, domain.StatusSent, 10)
	if err != nil {
		t.Fatalf("List sent: %v", err)
	}
	if len(sent) != 1 || sent[0].ID != "c" {
		t.Errorf("List sent = %+v", sent)
	}
}

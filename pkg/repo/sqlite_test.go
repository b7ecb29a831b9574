package repo

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

type testDoc struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Notes string `json:"notes,omitempty"`
}

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStore_PutGet(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	in := testDoc{ID: "job-1", Title: "Engineer", Notes: "remote"}
	if err := store.PutRecord(ctx, "job", in.ID, in); err != nil {
		t.Fatalf("put: %v", err)
	}

	var out testDoc
	if err := store.GetRecord(ctx, "job", "job-1", &out); err != nil {
		t.Fatalf("get: %v", err)
	}
	if out != in {
		t.Errorf("got %+v, want %+v", out, in)
	}
}

func TestStore_GetMissing(t *testing.T) {
	store := openTestStore(t)
	var out testDoc
	err := store.GetRecord(context.Background(), "job", "job-nope", &out)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_PutReplacesWholeDocument(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.PutRecord(ctx, "job", "job-1", testDoc{ID: "job-1", Title: "Old", Notes: "keep?"}); err != nil {
		t.Fatal(err)
	}
	if err := store.PutRecord(ctx, "job", "job-1", testDoc{ID: "job-1", Title: "New"}); err != nil {
		t.Fatal(err)
	}

	var out testDoc
	if err := store.GetRecord(ctx, "job", "job-1", &out); err != nil {
		t.Fatal(err)
	}
	if out.Title != "New" {
		t.Errorf("title = %q, want New", out.Title)
	}
	if out.Notes != "" {
		t.Errorf("expected old fields dropped on replace, got notes %q", out.Notes)
	}
}

func TestStore_KindsAreIsolated(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.PutRecord(ctx, "job", "x", testDoc{ID: "x", Title: "job side"}); err != nil {
		t.Fatal(err)
	}
	var out testDoc
	if err := store.GetRecord(ctx, "applicant", "x", &out); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound in other kind, got %v", err)
	}
}

func TestStore_ListInsertionOrder(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"job-b", "job-a", "job-c"} {
		tick := base.Add(time.Duration(i) * time.Second)
		store.now = func() time.Time { return tick }
		if err := store.PutRecord(ctx, "job", id, testDoc{ID: id}); err != nil {
			t.Fatal(err)
		}
	}

	raw, err := store.ListRecords(ctx, "job", ListOpts{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(raw) != 3 {
		t.Fatalf("expected 3 records, got %d", len(raw))
	}

	records := NewRecords(store, "job", func(d testDoc) string { return d.ID })
	docs, err := records.List(ctx, ListOpts{})
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"job-b", "job-a", "job-c"}
	for i := range want {
		if docs[i].ID != want[i] {
			t.Errorf("doc %d = %q, want %q", i, docs[i].ID, want[i])
		}
	}
}

func TestStore_ListPagination(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		tick := base.Add(time.Duration(i) * time.Second)
		store.now = func() time.Time { return tick }
		id := string(rune('a' + i))
		if err := store.PutRecord(ctx, "job", id, testDoc{ID: id}); err != nil {
			t.Fatal(err)
		}
	}

	raw, err := store.ListRecords(ctx, "job", ListOpts{Offset: 1, Limit: 2})
	if err != nil {
		t.Fatal(err)
	}
	if len(raw) != 2 {
		t.Errorf("expected 2 records, got %d", len(raw))
	}
}

func TestStore_Delete(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.PutRecord(ctx, "job", "job-1", testDoc{ID: "job-1"}); err != nil {
		t.Fatal(err)
	}
	if err := store.DeleteRecord(ctx, "job", "job-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	var out testDoc
	if err := store.GetRecord(ctx, "job", "job-1", &out); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected record gone, got %v", err)
	}

	// Deleting again is not an error.
	if err := store.DeleteRecord(ctx, "job", "job-1"); err != nil {
		t.Errorf("unexpected error on double delete: %v", err)
	}
}

func TestRecords_TypedCRUD(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	records := NewRecords(store, "job", func(d testDoc) string { return d.ID })

	created, err := records.Create(ctx, testDoc{ID: "job-1", Title: "Engineer"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID != "job-1" {
		t.Errorf("created = %+v", created)
	}

	got, err := records.Get(ctx, "job-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Title != "Engineer" {
		t.Errorf("title = %q", got.Title)
	}

	if _, err := records.Update(ctx, testDoc{ID: "job-1", Title: "Senior Engineer"}); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, _ = records.Get(ctx, "job-1")
	if got.Title != "Senior Engineer" {
		t.Errorf("title after update = %q", got.Title)
	}

	if err := records.Delete(ctx, "job-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := records.Get(ctx, "job-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}

package data

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func setupTestDB(t *testing.T) *Repository {
	t.Helper()

	repo, err := NewDuckDBRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to init DB: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestSetAndGet(t *testing.T) {
	ctx := context.Background()
	repo := setupTestDB(t)

	if err := repo.Set(ctx, "recently_viewed_manga", []byte(`[{"title":"Test"}]`)); err != nil {
		t.Fatalf("Failed to set key: %v", err)
	}

	value, ok, err := repo.Get(ctx, "recently_viewed_manga")
	if err != nil {
		t.Fatalf("Failed to get key: %v", err)
	}
	if !ok {
		t.Fatal("Expected key to be found")
	}
	if string(value) != `[{"title":"Test"}]` {
		t.Errorf("Unexpected value: %s", value)
	}
}

func TestSetOverwrites(t *testing.T) {
	ctx := context.Background()
	repo := setupTestDB(t)

	repo.Set(ctx, "k", []byte("first"))
	if err := repo.Set(ctx, "k", []byte("second")); err != nil {
		t.Fatalf("Failed to overwrite key: %v", err)
	}

	value, _, _ := repo.Get(ctx, "k")
	if string(value) != "second" {
		t.Errorf("Expected 'second', got '%s'", value)
	}

	var rows int
	if err := repo.db.QueryRow(`SELECT COUNT(*) FROM kv`).Scan(&rows); err != nil {
		t.Fatalf("Failed to count rows: %v", err)
	}
	if rows != 1 {
		t.Errorf("Expected 1 row, got %d", rows)
	}
}

func TestGetMissingKey(t *testing.T) {
	repo := setupTestDB(t)

	value, ok, err := repo.Get(context.Background(), "non-existent")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if ok || value != nil {
		t.Error("Expected missing key to report not found")
	}
}

func TestRemove(t *testing.T) {
	ctx := context.Background()
	repo := setupTestDB(t)

	repo.Set(ctx, "k", []byte("v"))
	if err := repo.Remove(ctx, "k"); err != nil {
		t.Fatalf("Failed to remove key: %v", err)
	}
	if _, ok, _ := repo.Get(ctx, "k"); ok {
		t.Error("Expected key to be removed")
	}

	// Removing twice is fine.
	if err := repo.Remove(ctx, "k"); err != nil {
		t.Errorf("Expected no error removing absent key, got: %v", err)
	}
}

func TestInitDuckDBCreatesDirectory(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "dir", "test.db")

	db, err := InitDuckDB(dbPath)
	if err != nil {
		t.Fatalf("Failed to initialize DB with nested path: %v", err)
	}
	defer db.Close()

	var tableCount int
	err = db.QueryRow(`SELECT COUNT(*) FROM information_schema.tables WHERE table_name = 'kv'`).Scan(&tableCount)
	if err != nil {
		t.Fatalf("Failed to query tables: %v", err)
	}
	if tableCount != 1 {
		t.Errorf("Expected kv table, got %d tables", tableCount)
	}
}

func TestStoreErrorAfterClose(t *testing.T) {
	repo, err := NewDuckDBRepository(filepath.Join(t.TempDir(), "closed.db"))
	if err != nil {
		t.Fatalf("Failed to init DB: %v", err)
	}
	repo.Close()

	err = repo.Set(context.Background(), "k", []byte("v"))
	var storeErr *StoreError
	if !errors.As(err, &storeErr) {
		t.Fatalf("Expected StoreError, got %v", err)
	}
	if storeErr.Op != "set" || storeErr.Key != "k" {
		t.Errorf("Unexpected StoreError fields: %+v", storeErr)
	}
}

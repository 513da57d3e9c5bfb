package storage_test

import (
	"path/filepath"
	"testing"

	"savings/internal/storage"
	"savings/internal/storage/storagetest"
)

func TestSQLiteRepository(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.GoalRecords {
		repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "data", "goals.db"))
		if err != nil {
			t.Fatalf("NewSQLiteRepository() error = %v", err)
		}
		t.Cleanup(func() { repo.Close() })
		return repo
	})
}

func TestSQLiteMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "goals.db")
	for i := 0; i < 2; i++ {
		repo, err := storage.NewSQLiteRepository(path)
		if err != nil {
			t.Fatalf("open #%d: %v", i+1, err)
		}
		repo.Close()
	}
}

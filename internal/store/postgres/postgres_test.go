package postgres

import (
	"os"
	"testing"

	"github.com/vanj900/cellgov/internal/store"
	"github.com/vanj900/cellgov/internal/store/storetest"
)

func makePGStore(t *testing.T) store.Store {
	t.Helper()
	dsn := os.Getenv("CELLGOV_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("CELLGOV_POSTGRES_DSN not set; skipping postgres store integration test")
	}
	db, err := Open(dsn)
	if err != nil {
		t.Fatalf("postgres open: %v", err)
	}
	s, err := NewWithDB(db)
	if err != nil {
		t.Fatalf("postgres schema: %v", err)
	}
	return s
}

func TestPostgresStore_Compliance(t *testing.T) {
	storetest.Run(t, makePGStore)
}

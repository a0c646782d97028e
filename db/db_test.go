package db

import (
	"context"
	"database/sql"
	"os"
	"testing"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv("TEST_PG_DSN")
	if dsn == "" {
		t.Skip("TEST_PG_DSN not set")
	}
	database, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := Migrate(context.Background(), database); err != nil {
		database.Close()
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return database
}

func TestMigrateIsIdempotent(t *testing.T) {
	database := setupDB(t)
	// Re-running migrations must be a no-op.
	if err := Migrate(context.Background(), database); err != nil {
		t.Fatal(err)
	}
}

func TestKVRoundTrip(t *testing.T) {
	database := setupDB(t)
	ctx := context.Background()

	if v, err := GetKV(ctx, database, "test_missing"); err != nil || v != "" {
		t.Fatalf("GetKV absent = %q, %v", v, err)
	}
	if err := SetKV(ctx, database, "test_key", "v1"); err != nil {
		t.Fatal(err)
	}
	if err := SetKV(ctx, database, "test_key", "v2"); err != nil {
		t.Fatal(err)
	}
	v, err := GetKV(ctx, database, "test_key")
	if err != nil || v != "v2" {
		t.Fatalf("GetKV = %q, %v", v, err)
	}
	_, _ = database.ExecContext(ctx, `DELETE FROM kv WHERE key='test_key'`)
}

func TestKVOffsetStore(t *testing.T) {
	database := setupDB(t)
	ctx := context.Background()
	store := &KVOffsetStore{DB: database}

	t.Cleanup(func() {
		_, _ = database.ExecContext(ctx, `DELETE FROM kv WHERE key='tg_update_offset'`)
	})

	if err := store.Save(ctx, 4711); err != nil {
		t.Fatal(err)
	}
	got, err := store.Load(ctx)
	if err != nil || got != 4711 {
		t.Fatalf("Load = %d, %v", got, err)
	}
}

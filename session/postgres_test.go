package session

import (
	"context"
	"testing"
	"time"

	"github.com/zayedali554/udaylive-bot/testutil"
)

func TestPostgresStoreRoundTrip(t *testing.T) {
	database := testutil.SetupTestDB(t)
	ctx := context.Background()
	store := NewPostgresStore(database, 24*time.Hour)

	t.Cleanup(func() {
		_, _ = database.ExecContext(ctx, `DELETE FROM admin_sessions WHERE conversation_id LIKE 'test-%'`)
	})

	err := store.Put(ctx, Session{
		ConversationID: "test-5",
		Email:          "admin@example.com",
		AccessToken:    "tok-abc",
	})
	if err != nil {
		t.Fatal(err)
	}

	s, err := store.Get(ctx, "test-5")
	if err != nil {
		t.Fatal(err)
	}
	if s == nil {
		t.Fatal("session not found")
	}
	if s.Email != "admin@example.com" || s.AccessToken != "tok-abc" {
		t.Errorf("session = %+v", s)
	}

	// Upsert replaces.
	if err := store.Put(ctx, Session{ConversationID: "test-5", Email: "admin@example.com", AccessToken: "tok-def"}); err != nil {
		t.Fatal(err)
	}
	s, err = store.Get(ctx, "test-5")
	if err != nil || s == nil {
		t.Fatalf("Get = %v, %v", s, err)
	}
	if s.AccessToken != "tok-def" {
		t.Errorf("token = %q", s.AccessToken)
	}

	if err := store.Delete(ctx, "test-5"); err != nil {
		t.Fatal(err)
	}
	if s, _ := store.Get(ctx, "test-5"); s != nil {
		t.Error("session survived delete")
	}
}

func TestPostgresStoreExpiry(t *testing.T) {
	database := testutil.SetupTestDB(t)
	ctx := context.Background()
	store := NewPostgresStore(database, time.Second)

	t.Cleanup(func() {
		_, _ = database.ExecContext(ctx, `DELETE FROM admin_sessions WHERE conversation_id LIKE 'test-%'`)
	})

	stale := Session{
		ConversationID: "test-exp",
		Email:          "admin@example.com",
		AccessToken:    "tok",
		LastActivity:   time.Now().Add(-time.Minute),
	}
	if err := store.Put(ctx, stale); err != nil {
		t.Fatal(err)
	}

	if s, err := store.Get(ctx, "test-exp"); err != nil || s != nil {
		t.Fatalf("expired Get = %v, %v", s, err)
	}

	// The expired row was dropped eagerly; the sweeper finds nothing.
	n, err := store.DeleteExpired(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("DeleteExpired = %d", n)
	}
}

func TestPostgresFlowStoreRoundTrip(t *testing.T) {
	database := testutil.SetupTestDB(t)
	ctx := context.Background()
	store := NewPostgresFlowStore(database)

	t.Cleanup(func() {
		_, _ = database.ExecContext(ctx, `DELETE FROM conversation_states WHERE conversation_id LIKE 'test-%'`)
	})

	if err := store.Put(ctx, Flow{ConversationID: "test-5", Step: StepAwaitingEmail}); err != nil {
		t.Fatal(err)
	}
	// Advancing the step is an upsert.
	if err := store.Put(ctx, Flow{ConversationID: "test-5", Step: StepAwaitingPassword, Email: "a@b.c"}); err != nil {
		t.Fatal(err)
	}

	f, err := store.Get(ctx, "test-5")
	if err != nil || f == nil {
		t.Fatalf("Get = %v, %v", f, err)
	}
	if f.Step != StepAwaitingPassword || f.Email != "a@b.c" {
		t.Errorf("flow = %+v", f)
	}

	if err := store.Delete(ctx, "test-5"); err != nil {
		t.Fatal(err)
	}
	if f, _ := store.Get(ctx, "test-5"); f != nil {
		t.Error("flow survived delete")
	}
}

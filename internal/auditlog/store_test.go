package auditlog

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/nugget/cogflow/cog"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	store, err := NewStore(db)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return store
}

func TestStore_RecordAndRecent(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	env := cog.ErrorEnvelope{Kind: cog.KindError, Cause: errors.New("boom"), Input: "fail"}
	if err := store.Record(ctx, "cog-1", env); err != nil {
		t.Fatalf("record: %v", err)
	}

	entries, err := store.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	if entries[0].CogID != "cog-1" || entries[0].Kind != cog.KindError || entries[0].Cause != "boom" {
		t.Errorf("entry = %+v, want cog-1/error/boom", entries[0])
	}
	if entries[0].Input != "fail" {
		t.Errorf("entry.Input = %q, want fail", entries[0].Input)
	}
}

func TestStore_Count(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		env := cog.ErrorEnvelope{Kind: cog.KindError, Cause: errors.New("x"), Input: i}
		if err := store.Record(ctx, "cog-1", env); err != nil {
			t.Fatalf("record %d: %v", i, err)
		}
	}

	n, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 3 {
		t.Errorf("count = %d, want 3", n)
	}
}

func TestStore_WatchPersistsOnlyErrorEnvelopes(t *testing.T) {
	store := setupTestStore(t)

	source := cog.NewChannel(cog.Fixed(4))
	b := cog.NewBroadcast(source)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		store.Watch(ctx, "cog-1", b)
		close(done)
	}()

	source.Send("ordinary output") // not an ErrorEnvelope; ignored
	source.Send(cog.ErrorEnvelope{Kind: cog.KindError, Cause: errors.New("boom"), Input: "fail"})
	source.Close()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Watch did not exit after the source closed")
	}

	n, err := store.Count(context.Background())
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Errorf("count = %d, want 1 (only the error envelope)", n)
	}
}

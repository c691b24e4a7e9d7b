// ABOUTME: Tests for SQLite store implementation
// ABOUTME: Covers local storage CRUD, namespace isolation, and chat transcripts

package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestNewSQLiteStore(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	store, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	defer store.Close()

	// Verify the database file was created
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestNewSQLiteStore_CreatesDirectory(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "subdir", "nested", "test.db")

	store, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	defer store.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("database file was not created in nested directory")
	}
}

func TestNewSQLiteStore_Memory(t *testing.T) {
	store, err := NewSQLiteStore(MemoryPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.SetItem(ctx, "ns", "k", "v"); err != nil {
		t.Fatalf("SetItem failed: %v", err)
	}
	item, err := store.GetItem(ctx, "ns", "k")
	if err != nil {
		t.Fatalf("GetItem failed: %v", err)
	}
	if item.Value != "v" {
		t.Errorf("Value mismatch: got %q, want %q", item.Value, "v")
	}
}

func TestSetAndGetItem(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	ctx := context.Background()
	before := time.Now().UTC().Add(-time.Second)

	if err := store.SetItem(ctx, "key-1", "adminUser", `{"id":1}`); err != nil {
		t.Fatalf("SetItem failed: %v", err)
	}

	got, err := store.GetItem(ctx, "key-1", "adminUser")
	if err != nil {
		t.Fatalf("GetItem failed: %v", err)
	}
	if got.Value != `{"id":1}` {
		t.Errorf("Value mismatch: got %q", got.Value)
	}
	if got.Namespace != "key-1" || got.Key != "adminUser" {
		t.Errorf("identity mismatch: got %q/%q", got.Namespace, got.Key)
	}
	if got.UpdatedAt.Before(before) {
		t.Errorf("UpdatedAt %v is before %v", got.UpdatedAt, before)
	}
}

func TestSetItem_Upsert(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	ctx := context.Background()
	for _, v := range []string{"first", "second"} {
		if err := store.SetItem(ctx, "ns", "k", v); err != nil {
			t.Fatalf("SetItem(%q) failed: %v", v, err)
		}
	}

	got, err := store.GetItem(ctx, "ns", "k")
	if err != nil {
		t.Fatalf("GetItem failed: %v", err)
	}
	if got.Value != "second" {
		t.Errorf("expected upserted value %q, got %q", "second", got.Value)
	}

	keys, err := store.ListKeys(ctx, "ns")
	if err != nil {
		t.Fatalf("ListKeys failed: %v", err)
	}
	if len(keys) != 1 {
		t.Errorf("expected 1 key after upsert, got %d", len(keys))
	}
}

func TestGetItem_NotFound(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	_, err := store.GetItem(context.Background(), "ns", "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestRemoveItem(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	ctx := context.Background()
	if err := store.SetItem(ctx, "ns", "k", "v"); err != nil {
		t.Fatalf("SetItem failed: %v", err)
	}
	if err := store.RemoveItem(ctx, "ns", "k"); err != nil {
		t.Fatalf("RemoveItem failed: %v", err)
	}
	if _, err := store.GetItem(ctx, "ns", "k"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after remove, got %v", err)
	}

	// Removing again is a no-op
	if err := store.RemoveItem(ctx, "ns", "k"); err != nil {
		t.Errorf("second RemoveItem failed: %v", err)
	}
}

func TestNamespacesAreIsolated(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	ctx := context.Background()
	if err := store.SetItem(ctx, "alice", "adminUser", "A"); err != nil {
		t.Fatalf("SetItem failed: %v", err)
	}
	if err := store.SetItem(ctx, "bob", "adminUser", "B"); err != nil {
		t.Fatalf("SetItem failed: %v", err)
	}

	a, err := store.GetItem(ctx, "alice", "adminUser")
	if err != nil {
		t.Fatalf("GetItem failed: %v", err)
	}
	if a.Value != "A" {
		t.Errorf("alice sees %q", a.Value)
	}

	if err := store.RemoveItem(ctx, "bob", "adminUser"); err != nil {
		t.Fatalf("RemoveItem failed: %v", err)
	}
	if _, err := store.GetItem(ctx, "alice", "adminUser"); err != nil {
		t.Errorf("removing bob's entry affected alice: %v", err)
	}
	if _, err := store.GetItem(ctx, "", "adminUser"); !errors.Is(err, ErrNotFound) {
		t.Errorf("empty namespace should be distinct, got %v", err)
	}
}

func TestListKeys_Ordered(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	ctx := context.Background()
	for _, k := range []string{"zeta", "alpha", "mid"} {
		if err := store.SetItem(ctx, "ns", k, "v"); err != nil {
			t.Fatalf("SetItem failed: %v", err)
		}
	}

	keys, err := store.ListKeys(ctx, "ns")
	if err != nil {
		t.Fatalf("ListKeys failed: %v", err)
	}
	want := []string{"alpha", "mid", "zeta"}
	if fmt.Sprint(keys) != fmt.Sprint(want) {
		t.Errorf("keys = %v, want %v", keys, want)
	}

	empty, err := store.ListKeys(ctx, "other")
	if err != nil {
		t.Fatalf("ListKeys failed: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("expected no keys, got %v", empty)
	}
}

func TestChatMessages(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		sender := ChatSenderAdmin
		if i%2 == 1 {
			sender = ChatSenderAI
		}
		msg := &ChatMessage{Namespace: "ns", Sender: sender, Text: fmt.Sprintf("msg-%d", i)}
		if err := store.SaveChatMessage(ctx, msg); err != nil {
			t.Fatalf("SaveChatMessage failed: %v", err)
		}
		if msg.ID == 0 {
			t.Error("expected ID to be assigned")
		}
	}
	if err := store.SaveChatMessage(ctx, &ChatMessage{Namespace: "other", Sender: ChatSenderAdmin, Text: "x"}); err != nil {
		t.Fatalf("SaveChatMessage failed: %v", err)
	}

	all, err := store.ListChatMessages(ctx, "ns", 0)
	if err != nil {
		t.Fatalf("ListChatMessages failed: %v", err)
	}
	if len(all) != 5 {
		t.Fatalf("expected 5 messages, got %d", len(all))
	}

	last, err := store.ListChatMessages(ctx, "ns", 2)
	if err != nil {
		t.Fatalf("ListChatMessages failed: %v", err)
	}
	if len(last) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(last))
	}
	if last[0].Text != "msg-3" || last[1].Text != "msg-4" {
		t.Errorf("expected newest two oldest-first, got %q, %q", last[0].Text, last[1].Text)
	}
	if last[1].Sender != ChatSenderAI {
		t.Errorf("sender mismatch: got %q", last[1].Sender)
	}
}

func TestSaveChatMessage_Validation(t *testing.T) {
	store := newTestStore(t)
	defer store.Close()

	ctx := context.Background()
	if err := store.SaveChatMessage(ctx, &ChatMessage{Sender: ChatSenderAdmin, Text: "x"}); !errors.Is(err, ErrEmptyNamespace) {
		t.Errorf("expected ErrEmptyNamespace, got %v", err)
	}
	if err := store.SaveChatMessage(ctx, &ChatMessage{Namespace: "ns", Sender: "robot", Text: "x"}); err == nil {
		t.Error("expected unknown sender to be rejected")
	}
}

// newTestStore creates a temporary SQLite store for testing
func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	store, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}

	return store
}

package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	cache, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { cache.Close() })
	if err := cache.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	return cache
}

func TestSessionLifecycle(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()

	if _, _, err := cache.LoadSession(ctx); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}

	if err := cache.SaveSession(ctx, "u-alice", "tok-1"); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}
	userID, token, err := cache.LoadSession(ctx)
	if err != nil {
		t.Fatalf("LoadSession: %v", err)
	}
	if userID != "u-alice" || token != "tok-1" {
		t.Fatalf("unexpected session: %s %s", userID, token)
	}

	// saving again replaces the single row
	if err := cache.SaveSession(ctx, "u-alice", "tok-2"); err != nil {
		t.Fatalf("SaveSession replace: %v", err)
	}
	_, token, err = cache.LoadSession(ctx)
	if err != nil {
		t.Fatalf("LoadSession after replace: %v", err)
	}
	if token != "tok-2" {
		t.Fatalf("expected replaced token, got %s", token)
	}

	if err := cache.ClearSession(ctx); err != nil {
		t.Fatalf("ClearSession: %v", err)
	}
	if _, _, err := cache.LoadSession(ctx); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession after clear, got %v", err)
	}
}

func TestMessageHistory(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()
	ts := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	history := []CachedMessage{
		{ID: "m1", SenderID: "u-bob", MessageType: "text", Content: "first", Timestamp: ts},
		{ID: "m2", SenderID: "u-me", MessageType: "file", FileURL: "/files/x.png", Timestamp: ts.Add(time.Minute)},
	}
	if err := cache.ReplaceMessages(ctx, 1, "u-bob", history); err != nil {
		t.Fatalf("ReplaceMessages: %v", err)
	}
	if err := cache.AppendMessage(ctx, 1, "u-bob", CachedMessage{
		ID: "m3", SenderID: "u-bob", MessageType: "text", Content: "third", Timestamp: ts.Add(2 * time.Minute),
	}); err != nil {
		t.Fatalf("AppendMessage: %v", err)
	}

	messages, err := cache.ListMessages(ctx, 1, "u-bob")
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	if len(messages) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(messages))
	}
	for i, want := range []string{"m1", "m2", "m3"} {
		if messages[i].ID != want {
			t.Fatalf("order broken at %d: got %s", i, messages[i].ID)
		}
	}
	if messages[1].FileURL != "/files/x.png" {
		t.Fatalf("file url lost: %+v", messages[1])
	}

	// a different conversation is isolated
	other, err := cache.ListMessages(ctx, 2, "ch-1")
	if err != nil {
		t.Fatalf("ListMessages other: %v", err)
	}
	if len(other) != 0 {
		t.Fatalf("conversations bled together: %+v", other)
	}

	// replace swaps the whole history
	if err := cache.ReplaceMessages(ctx, 1, "u-bob", history[:1]); err != nil {
		t.Fatalf("ReplaceMessages shrink: %v", err)
	}
	messages, err = cache.ListMessages(ctx, 1, "u-bob")
	if err != nil {
		t.Fatalf("ListMessages after shrink: %v", err)
	}
	if len(messages) != 1 || messages[0].ID != "m1" {
		t.Fatalf("replace did not swap the history: %+v", messages)
	}
}

func TestSidebarListsKeepOrder(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()

	contacts := []CachedContact{
		{ID: "u-carol", Name: "Carol"},
		{ID: "u-alice", Name: "Alice", ProfilePicture: "alice.png"},
	}
	if err := cache.ReplaceContacts(ctx, contacts); err != nil {
		t.Fatalf("ReplaceContacts: %v", err)
	}
	gotContacts, err := cache.ListContacts(ctx)
	if err != nil {
		t.Fatalf("ListContacts: %v", err)
	}
	if len(gotContacts) != 2 || gotContacts[0].ID != "u-carol" || gotContacts[1].ID != "u-alice" {
		t.Fatalf("contact order lost: %+v", gotContacts)
	}
	if gotContacts[1].ProfilePicture != "alice.png" {
		t.Fatalf("profile picture lost: %+v", gotContacts[1])
	}

	channels := []CachedChannel{
		{ID: "ch-2", Name: "random"},
		{ID: "ch-1", Name: "general"},
	}
	if err := cache.ReplaceChannels(ctx, channels); err != nil {
		t.Fatalf("ReplaceChannels: %v", err)
	}
	gotChannels, err := cache.ListChannels(ctx)
	if err != nil {
		t.Fatalf("ListChannels: %v", err)
	}
	if len(gotChannels) != 2 || gotChannels[0].ID != "ch-2" || gotChannels[1].ID != "ch-1" {
		t.Fatalf("channel order lost: %+v", gotChannels)
	}

	// replace swaps in the new ordering
	if err := cache.ReplaceContacts(ctx, []CachedContact{contacts[1], contacts[0]}); err != nil {
		t.Fatalf("ReplaceContacts reorder: %v", err)
	}
	gotContacts, err = cache.ListContacts(ctx)
	if err != nil {
		t.Fatalf("ListContacts after reorder: %v", err)
	}
	if gotContacts[0].ID != "u-alice" {
		t.Fatalf("reorder not applied: %+v", gotContacts)
	}
}

package snapshot

import (
	"context"
	"testing"
	"time"

	"github.com/wen-tracker-go/internal/config"
	"github.com/wen-tracker-go/internal/models"
)

func memStore(maxHistory int) *MemoryStore {
	return NewMemoryStore(&config.Config{
		Snapshots: config.SnapshotConfig{Backend: "memory", MaxHistory: maxHistory},
	})
}

func snapAt(occurrences int) *models.Snapshot {
	return &models.Snapshot{
		TotalOccurrences:  occurrences,
		MessagesWithMatch: occurrences,
		TotalMessagesSeen: occurrences * 2,
		TakenAt:           time.Now().UTC(),
	}
}

func TestMemoryStoreLatest(t *testing.T) {
	ctx := context.Background()
	store := memStore(10)
	conv := ConversationKey("http://example.com/conv/abc")

	latest, err := store.Latest(ctx, conv)
	if err != nil {
		t.Fatalf("Latest returned error: %v", err)
	}
	if latest != nil {
		t.Fatal("Latest on empty store should return nil, nil")
	}

	for i := 1; i <= 3; i++ {
		if err := store.Save(ctx, conv, snapAt(i)); err != nil {
			t.Fatalf("Save returned error: %v", err)
		}
	}

	latest, err = store.Latest(ctx, conv)
	if err != nil {
		t.Fatalf("Latest returned error: %v", err)
	}
	if latest == nil || latest.TotalOccurrences != 3 {
		t.Errorf("Latest = %+v, want the most recent snapshot (3 occurrences)", latest)
	}
}

func TestMemoryStoreHistoryOrderAndCap(t *testing.T) {
	ctx := context.Background()
	store := memStore(3)
	conv := ConversationKey("http://example.com/conv/abc")

	for i := 1; i <= 5; i++ {
		if err := store.Save(ctx, conv, snapAt(i)); err != nil {
			t.Fatalf("Save returned error: %v", err)
		}
	}

	history, err := store.History(ctx, conv, 0)
	if err != nil {
		t.Fatalf("History returned error: %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("got %d snapshots, want history capped at 3", len(history))
	}
	// Newest first, oldest entries dropped
	for i, want := range []int{5, 4, 3} {
		if history[i].TotalOccurrences != want {
			t.Errorf("history[%d].TotalOccurrences = %d, want %d", i, history[i].TotalOccurrences, want)
		}
	}

	limited, err := store.History(ctx, conv, 2)
	if err != nil {
		t.Fatalf("History returned error: %v", err)
	}
	if len(limited) != 2 || limited[0].TotalOccurrences != 5 {
		t.Errorf("limited history = %+v, want the 2 newest snapshots", limited)
	}
}

func TestMemoryStoreIsolatesConversations(t *testing.T) {
	ctx := context.Background()
	store := memStore(10)

	if err := store.Save(ctx, ConversationKey("http://a"), snapAt(1)); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	latest, err := store.Latest(ctx, ConversationKey("http://b"))
	if err != nil {
		t.Fatalf("Latest returned error: %v", err)
	}
	if latest != nil {
		t.Error("snapshots leaked across conversation keys")
	}
}

func TestConversationKey(t *testing.T) {
	a := ConversationKey("http://example.com/conv/abc")
	b := ConversationKey("http://example.com/conv/xyz")

	if len(a) != 12 {
		t.Errorf("key length = %d, want 12 hex chars", len(a))
	}
	if a == b {
		t.Error("distinct URLs produced the same key")
	}
	if a != ConversationKey("http://example.com/conv/abc") {
		t.Error("key is not stable for the same URL")
	}
}

func TestNewManagerRejectsUnknownBackend(t *testing.T) {
	_, err := NewManager(&config.Config{
		Snapshots: config.SnapshotConfig{Backend: "dynamo"},
	}, nil)
	if err == nil {
		t.Fatal("expected error for unsupported backend")
	}
}

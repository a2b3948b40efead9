package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tbourn/character-chat-backend/internal/domain"
)

func TestAppendMessage_CreatesRecordOnFirstCall(t *testing.T) {
	db := newRepoDB(t)
	ctx := context.Background()
	key := domain.PairKeyFor("Bob", "Alice")

	ts := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	m := &domain.Message{Sender: "Bob", Text: "hello", Timestamp: ts}
	if err := AppendMessage(ctx, db, key, m); err != nil {
		t.Fatalf("AppendMessage: %v", err)
	}
	if m.ID == 0 || m.ChatID == "" {
		t.Fatalf("expected ID and ChatID assigned, got %+v", m)
	}

	var rec domain.ChatRecord
	if err := db.First(&rec, "pair_key = ?", string(key)).Error; err != nil {
		t.Fatalf("load chat record: %v", err)
	}
	if rec.ID != m.ChatID || rec.CharacterA != "Alice" || rec.CharacterB != "Bob" {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if !rec.CreatedAt.Equal(ts) {
		t.Fatalf("CreatedAt=%v want %v", rec.CreatedAt, ts)
	}
}

func TestAppendMessage_ReusesRecordAndPreservesOrder(t *testing.T) {
	db := newRepoDB(t)
	ctx := context.Background()

	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	texts := []string{"one", "two", "three"}
	var chatID string
	for i, txt := range texts {
		// Alternate argument order; both must land in the same record.
		key := domain.PairKeyFor("Alice", "Bob")
		if i%2 == 1 {
			key = domain.PairKeyFor("Bob", "Alice")
		}
		m := &domain.Message{Sender: "Alice", Text: txt, Timestamp: base.Add(time.Duration(i) * time.Minute)}
		if err := AppendMessage(ctx, db, key, m); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
		if chatID == "" {
			chatID = m.ChatID
		} else if m.ChatID != chatID {
			t.Fatalf("append %d went to chat %q, want %q", i, m.ChatID, chatID)
		}
	}

	var records int64
	db.Model(&domain.ChatRecord{}).Count(&records)
	if records != 1 {
		t.Fatalf("expected one chat record, got %d", records)
	}

	var rec domain.ChatRecord
	db.First(&rec, "id = ?", chatID)
	if want := base.Add(2 * time.Minute); !rec.UpdatedAt.Equal(want) {
		t.Fatalf("UpdatedAt=%v want %v", rec.UpdatedAt, want)
	}

	key := domain.PairKeyFor("Alice", "Bob")
	n, err := CountMessages(ctx, db, key)
	if err != nil || n != 3 {
		t.Fatalf("CountMessages = %d, %v; want 3", n, err)
	}

	page, err := ListMessagesPage(ctx, db, key, 0, 10)
	if err != nil {
		t.Fatalf("ListMessagesPage: %v", err)
	}
	if len(page) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(page))
	}
	for i, m := range page {
		if m.Text != texts[i] {
			t.Fatalf("order mismatch at %d: %q", i, m.Text)
		}
	}

	page, err = ListMessagesPage(ctx, db, key, 1, 1)
	if err != nil || len(page) != 1 || page[0].Text != "two" {
		t.Fatalf("second page mismatch: %+v err=%v", page, err)
	}
}

func TestAppendMessage_PairsAreIsolated(t *testing.T) {
	db := newRepoDB(t)
	ctx := context.Background()

	ab := domain.PairKeyFor("Alice", "Bob")
	ac := domain.PairKeyFor("Alice", "Carol")
	if err := AppendMessage(ctx, db, ab, &domain.Message{Sender: "Alice", Text: "x"}); err != nil {
		t.Fatalf("append ab: %v", err)
	}
	if n, _ := CountMessages(ctx, db, ac); n != 0 {
		t.Fatalf("expected no messages for Alice/Carol, got %d", n)
	}
	if n, _ := CountMessages(ctx, db, ab); n != 1 {
		t.Fatalf("expected 1 message for Alice/Bob, got %d", n)
	}
}

func TestAppendMessage_DefaultsTimestamp(t *testing.T) {
	db := newRepoDB(t)
	start := time.Now().UTC().Add(-time.Second)

	m := &domain.Message{Sender: "Alice", Text: "x"}
	if err := AppendMessage(context.Background(), db, domain.PairKeyFor("Alice", "Bob"), m); err != nil {
		t.Fatalf("AppendMessage: %v", err)
	}
	if m.Timestamp.Before(start) {
		t.Fatalf("timestamp not defaulted: %v", m.Timestamp)
	}
}

func TestGetMessage(t *testing.T) {
	db := newRepoDB(t)
	ctx := context.Background()

	m := &domain.Message{Sender: "Alice", Text: "kept"}
	if err := AppendMessage(ctx, db, domain.PairKeyFor("Alice", "Bob"), m); err != nil {
		t.Fatalf("AppendMessage: %v", err)
	}
	got, err := GetMessage(ctx, db, m.ID)
	if err != nil || got.Text != "kept" {
		t.Fatalf("GetMessage = %+v, %v", got, err)
	}
	if _, err := GetMessage(ctx, db, m.ID+100); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMessagesStats(t *testing.T) {
	db := newRepoDB(t)
	ctx := context.Background()
	key := domain.PairKeyFor("Alice", "Bob")

	n, last, err := MessagesStats(ctx, db, key)
	if err != nil || n != 0 || last != nil {
		t.Fatalf("empty stats = (%d, %v, %v)", n, last, err)
	}

	t1 := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Minute)
	for _, ts := range []time.Time{t1, t2} {
		if err := AppendMessage(ctx, db, key, &domain.Message{Sender: "Alice", Text: "x", Timestamp: ts}); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	n, last, err = MessagesStats(ctx, db, key)
	if err != nil {
		t.Fatalf("MessagesStats: %v", err)
	}
	if n != 2 || last == nil || !last.Equal(t2) {
		t.Fatalf("stats = (%d, %v); want (2, %v)", n, last, t2)
	}
}

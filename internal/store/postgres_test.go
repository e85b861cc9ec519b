package store

import (
	"context"
	"os"
	"testing"
)

// Postgres must honor the exact transactional semantics the SQLite tests
// pin down, so the same scenarios run against a real server when
// CHATAPP_TEST_POSTGRES_DSN is set.
func testPostgresStore(t *testing.T) Store {
	t.Helper()
	dsn := os.Getenv("CHATAPP_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("CHATAPP_TEST_POSTGRES_DSN not set")
	}
	s, err := OpenPostgres(dsn)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPostgres_PreviewColumnsAndCascade(t *testing.T) {
	s := testPostgresStore(t)
	ctx := context.Background()

	id := createTestConversation(t, s, "pg previews", "gpt-4o-mini")
	t.Cleanup(func() { s.DeleteConversation(ctx, id) })

	appendTestMessage(t, s, id, "user", "Hi")
	appendTestMessage(t, s, id, "assistant", "Hello there!")
	appendTestMessage(t, s, id, "user", "second user message")

	conv, err := s.GetConversation(ctx, id, true)
	if err != nil {
		t.Fatal(err)
	}
	if conv.FirstUserMessage == nil || *conv.FirstUserMessage != "Hi" {
		t.Errorf("expected first_user_message 'Hi', got %v", conv.FirstUserMessage)
	}
	if conv.FirstAssistantMessage == nil || *conv.FirstAssistantMessage != "Hello there!" {
		t.Errorf("expected first_assistant_message 'Hello there!', got %v", conv.FirstAssistantMessage)
	}
	if len(conv.Messages) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(conv.Messages))
	}

	deleted, err := s.DeleteConversation(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if !deleted {
		t.Fatal("expected deletion to report true")
	}
	if _, err := s.GetConversation(ctx, id, false); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestPostgres_AppendUnknownConversation(t *testing.T) {
	s := testPostgresStore(t)
	_, err := s.AppendMessage(context.Background(), "00000000-0000-0000-0000-000000000000", NewMessage{Role: "user", Content: "hi"})
	if err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

package storage

import (
	"context"
	"testing"

	"github.com/meatline/meatline/history"
	"github.com/meatline/meatline/llm"
)

func TestSqliteStoreAppendAndList(t *testing.T) {
	store, err := NewSqliteInMemory()
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer store.Close()

	ctx := context.Background()

	turns := []history.Turn{
		{ClientID: "+79990000001", Role: llm.RoleUser, Message: "привет"},
		{ClientID: "+79990000001", Role: llm.RoleAssistant, Message: "здравствуйте"},
	}

	if err := store.Append(ctx, turns); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	loaded, err := store.List(ctx, "+79990000001")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}

	if len(loaded) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(loaded))
	}
	if loaded[0].Message != "привет" {
		t.Errorf("expected 'привет', got '%s'", loaded[0].Message)
	}
	if loaded[1].Role != llm.RoleAssistant {
		t.Errorf("expected assistant role, got '%s'", loaded[1].Role)
	}
}

func TestSqliteStoreAppendPreservesOrder(t *testing.T) {
	store, err := NewSqliteInMemory()
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer store.Close()

	ctx := context.Background()

	first := []history.Turn{{ClientID: "c", Role: llm.RoleUser, Message: "первое"}}
	second := []history.Turn{{ClientID: "c", Role: llm.RoleAssistant, Message: "второе"}}

	if err := store.Append(ctx, first); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if err := store.Append(ctx, second); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	loaded, err := store.List(ctx, "c")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(loaded) != 2 || loaded[0].Message != "первое" || loaded[1].Message != "второе" {
		t.Errorf("order not preserved: %+v", loaded)
	}
}

func TestSqliteStoreListUnknownClient(t *testing.T) {
	store, err := NewSqliteInMemory()
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer store.Close()

	loaded, err := store.List(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(loaded) != 0 {
		t.Errorf("expected empty slice, got %d turns", len(loaded))
	}
}

func TestSqliteStoreDeleteAll(t *testing.T) {
	store, err := NewSqliteInMemory()
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer store.Close()

	ctx := context.Background()

	turns := []history.Turn{
		{ClientID: "a", Role: llm.RoleUser, Message: "x"},
		{ClientID: "b", Role: llm.RoleUser, Message: "y"},
	}
	if err := store.Append(ctx, turns); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	if err := store.DeleteAll(ctx, "a"); err != nil {
		t.Fatalf("DeleteAll failed: %v", err)
	}

	remaining, err := store.List(ctx, "a")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(remaining) != 0 {
		t.Errorf("expected history cleared, got %d turns", len(remaining))
	}

	other, err := store.List(ctx, "b")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(other) != 1 {
		t.Errorf("other client's history must survive, got %d turns", len(other))
	}
}

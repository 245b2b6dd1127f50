package sqlgen

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/meatline/meatline/llm"
)

// scriptedProvider replays canned responses and records prompts.
type scriptedProvider struct {
	responses []string
	errs      []error
	prompts   []string
	calls     int
}

func (p *scriptedProvider) Name() string  { return "scripted" }
func (p *scriptedProvider) Model() string { return "test-model" }

func (p *scriptedProvider) Chat(_ context.Context, messages []llm.ChatMessage) (llm.LLMResponse, error) {
	idx := p.calls
	p.calls++
	p.prompts = append(p.prompts, messages[len(messages)-1].Content)
	if idx < len(p.errs) && p.errs[idx] != nil {
		return llm.LLMResponse{}, p.errs[idx]
	}
	if idx < len(p.responses) {
		return llm.LLMResponse{Content: p.responses[idx]}, nil
	}
	return llm.LLMResponse{}, errors.New("no scripted response")
}

func (p *scriptedProvider) ChatWithTools(ctx context.Context, messages []llm.ChatMessage, _ []llm.ToolDefinition) (llm.LLMResponse, error) {
	return p.Chat(ctx, messages)
}

type scriptedExecutor struct {
	rows    []map[string]any
	errs    []error
	queries []string
}

func (e *scriptedExecutor) RunQuery(_ context.Context, query string) ([]map[string]any, error) {
	idx := len(e.queries)
	e.queries = append(e.queries, query)
	if idx < len(e.errs) && e.errs[idx] != nil {
		return nil, e.errs[idx]
	}
	return e.rows, nil
}

func TestGeneratorFirstAttemptSucceeds(t *testing.T) {
	provider := &scriptedProvider{
		responses: []string{"Вот запрос:\n```sql\nSELECT title FROM products LIMIT 5\n```"},
	}
	executor := &scriptedExecutor{
		rows: []map[string]any{{"title": "Говядина", "embedding": []float32{0.1}}},
	}

	rows := NewGenerator(provider, executor).Rows(context.Background(), "товары", "", "")

	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if _, ok := rows[0]["embedding"]; ok {
		t.Error("embedding column must be stripped from results")
	}
	if rows[0]["title"] != "Говядина" {
		t.Errorf("unexpected row %v", rows[0])
	}
	if len(executor.queries) != 1 || executor.queries[0] != "SELECT title FROM products LIMIT 5" {
		t.Errorf("unexpected executed query %v", executor.queries)
	}
}

func TestGeneratorVetoesMutationBeforeExecution(t *testing.T) {
	provider := &scriptedProvider{
		responses: []string{
			"```sql\nDELETE FROM products\n```",
			"```sql\nSELECT 1\n```",
		},
	}
	executor := &scriptedExecutor{rows: []map[string]any{{"ok": 1}}}

	rows := NewGenerator(provider, executor).Rows(context.Background(), "удали всё", "", "")

	if len(executor.queries) != 1 {
		t.Fatalf("mutating statement must never reach the executor, got %v", executor.queries)
	}
	if executor.queries[0] != "SELECT 1" {
		t.Errorf("expected only the safe retry to execute, got %q", executor.queries[0])
	}
	if len(rows) != 1 {
		t.Errorf("expected retry to succeed, got %d rows", len(rows))
	}
}

func TestGeneratorFeedsFailureIntoNextPrompt(t *testing.T) {
	provider := &scriptedProvider{
		responses: []string{
			"```sql\nSELECT bad_column FROM products\n```",
			"```sql\nSELECT title FROM products\n```",
		},
	}
	executor := &scriptedExecutor{
		rows: []map[string]any{{"title": "ok"}},
		errs: []error{errors.New(`column "bad_column" does not exist`)},
	}

	rows := NewGenerator(provider, executor).Rows(context.Background(), "товары", "", "")

	if len(rows) != 1 {
		t.Fatalf("expected retry to succeed, got %d rows", len(rows))
	}
	if len(provider.prompts) != 2 {
		t.Fatalf("expected 2 prompts, got %d", len(provider.prompts))
	}
	retry := provider.prompts[1]
	if !strings.Contains(retry, "SELECT bad_column FROM products") {
		t.Error("retry prompt must contain the failing statement verbatim")
	}
	if !strings.Contains(retry, `column "bad_column" does not exist`) {
		t.Error("retry prompt must contain the database error verbatim")
	}
}

func TestGeneratorExhaustionReturnsEmpty(t *testing.T) {
	provider := &scriptedProvider{
		responses: []string{"no sql here", "still none", "nothing"},
	}
	executor := &scriptedExecutor{}

	rows := NewGenerator(provider, executor).Rows(context.Background(), "товары", "", "")

	if rows == nil {
		t.Fatal("exhaustion must return empty slice, not nil")
	}
	if len(rows) != 0 {
		t.Errorf("expected no rows, got %d", len(rows))
	}
	if provider.calls != 3 {
		t.Errorf("expected exactly 3 attempts, got %d", provider.calls)
	}
	if len(executor.queries) != 0 {
		t.Errorf("nothing should execute, got %v", executor.queries)
	}
}

func TestGeneratorPromptCarriesContext(t *testing.T) {
	provider := &scriptedProvider{
		responses: []string{"```sql\nSELECT 1\n```"},
	}
	executor := &scriptedExecutor{rows: []map[string]any{}}

	NewGenerator(provider, executor).
		WithRowLimit(7).
		Rows(context.Background(), "мой заказ", "phone: +79990000001", "currency: RUB")

	prompt := provider.prompts[0]
	for _, want := range []string{"LIMIT 7", "phone: +79990000001", "currency: RUB", "мой заказ"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

package history

import (
	"strings"
	"testing"

	"github.com/meatline/meatline/llm"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	calls := []ToolCallRecord{
		{ID: "call_1", Name: "EnhanceUserProductQuery", Arguments: `{"query":"говядина"}`},
	}
	results := []string{"1. title: Говядина охлаждённая"}

	turns := Encode("+79990000001", "что есть из говядины?", calls, results, "Вот что нашлось")

	if len(turns) != 4 {
		t.Fatalf("expected 4 turns, got %d", len(turns))
	}
	if turns[0].Role != llm.RoleUser {
		t.Errorf("expected user turn first, got %s", turns[0].Role)
	}
	if turns[1].Role != llm.RoleTool || turns[2].Role != llm.RoleTool {
		t.Error("expected tool turns in the middle")
	}
	if turns[3].Role != llm.RoleAssistant {
		t.Errorf("expected assistant turn last, got %s", turns[3].Role)
	}

	messages := Decode(turns)
	if len(messages) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(messages))
	}

	assistant := messages[1]
	if assistant.Role != llm.RoleAssistant {
		t.Errorf("expected assistant call message, got role %s", assistant.Role)
	}
	if len(assistant.ToolCalls) != 1 {
		t.Fatalf("expected 1 tool call, got %d", len(assistant.ToolCalls))
	}
	if assistant.ToolCalls[0].ID != "call_1" {
		t.Errorf("expected call id 'call_1', got %q", assistant.ToolCalls[0].ID)
	}
	if assistant.ToolCalls[0].Name != "EnhanceUserProductQuery" {
		t.Errorf("unexpected tool name %q", assistant.ToolCalls[0].Name)
	}
	if string(assistant.ToolCalls[0].Arguments) != `{"query":"говядина"}` {
		t.Errorf("unexpected arguments %q", assistant.ToolCalls[0].Arguments)
	}

	result := messages[2]
	if result.Role != llm.RoleTool {
		t.Errorf("expected tool result message, got role %s", result.Role)
	}
	if result.ToolCallID != "call_1" {
		t.Errorf("expected result paired to 'call_1', got %q", result.ToolCallID)
	}
	if result.Content != "1. title: Говядина охлаждённая" {
		t.Errorf("unexpected result content %q", result.Content)
	}

	if messages[3].Content != "Вот что нашлось" {
		t.Errorf("unexpected final content %q", messages[3].Content)
	}
}

func TestEncodeSkipsEmptyUserMessage(t *testing.T) {
	turns := Encode("+79990000001", "", nil, nil, "Добрый день")

	if len(turns) != 1 {
		t.Fatalf("expected 1 turn, got %d", len(turns))
	}
	if turns[0].Role != llm.RoleAssistant {
		t.Errorf("expected assistant turn, got %s", turns[0].Role)
	}
}

func TestDecodeDanglingCall(t *testing.T) {
	turns := []Turn{
		{Role: llm.RoleUser, Message: "пришли фото"},
		{Role: llm.RoleTool, Message: formatCallRecord("ShowProductPhotos", "call_9", "{}")},
	}

	messages := Decode(turns)
	if len(messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(messages))
	}
	if len(messages[1].ToolCalls) != 1 {
		t.Fatalf("expected dangling call to survive, got %d calls", len(messages[1].ToolCalls))
	}
	if messages[1].ToolCalls[0].ID != "call_9" {
		t.Errorf("unexpected call id %q", messages[1].ToolCalls[0].ID)
	}
}

func TestDecodeOrphanResult(t *testing.T) {
	turns := []Turn{
		{Role: llm.RoleTool, Message: "Tool фото отправлены"},
	}

	messages := Decode(turns)
	if len(messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(messages))
	}
	if messages[0].ToolCallID != "" {
		t.Errorf("expected empty call id, got %q", messages[0].ToolCallID)
	}
	if messages[0].ToolName != UnknownToolName {
		t.Errorf("expected %q, got %q", UnknownToolName, messages[0].ToolName)
	}
	if messages[0].Content != "фото отправлены" {
		t.Errorf("expected prefix stripped, got %q", messages[0].Content)
	}
}

func TestDecodeMalformedCallPassesThrough(t *testing.T) {
	raw := "Tool call: Broken with args: not-json-at-all"
	turns := []Turn{{Role: llm.RoleTool, Message: raw}}

	messages := Decode(turns)
	if len(messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(messages))
	}
	if messages[0].Content != raw {
		t.Errorf("expected verbatim pass-through, got %q", messages[0].Content)
	}
	if len(messages[0].ToolCalls) != 0 {
		t.Error("malformed record must not produce tool calls")
	}
}

func TestDecodePlainToolMessagePassesThrough(t *testing.T) {
	turns := []Turn{{Role: llm.RoleTool, Message: "произвольная запись"}}

	messages := Decode(turns)
	if len(messages) != 1 || messages[0].Content != "произвольная запись" {
		t.Fatalf("expected verbatim pass-through, got %+v", messages)
	}
}

func TestDecodeDoesNotPairCallWithCall(t *testing.T) {
	turns := []Turn{
		{Role: llm.RoleTool, Message: formatCallRecord("ShowProductPhotos", "a", "{}")},
		{Role: llm.RoleTool, Message: formatCallRecord("ShowProductPhotos", "b", "{}")},
	}

	messages := Decode(turns)
	if len(messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(messages))
	}
	for i, m := range messages {
		if len(m.ToolCalls) != 1 {
			t.Errorf("message %d: expected one call, got %d", i, len(m.ToolCalls))
		}
	}
}

func TestParseCallRecordObjectArguments(t *testing.T) {
	raw := `Tool call: EnhanceUserProductQuery with args: {"tool_call":{"id":"x","function":{"arguments":{"query":"свинина"}}}}`

	name, id, args, err := parseCallRecord(raw)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if name != "EnhanceUserProductQuery" || id != "x" {
		t.Errorf("unexpected name/id: %q %q", name, id)
	}
	if !strings.Contains(args, `"query"`) {
		t.Errorf("expected object arguments preserved, got %q", args)
	}
}

func TestNormalizeArgumentsRejectsBadString(t *testing.T) {
	if _, err := normalizeArguments([]byte(`"not json"`)); err == nil {
		t.Error("expected error for string arguments that are not JSON")
	}
}

// Tagged classification of tool-role log records.
//
// Persisted tool records use a textual convention that predates this service:
// a call is "Tool call: <name> with args: <json>" and a result is "Tool "
// followed by free text. A record is a result by the absence of the call
// prefix. Classification happens once, here, into a tagged kind; the rest of
// the package never inspects prefixes.

package history

import (
	"encoding/json"
	"fmt"
	"strings"
)

const (
	callPrefix    = "Tool call:"
	argsSeparator = " with args: "
	resultPrefix  = "Tool "
)

type recordKind int

const (
	plainRecord recordKind = iota
	callRecord
	resultRecord
)

// classify tags a tool-role message by the persisted convention.
func classify(message string) recordKind {
	switch {
	case strings.HasPrefix(message, callPrefix):
		return callRecord
	case strings.HasPrefix(message, resultPrefix):
		return resultRecord
	default:
		return plainRecord
	}
}

// callEnvelope is the JSON payload of a call record. The arguments field may
// arrive either as a JSON-encoded string or as a bare object; both forms are
// normalized to the string form the chat APIs require.
type callEnvelope struct {
	ToolCall struct {
		ID       string `json:"id"`
		Function struct {
			Arguments json.RawMessage `json:"arguments"`
		} `json:"function"`
	} `json:"tool_call"`
}

// parseCallRecord extracts tool name, call id and serialized arguments from a
// call record's message.
func parseCallRecord(message string) (name, callID, arguments string, err error) {
	parts := strings.SplitN(message, argsSeparator, 2)
	if len(parts) != 2 {
		return "", "", "", fmt.Errorf("malformed tool call record: missing args separator")
	}
	name = strings.TrimSpace(strings.TrimPrefix(parts[0], callPrefix))

	var envelope callEnvelope
	if err := json.Unmarshal([]byte(parts[1]), &envelope); err != nil {
		return "", "", "", fmt.Errorf("malformed tool call record: %w", err)
	}

	arguments, err = normalizeArguments(envelope.ToolCall.Function.Arguments)
	if err != nil {
		return "", "", "", err
	}
	return name, envelope.ToolCall.ID, arguments, nil
}

// normalizeArguments returns the arguments as a JSON-object string.
func normalizeArguments(raw json.RawMessage) (string, error) {
	if len(raw) == 0 {
		return "{}", nil
	}

	// String form: the string content must itself be valid JSON.
	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		var probe any
		if err := json.Unmarshal([]byte(asString), &probe); err != nil {
			return "", fmt.Errorf("tool call arguments string is not valid JSON: %w", err)
		}
		return asString, nil
	}

	// Object form: keep as-is.
	var probe map[string]any
	if err := json.Unmarshal(raw, &probe); err != nil {
		return "", fmt.Errorf("tool call arguments are neither string nor object: %w", err)
	}
	return string(raw), nil
}

// formatCallRecord renders a tool call as a storable record message.
func formatCallRecord(name, callID, arguments string) string {
	var envelope callEnvelope
	envelope.ToolCall.ID = callID
	quoted, _ := json.Marshal(arguments)
	envelope.ToolCall.Function.Arguments = quoted
	payload, _ := json.Marshal(envelope)
	return callPrefix + " " + name + argsSeparator + string(payload)
}

// formatResultRecord renders a tool result as a storable record message.
func formatResultRecord(result string) string {
	return resultPrefix + result
}

// resultContent strips the result prefix from a result record's message.
func resultContent(message string) string {
	return strings.TrimPrefix(message, resultPrefix)
}

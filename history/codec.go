// Codec between stored turns and LLM-ready message sequences.
//
// The store is append-only and schemaless about call/response pairing: a tool
// call and its result are two adjacent tool-role rows. Decode is the only
// place that pairing is recovered, so it tolerates partial writes (a call
// logged without its result yet) and legacy unpaired record shapes.

package history

import (
	"encoding/json"

	"github.com/meatline/meatline/llm"
)

// UnknownToolName marks a tool result whose call record could not be found.
const UnknownToolName = "unknown_tool"

// Decode reconstructs the structured message sequence from a client's
// time-ordered turns. It never fails: records that cannot be parsed are
// passed through verbatim as plain messages.
func Decode(turns []Turn) []llm.ChatMessage {
	messages := make([]llm.ChatMessage, 0, len(turns))

	i := 0
	for i < len(turns) {
		turn := turns[i]

		if turn.Role != llm.RoleTool {
			messages = append(messages, llm.ChatMessage{Role: turn.Role, Content: turn.Message})
			i++
			continue
		}

		switch classify(turn.Message) {
		case callRecord:
			name, callID, arguments, err := parseCallRecord(turn.Message)
			if err != nil {
				// One bad record never aborts the whole decode.
				messages = append(messages, llm.ChatMessage{Role: turn.Role, Content: turn.Message})
				i++
				continue
			}

			messages = append(messages, llm.ChatMessage{
				Role: llm.RoleAssistant,
				ToolCalls: []llm.ToolCall{{
					ID:        callID,
					Name:      name,
					Arguments: json.RawMessage(arguments),
				}},
			})

			// Look ahead one position for the paired result: a tool-role
			// record that is not itself a call.
			if i+1 < len(turns) {
				next := turns[i+1]
				if next.Role == llm.RoleTool && classify(next.Message) != callRecord {
					messages = append(messages, llm.ToolResultMessage(callID, name, resultContent(next.Message)))
					i += 2
					continue
				}
			}
			// Call without a result yet (partial write); emit the call alone.
			i++

		case resultRecord:
			// Result reached directly, without an unconsumed call before it:
			// represent it as a degraded tool message rather than dropping it.
			messages = append(messages, llm.ToolResultMessage("", UnknownToolName, resultContent(turn.Message)))
			i++

		default:
			messages = append(messages, llm.ChatMessage{Role: turn.Role, Content: turn.Message})
			i++
		}
	}

	return messages
}

// ToolCallRecord is the storable shape of one tool invocation.
type ToolCallRecord struct {
	ID        string
	Name      string
	Arguments string // JSON object, serialized
}

// Encode renders one completed turn as stored records, in causal order:
// the user (or RAG context) record, one record per tool call, one per tool
// result, and exactly one assistant record with the final content.
func Encode(clientID, userMessage string, calls []ToolCallRecord, results []string, assistantContent string) []Turn {
	turns := make([]Turn, 0, 2+len(calls)+len(results))

	if userMessage != "" {
		turns = append(turns, Turn{ClientID: clientID, Role: llm.RoleUser, Message: userMessage})
	}
	for _, call := range calls {
		turns = append(turns, Turn{
			ClientID: clientID,
			Role:     llm.RoleTool,
			Message:  formatCallRecord(call.Name, call.ID, call.Arguments),
		})
	}
	for _, result := range results {
		turns = append(turns, Turn{
			ClientID: clientID,
			Role:     llm.RoleTool,
			Message:  formatResultRecord(result),
		})
	}
	turns = append(turns, Turn{ClientID: clientID, Role: llm.RoleAssistant, Message: assistantContent})

	return turns
}

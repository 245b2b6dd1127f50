// Package chat drives one logical conversation turn against the LLM.
//
// The protocol is bounded: at most two LLM calls per turn, never an open
// loop. The model may request at most one tool invocation per response;
// whether a second call happens depends on the tool and on whether the first
// response already carried user-facing content.
package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/meatline/meatline/internal/markdown"
	"github.com/meatline/meatline/llm"
	"github.com/meatline/meatline/tools"
)

// Apology is the user-facing fallback for any failure during a turn.
// Internal error detail goes to the operator log, never to the client.
const Apology = "Произошла ошибка при обработке вашего сообщения. Попробуйте позже."

// Follow-up instructions for the second LLM call.
const (
	photosFollowUp = "Фотографии товара успешно отправлены. Продолжи диалог"
	searchFollowUp = "Выше приведены найденные товары. Ответь на сообщение пользователя, опираясь на них. Продолжи диалог"
)

const defaultCallTimeout = 120 * time.Second

// ToolCallTrace records one tool invocation within a turn.
type ToolCallTrace struct {
	ID        string
	Name      string
	Arguments string // JSON object, serialized
	Result    string
}

// TurnResult is the outcome of one turn: the final assistant content plus a
// trace of what happened.
type TurnResult struct {
	Content     string
	ToolCalls   []ToolCallTrace
	ToolResults []string
}

// Orchestrator runs turns against a provider with a tool registry.
type Orchestrator struct {
	provider    llm.Provider
	registry    *tools.Registry
	callTimeout time.Duration

	// Tools that always force a second LLM call, regardless of whether the
	// first response carried content.
	followUpTools map[string]bool
}

// New creates an orchestrator for the given provider and tool registry.
func New(provider llm.Provider, registry *tools.Registry) *Orchestrator {
	return &Orchestrator{
		provider:    provider,
		registry:    registry,
		callTimeout: defaultCallTimeout,
		followUpTools: map[string]bool{
			tools.ToolNameEnhanceProductQuery: true,
		},
	}
}

// WithCallTimeout overrides the per-call timeout for LLM requests.
func (o *Orchestrator) WithCallTimeout(timeout time.Duration) *Orchestrator {
	o.callTimeout = timeout
	return o
}

// RunTurn executes one logical turn. It never returns an error: any failure
// is logged for operators and surfaced as the apology string, so the turn can
// still be completed and persisted.
//
// The outbound sequence is: prior structured history, then the system/RAG
// context as a synthetic user message (only when there is no new user
// content), then the new user content.
func (o *Orchestrator) RunTurn(ctx context.Context, history []llm.ChatMessage, userContent, systemContext string) TurnResult {
	messages := make([]llm.ChatMessage, 0, len(history)+2)
	messages = append(messages, history...)
	if userContent == "" && systemContext != "" {
		messages = append(messages, llm.UserMessage(systemContext))
	}
	if userContent != "" {
		messages = append(messages, llm.UserMessage(userContent))
	}

	response, err := o.call(ctx, messages)
	if err != nil {
		log.Error().Err(err).Str("provider", o.provider.Name()).Msg("chat: first call failed")
		return TurnResult{Content: Apology}
	}

	if len(response.ToolCalls) == 0 {
		return TurnResult{Content: o.finalContent(response)}
	}

	// The protocol supports a single tool request per response.
	call := response.ToolCalls[0]
	if call.ID == "" {
		call.ID = uuid.NewString()
	}

	resultText := o.executeTool(ctx, call)
	trace := ToolCallTrace{
		ID:        call.ID,
		Name:      call.Name,
		Arguments: string(call.Arguments),
		Result:    resultText,
	}

	assistantMessage := llm.ChatMessage{
		Role:      llm.RoleAssistant,
		Content:   response.Content,
		ToolCalls: []llm.ToolCall{call},
	}
	toolMessage := llm.ToolResultMessage(call.ID, call.Name, resultText)

	if o.followUpTools[call.Name] {
		// Search augmentation always answers on a second call.
		return o.secondCall(ctx, append(messages, assistantMessage, toolMessage, llm.UserMessage(searchFollowUp)), trace)
	}

	// Side-effecting tools: the model may have produced the user-facing reply
	// alongside the tool request already.
	if content := o.finalContent(response); content != "" {
		return TurnResult{
			Content:     content,
			ToolCalls:   []ToolCallTrace{trace},
			ToolResults: []string{resultText},
		}
	}

	return o.secondCall(ctx, append(messages, assistantMessage, toolMessage, llm.UserMessage(photosFollowUp)), trace)
}

// secondCall issues the one additional LLM call the protocol allows.
func (o *Orchestrator) secondCall(ctx context.Context, messages []llm.ChatMessage, trace ToolCallTrace) TurnResult {
	response, err := o.call(ctx, messages)
	if err != nil {
		log.Error().Err(err).Str("provider", o.provider.Name()).Str("tool", trace.Name).Msg("chat: second call failed")
		return TurnResult{
			Content:     Apology,
			ToolCalls:   []ToolCallTrace{trace},
			ToolResults: []string{trace.Result},
		}
	}

	return TurnResult{
		Content:     o.finalContent(response),
		ToolCalls:   []ToolCallTrace{trace},
		ToolResults: []string{trace.Result},
	}
}

func (o *Orchestrator) call(ctx context.Context, messages []llm.ChatMessage) (llm.LLMResponse, error) {
	callCtx, cancel := context.WithTimeout(ctx, o.callTimeout)
	defer cancel()
	return o.provider.ChatWithTools(callCtx, messages, o.registry.Definitions())
}

// executeTool runs the requested tool. Tool failures surface as text for the
// model and the log, never as an aborted turn.
func (o *Orchestrator) executeTool(ctx context.Context, call llm.ToolCall) string {
	tool, ok := o.registry.Get(call.Name)
	if !ok {
		log.Warn().Str("tool", call.Name).Msg("chat: model requested unknown tool")
		return fmt.Sprintf("Tool %s is not available", call.Name)
	}

	execCtx, cancel := context.WithTimeout(ctx, o.callTimeout)
	defer cancel()

	result, err := tool.Execute(execCtx, call.Arguments)
	if err != nil {
		log.Error().Err(err).Str("tool", call.Name).Msg("chat: tool execution failed")
		return fmt.Sprintf("Tool execution failed: %v", err)
	}

	log.Debug().Str("tool", call.Name).Bool("success", result.Success()).Msg("chat: tool executed")
	return result.Text()
}

// finalContent post-processes provider content into the turn's final text.
// A panic while post-processing downgrades to an error string; the turn still
// completes and is still logged.
func (o *Orchestrator) finalContent(response llm.LLMResponse) (content string) {
	defer func() {
		if r := recover(); r != nil {
			content = fmt.Sprintf("Error extracting content: %v", r)
		}
	}()
	return strings.TrimSpace(markdown.StripFences(response.Content))
}

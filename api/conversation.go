package api

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/labstack/echo/v5"
	"github.com/rs/zerolog/log"

	"github.com/meatline/meatline/chat"
	"github.com/meatline/meatline/history"
	"github.com/meatline/meatline/internal/markdown"
	"github.com/meatline/meatline/tools"
)

// initProductsRequest is the analytic request that selects the catalog
// slice shown to the model when a dialog starts.
const initProductsRequest = "Получить товары при инициализации диалога"

type initRequest struct {
	ClientPhone string `json:"client_phone"`
	Topic       string `json:"topic"`
}

type processRequest struct {
	ClientPhone string `json:"client_phone"`
	Message     string `json:"message"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// initConversation assembles the full system context for a client and runs
// the opening turn.
func (s *Service) initConversation(c *echo.Context) error {
	var req initRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.ClientPhone == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "client_phone required")
	}

	reply := s.runInit(c.Request().Context(), req.ClientPhone, req.Topic)
	return c.JSON(http.StatusOK, messageResponse{Message: reply})
}

// runInit builds the RAG context, runs the opening turn and persists it.
// The context is stored as the turn's user record: later turns decode their
// grounding from history, not from a re-assembled context.
func (s *Service) runInit(ctx context.Context, phone, topic string) string {
	systemContext := s.buildSystemContext(ctx, phone, topic)

	turns, err := s.store.List(ctx, phone)
	if err != nil {
		log.Error().Err(err).Str("client", phone).Msg("load history failed")
		return chat.Apology
	}

	result := s.orchestrator.RunTurn(ctx, history.Decode(turns), "", systemContext)
	s.persistTurn(ctx, phone, systemContext, result)

	return markdown.Strip(result.Content)
}

// processConversation answers one client message.
func (s *Service) processConversation(c *echo.Context) error {
	var req processRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.ClientPhone == "" || req.Message == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "client_phone and message required")
	}

	reply := s.runProcess(c.Request().Context(), req.ClientPhone, req.Message)
	return c.JSON(http.StatusOK, messageResponse{Message: reply})
}

// runProcess enhances the message with retrieval context, runs the turn and
// persists it. The enhanced prompt is what gets stored as the user record,
// so replayed history reproduces exactly what the model answered against.
func (s *Service) runProcess(ctx context.Context, phone, message string) string {
	turns, err := s.store.List(ctx, phone)
	if err != nil {
		log.Error().Err(err).Str("client", phone).Msg("load history failed")
		return chat.Apology
	}

	enhanced := s.enhanceMessage(ctx, message)
	result := s.orchestrator.RunTurn(ctx, history.Decode(turns), enhanced, "")
	s.persistTurn(ctx, phone, enhanced, result)

	return markdown.Strip(result.Content)
}

func (s *Service) resetConversation(c *echo.Context) error {
	phone := c.QueryParam("client_phone")
	if phone == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "client_phone required")
	}
	if err := s.store.DeleteAll(c.Request().Context(), phone); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "reset"})
}

func (s *Service) getProfile(c *echo.Context) error {
	phone := c.QueryParam("client_phone")
	if phone == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "client_phone required")
	}
	profile, err := s.store.Profile(c.Request().Context(), phone)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if profile == nil {
		return echo.NewHTTPError(http.StatusNotFound, "client not found")
	}
	return c.JSON(http.StatusOK, profile)
}

// enhanceMessage prepends retrieved products to the user message so the
// model answers grounded in the catalog. Retrieval failure degrades to the
// bare message.
func (s *Service) enhanceMessage(ctx context.Context, message string) string {
	products, err := s.retriever.Nearest(ctx, message, s.topK)
	if err != nil {
		log.Warn().Err(err).Msg("product retrieval failed, continuing without context")
		return message
	}
	if len(products) == 0 {
		return message
	}
	return fmt.Sprintf(
		"Подходящие под текущий вопрос/запрос товары:\n%s\nНа основе этих товаров, ответь на сообщение: %s",
		tools.FormatProducts(products), message)
}

// buildSystemContext gathers instructions, the client profile, order
// history, a catalog slice and system variables into one context block.
// Every part degrades independently when its source fails.
func (s *Service) buildSystemContext(ctx context.Context, phone, topic string) string {
	var parts []string

	instructions, err := s.store.Instructions(ctx, topic)
	if err != nil {
		log.Warn().Err(err).Str("topic", topic).Msg("load instructions failed")
	} else {
		parts = append(parts, instructions)
	}

	clientContext := ""
	if profile, err := s.store.Profile(ctx, phone); err != nil {
		log.Warn().Err(err).Str("client", phone).Msg("load profile failed")
	} else if profile != nil {
		clientContext = renderRow(profile)
		parts = append(parts, "Профиль клиента:\n"+clientContext)
	}

	if orders, err := s.store.OrdersByPhone(ctx, phone, 10); err != nil {
		log.Warn().Err(err).Str("client", phone).Msg("load orders failed")
	} else if len(orders) > 0 {
		parts = append(parts, "Последние заказы клиента:\n"+tools.FormatProducts(orders))
	}

	systemVars := ""
	if vars, err := s.store.SystemVariables(ctx); err != nil {
		log.Warn().Err(err).Msg("load system variables failed")
	} else if len(vars) > 0 {
		systemVars = renderVars(vars)
		parts = append(parts, "Системные переменные:\n"+systemVars)
	}

	if products := s.generator.Rows(ctx, initProductsRequest, clientContext, systemVars); len(products) > 0 {
		parts = append(parts, "Актуальные товары:\n"+tools.FormatProducts(products))
	}

	return strings.Join(parts, "\n\n")
}

// persistTurn appends the turn to the client's log. Persistence failure is
// logged, not surfaced: the client already has the answer.
func (s *Service) persistTurn(ctx context.Context, phone, userMessage string, result chat.TurnResult) {
	calls := make([]history.ToolCallRecord, 0, len(result.ToolCalls))
	for _, tc := range result.ToolCalls {
		calls = append(calls, history.ToolCallRecord{
			ID:        tc.ID,
			Name:      tc.Name,
			Arguments: tc.Arguments,
		})
	}

	turns := history.Encode(phone, userMessage, calls, result.ToolResults, result.Content)
	if err := s.store.Append(ctx, turns); err != nil {
		log.Error().Err(err).Str("client", phone).Msg("persist turn failed")
	}
}

func renderRow(row map[string]any) string {
	keys := make([]string, 0, len(row))
	for k := range row {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, fmt.Sprintf("%s: %v", k, row[k]))
	}
	return strings.Join(pairs, "\n")
}

func renderVars(vars map[string]string) string {
	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, fmt.Sprintf("%s: %s", k, vars[k]))
	}
	return strings.Join(lines, "\n")
}

// Package api exposes the conversational assistant over HTTP.
package api

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v5"

	"github.com/meatline/meatline/chat"
	"github.com/meatline/meatline/history"
	"github.com/meatline/meatline/llm"
)

// Store bundles conversation persistence with the operational reads the
// handlers need. PostgresStore satisfies it.
type Store interface {
	Append(ctx context.Context, turns []history.Turn) error
	List(ctx context.Context, clientID string) ([]history.Turn, error)
	DeleteAll(ctx context.Context, clientID string) error
	Instructions(ctx context.Context, topic string) (string, error)
	Profile(ctx context.Context, phone string) (map[string]any, error)
	OrdersByPhone(ctx context.Context, phone string, limit int) ([]map[string]any, error)
	SystemVariables(ctx context.Context) (map[string]string, error)
}

// Retriever finds products semantically close to a query.
type Retriever interface {
	Nearest(ctx context.Context, query string, k int) ([]map[string]any, error)
}

// Orchestrator runs one conversation turn against the model.
type Orchestrator interface {
	RunTurn(ctx context.Context, msgs []llm.ChatMessage, userContent, systemContext string) chat.TurnResult
}

// Generator produces and executes SQL for a natural-language request.
type Generator interface {
	Rows(ctx context.Context, request, clientContext, systemVars string) []map[string]any
}

// Service wires the conversation pipeline into HTTP handlers.
type Service struct {
	store        Store
	retriever    Retriever
	orchestrator Orchestrator
	generator    Generator
	topK         int
}

func NewService(store Store, retriever Retriever, orchestrator Orchestrator, generator Generator) *Service {
	return &Service{
		store:        store,
		retriever:    retriever,
		orchestrator: orchestrator,
		generator:    generator,
		topK:         10,
	}
}

// NewEcho builds the HTTP server with all routes registered.
func (s *Service) NewEcho() *echo.Echo {
	e := echo.New()

	e.GET("/health", func(c *echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	g := e.Group("/ai")
	g.POST("/initConversation", s.initConversation)
	g.POST("/processConversation", s.processConversation)
	g.DELETE("/resetConversation", s.resetConversation)
	g.GET("/getProfile", s.getProfile)

	return e
}

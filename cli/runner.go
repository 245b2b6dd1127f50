// Command execution for CLI commands.
//
// Information Hiding:
// - Provider and storage setup hidden
// - Pipeline wiring hidden
// - Output formatting hidden

package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/meatline/meatline/api"
	"github.com/meatline/meatline/chat"
	"github.com/meatline/meatline/config"
	"github.com/meatline/meatline/history"
	"github.com/meatline/meatline/internal/markdown"
	"github.com/meatline/meatline/llm"
	"github.com/meatline/meatline/retrieval"
	"github.com/meatline/meatline/sqlgen"
	"github.com/meatline/meatline/storage"
	"github.com/meatline/meatline/tools"
)

// Options holds CLI execution options.
type Options struct {
	Provider string
	Model    string
	Verbose  bool
}

func buildProvider(cfg config.LLMConfig, opts Options) (llm.Provider, error) {
	name := opts.Provider
	if name == "" {
		name = cfg.Provider
	}
	providerType, err := llm.ParseProviderType(name)
	if err != nil {
		return nil, err
	}

	builder := llm.NewProviderBuilder(providerType).
		MaxTokens(cfg.MaxTokens).
		Temperature(float32(cfg.Temperature))
	if opts.Model != "" {
		builder = builder.Model(opts.Model)
	} else if cfg.Model != "" {
		builder = builder.Model(cfg.Model)
	}
	if cfg.BaseURL != "" {
		builder = builder.BaseURL(cfg.BaseURL)
	}
	return builder.FromEnv()
}

// Serve starts the HTTP server with the full conversation pipeline.
// Requires DATABASE_URL: the server mode depends on Postgres for prompts,
// profiles and vector retrieval.
func Serve(ctx context.Context, opts Options) error {
	settings, err := config.New()
	if err != nil {
		return err
	}
	if settings.Database.DSN == "" {
		return fmt.Errorf("DATABASE_URL is required for serve mode")
	}

	provider, err := buildProvider(settings.LLM, opts)
	if err != nil {
		return err
	}

	store, err := storage.OpenPostgres(ctx, settings.Database.DSN)
	if err != nil {
		return err
	}
	defer store.Close()

	embedder := llm.NewEmbeddingsClient(
		settings.Embeddings.APIKey,
		settings.Embeddings.BaseURL,
		settings.Embeddings.Model,
	)
	retriever := retrieval.New(store.Pool(), embedder)

	registry := tools.NewRegistry()
	if err := registry.Register(tools.NewEnhanceProductQuery(retriever, 10)); err != nil {
		return err
	}
	if settings.Gateway.SendImageURL != "" {
		photoTool := tools.NewShowProductPhotos(store, settings.Gateway.SendImageURL, settings.Gateway.Timeout)
		if err := registry.Register(photoTool); err != nil {
			return err
		}
	} else {
		log.Warn().Msg("GATEWAY_SEND_IMAGE_URL not set, photo delivery disabled")
	}

	orchestrator := chat.New(provider, registry).WithCallTimeout(settings.LLM.CallTimeout)
	generator := sqlgen.NewGenerator(provider, store)

	service := api.NewService(store, retriever, orchestrator, generator)
	e := service.NewEcho()

	log.Info().
		Str("addr", settings.Server.Addr).
		Str("provider", provider.Name()).
		Str("model", provider.Model()).
		Strs("tools", registry.Names()).
		Msg("starting server")

	server := &http.Server{
		Addr:              settings.Server.Addr,
		Handler:           e,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return server.ListenAndServe()
}

// Ask runs a single conversation turn against local SQLite history.
// No retrieval or tools: useful for smoke-testing a provider offline.
func Ask(ctx context.Context, phone, message string, opts Options) error {
	settings, err := config.New()
	if err != nil {
		return err
	}

	provider, err := buildProvider(settings.LLM, opts)
	if err != nil {
		return err
	}

	store, err := storage.OpenSqlite(settings.Database.SqlitePath)
	if err != nil {
		return err
	}
	defer store.Close()

	turns, err := store.List(ctx, phone)
	if err != nil {
		return err
	}

	orchestrator := chat.New(provider, tools.NewRegistry()).WithCallTimeout(settings.LLM.CallTimeout)
	result := orchestrator.RunTurn(ctx, history.Decode(turns), message, "")

	if opts.Verbose {
		for _, tc := range result.ToolCalls {
			fmt.Fprintf(os.Stderr, "tool %s(%s)\n", tc.Name, tc.Arguments)
		}
	}

	if err := store.Append(ctx, history.Encode(phone, message, nil, nil, result.Content)); err != nil {
		return err
	}

	fmt.Println(markdown.Strip(result.Content))
	return nil
}

// Query runs the text-to-SQL pipeline for one analytic request and prints
// the resulting rows. Requires DATABASE_URL.
func Query(ctx context.Context, request string, opts Options) error {
	settings, err := config.New()
	if err != nil {
		return err
	}
	if settings.Database.DSN == "" {
		return fmt.Errorf("DATABASE_URL is required for query mode")
	}

	provider, err := buildProvider(settings.LLM, opts)
	if err != nil {
		return err
	}

	store, err := storage.OpenPostgres(ctx, settings.Database.DSN)
	if err != nil {
		return err
	}
	defer store.Close()

	rows := sqlgen.NewGenerator(provider, store).Rows(ctx, request, "", "")
	if len(rows) == 0 {
		fmt.Println("No rows.")
		return nil
	}
	fmt.Println(tools.FormatProducts(rows))
	return nil
}

// Reset clears a client's conversation history. Uses Postgres when
// DATABASE_URL is set, the local SQLite file otherwise.
func Reset(ctx context.Context, phone string) error {
	settings, err := config.New()
	if err != nil {
		return err
	}

	if settings.Database.DSN != "" {
		store, err := storage.OpenPostgres(ctx, settings.Database.DSN)
		if err != nil {
			return err
		}
		defer store.Close()
		if err := store.DeleteAll(ctx, phone); err != nil {
			return err
		}
	} else {
		store, err := storage.OpenSqlite(settings.Database.SqlitePath)
		if err != nil {
			return err
		}
		defer store.Close()
		if err := store.DeleteAll(ctx, phone); err != nil {
			return err
		}
	}

	fmt.Printf("History cleared for %s\n", phone)
	return nil
}

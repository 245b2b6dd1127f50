package sqlgen

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/meatline/meatline/llm"
)

const (
	maxAttempts        = 3
	defaultCallTimeout = 60 * time.Second
	defaultRowLimit    = 20

	// embeddingColumn is stripped from every result row before it is
	// handed back: vectors are an implementation detail of retrieval
	// and must never reach a prompt.
	embeddingColumn = "embedding"
)

// Executor runs a read-only statement and returns the rows as generic maps
// keyed by column name.
type Executor interface {
	RunQuery(ctx context.Context, query string) ([]map[string]any, error)
}

// QueryError records one failed attempt. All fields feed the next prompt
// verbatim so the model can see exactly what went wrong.
type QueryError struct {
	Message  string
	SQLQuery string
	DBError  string
}

// Generator produces SQL from natural-language requests and executes it,
// retrying with accumulated error context on failure.
type Generator struct {
	client      *llm.Client
	executor    Executor
	rowLimit    int
	callTimeout time.Duration
}

func NewGenerator(provider llm.Provider, executor Executor) *Generator {
	return &Generator{
		client:      llm.NewClient(provider),
		executor:    executor,
		rowLimit:    defaultRowLimit,
		callTimeout: defaultCallTimeout,
	}
}

// WithRowLimit overrides the LIMIT value embedded in prompts.
func (g *Generator) WithRowLimit(n int) *Generator {
	if n > 0 {
		g.rowLimit = n
	}
	return g
}

// WithCallTimeout bounds each individual model call.
func (g *Generator) WithCallTimeout(d time.Duration) *Generator {
	if d > 0 {
		g.callTimeout = d
	}
	return g
}

// Rows runs the full generate-vet-execute loop for a request. Prior
// failures accumulate into every subsequent prompt. After the attempt
// budget is spent the result is an empty, non-nil slice; callers never
// see an error.
func (g *Generator) Rows(ctx context.Context, request, clientContext, systemVars string) []map[string]any {
	var failures []QueryError

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		prompt := g.buildPrompt(request, clientContext, systemVars, failures)

		callCtx, cancel := context.WithTimeout(ctx, g.callTimeout)
		response, err := g.client.Chat(callCtx, []llm.ChatMessage{llm.UserMessage(prompt)})
		cancel()
		if err != nil {
			log.Warn().Err(err).Int("attempt", attempt).Msg("sql generation call failed")
			failures = append(failures, QueryError{
				Message: "model call failed",
				DBError: err.Error(),
			})
			continue
		}

		query, err := ExtractSQL(response)
		if err != nil {
			log.Warn().Int("attempt", attempt).Msg("model response had no sql block")
			failures = append(failures, QueryError{
				Message: "ответ не содержит блока ```sql",
			})
			continue
		}

		if IsDangerous(query) {
			log.Warn().Int("attempt", attempt).Str("query", query).Msg("rejected mutating statement")
			failures = append(failures, QueryError{
				Message:  "запрос содержит запрещённую операцию изменения данных",
				SQLQuery: query,
			})
			continue
		}

		execCtx, cancel := context.WithTimeout(ctx, g.callTimeout)
		rows, err := g.executor.RunQuery(execCtx, query)
		cancel()
		if err != nil {
			log.Warn().Err(err).Int("attempt", attempt).Str("query", query).Msg("query execution failed")
			failures = append(failures, QueryError{
				Message:  "ошибка выполнения запроса",
				SQLQuery: query,
				DBError:  err.Error(),
			})
			continue
		}

		return StripEmbeddings(rows)
	}

	log.Warn().Int("attempts", maxAttempts).Str("request", request).Msg("sql generation exhausted attempt budget")
	return []map[string]any{}
}

func (g *Generator) buildPrompt(request, clientContext, systemVars string, failures []QueryError) string {
	var b strings.Builder

	b.WriteString("Ты аналитик базы данных мясной торговой компании. ")
	b.WriteString("Составь один SQL-запрос (диалект PostgreSQL) по заданию ниже.\n\n")
	b.WriteString(SchemaDescriptor)
	b.WriteString("\n\nПравила:\n")
	b.WriteString("- Только чтение данных. INSERT, UPDATE и DELETE запрещены.\n")
	fmt.Fprintf(&b, "- Ограничь выдачу: LIMIT %d.\n", g.rowLimit)
	b.WriteString("- Верни запрос строго внутри блока ```sql ... ```, без пояснений.\n")

	if clientContext != "" {
		b.WriteString("\nКонтекст клиента:\n")
		b.WriteString(clientContext)
		b.WriteString("\n")
	}
	if systemVars != "" {
		b.WriteString("\nСистемные переменные:\n")
		b.WriteString(systemVars)
		b.WriteString("\n")
	}

	if len(failures) > 0 {
		b.WriteString("\nПредыдущие попытки завершились ошибкой. Учти их и исправь запрос:\n")
		for i, f := range failures {
			fmt.Fprintf(&b, "Попытка %d: %s\n", i+1, f.Message)
			if f.SQLQuery != "" {
				fmt.Fprintf(&b, "Запрос: %s\n", f.SQLQuery)
			}
			if f.DBError != "" {
				fmt.Fprintf(&b, "Ошибка: %s\n", f.DBError)
			}
		}
	}

	b.WriteString("\nЗадание: ")
	b.WriteString(request)
	return b.String()
}

// StripEmbeddings removes the vector column from every row in place and
// returns the slice. A nil input becomes an empty slice.
func StripEmbeddings(rows []map[string]any) []map[string]any {
	if rows == nil {
		return []map[string]any{}
	}
	for _, row := range rows {
		delete(row, embeddingColumn)
	}
	return rows
}

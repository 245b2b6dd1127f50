// Package retrieval finds catalog products semantically close to a free-form
// query using pgvector cosine distance.
package retrieval

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"
	"github.com/rs/zerolog/log"
)

const defaultTimeout = 15 * time.Second

// nearestSQL deliberately enumerates columns: the embedding vector must
// never appear in a result row.
const nearestSQL = `SELECT id, title, supplier_name, category, price, unit, in_stock
FROM products
ORDER BY embedding <=> $1
LIMIT $2`

// Embedder turns text into a vector in the same space as the products table.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Querier is the subset of pgxpool.Pool the client needs.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Client performs nearest-neighbour product lookups.
type Client struct {
	db       Querier
	embedder Embedder
	timeout  time.Duration
}

func New(db Querier, embedder Embedder) *Client {
	return &Client{db: db, embedder: embedder, timeout: defaultTimeout}
}

// WithTimeout bounds each lookup, embedding call included.
func (c *Client) WithTimeout(d time.Duration) *Client {
	if d > 0 {
		c.timeout = d
	}
	return c
}

// Nearest returns up to k products ordered by semantic similarity to query.
// Rows are generic column-keyed maps so callers can render them without a
// schema dependency.
func (c *Client) Nearest(ctx context.Context, query string, k int) ([]map[string]any, error) {
	if k <= 0 {
		k = 10
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	vec, err := c.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	rows, err := c.db.Query(ctx, nearestSQL, pgvector.NewVector(vec), k)
	if err != nil {
		return nil, fmt.Errorf("nearest products: %w", err)
	}
	defer rows.Close()

	out, err := collectRows(rows)
	if err != nil {
		return nil, err
	}
	log.Debug().Str("query", query).Int("found", len(out)).Msg("product retrieval")
	return out, nil
}

func collectRows(rows pgx.Rows) ([]map[string]any, error) {
	fields := rows.FieldDescriptions()
	out := make([]map[string]any, 0, 8)
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		row := make(map[string]any, len(fields))
		for i, fd := range fields {
			row[fd.Name] = values[i]
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return out, nil
}

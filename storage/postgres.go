package storage

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meatline/meatline/history"
)

// topicSuffix strips parenthesized qualifiers so that variants like
// "Продать (опт)" resolve to the "Продать" prompt row.
var topicSuffix = regexp.MustCompile(`\s*\([^)]*\)`)

// DefaultTopic is the prompt row used when no row matches the requested topic.
const DefaultTopic = "Продать"

// PostgresStore is the production backend. It persists conversation turns
// and serves operational reads (prompts, profiles, orders, catalog).
type PostgresStore struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects to the database described by dsn and verifies the
// connection with a ping.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Pool exposes the underlying pool for components that issue their own
// queries, such as the retrieval client.
func (s *PostgresStore) Pool() *pgxpool.Pool {
	return s.pool
}

// Append adds turns to the end of a client's log.
func (s *PostgresStore) Append(ctx context.Context, turns []history.Turn) error {
	if len(turns) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, t := range turns {
		created := t.CreatedAt
		if created.IsZero() {
			created = time.Now().UTC()
		}
		batch.Queue(
			"INSERT INTO conversation_history (client_phone, role, message, created_at) VALUES ($1, $2, $3, $4)",
			t.ClientID, t.Role, t.Message, created,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()
	for range turns {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("failed to insert turn: %w", err)
		}
	}
	return nil
}

// List returns a client's turns in chronological order.
func (s *PostgresStore) List(ctx context.Context, clientID string) ([]history.Turn, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT client_phone, role, message, created_at FROM conversation_history WHERE client_phone = $1 ORDER BY created_at ASC, id ASC",
		clientID)
	if err != nil {
		return nil, fmt.Errorf("failed to query turns: %w", err)
	}
	defer rows.Close()

	turns := []history.Turn{}
	for rows.Next() {
		var t history.Turn
		if err := rows.Scan(&t.ClientID, &t.Role, &t.Message, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan turn: %w", err)
		}
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating turns: %w", err)
	}
	return turns, nil
}

// DeleteAll removes every turn for a client.
func (s *PostgresStore) DeleteAll(ctx context.Context, clientID string) error {
	_, err := s.pool.Exec(ctx,
		"DELETE FROM conversation_history WHERE client_phone = $1", clientID)
	if err != nil {
		return fmt.Errorf("failed to delete history: %w", err)
	}
	return nil
}

// Instructions loads the system prompt for a topic. Parenthesized
// qualifiers in the topic are stripped before lookup; an unknown topic
// falls back to DefaultTopic.
func (s *PostgresStore) Instructions(ctx context.Context, topic string) (string, error) {
	normalized := strings.TrimSpace(topicSuffix.ReplaceAllString(topic, ""))
	if normalized == "" {
		normalized = DefaultTopic
	}

	prompt, err := s.promptByTopic(ctx, normalized)
	if err == nil {
		return prompt, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return "", err
	}
	if normalized == DefaultTopic {
		return "", fmt.Errorf("no prompt for default topic %q", DefaultTopic)
	}
	return s.promptByTopic(ctx, DefaultTopic)
}

func (s *PostgresStore) promptByTopic(ctx context.Context, topic string) (string, error) {
	var prompt string
	err := s.pool.QueryRow(ctx,
		"SELECT prompt FROM prompts WHERE topic = $1", topic).Scan(&prompt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", err
		}
		return "", fmt.Errorf("failed to load prompt for topic %q: %w", topic, err)
	}
	return prompt, nil
}

// Profile returns a client's profile row, or nil when the phone is unknown.
func (s *PostgresStore) Profile(ctx context.Context, phone string) (map[string]any, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT phone, name, city, created_at FROM clients WHERE phone = $1", phone)
	if err != nil {
		return nil, fmt.Errorf("failed to query profile: %w", err)
	}
	defer rows.Close()

	out, err := rowsToMaps(rows)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

// OrdersByPhone returns a client's most recent orders with product titles.
func (s *PostgresStore) OrdersByPhone(ctx context.Context, phone string, limit int) ([]map[string]any, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.pool.Query(ctx, `
		SELECT o.id, p.title, p.supplier_name, o.quantity, o.total, o.created_at
		FROM orders o
		JOIN products p ON p.id = o.product_id
		WHERE o.client_phone = $1
		ORDER BY o.created_at DESC
		LIMIT $2`,
		phone, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	return rowsToMaps(rows)
}

// Products returns in-stock catalog rows for conversation context.
func (s *PostgresStore) Products(ctx context.Context, limit int) ([]map[string]any, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `
		SELECT title, supplier_name, category, price, unit
		FROM products
		WHERE in_stock
		ORDER BY category, title
		LIMIT $1`,
		limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	return rowsToMaps(rows)
}

// SystemVariables returns the contents of the system table as a map.
func (s *PostgresStore) SystemVariables(ctx context.Context) (map[string]string, error) {
	rows, err := s.pool.Query(ctx, "SELECT key, value FROM system")
	if err != nil {
		return nil, fmt.Errorf("failed to query system variables: %w", err)
	}
	defer rows.Close()

	vars := map[string]string{}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("failed to scan system variable: %w", err)
		}
		vars[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating system variables: %w", err)
	}
	return vars, nil
}

// PhotoURL returns the photo URL for a product identified by title and
// supplier. An unknown product or a product without a photo yields an
// empty string and no error.
func (s *PostgresStore) PhotoURL(ctx context.Context, productTitle, supplierName string) (string, error) {
	var photo *string
	err := s.pool.QueryRow(ctx,
		"SELECT photo FROM products WHERE title = $1 AND supplier_name = $2 LIMIT 1",
		productTitle, supplierName).Scan(&photo)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("failed to query photo: %w", err)
	}
	if photo == nil {
		return "", nil
	}
	return *photo, nil
}

// RunQuery executes an arbitrary read statement and returns rows as
// column-keyed maps. Statement vetting is the caller's responsibility.
func (s *PostgresStore) RunQuery(ctx context.Context, query string) ([]map[string]any, error) {
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	return rowsToMaps(rows)
}

func rowsToMaps(rows pgx.Rows) ([]map[string]any, error) {
	fields := rows.FieldDescriptions()
	out := []map[string]any{}
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("failed to read row: %w", err)
		}
		row := make(map[string]any, len(fields))
		for i, fd := range fields {
			row[fd.Name] = values[i]
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return out, nil
}

var _ history.TurnStore = (*PostgresStore)(nil)

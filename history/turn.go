// Package history converts the append-only conversation log to and from the
// structured message sequences the LLM providers consume.
//
// Information Hiding:
// - Storage backend implementation details hidden behind TurnStore
// - The textual tool-record convention is private to this package
package history

import (
	"context"
	"time"
)

// Turn is one row of the append-only conversation log. Turns are never
// mutated after creation; deletion is only a full-history wipe per client.
type Turn struct {
	ClientID  string    `json:"client_phone"`
	Role      string    `json:"role"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// TurnStore defines the interface for the conversation log.
// Implementations can use different backends (Postgres, SQLite, memory).
type TurnStore interface {
	// Append appends turns to the end of a client's log, in slice order.
	Append(ctx context.Context, turns []Turn) error

	// List returns all turns for a client, ordered by creation time.
	// Returns empty slice (not nil) if the client has no history.
	List(ctx context.Context, clientID string) ([]Turn, error)

	// DeleteAll wipes a client's history.
	DeleteAll(ctx context.Context, clientID string) error
}

package store

import "context"

// Session statuses.
const (
	SessionActive   = "active"
	SessionArchived = "archived"
)

// Session owns a tree of life nodes and tracks aggregate statistics that are
// kept consistent with node creation (see IncrementSessionAggregates).
type Session struct {
	ID  int32
	UID string

	Title  string
	Status string

	// Base context: where the unbranched life starts. Consulted by the
	// resolver when neither the choice nor the parent specifies a value.
	BaseCity       string
	BaseCountry    string
	BaseOccupation string

	// Aggregates, updated after every node finalization.
	TotalNodes int32
	MaxDepth   int32

	CreatedTs int64
	UpdatedTs int64
}

// FindSession is the session query filter.
type FindSession struct {
	ID     *int32
	UID    *string
	Status *string
	Limit  *int
	Offset *int
}

// UpdateSession carries mutable session fields.
type UpdateSession struct {
	ID     int32
	Title  *string
	Status *string
}

// DeleteSession deletes a session and, cascading, all of its nodes. Nodes
// are never deleted individually.
type DeleteSession struct {
	ID int32
}

// SessionStore defines session persistence.
type SessionStore interface {
	CreateSession(ctx context.Context, create *Session) (*Session, error)
	ListSessions(ctx context.Context, find *FindSession) ([]*Session, error)
	UpdateSession(ctx context.Context, update *UpdateSession) (*Session, error)
	DeleteSession(ctx context.Context, delete *DeleteSession) error

	// IncrementSessionAggregates applies total_nodes += 1 and
	// max_depth = max(max_depth, nodeDepth) atomically in the database, so
	// concurrent node creations never lose an update.
	IncrementSessionAggregates(ctx context.Context, sessionID int32, nodeDepth int32) error
}

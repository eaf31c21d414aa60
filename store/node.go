package store

import (
	"context"

	"github.com/Hrishap/ParallelLives/engine/choice"
	"github.com/Hrishap/ParallelLives/engine/lifemetrics"
	"github.com/Hrishap/ParallelLives/engine/narrative"
)

// NodeStatus is the lifecycle state of a node. A node is created in
// NodeGenerating synchronously and mutated exactly once to a terminal state.
type NodeStatus string

const (
	NodeGenerating NodeStatus = "generating"
	NodeCompleted  NodeStatus = "completed"
	NodeError      NodeStatus = "error"
)

// Node is one branch point in a session's life tree. Children are discovered
// by parent back-reference; there is no stored child list.
type Node struct {
	ID  int32
	UID string

	SessionID int32
	ParentID  *int32 // nil for roots
	Depth     int32  // parent.Depth + 1, 0 for roots, hard ceiling 10

	// SiblingOrder is assigned at creation as the count of existing
	// siblings. Two concurrent creations under the same parent may read the
	// same count and collide; last write wins. It is a display order, not a
	// unique key.
	SiblingOrder int32

	Choice    *choice.Choice
	Metrics   *lifemetrics.Bundle
	Narrative *narrative.Narrative
	Media     *lifemetrics.CoverImage

	Status           NodeStatus
	ErrorMessage     *string
	ProcessingTimeMs int64

	CreatedTs int64
	UpdatedTs int64
}

// MaxDepth is the hard ceiling on node depth.
const MaxDepth = 10

// FindNode is the node query filter.
type FindNode struct {
	ID        *int32
	UID       *string
	SessionID *int32
	ParentID  *int32
	Status    *NodeStatus
	Limit     *int
	Offset    *int
}

// UpdateNode carries the one-shot finalization of a generating node.
type UpdateNode struct {
	ID               int32
	Metrics          *lifemetrics.Bundle
	Narrative        *narrative.Narrative
	Media            *lifemetrics.CoverImage
	Status           *NodeStatus
	ErrorMessage     *string
	ProcessingTimeMs *int64
}

// NodeStore defines node persistence.
type NodeStore interface {
	CreateNode(ctx context.Context, create *Node) (*Node, error)
	ListNodes(ctx context.Context, find *FindNode) ([]*Node, error)
	UpdateNode(ctx context.Context, update *UpdateNode) (*Node, error)
	CountChildren(ctx context.Context, parentID int32) (int32, error)
}

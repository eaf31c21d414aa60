// Package teststore provides an in-memory store.Driver for tests.
package teststore

import (
	"context"
	"sync"
	"time"

	"github.com/Hrishap/ParallelLives/store"
)

// Driver keeps sessions and nodes in maps guarded by one mutex. Aggregate
// increments are atomic under the same lock, mirroring the SQL drivers.
type Driver struct {
	mu       sync.Mutex
	sessions map[int32]*store.Session
	nodes    map[int32]*store.Node
	nextID   int32
}

func NewDriver() *Driver {
	return &Driver{
		sessions: make(map[int32]*store.Session),
		nodes:    make(map[int32]*store.Node),
	}
}

func (d *Driver) Migrate(ctx context.Context) error { return nil }
func (d *Driver) Close() error                      { return nil }

func (d *Driver) CreateSession(ctx context.Context, create *store.Session) (*store.Session, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextID++
	session := *create
	session.ID = d.nextID
	if session.Status == "" {
		session.Status = store.SessionActive
	}
	now := time.Now().Unix()
	session.CreatedTs = now
	session.UpdatedTs = now
	d.sessions[session.ID] = &session
	copied := session
	return &copied, nil
}

func (d *Driver) ListSessions(ctx context.Context, find *store.FindSession) ([]*store.Session, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []*store.Session
	for _, s := range d.sessions {
		if find.ID != nil && s.ID != *find.ID {
			continue
		}
		if find.UID != nil && s.UID != *find.UID {
			continue
		}
		if find.Status != nil && s.Status != *find.Status {
			continue
		}
		copied := *s
		out = append(out, &copied)
	}
	return out, nil
}

func (d *Driver) UpdateSession(ctx context.Context, update *store.UpdateSession) (*store.Session, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	s := d.sessions[update.ID]
	if update.Title != nil {
		s.Title = *update.Title
	}
	if update.Status != nil {
		s.Status = *update.Status
	}
	s.UpdatedTs = time.Now().Unix()
	copied := *s
	return &copied, nil
}

func (d *Driver) DeleteSession(ctx context.Context, del *store.DeleteSession) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for id, n := range d.nodes {
		if n.SessionID == del.ID {
			delete(d.nodes, id)
		}
	}
	delete(d.sessions, del.ID)
	return nil
}

func (d *Driver) IncrementSessionAggregates(ctx context.Context, sessionID int32, nodeDepth int32) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	s := d.sessions[sessionID]
	s.TotalNodes++
	if nodeDepth > s.MaxDepth {
		s.MaxDepth = nodeDepth
	}
	s.UpdatedTs = time.Now().Unix()
	return nil
}

func (d *Driver) CreateNode(ctx context.Context, create *store.Node) (*store.Node, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextID++
	node := *create
	node.ID = d.nextID
	if node.Status == "" {
		node.Status = store.NodeGenerating
	}
	now := time.Now().Unix()
	node.CreatedTs = now
	node.UpdatedTs = now
	d.nodes[node.ID] = &node
	copied := node
	return &copied, nil
}

func (d *Driver) ListNodes(ctx context.Context, find *store.FindNode) ([]*store.Node, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []*store.Node
	for _, n := range d.nodes {
		if find.ID != nil && n.ID != *find.ID {
			continue
		}
		if find.UID != nil && n.UID != *find.UID {
			continue
		}
		if find.SessionID != nil && n.SessionID != *find.SessionID {
			continue
		}
		if find.ParentID != nil && (n.ParentID == nil || *n.ParentID != *find.ParentID) {
			continue
		}
		if find.Status != nil && n.Status != *find.Status {
			continue
		}
		copied := *n
		out = append(out, &copied)
	}
	return out, nil
}

func (d *Driver) UpdateNode(ctx context.Context, update *store.UpdateNode) (*store.Node, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := d.nodes[update.ID]
	if update.Metrics != nil {
		n.Metrics = update.Metrics
	}
	if update.Narrative != nil {
		n.Narrative = update.Narrative
	}
	if update.Media != nil {
		n.Media = update.Media
	}
	if update.Status != nil {
		n.Status = *update.Status
	}
	if update.ErrorMessage != nil {
		n.ErrorMessage = update.ErrorMessage
	}
	if update.ProcessingTimeMs != nil {
		n.ProcessingTimeMs = *update.ProcessingTimeMs
	}
	n.UpdatedTs = time.Now().Unix()
	copied := *n
	return &copied, nil
}

func (d *Driver) CountChildren(ctx context.Context, parentID int32) (int32, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var count int32
	for _, n := range d.nodes {
		if n.ParentID != nil && *n.ParentID == parentID {
			count++
		}
	}
	return count, nil
}

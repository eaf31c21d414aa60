// Package store provides database access to sessions and life nodes behind a
// driver interface, with read caches layered on top.
package store

import (
	"context"
	"time"

	"github.com/Hrishap/ParallelLives/internal/profile"
	"github.com/Hrishap/ParallelLives/store/cache"
)

// Driver is the database driver interface. Implementations live under
// store/db.
type Driver interface {
	SessionStore
	NodeStore

	Migrate(ctx context.Context) error
	Close() error
}

// Store provides access to all persisted objects.
type Store struct {
	profile *profile.Profile
	driver  Driver

	sessionCache *cache.Cache[string, *Session] // keyed by session UID
	nodeCache    *cache.Cache[string, *Node]    // keyed by node UID

	// childIndex caches the child ids of a parent for tree traversal. It is
	// appended to explicitly by the assembler after a child is persisted,
	// never as a hidden side effect of node creation.
	childIndex *cache.Cache[int32, []int32]
}

// New creates a new instance of Store.
func New(driver Driver, profile *profile.Profile) *Store {
	return &Store{
		driver:       driver,
		profile:      profile,
		sessionCache: cache.New[string, *Session](500, 10*time.Minute),
		nodeCache:    cache.New[string, *Node](2000, 10*time.Minute),
		childIndex:   cache.New[int32, []int32](2000, 10*time.Minute),
	}
}

func (s *Store) Migrate(ctx context.Context) error {
	return s.driver.Migrate(ctx)
}

func (s *Store) Close() error {
	return s.driver.Close()
}

// --- Sessions ---

func (s *Store) CreateSession(ctx context.Context, create *Session) (*Session, error) {
	return s.driver.CreateSession(ctx, create)
}

func (s *Store) GetSession(ctx context.Context, find *FindSession) (*Session, error) {
	list, err := s.driver.ListSessions(ctx, find)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

// GetSessionByUID returns the session or nil, serving repeat reads from
// cache. Aggregate counters read through the cache may lag a concurrent
// increment by up to the TTL; use GetSession for read-your-writes paths.
func (s *Store) GetSessionByUID(ctx context.Context, uid string) (*Session, error) {
	if cached, ok := s.sessionCache.Get(uid); ok {
		return cached, nil
	}
	session, err := s.GetSession(ctx, &FindSession{UID: &uid})
	if err != nil {
		return nil, err
	}
	if session != nil {
		s.sessionCache.Set(uid, session, 0)
	}
	return session, nil
}

func (s *Store) ListSessions(ctx context.Context, find *FindSession) ([]*Session, error) {
	return s.driver.ListSessions(ctx, find)
}

func (s *Store) UpdateSession(ctx context.Context, update *UpdateSession) (*Session, error) {
	session, err := s.driver.UpdateSession(ctx, update)
	if err != nil {
		return nil, err
	}
	s.sessionCache.Set(session.UID, session, 0)
	return session, nil
}

// DeleteSession removes the session and its whole node tree.
func (s *Store) DeleteSession(ctx context.Context, delete *DeleteSession) error {
	if err := s.driver.DeleteSession(ctx, delete); err != nil {
		return err
	}
	// Node rows are gone; drop all derived caches rather than track which
	// entries belonged to the session.
	s.sessionCache.Clear()
	s.nodeCache.Clear()
	s.childIndex.Clear()
	return nil
}

func (s *Store) IncrementSessionAggregates(ctx context.Context, sessionID int32, nodeDepth int32) error {
	if err := s.driver.IncrementSessionAggregates(ctx, sessionID, nodeDepth); err != nil {
		return err
	}
	// The cached session holds stale counters now; evict lazily on next read.
	s.sessionCache.Clear()
	return nil
}

// --- Nodes ---

func (s *Store) CreateNode(ctx context.Context, create *Node) (*Node, error) {
	return s.driver.CreateNode(ctx, create)
}

func (s *Store) GetNode(ctx context.Context, find *FindNode) (*Node, error) {
	list, err := s.driver.ListNodes(ctx, find)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

// GetNodeByUID returns the node or nil. Only terminal nodes are cached:
// generating nodes are being polled precisely because they still change.
func (s *Store) GetNodeByUID(ctx context.Context, uid string) (*Node, error) {
	if cached, ok := s.nodeCache.Get(uid); ok {
		return cached, nil
	}
	node, err := s.GetNode(ctx, &FindNode{UID: &uid})
	if err != nil {
		return nil, err
	}
	if node != nil && node.Status != NodeGenerating {
		s.nodeCache.Set(uid, node, 0)
	}
	return node, nil
}

func (s *Store) ListNodes(ctx context.Context, find *FindNode) ([]*Node, error) {
	return s.driver.ListNodes(ctx, find)
}

func (s *Store) UpdateNode(ctx context.Context, update *UpdateNode) (*Node, error) {
	node, err := s.driver.UpdateNode(ctx, update)
	if err != nil {
		return nil, err
	}
	if node.Status != NodeGenerating {
		s.nodeCache.Set(node.UID, node, 0)
	}
	return node, nil
}

func (s *Store) CountChildren(ctx context.Context, parentID int32) (int32, error) {
	return s.driver.CountChildren(ctx, parentID)
}

// RegisterChild appends a child id to the parent's cached child index. The
// index is a traversal optimization only; ListNodes by parent is the source
// of truth.
func (s *Store) RegisterChild(parentID, childID int32) {
	children, _ := s.childIndex.Get(parentID)
	s.childIndex.Set(parentID, append(children, childID), 0)
}

// CachedChildren returns the cached child ids, if any.
func (s *Store) CachedChildren(parentID int32) ([]int32, bool) {
	return s.childIndex.Get(parentID)
}

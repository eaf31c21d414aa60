package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Hrishap/ParallelLives/internal/profile"
	"github.com/Hrishap/ParallelLives/store"
	"github.com/Hrishap/ParallelLives/store/teststore"
)

func newTestStore(t *testing.T) (*store.Store, *teststore.Driver) {
	t.Helper()
	driver := teststore.NewDriver()
	return store.New(driver, &profile.Profile{}), driver
}

func TestGetSessionByUIDCaches(t *testing.T) {
	st, driver := newTestStore(t)
	ctx := context.Background()

	created, err := st.CreateSession(ctx, &store.Session{UID: "s1", Title: "base"})
	require.NoError(t, err)

	first, err := st.GetSessionByUID(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, first)

	// Mutate the row behind the facade; the cached copy must still be served.
	title := "renamed"
	_, err = driver.UpdateSession(ctx, &store.UpdateSession{ID: created.ID, Title: &title})
	require.NoError(t, err)

	cached, err := st.GetSessionByUID(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "base", cached.Title)

	// The uncached read sees the new value.
	fresh, err := st.GetSession(ctx, &store.FindSession{UID: &created.UID})
	require.NoError(t, err)
	assert.Equal(t, "renamed", fresh.Title)
}

func TestIncrementAggregatesEvictsSessionCache(t *testing.T) {
	st, _ := newTestStore(t)
	ctx := context.Background()

	created, err := st.CreateSession(ctx, &store.Session{UID: "s1"})
	require.NoError(t, err)

	_, err = st.GetSessionByUID(ctx, "s1")
	require.NoError(t, err)

	require.NoError(t, st.IncrementSessionAggregates(ctx, created.ID, 3))

	session, err := st.GetSessionByUID(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, int32(1), session.TotalNodes)
	assert.Equal(t, int32(3), session.MaxDepth)
}

func TestGetNodeByUIDCachesOnlyTerminalNodes(t *testing.T) {
	st, driver := newTestStore(t)
	ctx := context.Background()

	session, err := st.CreateSession(ctx, &store.Session{UID: "s1"})
	require.NoError(t, err)
	node, err := st.CreateNode(ctx, &store.Node{
		UID:       "n1",
		SessionID: session.ID,
		Status:    store.NodeGenerating,
	})
	require.NoError(t, err)

	// A generating node is never cached: polling must observe the flip to a
	// terminal state.
	got, err := st.GetNodeByUID(ctx, "n1")
	require.NoError(t, err)
	assert.Equal(t, store.NodeGenerating, got.Status)

	completed := store.NodeCompleted
	_, err = driver.UpdateNode(ctx, &store.UpdateNode{ID: node.ID, Status: &completed})
	require.NoError(t, err)

	got, err = st.GetNodeByUID(ctx, "n1")
	require.NoError(t, err)
	assert.Equal(t, store.NodeCompleted, got.Status)
}

func TestDeleteSessionClearsCaches(t *testing.T) {
	st, _ := newTestStore(t)
	ctx := context.Background()

	session, err := st.CreateSession(ctx, &store.Session{UID: "s1"})
	require.NoError(t, err)
	status := store.NodeCompleted
	node, err := st.CreateNode(ctx, &store.Node{UID: "n1", SessionID: session.ID, Status: status})
	require.NoError(t, err)

	_, err = st.GetSessionByUID(ctx, "s1")
	require.NoError(t, err)
	_, err = st.GetNodeByUID(ctx, "n1")
	require.NoError(t, err)
	st.RegisterChild(0, node.ID)

	require.NoError(t, st.DeleteSession(ctx, &store.DeleteSession{ID: session.ID}))

	gone, err := st.GetSessionByUID(ctx, "s1")
	require.NoError(t, err)
	assert.Nil(t, gone)
	goneNode, err := st.GetNodeByUID(ctx, "n1")
	require.NoError(t, err)
	assert.Nil(t, goneNode)
	_, ok := st.CachedChildren(0)
	assert.False(t, ok)
}

func TestRegisterChild(t *testing.T) {
	st, _ := newTestStore(t)

	st.RegisterChild(7, 8)
	st.RegisterChild(7, 9)

	children, ok := st.CachedChildren(7)
	require.True(t, ok)
	assert.Equal(t, []int32{8, 9}, children)
}

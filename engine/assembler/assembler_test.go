package assembler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Hrishap/ParallelLives/engine/choice"
	"github.com/Hrishap/ParallelLives/engine/lifemetrics"
	"github.com/Hrishap/ParallelLives/engine/narrative"
	"github.com/Hrishap/ParallelLives/engine/resolve"
	"github.com/Hrishap/ParallelLives/internal/profile"
	"github.com/Hrishap/ParallelLives/store"
	"github.com/Hrishap/ParallelLives/store/teststore"
)

// newTestAssembler wires the pipeline with nil providers: every collaborator
// degrades to its documented fallback, keeping the tests deterministic.
func newTestAssembler(t *testing.T) (*Assembler, *store.Store, *store.Session) {
	t.Helper()
	st := store.New(teststore.NewDriver(), &profile.Profile{})
	session, err := st.CreateSession(context.Background(), &store.Session{
		UID:            "sess-1",
		Title:          "base life",
		BaseCity:       "New York",
		BaseCountry:    "United States",
		BaseOccupation: "Software Engineer",
	})
	require.NoError(t, err)

	resolver := resolve.New(nil, nil, nil, nil, resolve.Defaults{
		City:       "New York",
		Country:    "United States",
		Occupation: "Software Engineer",
	}, nil)
	asm := New(
		st,
		choice.NewNormalizer(nil),
		resolver,
		narrative.NewCoordinator(nil),
		nil,
	)
	return asm, st, session
}

func strPtr(s string) *string { return &s }

func TestCreateRootNode(t *testing.T) {
	asm, st, session := newTestAssembler(t)
	ctx := context.Background()

	node, err := asm.CreateNode(ctx, &CreateNodeRequest{
		SessionUID: session.UID,
		Choice:     &choice.Input{Structured: &choice.Choice{CareerChange: strPtr("chef")}},
	})
	require.NoError(t, err)

	assert.Equal(t, int32(0), node.Depth)
	assert.Equal(t, int32(0), node.SiblingOrder)
	assert.Nil(t, node.ParentID)
	assert.Equal(t, store.NodeCompleted, node.Status)
	assert.GreaterOrEqual(t, node.ProcessingTimeMs, int64(0))
	assert.Len(t, node.UID, 22, "node UIDs are shortuuids")

	require.NotNil(t, node.Metrics)
	// Occupation comes from the choice, location from the base context.
	assert.Equal(t, "chef", node.Metrics.Occupation.Name)
	assert.Equal(t, "New York", node.Metrics.City.Name)
	// Fallback occupation and neutral city scores derive a flat salary band.
	assert.Equal(t, 50000.0, node.Metrics.Finances.SalaryMedianUSD)
	assert.Equal(t, 5.0, node.Metrics.Finances.SavingsPotential)
	assert.Equal(t, 5.5, node.Metrics.Composite.WorkLifeBalance)

	require.NotNil(t, node.Narrative)
	assert.NotEmpty(t, node.Narrative.Summary)
	assert.NotEmpty(t, node.Narrative.Chapters)
	require.NotNil(t, node.Media)

	// Aggregates were applied.
	refreshed, err := st.GetSession(ctx, &store.FindSession{UID: &session.UID})
	require.NoError(t, err)
	assert.Equal(t, int32(1), refreshed.TotalNodes)
	assert.Equal(t, int32(0), refreshed.MaxDepth)
}

func TestCreateChildBlendsAgainstParent(t *testing.T) {
	asm, st, session := newTestAssembler(t)
	ctx := context.Background()

	root, err := asm.CreateNode(ctx, &CreateNodeRequest{
		SessionUID: session.UID,
		Choice:     &choice.Input{Structured: &choice.Choice{CareerChange: strPtr("chef")}},
	})
	require.NoError(t, err)

	child, err := asm.CreateNode(ctx, &CreateNodeRequest{
		SessionUID: session.UID,
		ParentUID:  root.UID,
		Choice: &choice.Input{Structured: &choice.Choice{
			LocationChange: &choice.LocationChange{City: "Tokyo", Country: "Japan"},
		}},
	})
	require.NoError(t, err)

	assert.Equal(t, int32(1), child.Depth)
	assert.Equal(t, int32(0), child.SiblingOrder)
	require.NotNil(t, child.ParentID)
	assert.Equal(t, root.ID, *child.ParentID)

	// Location changed by choice; occupation inherited from the parent.
	assert.Equal(t, "Tokyo", child.Metrics.City.Name)
	assert.Equal(t, "chef", child.Metrics.Occupation.Name)

	// The stored composite is the blend of fresh indices with the parent's.
	fresh := lifemetrics.FreshIndices(&child.Metrics.City, &child.Metrics.Occupation, &child.Metrics.Finances)
	expected := lifemetrics.Blend(fresh, &root.Metrics.Composite)
	assert.Equal(t, expected, child.Metrics.Composite)

	refreshed, err := st.GetSession(ctx, &store.FindSession{UID: &session.UID})
	require.NoError(t, err)
	assert.Equal(t, int32(2), refreshed.TotalNodes)
	assert.Equal(t, int32(1), refreshed.MaxDepth)
}

func TestProcessingTimeMeasuresRequestDuration(t *testing.T) {
	asm, _, session := newTestAssembler(t)

	start := time.Now()
	node, err := asm.CreateNode(context.Background(), &CreateNodeRequest{
		SessionUID: session.UID,
		Choice:     &choice.Input{Structured: &choice.Choice{CareerChange: strPtr("chef")}},
	})
	wall := time.Since(start).Milliseconds()
	require.NoError(t, err)

	// With nil providers the pipeline is near-instant. The stored duration is
	// measured from request start, so it can never exceed the wall time the
	// caller observed.
	assert.GreaterOrEqual(t, node.ProcessingTimeMs, int64(0))
	assert.LessOrEqual(t, node.ProcessingTimeMs, wall)
}

// brokenUpdateDriver fails every node finalization write.
type brokenUpdateDriver struct {
	*teststore.Driver
}

func (d *brokenUpdateDriver) UpdateNode(context.Context, *store.UpdateNode) (*store.Node, error) {
	return nil, errors.New("disk full")
}

func TestFailedFinalizationStillCountsNode(t *testing.T) {
	ctx := context.Background()
	st := store.New(&brokenUpdateDriver{Driver: teststore.NewDriver()}, &profile.Profile{})
	session, err := st.CreateSession(ctx, &store.Session{UID: "sess-1", Title: "base life"})
	require.NoError(t, err)

	resolver := resolve.New(nil, nil, nil, nil, resolve.Defaults{
		City:       "New York",
		Country:    "United States",
		Occupation: "Software Engineer",
	}, nil)
	asm := New(st, choice.NewNormalizer(nil), resolver, narrative.NewCoordinator(nil), nil)

	_, err = asm.CreateNode(ctx, &CreateNodeRequest{
		SessionUID: session.UID,
		Choice:     &choice.Input{Structured: &choice.Choice{CareerChange: strPtr("chef")}},
	})
	require.Error(t, err)

	// The placeholder row is persisted even though both terminal writes
	// failed, so the session aggregates must account for it.
	refreshed, err := st.GetSession(ctx, &store.FindSession{UID: &session.UID})
	require.NoError(t, err)
	assert.Equal(t, int32(1), refreshed.TotalNodes)

	nodes, err := st.ListNodes(ctx, &store.FindNode{SessionID: &session.ID})
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, store.NodeGenerating, nodes[0].Status)
}

func TestCreateNodeValidation(t *testing.T) {
	asm, st, session := newTestAssembler(t)
	ctx := context.Background()

	root, err := asm.CreateNode(ctx, &CreateNodeRequest{
		SessionUID: session.UID,
		Choice:     &choice.Input{Structured: &choice.Choice{CareerChange: strPtr("chef")}},
	})
	require.NoError(t, err)

	other, err := st.CreateSession(ctx, &store.Session{UID: "sess-2"})
	require.NoError(t, err)

	tests := []struct {
		name string
		req  *CreateNodeRequest
	}{
		{
			name: "unknown session",
			req: &CreateNodeRequest{
				SessionUID: "missing",
				Choice:     &choice.Input{Structured: &choice.Choice{CareerChange: strPtr("chef")}},
			},
		},
		{
			name: "unknown parent",
			req: &CreateNodeRequest{
				SessionUID: session.UID,
				ParentUID:  "missing",
				Choice:     &choice.Input{Structured: &choice.Choice{CareerChange: strPtr("chef")}},
			},
		},
		{
			name: "parent from another session",
			req: &CreateNodeRequest{
				SessionUID: other.UID,
				ParentUID:  root.UID,
				Choice:     &choice.Input{Structured: &choice.Choice{CareerChange: strPtr("chef")}},
			},
		},
		{
			name: "empty choice",
			req: &CreateNodeRequest{
				SessionUID: session.UID,
				Choice:     &choice.Input{Structured: &choice.Choice{}},
			},
		},
		{
			name: "nil choice",
			req: &CreateNodeRequest{
				SessionUID: session.UID,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := asm.CreateNode(ctx, tt.req)
			require.Error(t, err)
			assert.True(t, IsValidationError(err), "expected validation error, got %v", err)
		})
	}
}

func TestCreateNodeRejectsGeneratingParent(t *testing.T) {
	asm, st, session := newTestAssembler(t)
	ctx := context.Background()

	pending, err := st.CreateNode(ctx, &store.Node{
		UID:       "pending-1",
		SessionID: session.ID,
		Status:    store.NodeGenerating,
	})
	require.NoError(t, err)

	_, err = asm.CreateNode(ctx, &CreateNodeRequest{
		SessionUID: session.UID,
		ParentUID:  pending.UID,
		Choice:     &choice.Input{Structured: &choice.Choice{CareerChange: strPtr("chef")}},
	})
	require.Error(t, err)
	assert.True(t, IsValidationError(err))
}

func TestCreateNodeDepthCeiling(t *testing.T) {
	asm, _, session := newTestAssembler(t)
	ctx := context.Background()

	parentUID := ""
	var last *store.Node
	var err error
	for i := 0; i <= store.MaxDepth; i++ {
		last, err = asm.CreateNode(ctx, &CreateNodeRequest{
			SessionUID: session.UID,
			ParentUID:  parentUID,
			Choice:     &choice.Input{Structured: &choice.Choice{CareerChange: strPtr("chef")}},
		})
		require.NoError(t, err)
		require.Equal(t, store.NodeCompleted, last.Status)
		parentUID = last.UID
	}
	assert.Equal(t, int32(store.MaxDepth), last.Depth)

	_, err = asm.CreateNode(ctx, &CreateNodeRequest{
		SessionUID: session.UID,
		ParentUID:  last.UID,
		Choice:     &choice.Input{Structured: &choice.Choice{CareerChange: strPtr("chef")}},
	})
	require.Error(t, err)
	assert.True(t, IsValidationError(err))
}

func TestConcurrentSiblingsKeepAggregatesConsistent(t *testing.T) {
	asm, st, session := newTestAssembler(t)
	ctx := context.Background()

	root, err := asm.CreateNode(ctx, &CreateNodeRequest{
		SessionUID: session.UID,
		Choice:     &choice.Input{Structured: &choice.Choice{CareerChange: strPtr("chef")}},
	})
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]*store.Node, 2)
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = asm.CreateNode(ctx, &CreateNodeRequest{
				SessionUID: session.UID,
				ParentUID:  root.UID,
				Choice:     &choice.Input{Structured: &choice.Choice{LifestyleChange: strPtr("nomad")}},
			})
		}(i)
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])

	// Sibling order may collide under concurrency, but the aggregate counters
	// never lose an update.
	refreshed, err := st.GetSession(ctx, &store.FindSession{UID: &session.UID})
	require.NoError(t, err)
	assert.Equal(t, int32(3), refreshed.TotalNodes)
	assert.Equal(t, int32(1), refreshed.MaxDepth)

	children, err := st.ListNodes(ctx, &store.FindNode{ParentID: &root.ID})
	require.NoError(t, err)
	assert.Len(t, children, 2)
}

func TestTotalCollaboratorOutageStillCompletes(t *testing.T) {
	// All providers are nil in newTestAssembler, which is the strongest form
	// of outage. The node must still reach completed with fallback data.
	asm, _, session := newTestAssembler(t)

	node, err := asm.CreateNode(context.Background(), &CreateNodeRequest{
		SessionUID: session.UID,
		Choice:     &choice.Input{Structured: &choice.Choice{CareerChange: strPtr("painter")}},
	})
	require.NoError(t, err)
	assert.Equal(t, store.NodeCompleted, node.Status)
	require.NotNil(t, node.Metrics)
	require.NotNil(t, node.Narrative)
	assert.Empty(t, node.Media.URL)
	assert.Nil(t, node.ErrorMessage)
}

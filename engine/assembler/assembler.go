// Package assembler runs the node generation pipeline: it validates the
// request, persists a placeholder row, resolves metrics, blends composite
// indices against the parent, generates the narrative, and finalizes the node
// to exactly one terminal state.
package assembler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lithammer/shortuuid/v4"
	"github.com/pkg/errors"

	"github.com/Hrishap/ParallelLives/engine/choice"
	"github.com/Hrishap/ParallelLives/engine/lifemetrics"
	"github.com/Hrishap/ParallelLives/engine/narrative"
	"github.com/Hrishap/ParallelLives/engine/resolve"
	"github.com/Hrishap/ParallelLives/engine/telemetry"
	"github.com/Hrishap/ParallelLives/store"
)

// ValidationError marks a request rejected before any node row was created.
// The HTTP layer maps it to a 4xx response; NotFound distinguishes a missing
// referenced object from a malformed request.
type ValidationError struct {
	Reason   string
	NotFound bool
}

func (e *ValidationError) Error() string {
	return e.Reason
}

func invalidf(format string, args ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

func notFoundf(format string, args ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...), NotFound: true}
}

// IsValidationError reports whether err is a request validation failure.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsNotFound reports whether err is a missing-object validation failure.
func IsNotFound(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve) && ve.NotFound
}

// CreateNodeRequest is a request to branch a new node.
type CreateNodeRequest struct {
	SessionUID string
	// ParentUID is empty for a root node.
	ParentUID string

	Choice      *choice.Input
	Preferences *narrative.Preferences
}

// Assembler orchestrates the node generation pipeline.
type Assembler struct {
	store      *store.Store
	normalizer *choice.Normalizer
	resolver   *resolve.Resolver
	narrator   *narrative.Coordinator
	exporter   *telemetry.Exporter
}

func New(
	st *store.Store,
	normalizer *choice.Normalizer,
	resolver *resolve.Resolver,
	narrator *narrative.Coordinator,
	exporter *telemetry.Exporter,
) *Assembler {
	return &Assembler{
		store:      st,
		normalizer: normalizer,
		resolver:   resolver,
		narrator:   narrator,
		exporter:   exporter,
	}
}

// CreateNode runs the full pipeline synchronously and returns the node in its
// terminal state. Validation failures happen before any row exists; once the
// placeholder is persisted, every outcome finalizes the row to completed or
// error so no node is left generating.
func (a *Assembler) CreateNode(ctx context.Context, req *CreateNodeRequest) (*store.Node, error) {
	start := time.Now()

	normalized, err := a.normalizer.Normalize(ctx, req.Choice)
	if err != nil {
		if errors.Is(err, choice.ErrEmptyChoice) || errors.Is(err, choice.ErrClassification) {
			return nil, invalidf("invalid choice: %v", err)
		}
		return nil, errors.Wrap(err, "failed to normalize choice")
	}

	session, err := a.store.GetSessionByUID(ctx, req.SessionUID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load session")
	}
	if session == nil {
		return nil, notFoundf("session %q not found", req.SessionUID)
	}

	var parent *store.Node
	if req.ParentUID != "" {
		parent, err = a.store.GetNodeByUID(ctx, req.ParentUID)
		if err != nil {
			return nil, errors.Wrap(err, "failed to load parent node")
		}
		if parent == nil {
			return nil, notFoundf("parent node %q not found", req.ParentUID)
		}
		if parent.SessionID != session.ID {
			return nil, invalidf("parent node %q belongs to another session", req.ParentUID)
		}
		if parent.Status != store.NodeCompleted {
			return nil, invalidf("parent node %q is %s, only completed nodes can branch", req.ParentUID, parent.Status)
		}
	}

	depth := int32(0)
	siblingOrder := int32(0)
	var parentID *int32
	if parent != nil {
		depth = parent.Depth + 1
		if depth > store.MaxDepth {
			return nil, invalidf("depth %d exceeds the maximum of %d", depth, store.MaxDepth)
		}
		parentID = &parent.ID
		// Sibling order is the count of existing children at creation time.
		// Two concurrent branches may read the same count; the order is for
		// display only, so the collision is accepted.
		siblingOrder, err = a.store.CountChildren(ctx, parent.ID)
		if err != nil {
			return nil, errors.Wrap(err, "failed to count siblings")
		}
	}

	node, err := a.store.CreateNode(ctx, &store.Node{
		UID:          shortuuid.New(),
		SessionID:    session.ID,
		ParentID:     parentID,
		Depth:        depth,
		SiblingOrder: siblingOrder,
		Choice:       normalized,
		Status:       store.NodeGenerating,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create node")
	}
	if parent != nil {
		a.store.RegisterChild(parent.ID, node.ID)
	}

	final, genErr := a.generate(ctx, session, parent, node, normalized, req.Preferences, start)
	elapsed := time.Since(start)
	var finalizeErr error
	if genErr != nil {
		final, finalizeErr = a.finalizeError(ctx, node, genErr, elapsed)
	}

	// The row is persisted even when error-finalization failed, so it must be
	// counted either way.
	if err := a.store.IncrementSessionAggregates(ctx, session.ID, depth); err != nil {
		// Aggregate drift is preferable to failing the whole request now.
		slog.Error("assembler: failed to update session aggregates",
			"session", session.UID, "node", node.UID, "error", err)
	}
	if finalizeErr != nil {
		return nil, finalizeErr
	}

	a.exporter.ObserveGeneration(string(final.Status), elapsed)
	slog.Info("assembler: node finalized",
		"session", session.UID,
		"node", node.UID,
		"depth", depth,
		"status", final.Status,
		"elapsed_ms", elapsed.Milliseconds(),
	)
	return final, nil
}

// generate runs the enrichment stages and finalizes the node as completed.
func (a *Assembler) generate(
	ctx context.Context,
	session *store.Session,
	parent *store.Node,
	node *store.Node,
	normalized *choice.Choice,
	prefs *narrative.Preferences,
	start time.Time,
) (*store.Node, error) {
	base := &resolve.BaseContext{
		City:       session.BaseCity,
		Country:    session.BaseCountry,
		Occupation: session.BaseOccupation,
	}
	var parentMetrics *lifemetrics.Bundle
	if parent != nil {
		parentMetrics = parent.Metrics
	}

	resolved, err := a.resolver.Resolve(ctx, normalized, parentMetrics, base)
	if err != nil {
		return nil, errors.Wrap(err, "failed to resolve metrics")
	}

	fresh := lifemetrics.FreshIndices(&resolved.City, &resolved.Occupation, &resolved.Finances)
	var parentComposite *lifemetrics.CompositeIndices
	if parentMetrics != nil {
		parentComposite = &parentMetrics.Composite
	}
	composite := lifemetrics.Blend(fresh, parentComposite)

	bundle := &lifemetrics.Bundle{
		City:       resolved.City,
		Occupation: resolved.Occupation,
		Finances:   resolved.Finances,
		Composite:  composite,
	}

	var parentCtx *narrative.ParentContext
	if parent != nil && parentMetrics != nil {
		path, err := a.choicePath(ctx, parent)
		if err != nil {
			slog.Warn("assembler: failed to build choice path, continuing without it",
				"node", node.UID, "error", err)
		}
		parentCtx = narrative.NewParentContext(parent.Narrative, parentMetrics.Composite, path)
	}

	story, source := a.narrator.Generate(ctx, normalized, bundle, parentCtx, prefs)
	if source == narrative.SourceFallback {
		resolved.Degraded = append(resolved.Degraded, "narrative")
	}
	if len(resolved.Degraded) > 0 {
		slog.Warn("assembler: node completed with degraded collaborators",
			"node", node.UID, "degraded", resolved.Degraded)
	}

	// Measured from request start, matching the error path.
	status := store.NodeCompleted
	processingMs := time.Since(start).Milliseconds()
	final, err := a.store.UpdateNode(ctx, &store.UpdateNode{
		ID:               node.ID,
		Metrics:          bundle,
		Narrative:        story,
		Media:            resolved.Cover,
		Status:           &status,
		ProcessingTimeMs: &processingMs,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to finalize node")
	}
	return final, nil
}

// finalizeError marks the node as failed, preserving the cause for the
// client. The create request itself still succeeds: the terminal error node
// is the result.
func (a *Assembler) finalizeError(ctx context.Context, node *store.Node, cause error, elapsed time.Duration) (*store.Node, error) {
	slog.Error("assembler: node generation failed",
		"node", node.UID, "error", cause)

	status := store.NodeError
	message := cause.Error()
	processingMs := elapsed.Milliseconds()
	final, err := a.store.UpdateNode(ctx, &store.UpdateNode{
		ID:               node.ID,
		Status:           &status,
		ErrorMessage:     &message,
		ProcessingTimeMs: &processingMs,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to record node error: %v", cause)
	}
	return final, nil
}

// choicePath walks the ancestor chain from the root down to the given node
// and describes each choice along the way.
func (a *Assembler) choicePath(ctx context.Context, node *store.Node) ([]string, error) {
	var descriptions []string
	current := node
	for current != nil {
		if current.Choice != nil && !current.Choice.IsEmpty() {
			descriptions = append(descriptions, current.Choice.Describe())
		}
		if current.ParentID == nil {
			break
		}
		parent, err := a.store.GetNode(ctx, &store.FindNode{ID: current.ParentID})
		if err != nil {
			return nil, err
		}
		if parent == nil {
			break
		}
		current = parent
	}
	// Reverse into root-first order.
	for i, j := 0, len(descriptions)-1; i < j; i, j = i+1, j-1 {
		descriptions[i], descriptions[j] = descriptions[j], descriptions[i]
	}
	return descriptions, nil
}

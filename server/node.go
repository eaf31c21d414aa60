package server

import (
	"net/http"
	"sort"

	"github.com/labstack/echo/v4"

	"github.com/Hrishap/ParallelLives/engine/assembler"
	"github.com/Hrishap/ParallelLives/engine/choice"
	"github.com/Hrishap/ParallelLives/engine/lifemetrics"
	"github.com/Hrishap/ParallelLives/engine/narrative"
	"github.com/Hrishap/ParallelLives/store"
)

type createNodeRequest struct {
	ParentUID   string                 `json:"parentUid,omitempty"`
	Choice      *choice.Choice         `json:"choice,omitempty"`
	FreeText    string                 `json:"freeText,omitempty"`
	Preferences *narrative.Preferences `json:"preferences,omitempty"`
}

type nodeResponse struct {
	UID              string                  `json:"uid"`
	ParentUID        string                  `json:"parentUid,omitempty"`
	Depth            int32                   `json:"depth"`
	Order            int32                   `json:"order"`
	Choice           *choice.Choice          `json:"choice,omitempty"`
	Metrics          *lifemetrics.Bundle     `json:"metrics,omitempty"`
	Narrative        *narrative.Narrative    `json:"narrative,omitempty"`
	Media            *lifemetrics.CoverImage `json:"media,omitempty"`
	Status           store.NodeStatus        `json:"status"`
	ErrorMessage     string                  `json:"errorMessage,omitempty"`
	ProcessingTimeMs int64                   `json:"processingTimeMs"`
	CreatedTs        int64                   `json:"createdTs"`
	UpdatedTs        int64                   `json:"updatedTs"`
}

func toNodeResponse(n *store.Node, parentUID string) nodeResponse {
	resp := nodeResponse{
		UID:              n.UID,
		ParentUID:        parentUID,
		Depth:            n.Depth,
		Order:            n.SiblingOrder,
		Choice:           n.Choice,
		Metrics:          n.Metrics,
		Narrative:        n.Narrative,
		Media:            n.Media,
		Status:           n.Status,
		ProcessingTimeMs: n.ProcessingTimeMs,
		CreatedTs:        n.CreatedTs,
		UpdatedTs:        n.UpdatedTs,
	}
	if n.ErrorMessage != nil {
		resp.ErrorMessage = *n.ErrorMessage
	}
	return resp
}

func (s *Server) createNode(c echo.Context) error {
	sessionUID := c.Param("uid")

	var req createNodeRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "malformed request body")
	}
	if req.Choice == nil && req.FreeText == "" {
		return badRequest(c, "either choice or freeText is required")
	}

	node, err := s.assembler.CreateNode(c.Request().Context(), &assembler.CreateNodeRequest{
		SessionUID: sessionUID,
		ParentUID:  req.ParentUID,
		Choice: &choice.Input{
			Structured: req.Choice,
			FreeText:   req.FreeText,
		},
		Preferences: req.Preferences,
	})
	if err != nil {
		if assembler.IsNotFound(err) {
			return notFound(c, err.Error())
		}
		if assembler.IsValidationError(err) {
			return badRequest(c, err.Error())
		}
		return internalError(c, err)
	}
	return c.JSON(http.StatusCreated, toNodeResponse(node, req.ParentUID))
}

func (s *Server) getNode(c echo.Context) error {
	uid := c.Param("uid")
	ctx := c.Request().Context()

	node, err := s.store.GetNodeByUID(ctx, uid)
	if err != nil {
		return internalError(c, err)
	}
	if node == nil {
		return notFound(c, "node not found")
	}

	parentUID := ""
	if node.ParentID != nil {
		parent, err := s.store.GetNode(ctx, &store.FindNode{ID: node.ParentID})
		if err != nil {
			return internalError(c, err)
		}
		if parent != nil {
			parentUID = parent.UID
		}
	}
	return c.JSON(http.StatusOK, toNodeResponse(node, parentUID))
}

// treeNode is a node with its children nested, for whole-tree rendering.
type treeNode struct {
	nodeResponse
	Children []*treeNode `json:"children"`
}

type treeResponse struct {
	Session sessionResponse `json:"session"`
	Roots   []*treeNode     `json:"roots"`
}

func (s *Server) getTree(c echo.Context) error {
	uid := c.Param("uid")
	ctx := c.Request().Context()

	session, err := s.store.GetSession(ctx, &store.FindSession{UID: &uid})
	if err != nil {
		return internalError(c, err)
	}
	if session == nil {
		return notFound(c, "session not found")
	}

	nodes, err := s.store.ListNodes(ctx, &store.FindNode{SessionID: &session.ID})
	if err != nil {
		return internalError(c, err)
	}

	uidByID := make(map[int32]string, len(nodes))
	for _, n := range nodes {
		uidByID[n.ID] = n.UID
	}

	byID := make(map[int32]*treeNode, len(nodes))
	var roots []*treeNode
	for _, n := range nodes {
		parentUID := ""
		if n.ParentID != nil {
			parentUID = uidByID[*n.ParentID]
		}
		byID[n.ID] = &treeNode{
			nodeResponse: toNodeResponse(n, parentUID),
			Children:     []*treeNode{},
		}
	}
	for _, n := range nodes {
		tn := byID[n.ID]
		if n.ParentID == nil {
			roots = append(roots, tn)
			continue
		}
		parent, ok := byID[*n.ParentID]
		if !ok {
			// Orphaned back-reference; surface it at the top rather than drop
			// the subtree.
			roots = append(roots, tn)
			continue
		}
		parent.Children = append(parent.Children, tn)
	}

	sortTree(roots)
	return c.JSON(http.StatusOK, treeResponse{
		Session: toSessionResponse(session),
		Roots:   roots,
	})
}

// sortTree orders siblings by their creation order at every level.
func sortTree(nodes []*treeNode) {
	sort.SliceStable(nodes, func(i, j int) bool {
		if nodes[i].Order != nodes[j].Order {
			return nodes[i].Order < nodes[j].Order
		}
		return nodes[i].CreatedTs < nodes[j].CreatedTs
	})
	for _, n := range nodes {
		sortTree(n.Children)
	}
}

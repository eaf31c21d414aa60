package server

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Hrishap/ParallelLives/store"
)

type createSessionRequest struct {
	Title          string `json:"title"`
	BaseCity       string `json:"baseCity"`
	BaseCountry    string `json:"baseCountry"`
	BaseOccupation string `json:"baseOccupation"`
}

type updateSessionRequest struct {
	Title  *string `json:"title"`
	Status *string `json:"status"`
}

type sessionResponse struct {
	UID            string `json:"uid"`
	Title          string `json:"title"`
	Status         string `json:"status"`
	BaseCity       string `json:"baseCity,omitempty"`
	BaseCountry    string `json:"baseCountry,omitempty"`
	BaseOccupation string `json:"baseOccupation,omitempty"`
	TotalNodes     int32  `json:"totalNodes"`
	MaxDepth       int32  `json:"maxDepth"`
	CreatedTs      int64  `json:"createdTs"`
	UpdatedTs      int64  `json:"updatedTs"`
}

func toSessionResponse(s *store.Session) sessionResponse {
	return sessionResponse{
		UID:            s.UID,
		Title:          s.Title,
		Status:         s.Status,
		BaseCity:       s.BaseCity,
		BaseCountry:    s.BaseCountry,
		BaseOccupation: s.BaseOccupation,
		TotalNodes:     s.TotalNodes,
		MaxDepth:       s.MaxDepth,
		CreatedTs:      s.CreatedTs,
		UpdatedTs:      s.UpdatedTs,
	}
}

func (s *Server) createSession(c echo.Context) error {
	var req createSessionRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "malformed request body")
	}
	if strings.TrimSpace(req.Title) == "" {
		return badRequest(c, "title is required")
	}

	session, err := s.store.CreateSession(c.Request().Context(), &store.Session{
		UID:            uuid.NewString(),
		Title:          strings.TrimSpace(req.Title),
		Status:         store.SessionActive,
		BaseCity:       strings.TrimSpace(req.BaseCity),
		BaseCountry:    strings.TrimSpace(req.BaseCountry),
		BaseOccupation: strings.TrimSpace(req.BaseOccupation),
	})
	if err != nil {
		return internalError(c, err)
	}
	return c.JSON(http.StatusCreated, toSessionResponse(session))
}

func (s *Server) listSessions(c echo.Context) error {
	find := &store.FindSession{}
	if status := c.QueryParam("status"); status != "" {
		find.Status = &status
	}

	sessions, err := s.store.ListSessions(c.Request().Context(), find)
	if err != nil {
		return internalError(c, err)
	}
	out := make([]sessionResponse, 0, len(sessions))
	for _, session := range sessions {
		out = append(out, toSessionResponse(session))
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) getSession(c echo.Context) error {
	uid := c.Param("uid")
	session, err := s.store.GetSession(c.Request().Context(), &store.FindSession{UID: &uid})
	if err != nil {
		return internalError(c, err)
	}
	if session == nil {
		return notFound(c, "session not found")
	}
	return c.JSON(http.StatusOK, toSessionResponse(session))
}

func (s *Server) updateSession(c echo.Context) error {
	uid := c.Param("uid")
	var req updateSessionRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "malformed request body")
	}
	if req.Status != nil && *req.Status != store.SessionActive && *req.Status != store.SessionArchived {
		return badRequest(c, "status must be active or archived")
	}

	ctx := c.Request().Context()
	session, err := s.store.GetSession(ctx, &store.FindSession{UID: &uid})
	if err != nil {
		return internalError(c, err)
	}
	if session == nil {
		return notFound(c, "session not found")
	}

	updated, err := s.store.UpdateSession(ctx, &store.UpdateSession{
		ID:     session.ID,
		Title:  req.Title,
		Status: req.Status,
	})
	if err != nil {
		return internalError(c, err)
	}
	return c.JSON(http.StatusOK, toSessionResponse(updated))
}

func (s *Server) deleteSession(c echo.Context) error {
	uid := c.Param("uid")
	ctx := c.Request().Context()

	session, err := s.store.GetSession(ctx, &store.FindSession{UID: &uid})
	if err != nil {
		return internalError(c, err)
	}
	if session == nil {
		return notFound(c, "session not found")
	}
	if err := s.store.DeleteSession(ctx, &store.DeleteSession{ID: session.ID}); err != nil {
		return internalError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

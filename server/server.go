// Package server exposes the REST API over echo: session management, node
// branching, tree retrieval, health and metrics.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/lithammer/shortuuid/v4"
	"github.com/pkg/errors"

	"github.com/Hrishap/ParallelLives/engine/assembler"
	"github.com/Hrishap/ParallelLives/engine/telemetry"
	"github.com/Hrishap/ParallelLives/internal/profile"
	"github.com/Hrishap/ParallelLives/store"
)

// Server is the HTTP server.
type Server struct {
	echo      *echo.Echo
	profile   *profile.Profile
	store     *store.Store
	assembler *assembler.Assembler
	exporter  *telemetry.Exporter
}

// New creates the server and registers all routes.
func New(profile *profile.Profile, st *store.Store, asm *assembler.Assembler, exporter *telemetry.Exporter) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:      e,
		profile:   profile,
		store:     st,
		assembler: asm,
		exporter:  exporter,
	}

	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(requestLogger())

	e.GET("/healthz", s.healthz)
	e.GET("/metrics", echo.WrapHandler(exporter.Handler()))

	g := e.Group("/api/v1")
	g.POST("/sessions", s.createSession)
	g.GET("/sessions", s.listSessions)
	g.GET("/sessions/:uid", s.getSession)
	g.PATCH("/sessions/:uid", s.updateSession)
	g.DELETE("/sessions/:uid", s.deleteSession)
	g.GET("/sessions/:uid/tree", s.getTree)
	g.POST("/sessions/:uid/nodes", s.createNode)
	g.GET("/nodes/:uid", s.getNode)

	return s
}

// Start begins serving and blocks until the listener fails.
func (s *Server) Start(ctx context.Context) error {
	address := fmt.Sprintf("%s:%d", s.profile.Addr, s.profile.Port)
	slog.Info("server: listening", "address", address)
	if err := s.echo.Start(address); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return s.echo.Shutdown(ctx)
}

// Echo exposes the router for tests.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

func (s *Server) healthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// requestLogger attaches a short request id and logs one line per request.
func requestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			requestID := shortuuid.New()
			c.Response().Header().Set(echo.HeaderXRequestID, requestID)

			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			slog.Info("http request",
				"request_id", requestID,
				"method", c.Request().Method,
				"path", c.Request().URL.Path,
				"status", c.Response().Status,
				"elapsed_ms", time.Since(start).Milliseconds(),
			)
			return err
		}
	}
}

// errorResponse is the uniform error body.
type errorResponse struct {
	Message string `json:"message"`
}

func badRequest(c echo.Context, message string) error {
	return c.JSON(http.StatusBadRequest, errorResponse{Message: message})
}

func notFound(c echo.Context, message string) error {
	return c.JSON(http.StatusNotFound, errorResponse{Message: message})
}

func internalError(c echo.Context, err error) error {
	slog.Error("http: internal error",
		"method", c.Request().Method,
		"path", c.Request().URL.Path,
		"error", err,
	)
	return c.JSON(http.StatusInternalServerError, errorResponse{Message: "internal server error"})
}

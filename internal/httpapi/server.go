// Package httpapi exposes the knowledge base over HTTP.
//
// The server is read-only: it embeds incoming queries and searches a
// loaded index engine. The engine must not be mutated while the server
// is running; run ingestion and migration offline.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/fyrsmithlabs/hazina/internal/embeddings"
	"github.com/fyrsmithlabs/hazina/internal/index"
)

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int

	// RateLimit is the sustained queries-per-second allowed; RateBurst is
	// the burst size. Zero values disable limiting.
	RateLimit float64
	RateBurst int
}

// Server serves search and stats over a loaded index.
type Server struct {
	echo     *echo.Echo
	engine   *index.Engine
	embedder embeddings.Embedder
	logger   *zap.Logger
	config   *Config
}

// NewServer creates the HTTP server and registers routes.
func NewServer(engine *index.Engine, embedder embeddings.Embedder, logger *zap.Logger, cfg *Config) (*Server, error) {
	if engine == nil {
		return nil, fmt.Errorf("engine cannot be nil")
	}
	if embedder == nil {
		return nil, fmt.Errorf("embedder cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = &Config{
			Host: "localhost",
			Port: 8080,
		}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(requestLogger(logger))
	if cfg.RateLimit > 0 {
		e.Use(rateLimiter(rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst)))
	}

	s := &Server{
		echo:     e,
		engine:   engine,
		embedder: embedder,
		logger:   logger,
		config:   cfg,
	}
	s.registerRoutes()

	return s, nil
}

func requestLogger(logger *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			duration := time.Since(start)

			logger.Info("http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", duration),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)

			return err
		}
	}
}

func rateLimiter(limiter *rate.Limiter) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !limiter.Allow() {
				return echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded")
			}
			return next(c)
		}
	}
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := s.echo.Group("/api/v1")
	v1.POST("/search", s.handleSearch)
	v1.GET("/stats", s.handleStats)
}

// SearchRequest is the request body for POST /api/v1/search.
type SearchRequest struct {
	Query   string            `json:"query"`
	K       int               `json:"k"`
	Filters map[string]string `json:"filters,omitempty"`
}

// SearchHit is a single result in a SearchResponse.
type SearchHit struct {
	ChunkID  string  `json:"chunk_id"`
	DocID    string  `json:"doc_id"`
	SourceID string  `json:"source_id"`
	Title    string  `json:"title"`
	Section  string  `json:"section,omitempty"`
	URL      string  `json:"url,omitempty"`
	Distance float32 `json:"distance"`
}

// SearchResponse is the response body for POST /api/v1/search.
type SearchResponse struct {
	Query   string      `json:"query"`
	Results []SearchHit `json:"results"`
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status      string `json:"status"`
	VectorCount int    `json:"vector_count"`
}

const defaultSearchK = 5

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{
		Status:      "ok",
		VectorCount: s.engine.Count(),
	})
}

func (s *Server) handleSearch(c echo.Context) error {
	var req SearchRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn("invalid search request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query field is required")
	}
	if req.K <= 0 {
		req.K = defaultSearchK
	}

	ctx := c.Request().Context()

	query, err := s.embedder.EmbedQuery(ctx, req.Query)
	if err != nil {
		s.logger.Error("query embedding failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "embedding failed")
	}

	results, err := s.engine.Search(ctx, query, req.K, index.Filter(req.Filters))
	if err != nil {
		if errors.Is(err, index.ErrEmptyIndex) {
			return echo.NewHTTPError(http.StatusServiceUnavailable, "index is empty")
		}
		s.logger.Error("search failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "search failed")
	}

	hits := make([]SearchHit, 0, len(results))
	for _, r := range results {
		hits = append(hits, SearchHit{
			ChunkID:  r.Meta.ChunkID,
			DocID:    r.Meta.DocID,
			SourceID: r.Meta.SourceID,
			Title:    r.Meta.Title,
			Section:  r.Meta.SectionTitle,
			URL:      r.Meta.URL,
			Distance: r.Distance,
		})
	}

	return c.JSON(http.StatusOK, SearchResponse{Query: req.Query, Results: hits})
}

func (s *Server) handleStats(c echo.Context) error {
	return c.JSON(http.StatusOK, s.engine.Stats())
}

// Echo exposes the underlying echo instance for route additions in main.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// Start starts the HTTP server and blocks until shutdown.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info("starting http server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}

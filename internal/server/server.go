package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nao1215/a11yscan/internal/database"
	"github.com/nao1215/a11yscan/internal/model"
)

const (
	// maxBodyBytes bounds the size of an audit request body.
	maxBodyBytes = 1 << 20
	// defaultListLimit is the number of audits listed when no limit is given.
	defaultListLimit = 50
	// maxListLimit caps the ?limit= parameter.
	maxListLimit = 500
	// shutdownTimeout bounds the graceful shutdown. Audits in flight take
	// up to a few minutes; they are cut off after it.
	shutdownTimeout = 3 * time.Minute
)

func init() {
	gin.SetMode(gin.ReleaseMode)
}

// Auditor runs audit requests. *orchestrator.Orchestrator implements it.
type Auditor interface {
	Handle(ctx context.Context, req model.Request) (*model.Response, error)
}

// Store reads stored audits. *database.AuditDB implements it.
type Store interface {
	Get(ctx context.Context, id string) (*model.Response, error)
	Recent(ctx context.Context, limit int) ([]database.AuditMetadata, error)
	History(ctx context.Context, url string, limit int) ([]database.AuditMetadata, error)
}

// Server is the HTTP front end of the orchestrator.
type Server struct {
	auditor Auditor
	store   Store
	logger  *slog.Logger
	addr    string
	version string
	engine  *gin.Engine
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger used for request logs.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	return func(s *Server) {
		s.addr = addr
	}
}

// WithStore enables the history routes.
func WithStore(store Store) Option {
	return func(s *Server) {
		s.store = store
	}
}

// WithVersion sets the version reported by /healthz.
func WithVersion(version string) Option {
	return func(s *Server) {
		s.version = version
	}
}

// New creates a Server. Without a store, the history routes answer 404.
func New(auditor Auditor, opts ...Option) *Server {
	s := &Server{
		auditor: auditor,
		logger:  slog.Default(),
		addr:    ":8080",
	}
	for _, opt := range opts {
		opt(s)
	}

	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	r.GET("/healthz", s.healthHandler)
	api := r.Group("/api")
	api.POST("/audit", s.auditHandler)
	api.GET("/audits", s.listHandler)
	api.GET("/audits/:id", s.getHandler)

	s.engine = r
	return s
}

// Handler returns the HTTP handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// Audits run for minutes.
		WriteTimeout:   0,
		MaxHeaderBytes: 1 << 20,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", s.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	s.logger.Info("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Info("request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"elapsed", time.Since(start),
		)
	}
}

func (s *Server) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "version": s.version})
}

func (s *Server) auditHandler(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes)

	var req model.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	resp, err := s.auditor.Handle(c.Request.Context(), req)
	if err != nil {
		c.JSON(statusOf(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, resp)
}

// statusOf maps an orchestrator error to an HTTP status.
func statusOf(err error) int {
	switch {
	case errors.Is(err, model.ErrQuotaExceeded):
		return http.StatusTooManyRequests
	case model.IsRequestError(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) listHandler(c *gin.Context) {
	if s.store == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "history is disabled"})
		return
	}

	limit := defaultListLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = min(n, maxListLimit)
	}

	var (
		audits []database.AuditMetadata
		err    error
	)
	if url := c.Query("url"); url != "" {
		audits, err = s.store.History(c.Request.Context(), url, limit)
	} else {
		audits, err = s.store.Recent(c.Request.Context(), limit)
	}
	if err != nil {
		s.logger.Error("failed to list audits", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list audits"})
		return
	}

	body := gin.H{"audits": audits}
	if delta, ok := database.ScoreDelta(audits); ok && c.Query("url") != "" {
		body["scoreDelta"] = delta
	}
	c.JSON(http.StatusOK, body)
}

func (s *Server) getHandler(c *gin.Context) {
	if s.store == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "history is disabled"})
		return
	}

	id := c.Param("id")
	resp, err := s.store.Get(c.Request.Context(), id)
	switch {
	case errors.Is(err, database.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "audit not found"})
	case err != nil:
		s.logger.Error("failed to get audit", "id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load audit"})
	default:
		c.JSON(http.StatusOK, resp)
	}
}

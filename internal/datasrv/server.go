package datasrv

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/marqueehq/marquee/internal/logger"
	"github.com/marqueehq/marquee/internal/model"
)

// Server is the simulated data-file API used for development and demos. It
// serves the same endpoints the real backend exposes.
type Server struct {
	addr   string
	token  string
	store  *Store
	log    logger.Logger
	server *http.Server
	ctx    context.Context
	cancel context.CancelFunc
}

// NewServer creates the simulator. token is the bearer token every request
// must carry; empty disables auth.
func NewServer(addr, token string, store *Store, log logger.Logger) *Server {
	if addr == "" {
		addr = "127.0.0.1:8750"
	}
	if log == nil {
		log = logger.Nop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		addr:   addr,
		token:  token,
		store:  store,
		log:    log,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Router builds the gin handler. Exposed for tests.
func (s *Server) Router() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(s.requireBearer)

	r.GET("/api/health", s.handleHealth)
	r.GET("/api/tenants/:tenant/dashboards/:dashboard/datasets", s.handleDatasets)
	r.GET("/api/tenants/:tenant/dashboards/:dashboard/access", s.handleAccess)
	r.GET("/api/tenants/:tenant/settings", s.handleSettings)
	r.PATCH("/api/datasets/:id", s.handlePatchChartKind)

	return r
}

// Start begins serving HTTP requests.
func (s *Server) Start() error {
	s.server = &http.Server{
		Handler:           s.Router(),
		BaseContext:       func(_ net.Listener) context.Context { return s.ctx },
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}

	s.log.Info("data simulator listening", "addr", listener.Addr().String())
	go s.server.Serve(listener)
	return nil
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop() error {
	s.cancel()
	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

func (s *Server) requireBearer(c *gin.Context) {
	if s.token == "" {
		c.Next()
		return
	}
	got := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
	if got != s.token {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid bearer token"})
		return
	}
	c.Next()
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleDatasets(c *gin.Context) {
	records, err := s.store.Datasets(c.Param("tenant"), c.Param("dashboard"))
	switch {
	case errors.Is(err, errNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "dashboard not found"})
	case errors.Is(err, errRestricted):
		c.JSON(http.StatusForbidden, gin.H{"error": "access denied"})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusOK, records)
	}
}

func (s *Server) handleAccess(c *gin.Context) {
	allowed, err := s.store.Access(c.Param("tenant"), c.Param("dashboard"))
	if errors.Is(err, errNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "dashboard not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"allowed": allowed})
}

func (s *Server) handleSettings(c *gin.Context) {
	settings, err := s.store.Settings(c.Param("tenant"))
	if errors.Is(err, errNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "tenant not found"})
		return
	}
	c.JSON(http.StatusOK, settings)
}

func (s *Server) handlePatchChartKind(c *gin.Context) {
	var req struct {
		TenantID  string `json:"tenantId" binding:"required"`
		ChartKind string `json:"chartKind" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "tenantId and chartKind are required"})
		return
	}

	kind := model.ChartKind(req.ChartKind)
	if !model.ValidChartKind(kind) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "unknown chart kind " + req.ChartKind})
		return
	}

	err := s.store.PatchChartKind(req.TenantID, c.Param("id"), kind)
	switch {
	case errors.Is(err, errNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "dataset not found"})
	case errors.Is(err, errWrongOwner):
		c.JSON(http.StatusForbidden, gin.H{"error": "dataset belongs to another tenant"})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

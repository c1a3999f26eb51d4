package devicesim

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Raythekool/ha-awtrix-yahoofinance-stock/internal/config"
)

// maxUploadBytes caps a single /edit upload. Real devices have a few MB of
// flash at best; icons are far smaller.
const maxUploadBytes = 2 << 20

// Server exposes the simulated device API: POST /edit accepts multipart
// uploads the way AWTRIX firmware does, GET /list shows what was stored.
type Server struct {
	cfg    *config.Config
	store  *Store
	router *gin.Engine
	logger *zap.Logger
	http   *http.Server
}

// New creates and configures a simulator Server.
func New(cfg *config.Config, store *Store, logger *zap.Logger) *Server {
	if cfg.Log.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	s := &Server{
		cfg:    cfg,
		store:  store,
		router: router,
		logger: logger,
		http: &http.Server{
			Addr:         cfg.Sim.Address(),
			Handler:      router,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}

	router.GET("/healthz", s.handleHealthz)
	router.POST("/edit", s.handleEdit)
	router.GET("/list", s.handleList)

	return s
}

// Start begins listening for HTTP requests. Blocks until the server stops.
func (s *Server) Start() error {
	s.logger.Info("starting device simulator", zap.String("address", s.cfg.Sim.Address()))
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("simulator listen: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down device simulator")
	return s.http.Shutdown(ctx)
}

// Router returns the underlying Gin engine (useful for testing).
func (s *Server) Router() *gin.Engine {
	return s.router
}

func (s *Server) handleHealthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "devicesim",
	})
}

// handleEdit mimics the firmware's upload endpoint. The part's filename
// carries the full device-side path (e.g. /ICONS/40160.gif), so we parse the
// raw Content-Disposition instead of using FormFile, which strips the
// directory component.
func (s *Server) handleEdit(c *gin.Context) {
	mr, err := c.Request.MultipartReader()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "expected multipart form data"})
		return
	}

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "malformed multipart body"})
			return
		}

		if part.FormName() != "data" {
			continue
		}

		_, params, err := mime.ParseMediaType(part.Header.Get("Content-Disposition"))
		if err != nil || params["filename"] == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing filename"})
			return
		}
		devicePath := params["filename"]

		data, err := io.ReadAll(io.LimitReader(part, maxUploadBytes))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "reading upload"})
			return
		}

		contentType := part.Header.Get("Content-Type")
		if err := s.store.Save(c.Request.Context(), devicePath, data, contentType); err != nil {
			s.logger.Error("storing upload",
				zap.String("path", devicePath),
				zap.Error(err),
			)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "storing upload"})
			return
		}

		s.logger.Info("upload accepted",
			zap.String("path", devicePath),
			zap.Int("bytes", len(data)),
			zap.String("content_type", contentType),
		)
		// The firmware replies with a bare 200 on success.
		c.String(http.StatusOK, "OK")
		return
	}

	c.JSON(http.StatusBadRequest, gin.H{"error": "no data part in request"})
}

// handleList returns the stored uploads under a directory.
// Route: GET /list?dir=/ICONS
func (s *Server) handleList(c *gin.Context) {
	dir := c.DefaultQuery("dir", "/ICONS")

	uploads, err := s.store.List(c.Request.Context(), dir)
	if err != nil {
		s.logger.Error("listing uploads", zap.String("dir", dir), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "listing uploads"})
		return
	}

	c.JSON(http.StatusOK, uploads)
}

// Package httpapi exposes wizards, count queues and stored records over a JSON API.
//
// Wizards and queues are server-side sessions addressed by id. They live in
// memory and expire after server.session_ttl without use.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/ppiankov/canari/internal/app"
	"github.com/ppiankov/canari/internal/queue"
	"github.com/ppiankov/canari/internal/wizard"
)

const shutdownTimeout = 10 * time.Second

// Server serves the API for one application context
type Server struct {
	app     *app.App
	logger  logrus.FieldLogger
	wizards *sessions[*wizard.Machine]
	queues  *sessions[*queue.Queue]
	router  *gin.Engine
}

// New builds the server and its routes
func New(a *app.App) *Server {
	cfg := a.Config().Server
	s := &Server{
		app:     a,
		logger:  a.Logger(),
		wizards: newSessions[*wizard.Machine](cfg.SessionTTL),
		queues:  newSessions[*queue.Queue](cfg.SessionTTL),
	}

	r := gin.New()
	r.Use(requestLogger(s.logger))
	r.Use(gin.Recovery())
	r.Use(cors.New(corsConfig(cfg.CORSOrigins)))

	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	r.GET("/presets/varieties", s.varieties)
	r.POST("/presets/refresh", s.refreshPresets)

	r.POST("/wizards", s.createWizard)
	r.GET("/wizards/:id", s.getWizard)
	r.DELETE("/wizards/:id", s.deleteWizard)
	r.PUT("/wizards/:id/metadata", s.setMetadata)
	r.POST("/wizards/:id/next", s.next)
	r.POST("/wizards/:id/back", s.back)
	r.PUT("/wizards/:id/items/:index", s.updateItem)
	r.POST("/wizards/:id/submit", s.submitWizard)

	r.POST("/queues", s.createQueue)
	r.GET("/queues/:id", s.getQueue)
	r.DELETE("/queues/:id", s.deleteQueue)
	r.POST("/queues/:id/counts", s.enqueue)
	r.DELETE("/queues/:id/counts/:countID", s.dequeue)
	r.POST("/queues/:id/submit", s.submitQueue)

	r.GET("/batches", s.listBatches)
	r.GET("/batches/export", s.exportBatches)
	r.GET("/batches/:id", s.getBatch)
	r.PATCH("/batches/:id/samples/:number", s.editSample)
	r.GET("/counts", s.listCounts)
	r.GET("/counts/export", s.exportCounts)

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
	})

	s.router = r
	return s
}

// Handler returns the root http.Handler
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe serves on addr until ctx is cancelled, then shuts down gracefully
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", addr).Info("listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.DefaultConfig()
	if len(origins) == 0 || slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	cfg.AddExposeHeaders("Content-Length", "Content-Disposition")
	return cfg
}

// requestLogger logs one entry per request, including any handler errors
func requestLogger(logger logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := logger.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.FullPath(),
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
		})
		if len(c.Errors) > 0 {
			entry.Error(c.Errors.String())
			return
		}
		entry.Info("request")
	}
}

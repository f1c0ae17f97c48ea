// Package web exposes events, locations and the iCalendar feed over HTTP.
package web

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"calpin/internal/config"
	"calpin/internal/event"
	"calpin/internal/ics"
	"calpin/internal/location"
	appLog "calpin/internal/log"
)

// Server wires the services into a gin engine.
type Server struct {
	cfg       *config.Config
	events    *event.Service
	locations *location.Service
	fetcher   *ics.Fetcher
	engine    *gin.Engine
}

// NewServer constructs a Server. Importing by URL needs both a fetcher and
// cfg.AllowURLImport.
func NewServer(cfg *config.Config, events *event.Service, locations *location.Service, fetcher *ics.Fetcher) *Server {
	s := &Server{
		cfg:       cfg,
		events:    events,
		locations: locations,
		fetcher:   fetcher,
		engine:    gin.New(),
	}
	s.engine.Use(requestID(), accessLog(), gin.Recovery(), bodyLimit(cfg.MaxBodyBytes))
	if cfg.BasicAuth.Enabled() {
		appLog.Info("HTTP basic auth enabled", "listen", cfg.Listen)
		s.engine.Use(basicAuth(cfg.BasicAuth.Username, cfg.BasicAuth.Password))
	}
	s.registerRoutes()
	return s
}

// Handler returns the http.Handler for this server.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) registerRoutes() {
	s.engine.GET("/health", s.handleHealth)

	api := s.engine.Group("/api")
	{
		api.GET("/events", s.listEvents)
		api.POST("/events", s.createEvent)
		api.POST("/events/import", s.importEvents)
		api.GET("/events/:id", s.getEvent)
		api.PATCH("/events/:id", s.updateEvent)
		api.DELETE("/events/:id", s.deleteEvent)

		api.GET("/calendar.ics", s.exportCalendar)

		api.GET("/locations", s.listLocations)
		api.POST("/locations", s.createLocation)
		api.GET("/locations/:id", s.getLocation)
		api.PATCH("/locations/:id", s.updateLocation)
		api.DELETE("/locations/:id", s.deleteLocation)
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", s.cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	appLog.Info("shutting down HTTP server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

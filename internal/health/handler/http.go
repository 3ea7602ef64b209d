// Package handler serves liveness and readiness checks.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const checkTimeout = 2 * time.Second

// Pinger reports whether a dependency is reachable (e.g. *pgxpool.Pool, a redis client wrapper).
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingerFunc adapts a function to Pinger.
type PingerFunc func(ctx context.Context) error

func (f PingerFunc) Ping(ctx context.Context) error { return f(ctx) }

// Server answers /healthz (liveness) and /readyz (readiness).
type Server struct {
	checks map[string]Pinger
}

// NewServer returns a health server. checks is keyed by dependency name; nil checks are skipped.
func NewServer(checks map[string]Pinger) *Server {
	active := make(map[string]Pinger, len(checks))
	for name, p := range checks {
		if p != nil {
			active[name] = p
		}
	}
	return &Server{checks: active}
}

// Register mounts the routes on g.
func (s *Server) Register(g gin.IRoutes) {
	g.GET("/healthz", s.Live)
	g.GET("/readyz", s.Ready)
}

// Live always answers ok while the process is serving.
func (s *Server) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Ready pings every dependency and answers 503 naming the ones that failed.
func (s *Server) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), checkTimeout)
	defer cancel()

	failed := gin.H{}
	for name, p := range s.checks {
		if err := p.Ping(ctx); err != nil {
			failed[name] = err.Error()
		}
	}
	if len(failed) > 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "failed": failed})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

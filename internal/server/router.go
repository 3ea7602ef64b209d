// Package server assembles the HTTP router of the directory service.
package server

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	healthhandler "soori/internal/health/handler"
	"soori/internal/security"
	"soori/internal/server/middleware"
	userhandler "soori/internal/user/handler"
)

// Deps holds the dependencies of the HTTP handlers.
type Deps struct {
	// ServiceName names the otelgin spans.
	ServiceName string
	// Tokens validates identity tokens on /users routes. Required.
	Tokens *security.TokenProvider
	// Directory backs the /users routes. Required.
	Directory userhandler.Directory
	// HealthChecks are pinged by /readyz, keyed by dependency name. May be empty.
	HealthChecks map[string]healthhandler.Pinger
	// Logger receives request logs. If nil, requests are not logged.
	Logger *zap.Logger
}

// publicPaths are not logged per request.
var publicPaths = map[string]bool{
	"/healthz": true,
	"/readyz":  true,
}

// NewRouter returns the gin engine with every route registered.
//
// Route → handler mapping:
//   - GET  /healthz, /readyz          → internal/health/handler
//   - POST /users, GET /users/role    → internal/user/handler (behind middleware.Auth)
func NewRouter(deps Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if deps.ServiceName != "" {
		r.Use(otelgin.Middleware(deps.ServiceName))
	}
	r.Use(middleware.RequestLog(deps.Logger, publicPaths))

	healthhandler.NewServer(deps.HealthChecks).Register(r)

	users := r.Group("", middleware.Auth(deps.Tokens))
	userhandler.NewServer(deps.Directory, deps.Logger).Register(users)
	return r
}

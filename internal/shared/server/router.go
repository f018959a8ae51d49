package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"policyscan-backend/internal/auth"
	"policyscan-backend/internal/export"
	"policyscan-backend/internal/shared/config"
	"policyscan-backend/internal/shared/metrics"
	"policyscan-backend/internal/shared/server/middleware"
	"policyscan-backend/internal/shared/server/respond"
	"policyscan-backend/internal/uploads"
)

// RouterDeps carries the handlers and session resolver the router wires up.
type RouterDeps struct {
	Config        config.Config
	Sessions      middleware.SessionResolver
	AuthHandler   *auth.Handler
	UploadHandler *uploads.Handler
	ExportHandler *export.Handler
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
		middleware.Session(deps.Sessions),
	)

	r.GET("/health", func(c *gin.Context) {
		respond.JSON(c, http.StatusOK, gin.H{"ok": true})
	})
	r.GET("/metrics", metrics.Handler())

	root := r.Group("/")
	credGroup := r.Group("/", middleware.RateLimit(authRateLimit()))
	deps.AuthHandler.RegisterRoutes(root)
	deps.AuthHandler.RegisterCredentialRoutes(credGroup)
	deps.UploadHandler.RegisterRoutes(root)
	deps.ExportHandler.RegisterRoutes(root)

	if deps.Config.Env == "dev" {
		dev := r.Group("/dev")
		deps.AuthHandler.RegisterDevRoutes(dev)
	}

	return r
}

// authRateLimit throttles signup and signin per client IP.
func authRateLimit() middleware.RateLimitConfig {
	return middleware.RateLimitConfig{
		Rules: map[string]middleware.RateLimitRule{
			"AUTH": {Rate: 1, Burst: 10},
		},
		DefaultGroup: "AUTH",
	}
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}

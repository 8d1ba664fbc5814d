package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/clemoseitano/open-inventory-api/internal/dbpool"
	"github.com/clemoseitano/open-inventory-api/internal/middleware"
	"github.com/clemoseitano/open-inventory-api/internal/ws"
)

// RouterDeps holds all dependencies needed by the router.
type RouterDeps struct {
	Log         *logrus.Logger
	Pool        *dbpool.Pool
	Hub         *ws.Hub
	Sync        SyncService
	Admin       AdminService
	Members     MembershipResolver
	UserLookup  middleware.UserLookup
	CORSOrigins []string
	AdminToken  string
	Version     string
}

// Router-level limits.
const (
	maxBodySize = 10 << 20 // 10 MB; bounds an offline device's accumulated batch
	rateLimit   = 100      // requests per second per IP
	rateBurst   = 200      // token bucket burst size
)

// setupMiddleware configures all middleware on the Gin engine.
func setupMiddleware(ctx context.Context, r *gin.Engine, deps *RouterDeps) {
	r.SetTrustedProxies(nil) //nolint:errcheck // nil always succeeds.
	r.Use(middleware.RequestID(deps.Log))
	r.Use(ginLogger(deps.Log))
	r.Use(gin.Recovery())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.MaxBodySize(maxBodySize))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     deps.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Authorization"},
		MaxAge:           1 * time.Hour,
		AllowCredentials: false,
	}))
	r.Use(middleware.NewRateLimiter(ctx, rateLimit, rateBurst).Handler())
	r.Use(middleware.PrometheusMiddleware())

	// Metrics endpoint (unauthenticated, like health).
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// registerRoutes sets up all API route handlers on the given router group.
func registerRoutes(ctx context.Context, api *gin.RouterGroup, deps *RouterDeps) {
	log := deps.Log

	health := NewHealthHandler(deps.Pool, deps.Hub, log, deps.Version)
	sync := NewSyncHandler(deps.Sync, log)

	// Health and readiness are unauthenticated.
	api.GET("/health", health.Liveness)
	api.GET("/ready", health.Readiness)

	// The sync protocol requires an authenticated user.
	authed := api.Group("/sync")
	authed.Use(middleware.AuthMiddleware(deps.UserLookup, log))
	authed.POST("/push", sync.Push)
	authed.GET("/pull", sync.Pull)
	authed.GET("/download", sync.Download)
	authed.GET("/audit", sync.PushHistory)

	// WebSocket change notifications; absent entirely when events are disabled.
	if deps.Hub != nil {
		wsGroup := api.Group("/ws")
		wsGroup.Use(middleware.AuthMiddleware(deps.UserLookup, log))
		wsGroup.GET("", wsHandler(ctx, log, deps.Hub, deps.CORSOrigins, deps.Members, deps.UserLookup))
	}
}

// registerAdminRoutes mounts operator endpoints outside the versioned API,
// guarded by the static admin token.
func registerAdminRoutes(r *gin.Engine, deps *RouterDeps) {
	admin := NewAdminHandler(deps.Admin, deps.Log)

	group := r.Group("/admin")
	group.Use(middleware.AdminAuth(deps.AdminToken, deps.Log))
	group.POST("/tenants", admin.CreateTenant)
	group.POST("/members", admin.CreateMember)
	group.POST("/purge", admin.Purge)
	group.POST("/tenants/:slug/rebuild", admin.RebuildSnapshot)
}

// NewRouter creates and configures the Gin engine with all middleware and routes.
func NewRouter(ctx context.Context, deps *RouterDeps) http.Handler {
	r := gin.New()
	setupMiddleware(ctx, r, deps)
	registerRoutes(ctx, r.Group("/api/v1"), deps)
	registerAdminRoutes(r, deps)

	return r
}

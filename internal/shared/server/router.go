package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"jar-translator/internal/shared/config"
	"jar-translator/internal/shared/metrics"
	"jar-translator/internal/shared/server/middleware"
	"jar-translator/internal/shared/server/respond"
	"jar-translator/internal/tasks"
	"jar-translator/internal/usage"
)

const (
	submitRateLimitGroup  = "SUBMIT"
	defaultRateLimitGroup = "DEFAULT"
)

// RouterDeps carries the handlers mounted by NewRouter. Nil handlers are skipped.
type RouterDeps struct {
	Config       config.Config
	TaskHandler  *tasks.Handler
	UsageHandler *usage.Handler
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	cfg := deps.Config
	if cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Identity(),
		middleware.Logging("/metrics", "/api/v1/health"),
		middleware.Recovery(),
		middleware.CORS(cfg.CORSAllowOrigin),
		middleware.RateLimit(middleware.RateLimitConfig{
			DefaultGroup: defaultRateLimitGroup,
			GroupFor:     rateLimitGroup,
			Rules: map[string]middleware.RateLimitRule{
				submitRateLimitGroup: {
					Rate:  cfg.RateLimitSubmitPerMin / 60,
					Burst: cfg.RateLimitSubmitBurst,
				},
			},
		}),
	)

	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api/v1")
	api.GET("/health", func(c *gin.Context) {
		respond.JSON(c, http.StatusOK, gin.H{"ok": true})
	})
	if deps.UsageHandler != nil {
		deps.UsageHandler.RegisterRoutes(api)
	}
	if deps.TaskHandler != nil {
		deps.TaskHandler.RegisterRoutes(api)
	}
	if cfg.Env == "dev" && deps.UsageHandler != nil {
		dev := api.Group("/dev")
		deps.UsageHandler.RegisterDevRoutes(dev)
	}

	return r
}

// rateLimitGroup puts the endpoints that read a whole archive into the
// submit bucket. Status polling stays unlimited.
func rateLimitGroup(c *gin.Context) string {
	if c.Request.Method != http.MethodPost {
		return defaultRateLimitGroup
	}
	switch c.FullPath() {
	case "/api/v1/translate/bytecode", "/api/v1/translate/bytecode/preview":
		return submitRateLimitGroup
	default:
		return defaultRateLimitGroup
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

package usage

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"jar-translator/internal/shared/server/respond"
	"jar-translator/internal/shared/telemetry"
)

// Version is reported by the landing endpoint.
const Version = "1.0.0"

// Handler exposes the landing and statistics endpoints.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches usage routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/", h.root)
	rg.GET("/stats", h.stats)
}

// RegisterDevRoutes attaches dev-only usage routes.
func (h *Handler) RegisterDevRoutes(rg *gin.RouterGroup) {
	rg.POST("/stats/reset", h.reset)
}

func (h *Handler) root(c *gin.Context) {
	if _, err := h.Svc.RecordVisit(c.Request.Context()); err != nil {
		telemetry.Warn("usage.record_failed", map[string]any{
			"request_id": c.GetString("requestId"),
			"counter":    CounterVisits,
			"error":      err.Error(),
		})
	}
	respond.OK(c, gin.H{
		"message": "JAR bytecode translation service",
		"version": Version,
	})
}

func (h *Handler) stats(c *gin.Context) {
	stats, err := h.Svc.Stats(c.Request.Context())
	if err != nil {
		switch {
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			respond.Error(c, http.StatusRequestTimeout, "timeout", "request canceled", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch stats", nil)
		}
		return
	}
	respond.OK(c, stats)
}

func (h *Handler) reset(c *gin.Context) {
	if err := h.Svc.Reset(c.Request.Context()); err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to reset stats", nil)
		return
	}
	respond.OK(c, gin.H{"ok": true})
}

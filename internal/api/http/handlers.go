package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/browsergrid/backend/internal/domain/routing"
	"github.com/browsergrid/backend/internal/domain/session"
	"github.com/browsergrid/backend/internal/infrastructure/logging"
	"github.com/browsergrid/backend/internal/infrastructure/monitoring"
)

// VNCConfig carries the viewer settings handed to the noVNC page.
type VNCConfig struct {
	Password string
	WSPath   string
}

// Handlers contains all HTTP handlers
type Handlers struct {
	manager *session.Manager
	issuer  *routing.TokenIssuer
	vnc     VNCConfig
	metrics *monitoring.Metrics
	logger  *logging.Logger
	started time.Time
}

// NewHandlers creates a new handler set
func NewHandlers(
	manager *session.Manager,
	issuer *routing.TokenIssuer,
	vnc VNCConfig,
	metrics *monitoring.Metrics,
	logger *logging.Logger,
) *Handlers {
	return &Handlers{
		manager: manager,
		issuer:  issuer,
		vnc:     vnc,
		metrics: metrics,
		logger:  logger.Named("http"),
		started: time.Now(),
	}
}

// Root handles health check
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": "BrowserGrid Session Service",
		"version": "0.2.0",
	})
}

// Health handles detailed health check. The load balancer target group
// polls this endpoint, so it must stay cheap.
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"sessions": h.manager.Stats(),
		"uptime":   time.Since(h.started).String(),
	})
}

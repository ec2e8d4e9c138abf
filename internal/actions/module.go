// Package actions exposes the small HTTP surface of the daemon: the
// idempotent lifecycle actions driven from the review channel, pipeline
// stats, and a manual discovery trigger.
package actions

import (
	"time"

	"github.com/gin-gonic/gin"

	"outreach_backend/internal/store"
	"outreach_backend/platform/logger"
	"outreach_backend/platform/validator"
)

// Module bundles the action API for route registration.
type Module struct {
	handler *Handler
	log     *logger.Logger
}

func NewModule(leads store.LeadStore, trigger DiscoveryTrigger, log *logger.Logger) *Module {
	return &Module{
		handler: NewHandler(leads, trigger, validator.New(), log),
		log:     log,
	}
}

// RegisterRoutes mounts all endpoints on the router. Action endpoints accept
// GET as well as POST because review-card buttons open them in a browser.
func (m *Module) RegisterRoutes(r *gin.Engine) {
	r.Use(m.requestLogger())

	for _, register := range []func(string, ...gin.HandlerFunc) gin.IRoutes{r.GET, r.POST} {
		register("/action/sent/:id", m.handler.MarkSent)
		register("/action/replied/:id", m.handler.MarkReplied)
		register("/action/closed/:id", m.handler.MarkClosed)
	}

	r.GET("/stats", m.handler.Stats)
	r.POST("/scrape", m.handler.TriggerScrape)
}

func (m *Module) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := float64(time.Since(start).Microseconds()) / 1000.0
		m.log.HTTPRequest(c.Request.Method, c.Request.URL.Path, c.Writer.Status(), latency, c.ClientIP())
	}
}

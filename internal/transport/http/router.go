package http

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/diirlab/xrlia/internal/service/cases"
)

// SetupRouter builds the gin engine for the case-simulation API.
func SetupRouter(backend ConversationBackend, loader *cases.Loader, streamDelay time.Duration) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	h := NewHandler(backend, loader, streamDelay)
	api := r.Group("/api")
	h.RegisterRoutes(api)

	return r
}

package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter builds the gin engine the way the teacher's api/cmd/main.go
// does: gin.New() + Recovery + Logger + permissive CORS, grouped routes
// under /api/v1.
func NewRouter(h *Handlers, registry *OpenAPIRegistry) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(gin.Logger())

	router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	})

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"ok":      true,
			"service": "transit-dispatch",
			"time":    time.Now().UTC(),
		})
	})

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.GET("/openapi.json", func(c *gin.Context) {
		doc, err := registry.Document()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "failed to build openapi document"})
			return
		}
		c.Data(http.StatusOK, "application/json", doc)
	})

	v1 := router.Group("/api/v1")
	{
		trains := v1.Group("/trains")
		{
			trains.GET("", h.GetFrame)
			trains.POST("/scopes", h.PostScope)
			trains.GET("/scopes", h.ListScopes)
		}
	}

	return router
}

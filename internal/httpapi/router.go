package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/berndkaliwes-ai/Docker-lsg/internal/metrics"
)

func NewRouter(pages *PageHandler, batches *BatchHandler, keys *ProviderKeyHandler, m *metrics.Metrics, metricsHandler http.Handler) http.Handler {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	if m != nil {
		r.Use(m.GinMiddleware())
	}
	r.SetHTMLTemplate(pageTemplates())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if metricsHandler != nil {
		r.GET("/metrics", gin.WrapH(metricsHandler))
	}

	pages.RegisterRoutes(r)

	api := r.Group("/api/v1")
	{
		batches.RegisterRoutes(api.Group("/batches"))
		keys.RegisterRoutes(api.Group("/provider-keys"))
	}

	return r
}

package api

import (
	"github.com/ArKaRaShi/skill-aligner-be-sub002/internal/api/handler"
	"github.com/ArKaRaShi/skill-aligner-be-sub002/internal/report"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Router struct {
	engine *gin.Engine
}

// NewRouter serves the reports in store. Recomputed reports use builder.
func NewRouter(store handler.RunStore, builder *report.Builder) *Router {
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(gin.Logger())
	engine.Use(handler.Instrument())

	runHandler := handler.NewRunHandler(store, builder)

	engine.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := engine.Group("/api/v1")
	{
		runs := v1.Group("/runs")
		{
			runs.GET("", runHandler.List)
			runs.GET("/:id/metrics", runHandler.Metrics)
			runs.GET("/:id/disagreements", runHandler.Disagreements)
			runs.GET("/:id/exploratory-delta", runHandler.ExploratoryDelta)
			runs.GET("/:id/records", runHandler.Records)
			runs.GET("/:id/summary", runHandler.Summary)
			runs.POST("/:id/recompute", runHandler.Recompute)
		}
	}

	return &Router{engine: engine}
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}

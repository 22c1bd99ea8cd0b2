// Package router wires the knowledge base routes onto a gin engine.
package router

import (
	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	"github.com/lattice-io/doclens/internal/doclens/handler"
)

// Register registers the knowledge base service routes.
func Register(engine *gin.Engine, kbHandler *handler.KBHandler) {
	logger.Info("Registering knowledge base routes...")

	v1 := engine.Group("/v1")
	{
		kb := v1.Group("/kb")
		{
			// Document lifecycle
			kb.POST("/documents", kbHandler.Ingest)
			kb.GET("/documents", kbHandler.ListDocuments)
			kb.DELETE("/documents/:id", kbHandler.DeleteDocument)

			// Question answering
			kb.POST("/query", kbHandler.Query)

			// Operational endpoints
			kb.GET("/stats", kbHandler.Stats)
			kb.GET("/health", kbHandler.Health)
		}
	}

	engine.GET("/metrics", kbHandler.Metrics)

	logger.Info("HTTP routes registered")
}

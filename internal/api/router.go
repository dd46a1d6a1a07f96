package api

import (
	"net/http"

	"github.com/fourgeeks/accrual-engine/internal/config"
	"github.com/fourgeeks/accrual-engine/internal/logger"
	"github.com/gin-gonic/gin"
)

// Handlers bundles every HTTP handler the router wires up. There is
// exactly one today (spec.md §6 names a single RPC); the struct exists so
// adding a second never requires reshaping NewRouter's signature.
type Handlers struct {
	Batch *BatchHandler
}

// NewRouter builds the gin engine exposing process_contracts.
func NewRouter(handlers Handlers, cfg *config.Configuration, log *logger.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestIDMiddleware, CORSMiddleware)

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/v1")
	v1.POST("/process-contracts", handlers.Batch.ProcessContracts)

	return router
}

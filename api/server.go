// Package api exposes the deduplication service over HTTP.
package api

import (
	"github.com/gin-gonic/gin"

	"atlas/dedup"
)

// NewRouter constructs a Gin engine with registered routes.
func NewRouter(deduplicator *dedup.IntegratedDeduplicator) *gin.Engine {
	r := gin.New()
	// Minimal middleware: recovery; logger optional to reduce verbosity
	r.Use(gin.Recovery())

	RegisterDedupRoutes(r, deduplicator)
	RegisterHealthRoutes(r)
	return r
}

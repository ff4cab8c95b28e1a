// Package api exposes a small HTTP inspector/control surface over the
// engine's operational surface, for deployments that want a network
// entry point alongside the Go API.
package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"cvxlab/internal/catalog"
	"cvxlab/internal/coordinate"
)

// Engine is the subset of the operational surface the inspector needs;
// a concrete Model implements it.
type Engine interface {
	Registry() *catalog.Registry
	ScenarioTable() (*coordinate.ScenarioTable, error)
	RunStatus() map[string]string
	CheckResults(ctx context.Context, referenceStoreFile string, tolerance float64) (bool, map[string]float64, error)
}

// NewServer builds a gin.Engine exposing read-only introspection routes
// plus a check-results trigger.
func NewServer(engine Engine) *gin.Engine {
	r := gin.Default()

	r.GET("/sets", func(c *gin.Context) {
		reg := engine.Registry()
		var out []gin.H
		for _, id := range reg.AllSets() {
			s := reg.Set(id)
			out = append(out, gin.H{"key": s.Key, "items": s.Items})
		}
		c.JSON(http.StatusOK, out)
	})

	r.GET("/scenarios", func(c *gin.Context) {
		table, err := engine.ScenarioTable()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"rows": table.Rows})
	})

	r.GET("/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, engine.RunStatus())
	})

	r.POST("/check-results", func(c *gin.Context) {
		var req struct {
			ReferenceStoreFile string  `json:"reference_store_file"`
			Tolerance          float64 `json:"tolerance"`
		}
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		ok, diffs, err := engine.CheckResults(c.Request.Context(), req.ReferenceStoreFile, req.Tolerance)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"equal_within_tolerance": ok, "diffs": diffs})
	})

	return r
}

package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"text-rpg/backend/pkg/validator"
)

// AddOpenAPIValidation adds OpenAPI validation middleware to the router
func (r *Router) AddOpenAPIValidation() {
	v, err := validator.NewOpenAPIValidator()
	if err != nil {
		r.Logger.Error("Failed to initialize OpenAPI validator", "error", err)
		return
	}

	r.Engine.Use(v.Middleware())
	r.Logger.Info("OpenAPI validation enabled")
}

// setupDocsRoutes serves the API description
func (r *Router) setupDocsRoutes() {
	r.Engine.GET("/api/docs/openapi.yaml", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/yaml", validator.Document())
	})
	r.Logger.Info("OpenAPI schema available at", "url", "/api/docs/openapi.yaml")
}

package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"cleaning-backend/internal/domains/catalog/service"
	"cleaning-backend/internal/shared/response"
	"cleaning-backend/pkg/logger"
)

type CatalogHandler struct {
	reader service.Reader
}

func NewCatalogHandler(reader service.Reader) *CatalogHandler {
	return &CatalogHandler{reader: reader}
}

// RegisterRoutes mounts the read-only catalog lookups.
func (h *CatalogHandler) RegisterRoutes(router *gin.RouterGroup) {
	catalog := router.Group("/catalog")
	{
		catalog.GET("/subscriptions/:id", h.GetSubscription)
	}
}

// RegisterAdminRoutes mounts cache maintenance; the caller applies admin middleware.
func (h *CatalogHandler) RegisterAdminRoutes(router *gin.RouterGroup) {
	router.POST("/admin/catalog/cache/invalidate", h.InvalidateCache)
}

// GetSubscription godoc
// GET /catalog/subscriptions/:id
func (h *CatalogHandler) GetSubscription(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.ErrorResponse(c, http.StatusBadRequest, "CAT_INVALID_INPUT", "Invalid subscription ID")
		return
	}

	sub, err := h.reader.GetSubscription(c.Request.Context(), id)
	if err != nil {
		logger.Error("Failed to load subscription", err)
		response.InternalServerError(c, "Failed to load subscription")
		return
	}
	if sub == nil || !sub.IsActive {
		response.NotFound(c, "Subscription not found")
		return
	}

	response.Success(c, http.StatusOK, sub)
}

// InvalidateCache godoc
// POST /admin/catalog/cache/invalidate
func (h *CatalogHandler) InvalidateCache(c *gin.Context) {
	if err := h.reader.Invalidate(c.Request.Context()); err != nil {
		logger.Error("Failed to invalidate catalog cache", err)
		response.InternalServerError(c, "Failed to invalidate catalog cache")
		return
	}

	logger.Info("Catalog cache invalidated", map[string]interface{}{"by": c.GetString("userEmail")})
	response.Success(c, http.StatusOK, gin.H{"invalidated": true})
}

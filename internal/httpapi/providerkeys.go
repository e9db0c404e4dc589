package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/berndkaliwes-ai/Docker-lsg/internal/service"
)

// ProviderKeyHandler manages the stored transcription provider credentials.
// Key material is accepted on write but never echoed back.
type ProviderKeyHandler struct {
	keys   *service.ProviderKeyService
	logger *slog.Logger
}

func NewProviderKeyHandler(keys *service.ProviderKeyService, logger *slog.Logger) *ProviderKeyHandler {
	return &ProviderKeyHandler{keys: keys, logger: logger}
}

func (h *ProviderKeyHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("", h.listKeys)
	r.PUT("/:provider", h.upsertKey)
	r.DELETE("/:provider", h.deleteKey)
}

type providerKeyResponse struct {
	ProviderName string    `json:"provider_name"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (h *ProviderKeyHandler) listKeys(c *gin.Context) {
	keys, err := h.keys.List(c.Request.Context())
	if err != nil {
		h.logger.Error("list provider keys failed", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	resp := make([]providerKeyResponse, 0, len(keys))
	for _, k := range keys {
		resp = append(resp, providerKeyResponse{
			ProviderName: k.ProviderName,
			CreatedAt:    k.CreatedAt,
			UpdatedAt:    k.UpdatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"keys": resp})
}

func (h *ProviderKeyHandler) upsertKey(c *gin.Context) {
	var payload struct {
		APIKey string `json:"api_key" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "api_key is required"})
		return
	}

	if _, err := h.keys.Upsert(c.Request.Context(), c.Param("provider"), payload.APIKey); err != nil {
		h.logger.Error("store provider key failed", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ProviderKeyHandler) deleteKey(c *gin.Context) {
	if err := h.keys.Delete(c.Request.Context(), c.Param("provider")); err != nil {
		h.logger.Error("delete provider key failed", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.Status(http.StatusNoContent)
}

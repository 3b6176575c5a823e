package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/timmy/recipeclip/internal/api/middleware"
	"github.com/timmy/recipeclip/internal/service"
)

// DiscoveryHandler serves browse, search and autocomplete.
type DiscoveryHandler struct {
	discovery *service.DiscoveryService
}

// NewDiscoveryHandler creates a new discovery handler.
// Parameters:
//   - discovery: discovery service instance.
// Returns:
//   - *DiscoveryHandler: initialized handler.
func NewDiscoveryHandler(discovery *service.DiscoveryService) *DiscoveryHandler {
	return &DiscoveryHandler{discovery: discovery}
}

// Browse handles GET /api/v1/discover?category=&sort=.
func (h *DiscoveryHandler) Browse(c *gin.Context) {
	result, err := h.discovery.Browse(c.Request.Context(), c.Query("category"), c.Query("sort"), middleware.ViewerID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Search handles GET /api/v1/search?q=&category=&sort=. A blank query
// returns an empty result rather than an error.
func (h *DiscoveryHandler) Search(c *gin.Context) {
	result, err := h.discovery.Search(c.Request.Context(), c.Query("q"), c.Query("category"), c.Query("sort"), middleware.ViewerID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Suggestions handles GET /api/v1/suggestions?q=.
func (h *DiscoveryHandler) Suggestions(c *gin.Context) {
	query := c.Query("q")
	c.JSON(http.StatusOK, gin.H{
		"query":       strings.TrimSpace(query),
		"suggestions": h.discovery.Autocomplete(c.Request.Context(), query),
	})
}

package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/timmy/recipeclip/internal/api/middleware"
	"github.com/timmy/recipeclip/internal/service"
)

// AdminHandler handles account management for administrators.
type AdminHandler struct {
	admin *service.AdminService
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(admin *service.AdminService) *AdminHandler {
	return &AdminHandler{admin: admin}
}

type resetPasswordRequest struct {
	NewPassword string `json:"new_password" binding:"required"`
}

// ListUsers handles GET /api/v1/admin/users.
func (h *AdminHandler) ListUsers(c *gin.Context) {
	users, err := h.admin.ListUsers(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users, "total": len(users)})
}

// GetUser handles GET /api/v1/admin/users/:id.
func (h *AdminHandler) GetUser(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	details, err := h.admin.UserDetails(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, details)
}

// ToggleRole handles POST /api/v1/admin/users/:id/role.
func (h *AdminHandler) ToggleRole(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	actor, _ := middleware.Actor(c)
	role, err := h.admin.ToggleRole(c.Request.Context(), actor, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "role": role})
}

// DeleteUser handles DELETE /api/v1/admin/users/:id.
func (h *AdminHandler) DeleteUser(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	actor, _ := middleware.Actor(c)
	if err := h.admin.DeleteUser(c.Request.Context(), actor, id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User deleted"})
}

// ResetPassword handles POST /api/v1/admin/users/:id/password.
func (h *AdminHandler) ResetPassword(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req resetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	if err := h.admin.ResetPassword(c.Request.Context(), id, req.NewPassword); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password reset"})
}

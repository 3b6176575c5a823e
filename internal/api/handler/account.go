package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/timmy/recipeclip/internal/api/middleware"
	"github.com/timmy/recipeclip/internal/service"
)

// AccountHandler handles registration, login and profile endpoints.
type AccountHandler struct {
	accounts *service.AccountService
}

// NewAccountHandler creates a new account handler.
func NewAccountHandler(accounts *service.AccountService) *AccountHandler {
	return &AccountHandler{accounts: accounts}
}

type profileRequest struct {
	FullName    string `form:"full_name" json:"full_name"`
	Email       string `form:"email" json:"email" binding:"omitempty,email"`
	Gender      string `form:"gender" json:"gender"`
	Age         *int   `form:"age" json:"age" binding:"omitempty,min=0,max=150"`
	PhoneNumber string `form:"phone_number" json:"phone_number"`
}

func (r profileRequest) input() service.ProfileInput {
	return service.ProfileInput{
		FullName:    r.FullName,
		Email:       r.Email,
		Gender:      r.Gender,
		Age:         r.Age,
		PhoneNumber: r.PhoneNumber,
	}
}

type registerRequest struct {
	Username string `form:"username" json:"username" binding:"required"`
	Password string `form:"password" json:"password" binding:"required"`
	profileRequest
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type passwordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required"`
	ConfirmPassword string `json:"confirm_password" binding:"required"`
}

// Register handles POST /api/v1/auth/register. It accepts JSON, or a
// multipart form with an optional profile_photo file.
func (h *AccountHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBind(&req); err != nil {
		bindError(c, err)
		return
	}
	photo, closePhoto, err := formUpload(c, "profile_photo")
	if err != nil {
		respondError(c, err)
		return
	}
	defer closePhoto()

	in := service.RegisterInput{Username: req.Username, Password: req.Password, ProfileInput: req.input()}
	in.Photo = photo
	user, err := h.accounts.Register(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

// Login handles POST /api/v1/auth/login.
func (h *AccountHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	session, err := h.accounts.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

// Me handles GET /api/v1/me.
func (h *AccountHandler) Me(c *gin.Context) {
	user, err := h.accounts.Profile(c.Request.Context(), middleware.ViewerID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// UpdateMe handles PUT /api/v1/me.
func (h *AccountHandler) UpdateMe(c *gin.Context) {
	var req profileRequest
	if err := c.ShouldBind(&req); err != nil {
		bindError(c, err)
		return
	}
	photo, closePhoto, err := formUpload(c, "profile_photo")
	if err != nil {
		respondError(c, err)
		return
	}
	defer closePhoto()

	in := req.input()
	in.Photo = photo
	user, err := h.accounts.UpdateProfile(c.Request.Context(), middleware.ViewerID(c), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// ChangePassword handles POST /api/v1/me/password.
func (h *AccountHandler) ChangePassword(c *gin.Context) {
	var req passwordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	err := h.accounts.ChangePassword(c.Request.Context(), middleware.ViewerID(c),
		req.CurrentPassword, req.NewPassword, req.ConfirmPassword)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password updated"})
}

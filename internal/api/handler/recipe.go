package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/timmy/recipeclip/internal/api/middleware"
	"github.com/timmy/recipeclip/internal/service"
)

// RecipeHandler handles recipe, engagement and dashboard endpoints.
type RecipeHandler struct {
	recipes *service.RecipeService
}

// NewRecipeHandler creates a new recipe handler.
// Parameters:
//   - recipes: recipe service instance.
// Returns:
//   - *RecipeHandler: initialized handler.
func NewRecipeHandler(recipes *service.RecipeService) *RecipeHandler {
	return &RecipeHandler{recipes: recipes}
}

type recipeForm struct {
	Title        string `form:"title" binding:"required"`
	Description  string `form:"description"`
	Ingredients  string `form:"ingredients" binding:"required"`
	Instructions string `form:"instructions" binding:"required"`
	Category     string `form:"category"`
	CookingTime  int    `form:"cooking_time" binding:"min=0"`
}

type commentRequest struct {
	Comment string `json:"comment" form:"comment"`
}

// readRecipeForm binds the multipart form and opens the media files. The
// returned cleanup must be called once the service is done with them.
func readRecipeForm(c *gin.Context) (service.RecipeInput, func(), bool) {
	var form recipeForm
	if err := c.ShouldBind(&form); err != nil {
		bindError(c, err)
		return service.RecipeInput{}, nil, false
	}

	video, closeVideo, err := formUpload(c, "video")
	if err != nil {
		respondError(c, err)
		return service.RecipeInput{}, nil, false
	}
	thumb, closeThumb, err := formUpload(c, "thumbnail")
	if err != nil {
		closeVideo()
		respondError(c, err)
		return service.RecipeInput{}, nil, false
	}

	in := service.RecipeInput{
		Title:        form.Title,
		Description:  form.Description,
		Ingredients:  form.Ingredients,
		Instructions: form.Instructions,
		Category:     form.Category,
		CookingTime:  form.CookingTime,
		Video:        video,
		Thumbnail:    thumb,
	}
	return in, func() { closeVideo(); closeThumb() }, true
}

// Create handles POST /api/v1/recipes (multipart).
func (h *RecipeHandler) Create(c *gin.Context) {
	in, cleanup, ok := readRecipeForm(c)
	if !ok {
		return
	}
	defer cleanup()

	recipe, err := h.recipes.Upload(c.Request.Context(), middleware.ViewerID(c), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, recipe)
}

// Get handles GET /api/v1/recipes/:id.
func (h *RecipeHandler) Get(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	view, err := h.recipes.Get(c.Request.Context(), id, middleware.ViewerID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// Update handles PUT /api/v1/recipes/:id (multipart; files optional).
func (h *RecipeHandler) Update(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	in, cleanup, ok := readRecipeForm(c)
	if !ok {
		return
	}
	defer cleanup()

	actor, _ := middleware.Actor(c)
	recipe, err := h.recipes.Update(c.Request.Context(), actor, id, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, recipe)
}

// Delete handles DELETE /api/v1/recipes/:id.
func (h *RecipeHandler) Delete(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	actor, _ := middleware.Actor(c)
	if err := h.recipes.Delete(c.Request.Context(), actor, id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Recipe deleted"})
}

// ToggleLike handles POST /api/v1/recipes/:id/like.
func (h *RecipeHandler) ToggleLike(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	liked, count, err := h.recipes.ToggleLike(c.Request.Context(), id, middleware.ViewerID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"liked": liked, "count": count})
}

// RecordView handles POST /api/v1/recipes/:id/view.
func (h *RecipeHandler) RecordView(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	views, err := h.recipes.RecordView(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"views": views})
}

// ListComments handles GET /api/v1/recipes/:id/comments.
func (h *RecipeHandler) ListComments(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	comments, err := h.recipes.Comments(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"comments": comments, "total": len(comments)})
}

// PostComment handles POST /api/v1/recipes/:id/comments.
func (h *RecipeHandler) PostComment(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req commentRequest
	if err := c.ShouldBind(&req); err != nil {
		bindError(c, err)
		return
	}
	comment, err := h.recipes.PostComment(c.Request.Context(), id, middleware.ViewerID(c), req.Comment)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, comment)
}

// Dashboard handles GET /api/v1/dashboard.
func (h *RecipeHandler) Dashboard(c *gin.Context) {
	actor, _ := middleware.Actor(c)
	dash, err := h.recipes.Dashboard(c.Request.Context(), actor)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dash)
}

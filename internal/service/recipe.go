package service

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/timmy/recipeclip/internal/domain"
	"github.com/timmy/recipeclip/internal/logger"
	"github.com/timmy/recipeclip/internal/repository"
	"github.com/timmy/recipeclip/internal/storage"
)

const (
	maxTitleLength   = 100
	maxCommentLength = 1000
	analyticsSize    = 10
	analyticsLabel   = 15
	topRecipesSize   = 10
	signupTrendDays  = 7
)

// RecipeInput carries the fields of an upload or edit. Video is required on
// upload; on edit a nil Video or Thumbnail keeps the stored file.
type RecipeInput struct {
	Title        string
	Description  string
	Ingredients  string
	Instructions string
	Category     string
	CookingTime  int
	Video        *storage.Upload
	Thumbnail    *storage.Upload
}

func (in *RecipeInput) validate() error {
	in.Title = strings.TrimSpace(in.Title)
	in.Ingredients = strings.TrimSpace(in.Ingredients)
	in.Instructions = strings.TrimSpace(in.Instructions)
	in.Description = strings.TrimSpace(in.Description)
	in.Category = strings.TrimSpace(in.Category)

	switch {
	case in.Title == "" || in.Ingredients == "" || in.Instructions == "":
		return fmt.Errorf("%w: title, ingredients and instructions are required", domain.ErrInvalidInput)
	case utf8.RuneCountInString(in.Title) > maxTitleLength:
		return fmt.Errorf("%w: title exceeds %d characters", domain.ErrInvalidInput, maxTitleLength)
	case in.CookingTime < 0:
		return fmt.Errorf("%w: cooking time cannot be negative", domain.ErrInvalidInput)
	}
	if in.Category == "" || in.Category == domain.CategoryAll {
		in.Category = domain.DefaultCategory
	}
	return nil
}

// RecipeStat is one bar of the owner analytics chart.
type RecipeStat struct {
	RecipeID uint   `json:"recipe_id"`
	Label    string `json:"label"`
	Views    int64  `json:"views"`
	Likes    int64  `json:"likes"`
}

// DailyCount is the number of events on one calendar day (UTC).
type DailyCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// Dashboard is the landing view after login. Users see their own recipes
// and analytics; admins see site-wide figures.
type Dashboard struct {
	Role         domain.Role         `json:"role"`
	Recipes      []domain.RecipeView `json:"recipes"`
	Analytics    []RecipeStat        `json:"analytics,omitempty"`
	TopRecipes   []domain.RecipeView `json:"top_recipes,omitempty"`
	TotalUsers   int64               `json:"total_users,omitempty"`
	TotalRecipes int64               `json:"total_recipes,omitempty"`
	SignupTrend  []DailyCount        `json:"signup_trend,omitempty"`
}

// RecipeService handles recipe lifecycle, engagement and dashboards.
type RecipeService struct {
	recipes  *repository.RecipeRepository
	likes    *repository.LikeRepository
	comments *repository.CommentRepository
	users    *repository.UserRepository
	storage  storage.ObjectStorage
	now      func() time.Time
}

// NewRecipeService creates a new RecipeService.
// Parameters:
//   - recipes: recipe repository, also used for catalog reads.
//   - likes: like relation repository.
//   - comments: comment repository.
//   - users: account repository for admin totals.
//   - objectStorage: destination for videos and thumbnails.
// Returns:
//   - *RecipeService: service ready for use.
func NewRecipeService(
	recipes *repository.RecipeRepository,
	likes *repository.LikeRepository,
	comments *repository.CommentRepository,
	users *repository.UserRepository,
	objectStorage storage.ObjectStorage,
) *RecipeService {
	return &RecipeService{
		recipes:  recipes,
		likes:    likes,
		comments: comments,
		users:    users,
		storage:  objectStorage,
		now:      time.Now,
	}
}

// Upload stores the media and creates a recipe owned by ownerID. Stored
// objects are removed again if a later step fails.
// Parameters:
//   - ctx: request context.
//   - ownerID: uploading user.
//   - in: recipe fields and media; Video is required.
// Returns:
//   - *domain.Recipe: the created recipe.
//   - error: domain.ErrInvalidInput, domain.ErrUnsupportedMedia, or a storage error.
func (s *RecipeService) Upload(ctx context.Context, ownerID uint, in RecipeInput) (*domain.Recipe, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	if in.Video == nil {
		return nil, fmt.Errorf("%w: a video file is required", domain.ErrInvalidInput)
	}

	videoKey, thumbKey, err := s.storeMedia(ctx, in)
	if err != nil {
		return nil, err
	}

	recipe := &domain.Recipe{
		Title:        in.Title,
		Description:  in.Description,
		Ingredients:  in.Ingredients,
		Instructions: in.Instructions,
		Category:     in.Category,
		CookingTime:  in.CookingTime,
		UserID:       ownerID,
	}
	s.attachMedia(recipe, videoKey, thumbKey)

	if err := s.recipes.Create(ctx, recipe); err != nil {
		s.discard(ctx, videoKey, thumbKey)
		return nil, err
	}

	logger.With(logger.Fields{logger.FieldRecipeID: recipe.ID, logger.FieldUserID: ownerID}).
		Info(ctx, "Recipe uploaded: %s", recipe.Title)
	return recipe, nil
}

// Get returns one recipe as seen by viewerID (0 for anonymous).
func (s *RecipeService) Get(ctx context.Context, id, viewerID uint) (*domain.RecipeView, error) {
	return s.recipes.View(ctx, id, viewerID)
}

// Update replaces the fields of a recipe. Only the owner or an admin may
// edit; replaced media objects are deleted after the row is saved.
func (s *RecipeService) Update(ctx context.Context, actor domain.Actor, id uint, in RecipeInput) (*domain.Recipe, error) {
	recipe, err := s.recipes.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.CanModify(recipe.UserID) {
		return nil, domain.ErrPermissionDenied
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	videoKey, thumbKey, err := s.storeMedia(ctx, in)
	if err != nil {
		return nil, err
	}

	var stale []string
	if videoKey != "" {
		stale = append(stale, recipe.VideoKey)
	}
	if thumbKey != "" {
		stale = append(stale, recipe.ThumbnailKey)
	}

	recipe.Title = in.Title
	recipe.Description = in.Description
	recipe.Ingredients = in.Ingredients
	recipe.Instructions = in.Instructions
	recipe.Category = in.Category
	recipe.CookingTime = in.CookingTime
	s.attachMedia(recipe, videoKey, thumbKey)

	if err := s.recipes.Update(ctx, recipe); err != nil {
		s.discard(ctx, videoKey, thumbKey)
		return nil, err
	}
	s.discard(ctx, stale...)
	return recipe, nil
}

// Delete removes a recipe with its likes, comments and media. Only the
// owner or an admin may delete.
func (s *RecipeService) Delete(ctx context.Context, actor domain.Actor, id uint) error {
	recipe, err := s.recipes.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !actor.CanModify(recipe.UserID) {
		return domain.ErrPermissionDenied
	}
	if err := s.recipes.Delete(ctx, id); err != nil {
		return err
	}
	s.discard(ctx, recipe.VideoKey, recipe.ThumbnailKey)

	logger.With(logger.Fields{logger.FieldRecipeID: id, logger.FieldUserID: actor.UserID}).
		Info(ctx, "Recipe deleted")
	return nil
}

// ToggleLike flips userID's like on a recipe.
// Returns:
//   - bool: whether the user likes the recipe after the call.
//   - int64: the recipe's like count after the call.
//   - error: domain.ErrRecipeNotFound or a storage error.
func (s *RecipeService) ToggleLike(ctx context.Context, recipeID, userID uint) (bool, int64, error) {
	if _, err := s.recipes.GetByID(ctx, recipeID); err != nil {
		return false, 0, err
	}
	return s.likes.Toggle(ctx, recipeID, userID)
}

// RecordView increments the view counter and returns the new value.
func (s *RecipeService) RecordView(ctx context.Context, recipeID uint) (int64, error) {
	return s.recipes.IncrementViews(ctx, recipeID)
}

// Comments lists a recipe's comments, newest first.
func (s *RecipeService) Comments(ctx context.Context, recipeID uint) ([]domain.CommentView, error) {
	if _, err := s.recipes.GetByID(ctx, recipeID); err != nil {
		return nil, err
	}
	return s.comments.ListByRecipe(ctx, recipeID)
}

// PostComment adds a comment by userID. Blank comments are rejected with
// domain.ErrInvalidInput.
func (s *RecipeService) PostComment(ctx context.Context, recipeID, userID uint, body string) (*domain.Comment, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, fmt.Errorf("%w: comment cannot be empty", domain.ErrInvalidInput)
	}
	if utf8.RuneCountInString(body) > maxCommentLength {
		return nil, fmt.Errorf("%w: comment exceeds %d characters", domain.ErrInvalidInput, maxCommentLength)
	}
	if _, err := s.recipes.GetByID(ctx, recipeID); err != nil {
		return nil, err
	}

	comment := &domain.Comment{RecipeID: recipeID, UserID: userID, Body: body}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, err
	}
	return comment, nil
}

// Dashboard assembles the landing view for actor.
func (s *RecipeService) Dashboard(ctx context.Context, actor domain.Actor) (*Dashboard, error) {
	if actor.IsAdmin() {
		return s.adminDashboard(ctx, actor)
	}

	own, err := s.recipes.Query(ctx, domain.CatalogFilter{OwnerID: actor.UserID}, domain.SortNewest, actor.UserID)
	if err != nil {
		return nil, err
	}

	stats := make([]RecipeStat, 0, analyticsSize)
	for _, r := range head(own, analyticsSize) {
		stats = append(stats, RecipeStat{
			RecipeID: r.ID,
			Label:    truncateLabel(r.Title, analyticsLabel),
			Views:    r.Views,
			Likes:    r.LikeCount,
		})
	}
	return &Dashboard{Role: actor.Role, Recipes: own, Analytics: stats}, nil
}

func (s *RecipeService) adminDashboard(ctx context.Context, actor domain.Actor) (*Dashboard, error) {
	top, err := s.recipes.MostViewed(ctx, topRecipesSize)
	if err != nil {
		return nil, err
	}
	all, err := s.recipes.Query(ctx, domain.CatalogFilter{}, domain.SortNewest, actor.UserID)
	if err != nil {
		return nil, err
	}
	totalUsers, err := s.users.Count(ctx)
	if err != nil {
		return nil, err
	}
	totalRecipes, err := s.recipes.Count(ctx)
	if err != nil {
		return nil, err
	}

	today := s.now().UTC().Truncate(24 * time.Hour)
	since := today.AddDate(0, 0, -(signupTrendDays - 1))
	signups, err := s.users.SignupTimes(ctx, since)
	if err != nil {
		return nil, err
	}

	return &Dashboard{
		Role:         actor.Role,
		Recipes:      all,
		TopRecipes:   top,
		TotalUsers:   totalUsers,
		TotalRecipes: totalRecipes,
		SignupTrend:  dailyCounts(since, signupTrendDays, signups),
	}, nil
}

// storeMedia uploads whichever of the video and thumbnail are present.
func (s *RecipeService) storeMedia(ctx context.Context, in RecipeInput) (videoKey, thumbKey string, err error) {
	if in.Video != nil {
		if videoKey, err = storage.Store(ctx, s.storage, storage.MediaVideo, in.Video); err != nil {
			return "", "", err
		}
	}
	if in.Thumbnail != nil {
		if thumbKey, err = storage.Store(ctx, s.storage, storage.MediaThumbnail, in.Thumbnail); err != nil {
			s.discard(ctx, videoKey)
			return "", "", err
		}
	}
	return videoKey, thumbKey, nil
}

func (s *RecipeService) attachMedia(recipe *domain.Recipe, videoKey, thumbKey string) {
	if videoKey != "" {
		recipe.VideoKey = videoKey
		recipe.VideoURL = s.storage.GetURL(videoKey)
	}
	if thumbKey != "" {
		recipe.ThumbnailKey = thumbKey
		recipe.ThumbnailURL = s.storage.GetURL(thumbKey)
	}
}

func (s *RecipeService) discard(ctx context.Context, keys ...string) {
	if err := storage.Remove(ctx, s.storage, keys...); err != nil {
		logger.With(logger.Fields{"keys": keys}).Warn(ctx, "Failed to delete media: %v", err)
	}
}

func truncateLabel(title string, max int) string {
	runes := []rune(title)
	if len(runes) <= max {
		return title
	}
	return string(runes[:max]) + "..."
}

// dailyCounts buckets times into days consecutive UTC days starting at since.
func dailyCounts(since time.Time, days int, times []time.Time) []DailyCount {
	counts := make([]DailyCount, days)
	for i := range counts {
		counts[i].Date = since.AddDate(0, 0, i).Format("2006-01-02")
	}
	for _, t := range times {
		idx := int(t.UTC().Sub(since) / (24 * time.Hour))
		if idx >= 0 && idx < days {
			counts[idx].Count++
		}
	}
	return counts
}

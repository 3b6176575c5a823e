package domain

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// CategoryAll disables the category filter on catalog reads.
const CategoryAll = "All"

// DefaultCategory is assigned to uploads that do not name a category.
const DefaultCategory = "Other"

// Recipe represents an uploaded video recipe.
type Recipe struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Title        string    `gorm:"type:varchar(100);not null" json:"title"`
	Description  string    `gorm:"type:text" json:"description"`
	Ingredients  string    `gorm:"type:text;not null" json:"ingredients"`
	Instructions string    `gorm:"type:text;not null" json:"instructions"`
	VideoKey     string    `gorm:"column:video_key;type:text;not null" json:"-"`
	VideoURL     string    `gorm:"column:video_url;type:text" json:"video_url"`
	ThumbnailKey string    `gorm:"column:thumbnail_key;type:text" json:"-"`
	ThumbnailURL string    `gorm:"column:thumbnail_url;type:text" json:"thumbnail_url,omitempty"`
	Category     string    `gorm:"type:varchar(50);index:idx_recipes_category;default:Other" json:"category"`
	CookingTime  int       `gorm:"column:cooking_time;not null;default:0" json:"cooking_time"`
	Views        int64     `gorm:"not null;default:0" json:"views"`
	UserID       uint      `gorm:"index:idx_recipes_user;not null" json:"user_id"`

	// Case-folded copies of Title and Description used for term matching.
	// Kept in sync by BeforeSave.
	SearchTitle       string `gorm:"column:search_title;type:text" json:"-"`
	SearchDescription string `gorm:"column:search_description;type:text" json:"-"`

	CreatedAt    time.Time `gorm:"index:idx_recipes_created" json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName returns the database table name for Recipe.
func (Recipe) TableName() string {
	return "recipes"
}

// BeforeSave refreshes the folded search columns on create and save.
func (r *Recipe) BeforeSave(*gorm.DB) error {
	r.SearchTitle = FoldForSearch(r.Title)
	r.SearchDescription = FoldForSearch(r.Description)
	return nil
}

// FoldForSearch is the case folding applied to both stored text and search
// terms. It is Unicode-aware, unlike SQLite's ASCII-only LOWER().
func FoldForSearch(s string) string {
	return strings.ToLower(s)
}

// RecipeLike is the (recipe, user) like relation. The pair is unique.
type RecipeLike struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	RecipeID  uint      `gorm:"not null;uniqueIndex:idx_recipe_likes_pair" json:"recipe_id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_recipe_likes_pair;index:idx_recipe_likes_user" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the database table name for RecipeLike.
func (RecipeLike) TableName() string {
	return "recipe_likes"
}

// RecipeView is a recipe as presented to a viewer: owner name, derived like
// count and whether the viewer has liked it.
type RecipeView struct {
	Recipe
	Username  string `json:"username"`
	LikeCount int64  `json:"like_count"`
	Liked     bool   `json:"liked"`
}

// SortOrder selects the ordering of catalog reads.
type SortOrder string

const (
	SortNewest   SortOrder = "newest"
	SortOldest   SortOrder = "oldest"
	SortShortest SortOrder = "shortest"
	SortLongest  SortOrder = "longest"
)

// ParseSortOrder resolves a raw sort parameter. Matching is exact: unknown
// values, including "relevance", the empty string and other spellings such
// as "OLDEST" or " oldest", resolve to SortNewest.
// Parameters:
//   - raw: user-supplied sort key.
// Returns:
//   - SortOrder: one of the four supported orders.
func ParseSortOrder(raw string) SortOrder {
	switch SortOrder(raw) {
	case SortOldest:
		return SortOldest
	case SortShortest:
		return SortShortest
	case SortLongest:
		return SortLongest
	default:
		return SortNewest
	}
}

// CatalogFilter narrows a catalog read.
// An empty Category or CategoryAll means no category filter; an empty Term
// means no text filter. OwnerID and Limit are ignored when zero.
type CatalogFilter struct {
	Category string
	Term     string
	OwnerID  uint
	Limit    int
}

// FiltersCategory reports whether the filter restricts by category.
func (f CatalogFilter) FiltersCategory() bool {
	return f.Category != "" && f.Category != CategoryAll
}

// NormalizeCategory maps an absent category to CategoryAll.
func NormalizeCategory(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return CategoryAll
	}
	return raw
}

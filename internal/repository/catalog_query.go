package repository

import (
	"context"
	"strings"

	"github.com/timmy/recipeclip/internal/domain"
	"gorm.io/gorm"
)

// likeEscaper makes user input match literally inside a LIKE pattern.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Term matching runs against the folded search columns so both sides are
// folded by domain.FoldForSearch regardless of the SQL driver.
const (
	titleContains       = `recipes.search_title LIKE ? ESCAPE '\'`
	descriptionContains = `recipes.search_description LIKE ? ESCAPE '\'`
)

// recipeRow is the scan target for enriched catalog reads.
type recipeRow struct {
	domain.Recipe
	Username    string
	LikeCount   int64
	ViewerLiked int64
}

func (row recipeRow) view() domain.RecipeView {
	return domain.RecipeView{
		Recipe:    row.Recipe,
		Username:  row.Username,
		LikeCount: row.LikeCount,
		Liked:     row.ViewerLiked > 0,
	}
}

// containsPattern builds a case-insensitive substring pattern for term.
func containsPattern(term string) string {
	return "%" + likeEscaper.Replace(domain.FoldForSearch(term)) + "%"
}

// orderClause resolves a sort order to SQL. Unknown orders are newest-first.
func orderClause(sort domain.SortOrder) string {
	switch sort {
	case domain.SortOldest:
		return "recipes.created_at ASC, recipes.id ASC"
	case domain.SortShortest:
		return "recipes.cooking_time ASC, recipes.created_at DESC, recipes.id DESC"
	case domain.SortLongest:
		return "recipes.cooking_time DESC, recipes.created_at DESC, recipes.id DESC"
	default:
		return "recipes.created_at DESC, recipes.id DESC"
	}
}

// enriched selects recipes joined with their owner and derived like data.
// viewerID 0 means anonymous; no like relation ever matches it.
func (r *RecipeRepository) enriched(ctx context.Context, viewerID uint) *gorm.DB {
	return r.db.WithContext(ctx).
		Table("recipes").
		Select(`recipes.*, users.username AS username,
			(SELECT COUNT(*) FROM recipe_likes rl WHERE rl.recipe_id = recipes.id) AS like_count,
			(SELECT COUNT(*) FROM recipe_likes vl WHERE vl.recipe_id = recipes.id AND vl.user_id = ?) AS viewer_liked`, viewerID).
		Joins("JOIN users ON users.id = recipes.user_id")
}

// Query returns the recipes matching filter in the requested order, each
// carrying its like count and whether viewerID liked it.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - filter: category (All or empty disables it), free-text term and optional owner.
//   - sort: requested order; unknown values fall back to newest-first.
//   - viewerID: current user, or 0 for anonymous.
// Returns:
//   - []domain.RecipeView: matching recipes, possibly empty.
//   - error: non-nil if the storage read fails.
func (r *RecipeRepository) Query(ctx context.Context, filter domain.CatalogFilter, sort domain.SortOrder, viewerID uint) ([]domain.RecipeView, error) {
	q := r.enriched(ctx, viewerID)

	if filter.FiltersCategory() {
		q = q.Where("recipes.category = ?", filter.Category)
	}
	if term := strings.TrimSpace(filter.Term); term != "" {
		pattern := containsPattern(term)
		q = q.Where(r.db.Where(titleContains, pattern).Or(descriptionContains, pattern))
	}
	if filter.OwnerID != 0 {
		q = q.Where("recipes.user_id = ?", filter.OwnerID)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}

	var rows []recipeRow
	if err := q.Order(orderClause(sort)).Scan(&rows).Error; err != nil {
		return nil, err
	}

	views := make([]domain.RecipeView, 0, len(rows))
	for _, row := range rows {
		views = append(views, row.view())
	}
	return views, nil
}

// View returns one enriched recipe.
func (r *RecipeRepository) View(ctx context.Context, id, viewerID uint) (*domain.RecipeView, error) {
	var rows []recipeRow
	if err := r.enriched(ctx, viewerID).Where("recipes.id = ?", id).Limit(1).Scan(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, domain.ErrRecipeNotFound
	}
	v := rows[0].view()
	return &v, nil
}

// MostViewed returns up to limit recipes ordered by view count.
func (r *RecipeRepository) MostViewed(ctx context.Context, limit int) ([]domain.RecipeView, error) {
	var rows []recipeRow
	if err := r.enriched(ctx, 0).Order("recipes.views DESC, recipes.id ASC").Limit(limit).Scan(&rows).Error; err != nil {
		return nil, err
	}
	views := make([]domain.RecipeView, 0, len(rows))
	for _, row := range rows {
		views = append(views, row.view())
	}
	return views, nil
}

// CountLikes returns the number of like relations for a recipe.
func (r *RecipeRepository) CountLikes(ctx context.Context, recipeID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.RecipeLike{}).Where("recipe_id = ?", recipeID).Count(&count).Error
	return count, err
}

// TitleMatches returns distinct titles containing term, case-insensitively,
// most recently created first.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - term: substring to look for; matched literally.
//   - limit: maximum number of titles; <= 0 returns nothing.
// Returns:
//   - []string: matching titles.
//   - error: non-nil if the storage read fails.
func (r *RecipeRepository) TitleMatches(ctx context.Context, term string, limit int) ([]string, error) {
	titles := []string{}
	if limit <= 0 {
		return titles, nil
	}
	err := r.db.WithContext(ctx).
		Model(&domain.Recipe{}).
		Select("recipes.title").
		Where(titleContains, containsPattern(term)).
		Group("recipes.title").
		Order("MAX(recipes.created_at) DESC, recipes.title ASC").
		Limit(limit).
		Pluck("recipes.title", &titles).Error
	if err != nil {
		return nil, err
	}
	return titles, nil
}

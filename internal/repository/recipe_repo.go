package repository

import (
	"context"
	"errors"

	"github.com/timmy/recipeclip/internal/domain"
	"gorm.io/gorm"
)

// RecipeRepository handles recipe data operations and catalog reads.
type RecipeRepository struct {
	db *gorm.DB
}

// NewRecipeRepository creates a new RecipeRepository.
// Parameters:
//   - db: GORM database handle used for queries.
// Returns:
//   - *RecipeRepository: repository instance bound to db.
func NewRecipeRepository(db *gorm.DB) *RecipeRepository {
	return &RecipeRepository{db: db}
}

// Create inserts a new recipe.
func (r *RecipeRepository) Create(ctx context.Context, recipe *domain.Recipe) error {
	return r.db.WithContext(ctx).Create(recipe).Error
}

// Update saves every column of an existing recipe.
func (r *RecipeRepository) Update(ctx context.Context, recipe *domain.Recipe) error {
	return r.db.WithContext(ctx).Save(recipe).Error
}

// GetByID retrieves a recipe by its ID.
// Returns:
//   - *domain.Recipe: recipe record if found.
//   - error: domain.ErrRecipeNotFound when absent, or the storage error.
func (r *RecipeRepository) GetByID(ctx context.Context, id uint) (*domain.Recipe, error) {
	var recipe domain.Recipe
	if err := r.db.WithContext(ctx).First(&recipe, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrRecipeNotFound
		}
		return nil, err
	}
	return &recipe, nil
}

// Delete removes a recipe together with its likes and comments.
func (r *RecipeRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("recipe_id = ?", id).Delete(&domain.RecipeLike{}).Error; err != nil {
			return err
		}
		if err := tx.Where("recipe_id = ?", id).Delete(&domain.Comment{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&domain.Recipe{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.ErrRecipeNotFound
		}
		return nil
	})
}

// IncrementViews adds one to the view counter and returns the new value.
func (r *RecipeRepository) IncrementViews(ctx context.Context, id uint) (int64, error) {
	res := r.db.WithContext(ctx).Model(&domain.Recipe{}).
		Where("id = ?", id).
		UpdateColumn("views", gorm.Expr("views + 1"))
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, domain.ErrRecipeNotFound
	}

	var views int64
	if err := r.db.WithContext(ctx).Model(&domain.Recipe{}).Where("id = ?", id).Pluck("views", &views).Error; err != nil {
		return 0, err
	}
	return views, nil
}

// Count returns the total number of recipes.
func (r *RecipeRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Recipe{}).Count(&count).Error
	return count, err
}

// CountByUser returns how many recipes a user owns.
func (r *RecipeRepository) CountByUser(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Recipe{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}

// ExistsByTitleAndOwner reports whether the owner already has a recipe with this title.
func (r *RecipeRepository) ExistsByTitleAndOwner(ctx context.Context, title string, userID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Recipe{}).
		Where("title = ? AND user_id = ?", title, userID).
		Count(&count).Error
	return count > 0, err
}

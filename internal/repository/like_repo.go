package repository

import (
	"context"
	"errors"

	"github.com/timmy/recipeclip/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LikeRepository manages (recipe, user) like relations.
type LikeRepository struct {
	db *gorm.DB
}

// NewLikeRepository creates a new LikeRepository.
func NewLikeRepository(db *gorm.DB) *LikeRepository {
	return &LikeRepository{db: db}
}

// Toggle flips the like relation for the pair and returns the new state
// together with the recipe's like count.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - recipeID: recipe being liked.
//   - userID: user toggling the like.
// Returns:
//   - liked: true if the relation exists after the call.
//   - count: number of likes on the recipe after the call.
//   - err: non-nil if the transaction fails.
func (r *LikeRepository) Toggle(ctx context.Context, recipeID, userID uint) (liked bool, count int64, err error) {
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing domain.RecipeLike
		findErr := tx.Where("recipe_id = ? AND user_id = ?", recipeID, userID).First(&existing).Error
		switch {
		case findErr == nil:
			if err := tx.Delete(&existing).Error; err != nil {
				return err
			}
			liked = false
		case errors.Is(findErr, gorm.ErrRecordNotFound):
			like := domain.RecipeLike{RecipeID: recipeID, UserID: userID}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&like).Error; err != nil {
				return err
			}
			liked = true
		default:
			return findErr
		}
		return tx.Model(&domain.RecipeLike{}).Where("recipe_id = ?", recipeID).Count(&count).Error
	})
	return liked, count, err
}

// CountByUser returns how many likes a user has given.
func (r *LikeRepository) CountByUser(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.RecipeLike{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}

package repository

import (
	"context"

	"github.com/timmy/recipeclip/internal/domain"
	"gorm.io/gorm"
)

// CommentRepository handles recipe comments.
type CommentRepository struct {
	db *gorm.DB
}

// NewCommentRepository creates a new CommentRepository.
func NewCommentRepository(db *gorm.DB) *CommentRepository {
	return &CommentRepository{db: db}
}

// Create inserts a comment.
func (r *CommentRepository) Create(ctx context.Context, comment *domain.Comment) error {
	return r.db.WithContext(ctx).Create(comment).Error
}

// ListByRecipe returns a recipe's comments, newest first, with commenter details.
func (r *CommentRepository) ListByRecipe(ctx context.Context, recipeID uint) ([]domain.CommentView, error) {
	var rows []domain.CommentView
	err := r.db.WithContext(ctx).
		Table("comments").
		Select("comments.*, users.username AS username, users.profile_photo AS profile_photo").
		Joins("JOIN users ON users.id = comments.user_id").
		Where("comments.recipe_id = ?", recipeID).
		Order("comments.created_at DESC, comments.id DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []domain.CommentView{}
	}
	return rows, nil
}

// CountByUser returns how many comments a user has written.
func (r *CommentRepository) CountByUser(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Comment{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}

package repository

import (
	"context"
	"errors"
	"time"

	"github.com/timmy/recipeclip/internal/domain"
	"gorm.io/gorm"
)

// UserRepository handles account data operations.
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new UserRepository.
// Parameters:
//   - db: GORM database handle used for queries.
// Returns:
//   - *UserRepository: repository instance bound to db.
func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new user. A taken username yields domain.ErrUsernameTaken.
func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	taken, err := r.ExistsByUsername(ctx, user.Username)
	if err != nil {
		return err
	}
	if taken {
		return domain.ErrUsernameTaken
	}
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.ErrUsernameTaken
		}
		return err
	}
	return nil
}

// ExistsByUsername reports whether the username is registered.
func (r *UserRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.User{}).Where("username = ?", username).Count(&count).Error
	return count > 0, err
}

// GetByID retrieves a user by ID.
// Returns:
//   - *domain.User: user record if found.
//   - error: domain.ErrUserNotFound when absent, or the storage error.
func (r *UserRepository) GetByID(ctx context.Context, id uint) (*domain.User, error) {
	var user domain.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// GetByUsername retrieves a user by username.
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	var user domain.User
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// Update saves profile columns of an existing user.
func (r *UserRepository) Update(ctx context.Context, user *domain.User) error {
	return r.db.WithContext(ctx).Save(user).Error
}

// UpdatePassword replaces the stored password hash.
func (r *UserRepository) UpdatePassword(ctx context.Context, id uint, hash string) error {
	return r.db.WithContext(ctx).Model(&domain.User{}).Where("id = ?", id).Update("password_hash", hash).Error
}

// UpdateRole sets a user's role.
func (r *UserRepository) UpdateRole(ctx context.Context, id uint, role domain.Role) error {
	return r.db.WithContext(ctx).Model(&domain.User{}).Where("id = ?", id).Update("role", role).Error
}

// List returns every user, newest first.
func (r *UserRepository) List(ctx context.Context) ([]domain.User, error) {
	var users []domain.User
	if err := r.db.WithContext(ctx).Order("created_at DESC, id DESC").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// Count returns the number of registered users.
func (r *UserRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.User{}).Count(&count).Error
	return count, err
}

// SignupTimes returns the creation times of accounts created at or after since.
func (r *UserRepository) SignupTimes(ctx context.Context, since time.Time) ([]time.Time, error) {
	var times []time.Time
	err := r.db.WithContext(ctx).Model(&domain.User{}).
		Where("created_at >= ?", since).
		Order("created_at ASC").
		Pluck("created_at", &times).Error
	return times, err
}

// Delete removes a user and everything they own: their likes and comments,
// their recipes and the likes and comments on those recipes.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: user to delete.
// Returns:
//   - []domain.Recipe: the deleted recipes, so their media can be removed.
//   - error: domain.ErrUserNotFound when absent, or the storage error.
func (r *UserRepository) Delete(ctx context.Context, id uint) ([]domain.Recipe, error) {
	var recipes []domain.Recipe
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", id).Find(&recipes).Error; err != nil {
			return err
		}
		recipeIDs := make([]uint, 0, len(recipes))
		for _, recipe := range recipes {
			recipeIDs = append(recipeIDs, recipe.ID)
		}

		likes := tx.Where("user_id = ?", id)
		comments := tx.Where("user_id = ?", id)
		if len(recipeIDs) > 0 {
			likes = likes.Or("recipe_id IN ?", recipeIDs)
			comments = comments.Or("recipe_id IN ?", recipeIDs)
		}
		if err := likes.Delete(&domain.RecipeLike{}).Error; err != nil {
			return err
		}
		if err := comments.Delete(&domain.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", id).Delete(&domain.Recipe{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&domain.User{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.ErrUserNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return recipes, nil
}

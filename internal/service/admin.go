package service

import (
	"context"
	"fmt"

	"github.com/timmy/recipeclip/internal/auth"
	"github.com/timmy/recipeclip/internal/domain"
	"github.com/timmy/recipeclip/internal/logger"
	"github.com/timmy/recipeclip/internal/repository"
	"github.com/timmy/recipeclip/internal/storage"
)

// AdminService implements account management for administrators. Callers
// must have checked the admin role already.
type AdminService struct {
	users    *repository.UserRepository
	recipes  *repository.RecipeRepository
	likes    *repository.LikeRepository
	comments *repository.CommentRepository
	storage  storage.ObjectStorage
}

// NewAdminService creates a new AdminService.
func NewAdminService(
	users *repository.UserRepository,
	recipes *repository.RecipeRepository,
	likes *repository.LikeRepository,
	comments *repository.CommentRepository,
	objectStorage storage.ObjectStorage,
) *AdminService {
	return &AdminService{
		users:    users,
		recipes:  recipes,
		likes:    likes,
		comments: comments,
		storage:  objectStorage,
	}
}

// ListUsers returns every account, newest first.
func (s *AdminService) ListUsers(ctx context.Context) ([]domain.User, error) {
	return s.users.List(ctx)
}

// UserDetails returns an account with its activity counts.
func (s *AdminService) UserDetails(ctx context.Context, userID uint) (*domain.UserDetails, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	details := &domain.UserDetails{User: *user}
	if details.RecipeCount, err = s.recipes.CountByUser(ctx, userID); err != nil {
		return nil, err
	}
	if details.CommentCount, err = s.comments.CountByUser(ctx, userID); err != nil {
		return nil, err
	}
	if details.LikeCount, err = s.likes.CountByUser(ctx, userID); err != nil {
		return nil, err
	}
	return details, nil
}

// ToggleRole switches an account between user and admin.
// Returns:
//   - domain.Role: the role after the change.
//   - error: domain.ErrSelfModification when actor targets itself,
//     domain.ErrUserNotFound, or a storage error.
func (s *AdminService) ToggleRole(ctx context.Context, actor domain.Actor, userID uint) (domain.Role, error) {
	if actor.UserID == userID {
		return "", domain.ErrSelfModification
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return "", err
	}

	next := domain.RoleAdmin
	if user.IsAdmin() {
		next = domain.RoleUser
	}
	if err := s.users.UpdateRole(ctx, userID, next); err != nil {
		return "", err
	}

	logger.With(logger.Fields{logger.FieldUserID: userID, "by": actor.UserID, "role": next}).
		Info(ctx, "Role changed")
	return next, nil
}

// DeleteUser removes an account with its recipes, likes, comments and
// stored media. Admins cannot delete themselves.
func (s *AdminService) DeleteUser(ctx context.Context, actor domain.Actor, userID uint) error {
	if actor.UserID == userID {
		return domain.ErrSelfModification
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	recipes, err := s.users.Delete(ctx, userID)
	if err != nil {
		return err
	}

	keys := make([]string, 0, 2*len(recipes)+1)
	for _, r := range recipes {
		keys = append(keys, r.VideoKey, r.ThumbnailKey)
	}
	if key, ok := storage.KeyFromURL(s.storage, user.ProfilePhoto); ok {
		keys = append(keys, key)
	}
	if err := storage.Remove(ctx, s.storage, keys...); err != nil {
		logger.With(logger.Fields{logger.FieldUserID: userID}).Warn(ctx, "Failed to delete user media: %v", err)
	}

	logger.With(logger.Fields{logger.FieldUserID: userID, "by": actor.UserID, logger.FieldCount: len(recipes)}).
		Info(ctx, "User deleted")
	return nil
}

// ResetPassword sets a new password for userID.
func (s *AdminService) ResetPassword(ctx context.Context, userID uint, password string) error {
	if len(password) < auth.MinPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", domain.ErrInvalidInput, auth.MinPasswordLength)
	}
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return err
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	return s.users.UpdatePassword(ctx, userID, hash)
}

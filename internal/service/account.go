package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/timmy/recipeclip/internal/auth"
	"github.com/timmy/recipeclip/internal/domain"
	"github.com/timmy/recipeclip/internal/logger"
	"github.com/timmy/recipeclip/internal/repository"
	"github.com/timmy/recipeclip/internal/storage"
)

// ProfileInput carries the editable profile fields.
type ProfileInput struct {
	FullName    string
	Email       string
	Gender      string
	Age         *int
	PhoneNumber string
	Photo       *storage.Upload
}

// RegisterInput is a sign-up request.
type RegisterInput struct {
	Username string
	Password string
	ProfileInput
}

// Session is the result of a successful login.
type Session struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *domain.User `json:"user"`
}

// AccountService manages registration, login and self-service profile edits.
type AccountService struct {
	users   *repository.UserRepository
	storage storage.ObjectStorage
	tokens  *auth.TokenManager
}

// NewAccountService creates a new AccountService.
// Parameters:
//   - users: account repository.
//   - objectStorage: destination for profile photos.
//   - tokens: session token issuer.
// Returns:
//   - *AccountService: service ready for use.
func NewAccountService(users *repository.UserRepository, objectStorage storage.ObjectStorage, tokens *auth.TokenManager) *AccountService {
	return &AccountService{users: users, storage: objectStorage, tokens: tokens}
}

// Register creates a regular user account.
// Parameters:
//   - ctx: request context.
//   - in: credentials and optional profile fields and photo.
// Returns:
//   - *domain.User: the created account.
//   - error: domain.ErrInvalidInput, domain.ErrUsernameTaken,
//     domain.ErrUnsupportedMedia, or a storage error.
func (s *AccountService) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	username := strings.TrimSpace(in.Username)
	if username == "" || len(username) > 50 {
		return nil, fmt.Errorf("%w: username must be 1-50 characters", domain.ErrInvalidInput)
	}
	if len(in.Password) < auth.MinPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", domain.ErrInvalidInput, auth.MinPasswordLength)
	}

	taken, err := s.users.ExistsByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, domain.ErrUsernameTaken
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Username:     username,
		PasswordHash: hash,
		Role:         domain.RoleUser,
	}
	applyProfile(user, in.ProfileInput)

	var photoKey string
	if in.Photo != nil {
		photoKey, err = storage.Store(ctx, s.storage, storage.MediaProfile, in.Photo)
		if err != nil {
			return nil, err
		}
		user.ProfilePhoto = s.storage.GetURL(photoKey)
	}

	if err := s.users.Create(ctx, user); err != nil {
		s.discard(ctx, photoKey)
		return nil, err
	}

	logger.With(logger.Fields{logger.FieldUserID: user.ID, "username": user.Username}).
		Info(ctx, "Account registered")
	return user, nil
}

// Login verifies credentials and issues a session token. Unknown users and
// wrong passwords both yield domain.ErrInvalidCredentials.
func (s *AccountService) Login(ctx context.Context, username, password string) (*Session, error) {
	user, err := s.users.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}
	if !auth.CheckPassword(user.PasswordHash, password) {
		return nil, domain.ErrInvalidCredentials
	}

	token, expires, err := s.tokens.Issue(user)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, ExpiresAt: expires, User: user}, nil
}

// Profile returns the account of userID.
func (s *AccountService) Profile(ctx context.Context, userID uint) (*domain.User, error) {
	return s.users.GetByID(ctx, userID)
}

// UpdateProfile replaces the profile fields of userID. A new photo replaces
// the stored one, which is then deleted.
func (s *AccountService) UpdateProfile(ctx context.Context, userID uint, in ProfileInput) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	applyProfile(user, in)

	oldPhoto := user.ProfilePhoto
	var photoKey string
	if in.Photo != nil {
		photoKey, err = storage.Store(ctx, s.storage, storage.MediaProfile, in.Photo)
		if err != nil {
			return nil, err
		}
		user.ProfilePhoto = s.storage.GetURL(photoKey)
	}

	if err := s.users.Update(ctx, user); err != nil {
		s.discard(ctx, photoKey)
		return nil, err
	}
	if photoKey != "" {
		if key, ok := storage.KeyFromURL(s.storage, oldPhoto); ok {
			s.discard(ctx, key)
		}
	}
	return user, nil
}

// ChangePassword replaces the password of userID.
// Returns:
//   - error: domain.ErrInvalidInput when confirmation mismatches or the new
//     password is too short, domain.ErrInvalidCredentials when current is wrong.
func (s *AccountService) ChangePassword(ctx context.Context, userID uint, current, next, confirm string) error {
	if next != confirm {
		return fmt.Errorf("%w: new passwords do not match", domain.ErrInvalidInput)
	}
	if len(next) < auth.MinPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", domain.ErrInvalidInput, auth.MinPasswordLength)
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if !auth.CheckPassword(user.PasswordHash, current) {
		return domain.ErrInvalidCredentials
	}

	hash, err := auth.HashPassword(next)
	if err != nil {
		return err
	}
	return s.users.UpdatePassword(ctx, userID, hash)
}

// EnsureAdmin creates the bootstrap admin account if username is free.
// Returns:
//   - *domain.User: the existing or created account.
//   - bool: true if the account was created.
//   - error: non-nil on storage failure.
func (s *AccountService) EnsureAdmin(ctx context.Context, username, password string) (*domain.User, bool, error) {
	existing, err := s.users.GetByUsername(ctx, username)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, false, err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, false, err
	}
	admin := &domain.User{
		Username:     username,
		PasswordHash: hash,
		FullName:     "Administrator",
		Role:         domain.RoleAdmin,
	}
	if err := s.users.Create(ctx, admin); err != nil {
		return nil, false, err
	}
	return admin, true, nil
}

func (s *AccountService) discard(ctx context.Context, key string) {
	if err := storage.Remove(ctx, s.storage, key); err != nil {
		logger.With(logger.Fields{"key": key}).Warn(ctx, "Failed to delete object: %v", err)
	}
}

func applyProfile(user *domain.User, in ProfileInput) {
	user.FullName = strings.TrimSpace(in.FullName)
	user.Email = strings.TrimSpace(in.Email)
	user.Gender = strings.TrimSpace(in.Gender)
	user.Age = in.Age
	user.PhoneNumber = strings.TrimSpace(in.PhoneNumber)
}

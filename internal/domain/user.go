package domain

import "time"

// Role is the authorization level of an account.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// User represents a registered account. PasswordHash is never serialized.
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"type:varchar(50);uniqueIndex:idx_users_username;not null" json:"username"`
	PasswordHash string    `gorm:"column:password_hash;type:text;not null" json:"-"`
	FullName     string    `gorm:"type:varchar(100)" json:"full_name"`
	Email        string    `gorm:"type:varchar(100)" json:"email"`
	Gender       string    `gorm:"type:varchar(10)" json:"gender"`
	Age          *int      `json:"age,omitempty"`
	PhoneNumber  string    `gorm:"type:varchar(20)" json:"phone_number"`
	ProfilePhoto string    `gorm:"type:text" json:"profile_photo,omitempty"`
	Role         Role      `gorm:"type:varchar(20);not null;default:user" json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// TableName returns the database table name for User.
func (User) TableName() string {
	return "users"
}

// IsAdmin reports whether the user holds the admin role.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// UserDetails is the admin view of one account.
type UserDetails struct {
	User
	RecipeCount  int64 `json:"recipe_count"`
	CommentCount int64 `json:"comment_count"`
	LikeCount    int64 `json:"like_count"`
}

// Comment is a user's remark on a recipe.
type Comment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	RecipeID  uint      `gorm:"not null;index:idx_comments_recipe" json:"recipe_id"`
	UserID    uint      `gorm:"not null;index:idx_comments_user" json:"user_id"`
	Body      string    `gorm:"column:comment;type:text;not null" json:"comment"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the database table name for Comment.
func (Comment) TableName() string {
	return "comments"
}

// CommentView carries the commenter's display data alongside the comment.
type CommentView struct {
	Comment
	Username     string `json:"username"`
	ProfilePhoto string `json:"profile_photo,omitempty"`
}

// Actor is the authenticated caller of a mutating operation.
type Actor struct {
	UserID uint
	Role   Role
}

// IsAdmin reports whether the caller holds the admin role.
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// CanModify reports whether the caller may change a resource owned by ownerID.
func (a Actor) CanModify(ownerID uint) bool {
	return a.IsAdmin() || (a.UserID != 0 && a.UserID == ownerID)
}

package service

import (
	"context"
	"errors"
	"testing"

	"github.com/timmy/recipeclip/internal/auth"
	"github.com/timmy/recipeclip/internal/domain"
)

func TestToggleRole(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.admin.ToggleRole(ctx, actorOf(f.root), f.root.ID); !errors.Is(err, domain.ErrSelfModification) {
		t.Errorf("ToggleRole(self) error = %v", err)
	}

	role, err := f.admin.ToggleRole(ctx, actorOf(f.root), f.other.ID)
	if err != nil || role != domain.RoleAdmin {
		t.Fatalf("ToggleRole() = %q, %v", role, err)
	}
	role, err = f.admin.ToggleRole(ctx, actorOf(f.root), f.other.ID)
	if err != nil || role != domain.RoleUser {
		t.Errorf("second ToggleRole() = %q, %v", role, err)
	}
	if _, err := f.admin.ToggleRole(ctx, actorOf(f.root), 9999); !errors.Is(err, domain.ErrUserNotFound) {
		t.Errorf("ToggleRole(missing) error = %v", err)
	}
}

func TestUserDetails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	recipe := f.upload(t, f.owner, "Bread")
	if _, _, err := f.recipe.ToggleLike(ctx, recipe.ID, f.owner.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := f.recipe.PostComment(ctx, recipe.ID, f.owner.ID, "proud of this one"); err != nil {
		t.Fatal(err)
	}

	details, err := f.admin.UserDetails(ctx, f.owner.ID)
	if err != nil {
		t.Fatalf("UserDetails() error = %v", err)
	}
	if details.RecipeCount != 1 || details.CommentCount != 1 || details.LikeCount != 1 {
		t.Errorf("details = %+v", details)
	}
}

func TestDeleteUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	mine := f.upload(t, f.owner, "Owner Recipe")
	theirs := f.upload(t, f.other, "Other Recipe")
	if _, _, err := f.recipe.ToggleLike(ctx, theirs.ID, f.owner.ID); err != nil {
		t.Fatal(err)
	}

	if err := f.admin.DeleteUser(ctx, actorOf(f.root), f.root.ID); !errors.Is(err, domain.ErrSelfModification) {
		t.Errorf("DeleteUser(self) error = %v", err)
	}
	if err := f.admin.DeleteUser(ctx, actorOf(f.root), f.owner.ID); err != nil {
		t.Fatalf("DeleteUser() error = %v", err)
	}

	if f.stored(t, mine.VideoKey) || f.stored(t, mine.ThumbnailKey) {
		t.Error("deleted user's media still stored")
	}
	if !f.stored(t, theirs.VideoKey) {
		t.Error("other user's media was removed")
	}
	if _, err := f.recipe.Get(ctx, mine.ID, 0); !errors.Is(err, domain.ErrRecipeNotFound) {
		t.Errorf("Get(deleted recipe) error = %v", err)
	}
	view, err := f.recipe.Get(ctx, theirs.ID, 0)
	if err != nil || view.LikeCount != 0 {
		t.Errorf("surviving recipe = %+v, %v; want like removed", view, err)
	}
	if err := f.admin.DeleteUser(ctx, actorOf(f.root), f.owner.ID); !errors.Is(err, domain.ErrUserNotFound) {
		t.Errorf("second DeleteUser() error = %v", err)
	}
}

func TestResetPassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if err := f.admin.ResetPassword(ctx, f.other.ID, "short"); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("ResetPassword(short) error = %v", err)
	}
	if err := f.admin.ResetPassword(ctx, 9999, "longenough"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Errorf("ResetPassword(missing) error = %v", err)
	}
	if err := f.admin.ResetPassword(ctx, f.other.ID, "longenough"); err != nil {
		t.Fatalf("ResetPassword() error = %v", err)
	}
	user, err := f.users.GetByID(ctx, f.other.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !auth.CheckPassword(user.PasswordHash, "longenough") {
		t.Error("password was not updated")
	}
}

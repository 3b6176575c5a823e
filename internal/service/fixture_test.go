package service

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/timmy/recipeclip/internal/auth"
	"github.com/timmy/recipeclip/internal/domain"
	"github.com/timmy/recipeclip/internal/repository"
	"github.com/timmy/recipeclip/internal/storage"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const mediaBaseURL = "http://media.test"

type fixture struct {
	db       *gorm.DB
	media    *storage.MemoryStorage
	users    *repository.UserRepository
	recipes  *repository.RecipeRepository
	accounts *AccountService
	recipe   *RecipeService
	admin    *AdminService
	tokens   *auth.TokenManager

	owner domain.User
	other domain.User
	root  domain.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repository.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	f := &fixture{
		db:      db,
		media:   storage.NewMemoryStorage(mediaBaseURL),
		users:   repository.NewUserRepository(db),
		recipes: repository.NewRecipeRepository(db),
		tokens:  auth.NewTokenManager("fixture-secret-0123456789", time.Hour),
	}
	likes := repository.NewLikeRepository(db)
	comments := repository.NewCommentRepository(db)
	f.accounts = NewAccountService(f.users, f.media, f.tokens)
	f.recipe = NewRecipeService(f.recipes, likes, comments, f.users, f.media)
	f.admin = NewAdminService(f.users, f.recipes, likes, comments, f.media)

	ctx := context.Background()
	f.owner = domain.User{Username: "owner", PasswordHash: "x", Role: domain.RoleUser}
	f.other = domain.User{Username: "other", PasswordHash: "x", Role: domain.RoleUser}
	f.root = domain.User{Username: "root", PasswordHash: "x", Role: domain.RoleAdmin}
	for _, u := range []*domain.User{&f.owner, &f.other, &f.root} {
		if err := f.users.Create(ctx, u); err != nil {
			t.Fatalf("create user %s: %v", u.Username, err)
		}
	}
	return f
}

func actorOf(u domain.User) domain.Actor {
	return domain.Actor{UserID: u.ID, Role: u.Role}
}

func videoUpload(name string) *storage.Upload {
	data := []byte("\x00\x00\x00\x18ftypmp42 fake video payload")
	return &storage.Upload{Filename: name, Size: int64(len(data)), Body: bytes.NewReader(data)}
}

func imageUpload(t *testing.T, name string) *storage.Upload {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, 1, 1))); err != nil {
		t.Fatal(err)
	}
	return &storage.Upload{Filename: name, Size: int64(buf.Len()), Body: bytes.NewReader(buf.Bytes())}
}

func (f *fixture) upload(t *testing.T, owner domain.User, title string) *domain.Recipe {
	t.Helper()
	recipe, err := f.recipe.Upload(context.Background(), owner.ID, RecipeInput{
		Title:        title,
		Ingredients:  "flour, water",
		Instructions: "mix and bake",
		Category:     "Dinner",
		CookingTime:  30,
		Video:        videoUpload("clip.mp4"),
		Thumbnail:    imageUpload(t, "thumb.png"),
	})
	if err != nil {
		t.Fatalf("Upload(%q) error = %v", title, err)
	}
	return recipe
}

func (f *fixture) stored(t *testing.T, key string) bool {
	t.Helper()
	ok, err := f.media.Exists(context.Background(), key)
	if err != nil {
		t.Fatal(err)
	}
	return ok
}

package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/timmy/recipeclip/internal/domain"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

type catalogFixture struct {
	db        *gorm.DB
	owner     domain.User
	fan       domain.User
	primavera domain.Recipe
	bolognese domain.Recipe
	tacos     domain.Recipe
}

func newCatalogFixture(t *testing.T) *catalogFixture {
	t.Helper()
	db := newTestDB(t)
	ctx := context.Background()
	users := NewUserRepository(db)
	recipes := NewRecipeRepository(db)

	f := &catalogFixture{db: db}
	f.owner = domain.User{Username: "chef", PasswordHash: "x", Role: domain.RoleUser}
	f.fan = domain.User{Username: "fan", PasswordHash: "x", Role: domain.RoleUser}
	for _, u := range []*domain.User{&f.owner, &f.fan} {
		if err := users.Create(ctx, u); err != nil {
			t.Fatalf("create user: %v", err)
		}
	}

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	f.primavera = domain.Recipe{
		Title: "Pasta Primavera", Description: "Spring vegetables", Ingredients: "pasta", Instructions: "boil",
		VideoKey: "videos/a.mp4", Category: "Italian", CookingTime: 20, UserID: f.owner.ID, CreatedAt: base,
	}
	f.bolognese = domain.Recipe{
		Title: "Pasta Bolognese", Description: "Slow ragu", Ingredients: "beef", Instructions: "simmer",
		VideoKey: "videos/b.mp4", Category: "Italian", CookingTime: 90, UserID: f.owner.ID, CreatedAt: base.Add(time.Hour),
	}
	f.tacos = domain.Recipe{
		Title: "Street Tacos", Description: "Quick 100% corn tortillas with pasta-free fillings", Ingredients: "corn", Instructions: "grill",
		VideoKey: "videos/c.mp4", Category: "Mexican", CookingTime: 15, UserID: f.fan.ID, CreatedAt: base.Add(2 * time.Hour),
	}
	for _, r := range []*domain.Recipe{&f.primavera, &f.bolognese, &f.tacos} {
		if err := recipes.Create(ctx, r); err != nil {
			t.Fatalf("create recipe: %v", err)
		}
	}
	return f
}

func titles(views []domain.RecipeView) []string {
	out := make([]string, 0, len(views))
	for _, v := range views {
		out = append(out, v.Title)
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestQuerySortOrders(t *testing.T) {
	f := newCatalogFixture(t)
	repo := NewRecipeRepository(f.db)
	italian := domain.CatalogFilter{Category: "Italian"}

	tests := []struct {
		sort string
		want []string
	}{
		{"shortest", []string{"Pasta Primavera", "Pasta Bolognese"}},
		{"longest", []string{"Pasta Bolognese", "Pasta Primavera"}},
		{"oldest", []string{"Pasta Primavera", "Pasta Bolognese"}},
		{"newest", []string{"Pasta Bolognese", "Pasta Primavera"}},
		{"relevance", []string{"Pasta Bolognese", "Pasta Primavera"}},
		{"", []string{"Pasta Bolognese", "Pasta Primavera"}},
		{"sideways", []string{"Pasta Bolognese", "Pasta Primavera"}},
		{"OLDEST", []string{"Pasta Bolognese", "Pasta Primavera"}},
		{" oldest", []string{"Pasta Bolognese", "Pasta Primavera"}},
		{"Shortest", []string{"Pasta Bolognese", "Pasta Primavera"}},
		{"longest ", []string{"Pasta Bolognese", "Pasta Primavera"}},
	}
	for _, tt := range tests {
		t.Run("sort="+tt.sort, func(t *testing.T) {
			got, err := repo.Query(context.Background(), italian, domain.ParseSortOrder(tt.sort), 0)
			if err != nil {
				t.Fatalf("Query() error = %v", err)
			}
			if !equalStrings(titles(got), tt.want) {
				t.Fatalf("Query() = %v, want %v", titles(got), tt.want)
			}
		})
	}
}

func TestQueryCategoryFilter(t *testing.T) {
	f := newCatalogFixture(t)
	repo := NewRecipeRepository(f.db)

	tests := []struct {
		category string
		want     int
	}{
		{domain.CategoryAll, 3},
		{"", 3},
		{"Italian", 2},
		{"Mexican", 1},
		{"italian", 0},
		{"Thai", 0},
	}
	for _, tt := range tests {
		got, err := repo.Query(context.Background(), domain.CatalogFilter{Category: tt.category}, domain.SortNewest, 0)
		if err != nil {
			t.Fatalf("Query(%q) error = %v", tt.category, err)
		}
		if len(got) != tt.want {
			t.Errorf("Query(%q) returned %d recipes, want %d", tt.category, len(got), tt.want)
		}
		for _, v := range got {
			if tt.category != "" && tt.category != domain.CategoryAll && v.Category != tt.category {
				t.Errorf("Query(%q) returned category %q", tt.category, v.Category)
			}
		}
	}
}

func TestQueryTermMatching(t *testing.T) {
	f := newCatalogFixture(t)
	repo := NewRecipeRepository(f.db)

	tests := []struct {
		name string
		term string
		want []string
	}{
		{"title is case-insensitive", "PASTA", []string{"Street Tacos", "Pasta Bolognese", "Pasta Primavera"}},
		{"description matches", "ragu", []string{"Pasta Bolognese"}},
		{"percent is literal", "100%", []string{"Street Tacos"}},
		{"underscore is literal", "pasta_", nil},
		{"whitespace only means no filter", "   ", []string{"Street Tacos", "Pasta Bolognese", "Pasta Primavera"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.Query(context.Background(), domain.CatalogFilter{Category: domain.CategoryAll, Term: tt.term}, domain.SortNewest, 0)
			if err != nil {
				t.Fatalf("Query() error = %v", err)
			}
			if !equalStrings(titles(got), tt.want) {
				t.Fatalf("Query(%q) = %v, want %v", tt.term, titles(got), tt.want)
			}
		})
	}
}

func TestQueryLikeEnrichment(t *testing.T) {
	f := newCatalogFixture(t)
	repo := NewRecipeRepository(f.db)
	likes := NewLikeRepository(f.db)
	ctx := context.Background()

	if _, _, err := likes.Toggle(ctx, f.primavera.ID, f.fan.ID); err != nil {
		t.Fatalf("Toggle() error = %v", err)
	}
	if _, _, err := likes.Toggle(ctx, f.primavera.ID, f.owner.ID); err != nil {
		t.Fatalf("Toggle() error = %v", err)
	}

	got, err := repo.Query(ctx, domain.CatalogFilter{Category: "Italian"}, domain.SortShortest, f.fan.ID)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if got[0].LikeCount != 2 || !got[0].Liked {
		t.Errorf("primavera = {count %d liked %v}, want {2 true}", got[0].LikeCount, got[0].Liked)
	}
	if got[1].LikeCount != 0 || got[1].Liked {
		t.Errorf("bolognese = {count %d liked %v}, want {0 false}", got[1].LikeCount, got[1].Liked)
	}
	if got[0].Username != "chef" {
		t.Errorf("username = %q, want chef", got[0].Username)
	}

	anon, err := repo.Query(ctx, domain.CatalogFilter{Category: "Italian"}, domain.SortShortest, 0)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if anon[0].Liked {
		t.Error("anonymous viewer should never see liked = true")
	}

	count, err := repo.CountLikes(ctx, f.primavera.ID)
	if err != nil || count != 2 {
		t.Fatalf("CountLikes() = %d, %v; want 2", count, err)
	}
}

func TestLikeToggleRoundTrip(t *testing.T) {
	f := newCatalogFixture(t)
	likes := NewLikeRepository(f.db)
	ctx := context.Background()

	liked, count, err := likes.Toggle(ctx, f.tacos.ID, f.owner.ID)
	if err != nil || !liked || count != 1 {
		t.Fatalf("first Toggle() = %v, %d, %v; want true, 1, nil", liked, count, err)
	}
	liked, count, err = likes.Toggle(ctx, f.tacos.ID, f.owner.ID)
	if err != nil || liked || count != 0 {
		t.Fatalf("second Toggle() = %v, %d, %v; want false, 0, nil", liked, count, err)
	}
}

func TestTitleMatches(t *testing.T) {
	f := newCatalogFixture(t)
	repo := NewRecipeRepository(f.db)
	ctx := context.Background()

	dup := domain.Recipe{
		Title: "Pasta Primavera", Ingredients: "x", Instructions: "y", VideoKey: "videos/d.mp4",
		Category: "Italian", UserID: f.fan.ID, CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	if err := repo.Create(ctx, &dup); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := repo.TitleMatches(ctx, "pas", 3)
	if err != nil {
		t.Fatalf("TitleMatches() error = %v", err)
	}
	want := []string{"Pasta Bolognese", "Pasta Primavera"}
	if !equalStrings(got, want) {
		t.Fatalf("TitleMatches() = %v, want %v", got, want)
	}

	got, err = repo.TitleMatches(ctx, "a", 1)
	if err != nil || len(got) != 1 {
		t.Fatalf("TitleMatches(limit 1) = %v, %v", got, err)
	}

	got, err = repo.TitleMatches(ctx, "pas", 0)
	if err != nil || len(got) != 0 {
		t.Fatalf("TitleMatches(limit 0) = %v, %v", got, err)
	}
}

func TestIncrementViews(t *testing.T) {
	f := newCatalogFixture(t)
	repo := NewRecipeRepository(f.db)
	ctx := context.Background()

	for i := int64(1); i <= 3; i++ {
		views, err := repo.IncrementViews(ctx, f.bolognese.ID)
		if err != nil {
			t.Fatalf("IncrementViews() error = %v", err)
		}
		if views != i {
			t.Fatalf("IncrementViews() = %d, want %d", views, i)
		}
	}

	if _, err := repo.IncrementViews(ctx, 9999); !errors.Is(err, domain.ErrRecipeNotFound) {
		t.Fatalf("IncrementViews(missing) error = %v, want ErrRecipeNotFound", err)
	}

	top, err := repo.MostViewed(ctx, 1)
	if err != nil || len(top) != 1 || top[0].ID != f.bolognese.ID {
		t.Fatalf("MostViewed() = %v, %v", titles(top), err)
	}
}

func TestUserDeleteCascades(t *testing.T) {
	f := newCatalogFixture(t)
	ctx := context.Background()
	users := NewUserRepository(f.db)
	likes := NewLikeRepository(f.db)
	comments := NewCommentRepository(f.db)
	recipes := NewRecipeRepository(f.db)

	if _, _, err := likes.Toggle(ctx, f.primavera.ID, f.fan.ID); err != nil {
		t.Fatal(err)
	}
	if err := comments.Create(ctx, &domain.Comment{RecipeID: f.tacos.ID, UserID: f.owner.ID, Body: "yum"}); err != nil {
		t.Fatal(err)
	}

	deleted, err := users.Delete(ctx, f.owner.ID)
	if err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if len(deleted) != 2 {
		t.Fatalf("Delete() returned %d recipes, want 2", len(deleted))
	}

	remaining, err := recipes.Query(ctx, domain.CatalogFilter{}, domain.SortNewest, 0)
	if err != nil {
		t.Fatal(err)
	}
	if !equalStrings(titles(remaining), []string{"Street Tacos"}) {
		t.Fatalf("remaining recipes = %v", titles(remaining))
	}
	if n, _ := likes.CountByUser(ctx, f.fan.ID); n != 0 {
		t.Errorf("likes on deleted recipes survived: %d", n)
	}
	if list, _ := comments.ListByRecipe(ctx, f.tacos.ID); len(list) != 0 {
		t.Errorf("comments by deleted user survived: %d", len(list))
	}
	if _, err := users.Delete(ctx, f.owner.ID); !errors.Is(err, domain.ErrUserNotFound) {
		t.Errorf("second Delete() error = %v, want ErrUserNotFound", err)
	}
}

func TestUserCreateRejectsDuplicate(t *testing.T) {
	db := newTestDB(t)
	users := NewUserRepository(db)
	ctx := context.Background()

	if err := users.Create(ctx, &domain.User{Username: "sam", PasswordHash: "h"}); err != nil {
		t.Fatal(err)
	}
	err := users.Create(ctx, &domain.User{Username: "sam", PasswordHash: "h"})
	if !errors.Is(err, domain.ErrUsernameTaken) {
		t.Fatalf("Create(duplicate) error = %v, want ErrUsernameTaken", err)
	}
}

func TestTermMatchingFoldsUnicode(t *testing.T) {
	f := newCatalogFixture(t)
	repo := NewRecipeRepository(f.db)
	ctx := context.Background()

	creme := domain.Recipe{
		Title: "CRÈME BRÛLÉE", Description: "Caramel ÉCLAIRÉ", Ingredients: "cream", Instructions: "torch",
		VideoKey: "videos/e.mp4", Category: "Dessert", UserID: f.owner.ID,
	}
	if err := repo.Create(ctx, &creme); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	titlesFor := func(term string) []string {
		t.Helper()
		got, err := repo.Query(ctx, domain.CatalogFilter{Category: domain.CategoryAll, Term: term}, domain.SortNewest, 0)
		if err != nil {
			t.Fatalf("Query(%q) error = %v", term, err)
		}
		return titles(got)
	}

	tests := []struct {
		term string
		want []string
	}{
		{"crème", []string{"CRÈME BRÛLÉE"}},
		{"Crème", []string{"CRÈME BRÛLÉE"}},
		{"brûlée", []string{"CRÈME BRÛLÉE"}},
		{"éclairé", []string{"CRÈME BRÛLÉE"}},
		{"creme", nil},
	}
	for _, tt := range tests {
		if got := titlesFor(tt.term); !equalStrings(got, tt.want) {
			t.Errorf("Query(%q) = %v, want %v", tt.term, got, tt.want)
		}
	}

	got, err := repo.TitleMatches(ctx, "crème", 3)
	if err != nil || !equalStrings(got, []string{"CRÈME BRÛLÉE"}) {
		t.Fatalf("TitleMatches(crème) = %v, %v", got, err)
	}

	creme.Title = "Île Flottante"
	if err := repo.Update(ctx, &creme); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if got := titlesFor("ÎLE"); !equalStrings(got, []string{"Île Flottante"}) {
		t.Errorf("Query(ÎLE) after rename = %v", got)
	}
	if got := titlesFor("brûlée"); len(got) != 0 {
		t.Errorf("Query(brûlée) after rename = %v, want none", got)
	}
}

func TestMigrateBackfillsSearchColumns(t *testing.T) {
	f := newCatalogFixture(t)
	repo := NewRecipeRepository(f.db)
	ctx := context.Background()

	if err := f.db.Model(&domain.Recipe{}).Where("1 = 1").
		UpdateColumns(map[string]any{"search_title": "", "search_description": ""}).Error; err != nil {
		t.Fatalf("clear search columns: %v", err)
	}
	if got, _ := repo.TitleMatches(ctx, "pasta", 3); len(got) != 0 {
		t.Fatalf("TitleMatches() before backfill = %v, want none", got)
	}

	if err := Migrate(f.db); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	got, err := repo.TitleMatches(ctx, "pasta", 3)
	if err != nil || !equalStrings(got, []string{"Pasta Bolognese", "Pasta Primavera"}) {
		t.Fatalf("TitleMatches() after backfill = %v, %v", got, err)
	}
}

package service

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/timmy/recipeclip/internal/domain"
	"github.com/timmy/recipeclip/internal/storage"
)

func TestUploadDefaultsAndView(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	recipe, err := f.recipe.Upload(ctx, f.owner.ID, RecipeInput{
		Title:        "  Weeknight Ramen ",
		Ingredients:  "noodles",
		Instructions: "boil",
		Video:        videoUpload("ramen.MOV"),
	})
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if recipe.Title != "Weeknight Ramen" || recipe.Category != domain.DefaultCategory {
		t.Errorf("recipe = %+v", recipe)
	}
	if !strings.HasPrefix(recipe.VideoURL, mediaBaseURL+"/videos/") || recipe.ThumbnailURL != "" {
		t.Errorf("media urls = %q, %q", recipe.VideoURL, recipe.ThumbnailURL)
	}
	if !f.stored(t, recipe.VideoKey) {
		t.Error("video not stored")
	}

	view, err := f.recipe.Get(ctx, recipe.ID, f.other.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if view.Username != "owner" || view.Liked || view.LikeCount != 0 {
		t.Errorf("view = %+v", view)
	}
	if _, err := f.recipe.Get(ctx, recipe.ID+100, 0); !errors.Is(err, domain.ErrRecipeNotFound) {
		t.Errorf("Get(missing) error = %v", err)
	}
}

func TestUploadRejects(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	base := func() RecipeInput {
		return RecipeInput{Title: "Soup", Ingredients: "water", Instructions: "heat", Video: videoUpload("soup.mp4")}
	}
	disguised := []byte("GIF89a but truncated")

	tests := []struct {
		name   string
		mutate func(*RecipeInput)
		want   error
	}{
		{"no video", func(in *RecipeInput) { in.Video = nil }, domain.ErrInvalidInput},
		{"no title", func(in *RecipeInput) { in.Title = " " }, domain.ErrInvalidInput},
		{"no ingredients", func(in *RecipeInput) { in.Ingredients = "" }, domain.ErrInvalidInput},
		{"long title", func(in *RecipeInput) { in.Title = strings.Repeat("a", 101) }, domain.ErrInvalidInput},
		{"negative time", func(in *RecipeInput) { in.CookingTime = -5 }, domain.ErrInvalidInput},
		{"video extension", func(in *RecipeInput) { in.Video = videoUpload("soup.mkv") }, domain.ErrUnsupportedMedia},
		{"disguised thumbnail", func(in *RecipeInput) {
			in.Thumbnail = &storage.Upload{Filename: "t.gif", Size: int64(len(disguised)), Body: bytes.NewReader(disguised)}
		}, domain.ErrUnsupportedMedia},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := base()
			tt.mutate(&in)
			if _, err := f.recipe.Upload(ctx, f.owner.ID, in); !errors.Is(err, tt.want) {
				t.Errorf("Upload() error = %v, want %v", err, tt.want)
			}
			if f.media.Len() != 0 {
				t.Errorf("stored objects = %d, want none left behind", f.media.Len())
			}
		})
	}
}

func TestUpdatePermissionsAndMediaReplacement(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	recipe := f.upload(t, f.owner, "Pancakes")
	oldVideo := recipe.VideoKey
	oldThumb := recipe.ThumbnailKey

	edit := RecipeInput{Title: "Fluffy Pancakes", Ingredients: "eggs", Instructions: "flip", Category: "Breakfast"}
	if _, err := f.recipe.Update(ctx, actorOf(f.other), recipe.ID, edit); !errors.Is(err, domain.ErrPermissionDenied) {
		t.Errorf("Update(other) error = %v, want ErrPermissionDenied", err)
	}

	updated, err := f.recipe.Update(ctx, actorOf(f.owner), recipe.ID, edit)
	if err != nil {
		t.Fatalf("Update(owner) error = %v", err)
	}
	if updated.Title != "Fluffy Pancakes" || updated.VideoKey != oldVideo || updated.ThumbnailKey != oldThumb {
		t.Errorf("metadata edit changed media: %+v", updated)
	}

	edit.Video = videoUpload("new.mp4")
	updated, err = f.recipe.Update(ctx, actorOf(f.root), recipe.ID, edit)
	if err != nil {
		t.Fatalf("Update(admin) error = %v", err)
	}
	if updated.VideoKey == oldVideo || f.stored(t, oldVideo) || !f.stored(t, updated.VideoKey) {
		t.Error("video was not replaced")
	}
	if !f.stored(t, oldThumb) {
		t.Error("thumbnail was removed without a replacement")
	}
}

func TestDeleteRemovesMedia(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	recipe := f.upload(t, f.owner, "Curry")
	if _, err := f.recipe.PostComment(ctx, recipe.ID, f.other.ID, "Lovely"); err != nil {
		t.Fatal(err)
	}

	if err := f.recipe.Delete(ctx, actorOf(f.other), recipe.ID); !errors.Is(err, domain.ErrPermissionDenied) {
		t.Errorf("Delete(other) error = %v, want ErrPermissionDenied", err)
	}
	if err := f.recipe.Delete(ctx, actorOf(f.owner), recipe.ID); err != nil {
		t.Fatalf("Delete(owner) error = %v", err)
	}
	if f.media.Len() != 0 {
		t.Errorf("stored objects = %d, want 0", f.media.Len())
	}
	if err := f.recipe.Delete(ctx, actorOf(f.owner), recipe.ID); !errors.Is(err, domain.ErrRecipeNotFound) {
		t.Errorf("second Delete() error = %v", err)
	}
}

func TestEngagement(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	recipe := f.upload(t, f.owner, "Tacos")

	liked, count, err := f.recipe.ToggleLike(ctx, recipe.ID, f.other.ID)
	if err != nil || !liked || count != 1 {
		t.Errorf("ToggleLike() = %v, %d, %v", liked, count, err)
	}
	if _, _, err := f.recipe.ToggleLike(ctx, recipe.ID+1, f.other.ID); !errors.Is(err, domain.ErrRecipeNotFound) {
		t.Errorf("ToggleLike(missing) error = %v", err)
	}

	if views, err := f.recipe.RecordView(ctx, recipe.ID); err != nil || views != 1 {
		t.Errorf("RecordView() = %d, %v", views, err)
	}

	if _, err := f.recipe.PostComment(ctx, recipe.ID, f.other.ID, "   "); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("PostComment(blank) error = %v", err)
	}
	if _, err := f.recipe.PostComment(ctx, recipe.ID+1, f.other.ID, "hi"); !errors.Is(err, domain.ErrRecipeNotFound) {
		t.Errorf("PostComment(missing) error = %v", err)
	}
	if _, err := f.recipe.PostComment(ctx, recipe.ID, f.other.ID, "first"); err != nil {
		t.Fatal(err)
	}
	if _, err := f.recipe.PostComment(ctx, recipe.ID, f.owner.ID, "second"); err != nil {
		t.Fatal(err)
	}

	comments, err := f.recipe.Comments(ctx, recipe.ID)
	if err != nil {
		t.Fatalf("Comments() error = %v", err)
	}
	if len(comments) != 2 || comments[0].Body != "second" || comments[0].Username != "owner" {
		t.Errorf("comments = %+v", comments)
	}
}

func TestUserDashboard(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	long := f.upload(t, f.owner, "Slow Roasted Tomato Soup")
	f.upload(t, f.other, "Not Mine")
	if _, _, err := f.recipe.ToggleLike(ctx, long.ID, f.other.ID); err != nil {
		t.Fatal(err)
	}

	dash, err := f.recipe.Dashboard(ctx, actorOf(f.owner))
	if err != nil {
		t.Fatalf("Dashboard() error = %v", err)
	}
	if len(dash.Recipes) != 1 || dash.TopRecipes != nil {
		t.Fatalf("dashboard = %+v", dash)
	}
	want := RecipeStat{RecipeID: long.ID, Label: "Slow Roasted To...", Views: 0, Likes: 1}
	if len(dash.Analytics) != 1 || dash.Analytics[0] != want {
		t.Errorf("analytics = %+v, want %+v", dash.Analytics, want)
	}
}

func TestAdminDashboard(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.upload(t, f.owner, "A")
	f.upload(t, f.other, "B")
	for i := 0; i < 3; i++ {
		if _, err := f.recipe.RecordView(ctx, a.ID); err != nil {
			t.Fatal(err)
		}
	}

	dash, err := f.recipe.Dashboard(ctx, actorOf(f.root))
	if err != nil {
		t.Fatalf("Dashboard() error = %v", err)
	}
	if dash.TotalUsers != 3 || dash.TotalRecipes != 2 || len(dash.Recipes) != 2 {
		t.Errorf("totals = %d users, %d recipes, %d listed", dash.TotalUsers, dash.TotalRecipes, len(dash.Recipes))
	}
	if len(dash.TopRecipes) != 2 || dash.TopRecipes[0].ID != a.ID {
		t.Errorf("top recipes = %+v", dash.TopRecipes)
	}
	if len(dash.SignupTrend) != signupTrendDays {
		t.Fatalf("trend length = %d", len(dash.SignupTrend))
	}
	total := 0
	for _, day := range dash.SignupTrend {
		total += day.Count
	}
	if total != 3 {
		t.Errorf("trend total = %d, want 3", total)
	}
}

func TestTruncateLabel(t *testing.T) {
	tests := map[string]string{
		"Short":                   "Short",
		"Exactly fifteen":         "Exactly fifteen",
		"Sixteen chars!!!":        "Sixteen chars!!...",
		"Crème brûlée à la maison": "Crème brûlée à ...",
	}
	for in, want := range tests {
		if got := truncateLabel(in, 15); got != want {
			t.Errorf("truncateLabel(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDailyCounts(t *testing.T) {
	since := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	times := []time.Time{
		since.Add(time.Hour),
		since.Add(25 * time.Hour),
		since.Add(26 * time.Hour),
		since.Add(-time.Hour),
		since.AddDate(0, 0, 3),
	}
	got := dailyCounts(since, 3, times)
	want := []DailyCount{{"2024-03-01", 1}, {"2024-03-02", 2}, {"2024-03-03", 0}}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("day %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

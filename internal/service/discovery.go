package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/timmy/recipeclip/internal/cache"
	"github.com/timmy/recipeclip/internal/domain"
	"github.com/timmy/recipeclip/internal/logger"
	"github.com/timmy/recipeclip/internal/metrics"
	"github.com/timmy/recipeclip/internal/provider"
	"golang.org/x/sync/errgroup"
)

// Catalog is the local recipe store as seen by discovery.
type Catalog interface {
	Query(ctx context.Context, filter domain.CatalogFilter, sort domain.SortOrder, viewerID uint) ([]domain.RecipeView, error)
	TitleMatches(ctx context.Context, term string, limit int) ([]string, error)
}

// VideoSearcher finds external recipe videos.
type VideoSearcher interface {
	SearchVideos(ctx context.Context, q provider.VideoQuery) provider.Result[domain.ExternalVideo]
}

// Autocompleter returns external query completions.
type Autocompleter interface {
	Autocomplete(ctx context.Context, term string) provider.Result[string]
}

// SuggestionStore memoizes autocomplete results.
type SuggestionStore interface {
	GetOrCompute(ctx context.Context, query string, compute cache.ComputeFunc) []string
}

// DiscoveryConfig holds result sizes for discovery.
type DiscoveryConfig struct {
	BrowseLimit         int
	SearchLimit         int
	BrowseBias          string // video query term when browsing all categories
	LocalSuggestions    int
	ExternalSuggestions int
	MaxSuggestions      int
	LocalTimeout        time.Duration // bound on the local title lookup during autocomplete
}

// DefaultDiscoveryConfig returns the standard result sizes.
func DefaultDiscoveryConfig() DiscoveryConfig {
	return DiscoveryConfig{
		BrowseLimit:         8,
		SearchLimit:         10,
		BrowseBias:          "popular",
		LocalSuggestions:    3,
		ExternalSuggestions: 4,
		MaxSuggestions:      7,
		LocalTimeout:        1500 * time.Millisecond,
	}
}

// ExternalStatus reports how the external video overlay was obtained.
type ExternalStatus struct {
	Provider  string          `json:"provider,omitempty"`
	Status    provider.Status `json:"status"`
	Reason    string          `json:"reason,omitempty"`
	ElapsedMS int64           `json:"elapsed_ms"`
}

// DiscoveryResult is the combined local and external view for one request.
type DiscoveryResult struct {
	Query    string                 `json:"query,omitempty"`
	Category string                 `json:"category"`
	Sort     domain.SortOrder       `json:"sort"`
	Recipes  []domain.RecipeView    `json:"recipes"`
	Videos   []domain.ExternalVideo `json:"videos"`
	External ExternalStatus         `json:"external"`
}

// DiscoveryService blends local catalog reads with external video results
// and serves cached autocomplete suggestions.
type DiscoveryService struct {
	catalog      Catalog
	videos       VideoSearcher
	autocomplete Autocompleter
	suggestions  SuggestionStore
	cfg          DiscoveryConfig
}

// NewDiscoveryService creates a new DiscoveryService.
// Parameters:
//   - catalog: local recipe store; its errors fail browse and search.
//   - videos: external video search; failures only empty the overlay.
//   - autocomplete: external completions; failures only shrink suggestions.
//   - suggestions: cache in front of autocomplete.
//   - cfg: result sizes.
// Returns:
//   - *DiscoveryService: service ready for use.
func NewDiscoveryService(catalog Catalog, videos VideoSearcher, autocomplete Autocompleter, suggestions SuggestionStore, cfg DiscoveryConfig) *DiscoveryService {
	return &DiscoveryService{
		catalog:      catalog,
		videos:       videos,
		autocomplete: autocomplete,
		suggestions:  suggestions,
		cfg:          cfg,
	}
}

// Browse lists local recipes in a category alongside external videos biased
// toward that category, or toward the popular feed for "All".
// Parameters:
//   - ctx: request context.
//   - category: category name; empty means All.
//   - sort: raw sort key; unknown values mean newest.
//   - viewerID: current user or 0.
// Returns:
//   - *DiscoveryResult: recipes plus up to BrowseLimit videos.
//   - error: non-nil only if the local catalog read fails.
func (s *DiscoveryService) Browse(ctx context.Context, category, sort string, viewerID uint) (*DiscoveryResult, error) {
	metrics.DiscoveryRequestsTotal.WithLabelValues("browse").Inc()
	start := time.Now()

	category = domain.NormalizeCategory(category)
	order := domain.ParseSortOrder(sort)

	bias := category
	if category == domain.CategoryAll {
		bias = s.cfg.BrowseBias
	}

	result, err := s.discover(ctx,
		domain.CatalogFilter{Category: category},
		order,
		viewerID,
		provider.VideoQuery{Term: bias, Limit: s.cfg.BrowseLimit},
	)
	if err != nil {
		return nil, err
	}
	result.Category = category
	result.Sort = order

	logger.With(logger.Fields{"category": category, "sort": order}).
		WithCount(len(result.Recipes)).
		WithStatus(string(result.External.Status)).
		WithDuration(time.Since(start)).
		Info(ctx, "Browse completed")
	return result, nil
}

// Search matches recipes by title or description and fetches external videos
// for the same term. A blank term returns empty results without any lookup.
func (s *DiscoveryService) Search(ctx context.Context, term, category, sort string, viewerID uint) (*DiscoveryResult, error) {
	metrics.DiscoveryRequestsTotal.WithLabelValues("search").Inc()
	start := time.Now()

	term = strings.TrimSpace(term)
	category = domain.NormalizeCategory(category)
	order := domain.ParseSortOrder(sort)

	if term == "" {
		return &DiscoveryResult{
			Category: category,
			Sort:     order,
			Recipes:  []domain.RecipeView{},
			Videos:   []domain.ExternalVideo{},
			External: ExternalStatus{Status: provider.StatusEmpty, Reason: "empty query"},
		}, nil
	}

	result, err := s.discover(ctx,
		domain.CatalogFilter{Category: category, Term: term},
		order,
		viewerID,
		provider.VideoQuery{Term: term, Category: category, Limit: s.cfg.SearchLimit},
	)
	if err != nil {
		return nil, err
	}
	result.Query = term
	result.Category = category
	result.Sort = order

	logger.With(logger.Fields{logger.FieldQuery: term, "category": category}).
		WithCount(len(result.Recipes)).
		WithStatus(string(result.External.Status)).
		WithDuration(time.Since(start)).
		Info(ctx, "Search completed")
	return result, nil
}

// discover runs the catalog read and the video search concurrently. A catalog
// error cancels the video search and fails the request.
func (s *DiscoveryService) discover(ctx context.Context, filter domain.CatalogFilter, order domain.SortOrder, viewerID uint, vq provider.VideoQuery) (*DiscoveryResult, error) {
	var (
		recipes []domain.RecipeView
		videos  provider.Result[domain.ExternalVideo]
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		recipes, err = s.catalog.Query(gctx, filter, order, viewerID)
		if err != nil {
			return fmt.Errorf("failed to query catalog: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		videos = s.videos.SearchVideos(gctx, vq)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if recipes == nil {
		recipes = []domain.RecipeView{}
	}
	items := videos.Items
	if items == nil {
		items = []domain.ExternalVideo{}
	}
	return &DiscoveryResult{
		Recipes: recipes,
		Videos:  items,
		External: ExternalStatus{
			Provider:  videos.Provider,
			Status:    videos.Status,
			Reason:    videos.Reason,
			ElapsedMS: videos.Elapsed.Milliseconds(),
		},
	}, nil
}

// Autocomplete returns up to MaxSuggestions completions for term: local
// recipe titles first, then external completions, without duplicates.
// It never fails; unavailable sources simply contribute nothing.
func (s *DiscoveryService) Autocomplete(ctx context.Context, term string) []string {
	metrics.DiscoveryRequestsTotal.WithLabelValues("autocomplete").Inc()

	if cache.Normalize(term) == "" {
		return []string{}
	}
	return s.suggestions.GetOrCompute(ctx, term, s.computeSuggestions)
}

func (s *DiscoveryService) computeSuggestions(ctx context.Context, key string) []string {
	var (
		local    []string
		external provider.Result[string]
	)

	var g errgroup.Group
	g.Go(func() error {
		// compute runs detached from the caller; this deadline is its only bound.
		lctx, cancel := context.WithTimeout(ctx, s.localTimeout())
		defer cancel()
		titles, err := s.catalog.TitleMatches(lctx, key, s.cfg.LocalSuggestions)
		if err != nil {
			logger.With(logger.Fields{logger.FieldQuery: key}).Warn(ctx, "Local title lookup failed: %v", err)
			return nil
		}
		local = titles
		return nil
	})
	g.Go(func() error {
		external = s.autocomplete.Autocomplete(ctx, key)
		return nil
	})
	_ = g.Wait()

	return MergeSuggestions(s.cfg.MaxSuggestions,
		head(local, s.cfg.LocalSuggestions),
		head(external.Items, s.cfg.ExternalSuggestions),
	)
}

// MergeSuggestions concatenates groups in order, skipping exact
// (case-sensitive) duplicates, and stops at limit entries.
func MergeSuggestions(limit int, groups ...[]string) []string {
	if limit <= 0 {
		return []string{}
	}
	merged := make([]string, 0, limit)
	seen := make(map[string]struct{}, limit)
	for _, group := range groups {
		for _, s := range group {
			if len(merged) >= limit {
				return merged
			}
			if _, dup := seen[s]; dup {
				continue
			}
			seen[s] = struct{}{}
			merged = append(merged, s)
		}
	}
	return merged
}

func (s *DiscoveryService) localTimeout() time.Duration {
	if s.cfg.LocalTimeout <= 0 {
		return DefaultDiscoveryConfig().LocalTimeout
	}
	return s.cfg.LocalTimeout
}

func head[T any](items []T, n int) []T {
	if n < 0 {
		n = 0
	}
	if len(items) > n {
		return items[:n]
	}
	return items
}

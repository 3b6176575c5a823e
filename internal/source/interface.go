package source

import "context"

// RecipeItem is a recipe offered by an import source. Media paths point at
// local files.
type RecipeItem struct {
	SourceID      string // Unique ID within the source
	Title         string
	Description   string
	Ingredients   string
	Instructions  string
	Category      string
	CookingTime   int    // Minutes
	VideoPath     string // Required
	ThumbnailPath string // Optional
}

// Source defines the interface for recipe import sources.
type Source interface {
	// GetSourceID returns the unique identifier for this source.
	// Parameters: none.
	// Returns:
	//   - string: stable source identifier.
	GetSourceID() string

	// GetDisplayName returns a human-readable name for this source.
	// Parameters: none.
	// Returns:
	//   - string: display-friendly source name.
	GetDisplayName() string

	// FetchBatch fetches a batch of recipe items starting from the given cursor.
	// Parameters:
	//   - ctx: context for cancellation and deadlines.
	//   - cursor: pagination cursor or empty for first page.
	//   - limit: maximum number of items to fetch.
	// Returns:
	//   - items: batch of recipe items.
	//   - nextCursor: cursor for the next batch or empty if done.
	//   - err: non-nil if fetching fails.
	FetchBatch(ctx context.Context, cursor string, limit int) (items []RecipeItem, nextCursor string, err error)
}

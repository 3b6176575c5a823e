package staging

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/timmy/recipeclip/internal/logger"
	"github.com/timmy/recipeclip/internal/source"
)

const (
	// ManifestFileName is the JSONL manifest file name in staging sources.
	ManifestFileName = "manifest.jsonl"
	// MediaDir is the directory holding staged videos and thumbnails.
	MediaDir = "media"
)

// textBlock accepts either a JSON string or a list of strings, which is
// joined with newlines.
type textBlock string

func (t *textBlock) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*t = textBlock(s)
		return nil
	}
	var lines []string
	if err := json.Unmarshal(data, &lines); err != nil {
		return fmt.Errorf("expected string or list of strings: %w", err)
	}
	*t = textBlock(strings.Join(lines, "\n"))
	return nil
}

// ManifestItem represents an item in the manifest.jsonl file.
type ManifestItem struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Ingredients  textBlock `json:"ingredients"`
	Instructions textBlock `json:"instructions"`
	Category     string    `json:"category"`
	CookingTime  int       `json:"cooking_time"`
	Video        string    `json:"video"`
	Thumbnail    string    `json:"thumbnail"`
}

// Adapter implements the Source interface for a staging directory.
type Adapter struct {
	basePath string
	sourceID string
	items    []source.RecipeItem
	loaded   bool
}

// NewAdapter creates a new staging adapter.
// Parameters:
//   - basePath: base path to the staging directory.
//   - sourceID: subdirectory holding manifest.jsonl and media/.
// Returns:
//   - *Adapter: initialized staging adapter.
func NewAdapter(basePath, sourceID string) *Adapter {
	return &Adapter{
		basePath: basePath,
		sourceID: sourceID,
	}
}

// GetSourceID returns the source identifier with a "staging:" prefix.
func (a *Adapter) GetSourceID() string {
	return "staging:" + a.sourceID
}

// GetDisplayName returns a human-readable name for this source.
func (a *Adapter) GetDisplayName() string {
	return fmt.Sprintf("Staging (%s)", a.sourceID)
}

// FetchBatch fetches a batch of recipe items from the staging directory.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - cursor: pagination cursor as an index string.
//   - limit: maximum number of items to fetch.
// Returns:
//   - []source.RecipeItem: batch of recipe items.
//   - string: next cursor or empty if no more items.
//   - error: non-nil if loading or parsing fails.
func (a *Adapter) FetchBatch(ctx context.Context, cursor string, limit int) ([]source.RecipeItem, string, error) {
	if !a.loaded {
		if err := a.loadItems(ctx); err != nil {
			return nil, "", fmt.Errorf("failed to load staging items: %w", err)
		}
		a.loaded = true
	}

	startIndex := 0
	if cursor != "" {
		var err error
		startIndex, err = strconv.Atoi(cursor)
		if err != nil {
			return nil, "", fmt.Errorf("invalid cursor: %w", err)
		}
	}

	if startIndex >= len(a.items) {
		return []source.RecipeItem{}, "", nil
	}

	endIndex := min(startIndex+limit, len(a.items))
	nextCursor := ""
	if endIndex < len(a.items) {
		nextCursor = strconv.Itoa(endIndex)
	}
	return a.items[startIndex:endIndex], nextCursor, nil
}

// TotalCount returns the number of importable items.
func (a *Adapter) TotalCount(ctx context.Context) (int, error) {
	if !a.loaded {
		if err := a.loadItems(ctx); err != nil {
			return 0, err
		}
		a.loaded = true
	}
	return len(a.items), nil
}

// loadItems reads the manifest. Malformed lines and entries whose video is
// missing are skipped with a warning.
func (a *Adapter) loadItems(ctx context.Context) error {
	stagingPath := filepath.Join(a.basePath, a.sourceID)
	manifestPath := filepath.Join(stagingPath, ManifestFileName)
	mediaPath := filepath.Join(stagingPath, MediaDir)

	file, err := os.Open(manifestPath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("manifest file not found: %s", manifestPath)
		}
		return fmt.Errorf("failed to open manifest: %w", err)
	}
	defer file.Close()

	log := logger.With(logger.Fields{"source": a.GetSourceID()})
	a.items = []source.RecipeItem{}

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var item ManifestItem
		if err := json.Unmarshal([]byte(line), &item); err != nil {
			log.Warn(ctx, "Skipping malformed manifest line %d: %v", lineNo, err)
			continue
		}
		if item.ID == "" || item.Video == "" {
			log.Warn(ctx, "Skipping manifest line %d: id and video are required", lineNo)
			continue
		}

		videoPath := filepath.Join(mediaPath, item.Video)
		if _, err := os.Stat(videoPath); err != nil {
			log.Warn(ctx, "Skipping %s: video %s not found", item.ID, item.Video)
			continue
		}
		thumbPath := ""
		if item.Thumbnail != "" {
			thumbPath = filepath.Join(mediaPath, item.Thumbnail)
			if _, err := os.Stat(thumbPath); err != nil {
				thumbPath = ""
			}
		}

		a.items = append(a.items, source.RecipeItem{
			SourceID:      fmt.Sprintf("%s_%s", a.sourceID, item.ID),
			Title:         item.Title,
			Description:   item.Description,
			Ingredients:   string(item.Ingredients),
			Instructions:  string(item.Instructions),
			Category:      item.Category,
			CookingTime:   item.CookingTime,
			VideoPath:     videoPath,
			ThumbnailPath: thumbPath,
		})
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading manifest: %w", err)
	}

	sort.Slice(a.items, func(i, j int) bool {
		return a.items[i].SourceID < a.items[j].SourceID
	})
	return nil
}

// ListStagingSources lists subdirectories of basePath that hold a manifest.
// Parameters:
//   - basePath: base path to the staging directory.
// Returns:
//   - []string: staging source IDs.
//   - error: non-nil if reading the directory fails.
func ListStagingSources(basePath string) ([]string, error) {
	entries, err := os.ReadDir(basePath)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, err
	}

	var sources []string
	for _, entry := range entries {
		if entry.IsDir() {
			manifestPath := filepath.Join(basePath, entry.Name(), ManifestFileName)
			if _, err := os.Stat(manifestPath); err == nil {
				sources = append(sources, entry.Name())
			}
		}
	}
	return sources, nil
}

package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/timmy/recipeclip/internal/domain"
	"github.com/timmy/recipeclip/internal/logger"
	"github.com/timmy/recipeclip/internal/metrics"
	"github.com/timmy/recipeclip/internal/repository"
	"github.com/timmy/recipeclip/internal/source"
	"github.com/timmy/recipeclip/internal/storage"
)

// ImportService loads recipes from a source through a worker pool.
type ImportService struct {
	recipes   *repository.RecipeRepository
	uploader  *RecipeService
	workers   int
	batchSize int
}

// ImportConfig holds configuration for the import service.
type ImportConfig struct {
	Workers   int
	BatchSize int
}

// NewImportService creates a new import service.
// Parameters:
//   - recipes: used for duplicate checks.
//   - uploader: stores media and creates each recipe.
//   - cfg: worker count and fetch batch size.
// Returns:
//   - *ImportService: service ready for use.
func NewImportService(recipes *repository.RecipeRepository, uploader *RecipeService, cfg *ImportConfig) *ImportService {
	return &ImportService{
		recipes:   recipes,
		uploader:  uploader,
		workers:   max(cfg.Workers, 1),
		batchSize: max(cfg.BatchSize, 1),
	}
}

// ImportStats holds statistics for an import run.
type ImportStats struct {
	TotalItems     int64     `json:"total_items"`
	ProcessedItems int64     `json:"processed_items"`
	ImportedItems  int64     `json:"imported_items"`
	SkippedItems   int64     `json:"skipped_items"`
	FailedItems    int64     `json:"failed_items"`
	StartTime      time.Time `json:"start_time"`
	EndTime        time.Time `json:"end_time"`
}

// ImportOptions holds options for an import run.
type ImportOptions struct {
	OwnerID uint // Account that will own the imported recipes
	Limit   int  // Maximum items to fetch; <= 0 means all
	Force   bool // Import even if the owner already has a recipe with the same title
}

type importResult struct {
	sourceID string
	skipped  bool
	err      error
}

var errSkipDuplicate = errors.New("skipped: duplicate title")

// ImportFromSource imports recipes from src.
// Parameters:
//   - ctx: cancels fetching and stops workers between items.
//   - src: recipe source.
//   - opts: owner, limit and duplicate handling.
// Returns:
//   - *ImportStats: counts for the run.
//   - error: non-nil if opts has no owner.
func (s *ImportService) ImportFromSource(ctx context.Context, src source.Source, opts ImportOptions) (*ImportStats, error) {
	if opts.OwnerID == 0 {
		return nil, fmt.Errorf("%w: import owner is required", domain.ErrInvalidInput)
	}

	stats := &ImportStats{StartTime: time.Now()}
	log := logger.With(logger.Fields{"source": src.GetSourceID()})
	log.Info(ctx, "Starting import: limit=%d force=%v workers=%d", opts.Limit, opts.Force, s.workers)

	itemsChan := make(chan source.RecipeItem, s.workers*2)
	resultsChan := make(chan *importResult, s.workers*2)

	var wg sync.WaitGroup
	for i := 0; i < s.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.worker(ctx, itemsChan, resultsChan, opts)
		}()
	}

	done := make(chan struct{})
	go func() {
		for result := range resultsChan {
			atomic.AddInt64(&stats.ProcessedItems, 1)
			switch {
			case result.skipped:
				atomic.AddInt64(&stats.SkippedItems, 1)
				metrics.ImportedRecipesTotal.WithLabelValues("skipped").Inc()
			case result.err != nil:
				atomic.AddInt64(&stats.FailedItems, 1)
				metrics.ImportedRecipesTotal.WithLabelValues("failed").Inc()
				log.With(logger.Fields{logger.FieldImportID: result.sourceID}).
					Error(ctx, "Failed to import item: %v", result.err)
			default:
				atomic.AddInt64(&stats.ImportedItems, 1)
				metrics.ImportedRecipesTotal.WithLabelValues("imported").Inc()
			}
		}
		close(done)
	}()

	cursor := ""
	totalFetched := 0
fetch:
	for ctx.Err() == nil {
		batchLimit := s.batchSize
		if opts.Limit > 0 {
			remaining := opts.Limit - totalFetched
			if remaining <= 0 {
				break
			}
			batchLimit = min(batchLimit, remaining)
		}

		items, nextCursor, err := src.FetchBatch(ctx, cursor, batchLimit)
		if err != nil {
			log.Error(ctx, "Failed to fetch batch: %v", err)
			break
		}
		if len(items) == 0 {
			break
		}

		atomic.AddInt64(&stats.TotalItems, int64(len(items)))
		totalFetched += len(items)

		for _, item := range items {
			select {
			case itemsChan <- item:
			case <-ctx.Done():
				break fetch
			}
		}

		if nextCursor == "" {
			break
		}
		cursor = nextCursor
	}

	close(itemsChan)
	wg.Wait()
	close(resultsChan)
	<-done

	stats.EndTime = time.Now()
	log.With(logger.Fields{
		"total":    stats.TotalItems,
		"imported": stats.ImportedItems,
		"skipped":  stats.SkippedItems,
		"failed":   stats.FailedItems,
	}).WithDuration(stats.EndTime.Sub(stats.StartTime)).Info(ctx, "Import completed")

	return stats, nil
}

func (s *ImportService) worker(ctx context.Context, items <-chan source.RecipeItem, results chan<- *importResult, opts ImportOptions) {
	for item := range items {
		if ctx.Err() != nil {
			return
		}

		result := &importResult{sourceID: item.SourceID}
		if err := s.importItem(ctx, &item, opts); err != nil {
			if errors.Is(err, errSkipDuplicate) {
				result.skipped = true
			} else {
				result.err = err
			}
		}
		results <- result
	}
}

func (s *ImportService) importItem(ctx context.Context, item *source.RecipeItem, opts ImportOptions) error {
	if !opts.Force {
		exists, err := s.recipes.ExistsByTitleAndOwner(ctx, item.Title, opts.OwnerID)
		if err != nil {
			return fmt.Errorf("failed to check duplicate: %w", err)
		}
		if exists {
			return errSkipDuplicate
		}
	}

	video, closeVideo, err := openUpload(item.VideoPath)
	if err != nil {
		return err
	}
	defer closeVideo()

	in := RecipeInput{
		Title:        item.Title,
		Description:  item.Description,
		Ingredients:  item.Ingredients,
		Instructions: item.Instructions,
		Category:     item.Category,
		CookingTime:  item.CookingTime,
		Video:        video,
	}
	if item.ThumbnailPath != "" {
		thumb, closeThumb, err := openUpload(item.ThumbnailPath)
		if err != nil {
			return err
		}
		defer closeThumb()
		in.Thumbnail = thumb
	}

	_, err = s.uploader.Upload(ctx, opts.OwnerID, in)
	return err
}

func openUpload(path string) (*storage.Upload, func(), error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	up := &storage.Upload{Filename: info.Name(), Size: info.Size(), Body: f}
	return up, func() { f.Close() }, nil
}

package provider

import (
	"context"
	"fmt"
	"html"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/timmy/recipeclip/internal/config"
	"github.com/timmy/recipeclip/internal/domain"
)

const youtubeProvider = "youtube"

// VideoQuery describes one external video search. Category narrows the
// results unless it is empty or domain.CategoryAll.
type VideoQuery struct {
	Term     string
	Category string
	Limit    int
}

// Text composes the provider query: term, category and the topic keyword,
// joined by single spaces with blank parts dropped.
func (q VideoQuery) Text(topic string) string {
	parts := make([]string, 0, 3)
	if t := strings.TrimSpace(q.Term); t != "" {
		parts = append(parts, t)
	}
	if c := strings.TrimSpace(q.Category); c != "" && c != domain.CategoryAll {
		parts = append(parts, c)
	}
	if topic != "" {
		parts = append(parts, topic)
	}
	return strings.Join(parts, " ")
}

// YouTubeClient searches videos through the YouTube Data API v3.
type YouTubeClient struct {
	client *resty.Client
	apiKey string
	topic  string
	guard  *guard[[]domain.ExternalVideo]
}

// NewYouTubeClient creates the video search client.
// Parameters:
//   - cfg: API key, base URL, timeout and protection settings. An empty key disables searches.
// Returns:
//   - *YouTubeClient: client ready for SearchVideos.
func NewYouTubeClient(cfg config.VideoSearchConfig) *YouTubeClient {
	return &YouTubeClient{
		client: newHTTPClient(strings.TrimSuffix(cfg.BaseURL, "/"), cfg.Timeout),
		apiKey: cfg.APIKey,
		topic:  cfg.TopicKeyword,
		guard:  newGuard[[]domain.ExternalVideo](youtubeProvider, cfg.Timeout, cfg.Breaker, cfg.RateLimit),
	}
}

type youtubeSearchResponse struct {
	Items []struct {
		ID struct {
			VideoID string `json:"videoId"`
		} `json:"id"`
		Snippet struct {
			Title        string `json:"title"`
			ChannelTitle string `json:"channelTitle"`
			Thumbnails   map[string]struct {
				URL string `json:"url"`
			} `json:"thumbnails"`
		} `json:"snippet"`
	} `json:"items"`
}

type youtubeVideosResponse struct {
	Items []struct {
		ID             string `json:"id"`
		ContentDetails struct {
			Duration string `json:"duration"`
		} `json:"contentDetails"`
	} `json:"items"`
}

// SearchVideos returns up to q.Limit videos for the composed query.
// Any failure yields an empty Result with a non-ok Status.
func (c *YouTubeClient) SearchVideos(ctx context.Context, q VideoQuery) Result[domain.ExternalVideo] {
	if c.apiKey == "" {
		return observe(ctx, degraded[domain.ExternalVideo](youtubeProvider, StatusDisabled, "no API key configured", 0))
	}
	if q.Limit <= 0 {
		return observe(ctx, degraded[domain.ExternalVideo](youtubeProvider, StatusEmpty, "non-positive limit", 0))
	}

	text := q.Text(c.topic)
	videos, status, reason, elapsed := c.guard.do(ctx, func(ctx context.Context) ([]domain.ExternalVideo, error) {
		return c.search(ctx, text, q.Limit)
	})
	if status != StatusOK {
		return observe(ctx, degraded[domain.ExternalVideo](youtubeProvider, status, reason, elapsed))
	}
	return observe(ctx, succeeded(youtubeProvider, videos, elapsed))
}

func (c *YouTubeClient) search(ctx context.Context, text string, limit int) ([]domain.ExternalVideo, error) {
	var body youtubeSearchResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"part":       "snippet",
			"type":       "video",
			"q":          text,
			"maxResults": strconv.Itoa(limit),
			"key":        c.apiKey,
		}).
		SetResult(&body).
		Get("/search")
	if err != nil {
		return nil, fmt.Errorf("youtube search: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("youtube search: status %d", resp.StatusCode())
	}

	videos := make([]domain.ExternalVideo, 0, len(body.Items))
	ids := make([]string, 0, len(body.Items))
	for _, item := range body.Items {
		if item.ID.VideoID == "" {
			continue
		}
		videos = append(videos, domain.ExternalVideo{
			ID:        item.ID.VideoID,
			Title:     html.UnescapeString(item.Snippet.Title),
			URL:       "https://www.youtube.com/watch?v=" + item.ID.VideoID,
			Thumbnail: pickThumbnail(item.Snippet.Thumbnails),
			Channel:   html.UnescapeString(item.Snippet.ChannelTitle),
		})
		ids = append(ids, item.ID.VideoID)
		if len(videos) == limit {
			break
		}
	}

	if len(ids) > 0 {
		c.fillDurations(ctx, videos, ids)
	}
	return videos, nil
}

// fillDurations looks up video lengths. Failures leave durations blank.
func (c *YouTubeClient) fillDurations(ctx context.Context, videos []domain.ExternalVideo, ids []string) {
	var body youtubeVideosResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"part": "contentDetails",
			"id":   strings.Join(ids, ","),
			"key":  c.apiKey,
		}).
		SetResult(&body).
		Get("/videos")
	if err != nil || resp.IsError() {
		return
	}

	durations := make(map[string]string, len(body.Items))
	for _, item := range body.Items {
		durations[item.ID] = formatDuration(item.ContentDetails.Duration)
	}
	for i := range videos {
		videos[i].Duration = durations[videos[i].ID]
	}
}

func pickThumbnail(thumbs map[string]struct {
	URL string `json:"url"`
}) string {
	for _, size := range []string{"high", "medium", "default"} {
		if t, ok := thumbs[size]; ok && t.URL != "" {
			return t.URL
		}
	}
	return ""
}

var isoDuration = regexp.MustCompile(`^P(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?)?$`)

// formatDuration turns an ISO-8601 duration such as PT1H2M3S into 1:02:03.
func formatDuration(iso string) string {
	m := isoDuration.FindStringSubmatch(iso)
	if m == nil {
		return ""
	}
	n := func(s string) int {
		v, _ := strconv.Atoi(s)
		return v
	}
	hours := n(m[1])*24 + n(m[2])
	minutes, seconds := n(m[3]), n(m[4])
	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%d:%02d", minutes, seconds)
}

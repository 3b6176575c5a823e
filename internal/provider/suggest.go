package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/timmy/recipeclip/internal/config"
)

const suggestProvider = "suggestqueries"

// SuggestClient fetches query completions from the suggestqueries endpoint.
// The response is a JSON array whose second element lists the completions.
type SuggestClient struct {
	client     *resty.Client
	endpoint   string
	enabled    bool
	maxResults int
	guard      *guard[[]string]
}

// NewSuggestClient creates the autocomplete client.
func NewSuggestClient(cfg config.AutocompleteConfig) *SuggestClient {
	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 4
	}
	return &SuggestClient{
		client:     newHTTPClient("", cfg.Timeout),
		endpoint:   cfg.BaseURL,
		enabled:    cfg.Enabled,
		maxResults: maxResults,
		guard:      newGuard[[]string](suggestProvider, cfg.Timeout, cfg.Breaker, cfg.RateLimit),
	}
}

// Autocomplete returns at most the first maxResults completions for term.
// Any failure yields an empty Result with a non-ok Status.
func (c *SuggestClient) Autocomplete(ctx context.Context, term string) Result[string] {
	if !c.enabled {
		return observe(ctx, degraded[string](suggestProvider, StatusDisabled, "autocomplete disabled", 0))
	}
	term = strings.TrimSpace(term)
	if term == "" {
		return observe(ctx, degraded[string](suggestProvider, StatusEmpty, "empty term", 0))
	}

	suggestions, status, reason, elapsed := c.guard.do(ctx, func(ctx context.Context) ([]string, error) {
		return c.fetch(ctx, term)
	})
	if status != StatusOK {
		return observe(ctx, degraded[string](suggestProvider, status, reason, elapsed))
	}
	return observe(ctx, succeeded(suggestProvider, suggestions, elapsed))
}

func (c *SuggestClient) fetch(ctx context.Context, term string) ([]string, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"client": "firefox",
			"ds":     "yt",
			"q":      term,
		}).
		Get(c.endpoint)
	if err != nil {
		return nil, fmt.Errorf("suggest request: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("suggest request: status %d", resp.StatusCode())
	}
	return parseSuggestions(resp.Body(), c.maxResults)
}

// parseSuggestions extracts element 1 of a ["query", ["s1", "s2", ...], ...] payload.
func parseSuggestions(body []byte, limit int) ([]string, error) {
	var payload []json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("malformed suggest payload: %w", err)
	}
	if len(payload) < 2 {
		return nil, fmt.Errorf("malformed suggest payload: %d elements", len(payload))
	}
	var suggestions []string
	if err := json.Unmarshal(payload[1], &suggestions); err != nil {
		return nil, fmt.Errorf("malformed suggest payload: %w", err)
	}
	if len(suggestions) > limit {
		suggestions = suggestions[:limit]
	}
	return suggestions, nil
}

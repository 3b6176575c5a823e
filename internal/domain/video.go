package domain

// ExternalVideo is a video returned by the external search provider.
// It is display-only and never persisted.
type ExternalVideo struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	URL       string `json:"url"`
	Thumbnail string `json:"thumbnail"`
	Duration  string `json:"duration,omitempty"`
	Channel   string `json:"channel,omitempty"`
}

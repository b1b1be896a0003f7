package models

// Video is a single preview candidate returned by the video search provider.
type Video struct {
	VideoID      string `json:"videoId"`
	Title        string `json:"title"`
	ChannelTitle string `json:"channelTitle"`
	ThumbnailURL string `json:"thumbnailUrl"`
	PublishedAt  string `json:"publishedAt"`
}

// VideoSearchResult is the payload for a preview lookup. A degraded lookup
// carries an Error message alongside an empty Videos list; it is never a
// transport failure from the caller's point of view.
type VideoSearchResult struct {
	Videos []Video `json:"videos"`
	Error  string  `json:"error,omitempty"`
}

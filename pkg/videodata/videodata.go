// Package videodata resolves display metadata (title, author, thumbnail) for
// a video hosted by the external video provider. The party core treats the
// video as an opaque reference; this lookup exists purely so chat and player
// surfaces can show something human-readable.
package videodata

import (
	"errors"
	"fmt"
)

type VideoData struct {
	Title        string `json:"title"`
	AuthorName   string `json:"author_name"`
	ThumbnailUrl string `json:"thumbnail_url"`
}

// Get resolves metadata for a video id, preferring the provider's oEmbed
// endpoint and falling back to scraping the watch page for videos that
// disabled embedding.
func Get(videoId string) (*VideoData, error) {
	videoData, err := getVideoWithEmbed(videoId)
	if err != nil {
		if !errors.Is(err, ErrVideoNotEmbeddable) {
			return nil, fmt.Errorf("failed to get video data with embed: %w", err)
		}

		videoData, err = getFromPage(videoId)
		if err != nil {
			return nil, fmt.Errorf("failed to get video data from page: %w", err)
		}
	}

	return videoData, nil
}

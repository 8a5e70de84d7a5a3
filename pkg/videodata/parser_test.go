package videodata

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
)

const watchPage = `<!DOCTYPE html>
<html>
<head>
<title>Never Gonna Give You Up</title>
<link itemprop="name" content="Rick Astley">
</head>
<body></body>
</html>`

func TestParseWatchPage(t *testing.T) {
	doc, err := html.Parse(strings.NewReader(watchPage))
	require.NoError(t, err)

	videoData := parseWatchPage(doc, "dQw4w9WgXcQ")
	assert.Equal(t, "Never Gonna Give You Up", videoData.Title)
	assert.Equal(t, "Rick Astley", videoData.AuthorName)
	assert.Equal(t, "https://i.ytimg.com/vi/dQw4w9WgXcQ/hqdefault.jpg", videoData.ThumbnailUrl)
}

func TestParseWatchPageMissingMetadata(t *testing.T) {
	doc, err := html.Parse(strings.NewReader("<html><head></head><body></body></html>"))
	require.NoError(t, err)

	videoData := parseWatchPage(doc, "abc")
	assert.Empty(t, videoData.Title)
	assert.Empty(t, videoData.AuthorName)
}

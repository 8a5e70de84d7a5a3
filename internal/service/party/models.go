package party

// PlayerState is a player's coarse playback status, shared and local alike.
type PlayerState string

const (
	PlayerStatePlaying   PlayerState = "PLAYING"
	PlayerStatePaused    PlayerState = "PAUSED"
	PlayerStateBuffering PlayerState = "BUFFERING"
)

// VideoPlayerState is the shape both of a user's self-reported local state
// and of the party-wide authoritative state all clients converge to.
type VideoPlayerState struct {
	PlayerState              PlayerState `json:"playerState"`
	TimeInVideo              float64     `json:"timeInVideo"`
	LastStateChangeInitiator string      `json:"lastStateChangeInitiator"`
}

// Video is the party's selected video reference plus display metadata
// resolved from the external video provider.
type Video struct {
	Id           string `json:"id"`
	Title        string `json:"title"`
	AuthorName   string `json:"authorName"`
	ThumbnailUrl string `json:"thumbnailUrl"`
}

type Member struct {
	Id       string `json:"id"`
	Username string `json:"userName"`
}

const (
	MessageTypeSystem = "system"
	MessageTypeChat   = "chat"
)

type Message struct {
	Type      string `json:"type"`
	PartyId   string `json:"partyId"`
	Username  string `json:"userName"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
}

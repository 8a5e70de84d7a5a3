package party

// User is a connected client's record: identity, party membership, and the
// last player state it reported for itself.
type User struct {
	Username                 string  `redis:"username"`
	PartyId                  string  `redis:"party_id"`
	PlayerState              string  `redis:"player_state"`
	TimeInVideo              float64 `redis:"time_in_video"`
	LastStateChangeInitiator string  `redis:"last_state_change_initiator"`
}

// Party is the authoritative room record. A party record exists only once a
// video has been selected for it.
type Party struct {
	VideoId                  string  `redis:"video_id"`
	VideoTitle               string  `redis:"video_title"`
	VideoAuthorName          string  `redis:"video_author_name"`
	VideoThumbnailUrl        string  `redis:"video_thumbnail_url"`
	PlayerState              string  `redis:"player_state"`
	TimeInVideo              float64 `redis:"time_in_video"`
	LastStateChangeInitiator string  `redis:"last_state_change_initiator"`
	WaitingForReady          bool    `redis:"waiting_for_ready"`
	ControllerId             string  `redis:"controller_id"`
}

// Message is immutable once appended to the party's log.
type Message struct {
	Type      string `json:"type"`
	PartyId   string `json:"partyId"`
	Username  string `json:"userName"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
}

package party

import (
	"context"
	"fmt"

	"github.com/gorilla/websocket"

	"github.com/couchparty/server/internal/repository/party"
)

type SelectVideoParams struct {
	ConnectionId string
	PartyId      string
	Video        Video
}

type SelectVideoResponse struct {
	SelectedVideo Video
	Conns         []*websocket.Conn
}

// SelectVideo sets the party's selected video, creating the party record if
// this is its first video. Selecting a video is what brings a party into
// existence; until then joins are answered with the inactive signal. The
// shared player state resets to paused at the start with the selector as
// initiator and controller.
func (s *service) SelectVideo(ctx context.Context, params *SelectVideoParams) (SelectVideoResponse, error) {
	unlock := s.lockParty(params.PartyId)
	defer unlock()

	if _, err := s.createUser(ctx, params.ConnectionId, ""); err != nil {
		return SelectVideoResponse{}, err
	}

	if err := s.partyRepo.SetParty(ctx, &party.SetPartyParams{
		PartyId:                  params.PartyId,
		VideoId:                  params.Video.Id,
		VideoTitle:               params.Video.Title,
		VideoAuthorName:          params.Video.AuthorName,
		VideoThumbnailUrl:        params.Video.ThumbnailUrl,
		PlayerState:              string(PlayerStatePaused),
		TimeInVideo:              0,
		LastStateChangeInitiator: params.ConnectionId,
		ControllerId:             params.ConnectionId,
	}); err != nil {
		return SelectVideoResponse{}, fmt.Errorf("failed to set party: %w", err)
	}

	s.logger.InfoContext(ctx, "video selected for party",
		"party_id", params.PartyId,
		"video_id", params.Video.Id,
		"selected_by", params.ConnectionId,
	)

	conns, err := s.getConnsByPartyId(ctx, params.PartyId)
	if err != nil {
		return SelectVideoResponse{}, fmt.Errorf("failed to get conns by party id: %w", err)
	}

	return SelectVideoResponse{
		SelectedVideo: params.Video,
		Conns:         conns,
	}, nil
}

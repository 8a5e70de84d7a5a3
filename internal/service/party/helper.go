package party

import (
	"context"
	"math"

	"github.com/gorilla/websocket"

	"github.com/couchparty/server/internal/repository/party"
)

// normalizeTime truncates a playback position to one decimal place of a
// second. Sub-decisecond jitter between reports must never count as a state
// change, or every report would trigger a broadcast.
func normalizeTime(timeInVideo float64) float64 {
	return math.Round(timeInVideo*10) / 10
}

func (s *service) getMembers(ctx context.Context, partyId string) ([]Member, error) {
	memberIds, err := s.partyRepo.GetMemberIds(ctx, partyId)
	if err != nil {
		return nil, err
	}

	members := make([]Member, 0, len(memberIds))
	for _, memberId := range memberIds {
		user, err := s.partyRepo.GetUser(ctx, memberId)
		if err != nil {
			return nil, err
		}

		members = append(members, Member{
			Id:       memberId,
			Username: user.Username,
		})
	}

	return members, nil
}

// getConnsByPartyId returns the live connections of the party's members.
// Members without a live connection are skipped rather than failing the
// whole broadcast.
func (s *service) getConnsByPartyId(ctx context.Context, partyId string) ([]*websocket.Conn, error) {
	memberIds, err := s.partyRepo.GetMemberIds(ctx, partyId)
	if err != nil {
		return nil, err
	}

	conns := make([]*websocket.Conn, 0, len(memberIds))
	for _, memberId := range memberIds {
		conn, err := s.connRepo.GetConn(memberId)
		if err != nil {
			s.logger.DebugContext(ctx, "member has no live connection", "member_id", memberId)
			continue
		}

		conns = append(conns, conn)
	}

	return conns, nil
}

func (s *service) getMessages(ctx context.Context, partyId string) ([]Message, error) {
	repoMessages, err := s.partyRepo.GetMessages(ctx, partyId)
	if err != nil {
		return nil, err
	}

	messages := make([]Message, 0, len(repoMessages))
	for _, m := range repoMessages {
		messages = append(messages, Message{
			Type:      m.Type,
			PartyId:   m.PartyId,
			Username:  m.Username,
			Text:      m.Text,
			Timestamp: m.Timestamp,
		})
	}

	return messages, nil
}

func sharedPlayerStateOf(p party.Party) VideoPlayerState {
	return VideoPlayerState{
		PlayerState:              PlayerState(p.PlayerState),
		TimeInVideo:              p.TimeInVideo,
		LastStateChangeInitiator: p.LastStateChangeInitiator,
	}
}

func selectedVideoOf(p party.Party) Video {
	return Video{
		Id:           p.VideoId,
		Title:        p.VideoTitle,
		AuthorName:   p.VideoAuthorName,
		ThumbnailUrl: p.VideoThumbnailUrl,
	}
}

package controller

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/couchparty/server/internal/service/party"
	"github.com/couchparty/server/pkg/validator"
)

var ErrValidationError = errors.New("validation error")

type iPartyService interface {
	ConnectClient(context.Context, *party.ConnectClientParams) error
	DisconnectClient(context.Context, *websocket.Conn) error
	ConnectToParty(context.Context, *party.ConnectToPartyParams) (party.ConnectToPartyResponse, error)
	DisconnectFromParty(context.Context, *party.DisconnectFromPartyParams) (party.DisconnectFromPartyResponse, error)
	SetVideoPlayerState(context.Context, *party.SetVideoPlayerStateParams) (party.SetVideoPlayerStateResponse, error)
	SelectVideo(context.Context, *party.SelectVideoParams) (party.SelectVideoResponse, error)
	SendMessageToParty(context.Context, *party.SendMessageToPartyParams) (party.SendMessageToPartyResponse, error)
	RemoveUser(context.Context, *party.RemoveUserParams) error
}

type controller struct {
	partyService iPartyService
	upgrader     websocket.Upgrader
	validate     *validator.Validator
	logger       *slog.Logger
}

func NewController(partyService iPartyService, logger *slog.Logger) *controller {
	return &controller{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		partyService: partyService,
		validate:     validator.NewValidator(),
		logger:       logger,
	}
}

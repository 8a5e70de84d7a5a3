package party

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/couchparty/server/internal/repository/party"
)

var (
	ErrPartyNotFound = errors.New("party not found")
	ErrUserNotFound  = errors.New("user not found")
)

type iPartyRepo interface {
	// user registry
	SetUser(context.Context, *party.SetUserParams) error
	IsUserExists(context.Context, string) (bool, error)
	GetUser(context.Context, string) (party.User, error)
	UpdateUserUsername(context.Context, *party.UpdateUserUsernameParams) error
	UpdateUserPartyId(context.Context, *party.UpdateUserPartyIdParams) error
	UpdateUserPlayerState(context.Context, *party.UpdateUserPlayerStateParams) error
	RemoveUser(context.Context, string) error
	// party registry
	SetParty(context.Context, *party.SetPartyParams) error
	IsPartyExists(context.Context, string) (bool, error)
	GetParty(context.Context, string) (party.Party, error)
	UpdatePartyPlayerState(context.Context, *party.UpdatePartyPlayerStateParams) error
	UpdatePartyWaitingForReady(context.Context, *party.UpdatePartyWaitingForReadyParams) error
	RemoveParty(context.Context, string) error
	// membership
	AddMemberToList(context.Context, *party.AddMemberToListParams) error
	RemoveMemberFromList(context.Context, *party.RemoveMemberFromListParams) error
	GetMemberIds(context.Context, string) ([]string, error)
	// messages
	AppendMessage(context.Context, *party.AppendMessageParams) error
	GetMessages(context.Context, string) ([]party.Message, error)
}

type iConnRepo interface {
	Add(*websocket.Conn, string) error
	RemoveByConn(*websocket.Conn) error
	RemoveByConnectionId(string) error
	GetConn(string) (*websocket.Conn, error)
	GetConnectionId(*websocket.Conn) (string, error)
}

type service struct {
	partyRepo iPartyRepo
	connRepo  iConnRepo
	logger    *slog.Logger

	// partyLocks serializes every mutation of a given party and its
	// members' local states. Cross-party operations never occur, so one
	// lock per party id is sufficient.
	partyLocksMu sync.Mutex
	partyLocks   map[string]*sync.Mutex
}

func NewService(partyRepo iPartyRepo, connRepo iConnRepo, logger *slog.Logger) *service {
	return &service{
		partyRepo:  partyRepo,
		connRepo:   connRepo,
		logger:     logger,
		partyLocks: make(map[string]*sync.Mutex),
	}
}

func (s *service) lockParty(partyId string) func() {
	s.partyLocksMu.Lock()
	lock, ok := s.partyLocks[partyId]
	if !ok {
		lock = &sync.Mutex{}
		s.partyLocks[partyId] = lock
	}
	s.partyLocksMu.Unlock()

	lock.Lock()
	return lock.Unlock
}

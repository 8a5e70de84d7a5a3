package party

import (
	"context"

	"github.com/gorilla/websocket"
)

type ConnectClientParams struct {
	Conn         *websocket.Conn
	ConnectionId string
}

func (s *service) ConnectClient(ctx context.Context, params *ConnectClientParams) error {
	return s.connRepo.Add(params.Conn, params.ConnectionId)
}

func (s *service) DisconnectClient(ctx context.Context, conn *websocket.Conn) error {
	return s.connRepo.RemoveByConn(conn)
}

//go:build unix

// File: server/handler.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import (
	"log"

	"github.com/momentics/clink/internal/session"
	"github.com/momentics/clink/transport"
)

// ClientHandler binds one accepted connection to the server.
type ClientHandler struct {
	srv  *TCPServer
	conn *session.Connector
	info string
}

func newClientHandler(srv *TCPServer, ch *transport.SocketChannel) (*ClientHandler, error) {
	h := &ClientHandler{srv: srv, info: ch.String()}
	if addr := ch.RemoteAddr(); addr != nil {
		h.info = addr.String()
	}
	conn, err := session.NewConnector(ch, srv.provider, srv.pool, h)
	if err != nil {
		return nil, err
	}
	h.conn = conn
	return h, nil
}

// OnMessage forwards msg to the other clients.
func (h *ClientHandler) OnMessage(c *session.Connector, msg string) {
	h.srv.forward(c, msg)
}

// OnClosed drops the client from the server.
func (h *ClientHandler) OnClosed(c *session.Connector) {
	h.srv.remove(c)
	log.Printf("[server] client disconnected: %s (%s)", h.info, c.ID())
}

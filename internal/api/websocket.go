package api

import (
	"context"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

const wsWriteTimeout = 5 * time.Second

type snapshotMessage struct {
	Type string `json:"type"`
	topicsResponse
}

// handleWebSocket sends the snapshot on connect and again after every
// store change. Bursts of changes are coalesced into one message.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket accept failed", "error", err)
		return
	}
	defer conn.CloseNow()

	changes, unsubscribe := s.store.Subscribe()
	defer unsubscribe()

	// Clients only listen; CloseRead handles their control frames.
	ctx := conn.CloseRead(r.Context())

	if err := s.push(ctx, conn); err != nil {
		return
	}
	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case <-changes:
			if err := s.push(ctx, conn); err != nil {
				s.logger.Debug("websocket push failed", "error", err)
				return
			}
		}
	}
}

func (s *Server) push(ctx context.Context, conn *websocket.Conn) error {
	ctx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, snapshotMessage{Type: "snapshot", topicsResponse: s.snapshot()})
}

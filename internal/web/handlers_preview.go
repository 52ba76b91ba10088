package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/folio-press/folio/internal/content"
	"github.com/folio-press/folio/internal/eventbus"
)

const heartbeatInterval = 30 * time.Second

// wsConn serializes writes; the hub broadcasts from bus goroutines while
// the read loop answers requests on the same socket.
type wsConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *wsConn) WriteJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

// handlePreviewWS upgrades an HTTP request to a WebSocket connection and
// registers the client with the hub. Besides the hub protocol (subscribe,
// unsubscribe, ping) clients send render messages; the result reaches every
// subscriber of the document as a rendered event.
func (s *Server) handlePreviewWS(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeAPIError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
		return
	}
	if !s.authorizeRequest(r) {
		writeAPIError(w, http.StatusUnauthorized, "UNAUTHORIZED", "unauthorized")
		return
	}

	raw, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer raw.Close()
	conn := &wsConn{conn: raw}

	clientID := s.eventHub.RegisterClient(conn)
	webLog.Info("preview_client_connected", slog.String("client_id", clientID))
	defer func() {
		s.eventHub.UnregisterClient(clientID)
		webLog.Info("preview_client_disconnected", slog.String("client_id", clientID))
	}()

	_ = conn.WriteJSON(eventbus.ServerMessage{Type: "connected"})

	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(heartbeatInterval)
		defer ticker.Stop()
		for {
			select {
			case <-s.baseCtx.Done():
				return
			case <-done:
				return
			case <-ticker.C:
				if err := conn.WriteJSON(eventbus.ServerMessage{Type: "heartbeat"}); err != nil {
					return
				}
			}
		}
	}()

	for {
		_, payload, err := raw.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(
				err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				webLog.Warn("preview_ws_closed_unexpectedly",
					slog.String("client_id", clientID),
					slog.String("error", err.Error()))
			}
			return
		}

		if err := s.handlePreviewMessage(clientID, payload); err != nil {
			webLog.Debug("preview_message_error",
				slog.String("client_id", clientID),
				slog.String("error", err.Error()))
			_ = conn.WriteJSON(eventbus.ServerMessage{
				Type:  "error",
				Error: err.Error(),
			})
		}
	}
}

var errDocumentRequired = errors.New("render requires documentId")

func (s *Server) handlePreviewMessage(clientID string, payload []byte) error {
	msg, err := eventbus.ParseClientMessage(json.RawMessage(payload))
	if err != nil {
		return err
	}
	if msg.Type != "render" {
		return s.eventHub.Handle(clientID, msg)
	}

	if msg.DocumentID == "" {
		return errDocumentRequired
	}
	f, err := content.ParseFormat(msg.Format)
	if err != nil {
		return err
	}
	gen := s.display(msg.DocumentID).Update(s.baseCtx, msg.Content, f)
	return s.eventHub.Send(clientID, &eventbus.ServerMessage{
		Type:       "accepted",
		DocumentID: msg.DocumentID,
		Data:       map[string]uint64{"generation": gen},
	})
}

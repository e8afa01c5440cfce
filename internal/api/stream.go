package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/terra-clan/compete-engine/internal/explore"
	"github.com/terra-clan/compete-engine/internal/models"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Stream message types
const (
	msgConnected = "connected"
	msgFilter    = "filter"
	msgView      = "view"
	msgError     = "error"
)

// StreamMessage is exchanged over /api/v1/stream. Clients send "filter" messages;
// the server answers with "view" messages and re-sends the current view on every refresh.
type StreamMessage struct {
	Type         string             `json:"type"`
	Data         string             `json:"data,omitempty"`
	Filter       *models.FilterSpec `json:"filter,omitempty"`
	Competitions []explore.View     `json:"competitions"`
	Total        int                `json:"total"`
	At           *time.Time         `json:"at,omitempty"`
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("failed to upgrade to websocket", "error", err)
		return
	}
	defer conn.Close()

	streamClients.Inc()
	defer streamClients.Dec()

	slog.Info("stream websocket connected", "remote_addr", r.RemoteAddr)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	specs := make(chan models.FilterSpec, 1)

	// Read from WebSocket -> latest filter spec
	go func() {
		defer cancel()
		for {
			_, message, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					slog.Debug("websocket read error", "error", err)
				}
				return
			}

			var msg StreamMessage
			if err := json.Unmarshal(message, &msg); err != nil || msg.Type != msgFilter {
				slog.Debug("ignoring stream message", "error", err, "type", msg.Type)
				continue
			}

			spec := models.DefaultFilterSpec()
			if msg.Filter != nil {
				spec = msg.Filter.Clone()
			}

			// keep only the newest spec if the writer is behind
			select {
			case <-specs:
			default:
			}
			select {
			case specs <- spec:
			case <-ctx.Done():
				return
			}
		}
	}()

	if err := s.sendStreamMessage(conn, StreamMessage{Type: msgConnected, Data: "stream connected"}); err != nil {
		return
	}

	current := models.DefaultFilterSpec()
	if err := s.pushView(ctx, conn, current); err != nil {
		return
	}

	ticker := time.NewTicker(s.streamRefresh)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("stream websocket disconnected", "remote_addr", r.RemoteAddr)
			return
		case spec := <-specs:
			current = spec
		case <-ticker.C:
		}

		if err := s.pushView(ctx, conn, current); err != nil {
			return
		}
	}
}

// pushView sends the current filter result; a rejected filter yields an error message
// and keeps the connection open
func (s *Server) pushView(ctx context.Context, conn *websocket.Conn, spec models.FilterSpec) error {
	now := s.clock.Now()

	views, err := s.explorer.Views(ctx, spec, now)
	if err != nil {
		if !errors.Is(err, explore.ErrUnknownQuickFilter) {
			slog.Error("failed to compute stream view", "error", err)
		}
		return s.sendStreamMessage(conn, StreamMessage{Type: msgError, Data: err.Error()})
	}

	filterMatches.Observe(float64(len(views)))
	return s.sendStreamMessage(conn, StreamMessage{
		Type:         msgView,
		Filter:       &spec,
		Competitions: views,
		Total:        len(views),
		At:           &now,
	})
}

func (s *Server) sendStreamMessage(conn *websocket.Conn, msg StreamMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("failed to marshal stream message", "error", err)
		return err
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		slog.Debug("failed to send stream message", "error", err)
		return err
	}
	return nil
}

package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/coder/websocket"

	"github.com/vinhpn/boardroom/internal/chess"
	"github.com/vinhpn/boardroom/internal/middleware"
	"github.com/vinhpn/boardroom/internal/room"
)

// chessCommand is one client-to-server message on a chess room socket.
type chessCommand struct {
	Type      string `json:"type"`
	From      string `json:"from,omitempty"`
	To        string `json:"to,omitempty"`
	Promotion string `json:"promotion,omitempty"`
}

// ChessWSHandler runs one chess room session; see GomokuWSHandler for the
// session shape. Joining the second seat starts the game, so a successful
// join here may already carry a PLAYING snapshot.
func (s *Server) ChessWSHandler(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	remoteAddr := r.RemoteAddr

	uid, err := EnsureGuest(w, r)
	if err != nil {
		http.Error(w, "could not establish guest identity", http.StatusInternalServerError)
		return
	}

	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		Subprotocols:   []string{roomSubprotocol},
		OriginPatterns: []string{"*"}, // Adjust in production
	})
	if err != nil {
		s.Log.Warnf("websocket accept error: %v", err)
		return
	}
	defer c.Close(websocket.StatusInternalError, "handler finished")

	if c.Subprotocol() != roomSubprotocol {
		c.Close(BadSubprotocolError, "client must speak the room subprotocol")
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	events, push := newSender(s.Log)
	go writePump(ctx, c, events)

	seat, _, err := s.Chess.Join(ctx, code, uid.String(), r.URL.Query().Get("name"))
	switch {
	case errors.Is(err, room.ErrNotFound):
		c.Close(InvalidRoomCodeError, "room does not exist")
		return
	case errors.Is(err, room.ErrFull):
		push(wsEvent{Type: "spectator"})
	case err != nil:
		s.Log.Errorf("join chess room %s: %v", code, err)
		c.Close(websocket.StatusInternalError, "join failed")
		return
	default:
		push(wsEvent{Type: "joined", Seat: string(seat)})
	}
	s.Log.Infof("guest %v (%s) connected to chess room %s", uid, remoteAddr, code)

	unsub, err := s.Chess.Subscribe(code, func(snap *chess.Room) {
		if snap == nil {
			return
		}
		push(wsEvent{Type: "room", Room: snap})
	})
	if err != nil {
		s.Log.Errorf("subscribe chess room %s: %v", code, err)
		c.Close(websocket.StatusInternalError, "subscribe failed")
		return
	}
	defer unsub()

	var readErr error
	for {
		_, data, err := c.Read(ctx)
		if err != nil {
			readErr = err
			break
		}
		var cmd chessCommand
		if err := json.Unmarshal(data, &cmd); err != nil {
			push(wsEvent{Type: "error", Message: "malformed command"})
			continue
		}
		if left := s.handleChessCommand(ctx, code, uid.String(), seat, cmd, push); left {
			c.Close(websocket.StatusNormalClosure, "left room")
			break
		}
	}
	middleware.LogWebSocketDisconnect(s.Log, remoteAddr, r.URL.Path, readErr)
}

func (s *Server) handleChessCommand(ctx context.Context, code, uid string, seat chess.Seat, cmd chessCommand, push func(wsEvent)) bool {
	var err error
	switch cmd.Type {
	case "move":
		_, err = s.Chess.Move(ctx, code, uid, cmd.From, cmd.To, cmd.Promotion)
	case "resign":
		_, err = s.Chess.Resign(ctx, code, uid)
	case "ack":
		if seat != "" {
			err = s.Chess.AcknowledgeFinish(ctx, code, seat)
		}
	case "reset":
		_, err = s.Chess.Reset(ctx, code)
	case "leave":
		if _, err = s.Chess.Leave(ctx, code, uid); err != nil {
			s.Log.Warnf("leave chess room %s: %v", code, err)
		}
		return true
	default:
		push(wsEvent{Type: "error", Message: "unknown command type"})
		return false
	}
	if err != nil {
		push(wsEvent{Type: "error", Message: err.Error()})
	}
	return false
}

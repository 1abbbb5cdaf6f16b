package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/coder/websocket"

	"github.com/vinhpn/boardroom/internal/gomoku"
	"github.com/vinhpn/boardroom/internal/middleware"
	"github.com/vinhpn/boardroom/internal/room"
)

// gomokuCommand is one client-to-server message on a gomoku room socket.
type gomokuCommand struct {
	Type  string `json:"type"`
	Row   int    `json:"row"`
	Col   int    `json:"col"`
	Ready *bool  `json:"ready,omitempty"`
}

// GomokuWSHandler runs one gomoku room session: joins the caller's guest
// identity to the room, streams every committed snapshot, and translates
// inbound commands into room mutators. A full room downgrades the session
// to spectator instead of refusing it.
func (s *Server) GomokuWSHandler(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	remoteAddr := r.RemoteAddr

	// Identity first: the cookie cannot be set once the connection is
	// upgraded.
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

	name := r.URL.Query().Get("name")
	if name == "" {
		name = "Player"
	}
	secret := r.URL.Query().Get("secret")

	seat, _, err := s.Gomoku.Join(ctx, code, uid.String(), name, secret)
	switch {
	case errors.Is(err, room.ErrNotFound):
		c.Close(InvalidRoomCodeError, "room does not exist")
		return
	case errors.Is(err, room.ErrBadSecret):
		c.Close(WrongRoomSecretError, "wrong room secret")
		return
	case errors.Is(err, room.ErrFull):
		// Watching is fine; mutators will ignore an unseated identity.
		push(wsEvent{Type: "spectator"})
	case err != nil:
		s.Log.Errorf("join gomoku room %s: %v", code, err)
		c.Close(websocket.StatusInternalError, "join failed")
		return
	default:
		push(wsEvent{Type: "joined", Seat: string(seat)})
	}
	s.Log.Infof("guest %v (%s) connected to gomoku room %s", uid, remoteAddr, code)

	unsub, err := s.Gomoku.Subscribe(code, func(snap *gomoku.Room) {
		if snap == nil {
			return
		}
		push(wsEvent{Type: "room", Room: snap.Redacted()})
	})
	if err != nil {
		s.Log.Errorf("subscribe gomoku room %s: %v", code, err)
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
		var cmd gomokuCommand
		if err := json.Unmarshal(data, &cmd); err != nil {
			push(wsEvent{Type: "error", Message: "malformed command"})
			continue
		}
		if left := s.handleGomokuCommand(ctx, code, uid.String(), seat, cmd, push); left {
			c.Close(websocket.StatusNormalClosure, "left room")
			break
		}
	}
	middleware.LogWebSocketDisconnect(s.Log, remoteAddr, r.URL.Path, readErr)
}

// handleGomokuCommand dispatches one command. The true return means the
// caller left the room and the session should end. Gameplay-rule
// violations never produce an error event; the client simply sees no new
// snapshot.
func (s *Server) handleGomokuCommand(ctx context.Context, code, uid string, seat gomoku.Seat, cmd gomokuCommand, push func(wsEvent)) bool {
	var err error
	switch cmd.Type {
	case "move":
		_, err = s.Gomoku.Place(ctx, code, uid, cmd.Row, cmd.Col)
	case "ready":
		ready := true
		if cmd.Ready != nil {
			ready = *cmd.Ready
		}
		_, err = s.Gomoku.SetReady(ctx, code, uid, ready)
	case "start":
		_, err = s.Gomoku.StartRound(ctx, code)
	case "ack":
		if seat != "" {
			err = s.Gomoku.AcknowledgeFinish(ctx, code, seat)
		}
	case "leave":
		if _, err = s.Gomoku.Leave(ctx, code, uid); err != nil {
			s.Log.Warnf("leave gomoku room %s: %v", code, err)
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

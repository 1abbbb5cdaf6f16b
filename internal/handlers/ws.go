package handlers

import (
	"context"
	"encoding/json"
	"time"

	"github.com/coder/websocket"
	log "github.com/sirupsen/logrus"
)

// wsEvent is the envelope for every server-to-client message on a room
// socket.
type wsEvent struct {
	Type    string      `json:"type"`
	Seat    string      `json:"seat,omitempty"`
	Room    interface{} `json:"room,omitempty"`
	Message string      `json:"message,omitempty"`
}

// roomSubprotocol is required on every room socket.
const roomSubprotocol = "room"

// writeTimeout bounds a single frame write; a client stuck longer than
// this gets dropped.
const writeTimeout = 5 * time.Second

// outboundBuffer is the per-session queue depth. Snapshot delivery is
// lossy under backpressure, the same way the store's subscriber queue is:
// a lagging client always ends up with the latest state.
const outboundBuffer = 16

// newSender builds the non-blocking event queue for one session. Push
// marshals and enqueues; the pump goroutine owns the actual writes.
func newSender(logger *log.Logger) (events chan []byte, push func(wsEvent)) {
	events = make(chan []byte, outboundBuffer)
	push = func(ev wsEvent) {
		data, err := json.Marshal(ev)
		if err != nil {
			logger.Warnf("marshal ws event %q: %v", ev.Type, err)
			return
		}
		select {
		case events <- data:
		default:
			select {
			case <-events:
			default:
			}
			select {
			case events <- data:
			default:
			}
		}
	}
	return events, push
}

// writePump drains the session queue onto the socket until the context
// ends or a write fails.
func writePump(ctx context.Context, c *websocket.Conn, events <-chan []byte) {
	for {
		select {
		case <-ctx.Done():
			return
		case data := <-events:
			wctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := c.Write(wctx, websocket.MessageText, data)
			cancel()
			if err != nil {
				return
			}
		}
	}
}

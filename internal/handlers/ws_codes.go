// internal/handlers/ws_codes.go
package handlers

// Custom WebSocket close codes used by the room handlers. These provide
// more specific reasons for closure than the standard codes.
const (
	BadSubprotocolError  = 3000 // Client connected with an unsupported subprotocol.
	InvalidRoomCodeError = 3001 // Target room code does not exist.
	WrongRoomSecretError = 3002 // Join secret did not match the room's.
)

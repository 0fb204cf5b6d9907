// internal/handlers/ws_codes.go
package handlers

import "github.com/coder/websocket"

// Custom WebSocket close codes used by the match protocol. These give the
// client a more specific reason for closure than the standard codes.
const (
	CloseProtocolViolation websocket.StatusCode = 3000 // malformed frame or wrong-state message
	CloseWatchdogExpired   websocket.StatusCode = 3001 // disconnect watchdog fired
	CloseTooManyConns      websocket.StatusCode = 3002 // per-address connection cap reached
	CloseSendOverflow      websocket.StatusCode = 3003 // outbound queue overflowed
)

// internal/game/conn.go
package game

// ClientConn is the slice of a connection the game layer is allowed to
// touch. The concrete type lives in the handlers package; tests inject a
// recorder. Send methods must never block: the connection buffers outbound
// frames and drops the socket itself when the client cannot keep up.
type ClientConn interface {
	// SendJSON marshals v and sends it as a text frame.
	SendJSON(v interface{})
	// SendText sends pre-serialized bytes as a text frame.
	SendText(b []byte)
	// SendBin frames payload with the opcode and sends it as a binary frame.
	SendBin(code byte, payload []byte)

	// StartDCTimer arms the disconnect watchdog, replacing any prior timer.
	StartDCTimer(seconds int)
	// StartDCTimerIndependent arms a second watchdog that nothing cancels.
	StartDCTimerIndependent(seconds int)
	// StopDCTimer cancels the replaceable watchdog.
	StopDCTimer()

	// Blocked reports whether the connection is jailed.
	Blocked() bool
	// SetBlocked jails the connection; a logged-in account is flagged banned
	// on the close-time stats flush.
	SetBlocked()
	// BlockAddress records the connection's address on the persistent block
	// list. Fire-and-forget.
	BlockAddress(playerName string, reason byte)

	// SendClose performs a graceful close handshake.
	SendClose()

	// Username returns the logged-in account name, or "" for guests.
	Username() string
}

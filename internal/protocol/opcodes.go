// internal/protocol/opcodes.go
package protocol

// Binary opcodes. Client to server unless noted otherwise.
const (
	OpAssignPID    byte = 0x02 // server to client: int16 pid, int16 skin, int8 isDev
	OpCreatePlayer byte = 0x10 // int8 level, int8 zone, shor2 pos
	OpKillPlayer   byte = 0x11 // no payload
	OpUpdatePlayer byte = 0x12 // int8 level, int8 zone, vec2 pos, int8 sprite, bool reverse
	OpPlayerEvent  byte = 0x13 // int8 type
	OpKillClaim    byte = 0x17 // int16 victim pid
	OpResult       byte = 0x18 // payload ignored inbound; outbound int16 pid, int8 pos, int8 0
	OpTrustPing    byte = 0x19 // no payload
	OpObjectEvent  byte = 0x20 // int8 level, int8 zone, int32 oid, int8 type
	OpCoinCollect  byte = 0x21 // server to client: int8 count
	OpLeaderCoins  byte = 0x22 // server to client: int32 delta
	OpTileEvent    byte = 0x30 // int8 level, int8 zone, shor2 pos, int8 type
)

// payloadLen maps each inbound opcode to its fixed payload size in bytes,
// excluding the opcode byte itself.
var payloadLen = map[byte]int{
	OpCreatePlayer: 6,
	OpKillPlayer:   0,
	OpUpdatePlayer: 12,
	OpPlayerEvent:  1,
	OpKillClaim:    2,
	OpResult:       4,
	OpTrustPing:    0,
	OpObjectEvent:  7,
	OpTileEvent:    7,
}

// PayloadLen returns the fixed payload length for an inbound opcode.
// The second return is false for opcodes the server does not accept.
func PayloadLen(code byte) (int, bool) {
	n, ok := payloadLen[code]
	return n, ok
}

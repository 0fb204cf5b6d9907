// internal/protocol/binary_test.go
package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriterReaderRoundTrip(t *testing.T) {
	b := NewWriter().
		Int16(-12345).
		Uint16(54321).
		Int8(-7).
		Byte(0xFE).
		Int32(-100000).
		Float32(3.5).
		Bool(true).
		Bool(false).
		Bytes()

	r := NewReader(b)
	assert.Equal(t, int16(-12345), r.Int16())
	assert.Equal(t, uint16(54321), r.Uint16())
	assert.Equal(t, int8(-7), r.Int8())
	assert.Equal(t, byte(0xFE), r.Byte())
	assert.Equal(t, int32(-100000), r.Int32())
	assert.Equal(t, float32(3.5), r.Float32())
	assert.True(t, r.Bool())
	assert.False(t, r.Bool())
	require.NoError(t, r.Err())
}

func TestReaderLittleEndian(t *testing.T) {
	// 0x0500 0x0200 little-endian, as in a tile event at (5, 2).
	r := NewReader([]byte{0x05, 0x00, 0x02, 0x00})
	x, y := r.Shor2()
	require.NoError(t, r.Err())
	assert.Equal(t, uint16(5), x)
	assert.Equal(t, uint16(2), y)
}

func TestReaderShortRecord(t *testing.T) {
	r := NewReader([]byte{0x01})
	assert.Equal(t, int32(0), r.Int32())
	assert.ErrorIs(t, r.Err(), ErrShortRecord)

	// Error stays sticky for subsequent reads.
	assert.Equal(t, byte(0), r.Byte())
	assert.ErrorIs(t, r.Err(), ErrShortRecord)
}

func TestWriterVec2(t *testing.T) {
	b := NewWriter().Vec2(1.25, -2.5).Bytes()
	require.Len(t, b, 8)

	r := NewReader(b)
	x, y := r.Vec2()
	require.NoError(t, r.Err())
	assert.Equal(t, float32(1.25), x)
	assert.Equal(t, float32(-2.5), y)
}

func TestFramePrependsOpcode(t *testing.T) {
	payload := NewWriter().Int16(9).Bytes()
	frame := Frame(OpKillPlayer, payload)
	require.Len(t, frame, 3)
	assert.Equal(t, OpKillPlayer, frame[0])
	assert.Equal(t, []byte{0x09, 0x00}, frame[1:])
}

func TestPayloadLenTable(t *testing.T) {
	cases := []struct {
		code byte
		want int
	}{
		{OpCreatePlayer, 6},
		{OpKillPlayer, 0},
		{OpUpdatePlayer, 12},
		{OpPlayerEvent, 1},
		{OpKillClaim, 2},
		{OpResult, 4},
		{OpTrustPing, 0},
		{OpObjectEvent, 7},
		{OpTileEvent, 7},
	}
	for _, tc := range cases {
		n, ok := PayloadLen(tc.code)
		require.True(t, ok, "opcode 0x%02x should be accepted", tc.code)
		assert.Equal(t, tc.want, n, "opcode 0x%02x", tc.code)
	}

	// Server-push opcodes are not accepted inbound.
	for _, code := range []byte{OpAssignPID, OpCoinCollect, OpLeaderCoins, 0x99} {
		_, ok := PayloadLen(code)
		assert.False(t, ok, "opcode 0x%02x should be rejected", code)
	}
}

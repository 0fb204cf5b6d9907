// internal/protocol/binary.go
package protocol

import (
	"encoding/binary"
	"math"
)

// Reader decodes a fixed-length little-endian record. Reads past the end of
// the buffer set a sticky error and return zero values, so callers can decode
// a whole record and check Err once.
type Reader struct {
	buf []byte
	off int
	err error
}

// ErrShortRecord indicates a read past the end of the record.
type shortRecordError struct{}

func (shortRecordError) Error() string { return "protocol: read past end of record" }

// ErrShortRecord is returned by Reader.Err after an overlong read.
var ErrShortRecord error = shortRecordError{}

// NewReader wraps a payload slice for decoding. The slice is not copied.
func NewReader(b []byte) *Reader {
	return &Reader{buf: b}
}

func (r *Reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if r.off+n > len(r.buf) {
		r.err = ErrShortRecord
		return nil
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b
}

// Err reports the first decode error, if any.
func (r *Reader) Err() error { return r.err }

// Byte reads one unsigned byte.
func (r *Reader) Byte() byte {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

// Int8 reads one signed byte.
func (r *Reader) Int8() int8 { return int8(r.Byte()) }

// Bool reads one byte as a boolean.
func (r *Reader) Bool() bool { return r.Byte() != 0 }

// Int16 reads a little-endian signed 16-bit integer.
func (r *Reader) Int16() int16 {
	b := r.take(2)
	if b == nil {
		return 0
	}
	return int16(binary.LittleEndian.Uint16(b))
}

// Uint16 reads a little-endian unsigned 16-bit integer.
func (r *Reader) Uint16() uint16 {
	b := r.take(2)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

// Int32 reads a little-endian signed 32-bit integer.
func (r *Reader) Int32() int32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return int32(binary.LittleEndian.Uint32(b))
}

// Float32 reads a little-endian IEEE-754 float.
func (r *Reader) Float32() float32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return math.Float32frombits(binary.LittleEndian.Uint32(b))
}

// Shor2 reads a pair of unsigned 16-bit integers.
func (r *Reader) Shor2() (uint16, uint16) {
	x := r.Uint16()
	y := r.Uint16()
	return x, y
}

// Vec2 reads a pair of floats.
func (r *Reader) Vec2() (float32, float32) {
	x := r.Float32()
	y := r.Float32()
	return x, y
}

// Writer builds a little-endian record. The write methods chain so that
// whole records read as a single expression at the call site.
type Writer struct {
	buf []byte
}

// NewWriter returns an empty record writer.
func NewWriter() *Writer {
	return &Writer{buf: make([]byte, 0, 16)}
}

// Byte appends one byte.
func (w *Writer) Byte(v byte) *Writer {
	w.buf = append(w.buf, v)
	return w
}

// Int8 appends one signed byte.
func (w *Writer) Int8(v int8) *Writer { return w.Byte(byte(v)) }

// Bool appends a boolean as one byte.
func (w *Writer) Bool(v bool) *Writer {
	if v {
		return w.Byte(1)
	}
	return w.Byte(0)
}

// Int16 appends a little-endian signed 16-bit integer.
func (w *Writer) Int16(v int16) *Writer {
	w.buf = binary.LittleEndian.AppendUint16(w.buf, uint16(v))
	return w
}

// Uint16 appends a little-endian unsigned 16-bit integer.
func (w *Writer) Uint16(v uint16) *Writer {
	w.buf = binary.LittleEndian.AppendUint16(w.buf, v)
	return w
}

// Int32 appends a little-endian signed 32-bit integer.
func (w *Writer) Int32(v int32) *Writer {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, uint32(v))
	return w
}

// Float32 appends a little-endian IEEE-754 float.
func (w *Writer) Float32(v float32) *Writer {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, math.Float32bits(v))
	return w
}

// Shor2 appends a pair of unsigned 16-bit integers.
func (w *Writer) Shor2(x, y uint16) *Writer {
	return w.Uint16(x).Uint16(y)
}

// Vec2 appends a pair of floats.
func (w *Writer) Vec2(x, y float32) *Writer {
	return w.Float32(x).Float32(y)
}

// Raw appends bytes verbatim.
func (w *Writer) Raw(b []byte) *Writer {
	w.buf = append(w.buf, b...)
	return w
}

// Bytes returns the accumulated record.
func (w *Writer) Bytes() []byte { return w.buf }

// Frame prepends an opcode to a payload, producing a complete wire frame.
func Frame(code byte, payload []byte) []byte {
	out := make([]byte, 0, 1+len(payload))
	out = append(out, code)
	return append(out, payload...)
}

// Package binary provides low-level binary I/O operations for MSBT/MSBP file
// parsing and writing.
package binary

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// ErrUnexpectedEnd is returned when a read would run past the end of the
// readable window.
var ErrUnexpectedEnd = errors.New("unexpected end of data")

// ErrInvalidWidth is returned when a terminator width other than 1, 2 or 4 is
// requested.
var ErrInvalidWidth = errors.New("invalid character width: must be 1, 2, or 4")

// Reader provides positioned reads over an in-memory buffer. All positions
// are absolute offsets into the underlying buffer, including for readers
// produced by Bounded.
type Reader struct {
	data  []byte
	order binary.ByteOrder
	pos   int64
	end   int64
}

// Config holds reader/writer configuration, typically derived from the file
// header.
type Config struct {
	ByteOrder binary.ByteOrder
}

// DefaultConfig returns a configuration suitable for initial header reading.
// Uses big-endian byte order until the byte-order mark has been seen.
func DefaultConfig() Config {
	return Config{ByteOrder: binary.BigEndian}
}

// NewReader creates a binary reader over data with the given configuration.
func NewReader(data []byte, cfg Config) *Reader {
	order := cfg.ByteOrder
	if order == nil {
		order = binary.BigEndian
	}
	return &Reader{
		data:  data,
		order: order,
		end:   int64(len(data)),
	}
}

// At returns a new reader positioned at the given offset.
// The new reader shares the underlying buffer and window but has an
// independent position.
func (r *Reader) At(offset int64) *Reader {
	return &Reader{
		data:  r.data,
		order: r.order,
		pos:   offset,
		end:   r.end,
	}
}

// Bounded returns a reader over [start, end) that fails with ErrUnexpectedEnd
// instead of reading past end. The window is clipped to the current one.
func (r *Reader) Bounded(start, end int64) *Reader {
	if end > r.end {
		end = r.end
	}
	if start > end {
		start = end
	}
	return &Reader{
		data:  r.data,
		order: r.order,
		pos:   start,
		end:   end,
	}
}

// SetByteOrder changes the byte order used by subsequent reads.
func (r *Reader) SetByteOrder(order binary.ByteOrder) {
	r.order = order
}

// ByteOrder returns the configured byte order.
func (r *Reader) ByteOrder() binary.ByteOrder {
	return r.order
}

// Pos returns the current read position.
func (r *Reader) Pos() int64 {
	return r.pos
}

// End returns the exclusive end of the readable window.
func (r *Reader) End() int64 {
	return r.end
}

// Remaining returns the number of bytes left before the end of the window.
func (r *Reader) Remaining() int64 {
	if r.pos >= r.end {
		return 0
	}
	return r.end - r.pos
}

// SeekTo moves the position to an absolute offset.
func (r *Reader) SeekTo(offset int64) {
	r.pos = offset
}

// Skip advances the position by n bytes.
func (r *Reader) Skip(n int64) {
	r.pos += n
}

// Align advances the position to the next multiple of alignment.
// If already aligned, the position is unchanged.
func (r *Reader) Align(alignment int64) {
	if alignment <= 1 {
		return
	}
	if remainder := r.pos % alignment; remainder != 0 {
		r.pos += alignment - remainder
	}
}

// Slice returns the raw bytes in [start, end) without moving the position.
// The range is clipped to the readable window.
func (r *Reader) Slice(start, end int64) []byte {
	if start < 0 {
		start = 0
	}
	if end > r.end {
		end = r.end
	}
	if start >= end {
		return nil
	}
	return r.data[start:end]
}

func (r *Reader) window(n int) ([]byte, error) {
	if n < 0 || r.pos < 0 || r.pos+int64(n) > r.end {
		return nil, fmt.Errorf("reading %d bytes at 0x%x: %w", n, r.pos, ErrUnexpectedEnd)
	}
	return r.data[r.pos : r.pos+int64(n)], nil
}

// ReadBytes reads exactly n bytes from the current position. The returned
// slice is a copy.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	if n <= 0 {
		return nil, nil
	}
	buf, err := r.window(n)
	if err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, buf)
	r.pos += int64(n)
	return out, nil
}

// Peek reads n bytes without advancing the position.
func (r *Reader) Peek(n int) ([]byte, error) {
	if n <= 0 {
		return nil, nil
	}
	buf, err := r.window(n)
	if err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, buf)
	return out, nil
}

// ReadUint8 reads an unsigned 8-bit integer.
func (r *Reader) ReadUint8() (uint8, error) {
	buf, err := r.window(1)
	if err != nil {
		return 0, err
	}
	r.pos++
	return buf[0], nil
}

// ReadUint16 reads an unsigned 16-bit integer.
func (r *Reader) ReadUint16() (uint16, error) {
	buf, err := r.window(2)
	if err != nil {
		return 0, err
	}
	r.pos += 2
	return r.order.Uint16(buf), nil
}

// ReadUint32 reads an unsigned 32-bit integer.
func (r *Reader) ReadUint32() (uint32, error) {
	buf, err := r.window(4)
	if err != nil {
		return 0, err
	}
	r.pos += 4
	return r.order.Uint32(buf), nil
}

// ReadUint64 reads an unsigned 64-bit integer.
func (r *Reader) ReadUint64() (uint64, error) {
	buf, err := r.window(8)
	if err != nil {
		return 0, err
	}
	r.pos += 8
	return r.order.Uint64(buf), nil
}

// ReadInt8 reads a signed 8-bit integer.
func (r *Reader) ReadInt8() (int8, error) {
	v, err := r.ReadUint8()
	return int8(v), err
}

// ReadInt16 reads a signed 16-bit integer.
func (r *Reader) ReadInt16() (int16, error) {
	v, err := r.ReadUint16()
	return int16(v), err
}

// ReadInt32 reads a signed 32-bit integer.
func (r *Reader) ReadInt32() (int32, error) {
	v, err := r.ReadUint32()
	return int32(v), err
}

// ReadInt64 reads a signed 64-bit integer.
func (r *Reader) ReadInt64() (int64, error) {
	v, err := r.ReadUint64()
	return int64(v), err
}

// ReadFloat32 reads an IEEE 754 single-precision float.
func (r *Reader) ReadFloat32() (float32, error) {
	v, err := r.ReadUint32()
	return math.Float32frombits(v), err
}

// ReadFloat64 reads an IEEE 754 double-precision float.
func (r *Reader) ReadFloat64() (float64, error) {
	v, err := r.ReadUint64()
	return math.Float64frombits(v), err
}

// ReadUintN reads an unsigned integer of n bytes (1, 2, 4, or 8).
func (r *Reader) ReadUintN(n int) (uint64, error) {
	switch n {
	case 1:
		v, err := r.ReadUint8()
		return uint64(v), err
	case 2:
		v, err := r.ReadUint16()
		return uint64(v), err
	case 4:
		v, err := r.ReadUint32()
		return uint64(v), err
	case 8:
		return r.ReadUint64()
	default:
		return 0, fmt.Errorf("unsupported integer width %d", n)
	}
}

// PeekUintN reads an unsigned integer of n bytes without advancing.
func (r *Reader) PeekUintN(n int) (uint64, error) {
	pos := r.pos
	v, err := r.ReadUintN(n)
	r.pos = pos
	return v, err
}

// PeekUint16 reads an unsigned 16-bit integer without advancing.
func (r *Reader) PeekUint16() (uint16, error) {
	v, err := r.PeekUintN(2)
	return uint16(v), err
}

// ReadTerminated reads a string terminated by a NUL unit of the given width
// (1 for UTF-8, 2 for UTF-16, 4 for UTF-32). The returned bytes exclude the
// terminator; the position is left just after it. Terminators are searched on
// unit boundaries relative to the starting position.
func (r *Reader) ReadTerminated(width int) ([]byte, error) {
	if width != 1 && width != 2 && width != 4 {
		return nil, ErrInvalidWidth
	}
	start := r.pos
	if start < 0 {
		return nil, fmt.Errorf("string at 0x%x: %w", start, ErrUnexpectedEnd)
	}
	for p := start; ; p += int64(width) {
		if p+int64(width) > r.end {
			return nil, fmt.Errorf("unterminated string at 0x%x: %w", start, ErrUnexpectedEnd)
		}
		if isZero(r.data[p : p+int64(width)]) {
			out := make([]byte, p-start)
			copy(out, r.data[start:p])
			r.pos = p + int64(width)
			return out, nil
		}
	}
}

// ReadTerminatedAt reads a terminated string at offset without moving the
// reader.
func (r *Reader) ReadTerminatedAt(offset int64, width int) ([]byte, error) {
	return r.At(offset).ReadTerminated(width)
}

func isZero(b []byte) bool {
	for _, c := range b {
		if c != 0 {
			return false
		}
	}
	return true
}

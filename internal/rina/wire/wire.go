// Package wire implements the stable compact binary encoding shared by
// PDUs, CDAP messages, enrolment objects and RIB snapshots. It is a
// hand-rolled tag/length scheme, not RFC 4506 XDR: every field is either a
// fixed-width integer or a length-prefixed blob, written big-endian, with
// no 4-byte alignment padding.
package wire

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// FormatVersion is written as the first byte of every top-level encoded
// message so a future incompatible wire change can be detected defensively
// instead of silently misparsed.
const FormatVersion byte = 1

// ErrShortBuffer is returned when a Reader runs out of bytes mid-field.
var ErrShortBuffer = fmt.Errorf("wire: short buffer")

// ErrVersionMismatch is returned when a decoded FormatVersion byte does not
// match the version this build understands.
var ErrVersionMismatch = fmt.Errorf("wire: format version mismatch")

// Writer accumulates a big-endian encoded byte stream.
type Writer struct {
	buf bytes.Buffer
}

// NewWriter returns an empty Writer.
func NewWriter() *Writer {
	return &Writer{}
}

// Bytes returns the accumulated encoded bytes.
func (w *Writer) Bytes() []byte {
	return w.buf.Bytes()
}

// WriteVersion writes the current FormatVersion byte.
func (w *Writer) WriteVersion() {
	w.buf.WriteByte(FormatVersion)
}

// WriteUint8 writes a single byte.
func (w *Writer) WriteUint8(v uint8) {
	w.buf.WriteByte(v)
}

// WriteUint32 writes a 4-byte big-endian unsigned integer.
func (w *Writer) WriteUint32(v uint32) {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], v)
	w.buf.Write(tmp[:])
}

// WriteUint64 writes an 8-byte big-endian unsigned integer.
func (w *Writer) WriteUint64(v uint64) {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], v)
	w.buf.Write(tmp[:])
}

// WriteInt64 writes an 8-byte big-endian signed integer.
func (w *Writer) WriteInt64(v int64) {
	w.WriteUint64(uint64(v))
}

// WriteBool writes a boolean as a single byte.
func (w *Writer) WriteBool(v bool) {
	if v {
		w.buf.WriteByte(1)
	} else {
		w.buf.WriteByte(0)
	}
}

// WriteBytes writes a length-prefixed byte slice: [uint32 length][data].
func (w *Writer) WriteBytes(data []byte) {
	w.WriteUint32(uint32(len(data)))
	w.buf.Write(data)
}

// WriteString writes a length-prefixed UTF-8 string.
func (w *Writer) WriteString(s string) {
	w.WriteBytes([]byte(s))
}

// Reader consumes a big-endian encoded byte stream produced by Writer.
type Reader struct {
	data []byte
	pos  int
}

// NewReader wraps data for sequential decoding.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// Remaining reports how many bytes are left unread.
func (r *Reader) Remaining() int {
	return len(r.data) - r.pos
}

func (r *Reader) need(n int) error {
	if r.Remaining() < n {
		return ErrShortBuffer
	}
	return nil
}

// ReadVersion reads and validates the FormatVersion byte.
func (r *Reader) ReadVersion() error {
	v, err := r.ReadUint8()
	if err != nil {
		return err
	}
	if v != FormatVersion {
		return fmt.Errorf("%w: got %d want %d", ErrVersionMismatch, v, FormatVersion)
	}
	return nil
}

// ReadUint8 reads a single byte.
func (r *Reader) ReadUint8() (uint8, error) {
	if err := r.need(1); err != nil {
		return 0, err
	}
	v := r.data[r.pos]
	r.pos++
	return v, nil
}

// ReadUint32 reads a 4-byte big-endian unsigned integer.
func (r *Reader) ReadUint32() (uint32, error) {
	if err := r.need(4); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint32(r.data[r.pos:])
	r.pos += 4
	return v, nil
}

// ReadUint64 reads an 8-byte big-endian unsigned integer.
func (r *Reader) ReadUint64() (uint64, error) {
	if err := r.need(8); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint64(r.data[r.pos:])
	r.pos += 8
	return v, nil
}

// ReadInt64 reads an 8-byte big-endian signed integer.
func (r *Reader) ReadInt64() (int64, error) {
	v, err := r.ReadUint64()
	return int64(v), err
}

// ReadBool reads a single-byte boolean.
func (r *Reader) ReadBool() (bool, error) {
	v, err := r.ReadUint8()
	return v != 0, err
}

// ReadBytes reads a length-prefixed byte slice.
func (r *Reader) ReadBytes() ([]byte, error) {
	n, err := r.ReadUint32()
	if err != nil {
		return nil, err
	}
	if err := r.need(int(n)); err != nil {
		return nil, err
	}
	v := make([]byte, n)
	copy(v, r.data[r.pos:r.pos+int(n)])
	r.pos += int(n)
	return v, nil
}

// ReadString reads a length-prefixed UTF-8 string.
func (r *Reader) ReadString() (string, error) {
	b, err := r.ReadBytes()
	if err != nil {
		return "", err
	}
	return string(b), nil
}

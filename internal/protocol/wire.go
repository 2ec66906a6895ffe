package protocol

import (
	"encoding/binary"
	"math"

	"gallop.gg/internal/locale"
)

// Reader decodes frame bodies. Little-endian throughout. The error is
// sticky: the first failed read poisons the reader and subsequent reads
// return zero values, so message decoders can read field-by-field and
// check Err once.
type Reader struct {
	buf []byte
	off int
	err error
}

func NewReader(buf []byte) *Reader {
	return &Reader{buf: buf}
}

func (r *Reader) Err() error {
	return r.err
}

func (r *Reader) Remaining() int {
	return len(r.buf) - r.off
}

func (r *Reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if r.off+n > len(r.buf) {
		r.err = ErrShortBuffer
		return nil
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b
}

func (r *Reader) Uint8() uint8 {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *Reader) Uint16() uint16 {
	b := r.take(2)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

func (r *Reader) Uint32() uint32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (r *Reader) Uint64() uint64 {
	b := r.take(8)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

func (r *Reader) Int32() int32 {
	return int32(r.Uint32())
}

func (r *Reader) Float32() float32 {
	return math.Float32frombits(r.Uint32())
}

func (r *Reader) Bytes(n int) []byte {
	b := r.take(n)
	if b == nil {
		return nil
	}
	out := make([]byte, n)
	copy(out, b)
	return out
}

// String reads a null-terminated wire string and converts it to UTF-8.
func (r *Reader) String() string {
	if r.err != nil {
		return ""
	}
	start := r.off
	for r.off < len(r.buf) {
		if r.buf[r.off] == 0 {
			s := locale.FromWire(r.buf[start:r.off])
			r.off++
			return s
		}
		r.off++
	}
	r.err = ErrShortBuffer
	return ""
}

// Writer builds frame bodies. Little-endian throughout.
type Writer struct {
	buf []byte
	err error
}

func NewWriter() *Writer {
	return &Writer{buf: make([]byte, 0, 128)}
}

func (w *Writer) Err() error {
	return w.err
}

func (w *Writer) Len() int {
	return len(w.buf)
}

// Bytes returns the accumulated body. The slice aliases the writer.
func (w *Writer) Bytes() []byte {
	return w.buf
}

func (w *Writer) Uint8(v uint8) {
	w.buf = append(w.buf, v)
}

func (w *Writer) Uint16(v uint16) {
	w.buf = binary.LittleEndian.AppendUint16(w.buf, v)
}

func (w *Writer) Uint32(v uint32) {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, v)
}

func (w *Writer) Uint64(v uint64) {
	w.buf = binary.LittleEndian.AppendUint64(w.buf, v)
}

func (w *Writer) Int32(v int32) {
	w.Uint32(uint32(v))
}

func (w *Writer) Float32(v float32) {
	w.Uint32(math.Float32bits(v))
}

func (w *Writer) Raw(b []byte) {
	w.buf = append(w.buf, b...)
}

// String writes a null-terminated wire string in the client code page.
func (w *Writer) String(s string) {
	b := locale.ToWire(s)
	w.buf = append(w.buf, b...)
	w.buf = append(w.buf, 0)
}

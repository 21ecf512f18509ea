package protocol

import (
	"encoding/binary"
	"math"

	"github.com/valyala/bytebufferpool"
)

// Writer accumulates an encoded packet body (packet_id || payload) into a
// pooled buffer, grounded on the buffer-pooling discipline the teacher uses
// for its secure connection frames.
type Writer struct {
	buf *bytebufferpool.ByteBuffer
}

var writerPool bytebufferpool.Pool

// AcquireWriter returns a pooled Writer ready for encoding.
func AcquireWriter() *Writer {
	return &Writer{buf: writerPool.Get()}
}

// Release returns the Writer's buffer to the pool. Call after the encoded
// bytes have been consumed (e.g. handed to WritePacketFrame).
func (w *Writer) Release() {
	writerPool.Put(w.buf)
	w.buf = nil
}

// Bytes returns the accumulated, not-yet-framed payload.
func (w *Writer) Bytes() []byte { return w.buf.B }

func (w *Writer) WriteByte(b byte) error {
	return w.buf.WriteByte(b)
}

func (w *Writer) write(b []byte) {
	w.buf.Write(b)
}

func (w *Writer) VarInt(v int32) error { return WriteVarInt(w, v) }

func (w *Writer) VarLong(v int64) error { return WriteVarLong(w, v) }

func (w *Writer) String(s string) error {
	if err := w.VarInt(int32(len(s))); err != nil {
		return err
	}
	w.write([]byte(s))
	return nil
}

func (w *Writer) ByteArray(b []byte) error {
	if err := w.VarInt(int32(len(b))); err != nil {
		return err
	}
	w.write(b)
	return nil
}

func (w *Writer) FixedBytes(b []byte) {
	w.write(b)
}

func (w *Writer) UUID(id [16]byte) {
	w.write(id[:])
}

func (w *Writer) Bool(v bool) error {
	if v {
		return w.WriteByte(1)
	}
	return w.WriteByte(0)
}

func (w *Writer) U8(v uint8) error { return w.WriteByte(v) }

func (w *Writer) U16(v uint16) {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	w.write(b[:])
}

func (w *Writer) I32(v int32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], uint32(v))
	w.write(b[:])
}

func (w *Writer) I64(v int64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(v))
	w.write(b[:])
}

func (w *Writer) F32(v float32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], math.Float32bits(v))
	w.write(b[:])
}

func (w *Writer) F64(v float64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], math.Float64bits(v))
	w.write(b[:])
}

// Copyright (C) 2019-2025, NewsGate Authors. All rights reserved.
// See the file LICENSE for licensing terms.

package binstream

import (
	"encoding/binary"
	"math"
	"time"
)

// Writer accumulates the encoded form of a value. Writes never fail;
// the zero Writer is ready to use.
type Writer struct {
	buf []byte
}

// NewWriter returns an empty Writer.
func NewWriter() *Writer {
	return &Writer{buf: make([]byte, 0, 256)}
}

// Bytes returns the encoded bytes. The slice aliases the Writer's buffer.
func (w *Writer) Bytes() []byte { return w.buf }

// Len returns the number of bytes written so far.
func (w *Writer) Len() int { return len(w.buf) }

// Reset discards everything written.
func (w *Writer) Reset() { w.buf = w.buf[:0] }

func (w *Writer) WriteUint8(v uint8) {
	w.buf = append(w.buf, v)
}

func (w *Writer) WriteUint16(v uint16) {
	w.buf = binary.BigEndian.AppendUint16(w.buf, v)
}

func (w *Writer) WriteUint32(v uint32) {
	w.buf = binary.BigEndian.AppendUint32(w.buf, v)
}

func (w *Writer) WriteUint64(v uint64) {
	w.buf = binary.BigEndian.AppendUint64(w.buf, v)
}

func (w *Writer) WriteInt16(v int16) { w.WriteUint16(uint16(v)) }

func (w *Writer) WriteInt32(v int32) { w.WriteUint32(uint32(v)) }

func (w *Writer) WriteInt64(v int64) { w.WriteUint64(uint64(v)) }

func (w *Writer) WriteBool(v bool) {
	if v {
		w.WriteUint8(1)
		return
	}
	w.WriteUint8(0)
}

func (w *Writer) WriteFloat64(v float64) {
	w.WriteUint64(math.Float64bits(v))
}

// WriteString writes a uint32 length followed by the string bytes.
func (w *Writer) WriteString(s string) {
	w.WriteUint32(uint32(len(s)))
	w.buf = append(w.buf, s...)
}

// WriteBytes writes a uint32 length followed by b.
func (w *Writer) WriteBytes(b []byte) {
	w.WriteUint32(uint32(len(b)))
	w.buf = append(w.buf, b...)
}

// WriteRaw appends b with no length prefix.
func (w *Writer) WriteRaw(b []byte) {
	w.buf = append(w.buf, b...)
}

// WriteTime writes t as Unix nanoseconds. The zero time is written as 0
// so that it decodes back to the zero time.
func (w *Writer) WriteTime(t time.Time) {
	if t.IsZero() {
		w.WriteInt64(0)
		return
	}
	w.WriteInt64(t.UnixNano())
}

// WriteCount writes a sequence element count.
func (w *Writer) WriteCount(n int) {
	w.WriteUint32(uint32(n))
}

// WriteVersion writes a version tag. Versioned values call it first.
func (w *Writer) WriteVersion(v uint32) {
	w.WriteUint32(v)
}

// WriteStrings writes a count followed by each string in order.
func (w *Writer) WriteStrings(values []string) {
	w.WriteCount(len(values))
	for _, v := range values {
		w.WriteString(v)
	}
}

// WriteUint64s writes a count followed by each value in order.
func (w *Writer) WriteUint64s(values []uint64) {
	w.WriteCount(len(values))
	for _, v := range values {
		w.WriteUint64(v)
	}
}

// WriteSeq writes a count followed by each element's encoding in order.
func WriteSeq[T any, PT Value[T]](w *Writer, items []T) error {
	w.WriteCount(len(items))
	for i := range items {
		if err := PT(&items[i]).Encode(w); err != nil {
			return err
		}
	}
	return nil
}

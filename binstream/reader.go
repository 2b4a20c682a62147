// Copyright (C) 2019-2025, NewsGate Authors. All rights reserved.
// See the file LICENSE for licensing terms.

package binstream

import (
	"encoding/binary"
	"fmt"
	"math"
	"slices"
	"time"
)

// Reader consumes an encoded value. The first failure is retained and
// every later read returns a zero value.
type Reader struct {
	data []byte
	off  int
	err  error
}

// NewReader returns a Reader over data. The Reader does not copy data;
// byte slices it returns are copies.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// Err returns the first error encountered, if any.
func (r *Reader) Err() error { return r.err }

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int { return len(r.data) - r.off }

// Consumed returns the number of bytes read so far.
func (r *Reader) Consumed() int { return r.off }

// Fail records err unless an earlier error is already recorded.
// Decoders use it to report semantic problems (an out-of-range enum).
func (r *Reader) Fail(err error) {
	if r.err == nil {
		r.err = err
	}
}

// Finish reports the sticky error, or ErrMalformedPayload if unread
// bytes remain.
func (r *Reader) Finish() error {
	if r.err != nil {
		return r.err
	}
	if n := r.Remaining(); n != 0 {
		return fmt.Errorf("%w: %d trailing bytes", ErrMalformedPayload, n)
	}
	return nil
}

func (r *Reader) next(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || r.Remaining() < n {
		r.err = fmt.Errorf("%w: need %d bytes at offset %d, have %d",
			ErrMalformedPayload, n, r.off, r.Remaining())
		return nil
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b
}

func (r *Reader) ReadUint8() uint8 {
	b := r.next(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *Reader) ReadUint16() uint16 {
	b := r.next(2)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint16(b)
}

func (r *Reader) ReadUint32() uint32 {
	b := r.next(4)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint32(b)
}

func (r *Reader) ReadUint64() uint64 {
	b := r.next(8)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint64(b)
}

func (r *Reader) ReadInt16() int16 { return int16(r.ReadUint16()) }

func (r *Reader) ReadInt32() int32 { return int32(r.ReadUint32()) }

func (r *Reader) ReadInt64() int64 { return int64(r.ReadUint64()) }

// ReadBool accepts only 0 and 1.
func (r *Reader) ReadBool() bool {
	switch v := r.ReadUint8(); v {
	case 0:
		return false
	case 1:
		return true
	default:
		r.Fail(fmt.Errorf("%w: invalid bool byte %d", ErrMalformedPayload, v))
		return false
	}
}

func (r *Reader) ReadFloat64() float64 {
	return math.Float64frombits(r.ReadUint64())
}

// ReadString reads a length-prefixed string.
func (r *Reader) ReadString() string {
	n := r.ReadUint32()
	b := r.next(int(n))
	if b == nil {
		return ""
	}
	return string(b)
}

// ReadBytes reads a length-prefixed byte slice and returns a copy.
// A zero length decodes as nil.
func (r *Reader) ReadBytes() []byte {
	n := r.ReadUint32()
	b := r.next(int(n))
	if len(b) == 0 {
		return nil
	}
	return slices.Clone(b)
}

// ReadRaw returns a copy of the next n bytes, written by WriteRaw.
func (r *Reader) ReadRaw(n int) []byte {
	return slices.Clone(r.next(n))
}

// ReadRest returns a copy of every unread byte.
func (r *Reader) ReadRest() []byte {
	return slices.Clone(r.next(r.Remaining()))
}

// ReadTime reads a time written by WriteTime.
func (r *Reader) ReadTime() time.Time {
	ns := r.ReadInt64()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns).UTC()
}

// ReadCount reads a sequence element count. Every element takes at least
// one byte, so a count above the unread bytes is malformed. Callers still
// allocate with CapHint rather than the raw count.
func (r *Reader) ReadCount() int {
	v := r.ReadUint32()
	if r.err != nil {
		return 0
	}
	n := int(v)
	if n < 0 || n > r.Remaining() {
		r.err = fmt.Errorf("%w: count %d exceeds %d remaining bytes",
			ErrMalformedPayload, v, r.Remaining())
		return 0
	}
	return n
}

// CapHint bounds a declared count by the bytes left to read.
func (r *Reader) CapHint(count int) int {
	return min(count, r.Remaining())
}

// ExpectVersion reads a version tag and fails with ErrVersionMismatch
// unless it is one of known. On mismatch nothing further is read.
func (r *Reader) ExpectVersion(known ...uint32) (uint32, error) {
	v := r.ReadUint32()
	if r.err != nil {
		return 0, r.err
	}
	if !slices.Contains(known, v) {
		r.err = fmt.Errorf("%w: got %d, want one of %v", ErrVersionMismatch, v, known)
		return v, r.err
	}
	return v, nil
}

// ReadStrings reads a count followed by that many strings.
func (r *Reader) ReadStrings() []string {
	n := r.ReadCount()
	if r.err != nil || n == 0 {
		return nil
	}
	out := make([]string, 0, r.CapHint(n))
	for i := 0; i < n && r.err == nil; i++ {
		out = append(out, r.ReadString())
	}
	if r.err != nil {
		return nil
	}
	return out
}

// ReadUint64s reads a count followed by that many uint64 values.
func (r *Reader) ReadUint64s() []uint64 {
	n := r.ReadCount()
	if r.err != nil || n == 0 {
		return nil
	}
	if n > r.Remaining()/8 {
		r.Fail(fmt.Errorf("%w: %d uint64 values declared, %d bytes left",
			ErrMalformedPayload, n, r.Remaining()))
		return nil
	}
	out := make([]uint64, n)
	for i := range out {
		out[i] = r.ReadUint64()
	}
	return out
}

// ReadSeq reads a count followed by exactly that many elements. Element
// decode errors become the Reader's sticky error.
func ReadSeq[T any, PT Value[T]](r *Reader) []T {
	n := r.ReadCount()
	if r.err != nil || n == 0 {
		return nil
	}
	out := make([]T, 0, r.CapHint(n))
	for i := 0; i < n; i++ {
		var item T
		if err := PT(&item).Decode(r); err != nil {
			r.Fail(err)
		}
		if r.err != nil {
			return nil
		}
		out = append(out, item)
	}
	return out
}

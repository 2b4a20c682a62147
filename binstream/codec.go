// Copyright (C) 2019-2025, NewsGate Authors. All rights reserved.
// See the file LICENSE for licensing terms.

package binstream

import "errors"

var (
	// ErrVersionMismatch is returned when a decoded version tag is not
	// one this build knows how to read.
	ErrVersionMismatch = errors.New("binstream: version mismatch")

	// ErrMalformedPayload is returned for structurally inconsistent
	// input: short reads, oversized counts, trailing bytes.
	ErrMalformedPayload = errors.New("binstream: malformed payload")
)

// Encoder writes a value to a Writer.
type Encoder interface {
	Encode(w *Writer) error
}

// Decoder populates a value from a Reader.
type Decoder interface {
	Decode(r *Reader) error
}

// Codec is implemented by every transportable domain value. Encode and
// Decode must be pure: no I/O, no locking, no process state.
type Codec interface {
	Encoder
	Decoder
}

// Value constrains PT to be a pointer to T implementing Codec, so generic
// code can allocate a fresh T and decode into it.
type Value[T any] interface {
	*T
	Codec
}

// Marshal encodes v into a new byte slice.
func Marshal(v Encoder) ([]byte, error) {
	w := NewWriter()
	if err := v.Encode(w); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

// Unmarshal decodes data into v. All of data must be consumed.
func Unmarshal(data []byte, v Decoder) error {
	r := NewReader(data)
	if err := v.Decode(r); err != nil {
		return err
	}
	return r.Finish()
}

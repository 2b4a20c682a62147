// Copyright (C) 2019-2025, NewsGate Authors. All rights reserved.
// See the file LICENSE for licensing terms.

package transport

import (
	"fmt"
	"io"

	"github.com/newsgate/rpc/binstream"
	"github.com/newsgate/rpc/compression"
)

// Entity is the type-erased view of an Envelope or a Pack. The RPC layer
// and the Registry only ever see entities.
type Entity interface {
	// TypeID is the stable wire type identifier.
	TypeID() string

	// Policy is the name of the bound compression policy.
	Policy() string

	MarshalBinary() ([]byte, error)
	UnmarshalBinary(data []byte) error

	WriteTo(w io.Writer) (int64, error)
	ReadFrom(r io.Reader) (int64, error)
}

// Factory builds an empty, decode-ready entity.
type Factory func() Entity

// EntityType binds a domain type and a compression policy to a wire type
// identifier. It is declared once per domain type, usually as a package
// variable.
type EntityType[T any, PT binstream.Value[T], P compression.Policy] struct {
	id string
}

// DefineEntity declares a single-value transport type.
func DefineEntity[T any, PT binstream.Value[T], P compression.Policy](id string) EntityType[T, PT, P] {
	return EntityType[T, PT, P]{id: id}
}

func (t EntityType[T, PT, P]) ID() string { return t.id }

// New returns an empty envelope for receiving.
func (t EntityType[T, PT, P]) New() *Envelope[T, PT, P] {
	return &Envelope[T, PT, P]{typeID: t.id}
}

// Wrap returns an envelope owning v, for sending.
func (t EntityType[T, PT, P]) Wrap(v PT) *Envelope[T, PT, P] {
	return &Envelope[T, PT, P]{typeID: t.id, value: v}
}

func (t EntityType[T, PT, P]) Factory() Factory {
	return func() Entity { return t.New() }
}

// Register adds the type to b.
func (t EntityType[T, PT, P]) Register(b *Builder) error {
	return b.Register(t.id, t.Factory())
}

// Unwrap asserts that e is an envelope of this type and returns its value.
func (t EntityType[T, PT, P]) Unwrap(e Entity) (PT, error) {
	env, ok := e.(*Envelope[T, PT, P])
	if !ok || env.typeID != t.id {
		return nil, fmt.Errorf("%w: got %s, want %s", ErrTypeMismatch, typeIDOf(e), t.id)
	}
	if env.value == nil {
		return nil, fmt.Errorf("%s: %w", t.id, ErrNoValue)
	}
	return env.value, nil
}

// Envelope owns zero or one domain value of type T.
type Envelope[T any, PT binstream.Value[T], P compression.Policy] struct {
	typeID string
	value  PT
}

func (e *Envelope[T, PT, P]) TypeID() string { return e.typeID }

func (e *Envelope[T, PT, P]) Policy() string {
	var p P
	return p.Name()
}

// Value returns the held value, or nil. The envelope keeps ownership.
func (e *Envelope[T, PT, P]) Value() PT { return e.value }

// HasValue reports whether the envelope holds a value.
func (e *Envelope[T, PT, P]) HasValue() bool { return e.value != nil }

// Set replaces the held value.
func (e *Envelope[T, PT, P]) Set(v PT) { e.value = v }

// MarshalBinary encodes the held value and applies the bound policy.
func (e *Envelope[T, PT, P]) MarshalBinary() ([]byte, error) {
	if e.value == nil {
		return nil, fmt.Errorf("%s: %w", e.typeID, ErrNoValue)
	}

	w := binstream.NewWriter()
	if err := e.value.Encode(w); err != nil {
		return nil, fmt.Errorf("%s: encode: %w", e.typeID, err)
	}

	var policy P
	out, err := policy.Compress(w.Bytes())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", e.typeID, err)
	}
	return out, nil
}

// UnmarshalBinary reverses the bound policy and decodes a fresh value.
// The held value is replaced only when decoding fully succeeds.
func (e *Envelope[T, PT, P]) UnmarshalBinary(data []byte) error {
	var policy P
	raw, err := policy.Decompress(data)
	if err != nil {
		return fmt.Errorf("%s: %w", e.typeID, err)
	}

	v := PT(new(T))
	if err := binstream.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%s: decode: %w", e.typeID, err)
	}
	e.value = v
	return nil
}

// WriteTo writes the encoded, compressed value to w.
func (e *Envelope[T, PT, P]) WriteTo(w io.Writer) (int64, error) {
	data, err := e.MarshalBinary()
	if err != nil {
		return 0, err
	}
	n, err := w.Write(data)
	return int64(n), err
}

// ReadFrom reads r to EOF and decodes it as one value.
func (e *Envelope[T, PT, P]) ReadFrom(r io.Reader) (int64, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return int64(len(data)), fmt.Errorf("%s: read: %w", e.typeID, err)
	}
	return int64(len(data)), e.UnmarshalBinary(data)
}

func typeIDOf(e Entity) string {
	if e == nil {
		return "<nil>"
	}
	return e.TypeID()
}

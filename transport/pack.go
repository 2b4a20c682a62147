// Copyright (C) 2019-2025, NewsGate Authors. All rights reserved.
// See the file LICENSE for licensing terms.

package transport

import (
	"fmt"
	"io"
	"slices"

	"github.com/newsgate/rpc/binstream"
	"github.com/newsgate/rpc/compression"
)

// PackType binds a domain element type and a compression policy to a
// wire type identifier for bulk transport.
type PackType[T any, PT binstream.Value[T], P compression.Policy] struct {
	id string
}

// DefinePack declares a sequence transport type.
func DefinePack[T any, PT binstream.Value[T], P compression.Policy](id string) PackType[T, PT, P] {
	return PackType[T, PT, P]{id: id}
}

func (t PackType[T, PT, P]) ID() string { return t.id }

// New returns an empty pack for receiving.
func (t PackType[T, PT, P]) New() *Pack[T, PT, P] {
	return &Pack[T, PT, P]{typeID: t.id}
}

// Of returns a pack owning a copy of items, in order.
func (t PackType[T, PT, P]) Of(items ...T) *Pack[T, PT, P] {
	return &Pack[T, PT, P]{typeID: t.id, items: slices.Clone(items)}
}

func (t PackType[T, PT, P]) Factory() Factory {
	return func() Entity { return t.New() }
}

func (t PackType[T, PT, P]) Register(b *Builder) error {
	return b.Register(t.id, t.Factory())
}

// Unwrap asserts that e is a pack of this type and returns its items.
func (t PackType[T, PT, P]) Unwrap(e Entity) ([]T, error) {
	pack, ok := e.(*Pack[T, PT, P])
	if !ok || pack.typeID != t.id {
		return nil, fmt.Errorf("%w: got %s, want %s", ErrTypeMismatch, typeIDOf(e), t.id)
	}
	return pack.items, nil
}

// Pack owns an ordered sequence of domain values. One compression step
// covers the whole sequence.
type Pack[T any, PT binstream.Value[T], P compression.Policy] struct {
	typeID string
	items  []T
}

func (p *Pack[T, PT, P]) TypeID() string { return p.typeID }

func (p *Pack[T, PT, P]) Policy() string {
	var policy P
	return policy.Name()
}

// Items returns the held sequence. The pack keeps ownership.
func (p *Pack[T, PT, P]) Items() []T { return p.items }

func (p *Pack[T, PT, P]) Len() int { return len(p.items) }

// Append adds items to the end of the sequence.
func (p *Pack[T, PT, P]) Append(items ...T) {
	p.items = append(p.items, items...)
}

// MarshalBinary writes the count and every element in order, then
// applies the bound policy to the whole block.
func (p *Pack[T, PT, P]) MarshalBinary() ([]byte, error) {
	w := binstream.NewWriter()
	if err := binstream.WriteSeq[T, PT](w, p.items); err != nil {
		return nil, fmt.Errorf("%s: encode: %w", p.typeID, err)
	}

	var policy P
	out, err := policy.Compress(w.Bytes())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", p.typeID, err)
	}
	return out, nil
}

// UnmarshalBinary reverses the bound policy and decodes exactly the
// declared number of elements. The held sequence is replaced only when
// decoding fully succeeds.
func (p *Pack[T, PT, P]) UnmarshalBinary(data []byte) error {
	var policy P
	raw, err := policy.Decompress(data)
	if err != nil {
		return fmt.Errorf("%s: %w", p.typeID, err)
	}

	r := binstream.NewReader(raw)
	items := binstream.ReadSeq[T, PT](r)
	if err := r.Finish(); err != nil {
		return fmt.Errorf("%s: decode: %w", p.typeID, err)
	}
	p.items = items
	return nil
}

func (p *Pack[T, PT, P]) WriteTo(w io.Writer) (int64, error) {
	data, err := p.MarshalBinary()
	if err != nil {
		return 0, err
	}
	n, err := w.Write(data)
	return int64(n), err
}

func (p *Pack[T, PT, P]) ReadFrom(r io.Reader) (int64, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return int64(len(data)), fmt.Errorf("%s: read: %w", p.typeID, err)
	}
	return int64(len(data)), p.UnmarshalBinary(data)
}

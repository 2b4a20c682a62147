// Copyright (C) 2019-2025, NewsGate Authors. All rights reserved.
// See the file LICENSE for licensing terms.

// Package transport wraps domain values for transport across the RPC
// boundary.
//
// An Envelope carries one value, a Pack carries an ordered sequence of
// values of one type. Both are instantiated per domain type with a
// compression policy as a type argument, and both are identified on the
// wire by a stable type identifier:
//
//	var LimitCheckPack = transport.DefinePack[fraud.EventLimitCheck,
//	    *fraud.EventLimitCheck, compression.Gzip]("pack.fraud.v1")
//
//	pack := LimitCheckPack.Of(checks...)
//	data, err := pack.MarshalBinary()
//
// The receiving side does not know in advance which types a peer sends.
// It looks the identifier up in a Registry, built once at process start:
//
//	b := transport.NewBuilder()
//	if err := LimitCheckPack.Register(b); err != nil { ... }
//	registry := b.Freeze()
//
//	entity, err := registry.Decode("pack.fraud.v1", data)
//
// The Builder is the only writer and it is discarded once frozen, so the
// Registry is read concurrently without locks.
//
// Envelopes and packs are not safe for concurrent use; each belongs to
// the one call that created it.
package transport

// Copyright (C) 2019-2025, NewsGate Authors. All rights reserved.
// See the file LICENSE for licensing terms.

// Package bootstrap builds the process-wide transport registry from every
// domain area. Servers call InitializeTransportRegistry once at start and
// hand the result to rpc.Listen.
package bootstrap

import (
	"github.com/newsgate/rpc/ad"
	"github.com/newsgate/rpc/fraud"
	"github.com/newsgate/rpc/mailing"
	"github.com/newsgate/rpc/search"
	"github.com/newsgate/rpc/stat"
	"github.com/newsgate/rpc/transport"
)

// Registrars lists the registration routine of every domain area, in
// registration order.
func Registrars() []transport.Registrar {
	return []transport.Registrar{
		search.Register,
		ad.Register,
		fraud.Register,
		mailing.Register,
		stat.Register,
	}
}

// InitializeTransportRegistry registers every wire type and freezes the
// result. extra registrars run after the built-in ones.
func InitializeTransportRegistry(extra ...transport.Registrar) (*transport.Registry, error) {
	return transport.Initialize(append(Registrars(), extra...)...)
}

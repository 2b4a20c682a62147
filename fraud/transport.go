// Copyright (C) 2019-2025, NewsGate Authors. All rights reserved.
// See the file LICENSE for licensing terms.

package fraud

import (
	"github.com/newsgate/rpc/compression"
	"github.com/newsgate/rpc/transport"
)

var (
	LimitCheckPack = transport.DefinePack[EventLimitCheck, *EventLimitCheck, compression.Gzip](
		"pack.fraud.v1")
	LimitCheckResultPack = transport.DefinePack[EventLimitCheckResult, *EventLimitCheckResult, compression.Gzip](
		"pack.fraud.result.v1")
)

// Register adds the fraud prevention wire types to b.
func Register(b *transport.Builder) error {
	return transport.RegisterAll(b, LimitCheckPack, LimitCheckResultPack)
}

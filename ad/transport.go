// Copyright (C) 2019-2025, NewsGate Authors. All rights reserved.
// See the file LICENSE for licensing terms.

package ad

import (
	"github.com/newsgate/rpc/compression"
	"github.com/newsgate/rpc/transport"
)

var (
	SelectorType         = transport.DefineEntity[Selector, *Selector, compression.Gzip]("entity.ad.selector.v1")
	SelectionContextType = transport.DefineEntity[SelectionContext, *SelectionContext, compression.Identity]("entity.ad.selection_context.v1")
	SelectionType        = transport.DefineEntity[Selection, *Selection, compression.Gzip]("entity.ad.selection.v1")
	SelectionResultType  = transport.DefineEntity[SelectionResult, *SelectionResult, compression.Gzip]("entity.ad.selection_result.v1")
)

// Register adds the ad wire types to b.
func Register(b *transport.Builder) error {
	return transport.RegisterAll(b, SelectorType, SelectionContextType, SelectionType, SelectionResultType)
}

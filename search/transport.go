// Copyright (C) 2019-2025, NewsGate Authors. All rights reserved.
// See the file LICENSE for licensing terms.

package search

import (
	"github.com/newsgate/rpc/compression"
	"github.com/newsgate/rpc/transport"
)

var (
	ExpressionType = transport.DefineEntity[Expression, *Expression, compression.Identity]("entity.search.expression.v1")
	StrategyType   = transport.DefineEntity[Strategy, *Strategy, compression.Identity]("entity.search.strategy.v1")
	ResultType     = transport.DefineEntity[Result, *Result, compression.Identity]("entity.search.result.v1")
	StatType       = transport.DefineEntity[Stat, *Stat, compression.Identity]("entity.search.stat.v1")
)

// Register adds the search wire types to b.
func Register(b *transport.Builder) error {
	return transport.RegisterAll(b, ExpressionType, StrategyType, ResultType, StatType)
}

// Copyright (C) 2019-2025, NewsGate Authors. All rights reserved.
// See the file LICENSE for licensing terms.

package mailing

import (
	"github.com/newsgate/rpc/compression"
	"github.com/newsgate/rpc/transport"
)

var (
	SubscriptionType = transport.DefineEntity[Subscription, *Subscription, compression.Identity]("entity.mailing.subscription.v1")
	SubscriptionPack = transport.DefinePack[Subscription, *Subscription, compression.Gzip]("pack.mailing.subscription.v1")
	ConfirmationType = transport.DefineEntity[Confirmation, *Confirmation, compression.Identity]("entity.mailing.confirmation.v1")
)

// Register adds the search mailing wire types to b.
func Register(b *transport.Builder) error {
	return transport.RegisterAll(b, SubscriptionType, SubscriptionPack, ConfirmationType)
}

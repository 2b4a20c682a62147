// Copyright (C) 2019-2025, NewsGate Authors. All rights reserved.
// See the file LICENSE for licensing terms.

package moderation

import (
	"context"
	"fmt"

	"github.com/newsgate/rpc/compression"
	"github.com/newsgate/rpc/transport"
)

var (
	LoginType    = transport.DefineEntity[ModeratorLogin, *ModeratorLogin, compression.Identity]("entity.moderation.login.v1")
	LogoutType   = transport.DefineEntity[ModeratorLogout, *ModeratorLogout, compression.Identity]("entity.moderation.logout.v1")
	CategoryType = transport.DefineEntity[CategoryChange, *CategoryChange, compression.Gzip]("entity.moderation.category.v1")
)

// Register adds the moderation wire types to b.
func Register(b *transport.Builder) error {
	return transport.RegisterAll(b, LoginType, LogoutType, CategoryType)
}

// Service appends changes received over RPC to a Log.
type Service struct {
	log *Log
}

func NewService(log *Log) *Service {
	return &Service{log: log}
}

// Handle logs one change. It never answers. Its signature matches
// rpc.Handler.
func (s *Service) Handle(ctx context.Context, req transport.Entity) (transport.Entity, error) {
	if req == nil {
		return nil, transport.ErrNoValue
	}
	var (
		entry Entry
		err   error
	)
	switch req.TypeID() {
	case LoginType.ID():
		entry, err = LoginType.Unwrap(req)
	case LogoutType.ID():
		entry, err = LogoutType.Unwrap(req)
	case CategoryType.ID():
		entry, err = CategoryType.Unwrap(req)
	default:
		return nil, fmt.Errorf("moderation: %w: %s", transport.ErrTypeMismatch, req.TypeID())
	}
	if err != nil {
		return nil, err
	}
	if _, err := s.log.Append(ctx, entry); err != nil {
		return nil, err
	}
	return nil, nil
}

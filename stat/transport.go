// Copyright (C) 2019-2025, NewsGate Authors. All rights reserved.
// See the file LICENSE for licensing terms.

package stat

import (
	"github.com/newsgate/rpc/compression"
	"github.com/newsgate/rpc/transport"
)

var (
	RequestInfoPack        = transport.DefinePack[RequestInfo, *RequestInfo, compression.Gzip]("pack.stat.request.v1")
	PageImpressionInfoPack = transport.DefinePack[PageImpressionInfo, *PageImpressionInfo, compression.LZ4]("pack.stat.page_impression.v1")
	MessageClickInfoPack   = transport.DefinePack[MessageClickInfo, *MessageClickInfo, compression.Zstd]("pack.stat.message_click.v1")
)

// Register adds the statistics wire types to b.
func Register(b *transport.Builder) error {
	return transport.RegisterAll(b, RequestInfoPack, PageImpressionInfoPack, MessageClickInfoPack)
}

// Copyright (C) 2019-2025, NewsGate Authors. All rights reserved.
// See the file LICENSE for licensing terms.

// Package rpc carries NewsGate entities between processes.
//
// # Transport Selection
//
// Every transport is compiled in and chosen by name at runtime:
//
//	zap   length-prefixed binary frames over TCP (default)
//	grpc  frames as raw gRPC messages
//	json  frames base64-encoded in JSON-RPC 2.0 over HTTP
//
// # Usage
//
// Client usage:
//
//	client, err := rpc.Dial(ctx, "localhost:9000")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	reply := fraud.LimitCheckResultPack.New()
//	err = client.Call(ctx, "fraud.check", fraud.LimitCheckPack.Of(check), reply)
//
// Server usage:
//
//	registry, err := bootstrap.InitializeTransportRegistry()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	server, err := rpc.Listen(":9000", registry)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	server.Register("fraud.check", fraud.NewChecker().Handle)
//	server.Serve(ctx)
//
// # Architecture
//
//   - client.go: Client and Server interfaces, options
//   - codec.go: frame encoding around registered entities
//   - server.go: method dispatch shared by all transports
//   - transport.go: transport registry
//   - dial.go: Dial and Listen factory functions
//   - zap.go, dial_grpc.go, json.go: the transports
//   - metrics.go: Prometheus counters and OpenTelemetry spans
//
// Handlers see decoded entities. A request whose frame cannot be decoded
// fails that call only; the connection stays usable.
package rpc

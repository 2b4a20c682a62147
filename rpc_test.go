// Copyright (C) 2019-2025, NewsGate Authors. All rights reserved.
// See the file LICENSE for licensing terms.

package rpc

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newsgate/rpc/bootstrap"
	"github.com/newsgate/rpc/compression"
	"github.com/newsgate/rpc/fraud"
	"github.com/newsgate/rpc/mailing"
	"github.com/newsgate/rpc/search"
	"github.com/newsgate/rpc/stat"
	"github.com/newsgate/rpc/transport"
)

var allTransports = []string{TransportZAP, TransportGRPC, TransportJSON}

type fixture struct {
	server   Server
	client   Client
	metrics  *Metrics
	recorder *stat.Recorder
}

func newFixture(t *testing.T, name string) *fixture {
	t.Helper()

	registry, err := bootstrap.InitializeTransportRegistry()
	require.NoError(t, err)

	metrics := NewMetrics()
	server, err := Listen("127.0.0.1:0", registry,
		WithServerTransport(name),
		WithServerLogger(zerolog.Nop()),
		WithServerMetrics(metrics),
	)
	require.NoError(t, err)

	recorder := &stat.Recorder{}
	require.NoError(t, server.Register("fraud.check", fraud.NewChecker().Handle))
	require.NoError(t, server.Register("stat.record", recorder.Handle))
	require.NoError(t, server.Register("search.echo", func(_ context.Context, req transport.Entity) (transport.Entity, error) {
		return req, nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- server.Serve(ctx) }()

	client, err := Dial(ctx, server.Addr(), WithTransport(name), WithDialTimeout(time.Second))
	require.NoError(t, err)

	t.Cleanup(func() {
		client.Close()
		cancel()
		server.Close()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Error("server did not stop")
		}
	})
	return &fixture{server: server, client: client, metrics: metrics, recorder: recorder}
}

func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestEntityCall(t *testing.T) {
	for _, name := range allTransports {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, name)
			ctx := testContext(t)

			check := fraud.EventLimitCheck{EventID: 42, Window: 60, Times: 1, Count: 1}
			reply := fraud.LimitCheckResultPack.New()
			require.NoError(t, f.client.Call(ctx, "fraud.check", fraud.LimitCheckPack.Of(check, check, check), reply))

			assert.Equal(t, []fraud.EventLimitCheckResult{
				{LimitExceeded: false},
				{LimitExceeded: true},
				{LimitExceeded: true},
			}, reply.Items())

			assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.framesTotal.WithLabelValues(name, "pack.fraud.v1", "in")))
			assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.framesTotal.WithLabelValues(name, "pack.fraud.result.v1", "out")))
		})
	}
}

func TestVersionedEnvelopeCall(t *testing.T) {
	for _, name := range allTransports {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, name)
			ctx := testContext(t)

			expr := &search.Expression{Root: search.And(search.Words(search.OpAll, "war"), search.Words(search.OpLang, "eng"))}
			reply := search.ExpressionType.New()
			require.NoError(t, f.client.Call(ctx, "search.echo", search.ExpressionType.Wrap(expr), reply))
			assert.Equal(t, expr, reply.Value())
		})
	}
}

func TestMalformedRequestFailsOnlyThatCall(t *testing.T) {
	for _, name := range allTransports {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, name)
			ctx := testContext(t)

			good, err := EncodeFrame(fraud.LimitCheckPack.Of(fraud.EventLimitCheck{EventID: 1, Window: 60}))
			require.NoError(t, err)

			_, err = f.client.CallRaw(ctx, "fraud.check", good[:len(good)-1])
			var remote *RemoteError
			require.ErrorAs(t, err, &remote)
			assert.Contains(t, remote.Message, "malformed payload")
			assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.errorsTotal.WithLabelValues(name, "fraud.check", "malformed_payload")))

			resp, err := f.client.CallRaw(ctx, "fraud.check", good)
			require.NoError(t, err)
			reply := fraud.LimitCheckResultPack.New()
			require.NoError(t, DecodeInto(resp, reply))
			assert.Equal(t, 1, reply.Len())
		})
	}
}

func TestEmptyRequestFrameIsRejected(t *testing.T) {
	for _, name := range allTransports {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, name)
			ctx := testContext(t)

			_, err := f.client.CallRaw(ctx, "stat.record", nil)
			var remote *RemoteError
			require.ErrorAs(t, err, &remote)
			assert.Contains(t, remote.Message, "no value")
			assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.errorsTotal.WithLabelValues(name, "stat.record", "no_value")))

			// The server is still up.
			pack := stat.RequestInfoPack.Of(stat.RequestInfo{ID: "after"})
			require.NoError(t, f.client.Call(ctx, "stat.record", pack, nil))
		})
	}
}

func TestHandlerPanicFailsOnlyThatCall(t *testing.T) {
	for _, name := range allTransports {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, name)
			ctx := testContext(t)

			require.NoError(t, f.server.Register("search.crash", func(context.Context, transport.Entity) (transport.Entity, error) {
				panic("strategy table not loaded")
			}))

			strategy := search.DefaultStrategy()
			err := f.client.Call(ctx, "search.crash", search.StrategyType.Wrap(&strategy), nil)
			var remote *RemoteError
			require.ErrorAs(t, err, &remote)
			assert.Contains(t, remote.Message, "handler panicked")

			reply := search.StrategyType.New()
			require.NoError(t, f.client.Call(ctx, "search.echo", search.StrategyType.Wrap(&strategy), reply))
			assert.Equal(t, &strategy, reply.Value())
		})
	}
}

func TestVersionMismatchIsRemote(t *testing.T) {
	for _, name := range allTransports {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, name)
			ctx := testContext(t)

			frame, err := EncodeFrame(mailing.SubscriptionType.Wrap(&mailing.Subscription{Email: "a@example.com"}))
			require.NoError(t, err)
			// The payload follows the 4-byte length and the type id.
			frame[4+len(mailing.SubscriptionType.ID())+3] = 2

			_, err = f.client.CallRaw(ctx, "search.echo", frame)
			var remote *RemoteError
			require.ErrorAs(t, err, &remote)
			assert.Contains(t, remote.Message, "version mismatch")
		})
	}
}

func TestUnknownTypeAndMethod(t *testing.T) {
	for _, name := range allTransports {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, name)
			ctx := testContext(t)

			unknown := transport.DefineEntity[search.Strategy, *search.Strategy, compression.Identity]("entity.search.strategy.v9")
			strategy := search.DefaultStrategy()
			err := f.client.Call(ctx, "search.echo", unknown.Wrap(&strategy), nil)
			var remote *RemoteError
			require.ErrorAs(t, err, &remote)
			assert.Contains(t, remote.Message, "unknown wire type")

			err = f.client.Call(ctx, "search.missing", search.StrategyType.Wrap(&strategy), nil)
			require.ErrorAs(t, err, &remote)
			assert.Contains(t, remote.Message, "unknown method")
		})
	}
}

func TestReplyTypeMismatch(t *testing.T) {
	for _, name := range allTransports {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, name)
			ctx := testContext(t)

			strategy := search.DefaultStrategy()
			err := f.client.Call(ctx, "search.echo", search.StrategyType.Wrap(&strategy), search.ResultType.New())
			assert.ErrorIs(t, err, transport.ErrTypeMismatch)
		})
	}
}

func TestNotify(t *testing.T) {
	for _, name := range allTransports {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, name)
			ctx := testContext(t)

			pack := stat.RequestInfoPack.Of(stat.RequestInfo{ID: "a"}, stat.RequestInfo{ID: "b"})
			require.NoError(t, f.client.Notify(ctx, "stat.record", pack))

			var got []stat.RequestInfo
			require.Eventually(t, func() bool {
				requests, _, _ := f.recorder.Drain()
				got = append(got, requests...)
				return len(got) == 2
			}, 5*time.Second, 10*time.Millisecond)
			assert.Equal(t, "a", got[0].ID)
		})
	}
}

func TestRegisterDuplicateMethod(t *testing.T) {
	f := newFixture(t, TransportZAP)
	err := f.server.Register("fraud.check", fraud.NewChecker().Handle)
	assert.ErrorIs(t, err, ErrDuplicateMethod)
	assert.Error(t, f.server.RegisterRaw("", func(context.Context, []byte) ([]byte, error) { return nil, nil }))
}

func TestListenRequiresRegistry(t *testing.T) {
	_, err := Listen("127.0.0.1:0", nil)
	assert.ErrorIs(t, err, ErrNoRegistry)

	registry, err := bootstrap.InitializeTransportRegistry()
	require.NoError(t, err)
	_, err = Listen("127.0.0.1:0", registry, WithServerTransport("carrier-pigeon"))
	assert.ErrorIs(t, err, ErrUnknownTransport)

	_, err = Dial(context.Background(), "127.0.0.1:1", WithTransport("carrier-pigeon"))
	assert.ErrorIs(t, err, ErrUnknownTransport)
}

func TestAvailableTransports(t *testing.T) {
	assert.Equal(t, []string{"grpc", "json", "zap"}, AvailableTransports())
	assert.True(t, HasTransport(TransportGRPC))
	assert.False(t, HasTransport("carrier-pigeon"))
}

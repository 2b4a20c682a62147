// Copyright (C) 2019-2025, NewsGate Authors. All rights reserved.
// See the file LICENSE for licensing terms.

package bootstrap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newsgate/rpc/fraud"
	"github.com/newsgate/rpc/mailing"
	"github.com/newsgate/rpc/transport"
)

func TestInitializeTransportRegistry(t *testing.T) {
	registry, err := InitializeTransportRegistry()
	require.NoError(t, err)
	assert.Equal(t, 16, registry.Len())
	for _, id := range []string{
		"pack.fraud.v1",
		"pack.fraud.result.v1",
		"entity.search.expression.v1",
		"entity.ad.selector.v1",
		"entity.mailing.subscription.v1",
		"pack.stat.message_click.v1",
	} {
		assert.True(t, registry.Has(id), id)
	}
}

func TestInitializeRejectsDuplicateRegistrar(t *testing.T) {
	_, err := InitializeTransportRegistry(fraud.Register)
	assert.ErrorIs(t, err, transport.ErrDuplicateType)
}

func TestFraudPackThroughRegistry(t *testing.T) {
	registry, err := InitializeTransportRegistry()
	require.NoError(t, err)

	check := fraud.EventLimitCheck{EventID: 42, Window: 60}
	data, err := fraud.LimitCheckPack.Of(check, check, check).MarshalBinary()
	require.NoError(t, err)

	entity, err := registry.Decode("pack.fraud.v1", data)
	require.NoError(t, err)
	assert.Equal(t, "gzip", entity.Policy())

	checks, err := fraud.LimitCheckPack.Unwrap(entity)
	require.NoError(t, err)
	require.Len(t, checks, 3)
	for _, got := range checks {
		assert.Equal(t, check, got)
	}
}

func TestVersionedEnvelopeThroughRegistry(t *testing.T) {
	registry, err := InitializeTransportRegistry()
	require.NoError(t, err)

	sub := &mailing.Subscription{Email: "reader@example.com"}
	data, err := mailing.SubscriptionType.Wrap(sub).MarshalBinary()
	require.NoError(t, err)
	require.Equal(t, []byte{0, 0, 0, 1}, data[:4])
	data[3] = 2

	entity, err := registry.Decode(mailing.SubscriptionType.ID(), data)
	assert.ErrorIs(t, err, transport.ErrVersionMismatch)
	assert.Nil(t, entity)
}

func TestUnknownTypeThroughRegistry(t *testing.T) {
	registry, err := InitializeTransportRegistry()
	require.NoError(t, err)

	_, err = registry.Decode("pack.fraud.v2", nil)
	assert.ErrorIs(t, err, transport.ErrUnknownType)
}

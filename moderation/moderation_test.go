// Copyright (C) 2019-2025, NewsGate Authors. All rights reserved.
// See the file LICENSE for licensing terms.

package moderation

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newsgate/rpc/binstream"
	"github.com/newsgate/rpc/transport"
)

var moderator = Change{ModeratorID: 7, ModeratorName: "editor", IP: "10.0.0.7"}

func openLog(t *testing.T) *Log {
	t.Helper()
	l, err := Open(LogConfig{
		Path:     filepath.Join(t.TempDir(), "moderation.db"),
		PoolSize: 2,
		Logger:   zerolog.Nop(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, l.Close()) })
	return l
}

func TestChangeRoundTrip(t *testing.T) {
	entries := []Entry{
		&ModeratorLogin{Change: moderator, Result: LoginWrongPassword},
		&ModeratorLogout{Change: moderator, Reason: LogoutTimeout},
		&CategoryChange{
			Change:        moderator,
			CategoryID:    99,
			CategoryPath:  "/news/world/",
			Fields:        FieldName | FieldIncludedMessages,
			Sub:           CategoryUpdated,
			NewName:       "World",
			OldName:       "Globe",
			AddedIncluded: []uint64{1, 2},
		},
	}
	for _, e := range entries {
		t.Run(e.Type().String(), func(t *testing.T) {
			data, err := binstream.Marshal(e)
			require.NoError(t, err)

			got, err := newEntry(e.Type())
			require.NoError(t, err)
			require.NoError(t, binstream.Unmarshal(data, got))
			assert.Equal(t, e, got)
		})
	}
}

func TestChangeRejectsUnknownVersion(t *testing.T) {
	data, err := binstream.Marshal(&ModeratorLogin{Change: moderator})
	require.NoError(t, err)

	// The outer version is followed by the author block's own version.
	for _, offset := range []int{3, 7} {
		tampered := append([]byte(nil), data...)
		tampered[offset] = 2
		err := binstream.Unmarshal(tampered, &ModeratorLogin{})
		assert.ErrorIs(t, err, binstream.ErrVersionMismatch, "offset %d", offset)
	}
}

func TestChangeRejectsUnknownSubtype(t *testing.T) {
	data, err := binstream.Marshal(&ModeratorLogout{Change: moderator, Reason: logoutReasons})
	require.NoError(t, err)
	assert.ErrorIs(t, binstream.Unmarshal(data, &ModeratorLogout{}), binstream.ErrMalformedPayload)
}

func TestCategoryDetails(t *testing.T) {
	c := &CategoryChange{
		CategoryID:    5,
		CategoryPath:  "/sport/",
		Fields:        FieldName | FieldSearchable,
		Sub:           CategoryCreated,
		NewName:       "Sport",
		NewSearchable: true,
	}
	assert.Equal(t, "Category /sport/ created", c.Summary())
	assert.Equal(t, "/psp/category/update?id=5", c.URL())
	assert.Equal(t, "name:  -> Sport\nsearchable: false -> true\n", c.Details())
}

func TestLogAppendAndList(t *testing.T) {
	l := openLog(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := base
	l.now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}

	other := Change{ModeratorID: 8, ModeratorName: "night", IP: "10.0.0.8"}
	_, err := l.Append(ctx, &ModeratorLogin{Change: moderator})
	require.NoError(t, err)
	_, err = l.Append(ctx, &ModeratorLogin{Change: other})
	require.NoError(t, err)
	ids, err := l.Append(ctx,
		&CategoryChange{Change: moderator, CategoryID: 3, CategoryPath: "/tech/", Sub: CategoryDeleted},
		&ModeratorLogout{Change: moderator, Reason: LogoutManual},
	)
	require.NoError(t, err)
	assert.Len(t, ids, 2)

	records, err := l.List(ctx, Query{ModeratorID: moderator.ModeratorID})
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, TypeModeratorLogout, records[0].Type)
	assert.Equal(t, TypeCategoryChange, records[1].Type)
	assert.Equal(t, TypeModeratorLogin, records[2].Type)
	assert.Equal(t, "Category /tech/ deleted", records[1].Summary)
	assert.Equal(t, "editor", records[1].ModeratorName)
	assert.Equal(t, base.Add(3*time.Minute).UnixNano(), records[1].Time.UnixNano())

	entry, err := records[1].Entry()
	require.NoError(t, err)
	change, ok := entry.(*CategoryChange)
	require.True(t, ok)
	assert.Equal(t, uint64(3), change.CategoryID)

	login := TypeModeratorLogin
	records, err = l.List(ctx, Query{Type: &login, Limit: 1})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, other.ModeratorID, records[0].ModeratorID)

	records, err = l.List(ctx, Query{Since: base.Add(3 * time.Minute)})
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestRecordEntryVersionMismatch(t *testing.T) {
	data, err := binstream.Marshal(&ModeratorLogout{Change: moderator})
	require.NoError(t, err)
	data[3] = 9

	rec := Record{ID: 1, Type: TypeModeratorLogout, Data: data}
	_, err = rec.Entry()
	assert.ErrorIs(t, err, binstream.ErrVersionMismatch)

	_, err = (&Record{Type: Type(42)}).Entry()
	assert.Error(t, err)
}

func TestServiceHandle(t *testing.T) {
	l := openLog(t)
	svc := NewService(l)
	ctx := context.Background()

	b := transport.NewBuilder()
	require.NoError(t, Register(b))
	reg := b.Freeze()

	data, err := CategoryType.Wrap(&CategoryChange{Change: moderator, CategoryID: 11, Sub: CategoryCreated}).MarshalBinary()
	require.NoError(t, err)
	req, err := reg.Decode(CategoryType.ID(), data)
	require.NoError(t, err)

	reply, err := svc.Handle(ctx, req)
	require.NoError(t, err)
	assert.Nil(t, reply)

	records, err := l.List(ctx, Query{})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "/psp/category/update?id=11", records[0].URL)

	_, err = svc.Handle(ctx, LoginType.New())
	assert.ErrorIs(t, err, transport.ErrNoValue)

	_, err = svc.Handle(ctx, nil)
	assert.ErrorIs(t, err, transport.ErrNoValue)
}

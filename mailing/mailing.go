// Copyright (C) 2019-2025, NewsGate Authors. All rights reserved.
// See the file LICENSE for licensing terms.

// Package mailing carries search mail subscriptions between the front
// ends and the search mailer.
package mailing

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/newsgate/rpc/binstream"
)

// SubscriptionVersion is the only Subscription layout this build reads.
const SubscriptionVersion = 1

// MaxTimes bounds the delivery times of one subscription.
const MaxTimes = 24

var ErrTooManyTimes = errors.New("mailing: too many delivery times")

type Format uint8

const (
	FormatHTML Format = iota
	FormatText
	FormatAll
	formats
)

type Status uint8

const (
	StatusEnabled Status = iota
	StatusDisabled
	StatusDeleted
	statuses
)

// Time is a weekly delivery slot: a day (0 = every day, 1..7 = Monday
// to Sunday) and minutes since midnight.
type Time struct {
	Day    uint8
	Minute uint16
}

func compareTime(a, b Time) int {
	if c := cmp.Compare(a.Day, b.Day); c != 0 {
		return c
	}
	return cmp.Compare(a.Minute, b.Minute)
}

// Subscription is one saved search delivered by mail.
type Subscription struct {
	ID         uuid.UUID
	Status     Status
	RegTime    time.Time
	UpdateTime time.Time
	SearchTime uint64
	Email      string
	Format     Format
	Length     uint16
	TimeOffset int16
	Title      string
	Query      string
	Modifier   string
	Filter     string
	Lang       string
	Country    string
	UserID     string
	UserIP     string
	UserAgent  string
	Session    string
	Times      []Time
}

// NewSubscription returns an enabled subscription with a fresh id.
func NewSubscription(email, query string, now time.Time) *Subscription {
	return &Subscription{
		ID:         uuid.New(),
		RegTime:    now.UTC(),
		UpdateTime: now.UTC(),
		Email:      email,
		Query:      query,
		Length:     10,
	}
}

// SetTimes replaces the delivery times, sorted and deduplicated.
func (s *Subscription) SetTimes(times ...Time) error {
	sorted := slices.Clone(times)
	slices.SortFunc(sorted, compareTime)
	sorted = slices.Compact(sorted)
	if len(sorted) > MaxTimes {
		return fmt.Errorf("%w: %d > %d", ErrTooManyTimes, len(sorted), MaxTimes)
	}
	s.Times = sorted
	return nil
}

func (s *Subscription) Encode(w *binstream.Writer) error {
	w.WriteVersion(SubscriptionVersion)
	w.WriteRaw(s.ID[:])
	w.WriteUint8(uint8(s.Status))
	w.WriteTime(s.RegTime)
	w.WriteTime(s.UpdateTime)
	w.WriteUint64(s.SearchTime)
	w.WriteString(s.Email)
	w.WriteUint8(uint8(s.Format))
	w.WriteUint16(s.Length)
	w.WriteInt16(s.TimeOffset)
	for _, field := range []string{
		s.Title, s.Query, s.Modifier, s.Filter, s.Lang, s.Country,
		s.UserID, s.UserIP, s.UserAgent, s.Session,
	} {
		w.WriteString(field)
	}
	w.WriteCount(len(s.Times))
	for _, t := range s.Times {
		w.WriteUint8(t.Day)
		w.WriteUint16(t.Minute)
	}
	return nil
}

func (s *Subscription) Decode(r *binstream.Reader) error {
	if _, err := r.ExpectVersion(SubscriptionVersion); err != nil {
		return err
	}
	id, err := uuid.FromBytes(r.ReadRaw(16))
	if r.Err() == nil && err != nil {
		r.Fail(fmt.Errorf("%w: subscription id: %v", binstream.ErrMalformedPayload, err))
	}
	s.ID = id
	s.Status = Status(r.ReadUint8())
	s.RegTime = r.ReadTime()
	s.UpdateTime = r.ReadTime()
	s.SearchTime = r.ReadUint64()
	s.Email = r.ReadString()
	s.Format = Format(r.ReadUint8())
	s.Length = r.ReadUint16()
	s.TimeOffset = r.ReadInt16()
	for _, field := range []*string{
		&s.Title, &s.Query, &s.Modifier, &s.Filter, &s.Lang, &s.Country,
		&s.UserID, &s.UserIP, &s.UserAgent, &s.Session,
	} {
		*field = r.ReadString()
	}

	n := r.ReadCount()
	if r.Err() == nil && n > MaxTimes {
		r.Fail(fmt.Errorf("%w: %d delivery times", binstream.ErrMalformedPayload, n))
	}
	if r.Err() == nil && n > 0 {
		s.Times = make([]Time, n)
		for i := range s.Times {
			s.Times[i] = Time{Day: r.ReadUint8(), Minute: r.ReadUint16()}
		}
	}

	if r.Err() == nil && s.Status >= statuses {
		r.Fail(fmt.Errorf("%w: unknown status %d", binstream.ErrMalformedPayload, s.Status))
	}
	if r.Err() == nil && s.Format >= formats {
		r.Fail(fmt.Errorf("%w: unknown format %d", binstream.ErrMalformedPayload, s.Format))
	}
	return r.Err()
}

// Confirmation confirms a subscription change requested by mail.
type Confirmation struct {
	Token string
	User  string
	IP    string
	Agent string
}

func (c *Confirmation) Encode(w *binstream.Writer) error {
	w.WriteString(c.Token)
	w.WriteString(c.User)
	w.WriteString(c.IP)
	w.WriteString(c.Agent)
	return nil
}

func (c *Confirmation) Decode(r *binstream.Reader) error {
	c.Token = r.ReadString()
	c.User = r.ReadString()
	c.IP = r.ReadString()
	c.Agent = r.ReadString()
	return r.Err()
}

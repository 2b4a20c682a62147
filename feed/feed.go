// Copyright (C) 2019-2025, NewsGate Authors. All rights reserved.
// See the file LICENSE for licensing terms.

// Package feed defines the boundary between feed pullers and feed
// parsers: the parsed channel, the parser contract and the interceptor
// hooks a puller uses to observe parsing as it happens.
package feed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
)

var (
	// ErrParse is returned for documents that are not a valid feed.
	ErrParse = errors.New("feed: parse error")

	// ErrEncoding is returned when the document cannot be decoded in its
	// declared or configured character set. Pullers treat it apart from
	// ErrParse since a charset override often fixes it.
	ErrEncoding = fmt.Errorf("%w: encoding", ErrParse)
)

type Type uint8

const (
	TypeUndefined Type = iota
	TypeRSS
	TypeAtom
	TypeRDF
	TypeHTML
)

func (t Type) String() string {
	switch t {
	case TypeRSS:
		return "rss"
	case TypeAtom:
		return "atom"
	case TypeRDF:
		return "rdf"
	case TypeHTML:
		return "html"
	default:
		return "undefined"
	}
}

type Enclosure struct {
	URL    string
	Type   string
	Length int64
}

type Item struct {
	Published   time.Time
	Title       string
	Description string
	URL         string
	Keywords    string
	GUID        string
	Enclosures  []Enclosure
}

type Channel struct {
	Type          Type
	Title         string
	Description   string
	HTMLLink      string
	LastBuildDate time.Time
	TTL           time.Duration
	Lang          string
	Country       string
	Items         []Item
}

// SetLanguage splits a language tag such as "en-us" into Lang and Country.
func (c *Channel) SetLanguage(tag string) {
	lang, country, _ := strings.Cut(strings.TrimSpace(tag), "-")
	c.Lang = strings.ToLower(lang)
	c.Country = strings.ToUpper(country)
}

// SetLastBuildDate records when the channel was built. A date in the
// future is clamped to now, and the result is never older than the
// newest item already parsed.
func (c *Channel) SetLastBuildDate(t, now time.Time) {
	if t.After(now) {
		t = now
	}
	for _, item := range c.Items {
		if item.Published.After(t) {
			t = item.Published
		}
	}
	c.LastBuildDate = t
}

// SetPublished records item's publication time, clamped to now, and
// moves the channel build date forward when the item is newer. The
// build date is only moved once it is known.
func (c *Channel) SetPublished(item *Item, t, now time.Time) {
	if t.After(now) {
		t = now
	}
	item.Published = t
	if !c.LastBuildDate.IsZero() && c.LastBuildDate.Before(t) {
		c.LastBuildDate = t
	}
}

// Options tune one Parse call.
type Options struct {
	// FeedURL resolves relative links.
	FeedURL string
	// Charset overrides the encoding the document declares.
	Charset string
	// MaxSize bounds how many bytes are read; 0 means no limit.
	MaxSize int64
	// Interceptor, when set, observes parsing as it happens.
	Interceptor Interceptor
	// Now is the parse time used to clamp future dates; zero means
	// time.Now.
	Now time.Time
}

func (o *Options) now() time.Time {
	if o.Now.IsZero() {
		return time.Now()
	}
	return o.Now
}

// Parser turns a feed document into a Channel.
type Parser interface {
	Parse(ctx context.Context, src io.Reader, opts Options) (*Channel, error)
}

// Interceptor observes a parse in progress. PostLastBuildDate runs once
// the channel build date is known; PostItem runs after each item has been
// appended to the channel. An error aborts the parse and is returned by
// Parse as is, so pullers can stop early on feeds they have already seen.
type Interceptor interface {
	PostLastBuildDate(c *Channel) error
	PostItem(c *Channel) error
}

// InterceptorFuncs adapts plain functions to Interceptor. Nil fields are
// skipped.
type InterceptorFuncs struct {
	LastBuildDate func(c *Channel) error
	Item          func(c *Channel) error
}

func (f InterceptorFuncs) PostLastBuildDate(c *Channel) error {
	if f.LastBuildDate == nil {
		return nil
	}
	return f.LastBuildDate(c)
}

func (f InterceptorFuncs) PostItem(c *Channel) error {
	if f.Item == nil {
		return nil
	}
	return f.Item(c)
}

// classify wraps a decoder failure as ErrEncoding when its message points
// at the character set, ErrParse otherwise.
func classify(err error) error {
	msg := err.Error()
	if strings.Contains(msg, "encoding") ||
		strings.Contains(msg, "charset") ||
		strings.Contains(msg, "invalid UTF-8") {
		return fmt.Errorf("%w: %v", ErrEncoding, err)
	}
	return fmt.Errorf("%w: %v", ErrParse, err)
}

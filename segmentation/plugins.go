// Copyright (C) 2019-2025, NewsGate Authors. All rights reserved.
// See the file LICENSE for licensing terms.

package segmentation

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/clipperhouse/uax29/v2/words"
	"golang.org/x/text/unicode/norm"
)

func init() {
	Register("whitespace", newWhitespace)
	Register("uax29", newWordBoundary)
}

// whitespace leaves posts untouched and normalizes query spacing.
type whitespace struct{}

func newWhitespace(args string) (Segmenter, error) {
	if strings.TrimSpace(args) != "" {
		return nil, fmt.Errorf("whitespace takes no arguments, got %q", args)
	}
	return whitespace{}, nil
}

func (whitespace) SegmentText(src string) (string, error) { return src, nil }

func (whitespace) SegmentQuery(src string) (string, error) {
	return strings.Join(strings.Fields(src), " "), nil
}

// wordBoundary inserts a space at every Unicode word boundary (UAX #29)
// that is not already next to one, splitting runs of ideographs into
// single characters.
type wordBoundary struct {
	lower bool
}

// newWordBoundary accepts "lower" to lower-case queries.
func newWordBoundary(args string) (Segmenter, error) {
	s := wordBoundary{}
	for _, arg := range strings.Fields(args) {
		switch arg {
		case "lower":
			s.lower = true
		default:
			return nil, fmt.Errorf("uax29: unknown argument %q", arg)
		}
	}
	return s, nil
}

func (wordBoundary) SegmentText(src string) (string, error) {
	var b strings.Builder
	b.Grow(len(src) + len(src)/4)

	prev := ""
	tokens := words.FromString(src)
	for tokens.Next() {
		tok := tokens.Value()
		if prev != "" && needsSpace(prev, tok) {
			b.WriteByte(' ')
		}
		b.WriteString(tok)
		prev = tok
	}
	return b.String(), nil
}

func (s wordBoundary) SegmentQuery(src string) (string, error) {
	query := norm.NFC.String(src)
	if s.lower {
		query = strings.ToLower(query)
	}
	text, err := s.SegmentText(query)
	if err != nil {
		return "", err
	}
	return strings.Join(strings.Fields(text), " "), nil
}

// needsSpace reports whether two adjacent segments should be separated:
// neither is whitespace and at least one holds a letter or digit.
func needsSpace(a, b string) bool {
	if isSpace(a) || isSpace(b) {
		return false
	}
	return isWordlike(a) || isWordlike(b)
}

func isSpace(s string) bool {
	return strings.IndexFunc(s, func(r rune) bool { return !unicode.IsSpace(r) }) < 0
}

func isWordlike(s string) bool {
	return strings.IndexFunc(s, func(r rune) bool { return unicode.IsLetter(r) || unicode.IsNumber(r) }) >= 0
}

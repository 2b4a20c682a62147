// Copyright (C) 2019-2025, NewsGate Authors. All rights reserved.
// See the file LICENSE for licensing terms.

package segmentation

import (
	"context"
	"strings"

	"github.com/newsgate/rpc/search"
	"github.com/newsgate/rpc/transport"
)

// Service segments the words of search expressions before they reach the
// search engine.
type Service struct {
	seg Segmenter
}

func NewService(seg Segmenter) *Service {
	return &Service{seg: seg}
}

// Handle answers a search expression with a copy whose words went through
// SegmentQuery. Its signature matches rpc.Handler.
func (s *Service) Handle(ctx context.Context, req transport.Entity) (transport.Entity, error) {
	expr, err := search.ExpressionType.Unwrap(req)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out, err := s.SegmentExpression(expr)
	if err != nil {
		return nil, err
	}
	return search.ExpressionType.Wrap(out), nil
}

// SegmentExpression returns a copy of expr with every word segmented.
func (s *Service) SegmentExpression(expr *search.Expression) (*search.Expression, error) {
	root, err := s.condition(expr.Root)
	if err != nil {
		return nil, err
	}
	return &search.Expression{Root: root}, nil
}

func (s *Service) condition(c search.Condition) (search.Condition, error) {
	out := search.Condition{Op: c.Op}
	if len(c.Words) > 0 {
		out.Words = make([]string, 0, len(c.Words))
		for _, word := range c.Words {
			segmented, err := s.seg.SegmentQuery(word)
			if err != nil {
				return search.Condition{}, err
			}
			out.Words = append(out.Words, strings.Fields(segmented)...)
		}
	}
	if len(c.Operands) > 0 {
		out.Operands = make([]search.Condition, 0, len(c.Operands))
		for _, operand := range c.Operands {
			seg, err := s.condition(operand)
			if err != nil {
				return search.Condition{}, err
			}
			out.Operands = append(out.Operands, seg)
		}
	}
	return out, nil
}

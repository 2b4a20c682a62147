// Copyright (C) 2019-2025, NewsGate Authors. All rights reserved.
// See the file LICENSE for licensing terms.

// Package search defines the values exchanged with the search engine:
// the query expression, the strategy applied to it and the result.
package search

import (
	"fmt"
	"strings"

	"github.com/newsgate/rpc/binstream"
)

// ExpressionVersion is the only Expression layout this build reads.
const ExpressionVersion = 1

// maxDepth bounds condition nesting on decode.
const maxDepth = 64

// Op is a condition operator.
type Op uint8

const (
	OpAll Op = iota
	OpAny
	OpSite
	OpURL
	OpOr
	OpAnd
	OpExcept
	OpLang
	OpCountry
	OpCategory
	OpNone
)

var opNames = [...]string{"ALL", "ANY", "SITE", "URL", "OR", "AND", "EXCEPT", "LANG", "COUNTRY", "CATEGORY", "NONE"}

func (o Op) String() string {
	if int(o) < len(opNames) {
		return opNames[o]
	}
	return fmt.Sprintf("Op(%d)", uint8(o))
}

func (o Op) composite() bool { return o == OpOr || o == OpAnd || o == OpExcept }

// Condition is one node of the expression tree. Leaf operators carry
// words, composite operators carry operands.
type Condition struct {
	Op       Op
	Words    []string
	Operands []Condition
}

// Words returns a leaf condition.
func Words(op Op, words ...string) Condition {
	return Condition{Op: op, Words: words}
}

// And returns the conjunction of operands.
func And(operands ...Condition) Condition { return Condition{Op: OpAnd, Operands: operands} }

// Or returns the disjunction of operands.
func Or(operands ...Condition) Condition { return Condition{Op: OpOr, Operands: operands} }

// Except returns base with every match of exclude removed.
func Except(base, exclude Condition) Condition {
	return Condition{Op: OpExcept, Operands: []Condition{base, exclude}}
}

func (c Condition) String() string {
	if !c.Op.composite() {
		if len(c.Words) == 0 {
			return c.Op.String()
		}
		return c.Op.String() + " " + strings.Join(c.Words, " ")
	}
	parts := make([]string, len(c.Operands))
	for i, operand := range c.Operands {
		parts[i] = operand.String()
	}
	return "(" + strings.Join(parts, " "+c.Op.String()+" ") + ")"
}

func (c *Condition) encode(w *binstream.Writer) {
	w.WriteUint8(uint8(c.Op))
	if !c.Op.composite() {
		w.WriteStrings(c.Words)
		return
	}
	w.WriteCount(len(c.Operands))
	for i := range c.Operands {
		c.Operands[i].encode(w)
	}
}

func (c *Condition) decode(r *binstream.Reader, depth int) {
	if depth > maxDepth {
		r.Fail(fmt.Errorf("%w: condition nesting exceeds %d", binstream.ErrMalformedPayload, maxDepth))
		return
	}
	c.Op = Op(r.ReadUint8())
	if r.Err() != nil {
		return
	}
	if c.Op > OpNone {
		r.Fail(fmt.Errorf("%w: unknown operator %d", binstream.ErrMalformedPayload, uint8(c.Op)))
		return
	}
	if !c.Op.composite() {
		c.Words = r.ReadStrings()
		return
	}

	n := r.ReadCount()
	// Each operand takes at least its operator byte and a count.
	if n > r.Remaining()/5 {
		r.Fail(fmt.Errorf("%w: %d operands exceed %d remaining bytes",
			binstream.ErrMalformedPayload, n, r.Remaining()))
		return
	}
	if n == 0 {
		return
	}
	c.Operands = make([]Condition, n)
	for i := range c.Operands {
		c.Operands[i].decode(r, depth+1)
		if r.Err() != nil {
			c.Operands = nil
			return
		}
	}
}

// Expression is a compiled search query.
type Expression struct {
	Root Condition
}

func (e *Expression) String() string { return e.Root.String() }

func (e *Expression) Encode(w *binstream.Writer) error {
	w.WriteVersion(ExpressionVersion)
	e.Root.encode(w)
	return nil
}

func (e *Expression) Decode(r *binstream.Reader) error {
	if _, err := r.ExpectVersion(ExpressionVersion); err != nil {
		return err
	}
	e.Root.decode(r, 0)
	return r.Err()
}

// Copyright (c) Roman Atachiants and contributors. All rights reserved.
// Licensed under the MIT license. See LICENSE file in the project root for details.

package jsonidx

import (
	"fmt"
	"strings"

	"github.com/kelindar/bitmap"
)

// FilterNode is a node in a filter tree: either a leaf Predicate or an
// And/Or combinator over child nodes (spec.md §4.8).
type FilterNode interface {
	isFilterNode()
}

// PredicateNode wraps a single leaf Predicate.
type PredicateNode struct {
	Predicate Predicate
}

func (PredicateNode) isFilterNode() {}

// AndNode requires every child to match.
type AndNode struct {
	Children []FilterNode
}

func (AndNode) isFilterNode() {}

// OrNode requires at least one child to match.
type OrNode struct {
	Children []FilterNode
}

func (OrNode) isFilterNode() {}

// Leaf wraps p as a FilterNode.
func Leaf(p Predicate) FilterNode {
	return PredicateNode{Predicate: p}
}

// And builds an AndNode over children.
func And(children ...FilterNode) FilterNode {
	return AndNode{Children: children}
}

// Or builds an OrNode over children.
func Or(children ...FilterNode) FilterNode {
	return OrNode{Children: children}
}

// filterEvalState carries the per-query state a single MatchingDocIds call
// threads through the recursive evaluator: the shared dictionary/posting
// views, a memo of leaf-predicate results scoped to this one call (spec.md
// §12, not retained across calls), and the caller's cancellation check.
type filterEvalState struct {
	ctx    *evalContext
	memo   map[string]bitmap.Bitmap
	cancel func() bool
}

func newFilterEvalState(ctx *evalContext, cancel func() bool) *filterEvalState {
	return &filterEvalState{
		ctx:    ctx,
		memo:   make(map[string]bitmap.Bitmap),
		cancel: cancel,
	}
}

func (s *filterEvalState) checkCancelled() error {
	if s.cancel != nil && s.cancel() {
		return ErrCancelled
	}
	return nil
}

// memoKey builds a structural identity for p so that AND(p, OR(p, q))
// style trees evaluate p's postings once per query instead of once per
// occurrence (spec.md §12).
func memoKey(p Predicate) string {
	var b strings.Builder
	b.WriteString(p.Kind.String())
	b.WriteByte(0)
	b.WriteString(p.Key)
	b.WriteByte(0)
	b.WriteString(p.Value)
	b.WriteByte(0)
	b.WriteString(strings.Join(p.Values, "\x00"))
	return b.String()
}

func (s *filterEvalState) evalPredicate(p Predicate) (bitmap.Bitmap, error) {
	key := memoKey(p)
	if bm, ok := s.memo[key]; ok {
		return cloneBitmap(bm), nil
	}

	bm, err := evaluatePredicate(s.ctx, p)
	if err != nil {
		return nil, err
	}
	s.memo[key] = bm
	return cloneBitmap(bm), nil
}

// evalInclusive evaluates node over flattened doc ids, treating every
// predicate it visits in its inclusive form. An exclusive predicate below
// an And/Or is rejected: negation is only sound once, at the filter root,
// after projecting down to source doc ids (spec.md §4.7, §4.8).
func (s *filterEvalState) evalInclusive(node FilterNode) (bitmap.Bitmap, error) {
	switch n := node.(type) {
	case PredicateNode:
		if n.Predicate.Exclusive() {
			return nil, fmt.Errorf("%w: %s on %q", ErrNestedExclusive, n.Predicate.Kind, n.Predicate.Key)
		}
		return s.evalPredicate(n.Predicate)

	case AndNode:
		var acc bitmap.Bitmap
		for _, child := range n.Children {
			if err := s.checkCancelled(); err != nil {
				return nil, err
			}
			bm, err := s.evalInclusive(child)
			if err != nil {
				return nil, err
			}
			if acc == nil {
				acc = bm
			} else {
				acc.And(bm)
			}
		}
		if acc == nil {
			return bitmap.Bitmap{}, nil
		}
		return acc, nil

	case OrNode:
		var acc bitmap.Bitmap
		for _, child := range n.Children {
			if err := s.checkCancelled(); err != nil {
				return nil, err
			}
			bm, err := s.evalInclusive(child)
			if err != nil {
				return nil, err
			}
			if acc == nil {
				acc = bm
			} else {
				acc.Or(bm)
			}
		}
		if acc == nil {
			return bitmap.Bitmap{}, nil
		}
		return acc, nil

	default:
		return nil, fmt.Errorf("%w: unrecognized filter node %T", ErrUnsupportedPredicate, node)
	}
}

// evaluate is the Filter Evaluator entry point (C8). It special-cases an
// exclusive predicate at the filter root: the inclusive form is evaluated
// over flattened doc ids, projected to the set of source doc ids it
// touches, and complemented against every source doc id (spec.md §4.8).
// Every other shape is evaluated inclusively and returned as-is, still in
// flattened-doc-id space; the Reader Facade (C9) is responsible for
// projecting an inclusive root's result to source doc ids.
func (s *filterEvalState) evaluate(root FilterNode) (bitmap.Bitmap, error) {
	if leaf, ok := root.(PredicateNode); ok && leaf.Predicate.Exclusive() {
		return s.evaluateExclusiveRoot(leaf.Predicate)
	}
	return s.evalInclusive(root)
}

// evaluateExclusiveRoot implements spec.md §4.8's root-only negation: it
// evaluates p's inclusive counterpart over flattened doc ids, maps every
// matching flattened id to its source doc id, and returns the complement
// of that set against [0, numSourceDocs).
func (s *filterEvalState) evaluateExclusiveRoot(p Predicate) (bitmap.Bitmap, error) {
	inclusive := inclusiveCounterpart(p)

	matched, err := s.evalPredicate(inclusive)
	if err != nil {
		return nil, err
	}

	numSourceDocs, err := s.ctx.numSourceDocs()
	if err != nil {
		return nil, err
	}

	var excludedSrc bitmap.Bitmap
	if numSourceDocs > 0 {
		excludedSrc.Grow(numSourceDocs - 1)
	}
	var rangeErr error
	matched.Range(func(flat uint32) {
		if rangeErr != nil {
			return
		}
		src, err := s.ctx.mapping.ToSource(flat)
		if err != nil {
			rangeErr = err
			return
		}
		excludedSrc.Set(src)
	})
	if rangeErr != nil {
		return nil, rangeErr
	}

	var result bitmap.Bitmap
	if numSourceDocs > 0 {
		result.Grow(numSourceDocs - 1)
	}
	for i := uint32(0); i < numSourceDocs; i++ {
		result.Set(i)
	}
	result.AndNot(excludedSrc)
	return result, nil
}

// inclusiveCounterpart returns the inclusive predicate whose complement
// (over source doc ids) defines p's semantics: NotEq(v) via Eq(v), NotIn
// via In, IsNull via IsNotNull.
func inclusiveCounterpart(p Predicate) Predicate {
	switch p.Kind {
	case NotEq:
		return Predicate{Kind: Eq, Key: p.Key, Value: p.Value}
	case NotIn:
		return Predicate{Kind: In, Key: p.Key, Values: p.Values}
	case IsNull:
		return Predicate{Kind: IsNotNull, Key: p.Key}
	default:
		return p
	}
}

// Copyright (c) Roman Atachiants and contributors. All rights reserved.
// Licensed under the MIT license. See LICENSE file in the project root for details.

package jsonidx

import (
	"fmt"

	"github.com/kelindar/bitmap"

	"github.com/yeshreddy7/pinot-clone/wire"
)

// PredicateKind discriminates the supported predicate shapes. It replaces
// the source implementation's subtype hierarchy (EqPredicate,
// NotEqPredicate, ...) with a single exhaustively-matched tagged variant,
// per spec.md §9's design note.
type PredicateKind uint8

const (
	Eq PredicateKind = iota
	NotEq
	In
	NotIn
	IsNull
	IsNotNull
)

func (k PredicateKind) String() string {
	switch k {
	case Eq:
		return "EQ"
	case NotEq:
		return "NOT_EQ"
	case In:
		return "IN"
	case NotIn:
		return "NOT_IN"
	case IsNull:
		return "IS_NULL"
	case IsNotNull:
		return "IS_NOT_NULL"
	default:
		return fmt.Sprintf("PredicateKind(%d)", uint8(k))
	}
}

// Predicate is a single leaf condition against a key path. Key is the raw,
// possibly bracketed path (e.g. "tags[0]" or "user.address.city"). Value
// is used by Eq/NotEq; Values is used by In/NotIn; neither is read for
// IsNull/IsNotNull.
type Predicate struct {
	Kind   PredicateKind
	Key    string
	Value  string
	Values []string
}

// Exclusive reports whether p's truth over a source doc requires that NO
// flattened expansion of that doc satisfy p's inclusive form (spec.md
// §4.7, §9 glossary). NotEq, NotIn and IsNull are exclusive; Eq, In and
// IsNotNull are inclusive.
func (p Predicate) Exclusive() bool {
	switch p.Kind {
	case NotEq, NotIn, IsNull:
		return true
	default:
		return false
	}
}

// evalContext bundles the read-only views a predicate needs to resolve
// against: the dictionary and posting store decoded from the artifact,
// and the reader's key-path resolver cache.
type evalContext struct {
	dict     *wire.Dictionary
	postings *wire.PostingStore
	mapping  *wire.Mapping
	resolver *keyResolver
}

// numSourceDocs returns the number of source documents the artifact was
// built from, per wire.Mapping.NumSourceDocs.
func (ctx *evalContext) numSourceDocs() (uint32, error) {
	return ctx.mapping.NumSourceDocs()
}

// evaluatePredicate implements the Predicate Evaluator (C7): it resolves
// p's key into constraint tokens and a residual key, intersects the
// constraint postings, computes a predicate-specific value bitmap, and
// intersects the two. Exclusive predicates are evaluated in their
// inclusive form here; negation is the Filter Evaluator's job, applied
// exactly once at the filter root (spec.md §4.7, §4.8).
func evaluatePredicate(ctx *evalContext, p Predicate) (bitmap.Bitmap, error) {
	resolved, err := ctx.resolver.resolve(p.Key)
	if err != nil {
		return nil, err
	}

	var acc bitmap.Bitmap // None
	for _, token := range resolved.constraints {
		id := ctx.dict.IndexOf([]byte(token))
		if id == wire.NotFound {
			return bitmap.Bitmap{}, nil
		}
		bm, err := ctx.postings.Bitmap(id)
		if err != nil {
			return nil, err
		}
		if acc == nil {
			acc = cloneBitmap(bm)
		} else {
			acc.And(bm)
		}
	}

	value, err := evaluateValueBitmap(ctx, resolved.residual, p)
	if err != nil {
		return nil, err
	}

	if acc == nil {
		return cloneBitmap(value), nil
	}
	acc.And(value)
	return acc, nil
}

// evaluateValueBitmap computes V from spec.md §4.7 step 3 for the given
// predicate kind and residual key.
func evaluateValueBitmap(ctx *evalContext, residual string, p Predicate) (bitmap.Bitmap, error) {
	switch p.Kind {
	case Eq, NotEq:
		return lookupPostings(ctx, keyValueToken(residual, p.Value))
	case In, NotIn:
		var union bitmap.Bitmap
		for _, v := range p.Values {
			bm, err := lookupPostings(ctx, keyValueToken(residual, v))
			if err != nil {
				return nil, err
			}
			if len(bm) == 0 {
				continue
			}
			if union == nil {
				union = cloneBitmap(bm)
			} else {
				union.Or(bm)
			}
		}
		if union == nil {
			union = bitmap.Bitmap{}
		}
		return union, nil
	case IsNull, IsNotNull:
		return lookupPostings(ctx, []byte(residual))
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedPredicate, p.Kind)
	}
}

// lookupPostings resolves token to a dictionary id and returns its
// posting, or an empty bitmap if the token was never emitted by the
// builder (spec.md §4.7 step 3; §8 property P6).
func lookupPostings(ctx *evalContext, token []byte) (bitmap.Bitmap, error) {
	id := ctx.dict.IndexOf(token)
	if id == wire.NotFound {
		return bitmap.Bitmap{}, nil
	}
	return ctx.postings.Bitmap(id)
}

// cloneBitmap returns an owned, independently mutable copy of src. Every
// bitmap evaluatePredicate and the Filter Evaluator hand back up the tree
// is owned this way, so folding AND/OR into an accumulator never mutates
// a bitmap borrowed from the posting store (spec.md §4.4, §9).
func cloneBitmap(src bitmap.Bitmap) bitmap.Bitmap {
	var dst bitmap.Bitmap
	src.Clone(&dst)
	return dst
}

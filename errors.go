// Copyright (c) Roman Atachiants and contributors. All rights reserved.
// Licensed under the MIT license. See LICENSE file in the project root for details.

package jsonidx

import (
	"errors"

	"github.com/yeshreddy7/pinot-clone/wire"
)

// ErrCorruptIndex reports a header version mismatch, an inconsistent
// region size, or an offset that escapes the mapped region. Fatal to the
// Reader instance that produced it.
//
// This is the same sentinel wire.DecodeHeader and friends return — both
// packages can detect corruption, and a single errors.Is(err,
// jsonidx.ErrCorruptIndex) check covers either source.
var ErrCorruptIndex = wire.ErrCorruptIndex

// ErrMalformedKey reports that the Key Path Resolver could not parse a
// predicate's key: unbalanced brackets, an empty index, or a non-decimal
// or negative index.
var ErrMalformedKey = errors.New("jsonidx: malformed key")

// ErrUnsupportedPredicate reports a predicate kind outside {Eq, NotEq, In,
// NotIn, IsNull, IsNotNull}.
var ErrUnsupportedPredicate = errors.New("jsonidx: unsupported predicate")

// ErrNestedExclusive reports that an exclusive predicate (NotEq, NotIn,
// IsNull) appeared below an And/Or node. Exclusive predicates may only
// appear as the root of a filter tree, because negation can only be
// applied correctly to source doc ids, not to flattened doc ids
// (spec.md §4.7).
var ErrNestedExclusive = errors.New("jsonidx: exclusive predicate cannot be nested")

// ErrCancelled reports that the caller-supplied cancellation check
// requested that an in-progress query stop.
var ErrCancelled = errors.New("jsonidx: query cancelled")

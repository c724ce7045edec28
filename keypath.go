// Copyright (c) Roman Atachiants and contributors. All rights reserved.
// Licensed under the MIT license. See LICENSE file in the project root for details.

package jsonidx

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/zeebo/xxh3"
)

// resolvedKey is the result of rewriting a raw key path with array indices
// into an ordered chain of constraint tokens plus the residual key used
// for the value comparison itself (spec.md §4.6).
type resolvedKey struct {
	constraints []string // key tokens, e.g. "tags.$index=0", in encounter order
	residual    string   // e.g. "tags" once every index has been peeled off
}

// keyResolver implements the Key Path Resolver (C6) with a per-Reader
// memoization cache: the surrounding query engine commonly re-issues the
// same predicate (and therefore the same raw key) once per candidate row,
// so caching the parse avoids repeating the bracket-rewriting loop on
// every call to MatchingDocIds. The cache is keyed by an xxh3 hash of the
// raw key rather than the key itself, following the same hash-keyed-cache
// idiom the teacher uses for its own map columns (maps_test.go).
type keyResolver struct {
	cache sync.Map // uint64 (xxh3 hash) -> resolvedKey or error
}

type resolveCacheEntry struct {
	key resolvedKey
	err error
}

func (r *keyResolver) resolve(raw string) (resolvedKey, error) {
	h := xxh3.HashString(raw)
	if v, ok := r.cache.Load(h); ok {
		entry := v.(resolveCacheEntry)
		return entry.key, entry.err
	}

	key, err := resolveKeyPath(raw)
	r.cache.Store(h, resolveCacheEntry{key: key, err: err})
	return key, err
}

// resolveKeyPath rewrites a raw key such as "foo[0].bar[1].baz" into an
// ordered list of constraint tokens ("foo.$index=0", "foo.bar.$index=1")
// plus the residual key ("foo.bar.baz") used for the value comparison.
//
// This is a direct port of Apache Pinot's ImmutableJsonIndexReader bracket
// rewriting loop: repeatedly find the first '[', require a matching ']'
// after it, parse the bracketed substring as a non-negative decimal
// index, emit a constraint token for the prefix before '[', then continue
// scanning the key with the bracket pair removed. The original only
// enters this loop while indexOf('[') > 0, so a key that starts with '['
// (no field name before it) is never rewritten at all; it falls through
// as the residual key unchanged, which will simply miss every dictionary
// lookup rather than erroring.
func resolveKeyPath(raw string) (resolvedKey, error) {
	var constraints []string
	key := raw

	for {
		left := strings.IndexByte(key, '[')
		if left <= 0 {
			// No '[' at all, or one with no field name before it. The
			// original only rewrites while indexOf('[') > 0; a leading
			// '[' falls through unrewritten and is left in the residual
			// key, which will simply never match anything the builder
			// emitted.
			break
		}

		right := strings.IndexByte(key, ']')
		if right <= left {
			return resolvedKey{}, fmt.Errorf("%w: %q is missing a closing ']'", ErrMalformedKey, raw)
		}

		leftPart := key[:left]
		idxStr := key[left+1 : right]
		rightPart := key[right+1:]

		idx, err := parseArrayIndex(idxStr)
		if err != nil {
			return resolvedKey{}, fmt.Errorf("%w: %q has an invalid array index %q", ErrMalformedKey, raw, idxStr)
		}

		constraints = append(constraints, leftPart+string(KeySeparator)+arrayIndexKey+strconv.Itoa(idx))
		key = leftPart + rightPart
	}

	return resolvedKey{constraints: constraints, residual: key}, nil
}

// parseArrayIndex accepts only a non-empty string of decimal digits: no
// sign, no leading '+', no whitespace. "[]" and "[-1]" are both rejected
// this way, matching spec.md §4.6's edge cases.
func parseArrayIndex(s string) (int, error) {
	if s == "" {
		return 0, fmt.Errorf("empty index")
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("non-decimal index")
		}
	}
	return strconv.Atoi(s)
}

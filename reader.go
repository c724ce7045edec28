// Copyright (c) Roman Atachiants and contributors. All rights reserved.
// Licensed under the MIT license. See LICENSE file in the project root for details.

package jsonidx

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/kelindar/bitmap"

	"github.com/yeshreddy7/pinot-clone/wire"
)

// slowQueryThreshold is the MatchingDocIds latency above which a Warn is
// logged. It is not configurable: it exists to flag pathological filters
// during development, not to drive alerting.
const slowQueryThreshold = 50 * time.Millisecond

// Reader is the read-only facade over a decoded JSON index artifact (C9).
// It owns no heap bitmaps until a query runs: opening a Reader only
// decodes the header, the dictionary and the mapping, and scans the
// posting region's length prefixes without touching a single posting's
// payload.
type Reader struct {
	region   []byte
	dict     *wire.Dictionary
	postings *wire.PostingStore
	mapping  *wire.Mapping
	resolver *keyResolver
	opts     options
	closed   atomic.Bool
}

// New decodes region as a JSON index artifact. region must remain valid
// and unchanged for the lifetime of the returned Reader; callers that
// mmap a file should keep the mapping open until after Close (see the
// mmapfile package).
func New(region []byte, opts ...Option) (*Reader, error) {
	resolved := resolveOptions(opts...)

	header, err := wire.DecodeHeader(region)
	if err != nil {
		resolved.logger.Error("jsonidx: corrupt index header", "error", err)
		return nil, err
	}

	dict, err := wire.NewDictionary(header.DictionaryRegion.Bytes(), int(header.MaxTokenLength))
	if err != nil {
		resolved.logger.Error("jsonidx: corrupt dictionary region", "error", err)
		return nil, err
	}

	mapping, err := wire.NewMapping(header.MappingRegion.Bytes())
	if err != nil {
		resolved.logger.Error("jsonidx: corrupt mapping region", "error", err)
		return nil, err
	}

	postings, err := wire.NewPostingStore(header.PostingRegion.Bytes(), dict.Len(), resolved.cacheHint)
	if err != nil {
		resolved.logger.Error("jsonidx: corrupt posting region", "error", err)
		return nil, err
	}

	resolved.logger.Debug("jsonidx: reader opened",
		"artifactBytes", len(region),
		"dictionary", dict.Len(),
		"postings", postings.Len(),
	)
	return &Reader{
		region:   region,
		dict:     dict,
		postings: postings,
		mapping:  mapping,
		resolver: &keyResolver{},
		opts:     resolved,
	}, nil
}

func (r *Reader) evalContext() *evalContext {
	return &evalContext{
		dict:     r.dict,
		postings: r.postings,
		mapping:  r.mapping,
		resolver: r.resolver,
	}
}

// MatchingDocIds evaluates filter and returns the set of source doc ids
// that satisfy it. A bare exclusive predicate (NotEq, NotIn, IsNull) is
// permitted at the filter root only; the same predicate kind nested
// under an And/Or returns ErrNestedExclusive (spec.md §4.8).
//
// ctx's cancellation is checked at every And/Or fan-in step, alongside
// any cancel func installed with WithCancel; either stopping the query
// with ErrCancelled (spec.md §5).
func (r *Reader) MatchingDocIds(ctx context.Context, filter FilterNode) (bitmap.Bitmap, error) {
	if r.closed.Load() {
		return nil, fmt.Errorf("%w: reader is closed", ErrCorruptIndex)
	}

	start := time.Now()
	cancel := func() bool {
		select {
		case <-ctx.Done():
			return true
		default:
			return r.opts.cancel()
		}
	}

	state := newFilterEvalState(r.evalContext(), cancel)
	result, err := state.evaluate(filter)
	if err != nil {
		if errors.Is(err, ErrCorruptIndex) {
			r.opts.logger.Error("jsonidx: corrupt index during query", "error", err)
		}
		return nil, err
	}

	if leaf, ok := filter.(PredicateNode); ok && leaf.Predicate.Exclusive() {
		r.logSlowQuery(start)
		return result, nil // evaluateExclusiveRoot already returns source doc ids
	}

	projected, err := projectToSource(r.mapping, result)
	if err != nil {
		return nil, err
	}
	r.logSlowQuery(start)
	return projected, nil
}

func (r *Reader) logSlowQuery(start time.Time) {
	if elapsed := time.Since(start); elapsed > slowQueryThreshold {
		hits, misses := r.postings.CacheStats()
		r.opts.logger.Warn("jsonidx: slow query",
			"elapsed", elapsed,
			"cacheHits", hits,
			"cacheMisses", misses,
		)
	}
}

// projectToSource maps a flattened-doc-id bitmap to the set of source doc
// ids any of its members belong to (spec.md §3: multiple flattened
// entries can share a source doc, so this is a many-to-one fold, not a
// bijection).
func projectToSource(mapping *wire.Mapping, flat bitmap.Bitmap) (bitmap.Bitmap, error) {
	var result bitmap.Bitmap
	if numSourceDocs, err := mapping.NumSourceDocs(); err == nil && numSourceDocs > 0 {
		result.Grow(numSourceDocs - 1)
	}

	var rangeErr error
	flat.Range(func(f uint32) {
		if rangeErr != nil {
			return
		}
		src, err := mapping.ToSource(f)
		if err != nil {
			rangeErr = err
			return
		}
		result.Set(src)
	})
	if rangeErr != nil {
		return nil, rangeErr
	}
	return result, nil
}

// Close marks the Reader unusable for further queries. It does not
// unmap or free region; callers that opened region through mmapfile are
// responsible for closing that mapping separately. Close is idempotent.
func (r *Reader) Close() error {
	if r.closed.CompareAndSwap(false, true) {
		hits, misses := r.postings.CacheStats()
		r.opts.logger.Debug("jsonidx: reader closed", "cacheHits", hits, "cacheMisses", misses)
	}
	return nil
}

// Stats summarizes a Reader's decoded artifact, for diagnostics and the
// jidxdump CLI. CacheHits and CacheMisses are the decoded-bitmap cache's
// lifetime counts (wire.PostingStore.CacheStats), not dictionary lookups.
type Stats struct {
	ArtifactBytes   int
	DictionaryCount int
	PostingCount    int
	NumSourceDocs   uint32
	NumFlattened    int
	CacheHits       uint64
	CacheMisses     uint64
}

func (s Stats) String() string {
	return fmt.Sprintf(
		"jsonidx: %s artifact, %d dictionary entries, %d postings, %d source docs, %d flattened entries, cache %d/%d hit/miss",
		humanize.Bytes(uint64(s.ArtifactBytes)),
		s.DictionaryCount,
		s.PostingCount,
		s.NumSourceDocs,
		s.NumFlattened,
		s.CacheHits,
		s.CacheMisses,
	)
}

// Stats reports size and shape information about the open artifact, plus
// the decoded-bitmap cache's lifetime hit/miss counts. It never decodes a
// posting itself.
func (r *Reader) Stats() (Stats, error) {
	numSourceDocs, err := r.mapping.NumSourceDocs()
	if err != nil {
		return Stats{}, err
	}
	hits, misses := r.postings.CacheStats()
	return Stats{
		ArtifactBytes:   len(r.region),
		DictionaryCount: r.dict.Len(),
		PostingCount:    r.postings.Len(),
		NumSourceDocs:   numSourceDocs,
		NumFlattened:    r.mapping.Len(),
		CacheHits:       hits,
		CacheMisses:     misses,
	}, nil
}

// Plan is Explain's read-only diagnostic output: it reports how a filter
// would resolve against the dictionary without evaluating a single
// posting (spec.md §12 supplemented feature).
type Plan struct {
	Description string
	Leaves      []LeafPlan
}

// LeafPlan describes one predicate's resolution within a Plan.
type LeafPlan struct {
	Kind             string
	Key              string
	ResidualKey      string
	ConstraintTokens []string
	DictionaryHits   int
	DictionaryMisses int
}

// Explain resolves every leaf predicate's key path and reports which of
// its constraint and value tokens exist in the dictionary, without
// decoding or intersecting any posting. It is intended for query
// debugging, not for correctness-critical code paths.
func (r *Reader) Explain(filter FilterNode) (Plan, error) {
	var leaves []LeafPlan
	if err := explainNode(r, filter, &leaves); err != nil {
		return Plan{}, err
	}
	return Plan{
		Description: describeNode(filter),
		Leaves:      leaves,
	}, nil
}

func explainNode(r *Reader, node FilterNode, out *[]LeafPlan) error {
	switch n := node.(type) {
	case PredicateNode:
		plan, err := explainPredicate(r, n.Predicate)
		if err != nil {
			return err
		}
		*out = append(*out, plan)
		return nil
	case AndNode:
		for _, child := range n.Children {
			if err := explainNode(r, child, out); err != nil {
				return err
			}
		}
		return nil
	case OrNode:
		for _, child := range n.Children {
			if err := explainNode(r, child, out); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("%w: unrecognized filter node %T", ErrUnsupportedPredicate, node)
	}
}

func explainPredicate(r *Reader, p Predicate) (LeafPlan, error) {
	resolved, err := r.resolver.resolve(p.Key)
	if err != nil {
		return LeafPlan{}, err
	}

	candidates := candidateTokens(resolved.residual, p)
	hits, misses := 0, 0
	for _, tok := range candidates {
		if r.dict.IndexOf(tok) == wire.NotFound {
			misses++
		} else {
			hits++
		}
	}
	for _, tok := range resolved.constraints {
		if r.dict.IndexOf([]byte(tok)) == wire.NotFound {
			misses++
		} else {
			hits++
		}
	}

	return LeafPlan{
		Kind:             p.Kind.String(),
		Key:              p.Key,
		ResidualKey:      resolved.residual,
		ConstraintTokens: resolved.constraints,
		DictionaryHits:   hits,
		DictionaryMisses: misses,
	}, nil
}

func candidateTokens(residual string, p Predicate) [][]byte {
	switch p.Kind {
	case Eq, NotEq:
		return [][]byte{keyValueToken(residual, p.Value)}
	case In, NotIn:
		toks := make([][]byte, 0, len(p.Values))
		for _, v := range p.Values {
			toks = append(toks, keyValueToken(residual, v))
		}
		return toks
	case IsNull, IsNotNull:
		return [][]byte{[]byte(residual)}
	default:
		return nil
	}
}

func describeNode(node FilterNode) string {
	switch n := node.(type) {
	case PredicateNode:
		return fmt.Sprintf("%s(%s)", n.Predicate.Kind, n.Predicate.Key)
	case AndNode:
		parts := make([]string, len(n.Children))
		for i, c := range n.Children {
			parts[i] = describeNode(c)
		}
		return "AND(" + strings.Join(parts, ", ") + ")"
	case OrNode:
		parts := make([]string, len(n.Children))
		for i, c := range n.Children {
			parts[i] = describeNode(c)
		}
		return "OR(" + strings.Join(parts, ", ") + ")"
	default:
		return fmt.Sprintf("%T", node)
	}
}

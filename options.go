// Copyright (c) Roman Atachiants and contributors. All rights reserved.
// Licensed under the MIT license. See LICENSE file in the project root for details.

package jsonidx

import (
	"log/slog"

	"github.com/imdario/mergo"
)

// options holds Reader construction settings. It is unexported; callers
// configure it through Option functions passed to New (spec.md §4.9).
type options struct {
	logger    *slog.Logger
	cancel    func() bool
	cacheHint int
}

// Option configures a Reader at construction time.
type Option func(*options)

// WithLogger attaches a structured logger the Reader uses for corruption
// warnings and lifecycle events. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithCancel installs a cooperative cancellation check. MatchingDocIds
// calls it between AND/OR fan-in steps and returns ErrCancelled as soon
// as it reports true (spec.md §5). The default never cancels.
func WithCancel(cancel func() bool) Option {
	return func(o *options) {
		if cancel != nil {
			o.cancel = cancel
		}
	}
}

// WithCacheHint sizes the posting store's decoded-bitmap cache's initial
// bucket allocation. It is a hint only: the cache still grows past it.
func WithCacheHint(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.cacheHint = n
		}
	}
}

func defaultOptions() options {
	return options{
		logger:    slog.Default(),
		cancel:    func() bool { return false },
		cacheHint: 64,
	}
}

// resolveOptions applies opts to a zero-value options struct, then uses
// mergo to fill in any field the caller's Options left unset. Starting
// from zero (rather than from the defaults) is what makes the merge do
// real work: every Option constructor above only writes a field when the
// caller passed it a non-nil/non-zero value, so whatever they skipped is
// still zero going into the merge.
func resolveOptions(opts ...Option) options {
	var resolved options
	for _, opt := range opts {
		opt(&resolved)
	}

	if err := mergo.Merge(&resolved, defaultOptions()); err != nil {
		return defaultOptions()
	}
	return resolved
}

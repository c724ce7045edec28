// Copyright (c) Roman Atachiants and contributors. All rights reserved.
// Licensed under the MIT license. See LICENSE file in the project root for details.

package jsonidx

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/yeshreddy7/pinot-clone/internal/testartifact"
)

// buildThreeDocArtifact matches spec.md §8's worked example: three source
// docs, with flattened ids 0-4 belonging to doc 0, 5-7 to doc 1, and 8-9
// to doc 2.
func buildThreeDocArtifact(t *testing.T) []byte {
	t.Helper()
	artifact, err := testartifact.New().
		Token(keyValueTokenString("tier", "gold"), 0, 8).
		Token(keyValueTokenString("tier", "silver"), 5).
		Token("nickname", 0, 5).
		FlatToSrc(0, 0, 0, 0, 0, 1, 1, 1, 2, 2).
		Build()
	assert.NoError(t, err)
	return artifact
}

func TestReaderMatchingDocIdsInclusive(t *testing.T) {
	reader, err := New(buildThreeDocArtifact(t))
	assert.NoError(t, err)
	defer reader.Close()

	result, err := reader.MatchingDocIds(context.Background(), Leaf(Predicate{Kind: Eq, Key: "tier", Value: "gold"}))
	assert.NoError(t, err)
	assert.True(t, result.Contains(0))
	assert.False(t, result.Contains(1))
	assert.True(t, result.Contains(2))
}

func TestReaderMatchingDocIdsExclusiveRoot(t *testing.T) {
	reader, err := New(buildThreeDocArtifact(t))
	assert.NoError(t, err)
	defer reader.Close()

	result, err := reader.MatchingDocIds(context.Background(), Leaf(Predicate{Kind: NotEq, Key: "tier", Value: "gold"}))
	assert.NoError(t, err)
	assert.False(t, result.Contains(0))
	assert.True(t, result.Contains(1))
	assert.False(t, result.Contains(2))
}

func TestReaderMatchingDocIdsIsNull(t *testing.T) {
	reader, err := New(buildThreeDocArtifact(t))
	assert.NoError(t, err)
	defer reader.Close()

	// doc 2's only flattened entry (id 9) never carries "nickname".
	result, err := reader.MatchingDocIds(context.Background(), Leaf(Predicate{Kind: IsNull, Key: "nickname"}))
	assert.NoError(t, err)
	assert.False(t, result.Contains(0))
	assert.False(t, result.Contains(1))
	assert.True(t, result.Contains(2))
}

func TestReaderMatchingDocIdsNestedExclusiveRejected(t *testing.T) {
	reader, err := New(buildThreeDocArtifact(t))
	assert.NoError(t, err)
	defer reader.Close()

	_, err = reader.MatchingDocIds(context.Background(), And(
		Leaf(Predicate{Kind: NotEq, Key: "tier", Value: "gold"}),
		Leaf(Predicate{Kind: IsNotNull, Key: "nickname"}),
	))
	assert.ErrorIs(t, err, ErrNestedExclusive)
}

func TestReaderMatchingDocIdsContextCancelled(t *testing.T) {
	reader, err := New(buildThreeDocArtifact(t))
	assert.NoError(t, err)
	defer reader.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = reader.MatchingDocIds(ctx, And(
		Leaf(Predicate{Kind: Eq, Key: "tier", Value: "gold"}),
		Leaf(Predicate{Kind: IsNotNull, Key: "nickname"}),
	))
	assert.ErrorIs(t, err, ErrCancelled)
}

func TestReaderCloseRejectsFurtherQueries(t *testing.T) {
	reader, err := New(buildThreeDocArtifact(t))
	assert.NoError(t, err)

	assert.NoError(t, reader.Close())
	assert.NoError(t, reader.Close()) // idempotent

	_, err = reader.MatchingDocIds(context.Background(), Leaf(Predicate{Kind: Eq, Key: "tier", Value: "gold"}))
	assert.ErrorIs(t, err, ErrCorruptIndex)
}

func TestReaderStats(t *testing.T) {
	reader, err := New(buildThreeDocArtifact(t))
	assert.NoError(t, err)
	defer reader.Close()

	stats, err := reader.Stats()
	assert.NoError(t, err)
	assert.Equal(t, uint32(3), stats.NumSourceDocs)
	assert.Equal(t, 10, stats.NumFlattened)
	assert.Equal(t, 3, stats.DictionaryCount)
	assert.Equal(t, uint64(0), stats.CacheHits)
	assert.Equal(t, uint64(0), stats.CacheMisses)
	assert.NotEmpty(t, stats.String())

	_, err = reader.MatchingDocIds(context.Background(), Leaf(Predicate{Kind: Eq, Key: "tier", Value: "gold"}))
	assert.NoError(t, err)
	_, err = reader.MatchingDocIds(context.Background(), Leaf(Predicate{Kind: Eq, Key: "tier", Value: "gold"}))
	assert.NoError(t, err)

	stats, err = reader.Stats()
	assert.NoError(t, err)
	assert.Equal(t, uint64(1), stats.CacheHits)
	assert.Equal(t, uint64(1), stats.CacheMisses)
}

func TestReaderExplain(t *testing.T) {
	reader, err := New(buildThreeDocArtifact(t))
	assert.NoError(t, err)
	defer reader.Close()

	plan, err := reader.Explain(And(
		Leaf(Predicate{Kind: Eq, Key: "tier", Value: "gold"}),
		Leaf(Predicate{Kind: IsNotNull, Key: "nickname"}),
	))
	assert.NoError(t, err)
	assert.Len(t, plan.Leaves, 2)
	assert.Equal(t, "EQ", plan.Leaves[0].Kind)
	assert.Equal(t, 1, plan.Leaves[0].DictionaryHits)
	assert.Contains(t, plan.Description, "AND")
}

func TestReaderMatchingDocIdsWithCancelOption(t *testing.T) {
	cancelled := false
	reader, err := New(buildThreeDocArtifact(t), WithCancel(func() bool { return cancelled }))
	assert.NoError(t, err)
	defer reader.Close()

	cancelled = true
	_, err = reader.MatchingDocIds(context.Background(), And(
		Leaf(Predicate{Kind: Eq, Key: "tier", Value: "gold"}),
		Leaf(Predicate{Kind: IsNotNull, Key: "nickname"}),
	))
	assert.ErrorIs(t, err, ErrCancelled)
}

func TestReaderMatchingDocIdsDeadlineExceeded(t *testing.T) {
	reader, err := New(buildThreeDocArtifact(t))
	assert.NoError(t, err)
	defer reader.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	time.Sleep(time.Millisecond)

	_, err = reader.MatchingDocIds(ctx, And(
		Leaf(Predicate{Kind: Eq, Key: "tier", Value: "gold"}),
		Leaf(Predicate{Kind: IsNotNull, Key: "nickname"}),
	))
	assert.ErrorIs(t, err, ErrCancelled)
}

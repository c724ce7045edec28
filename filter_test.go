// Copyright (c) Roman Atachiants and contributors. All rights reserved.
// Licensed under the MIT license. See LICENSE file in the project root for details.

package jsonidx

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/yeshreddy7/pinot-clone/internal/testartifact"
)

func buildFilterContext(t *testing.T) *evalContext {
	t.Helper()
	artifact, err := testartifact.New().
		Token(keyValueTokenString("status", "active"), 0, 1).
		Token(keyValueTokenString("status", "inactive"), 2).
		Token(keyValueTokenString("plan", "pro"), 1, 2).
		Token(keyValueTokenString("plan", "free"), 0).
		Token("email", 0, 1).
		FlatToSrc(0, 1, 2).
		Build()
	assert.NoError(t, err)

	reader, err := New(artifact)
	assert.NoError(t, err)
	return reader.evalContext()
}

func noCancel() bool { return false }

func TestFilterAnd(t *testing.T) {
	ctx := buildFilterContext(t)
	state := newFilterEvalState(ctx, noCancel)

	result, err := state.evaluate(And(
		Leaf(Predicate{Kind: Eq, Key: "status", Value: "active"}),
		Leaf(Predicate{Kind: Eq, Key: "plan", Value: "pro"}),
	))
	assert.NoError(t, err)
	assert.False(t, result.Contains(0))
	assert.True(t, result.Contains(1))
	assert.False(t, result.Contains(2))
}

func TestFilterOr(t *testing.T) {
	ctx := buildFilterContext(t)
	state := newFilterEvalState(ctx, noCancel)

	result, err := state.evaluate(Or(
		Leaf(Predicate{Kind: Eq, Key: "status", Value: "inactive"}),
		Leaf(Predicate{Kind: Eq, Key: "plan", Value: "free"}),
	))
	assert.NoError(t, err)
	assert.True(t, result.Contains(0))
	assert.False(t, result.Contains(1))
	assert.True(t, result.Contains(2))
}

func TestFilterExclusiveRoot(t *testing.T) {
	ctx := buildFilterContext(t)
	state := newFilterEvalState(ctx, noCancel)

	result, err := state.evaluate(Leaf(Predicate{Kind: NotEq, Key: "status", Value: "active"}))
	assert.NoError(t, err)
	assert.False(t, result.Contains(0))
	assert.False(t, result.Contains(1))
	assert.True(t, result.Contains(2))
}

func TestFilterExclusiveNestedRejected(t *testing.T) {
	ctx := buildFilterContext(t)
	state := newFilterEvalState(ctx, noCancel)

	_, err := state.evaluate(And(
		Leaf(Predicate{Kind: NotEq, Key: "status", Value: "active"}),
		Leaf(Predicate{Kind: Eq, Key: "plan", Value: "pro"}),
	))
	assert.ErrorIs(t, err, ErrNestedExclusive)
}

func TestFilterIsNullRoot(t *testing.T) {
	ctx := buildFilterContext(t)
	state := newFilterEvalState(ctx, noCancel)

	result, err := state.evaluate(Leaf(Predicate{Kind: IsNull, Key: "email"}))
	assert.NoError(t, err)
	assert.False(t, result.Contains(0))
	assert.False(t, result.Contains(1))
	assert.True(t, result.Contains(2))
}

func TestFilterCancellation(t *testing.T) {
	ctx := buildFilterContext(t)
	state := newFilterEvalState(ctx, func() bool { return true })

	_, err := state.evaluate(And(
		Leaf(Predicate{Kind: Eq, Key: "status", Value: "active"}),
		Leaf(Predicate{Kind: Eq, Key: "plan", Value: "pro"}),
	))
	assert.ErrorIs(t, err, ErrCancelled)
}

func TestMemoKeyDistinguishesPredicates(t *testing.T) {
	a := memoKey(Predicate{Kind: Eq, Key: "status", Value: "active"})
	b := memoKey(Predicate{Kind: Eq, Key: "status", Value: "inactive"})
	c := memoKey(Predicate{Kind: NotEq, Key: "status", Value: "active"})
	assert.NotEqual(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestFilterRepeatedPredicateMemoized(t *testing.T) {
	ctx := buildFilterContext(t)
	state := newFilterEvalState(ctx, noCancel)

	p := Leaf(Predicate{Kind: Eq, Key: "status", Value: "active"})
	result, err := state.evaluate(And(p, Or(p, Leaf(Predicate{Kind: Eq, Key: "plan", Value: "free"}))))
	assert.NoError(t, err)
	assert.True(t, result.Contains(0))
	assert.True(t, result.Contains(1))
	assert.False(t, result.Contains(2))
	assert.Len(t, state.memo, 2)
}

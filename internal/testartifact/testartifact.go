// Copyright (c) Roman Atachiants and contributors. All rights reserved.
// Licensed under the MIT license. See LICENSE file in the project root for details.

// Package testartifact hand-assembles minimal, valid JSON index artifacts
// for tests. The real artifact is produced by an offline builder outside
// this repository's scope (spec.md §1); this package exists only so the
// test suite can exercise wire and jsonidx against artifacts it controls
// byte-for-byte.
package testartifact

import (
	"bytes"
	"encoding/binary"
	"sort"

	"github.com/kelindar/bitmap"
)

const version = uint32(2)
const headerLength = 32

// Builder accumulates dictionary tokens with their postings and the
// flattened-to-source doc id mapping, then serializes them into the wire
// format documented in wire.DecodeHeader.
type Builder struct {
	tokens    []string
	postings  [][]uint32
	flatToSrc []uint32
}

// New returns an empty Builder.
func New() *Builder {
	return &Builder{}
}

// Token registers a dictionary token with the flattened doc ids that
// carry it.
func (b *Builder) Token(token string, flatIds ...uint32) *Builder {
	b.tokens = append(b.tokens, token)
	b.postings = append(b.postings, flatIds)
	return b
}

// FlatToSrc sets the flattened→source doc id mapping. mapping[i] is the
// source doc id that flattened id i expanded from; it must be
// non-decreasing to match a real builder's output (spec.md §3).
func (b *Builder) FlatToSrc(mapping ...uint32) *Builder {
	b.flatToSrc = mapping
	return b
}

// Build serializes the accumulated tokens and mapping into a complete
// artifact, sorting tokens lexicographically and padding them to a
// common fixed width as wire.Dictionary requires.
func (b *Builder) Build() ([]byte, error) {
	type entry struct {
		token string
		ids   []uint32
	}
	entries := make([]entry, len(b.tokens))
	for i := range b.tokens {
		entries[i] = entry{token: b.tokens[i], ids: b.postings[i]}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].token < entries[j].token })

	width := 1
	for _, e := range entries {
		if len(e.token) > width {
			width = len(e.token)
		}
	}

	var dict bytes.Buffer
	for _, e := range entries {
		padded := make([]byte, width)
		copy(padded, e.token)
		dict.Write(padded)
	}

	var postings bytes.Buffer
	for _, e := range entries {
		var bm bitmap.Bitmap
		for _, id := range e.ids {
			bm.Grow(id)
			bm.Set(id)
		}

		var payload bytes.Buffer
		if _, err := bm.WriteTo(&payload); err != nil {
			return nil, err
		}

		var lengthPrefix [4]byte
		binary.BigEndian.PutUint32(lengthPrefix[:], uint32(payload.Len()))
		postings.Write(lengthPrefix[:])
		postings.Write(payload.Bytes())
	}

	var mapping bytes.Buffer
	for _, src := range b.flatToSrc {
		var buf [4]byte
		binary.LittleEndian.PutUint32(buf[:], src)
		mapping.Write(buf[:])
	}

	var header [headerLength]byte
	binary.BigEndian.PutUint32(header[0x00:0x04], version)
	binary.BigEndian.PutUint32(header[0x04:0x08], uint32(width))
	binary.BigEndian.PutUint64(header[0x08:0x10], uint64(dict.Len()))
	binary.BigEndian.PutUint64(header[0x10:0x18], uint64(postings.Len()))
	binary.BigEndian.PutUint64(header[0x18:0x20], uint64(mapping.Len()))

	var out bytes.Buffer
	out.Write(header[:])
	out.Write(dict.Bytes())
	out.Write(postings.Bytes())
	out.Write(mapping.Bytes())
	return out.Bytes(), nil
}

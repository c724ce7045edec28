// Copyright (c) Roman Atachiants and contributors. All rights reserved.
// Licensed under the MIT license. See LICENSE file in the project root for details.

package wire

import "fmt"

// Mapping is a random-access, little-endian uint32 array translating a
// flattened doc id to the source doc id it was expanded from. The array is
// non-decreasing (spec.md §3 invariant 2): flattening preserves document
// order, so consecutive flattened ids belonging to the same source
// document are contiguous.
type Mapping struct {
	buf Buffer
	len int
}

// NewMapping wraps region, whose length must be a multiple of 4.
func NewMapping(region []byte) (*Mapping, error) {
	if len(region)%4 != 0 {
		return nil, fmt.Errorf("%w: flattened-to-source region length %d is not a multiple of 4", ErrCorruptIndex, len(region))
	}
	return &Mapping{buf: NewBuffer(region), len: len(region) / 4}, nil
}

// Len returns the number of flattened doc ids (numFlattened).
func (m *Mapping) Len() int {
	return m.len
}

// ToSource returns the source doc id that flattened doc id flat expanded
// from. The caller must ensure 0 <= flat < Len(); out-of-range access
// returns ErrCorruptIndex rather than panicking, since a well-formed
// artifact never produces an out-of-range flattened id once the posting
// store (§wire.PostingStore) has validated its contents.
func (m *Mapping) ToSource(flat uint32) (uint32, error) {
	v, err := m.buf.Uint32LE(int(flat) * 4)
	if err != nil {
		return 0, fmt.Errorf("%w: flattened doc id %d out of range: %v", ErrCorruptIndex, flat, err)
	}
	return v, nil
}

// NumSourceDocs returns one past the greatest source doc id referenced by
// the mapping, i.e. the size of the id space matching_doc_ids results live
// in. It returns 0 for an empty mapping.
func (m *Mapping) NumSourceDocs() (uint32, error) {
	if m.len == 0 {
		return 0, nil
	}
	last, err := m.ToSource(uint32(m.len - 1))
	if err != nil {
		return 0, err
	}
	return last + 1, nil
}

// Copyright (c) Roman Atachiants and contributors. All rights reserved.
// Licensed under the MIT license. See LICENSE file in the project root for details.

// Package wire decodes the frozen, memory-mapped binary layout of a JSON
// inverted index artifact: the header, the sorted string dictionary, the
// posting region and the flattened-to-source doc id mapping. Nothing in
// this package allocates a heap copy of the mapped region; every accessor
// returns either a scalar or a slice view onto the caller-supplied bytes.
package wire

import (
	"encoding/binary"
	"fmt"
)

// Buffer is a bounds-checked, endian-aware window onto a byte region. It
// never copies: every read either decodes a scalar in place or returns a
// sub-slice of the underlying region.
type Buffer struct {
	data []byte
}

// NewBuffer wraps b. The caller retains ownership of b; Buffer never
// outlives it in any useful sense, but Go's GC keeps b alive as long as
// any slice view derived from it is reachable.
func NewBuffer(b []byte) Buffer {
	return Buffer{data: b}
}

// Len returns the number of bytes in the window.
func (b Buffer) Len() int {
	return len(b.data)
}

// Bytes returns the entire underlying region. Callers must not mutate it.
func (b Buffer) Bytes() []byte {
	return b.data
}

func (b Buffer) checkBounds(off, n int) error {
	if off < 0 || n < 0 || off+n > len(b.data) {
		return fmt.Errorf("wire: out of bounds read (%d bytes at offset %d, region is %d bytes)", n, off, len(b.data))
	}
	return nil
}

// Slice returns a zero-copy view of n bytes starting at off.
func (b Buffer) Slice(off, n int) ([]byte, error) {
	if err := b.checkBounds(off, n); err != nil {
		return nil, err
	}
	return b.data[off : off+n], nil
}

// Uint32BE reads a big-endian uint32 at off.
func (b Buffer) Uint32BE(off int) (uint32, error) {
	s, err := b.Slice(off, 4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(s), nil
}

// Uint64BE reads a big-endian uint64 at off.
func (b Buffer) Uint64BE(off int) (uint64, error) {
	s, err := b.Slice(off, 8)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(s), nil
}

// Uint32LE reads a little-endian uint32 at off.
func (b Buffer) Uint32LE(off int) (uint32, error) {
	s, err := b.Slice(off, 4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(s), nil
}

// Sub returns a new Buffer over the [off, off+n) window of b.
func (b Buffer) Sub(off, n int) (Buffer, error) {
	s, err := b.Slice(off, n)
	if err != nil {
		return Buffer{}, err
	}
	return Buffer{data: s}, nil
}

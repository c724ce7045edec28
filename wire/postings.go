// Copyright (c) Roman Atachiants and contributors. All rights reserved.
// Licensed under the MIT license. See LICENSE file in the project root for details.

package wire

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/kelindar/bitmap"
)

// PostingStore maps a dictionary id to the immutable bitmap of flattened
// doc ids that carry that token. Each posting is stored as a big-endian
// uint32 length prefix followed by that many bytes of the bitmap library's
// own serialized form (spec.md §6.1). Opening a store only scans the
// length prefixes to build an offset table; it never decodes a bitmap
// until a caller asks for one by id, matching the reader's "owns no heap
// bitmaps until a query runs" lifecycle (spec.md §3).
type PostingStore struct {
	region  []byte
	offsets []int // offsets[i]..offsets[i+1] is the length-prefixed block for posting i

	mu    sync.RWMutex
	cache map[uint32]bitmap.Bitmap

	hits   atomic.Uint64
	misses atomic.Uint64
}

// NewPostingStore scans region, which must contain exactly dictionarySize
// length-prefixed posting blocks in dictionary id order. cacheHint sizes
// the initial allocation of the decoded-bitmap cache; it is advisory only.
func NewPostingStore(region []byte, dictionarySize, cacheHint int) (*PostingStore, error) {
	offsets := make([]int, dictionarySize+1)
	cursor := 0
	for i := 0; i < dictionarySize; i++ {
		offsets[i] = cursor
		if cursor+4 > len(region) {
			return nil, fmt.Errorf("%w: posting region truncated at entry %d", ErrCorruptIndex, i)
		}
		length := int(binary.BigEndian.Uint32(region[cursor : cursor+4]))
		cursor += 4 + length
		if cursor > len(region) {
			return nil, fmt.Errorf("%w: posting region truncated at entry %d", ErrCorruptIndex, i)
		}
	}
	offsets[dictionarySize] = cursor
	if cursor != len(region) {
		return nil, fmt.Errorf("%w: posting region has %d trailing bytes after %d entries", ErrCorruptIndex, len(region)-cursor, dictionarySize)
	}

	if cacheHint <= 0 {
		cacheHint = 64
	}
	return &PostingStore{
		region:  region,
		offsets: offsets,
		cache:   make(map[uint32]bitmap.Bitmap, cacheHint),
	}, nil
}

// Len returns the number of postings (equal to the dictionary size).
func (s *PostingStore) Len() int {
	return len(s.offsets) - 1
}

// Bitmap decodes and returns the posting for dictionary id. The returned
// bitmap is read-only: callers that need to mutate it must Clone it first
// (spec.md §4.4). Decoded bitmaps are memoized for the lifetime of the
// store, since the underlying bytes never change.
func (s *PostingStore) Bitmap(id uint32) (bitmap.Bitmap, error) {
	if int(id) >= s.Len() {
		return nil, fmt.Errorf("%w: posting id %d out of range (dictionary has %d entries)", ErrCorruptIndex, id, s.Len())
	}

	s.mu.RLock()
	if bm, ok := s.cache[id]; ok {
		s.mu.RUnlock()
		s.hits.Add(1)
		return bm, nil
	}
	s.mu.RUnlock()
	s.misses.Add(1)

	start, end := s.offsets[id], s.offsets[id+1]
	block := s.region[start:end]
	if len(block) < 4 {
		return nil, fmt.Errorf("%w: posting %d block too short", ErrCorruptIndex, id)
	}
	payload := block[4:]

	bm, err := bitmap.ReadFrom(bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: posting %d undecodable: %v", ErrCorruptIndex, id, err)
	}

	s.mu.Lock()
	s.cache[id] = bm
	s.mu.Unlock()
	return bm, nil
}

// CacheStats reports the decoded-bitmap cache's lifetime hit and miss
// counts. A hit returns a bitmap already decoded by an earlier Bitmap
// call; a miss decodes it from region.
func (s *PostingStore) CacheStats() (hits, misses uint64) {
	return s.hits.Load(), s.misses.Load()
}

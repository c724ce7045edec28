// Copyright (c) Roman Atachiants and contributors. All rights reserved.
// Licensed under the MIT license. See LICENSE file in the project root for details.

package wire

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/kelindar/bitmap"
	"github.com/stretchr/testify/assert"
)

func encodePosting(ids ...uint32) []byte {
	var bm bitmap.Bitmap
	for _, id := range ids {
		bm.Grow(id)
		bm.Set(id)
	}
	var payload bytes.Buffer
	if _, err := bm.WriteTo(&payload); err != nil {
		panic(err)
	}

	var block bytes.Buffer
	var lengthPrefix [4]byte
	binary.BigEndian.PutUint32(lengthPrefix[:], uint32(payload.Len()))
	block.Write(lengthPrefix[:])
	block.Write(payload.Bytes())
	return block.Bytes()
}

func TestPostingStoreBitmap(t *testing.T) {
	var region []byte
	region = append(region, encodePosting(0, 2, 4)...)
	region = append(region, encodePosting(1, 3)...)

	store, err := NewPostingStore(region, 2, 0)
	assert.NoError(t, err)
	assert.Equal(t, 2, store.Len())

	bm, err := store.Bitmap(0)
	assert.NoError(t, err)
	assert.True(t, bm.Contains(0))
	assert.True(t, bm.Contains(2))
	assert.True(t, bm.Contains(4))
	assert.False(t, bm.Contains(1))

	bm, err = store.Bitmap(1)
	assert.NoError(t, err)
	assert.True(t, bm.Contains(1))
	assert.True(t, bm.Contains(3))
}

func TestPostingStoreBitmapCached(t *testing.T) {
	region := encodePosting(7)
	store, err := NewPostingStore(region, 1, 0)
	assert.NoError(t, err)

	first, err := store.Bitmap(0)
	assert.NoError(t, err)
	second, err := store.Bitmap(0)
	assert.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestPostingStoreCacheStats(t *testing.T) {
	var region []byte
	region = append(region, encodePosting(0)...)
	region = append(region, encodePosting(1)...)
	store, err := NewPostingStore(region, 2, 0)
	assert.NoError(t, err)

	hits, misses := store.CacheStats()
	assert.Equal(t, uint64(0), hits)
	assert.Equal(t, uint64(0), misses)

	_, err = store.Bitmap(0)
	assert.NoError(t, err)
	hits, misses = store.CacheStats()
	assert.Equal(t, uint64(0), hits)
	assert.Equal(t, uint64(1), misses)

	_, err = store.Bitmap(0)
	assert.NoError(t, err)
	_, err = store.Bitmap(1)
	assert.NoError(t, err)
	hits, misses = store.CacheStats()
	assert.Equal(t, uint64(1), hits)
	assert.Equal(t, uint64(2), misses)
}

func TestPostingStoreOutOfRange(t *testing.T) {
	region := encodePosting(0)
	store, err := NewPostingStore(region, 1, 0)
	assert.NoError(t, err)

	_, err = store.Bitmap(5)
	assert.ErrorIs(t, err, ErrCorruptIndex)
}

func TestPostingStoreTruncated(t *testing.T) {
	region := encodePosting(0, 1)
	_, err := NewPostingStore(region[:len(region)-1], 2, 0)
	assert.ErrorIs(t, err, ErrCorruptIndex)
}

func TestPostingStoreEmpty(t *testing.T) {
	store, err := NewPostingStore(nil, 0, 0)
	assert.NoError(t, err)
	assert.Equal(t, 0, store.Len())
}

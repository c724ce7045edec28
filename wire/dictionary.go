// Copyright (c) Roman Atachiants and contributors. All rights reserved.
// Licensed under the MIT license. See LICENSE file in the project root for details.

package wire

import (
	"bytes"
	"fmt"
)

// NotFound is returned by Dictionary.IndexOf when the token is absent.
const NotFound = ^uint32(0)

// Dictionary is a lexicographically sorted, fixed-width, 0x00-padded set of
// tokens. Lookup is O(log n) binary search; the dictionary never mutates
// and never allocates beyond the padded query key used for comparison.
type Dictionary struct {
	region []byte
	width  int
	count  int
}

// NewDictionary wraps region, a dictionary byte region whose length must be
// an exact multiple of width (maxTokenLength from the artifact header).
func NewDictionary(region []byte, width int) (*Dictionary, error) {
	if width <= 0 {
		if len(region) == 0 {
			return &Dictionary{region: region, width: width, count: 0}, nil
		}
		return nil, fmt.Errorf("%w: dictionary token width must be positive, got %d", ErrCorruptIndex, width)
	}
	if len(region)%width != 0 {
		return nil, fmt.Errorf("%w: dictionary region length %d is not a multiple of token width %d", ErrCorruptIndex, len(region), width)
	}
	return &Dictionary{
		region: region,
		width:  width,
		count:  len(region) / width,
	}, nil
}

// Len returns the number of tokens in the dictionary.
func (d *Dictionary) Len() int {
	return d.count
}

func (d *Dictionary) at(i int) []byte {
	return d.region[i*d.width : (i+1)*d.width]
}

// IndexOf returns the dense dictionary id for token, or NotFound if the
// exact token (key, or key/value pair) was never emitted by the builder.
func (d *Dictionary) IndexOf(token []byte) uint32 {
	if len(token) > d.width {
		return NotFound
	}

	padded := make([]byte, d.width)
	copy(padded, token)

	lo, hi := 0, d.count
	for lo < hi {
		mid := lo + (hi-lo)/2
		switch bytes.Compare(d.at(mid), padded) {
		case 0:
			return uint32(mid)
		case -1:
			lo = mid + 1
		default:
			hi = mid
		}
	}
	return NotFound
}

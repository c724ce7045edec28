// Copyright (c) Roman Atachiants and contributors. All rights reserved.
// Licensed under the MIT license. See LICENSE file in the project root for details.

package wire

import "fmt"

// SupportedVersion is the only artifact version this reader understands.
// The offline builder is an external collaborator (see repository root
// SPEC_FULL.md §1); bumping this requires a coordinated builder change.
const SupportedVersion = uint32(2)

// HeaderLength is the fixed size, in bytes, of the artifact header.
const HeaderLength = 32

// Header describes the fixed 32-byte prologue of a JSON index artifact and
// the byte ranges of the three regions that follow it.
//
//	offset  size  field
//	0x00    4     version            (u32, big-endian)
//	0x04    4     maxTokenLength     (u32, big-endian)
//	0x08    8     dictionaryBytes    (u64, big-endian)
//	0x10    8     postingBytes       (u64, big-endian)
//	0x18    8     mappingBytes       (u64, big-endian)
//	0x20    D     dictionary region
//	0x20+D  P     posting region
//	0x20+D+P M    flattened→source region (little-endian u32 array)
type Header struct {
	Version        uint32
	MaxTokenLength uint32

	DictionaryRegion Buffer
	PostingRegion    Buffer
	MappingRegion    Buffer
}

// DecodeHeader parses and validates the header at the start of region,
// returning the three carved-out sub-regions for the dictionary, posting
// store and flattened→source mapping. It performs no decoding beyond the
// header fields themselves: the three regions are returned as zero-copy
// views, ready for wire.NewDictionary, wire.NewPostingStore and
// wire.NewMapping respectively.
func DecodeHeader(region []byte) (*Header, error) {
	buf := NewBuffer(region)

	version, err := buf.Uint32BE(0x00)
	if err != nil {
		return nil, fmt.Errorf("%w: truncated header: %v", ErrCorruptIndex, err)
	}
	if version != SupportedVersion {
		return nil, fmt.Errorf("%w: unsupported version %d (want %d)", ErrCorruptIndex, version, SupportedVersion)
	}

	maxTokenLength, err := buf.Uint32BE(0x04)
	if err != nil {
		return nil, fmt.Errorf("%w: truncated header: %v", ErrCorruptIndex, err)
	}

	dictionaryBytes, err := buf.Uint64BE(0x08)
	if err != nil {
		return nil, fmt.Errorf("%w: truncated header: %v", ErrCorruptIndex, err)
	}
	postingBytes, err := buf.Uint64BE(0x10)
	if err != nil {
		return nil, fmt.Errorf("%w: truncated header: %v", ErrCorruptIndex, err)
	}
	mappingBytes, err := buf.Uint64BE(0x18)
	if err != nil {
		return nil, fmt.Errorf("%w: truncated header: %v", ErrCorruptIndex, err)
	}

	want := uint64(HeaderLength) + dictionaryBytes + postingBytes + mappingBytes
	if got := uint64(len(region)); got != want {
		return nil, fmt.Errorf("%w: region size mismatch: artifact is %d bytes, header describes %d", ErrCorruptIndex, got, want)
	}

	dictOff := HeaderLength
	dict, err := buf.Sub(dictOff, int(dictionaryBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: dictionary region: %v", ErrCorruptIndex, err)
	}

	postingOff := dictOff + int(dictionaryBytes)
	posting, err := buf.Sub(postingOff, int(postingBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: posting region: %v", ErrCorruptIndex, err)
	}

	mappingOff := postingOff + int(postingBytes)
	mapping, err := buf.Sub(mappingOff, int(mappingBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: mapping region: %v", ErrCorruptIndex, err)
	}

	return &Header{
		Version:          version,
		MaxTokenLength:   maxTokenLength,
		DictionaryRegion: dict,
		PostingRegion:    posting,
		MappingRegion:    mapping,
	}, nil
}

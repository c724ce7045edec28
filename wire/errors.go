// Copyright (c) Roman Atachiants and contributors. All rights reserved.
// Licensed under the MIT license. See LICENSE file in the project root for details.

package wire

import "errors"

// ErrCorruptIndex reports a header version mismatch, an inconsistent
// region size, or an offset that escapes the mapped region. It is the
// only error kind wire.DecodeHeader, wire.NewDictionary, wire.NewPostingStore
// and wire.NewMapping ever return; package jsonidx re-exports the same
// sentinel so callers can use a single errors.Is check regardless of which
// layer detected the corruption.
var ErrCorruptIndex = errors.New("wire: corrupt index")

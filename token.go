// Copyright (c) Roman Atachiants and contributors. All rights reserved.
// Licensed under the MIT license. See LICENSE file in the project root for details.

package jsonidx

// KeySeparator joins key path segments: "user.address.city".
const KeySeparator = '.'

// KVSeparator joins a key path to its stringified value to form a
// key-value token: "user.address.city\x00NYC". It is a single reserved
// byte, chosen at build time to not collide with any byte legal in a user
// key (spec.md §6.2); this reader, like the builder it pairs with, fixes
// it at the NUL byte.
const KVSeparator = byte(0)

// arrayIndexKey is the literal key segment the builder emits for an array
// position: "tags.$index=2" constrains the match to array slot 2 of "tags".
const arrayIndexKey = "$index="

// keyValueToken builds the "<keyPath><KVSeparator><value>" token for an
// equality-style lookup against key.
func keyValueToken(key, value string) []byte {
	tok := make([]byte, 0, len(key)+1+len(value))
	tok = append(tok, key...)
	tok = append(tok, KVSeparator)
	tok = append(tok, value...)
	return tok
}

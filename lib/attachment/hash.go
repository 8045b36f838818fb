// Copyright 2026 The Upkeep Authors
// SPDX-License-Identifier: Apache-2.0

package attachment

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/zeebo/blake3"
)

// Hash is a 32-byte BLAKE3 digest of uncompressed payload bytes.
type Hash [32]byte

// payloadDomainKey is the BLAKE3 key for payload hashing. Domain
// separation keeps attachment locators from colliding with any other
// BLAKE3 use of the same bytes. The key is the ASCII domain name
// zero-padded to 32 bytes, readable in hex dumps.
var payloadDomainKey = [32]byte{
	'u', 'p', 'k', 'e', 'e', 'p', '.', 'a', 't', 't', 'a', 'c', 'h', 'm', 'e', 'n',
	't', '.', 'p', 'a', 'y', 'l', 'o', 'a', 'd', 0, 0, 0, 0, 0, 0, 0,
}

// HashPayload computes the payload-domain BLAKE3 keyed hash of data.
func HashPayload(data []byte) Hash {
	hasher, err := blake3.NewKeyed(payloadDomainKey[:])
	if err != nil {
		// NewKeyed fails only on a wrong key length, which is
		// impossible with a [32]byte key.
		panic("attachment: blake3 keyed hasher: " + err.Error())
	}
	hasher.Write(data)

	var digest Hash
	hasher.Digest().Read(digest[:])
	return digest
}

// String returns the lowercase hex encoding of the hash.
func (hash Hash) String() string {
	return hex.EncodeToString(hash[:])
}

// locatorPrefix distinguishes attachment locators from any future
// addressing scheme carried in the same record field.
const locatorPrefix = "blake3:"

// Locator returns the hash formatted as a work order attachment
// locator, "blake3:<64 hex chars>".
func (hash Hash) Locator() string {
	return locatorPrefix + hash.String()
}

// ParseLocator parses a "blake3:<hex>" locator back into a Hash.
func ParseLocator(locator string) (Hash, error) {
	encoded, found := strings.CutPrefix(locator, locatorPrefix)
	if !found {
		return Hash{}, fmt.Errorf("attachment: locator %q: missing %q prefix", locator, locatorPrefix)
	}

	decoded, err := hex.DecodeString(encoded)
	if err != nil {
		return Hash{}, fmt.Errorf("attachment: locator %q: %w", locator, err)
	}
	if len(decoded) != len(Hash{}) {
		return Hash{}, fmt.Errorf("attachment: locator %q: digest is %d bytes, want %d",
			locator, len(decoded), len(Hash{}))
	}

	var hash Hash
	copy(hash[:], decoded)
	return hash, nil
}

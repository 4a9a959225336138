// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package hashing provides pluggable string hashers for cache keying.
//
// The detector's result cache keys entries by a hash of the request
// signature. The algorithm is configurable because the trade-off is
// collision resistance versus cost, not correctness: a collision in the
// cheap "simple" mode can at worst serve a capability record computed for
// a different-but-colliding header set, which the cache contract
// explicitly accepts in exchange for speed.
//
// Supported algorithms:
//
//   - simple: additive 32-bit checksum (djb2 variant). Fastest, weakest.
//   - fnv1a:  64-bit FNV-1a from the standard library. Default.
//   - xxhash: 64-bit xxHash. Near-fnv1a cost, better dispersion.
//   - sha256: cryptographic. For callers that cannot tolerate collisions.
//
// # Thread Safety
//
// All hashers are stateless and safe for concurrent use.
package hashing

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash/fnv"
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// Algorithm names accepted by New.
const (
	AlgorithmSimple = "simple"
	AlgorithmFNV1a  = "fnv1a"
	AlgorithmXXHash = "xxhash"
	AlgorithmSHA256 = "sha256"
)

// Hasher converts a request signature into a fixed cache key.
type Hasher interface {
	// Name returns the algorithm name as accepted by New.
	Name() string

	// Sum returns the hex-encoded hash of s.
	Sum(s string) string
}

// New returns the Hasher for the named algorithm.
//
// Returns an error for unrecognized names so configuration typos fail at
// startup instead of silently degrading key quality.
func New(algorithm string) (Hasher, error) {
	switch algorithm {
	case AlgorithmSimple:
		return simpleHasher{}, nil
	case AlgorithmFNV1a, "":
		return fnv1aHasher{}, nil
	case AlgorithmXXHash:
		return xxHasher{}, nil
	case AlgorithmSHA256:
		return sha256Hasher{}, nil
	default:
		return nil, fmt.Errorf("unknown hash algorithm: %q", algorithm)
	}
}

// Default returns the default Hasher (fnv1a).
func Default() Hasher {
	return fnv1aHasher{}
}

// =============================================================================
// Implementations
// =============================================================================

type simpleHasher struct{}

func (simpleHasher) Name() string { return AlgorithmSimple }

// Sum computes a djb2-style rolling checksum. Collisions are expected at
// scale; acceptable per the cache contract.
func (simpleHasher) Sum(s string) string {
	var h uint32 = 5381
	for i := 0; i < len(s); i++ {
		h = h*33 + uint32(s[i])
	}
	return strconv.FormatUint(uint64(h), 16)
}

type fnv1aHasher struct{}

func (fnv1aHasher) Name() string { return AlgorithmFNV1a }

func (fnv1aHasher) Sum(s string) string {
	h := fnv.New64a()
	// fnv.Write never returns an error.
	_, _ = h.Write([]byte(s))
	return strconv.FormatUint(h.Sum64(), 16)
}

type xxHasher struct{}

func (xxHasher) Name() string { return AlgorithmXXHash }

func (xxHasher) Sum(s string) string {
	return strconv.FormatUint(xxhash.Sum64String(s), 16)
}

type sha256Hasher struct{}

func (sha256Hasher) Name() string { return AlgorithmSHA256 }

func (sha256Hasher) Sum(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// Compile-time interface compliance.
var (
	_ Hasher = simpleHasher{}
	_ Hasher = fnv1aHasher{}
	_ Hasher = xxHasher{}
	_ Hasher = sha256Hasher{}
)

// Copyright 2018 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// Package bloom implements the LevelDB bloom filter encoding.
//
// A filter is the bit array of a bloom filter followed by a single byte
// recording the number of probes used to build it. The trailer byte makes
// filters self-describing: a reader uses the probe count stored in the
// filter, not the probe count of its own policy, so filters written with
// different parameters remain readable.
package bloom

import (
	"encoding/binary"

	"github.com/khushmanvar/tablefilter/internal/base"
)

// FilterPolicy builds and checks bloom filters sized at a fixed number of
// bits per key. The zero value is not useful; construct policies with
// NewFilterPolicy. A FilterPolicy is immutable and may be shared by any
// number of concurrent builds and queries.
type FilterPolicy struct {
	bitsPerKey int
	k          uint8
}

var _ base.FilterPolicy = FilterPolicy{}

// NewFilterPolicy returns a policy that allocates bitsPerKey bits of filter
// per key. A good value is 10, which yields a filter with ~1% false positive
// rate. The probe count is derived here, once, and recorded in every filter
// the policy builds.
func NewFilterPolicy(bitsPerKey int) FilterPolicy {
	if bitsPerKey < 0 {
		bitsPerKey = 0
	}
	// 0.69 is approximately ln(2). Rounding down trades a little accuracy
	// for cheaper probing.
	k := int(float64(bitsPerKey) * 0.69)
	if k < 1 {
		k = 1
	}
	if k > 30 {
		k = 30
	}
	return FilterPolicy{bitsPerKey: bitsPerKey, k: uint8(k)}
}

// Name returns the name of the policy. It matches the name LevelDB registers
// for its built-in bloom filter so that metaindex entries written by either
// implementation resolve to the same filter.
func (p FilterPolicy) Name() string {
	return "leveldb.BuiltinBloomFilter2"
}

// AppendFilter appends a filter encoding the given keys to dst and returns
// the updated slice. It never modifies dst[:len(dst)], so multiple filters
// may be built back to back into one buffer.
func (p FilterPolicy) AppendFilter(dst []byte, keys [][]byte) []byte {
	hashes := make([]uint32, len(keys))
	for i, key := range keys {
		hashes[i] = hash(key)
	}
	return p.appendHashes(dst, hashes)
}

// AppendFilterUint64 is AppendFilter for fixed 8-byte integer keys. Each key
// is hashed as the host-order bytes of its value, matching how the storage
// engine lays such keys out on disk.
func (p FilterPolicy) AppendFilterUint64(dst []byte, keys []uint64) []byte {
	hashes := make([]uint32, len(keys))
	for i, key := range keys {
		hashes[i] = hashUint64(key)
	}
	return p.appendHashes(dst, hashes)
}

// CreateFilter returns a freshly allocated filter encoding the given keys.
func (p FilterPolicy) CreateFilter(keys [][]byte) []byte {
	return p.AppendFilter(nil, keys)
}

// MayContain returns whether the filter may contain the key. False positives
// are possible, where it returns true for keys not in the original set.
// False negatives are not: it returns false only when the key is provably
// absent.
func (p FilterPolicy) MayContain(filter, key []byte) bool {
	return mayContain(filter, hash(key))
}

// MayContainUint64 is MayContain for fixed 8-byte integer keys.
func (p FilterPolicy) MayContainUint64(filter []byte, key uint64) bool {
	return mayContain(filter, hashUint64(key))
}

// appendHashes builds the filter from the already-hashed keys. Both key
// types funnel through here: once a key is reduced to its 32-bit hash the
// algorithm no longer cares what it was.
func (p FilterPolicy) appendHashes(dst []byte, hashes []uint32) []byte {
	nBits := len(hashes) * p.bitsPerKey
	// For small len(hashes), we can see a very high false positive rate.
	// Fix it by enforcing a minimum bloom filter length.
	if nBits < 64 {
		nBits = 64
	}
	nBytes := (nBits + 7) / 8
	// The probe modulus must match the allocated size, including the
	// round-up to a whole byte.
	nBits = nBytes * 8

	start := len(dst)
	dst = append(dst, make([]byte, nBytes+1)...)
	data := dst[start : start+nBytes]

	for _, h := range hashes {
		// Use double-hashing to generate a sequence of hash values.
		// See analysis in [Kirsch,Mitzenmacher 2006].
		delta := h>>17 | h<<15 // rotate right 17 bits
		for j := uint8(0); j < p.k; j++ {
			bitPos := h % uint32(nBits)
			data[bitPos/8] |= 1 << (bitPos % 8)
			h += delta
		}
	}
	dst[start+nBytes] = p.k
	return dst
}

func mayContain(filter []byte, h uint32) bool {
	if len(filter) < 2 {
		// Too short to hold even one data byte and the trailer: treat it as
		// an empty filter that matches nothing.
		return false
	}
	k := filter[len(filter)-1]
	if k > 30 {
		// Reserved for potentially new encodings for short bloom filters.
		// Consider it a match.
		return true
	}
	nBits := uint32(8 * (len(filter) - 1))
	delta := h>>17 | h<<15 // rotate right 17 bits
	for j := uint8(0); j < k; j++ {
		bitPos := h % nBits
		if filter[bitPos/8]&(1<<(bitPos%8)) == 0 {
			return false
		}
		h += delta
	}
	return true
}

// hash implements a hashing algorithm similar to the Murmur hash. It must
// produce bit-identical results to every other reader and writer of the
// filter encoding.
func hash(b []byte) uint32 {
	const (
		seed = 0xbc9f1d34
		m    = 0xc6a4a793
	)
	h := uint32(seed) ^ uint32(len(b)*m)
	for ; len(b) >= 4; b = b[4:] {
		h += uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
		h *= m
		h ^= h >> 16
	}
	switch len(b) {
	case 3:
		h += uint32(b[2]) << 16
		fallthrough
	case 2:
		h += uint32(b[1]) << 8
		fallthrough
	case 1:
		h += uint32(b[0])
		h *= m
		h ^= h >> 24
	}
	return h
}

// hashUint64 hashes the 8 in-memory bytes of v. Host byte order is a
// compatibility constraint: it must match the layout the storage engine
// persists integer keys in.
func hashUint64(v uint64) uint32 {
	var buf [8]byte
	binary.NativeEndian.PutUint64(buf[:], v)
	return hash(buf[:])
}

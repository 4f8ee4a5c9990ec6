// Copyright 2018 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package sstable

import (
	"bytes"
	"hash/crc32"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/khushmanvar/tablefilter"
	"github.com/khushmanvar/tablefilter/internal/base"
)

func TestBlockRoundTrip(t *testing.T) {
	payloads := [][]byte{
		nil,
		[]byte("x"),
		[]byte("some filter data, some filter data, some filter data"),
		bytes.Repeat([]byte{0xab}, 4096),
	}
	compressions := []tablefilter.Compression{
		tablefilter.NoCompression,
		tablefilter.SnappyCompression,
		tablefilter.DefaultCompression,
	}
	for _, payload := range payloads {
		for _, compression := range compressions {
			buf, bh := EncodeBlock(nil, payload, compression)
			require.Equal(t, uint64(0), bh.Offset)
			require.Equal(t, uint64(len(buf)-blockTrailerLen), bh.Length)

			decoded, err := DecodeBlock(buf)
			require.NoError(t, err)
			if len(payload) == 0 {
				require.Empty(t, decoded)
			} else {
				require.Equal(t, payload, decoded)
			}
		}
	}
}

func TestBlockAppend(t *testing.T) {
	// Blocks are framed back to back into one buffer; each handle addresses
	// its own block.
	var buf []byte
	var handles []BlockHandle
	payloads := [][]byte{[]byte("first block"), []byte("second block"), []byte("third")}
	for _, p := range payloads {
		var bh BlockHandle
		buf, bh = EncodeBlock(buf, p, tablefilter.NoCompression)
		handles = append(handles, bh)
	}
	for i, bh := range handles {
		decoded, err := DecodeBlock(buf[bh.Offset : bh.Offset+bh.Length+blockTrailerLen])
		require.NoError(t, err)
		require.Equal(t, payloads[i], decoded)
	}
}

func TestBlockCorruption(t *testing.T) {
	payload := []byte("some filter data worth protecting")
	buf, _ := EncodeBlock(nil, payload, tablefilter.NoCompression)

	// Too short to hold a trailer.
	_, err := DecodeBlock(buf[:3])
	require.ErrorIs(t, err, base.ErrCorruption)

	// Flipped payload byte fails the checksum.
	corrupt := append([]byte(nil), buf...)
	corrupt[0] ^= 0x01
	_, err = DecodeBlock(corrupt)
	require.ErrorIs(t, err, base.ErrCorruption)

	// Flipped compression-type byte fails the checksum too, since the
	// checksum covers it.
	corrupt = append([]byte(nil), buf...)
	corrupt[len(corrupt)-blockTrailerLen] = snappyCompressionBlockType
	_, err = DecodeBlock(corrupt)
	require.ErrorIs(t, err, base.ErrCorruption)

	// A valid checksum over an unknown compression type is still corrupt.
	unknown := append([]byte(nil), payload...)
	unknown = append(unknown, 0x07)
	crc := crcValue(unknown)
	unknown = append(unknown, byte(crc), byte(crc>>8), byte(crc>>16), byte(crc>>24))
	_, err = DecodeBlock(unknown)
	require.ErrorIs(t, err, base.ErrCorruption)

	// Snappy-typed block with garbage payload fails to decompress.
	garbage := []byte{0xff, 0xfe, 0xfd}
	framed := append([]byte(nil), garbage...)
	framed = append(framed, snappyCompressionBlockType)
	crc = crcValue(framed)
	framed = append(framed, byte(crc), byte(crc>>8), byte(crc>>16), byte(crc>>24))
	_, err = DecodeBlock(framed)
	require.ErrorIs(t, err, base.ErrCorruption)
}

func TestBlockHandleEncodeDecode(t *testing.T) {
	handles := []BlockHandle{
		{},
		{Offset: 1, Length: 2},
		{Offset: 1 << 30, Length: 1 << 20},
		{Offset: 1<<63 - 1, Length: 1<<40 + 7},
	}
	for _, want := range handles {
		var buf [16]byte
		n := want.Encode(buf[:])
		require.Greater(t, n, 0)

		var got BlockHandle
		require.Equal(t, n, got.Decode(buf[:n]))
		require.Equal(t, want, got)
	}

	var bh BlockHandle
	require.Zero(t, bh.Decode(nil))
}

// crcValue computes the trailer checksum for an already-framed payload plus
// type byte.
func crcValue(b []byte) uint32 {
	h := crc32.New(crcTable)
	h.Write(b)
	return h.Sum32()
}

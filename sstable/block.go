// Copyright 2018 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package sstable

import (
	"encoding/binary"
	"hash/crc32"

	"github.com/golang/snappy"
	"github.com/khushmanvar/tablefilter"
	"github.com/khushmanvar/tablefilter/internal/base"
)

const (
	noCompressionBlockType     = 0
	snappyCompressionBlockType = 1

	// blockTrailerLen is the length of the block trailer: a 1-byte
	// compression type followed by a 4-byte checksum.
	blockTrailerLen = 5
)

var crcTable = crc32.MakeTable(crc32.Castagnoli)

// BlockHandle is the location of a block within a buffer or file. Length
// does not include the block trailer.
type BlockHandle struct {
	Offset uint64
	Length uint64
}

// Encode encodes a BlockHandle into buf, returning the number of bytes
// written. buf must hold at least 2*binary.MaxVarintLen64 bytes.
func (h BlockHandle) Encode(buf []byte) int {
	n := binary.PutUvarint(buf, h.Offset)
	n += binary.PutUvarint(buf[n:], h.Length)
	return n
}

// Decode decodes a BlockHandle from buf, returning the number of bytes
// consumed, or 0 if buf does not hold a valid handle.
func (h *BlockHandle) Decode(buf []byte) int {
	var n1, n2 int
	h.Offset, n1 = binary.Uvarint(buf)
	if n1 <= 0 {
		return 0
	}
	h.Length, n2 = binary.Uvarint(buf[n1:])
	if n2 <= 0 {
		return 0
	}
	return n1 + n2
}

// EncodeBlock appends b to dst framed as a raw block: the (possibly
// compressed) payload followed by a 1-byte compression type and a 4-byte
// checksum covering both. It returns the updated buffer and the handle of
// the block within it.
func EncodeBlock(dst, b []byte, compression tablefilter.Compression) ([]byte, BlockHandle) {
	blockType := byte(noCompressionBlockType)
	if compression != tablefilter.NoCompression {
		blockType = snappyCompressionBlockType
		b = snappy.Encode(nil, b)
	}

	h := crc32.New(crcTable)
	h.Write(b)
	h.Write([]byte{blockType})
	checksum := h.Sum32()

	bh := BlockHandle{Offset: uint64(len(dst)), Length: uint64(len(b))}
	dst = append(dst, b...)
	var trailer [blockTrailerLen]byte
	trailer[0] = blockType
	binary.LittleEndian.PutUint32(trailer[1:], checksum)
	dst = append(dst, trailer[:]...)
	return dst, bh
}

// DecodeBlock verifies the checksum of a framed block and returns its
// decompressed payload. b must hold the payload plus the trailer, i.e. the
// bh.Length+blockTrailerLen bytes at bh.Offset of the encoding buffer.
func DecodeBlock(b []byte) ([]byte, error) {
	if len(b) < blockTrailerLen {
		return nil, base.ErrCorruption
	}
	n := len(b) - blockTrailerLen
	checksum := binary.LittleEndian.Uint32(b[n+1:])
	h := crc32.New(crcTable)
	h.Write(b[:n+1])
	if h.Sum32() != checksum {
		return nil, base.ErrCorruption
	}
	switch b[n] {
	case noCompressionBlockType:
		return b[:n:n], nil
	case snappyCompressionBlockType:
		decoded, err := snappy.Decode(nil, b[:n])
		if err != nil {
			return nil, base.ErrCorruption
		}
		return decoded, nil
	default:
		return nil, base.ErrCorruption
	}
}

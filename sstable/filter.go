// Copyright 2018 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package sstable

import (
	"encoding/binary"

	"github.com/khushmanvar/tablefilter"
	"github.com/khushmanvar/tablefilter/internal/base"
)

const (
	// filterBaseLg is the log2 of the range of data offsets covered by a
	// single filter in a block filter: one filter per 2KB of data.
	filterBaseLg = 11
	filterBase   = 1 << filterBaseLg
)

var (
	_ base.FilterWriter = (*TableFilterWriter)(nil)
	_ base.FilterWriter = (*BlockFilterWriter)(nil)
)

// NewFilterWriter returns a filter writer for the policy and scope carried
// by o, or nil if o carries no filter policy.
func NewFilterWriter(o *tablefilter.Options) tablefilter.FilterWriter {
	o = o.EnsureDefaults()
	if o.FilterPolicy == nil {
		return nil
	}
	if o.FilterType == tablefilter.BlockFilter {
		return NewBlockFilterWriter(o.FilterPolicy)
	}
	return NewTableFilterWriter(o.FilterPolicy)
}

// TableFilterWriter accumulates the user keys of an entire table and emits a
// single filter covering all of them.
type TableFilterWriter struct {
	policy base.FilterPolicy
	keys   [][]byte
}

// NewTableFilterWriter creates a filter writer for whole-table filters.
func NewTableFilterWriter(policy base.FilterPolicy) *TableFilterWriter {
	return &TableFilterWriter{policy: policy}
}

// AddKey adds a key to the filter. The key is copied; callers typically own
// key only until their next iteration step.
func (w *TableFilterWriter) AddKey(key []byte) {
	w.keys = append(w.keys, append([]byte(nil), key...))
}

// Finish appends the filter for the accumulated keys to buf and returns the
// updated slice. The writer is reset and may be reused for another table.
func (w *TableFilterWriter) Finish(buf []byte) []byte {
	buf = w.policy.AppendFilter(buf, w.keys)
	w.keys = w.keys[:0]
	return buf
}

// TableFilterReader answers membership queries against a finished
// whole-table filter.
type TableFilterReader struct {
	data   []byte
	policy base.FilterPolicy
}

// NewTableFilterReader creates a reader over the finished filter data.
func NewTableFilterReader(data []byte, policy base.FilterPolicy) *TableFilterReader {
	return &TableFilterReader{data: data, policy: policy}
}

// MayContain returns false only if the key is definitely not in the table.
func (r *TableFilterReader) MayContain(key []byte) bool {
	if r.policy == nil {
		return true
	}
	return r.policy.MayContain(r.data, key)
}

// BlockFilterWriter builds a filter block holding one filter per 2KB range
// of data offsets. The block layout is:
//
//	[filter 0]
//	...
//	[filter N-1]
//	[offset of filter 0]     (4 bytes, little-endian)
//	...
//	[offset of filter N-1]   (4 bytes, little-endian)
//	[offset of offset array] (4 bytes, little-endian)
//	[filterBaseLg]           (1 byte)
type BlockFilterWriter struct {
	policy  base.FilterPolicy
	keys    [][]byte
	data    []byte   // finished filters, back to back
	offsets []uint32 // start of each finished filter within data
}

// NewBlockFilterWriter creates a filter writer for per-block filters.
func NewBlockFilterWriter(policy base.FilterPolicy) *BlockFilterWriter {
	return &BlockFilterWriter{policy: policy}
}

// StartBlock tells the writer that subsequently added keys belong to the
// data block beginning at blockOffset. Offsets must not decrease across
// calls.
func (w *BlockFilterWriter) StartBlock(blockOffset uint64) {
	filterIndex := int(blockOffset / filterBase)
	for len(w.offsets) < filterIndex {
		w.generateFilter()
	}
}

// AddKey adds a key to the filter for the current block. The key is copied.
func (w *BlockFilterWriter) AddKey(key []byte) {
	w.keys = append(w.keys, append([]byte(nil), key...))
}

// Finish emits any pending filter followed by the offset array and trailer,
// appending the completed filter block to buf. The appended bytes form the
// whole block: a reader must be handed exactly this region.
func (w *BlockFilterWriter) Finish(buf []byte) []byte {
	if len(w.keys) > 0 {
		w.generateFilter()
	}
	buf = append(buf, w.data...)
	var tmp [4]byte
	for _, offset := range w.offsets {
		binary.LittleEndian.PutUint32(tmp[:], offset)
		buf = append(buf, tmp[:]...)
	}
	binary.LittleEndian.PutUint32(tmp[:], uint32(len(w.data)))
	buf = append(buf, tmp[:]...)
	return append(buf, filterBaseLg)
}

func (w *BlockFilterWriter) generateFilter() {
	w.offsets = append(w.offsets, uint32(len(w.data)))
	if len(w.keys) == 0 {
		// A range with no keys gets a zero-length filter, which the reader
		// reports as a definite miss.
		return
	}
	w.data = w.policy.AppendFilter(w.data, w.keys)
	w.keys = w.keys[:0]
}

// BlockFilterReader answers membership queries against a finished filter
// block, one data block offset at a time.
type BlockFilterReader struct {
	policy  base.FilterPolicy
	data    []byte // finished filters, back to back
	offsets []byte // offset array plus the trailing offset-array-start word
	num     int
	baseLg  uint
}

// NewBlockFilterReader parses a finished filter block. It returns nil if the
// block is malformed; a nil reader treats every key as a potential match.
func NewBlockFilterReader(b []byte, policy base.FilterPolicy) *BlockFilterReader {
	if len(b) < 5 {
		return nil
	}
	baseLg := uint(b[len(b)-1])
	arrayOffset := binary.LittleEndian.Uint32(b[len(b)-5 : len(b)-1])
	if int(arrayOffset) > len(b)-5 {
		return nil
	}
	return &BlockFilterReader{
		policy: policy,
		data:   b[:arrayOffset],
		// Includes the offset-array-start word, so the limit of filter i is
		// always the word after its start, even for the last filter.
		offsets: b[arrayOffset : len(b)-1],
		num:     (len(b) - 5 - int(arrayOffset)) / 4,
		baseLg:  baseLg,
	}
}

// MayContain returns whether the filter covering the data block at
// blockOffset may contain the key. Malformed offset entries are treated as
// potential matches.
func (r *BlockFilterReader) MayContain(blockOffset uint64, key []byte) bool {
	if r == nil || r.policy == nil {
		return true
	}
	index := int(blockOffset >> r.baseLg)
	if index < 0 || index >= r.num {
		// Errors are treated as potential matches.
		return true
	}
	start := binary.LittleEndian.Uint32(r.offsets[4*index:])
	limit := binary.LittleEndian.Uint32(r.offsets[4*index+4:])
	if start == limit {
		// A zero-length filter covers a range with no keys.
		return false
	}
	if start > limit || limit > uint32(len(r.data)) {
		return true
	}
	return r.policy.MayContain(r.data[start:limit], key)
}

// Copyright 2018 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package tablefilter

import "github.com/khushmanvar/tablefilter/internal/base"

// FilterPolicy exports the base.FilterPolicy type.
type FilterPolicy = base.FilterPolicy

// FilterWriter exports the base.FilterWriter type.
type FilterWriter = base.FilterWriter

// FilterType defines how filters are scoped within a table.
type FilterType int

const (
	// TableFilter is a filter that is applied to the whole table.
	TableFilter FilterType = iota
	// BlockFilter is a filter that is applied to each block.
	BlockFilter
)

// Compression is the per-block compression algorithm to use when framing
// filter data.
type Compression int

const (
	// DefaultCompression selects SnappyCompression.
	DefaultCompression Compression = iota
	// NoCompression stores blocks uncompressed.
	NoCompression
	// SnappyCompression compresses blocks with snappy.
	SnappyCompression
)

// Options provide a way to control how filters are built and framed.
type Options struct {
	// Compression is the compression applied when framing filter blocks.
	Compression Compression

	// FilterPolicy is the policy used to build and check filters. If nil, no
	// filtering is done.
	FilterPolicy FilterPolicy

	// FilterType is the scope of the filters built under FilterPolicy.
	FilterType FilterType
}

// EnsureDefaults finalizes the options, setting default values for any
// unspecified options. It is safe to call on a nil receiver.
func (o *Options) EnsureDefaults() *Options {
	if o == nil {
		o = &Options{}
	}
	if o.Compression == DefaultCompression {
		o.Compression = SnappyCompression
	}
	return o
}

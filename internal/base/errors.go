// Copyright 2018 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package base

import "errors"

// ErrCorruption is returned when a block fails its checksum or carries an
// unknown compression type.
var ErrCorruption = errors.New("tablefilter: corruption")

// Copyright 2018 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package biosimd provides fast byte-array scans over ASCII base sequences.
//
// See base/simd/doc.go for more comments on the overall design this package
// is adapted from.
package biosimd

// Copyright 2018 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package biosimd

import (
	"testing"

	"github.com/grailbio/testutil/expect"
)

func TestIsNonACGTPresentAllValid(t *testing.T) {
	expect.False(t, IsNonACGTPresent([]byte("ACGTACGTACGTACGTACGT")))
}

func TestIsNonACGTPresentDetectsLowercase(t *testing.T) {
	expect.True(t, IsNonACGTPresent([]byte("ACGTacgt")))
}

func TestIsNonACGTPresentDetectsN(t *testing.T) {
	expect.True(t, IsNonACGTPresent([]byte("ACGTNACGT")))
}

func TestIsNonACGTPresentEmpty(t *testing.T) {
	expect.False(t, IsNonACGTPresent(nil))
}

// Copyright 2026 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package strpool

import (
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Handle refers to an interned string. Handles are comparable and safe to
// copy; they hold no string data of their own.
//
// The zero Handle is the empty string. Two handles from the same pool are ==
// exactly when their content is equal. Handles from different pools must be
// compared with Equal or Compare.
type Handle struct {
	pool uint32
	idx  uint32
}

// resolve is the only place a handle is turned back into text.
func (h Handle) resolve() string {
	if h.pool == 0 {
		return ""
	}
	p := lookupPool(h.pool)
	if p == nil {
		panic(newInvalidHandleError("unknown pool %d", h.pool))
	}
	return p.Resolve(h)
}

// String returns the interned content.
func (h Handle) String() string {
	return h.resolve()
}

// GoString returns the quoted content, so %#v prints the text rather than
// the pool coordinates.
func (h Handle) GoString() string {
	return strconv.Quote(h.resolve())
}

// Bytes returns a copy of the content.
func (h Handle) Bytes() []byte {
	return []byte(h.resolve())
}

// Len returns the content length in bytes.
func (h Handle) Len() int {
	return len(h.resolve())
}

// IsZero reports whether h is the zero Handle, i.e. the empty string.
func (h Handle) IsZero() bool {
	return h == Handle{}
}

// Index returns the position of the content in its pool, or -1 for the zero
// Handle.
func (h Handle) Index() int {
	if h.pool == 0 {
		return -1
	}
	return int(h.idx)
}

// Pool returns the pool h was created by, or nil for the zero Handle.
func (h Handle) Pool() *Pool {
	if h.pool == 0 {
		return nil
	}
	return lookupPool(h.pool)
}

// Equal reports whether h and other have the same content.
func (h Handle) Equal(other Handle) bool {
	return h.resolve() == other.resolve()
}

// EqualString reports whether the content of h is s.
func (h Handle) EqualString(s string) bool {
	return h.resolve() == s
}

// Compare compares content lexicographically and returns -1, 0 or +1.
func (h Handle) Compare(other Handle) int {
	return strings.Compare(h.resolve(), other.resolve())
}

// Less reports whether the content of h sorts before that of other.
func (h Handle) Less(other Handle) bool {
	return h.Compare(other) < 0
}

// Hash returns the xxhash of the content. It equals HashString of the same
// text, so handles and strings can key the same hashed structure.
func (h Handle) Hash() uint64 {
	return xxhash.Sum64String(h.resolve())
}

// Compare compares the content of a and b. It is suitable for
// slices.SortFunc.
func Compare(a, b Handle) int {
	return a.Compare(b)
}

// HashString returns the hash a Handle with content s reports.
func HashString(s string) uint64 {
	return xxhash.Sum64String(s)
}

// Copyright 2025 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package util

import (
	"bytes"
	"encoding/json"
	"sync"
)

// bufferPool provides a pool of reusable byte buffers for JSON encoding.
var bufferPool = sync.Pool{
	New: func() any {
		// Pre-allocate 1KB buffer for typical JSON objects
		return bytes.NewBuffer(make([]byte, 0, 1024))
	},
}

// getBuffer retrieves a buffer from the pool.
func getBuffer() *bytes.Buffer {
	return bufferPool.Get().(*bytes.Buffer)
}

// putBuffer returns a buffer to the pool after resetting it.
func putBuffer(buf *bytes.Buffer) {
	buf.Reset()
	bufferPool.Put(buf)
}

// MarshalIndentJSON encodes x as indented JSON without HTML escaping. The
// result ends with a newline.
func MarshalIndentJSON(x any) ([]byte, error) {
	buf := getBuffer()
	defer putBuffer(buf)

	encoder := json.NewEncoder(buf)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(x); err != nil {
		return nil, err
	}

	return bytes.Clone(buf.Bytes()), nil
}

// Copyright 2026 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package strpool

import (
	"strings"
	"sync"
)

var sbPool = &stringBuilderPool{
	pool: sync.Pool{
		New: func() any {
			return &strings.Builder{}
		},
	},
}

type stringBuilderPool struct{ pool sync.Pool }

func (p *stringBuilderPool) Get() *strings.Builder {
	return p.pool.Get().(*strings.Builder)
}

func (p *stringBuilderPool) Put(sb *strings.Builder) {
	sb.Reset()
	p.pool.Put(sb)
}

// Strings resolves every handle in hs.
func Strings(hs []Handle) []string {
	ss := make([]string, len(hs))
	for i, h := range hs {
		ss[i] = h.resolve()
	}
	return ss
}

// Join concatenates the content of hs, separated by sep.
func Join(hs []Handle, sep string) string {
	switch len(hs) {
	case 0:
		return ""
	case 1:
		return hs[0].resolve()
	}

	sb := sbPool.Get()
	defer sbPool.Put(sb)

	for i, h := range hs {
		if i > 0 {
			sb.WriteString(sep)
		}
		sb.WriteString(h.resolve())
	}
	return sb.String()
}

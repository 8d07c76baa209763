// Copyright 2026 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package strpool

import (
	"context"
	"sync"
	"sync/atomic"
)

var (
	// lastPoolID is the id of the most recently created pool. Id 0 is never
	// assigned; it marks the zero Handle.
	lastPoolID atomic.Uint32

	// pools maps pool ids to pools. Pools are never unregistered, so a handle
	// can always find the pool that produced it.
	pools sync.Map

	defaultPool = sync.OnceValue(func() *Pool {
		return New(WithName("default"))
	})
)

func register(p *Pool) {
	p.id = lastPoolID.Add(1)
	if p.id == 0 {
		panic("strpool: pool ids exhausted")
	}
	pools.Store(p.id, p)
}

// lookupPool returns the pool with the given id, or nil.
func lookupPool(id uint32) *Pool {
	v, ok := pools.Load(id)
	if !ok {
		return nil
	}
	return v.(*Pool)
}

// Default returns the process-wide pool, creating it on first use. It backs
// Static, Make, FromBytes and handle unmarshaling.
func Default() *Pool {
	return defaultPool()
}

// Static interns s into the default pool without copying it.
func Static(s string) Handle {
	return Default().InternStatic(s)
}

// Make interns a copy of s into the default pool.
func Make(s string) Handle {
	return Default().Intern(s)
}

// MakeAll interns a copy of every string in ss into the default pool.
func MakeAll(ss []string) []Handle {
	return Default().InternAll(ss)
}

// FromBytes validates b as UTF-8 and interns a copy of it into the default
// pool.
func FromBytes(b []byte) (Handle, error) {
	return Default().InternBytes(b)
}

type poolKey struct{}

// NewContext returns a copy of ctx carrying p.
func NewContext(ctx context.Context, p *Pool) context.Context {
	return context.WithValue(ctx, poolKey{}, p)
}

// FromContext returns the pool attached to ctx by NewContext, or the default
// pool when there is none.
func FromContext(ctx context.Context) *Pool {
	if p, ok := ctx.Value(poolKey{}).(*Pool); ok && p != nil {
		return p
	}
	return Default()
}

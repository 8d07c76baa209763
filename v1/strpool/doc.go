// Copyright 2026 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package strpool implements string interning with small, copyable handles.
//
// A Pool deduplicates string content and addresses every distinct string by a
// stable index. A Handle is a pool id plus such an index: eight bytes that can
// be copied, stored in structs and compared without touching string data. When
// the text is needed, the handle is resolved through the pool that produced it.
//
//	p := strpool.New()
//	a := p.Intern("users")
//	b := p.Intern(strings.Clone("users"))
//	a == b              // true, same pool and index
//	a.String()          // "users"
//	a.Hash() == strpool.HashString("users")
//
// Every string-like operation on a Handle (Equal, Compare, Hash, String,
// Bytes, marshaling) goes through a single resolve step, so two handles are
// equal exactly when their content is equal. Within one pool, content equality
// and == coincide: the pool never stores the same content twice, and the
// empty string is always represented by the zero Handle.
//
// Pools only grow. Entries are never removed and indices are never reused.
// Every pool is registered for the lifetime of the process, so a handle stays
// valid whether or not the caller still holds the *Pool. Resolving a handle
// whose index the pool does not know panics with an *Error whose Code is
// InvalidHandleErr; handles built by the pool never do.
//
// The package level constructors (Static, Make, FromBytes) use a process-wide
// pool created on first use. Code that wants isolated pools can attach one to
// a context.Context with NewContext and fetch it back with FromContext.
//
// All Pool methods are safe for concurrent use. Each operation holds the
// pool lock only for the duration of a bounded map and slice access and never
// calls back into user code while holding it.
package strpool

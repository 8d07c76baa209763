// Copyright 2026 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package strpool

import (
	"bytes"
	"fmt"
	"math"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fortytw2/leaktest"
	"github.com/google/go-cmp/cmp"

	"github.com/open-policy-agent/strpool/v1/logging"
)

func TestPoolDedup(t *testing.T) {
	p := New()

	static := p.InternStatic("hello")
	owned := p.Intern(strings.Clone("hello"))
	fromBytes, err := p.InternBytes([]byte("hello"))
	if err != nil {
		t.Fatalf("InternBytes failed: %v", err)
	}

	if static != owned || owned != fromBytes {
		t.Fatalf("expected identical handles, got %v/%v/%v", static.Index(), owned.Index(), fromBytes.Index())
	}
	if static.Index() != 0 {
		t.Fatalf("expected index 0, got %d", static.Index())
	}
	if p.Len() != 1 {
		t.Fatalf("expected 1 entry, got %d", p.Len())
	}

	stats := p.Stats()
	if stats.Misses != 1 || stats.Hits != 2 {
		t.Fatalf("expected 1 miss and 2 hits, got %+v", stats)
	}
	if stats.Static != 1 || stats.Owned != 0 {
		t.Fatalf("expected first insertion to be static, got %+v", stats)
	}
}

func TestPoolGrowthMonotonic(t *testing.T) {
	p := New(WithSegmentSize(4))

	var inputs []string
	for i := range 50 {
		inputs = append(inputs, fmt.Sprintf("entry-%d", i))
	}

	handles := p.InternAll(inputs)
	if p.Len() != len(inputs) {
		t.Fatalf("expected %d entries, got %d", len(inputs), p.Len())
	}

	for i, s := range inputs {
		h := p.Intern(s)
		if h != handles[i] {
			t.Fatalf("re-interning %q changed handle", s)
		}
		if h.Index() != i {
			t.Fatalf("expected index %d for %q, got %d", i, s, h.Index())
		}
	}
	if p.Len() != len(inputs) {
		t.Fatalf("re-interning grew the pool to %d", p.Len())
	}

	if got, want := p.Stats().Segments, 13; got != want {
		t.Fatalf("expected %d segments, got %d", want, got)
	}
}

func TestPoolEmptyString(t *testing.T) {
	p := New()

	if h := p.Empty(); !h.IsZero() {
		t.Fatalf("expected zero handle for empty string, got %#v", h)
	}
	if h := p.Intern(""); h != (Handle{}) {
		t.Fatal("expected Intern(\"\") to return the zero handle")
	}
	h, err := p.InternBytes(nil)
	if err != nil || !h.IsZero() {
		t.Fatalf("expected zero handle from nil bytes, got %v, %v", h.Index(), err)
	}

	// The entry is still stored and counted.
	if p.Len() != 1 {
		t.Fatalf("expected 1 entry, got %d", p.Len())
	}
	if s, ok := p.Lookup(0); !ok || s != "" {
		t.Fatalf("expected empty entry at 0, got %q, %v", s, ok)
	}

	var zero Handle
	if zero.String() != "" || zero.Index() != -1 || zero.Pool() != nil {
		t.Fatal("zero handle should resolve to the empty string without a pool")
	}
}

func TestPoolLookup(t *testing.T) {
	p := New()
	p.Intern("a")
	p.Intern("b")

	tests := []struct {
		name   string
		idx    int
		want   string
		wantOK bool
	}{
		{name: "first", idx: 0, want: "a", wantOK: true},
		{name: "second", idx: 1, want: "b", wantOK: true},
		{name: "out of range", idx: 2},
		{name: "negative", idx: -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := p.Lookup(tt.idx)
			if ok != tt.wantOK || got != tt.want {
				t.Fatalf("Lookup(%d) = %q, %v; want %q, %v", tt.idx, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestPoolFind(t *testing.T) {
	p := New()
	h := p.Intern("present")

	if got, ok := p.Find("present"); !ok || got != h {
		t.Fatalf("Find(present) = %v, %v", got.Index(), ok)
	}
	if _, ok := p.Find("absent"); ok {
		t.Fatal("Find(absent) should fail")
	}
	if p.Contains("absent") {
		t.Fatal("Find must not insert")
	}
	if p.Len() != 1 {
		t.Fatalf("expected 1 entry, got %d", p.Len())
	}
}

func TestPoolOwnedCopy(t *testing.T) {
	p := New()
	buf := []byte("mutable")
	h, err := p.InternBytes(buf)
	if err != nil {
		t.Fatal(err)
	}
	copy(buf, "XXXXXXX")

	if h.String() != "mutable" {
		t.Fatalf("pool entry aliased caller buffer: %q", h.String())
	}
}

func TestInternBytesInvalidEncoding(t *testing.T) {
	tests := []struct {
		name   string
		input  []byte
		offset int
	}{
		{name: "lone 0xff", input: []byte{0xff}, offset: 0},
		{name: "after ascii", input: []byte{'h', 'i', 0xff}, offset: 2},
		{name: "truncated rune", input: []byte{'a', 0xe2, 0x82}, offset: 1},
		{name: "bad continuation", input: []byte{0xc3, 0x28}, offset: 0},
		{name: "after three bytes", input: []byte{'a', 'b', 'c', 0xff}, offset: 3},
		{name: "truncated four byte rune", input: []byte{'x', 0xf0, 0x9f, 0x98}, offset: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New()
			h, err := p.InternBytes(tt.input)
			if err == nil {
				t.Fatalf("expected error, got handle %q", h.String())
			}
			if !IsInvalidEncoding(err) {
				t.Fatalf("expected invalid encoding error, got %v", err)
			}
			e := err.(*Error)
			if e.Offset != tt.offset {
				t.Fatalf("expected offset %d, got %d", tt.offset, e.Offset)
			}
			if e.Unwrap() == nil {
				t.Fatal("expected underlying validation error")
			}
			if p.Len() != 0 {
				t.Fatalf("failed insertion must not grow the pool")
			}
		})
	}
}

func TestInternBytesValid(t *testing.T) {
	p := New()
	h, err := p.InternBytes([]byte{0x68, 0x69})
	if err != nil {
		t.Fatal(err)
	}
	if h.String() != "hi" {
		t.Fatalf("expected hi, got %q", h.String())
	}

	arr := [3]byte{'f', 'o', 'o'}
	h, err = p.InternBytes(arr[:])
	if err != nil || h.String() != "foo" {
		t.Fatalf("expected foo, got %q, %v", h.String(), err)
	}
}

func TestPoolEach(t *testing.T) {
	p := New()
	p.InternAll([]string{"x", "y", "z"})

	var got []string
	p.Each(func(h Handle, s string) bool {
		if h.String() != s {
			t.Fatalf("handle %d resolved to %q, want %q", h.Index(), h.String(), s)
		}
		got = append(got, s)
		// Interning from the callback must not deadlock.
		p.Intern(s + "!")
		return len(got) < 2
	})

	if diff := cmp.Diff([]string{"x", "y"}, got); diff != "" {
		t.Fatalf("unexpected iteration (-want +got):\n%s", diff)
	}
}

func TestPoolConcurrentIntern(t *testing.T) {
	defer leaktest.CheckTimeout(t, 5*time.Second)()

	p := New(WithSegmentSize(16))
	const workers = 8
	const distinct = 200

	results := make([][]Handle, workers)
	var wg sync.WaitGroup
	for w := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			hs := make([]Handle, distinct)
			for i := range distinct {
				hs[i] = p.Intern(fmt.Sprintf("key-%d", i))
			}
			results[w] = hs
		}()
	}
	wg.Wait()

	if p.Len() != distinct {
		t.Fatalf("expected %d entries, got %d", distinct, p.Len())
	}
	for w := 1; w < workers; w++ {
		if diff := cmp.Diff(results[0], results[w], cmp.Comparer(func(a, b Handle) bool { return a == b })); diff != "" {
			t.Fatalf("worker %d saw different handles:\n%s", w, diff)
		}
	}
	if s := p.Stats(); s.Hits+s.Misses != workers*distinct {
		t.Fatalf("expected %d operations, got %+v", workers*distinct, s)
	}
}

func TestResolveForeignHandle(t *testing.T) {
	p1 := New()
	p2 := New()
	h := p1.Intern("only in p1")

	err := catchInvalidHandle(func() { p2.Resolve(h) })
	if err == nil {
		t.Fatal("expected panic resolving a handle against a foreign pool")
	}
	if !IsInvalidHandle(err) {
		t.Fatalf("unexpected panic value: %v", err)
	}

	// Through the handle itself it resolves against its own pool.
	if h.String() != "only in p1" {
		t.Fatalf("unexpected content %q", h.String())
	}
}

func TestResolveUnknownIndex(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.New()
	logger.SetOutput(&buf)

	p := New(WithLogger(logger), WithName("broken"))
	h := Handle{pool: p.ID(), idx: 42}

	err := catchInvalidHandle(func() { _ = h.String() })
	if !IsInvalidHandle(err) {
		t.Fatalf("expected invalid handle panic, got %v", err)
	}
	if !strings.Contains(buf.String(), "out of range") || !strings.Contains(buf.String(), "pool=broken") {
		t.Fatalf("expected error log, got %q", buf.String())
	}
}

func TestResolveUnknownPool(t *testing.T) {
	err := catchInvalidHandle(func() { _ = Handle{pool: math.MaxUint32, idx: 0}.String() })
	if !IsInvalidHandle(err) {
		t.Fatalf("expected invalid handle panic, got %v", err)
	}
}

func TestHandleOutlivesPoolReference(t *testing.T) {
	hs := func() []Handle {
		p := New(WithSegmentSize(2))
		return p.InternAll([]string{"users", "groups", "roles"})
	}()

	for range 5 {
		runtime.GC()
	}

	if diff := cmp.Diff([]string{"users", "groups", "roles"}, Strings(hs)); diff != "" {
		t.Fatalf("unexpected content after GC (-want +got):\n%s", diff)
	}
	if hs[0].Pool() == nil || hs[0].Pool().Len() != 3 {
		t.Fatal("pool should stay registered while handles exist")
	}
}

func TestPoolIDsUnique(t *testing.T) {
	seen := map[uint32]bool{}
	for range 10 {
		id := New().ID()
		if id == 0 || seen[id] {
			t.Fatalf("duplicate or zero pool id %d", id)
		}
		seen[id] = true
	}
}

func TestPoolNames(t *testing.T) {
	if got := New(WithName("named")).Name(); got != "named" {
		t.Fatalf("expected named, got %q", got)
	}
	a, b := New().Name(), New().Name()
	if a == "" || a == b {
		t.Fatalf("expected distinct generated names, got %q and %q", a, b)
	}
	if Default().Name() != "default" {
		t.Fatalf("unexpected default pool name %q", Default().Name())
	}
}

func TestPoolMetricsRegistry(t *testing.T) {
	p := New()
	p.Intern("abcd")
	p.Intern("ab")
	p.Intern("ab")

	names := map[string]bool{}
	p.Metrics().Each(func(name string, _ any) {
		names[name] = true
	})
	for _, want := range []string{"hits", "misses", "static", "owned", "entry_length"} {
		if !names[want] {
			t.Errorf("missing metric %q", want)
		}
	}

	s := p.Stats()
	if s.MeanLength != 3 {
		t.Fatalf("expected mean length 3, got %v", s.MeanLength)
	}
	if s.Bytes != 6 || p.Bytes() != 6 {
		t.Fatalf("expected 6 bytes, got %d", s.Bytes)
	}
}

func TestEntryKindString(t *testing.T) {
	if KindStatic.String() != "static" || KindOwned.String() != "owned" || EntryKind(0).String() != "unknown" {
		t.Fatal("unexpected entry kind names")
	}
}

func catchInvalidHandle(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			e, ok := r.(*Error)
			if !ok {
				panic(r)
			}
			err = e
		}
	}()
	fn()
	return nil
}

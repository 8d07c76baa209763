// Copyright 2026 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package strpool

import (
	"math"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rcrowley/go-metrics"
	"golang.org/x/text/encoding"
	"golang.org/x/text/transform"

	"github.com/open-policy-agent/strpool/v1/logging"
)

const (
	// DefaultSegmentSize is the number of entries per storage segment.
	DefaultSegmentSize = 512

	// MaxEntries is the largest number of entries a pool can hold.
	MaxEntries = math.MaxUint32

	// lengthSampleSize bounds the reservoir behind the entry length histogram.
	lengthSampleSize = 1028
)

// EntryKind records how an entry was inserted.
type EntryKind uint8

const (
	KindStatic EntryKind = iota + 1 // Stored as given, without copying
	KindOwned                       // Cloned into the pool
)

func (k EntryKind) String() string {
	switch k {
	case KindStatic:
		return "static"
	case KindOwned:
		return "owned"
	}
	return "unknown"
}

type entry struct {
	s    string
	kind EntryKind
}

// Pool is an append-only, deduplicating string store. The zero value is not
// usable; create pools with New.
type Pool struct {
	id   uint32
	name string

	// mu guards segments, index, count and bytes.
	mu sync.RWMutex

	// segments hold entries in insertion order. Every segment is allocated
	// with capacity segmentSize and never reallocated, so entries never move.
	segments    [][]entry
	segmentSize uint32

	// index maps content to its position in segments.
	index map[string]uint32
	count uint32
	bytes int64

	capacity int
	logger   logging.Logger

	registry metrics.Registry
	hits     metrics.Counter
	misses   metrics.Counter
	static   metrics.Counter
	owned    metrics.Counter
	lengths  metrics.Histogram
}

// Opt is a configuration option for a Pool.
type Opt func(*Pool)

// WithName sets the pool name used in logs and metrics. Pools are named with
// a random UUID by default.
func WithName(name string) Opt {
	return func(p *Pool) {
		p.name = name
	}
}

// WithLogger sets the logger. Pools do not log by default.
func WithLogger(logger logging.Logger) Opt {
	return func(p *Pool) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithSegmentSize sets how many entries each storage segment holds.
func WithSegmentSize(n int) Opt {
	return func(p *Pool) {
		if n > 0 && uint64(n) <= math.MaxUint32 {
			p.segmentSize = uint32(n)
		}
	}
}

// WithCapacity presizes the content index for n entries.
func WithCapacity(n int) Opt {
	return func(p *Pool) {
		if n > 0 {
			p.capacity = n
		}
	}
}

// New creates an empty pool and registers it so that its handles can be
// resolved.
func New(opts ...Opt) *Pool {
	p := &Pool{
		segmentSize: DefaultSegmentSize,
		logger:      logging.NewNoOpLogger(),
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.name == "" {
		p.name = uuid.NewString()
	}
	p.index = make(map[string]uint32, p.capacity)

	p.registry = metrics.NewRegistry()
	p.hits = metrics.NewRegisteredCounter("hits", p.registry)
	p.misses = metrics.NewRegisteredCounter("misses", p.registry)
	p.static = metrics.NewRegisteredCounter("static", p.registry)
	p.owned = metrics.NewRegisteredCounter("owned", p.registry)
	p.lengths = metrics.NewRegisteredHistogram("entry_length", p.registry, metrics.NewUniformSample(lengthSampleSize))

	register(p)

	p.logger = p.logger.WithFields(map[string]any{"pool": p.name, "pool_id": p.id})
	p.logger.Debug("Created string pool with segment size %d.", p.segmentSize)

	return p
}

// ID returns the process-unique pool id carried by every handle of the pool.
func (p *Pool) ID() uint32 {
	return p.id
}

// Name returns the pool name.
func (p *Pool) Name() string {
	return p.name
}

// InternStatic inserts s without copying it. The caller guarantees that s is
// not backed by memory that is later mutated (string literals and strings
// that live for the rest of the program).
func (p *Pool) InternStatic(s string) Handle {
	return p.insert(s, KindStatic)
}

// Intern inserts an owned copy of s. The copy keeps the pool from retaining a
// larger buffer s may be a substring of.
func (p *Pool) Intern(s string) Handle {
	return p.insert(s, KindOwned)
}

// InternBytes validates b as UTF-8 and interns a copy of it. Invalid input
// yields an *Error with Code InvalidEncodingErr and the offset of the first
// invalid byte.
func (p *Pool) InternBytes(b []byte) (Handle, error) {
	if err := validateUTF8(b); err != nil {
		return Handle{}, err
	}

	// The conversion in the map index does not allocate.
	p.mu.RLock()
	idx, ok := p.index[string(b)]
	p.mu.RUnlock()
	if ok {
		p.hits.Inc(1)
		return p.handle(idx, len(b) == 0), nil
	}

	return p.insertCopy(string(b), KindOwned), nil
}

// InternAll interns an owned copy of every string in ss.
func (p *Pool) InternAll(ss []string) []Handle {
	hs := make([]Handle, len(ss))
	for i, s := range ss {
		hs[i] = p.Intern(s)
	}
	return hs
}

// Empty interns the empty string and returns its handle, which is the zero
// Handle.
func (p *Pool) Empty() Handle {
	return p.InternStatic("")
}

func (p *Pool) insert(s string, kind EntryKind) Handle {
	p.mu.RLock()
	idx, ok := p.index[s]
	p.mu.RUnlock()
	if ok {
		p.hits.Inc(1)
		return p.handle(idx, s == "")
	}

	if kind == KindOwned {
		s = strings.Clone(s)
	}
	return p.insertCopy(s, kind)
}

// insertCopy stores s, which the pool may keep as is.
func (p *Pool) insertCopy(s string, kind EntryKind) Handle {
	p.mu.Lock()
	// Double-check after acquiring write lock
	if idx, ok := p.index[s]; ok {
		p.mu.Unlock()
		p.hits.Inc(1)
		return p.handle(idx, s == "")
	}
	idx, segment := p.appendLocked(entry{s: s, kind: kind})
	p.mu.Unlock()

	p.misses.Inc(1)
	p.lengths.Update(int64(len(s)))
	if kind == KindStatic {
		p.static.Inc(1)
	} else {
		p.owned.Inc(1)
	}
	if segment >= 0 {
		p.logger.Debug("Allocated segment %d for %d entries.", segment, p.segmentSize)
	}

	return p.handle(idx, s == "")
}

// appendLocked stores e and returns its index, plus the number of the segment
// allocated for it or -1 if none was needed. Must be called with p.mu held.
func (p *Pool) appendLocked(e entry) (uint32, int) {
	if p.count == MaxEntries {
		panic("strpool: maximum entries exceeded")
	}

	idx := p.count
	segIdx := int(idx / p.segmentSize)
	allocated := -1
	if segIdx == len(p.segments) {
		p.segments = append(p.segments, make([]entry, 0, p.segmentSize))
		allocated = segIdx
	}
	p.segments[segIdx] = append(p.segments[segIdx], e)

	p.index[e.s] = idx
	p.count++
	p.bytes += int64(len(e.s))

	return idx, allocated
}

func (p *Pool) handle(idx uint32, empty bool) Handle {
	if empty {
		return Handle{}
	}
	return Handle{pool: p.id, idx: idx}
}

// Lookup returns the content stored at index idx, or false when the pool has
// no such entry.
func (p *Pool) Lookup(idx int) (string, bool) {
	if idx < 0 || uint64(idx) >= MaxEntries {
		return "", false
	}
	p.mu.RLock()
	s, ok := p.lookupLocked(uint32(idx))
	p.mu.RUnlock()
	return s, ok
}

func (p *Pool) lookupLocked(idx uint32) (string, bool) {
	if idx >= p.count {
		return "", false
	}
	return p.segments[idx/p.segmentSize][idx%p.segmentSize].s, true
}

// Resolve returns the content h refers to. It panics with an InvalidHandleErr
// if h was produced by another pool or refers to an index p does not hold.
func (p *Pool) Resolve(h Handle) string {
	if h.pool == 0 {
		return ""
	}
	if h.pool != p.id {
		p.logger.Error("Handle from pool %d resolved against pool %d.", h.pool, p.id)
		panic(newInvalidHandleError("handle belongs to pool %d, not pool %d", h.pool, p.id))
	}

	p.mu.RLock()
	s, ok := p.lookupLocked(h.idx)
	p.mu.RUnlock()
	if !ok {
		p.logger.Error("Handle index %d out of range.", h.idx)
		panic(newInvalidHandleError("no entry at index %d in pool %d", h.idx, p.id))
	}
	return s
}

// Find returns the handle for s without inserting it.
func (p *Pool) Find(s string) (Handle, bool) {
	p.mu.RLock()
	idx, ok := p.index[s]
	p.mu.RUnlock()
	if !ok {
		return Handle{}, false
	}
	return p.handle(idx, s == ""), true
}

// Contains reports whether s has been interned.
func (p *Pool) Contains(s string) bool {
	_, ok := p.Find(s)
	return ok
}

// Len returns the number of entries.
func (p *Pool) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return int(p.count)
}

// Bytes returns the summed length of all entries.
func (p *Pool) Bytes() int64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.bytes
}

// Each calls fn for every entry in insertion order until fn returns false. It
// iterates over a snapshot, so fn may intern into p.
func (p *Pool) Each(fn func(Handle, string) bool) {
	p.mu.RLock()
	snapshot := make([]string, 0, p.count)
	for _, seg := range p.segments {
		for _, e := range seg {
			snapshot = append(snapshot, e.s)
		}
	}
	p.mu.RUnlock()

	for i, s := range snapshot {
		if !fn(p.handle(uint32(i), s == ""), s) {
			return
		}
	}
}

// Metrics returns the registry holding the pool counters: hits, misses,
// static, owned and the entry_length histogram.
func (p *Pool) Metrics() metrics.Registry {
	return p.registry
}

// Stats is a point-in-time summary of a pool.
type Stats struct {
	ID         uint32  `json:"id"`
	Name       string  `json:"name"`
	Entries    int     `json:"entries"`
	Bytes      int64   `json:"bytes"`
	Segments   int     `json:"segments"`
	Static     int64   `json:"static"`
	Owned      int64   `json:"owned"`
	Hits       int64   `json:"hits"`
	Misses     int64   `json:"misses"`
	MeanLength float64 `json:"mean_length"`
}

// Stats returns the current pool statistics.
func (p *Pool) Stats() Stats {
	p.mu.RLock()
	entries, bytes, segments := int(p.count), p.bytes, len(p.segments)
	p.mu.RUnlock()

	return Stats{
		ID:         p.id,
		Name:       p.name,
		Entries:    entries,
		Bytes:      bytes,
		Segments:   segments,
		Static:     p.static.Count(),
		Owned:      p.owned.Count(),
		Hits:       p.hits.Count(),
		Misses:     p.misses.Count(),
		MeanLength: p.lengths.Mean(),
	}
}

func validateUTF8(b []byte) error {
	if utf8.Valid(b) {
		return nil
	}
	// The validator stops at the first invalid sequence; n is its offset.
	_, n, err := transform.Bytes(encoding.UTF8Validator, b)
	if err == nil {
		return nil
	}
	return newInvalidEncodingError(n, err)
}

// Copyright 2026 The OPA Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package metrics exposes string pool statistics to Prometheus.
package metrics

import (
	"cmp"
	"slices"
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/open-policy-agent/strpool/v1/strpool"
)

// DefaultNamespace prefixes every metric name unless overridden.
const DefaultNamespace = "strpool"

// Collector is a prometheus.Collector reporting one series per pool and
// metric. Series carry the pool name and id, since names need not be unique.
type Collector struct {
	mu    sync.RWMutex
	pools map[uint32]*strpool.Pool

	entries  *prometheus.Desc
	bytes    *prometheus.Desc
	segments *prometheus.Desc
	lookups  *prometheus.Desc
	inserts  *prometheus.Desc
}

// NewCollector returns a collector for pools. An empty namespace selects
// DefaultNamespace.
func NewCollector(namespace string, pools ...*strpool.Pool) *Collector {
	if namespace == "" {
		namespace = DefaultNamespace
	}

	c := &Collector{
		pools: make(map[uint32]*strpool.Pool, len(pools)),
		entries: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "entries"),
			"Number of distinct strings stored in the pool.",
			[]string{"pool", "pool_id"}, nil,
		),
		bytes: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "bytes"),
			"Total length in bytes of the strings stored in the pool.",
			[]string{"pool", "pool_id"}, nil,
		),
		segments: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "segments"),
			"Number of storage segments allocated by the pool.",
			[]string{"pool", "pool_id"}, nil,
		),
		lookups: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "lookups_total"),
			"Intern calls, by whether the content was already present.",
			[]string{"pool", "pool_id", "result"}, nil,
		),
		inserts: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "inserts_total"),
			"New entries, by how the content was stored.",
			[]string{"pool", "pool_id", "kind"}, nil,
		),
	}

	for _, p := range pools {
		c.Add(p)
	}
	return c
}

// Add starts reporting p.
func (c *Collector) Add(p *strpool.Pool) {
	if p == nil {
		return
	}
	c.mu.Lock()
	c.pools[p.ID()] = p
	c.mu.Unlock()
}

// Remove stops reporting p.
func (c *Collector) Remove(p *strpool.Pool) {
	c.mu.Lock()
	delete(c.pools, p.ID())
	c.mu.Unlock()
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.entries
	ch <- c.bytes
	ch <- c.segments
	ch <- c.lookups
	ch <- c.inserts
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.mu.RLock()
	pools := make([]*strpool.Pool, 0, len(c.pools))
	for _, p := range c.pools {
		pools = append(pools, p)
	}
	c.mu.RUnlock()

	slices.SortFunc(pools, func(a, b *strpool.Pool) int {
		return cmp.Compare(a.ID(), b.ID())
	})

	for _, p := range pools {
		s := p.Stats()
		id := strconv.FormatUint(uint64(s.ID), 10)
		ch <- prometheus.MustNewConstMetric(c.entries, prometheus.GaugeValue, float64(s.Entries), s.Name, id)
		ch <- prometheus.MustNewConstMetric(c.bytes, prometheus.GaugeValue, float64(s.Bytes), s.Name, id)
		ch <- prometheus.MustNewConstMetric(c.segments, prometheus.GaugeValue, float64(s.Segments), s.Name, id)
		ch <- prometheus.MustNewConstMetric(c.lookups, prometheus.CounterValue, float64(s.Hits), s.Name, id, "hit")
		ch <- prometheus.MustNewConstMetric(c.lookups, prometheus.CounterValue, float64(s.Misses), s.Name, id, "miss")
		ch <- prometheus.MustNewConstMetric(c.inserts, prometheus.CounterValue, float64(s.Static), s.Name, id, "static")
		ch <- prometheus.MustNewConstMetric(c.inserts, prometheus.CounterValue, float64(s.Owned), s.Name, id, "owned")
	}
}

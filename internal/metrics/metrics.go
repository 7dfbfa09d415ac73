/*******************************************************************************
* Copyright 2026 ldaptoid contributors
* SPDX-License-Identifier: GPL-3.0-only
* Refer to the file "LICENSE" for details.
*******************************************************************************/

// Package metrics exposes the counters named in spec §4.2/§4.5/§6 over a
// plain-text /metrics endpoint: uid/gid allocator collisions and
// fallbacks, directory size, and truncated-group counts.
package metrics

import (
	"fmt"
	"net/http"
	"sort"
	"sync"
)

// Registry holds a fixed set of named int64 counters/gauges. The refresh
// scheduler writes to it from one goroutine while the HTTP handler reads
// it from request-handling goroutines, so the map itself (not just the
// individual values) needs a lock — a per-name atomic.Int64 does not make
// concurrent insertion into the map safe.
type Registry struct {
	mutex  sync.Mutex
	values map[string]int64
}

// NewRegistry creates a Registry with the given counter names
// pre-registered at zero.
func NewRegistry(names ...string) *Registry {
	r := &Registry{values: make(map[string]int64, len(names))}
	for _, n := range names {
		r.values[n] = 0
	}
	return r
}

// Set assigns value to the named counter, registering it if unseen.
func (r *Registry) Set(name string, value int64) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.values[name] = value
}

// Add increments the named counter, registering it if unseen.
func (r *Registry) Add(name string, delta int64) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.values[name] += delta
}

// Snapshot returns the current value of every registered counter.
func (r *Registry) Snapshot() map[string]int64 {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	out := make(map[string]int64, len(r.values))
	for name, v := range r.values {
		out[name] = v
	}
	return out
}

// Handler serves the registry's counters as a minimal Prometheus text
// exposition (no HELP/TYPE metadata, which this small counter set does
// not need to be scraped correctly).
func (r *Registry) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		snap := r.Snapshot()
		names := make([]string, 0, len(snap))
		for n := range snap {
			names = append(names, n)
		}
		sort.Strings(names)
		for _, n := range names {
			fmt.Fprintf(w, "%s %d\n", n, snap[n])
		}
	})
}

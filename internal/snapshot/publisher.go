/*******************************************************************************
* Copyright 2026 ldaptoid contributors
* SPDX-License-Identifier: GPL-3.0-only
* Refer to the file "LICENSE" for details.
*******************************************************************************/

// Package snapshot builds directory.Snapshot values from raw adapter
// output (spec §4.5) and publishes them for lock-free concurrent reads
// (spec §4.9 design notes / REDESIGN FLAGS: an atomic pointer swap
// replaces the teacher's mutex-guarded mutable core.Database, since every
// reader here only ever needs a momentary, immutable view and never
// blocks a writer).
package snapshot

import (
	"sync/atomic"

	"github.com/veryCrunchy/ldaptoid/internal/directory"
)

// Publisher holds the current Snapshot behind an atomic pointer. Readers
// call Current to get a consistent, immutable view; Publish swaps in a
// newly built Snapshot atomically once a refresh succeeds.
type Publisher struct {
	current atomic.Pointer[directory.Snapshot]
}

// Current returns the most recently published Snapshot, or nil if no
// refresh has ever succeeded.
func (p *Publisher) Current() *directory.Snapshot {
	return p.current.Load()
}

// Publish atomically swaps in snap as the current Snapshot. snap must
// already have had Finalize called.
func (p *Publisher) Publish(snap *directory.Snapshot) {
	p.current.Store(snap)
}

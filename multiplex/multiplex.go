// SPDX-License-Identifier: ISC
// Copyright (c) 2019-2026 FineMaps Contributors
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package multiplex - per-viewer virtual id allocation
//
// maps permanent tile ids onto the host's narrow slot window, one
// independent namespace per viewer; bindings are in-memory only and
// every process start begins with an empty table
//
// invariant: within one viewer's namespace the live bindings form a
// bijection between tile ids and slots; a slot is cleared at the host
// before it is ever reused for a different tile
package multiplex

import (
	"sync"

	"github.com/bitmark-inc/logger"

	"github.com/sammyt291/FineMaps-sub001/host"
)

// Config - the slot window granted by the host, inclusive bounds
//
// slot 0 is reserved as the unavailable sentinel so FirstSlot must be
// at least 1; a zero value Config means no window at all
type Config struct {
	FirstSlot uint32
	LastSlot  uint32
}

// DispatchFunc - render dispatch hook, called once per new binding so
// the dispatch layer can transmit current pixels to that viewer
type DispatchFunc func(viewer host.Viewer, tileId uint64, slot host.Slot)

// Multiplexer - the per-viewer slot allocator
type Multiplexer struct {
	sync.Mutex // guards the viewers map

	cfg      Config
	host     host.Host
	dispatch DispatchFunc
	log      *logger.L
	viewers  map[host.Viewer]*viewerSpace
}

// one live binding
type binding struct {
	tileId   uint64
	slot     host.Slot
	lastUsed uint64 // logical recency, monotonic per viewer
}

// one viewer's independent namespace
//
// all mutations for a viewer hold this lock, satisfying the
// single-writer discipline; different viewers proceed in parallel
type viewerSpace struct {
	sync.Mutex
	byTile map[uint64]*binding
	bySlot map[host.Slot]*binding
	clock  uint64
	cursor uint32 // next slot to try for fresh allocations
}

// New - create a multiplexer for the configured window
//
// dispatch may be nil when no render push is wanted (tests, tooling)
func New(cfg Config, h host.Host, dispatch DispatchFunc) *Multiplexer {
	return &Multiplexer{
		cfg:      cfg,
		host:     h,
		dispatch: dispatch,
		log:      logger.New("multiplex"),
		viewers:  make(map[host.Viewer]*viewerSpace),
	}
}

// number of slots in the window, 0 when misconfigured
func (m *Multiplexer) windowSize() int {
	if 0 == m.cfg.FirstSlot || m.cfg.LastSlot < m.cfg.FirstSlot {
		return 0
	}
	return int(m.cfg.LastSlot-m.cfg.FirstSlot) + 1
}

func (m *Multiplexer) space(viewer host.Viewer, create bool) *viewerSpace {
	m.Lock()
	defer m.Unlock()

	s, ok := m.viewers[viewer]
	if !ok && create {
		s = &viewerSpace{
			byTile: make(map[uint64]*binding),
			bySlot: make(map[host.Slot]*binding),
			cursor: m.cfg.FirstSlot,
		}
		m.viewers[viewer] = s
	}
	return s
}

// Bind - ensure a live binding for (viewer, tile) and return its slot
//
// an existing binding is refreshed and returned unchanged; otherwise a
// free slot is used, evicting the least recently used binding (ties to
// the lowest slot) when the window is exhausted; returns
// SlotUnavailable only for a zero sized window
func (m *Multiplexer) Bind(viewer host.Viewer, tileId uint64) host.Slot {
	if 0 == m.windowSize() {
		return host.SlotUnavailable
	}

	s := m.space(viewer, true)
	s.Lock()

	// idempotent rebind
	if b, ok := s.byTile[tileId]; ok {
		s.clock += 1
		b.lastUsed = s.clock
		slot := b.slot
		s.Unlock()
		m.push(viewer, tileId, slot)
		return slot
	}

	var slot host.Slot
	if len(s.byTile) >= m.windowSize() {
		// window exhausted: reuse the least recently used slot
		victim := s.leastRecentlyUsed()
		slot = victim.slot
		delete(s.byTile, victim.tileId)
		delete(s.bySlot, victim.slot)

		// the host must drop the old association before reuse so two
		// tiles never answer to one slot, even transiently
		m.host.ClearSlot(viewer, slot)
		m.log.Debugf("evict: viewer: %s  tile: %d  slot: %d", viewer, victim.tileId, slot)
	} else {
		slot = s.freeSlot(m.cfg)
	}

	s.clock += 1
	b := &binding{
		tileId:   tileId,
		slot:     slot,
		lastUsed: s.clock,
	}
	s.byTile[tileId] = b
	s.bySlot[slot] = b
	s.Unlock()

	m.push(viewer, tileId, slot)
	return slot
}

// scan for the eviction victim: oldest use, ties to lowest slot
func (s *viewerSpace) leastRecentlyUsed() *binding {
	var victim *binding
	for _, b := range s.bySlot {
		if nil == victim ||
			b.lastUsed < victim.lastUsed ||
			(b.lastUsed == victim.lastUsed && b.slot < victim.slot) {
			victim = b
		}
	}
	return victim
}

// next unoccupied slot; caller guarantees the window is not full
func (s *viewerSpace) freeSlot(cfg Config) host.Slot {
	for {
		candidate := host.Slot(s.cursor)
		s.cursor += 1
		if s.cursor > cfg.LastSlot {
			s.cursor = cfg.FirstSlot
		}
		if _, occupied := s.bySlot[candidate]; !occupied {
			return candidate
		}
	}
}

// Rebind - adopt a slot association that survived a host restart
//
// the host retained "slot shows tile" while this table was empty; this
// records the pair without minting a new slot; false when hostSlot is
// outside the window; a stale claim on the slot by a different tile is
// dropped first (no host clear: the host content is already the new
// tile)
func (m *Multiplexer) Rebind(viewer host.Viewer, tileId uint64, hostSlot host.Slot) bool {
	if 0 == m.windowSize() ||
		uint32(hostSlot) < m.cfg.FirstSlot || uint32(hostSlot) > m.cfg.LastSlot {
		return false
	}

	s := m.space(viewer, true)
	s.Lock()

	// stale claim on the target slot
	if old, ok := s.bySlot[hostSlot]; ok && old.tileId != tileId {
		delete(s.byTile, old.tileId)
		delete(s.bySlot, old.slot)
		m.log.Debugf("rebind evicts: viewer: %s  tile: %d  slot: %d", viewer, old.tileId, hostSlot)
	}

	// the tile may be recorded on another slot; move it
	if old, ok := s.byTile[tileId]; ok && old.slot != hostSlot {
		delete(s.bySlot, old.slot)
		m.host.ClearSlot(viewer, old.slot)
	}

	s.clock += 1
	b := &binding{
		tileId:   tileId,
		slot:     hostSlot,
		lastUsed: s.clock,
	}
	s.byTile[tileId] = b
	s.bySlot[hostSlot] = b
	s.Unlock()

	m.push(viewer, tileId, hostSlot)
	return true
}

// Release - drop one binding, e.g. when its tile is deleted
func (m *Multiplexer) Release(viewer host.Viewer, tileId uint64) bool {
	s := m.space(viewer, false)
	if nil == s {
		return false
	}

	s.Lock()
	defer s.Unlock()

	b, ok := s.byTile[tileId]
	if !ok {
		return false
	}
	delete(s.byTile, tileId)
	delete(s.bySlot, b.slot)
	m.host.ClearSlot(viewer, b.slot)
	return true
}

// ReleaseAll - reclaim everything for a disconnecting viewer
//
// cost is proportional to that viewer's bindings only
func (m *Multiplexer) ReleaseAll(viewer host.Viewer) int {
	m.Lock()
	s, ok := m.viewers[viewer]
	if ok {
		delete(m.viewers, viewer)
	}
	m.Unlock()

	if !ok {
		return 0
	}

	s.Lock()
	defer s.Unlock()
	count := len(s.byTile)
	for slot := range s.bySlot {
		m.host.ClearSlot(viewer, slot)
	}
	s.byTile = make(map[uint64]*binding)
	s.bySlot = make(map[host.Slot]*binding)
	return count
}

// Lookup - slot currently bound for (viewer, tile)
func (m *Multiplexer) Lookup(viewer host.Viewer, tileId uint64) (host.Slot, bool) {
	s := m.space(viewer, false)
	if nil == s {
		return host.SlotUnavailable, false
	}
	s.Lock()
	defer s.Unlock()
	b, ok := s.byTile[tileId]
	if !ok {
		return host.SlotUnavailable, false
	}
	return b.slot, true
}

// TileAt - tile currently bound to a slot for a viewer
func (m *Multiplexer) TileAt(viewer host.Viewer, slot host.Slot) (uint64, bool) {
	s := m.space(viewer, false)
	if nil == s {
		return 0, false
	}
	s.Lock()
	defer s.Unlock()
	b, ok := s.bySlot[slot]
	if !ok {
		return 0, false
	}
	return b.tileId, true
}

// Bindings - number of live bindings for a viewer
func (m *Multiplexer) Bindings(viewer host.Viewer) int {
	s := m.space(viewer, false)
	if nil == s {
		return 0
	}
	s.Lock()
	defer s.Unlock()
	return len(s.byTile)
}

// BoundViewers - viewers holding a live binding for a tile
//
// used by the dispatch layer to refresh every watcher after a pixel
// update
func (m *Multiplexer) BoundViewers(tileId uint64) map[host.Viewer]host.Slot {
	m.Lock()
	viewers := make([]host.Viewer, 0, len(m.viewers))
	spaces := make([]*viewerSpace, 0, len(m.viewers))
	for v, s := range m.viewers {
		viewers = append(viewers, v)
		spaces = append(spaces, s)
	}
	m.Unlock()

	result := make(map[host.Viewer]host.Slot)
	for i, s := range spaces {
		s.Lock()
		if b, ok := s.byTile[tileId]; ok {
			result[viewers[i]] = b.slot
		}
		s.Unlock()
	}
	return result
}

func (m *Multiplexer) push(viewer host.Viewer, tileId uint64, slot host.Slot) {
	if nil != m.dispatch {
		m.dispatch(viewer, tileId, slot)
	}
}

// SPDX-License-Identifier: ISC
// Copyright (c) 2019-2026 FineMaps Contributors
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package multiplex_test

import (
	"os"
	"sync"
	"testing"

	"github.com/bitmark-inc/logger"
	"github.com/stretchr/testify/assert"

	"github.com/sammyt291/FineMaps-sub001/host"
	"github.com/sammyt291/FineMaps-sub001/multiplex"
)

const testingDirName = "testing"

// Test main entrypoint
func TestMain(m *testing.M) {
	os.RemoveAll(testingDirName)
	os.Mkdir(testingDirName, 0o700)

	logging := logger.Configuration{
		Directory: testingDirName,
		File:      "testing.log",
		Size:      1048576,
		Count:     10,
		Console:   false,
		Levels: map[string]string{
			logger.DefaultTag: "trace",
		},
	}

	// start logging
	_ = logger.Initialise(logging)

	result := m.Run()

	logger.Finalise()
	os.RemoveAll(testingDirName)
	os.Exit(result)
}

// fake host recording clear calls
type fakeHost struct {
	sync.Mutex
	cleared []clearCall
}

type clearCall struct {
	viewer host.Viewer
	slot   host.Slot
}

func (f *fakeHost) PushPixels(viewer host.Viewer, slot host.Slot, pixels []byte, palette []byte) error {
	return nil
}

func (f *fakeHost) ClearSlot(viewer host.Viewer, slot host.Slot) {
	f.Lock()
	defer f.Unlock()
	f.cleared = append(f.cleared, clearCall{viewer: viewer, slot: slot})
}

func (f *fakeHost) clearCount() int {
	f.Lock()
	defer f.Unlock()
	return len(f.cleared)
}

// check the bijection invariant for one viewer
func assertBijection(t *testing.T, m *multiplex.Multiplexer, viewer host.Viewer, tiles []uint64) {
	t.Helper()
	slots := map[host.Slot]uint64{}
	for _, tileId := range tiles {
		slot, ok := m.Lookup(viewer, tileId)
		assert.True(t, ok, "tile %d not bound", tileId)
		other, dup := slots[slot]
		assert.False(t, dup, "slot %d bound to tiles %d and %d", slot, other, tileId)
		slots[slot] = tileId

		back, ok := m.TileAt(viewer, slot)
		assert.True(t, ok, "slot %d not resolvable", slot)
		assert.Equal(t, tileId, back, "slot %d resolves wrongly", slot)
	}
	assert.Equal(t, len(tiles), m.Bindings(viewer), "extra bindings present")
}

func TestBindIdempotent(t *testing.T) {
	f := &fakeHost{}
	m := multiplex.New(multiplex.Config{FirstSlot: 1000, LastSlot: 1009}, f, nil)

	first := m.Bind("viewer-1", 42)
	assert.NotEqual(t, host.SlotUnavailable, first, "no slot produced")
	assert.True(t, uint32(first) >= 1000 && uint32(first) <= 1009, "slot outside window: %d", first)

	second := m.Bind("viewer-1", 42)
	assert.Equal(t, first, second, "rebind produced a different slot")
	assert.Equal(t, 1, m.Bindings("viewer-1"), "duplicate binding created")
	assert.Equal(t, 0, f.clearCount(), "unexpected clears")
}

func TestBijectionAfterMixedOperations(t *testing.T) {
	f := &fakeHost{}
	m := multiplex.New(multiplex.Config{FirstSlot: 1, LastSlot: 5}, f, nil)
	viewer := host.Viewer("viewer-1")

	for tileId := uint64(1); tileId <= 4; tileId += 1 {
		m.Bind(viewer, tileId)
	}
	m.Release(viewer, 2)
	m.Bind(viewer, 5)
	m.Bind(viewer, 6) // window now full
	m.Bind(viewer, 3) // refresh
	m.Bind(viewer, 7) // forces an eviction

	live := []uint64{}
	for tileId := uint64(1); tileId <= 7; tileId += 1 {
		if _, ok := m.Lookup(viewer, tileId); ok {
			live = append(live, tileId)
		}
	}
	assert.Equal(t, 5, len(live), "wrong live count")
	assertBijection(t, m, viewer, live)
}

// window of K slots, K+1 binds: LRU evicted, K survive
func TestEvictionUnderPressure(t *testing.T) {
	f := &fakeHost{}
	const k = 4
	m := multiplex.New(multiplex.Config{FirstSlot: 100, LastSlot: 100 + k - 1}, f, nil)
	viewer := host.Viewer("viewer-1")

	slots := map[uint64]host.Slot{}
	for tileId := uint64(1); tileId <= k; tileId += 1 {
		slots[tileId] = m.Bind(viewer, tileId)
	}

	// tile 1 is least recently used; tile k+1 must take its slot
	next := m.Bind(viewer, k+1)
	assert.Equal(t, slots[1], next, "victim slot not reused")
	assert.Equal(t, k, m.Bindings(viewer), "wrong binding count")

	_, ok := m.Lookup(viewer, 1)
	assert.False(t, ok, "least recently used binding survived")

	// the host was told to clear the slot before reuse
	assert.Equal(t, []clearCall{{viewer: viewer, slot: slots[1]}}, f.cleared, "wrong clear sequence")
}

// refreshing recency protects a binding from eviction
func TestEvictionRespectsRefresh(t *testing.T) {
	f := &fakeHost{}
	m := multiplex.New(multiplex.Config{FirstSlot: 1, LastSlot: 3}, f, nil)
	viewer := host.Viewer("viewer-1")

	m.Bind(viewer, 10)
	m.Bind(viewer, 20)
	m.Bind(viewer, 30)
	m.Bind(viewer, 10) // refresh the oldest

	m.Bind(viewer, 40) // evicts tile 20 now

	_, ok := m.Lookup(viewer, 10)
	assert.True(t, ok, "refreshed binding evicted")
	_, ok = m.Lookup(viewer, 20)
	assert.False(t, ok, "stale binding survived")
}

// equal recency ties break to the lowest slot
func TestEvictionTieBreak(t *testing.T) {
	f := &fakeHost{}
	m := multiplex.New(multiplex.Config{FirstSlot: 1, LastSlot: 1}, f, nil)
	viewer := host.Viewer("viewer-1")

	// window of one: every new bind evicts the previous tenant
	first := m.Bind(viewer, 1)
	second := m.Bind(viewer, 2)
	assert.Equal(t, first, second, "single slot not reused")
	assert.Equal(t, 1, m.Bindings(viewer), "wrong binding count")
}

func TestReleaseAll(t *testing.T) {
	f := &fakeHost{}
	m := multiplex.New(multiplex.Config{FirstSlot: 1, LastSlot: 10}, f, nil)

	for tileId := uint64(1); tileId <= 5; tileId += 1 {
		m.Bind("viewer-1", tileId)
		m.Bind("viewer-2", tileId)
	}

	count := m.ReleaseAll("viewer-1")
	assert.Equal(t, 5, count, "wrong reclaim count")
	assert.Equal(t, 0, m.Bindings("viewer-1"), "bindings survived disconnect")

	// the other viewer is untouched
	assert.Equal(t, 5, m.Bindings("viewer-2"), "other viewer affected")
	live := []uint64{1, 2, 3, 4, 5}
	assertBijection(t, m, "viewer-2", live)

	// a second disconnect is a no-op
	assert.Equal(t, 0, m.ReleaseAll("viewer-1"), "second disconnect reclaimed")
}

// the same tile binds independently per viewer
func TestViewersIndependent(t *testing.T) {
	f := &fakeHost{}
	m := multiplex.New(multiplex.Config{FirstSlot: 1, LastSlot: 2}, f, nil)

	s1 := m.Bind("viewer-1", 99)
	s2 := m.Bind("viewer-2", 99)

	// both get a valid slot from their own namespace
	assert.NotEqual(t, host.SlotUnavailable, s1, "viewer-1 unbound")
	assert.NotEqual(t, host.SlotUnavailable, s2, "viewer-2 unbound")
	assert.Equal(t, 1, m.Bindings("viewer-1"), "wrong count viewer-1")
	assert.Equal(t, 1, m.Bindings("viewer-2"), "wrong count viewer-2")
}

func TestRebind(t *testing.T) {
	f := &fakeHost{}
	m := multiplex.New(multiplex.Config{FirstSlot: 1000, LastSlot: 2000}, f, nil)
	viewer := host.Viewer("viewer-1")

	// adopt a surviving host association without minting a slot
	assert.True(t, m.Rebind(viewer, 7, 1500), "rebind refused")
	slot, ok := m.Lookup(viewer, 7)
	assert.True(t, ok, "rebound tile not found")
	assert.Equal(t, host.Slot(1500), slot, "wrong slot adopted")

	// outside the window is refused
	assert.False(t, m.Rebind(viewer, 8, 999), "slot below window accepted")
	assert.False(t, m.Rebind(viewer, 8, 2001), "slot above window accepted")

	// a different tile's stale claim on the slot is dropped
	assert.True(t, m.Rebind(viewer, 8, 1500), "rebind over stale claim refused")
	tileId, ok := m.TileAt(viewer, 1500)
	assert.True(t, ok, "slot empty after rebind")
	assert.Equal(t, uint64(8), tileId, "stale claim survived")
	_, ok = m.Lookup(viewer, 7)
	assert.False(t, ok, "evicted claim still live")

	// rebinding a tile recorded elsewhere moves it
	freshSlot := m.Bind(viewer, 9)
	assert.True(t, m.Rebind(viewer, 9, 1600), "move rebind refused")
	slot, _ = m.Lookup(viewer, 9)
	assert.Equal(t, host.Slot(1600), slot, "tile not moved")
	_, ok = m.TileAt(viewer, freshSlot)
	assert.False(t, ok, "old slot still claimed after move")
}

// a zero sized window is the only unavailable case
func TestZeroWindow(t *testing.T) {
	f := &fakeHost{}
	m := multiplex.New(multiplex.Config{}, f, nil)

	assert.Equal(t, host.SlotUnavailable, m.Bind("viewer-1", 1), "zero window produced a slot")
	assert.False(t, m.Rebind("viewer-1", 1, 1), "zero window accepted a rebind")
}

// the dispatch hook fires for new bindings
func TestDispatchHook(t *testing.T) {
	f := &fakeHost{}
	pushes := []uint64{}
	m := multiplex.New(multiplex.Config{FirstSlot: 1, LastSlot: 10}, f,
		func(viewer host.Viewer, tileId uint64, slot host.Slot) {
			pushes = append(pushes, tileId)
		})

	m.Bind("viewer-1", 5)
	m.Bind("viewer-1", 5) // no-op rebind still notifies; dedup is the cache's job
	m.Bind("viewer-1", 6)

	assert.Equal(t, []uint64{5, 5, 6}, pushes, "wrong dispatch sequence")
}

// parallel binds for one viewer stay consistent
func TestConcurrentBinds(t *testing.T) {
	f := &fakeHost{}
	m := multiplex.New(multiplex.Config{FirstSlot: 1, LastSlot: 64}, f, nil)
	viewer := host.Viewer("viewer-1")

	wg := sync.WaitGroup{}
	for w := 0; w < 8; w += 1 {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for tileId := uint64(1); tileId <= 32; tileId += 1 {
				m.Bind(viewer, tileId)
			}
		}(w)
	}
	wg.Wait()

	live := []uint64{}
	for tileId := uint64(1); tileId <= 32; tileId += 1 {
		live = append(live, tileId)
	}
	assertBijection(t, m, viewer, live)
}

// SPDX-License-Identifier: ISC
// Copyright (c) 2019-2026 FineMaps Contributors
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package rendercache - decompressed pixel cache and push dispatch
//
// keeps recently used tiles decompressed so repeated binds do not pay
// the codec cost again, and tracks which viewers already hold the
// current pixels so a no-op rebind never retransmits
package rendercache

import (
	"strconv"
	"sync"
	"time"

	"github.com/bitmark-inc/logger"
	gocache "github.com/patrickmn/go-cache"

	"github.com/sammyt291/FineMaps-sub001/host"
	"github.com/sammyt291/FineMaps-sub001/tilestore"
)

// default retention for decompressed pixel buffers
const (
	defaultExpiry   = 5 * time.Minute
	cleanupInterval = time.Minute
)

// Config - cache tuning
type Config struct {
	Expiry time.Duration // zero selects the default
}

// decompressed buffers for one tile
type entry struct {
	pixels  []byte
	palette []byte
}

// push bookkeeping for one tile
//
// generation counts pixel updates; viewers maps a viewer to the last
// generation actually transmitted to it
type tileState struct {
	generation uint64
	viewers    map[host.Viewer]uint64
}

// Cache - the render cache service
type Cache struct {
	sync.Mutex // guards state

	store  *tilestore.Store
	host   host.Host
	log    *logger.L
	pixels *gocache.Cache
	state  map[uint64]*tileState
}

// New - create a render cache over a tile store and a host connection
func New(store *tilestore.Store, h host.Host, cfg Config) *Cache {
	expiry := cfg.Expiry
	if 0 == expiry {
		expiry = defaultExpiry
	}
	return &Cache{
		store:  store,
		host:   h,
		log:    logger.New("rendercache"),
		pixels: gocache.New(expiry, cleanupInterval),
		state:  make(map[uint64]*tileState),
	}
}

func cacheKey(tileId uint64) string {
	return strconv.FormatUint(tileId, 10)
}

// GetPixels - decompressed pixels and palette for a tile
//
// a cache hit avoids storage and the codec entirely; (nil, nil, nil)
// when the tile does not exist
func (c *Cache) GetPixels(tileId uint64) ([]byte, []byte, error) {

	if cached, ok := c.pixels.Get(cacheKey(tileId)); ok {
		e := cached.(*entry)
		return e.pixels, e.palette, nil
	}

	pixels, palette, err := c.store.GetTileData(tileId)
	if nil != err || nil == pixels {
		return nil, nil, err
	}

	c.pixels.Set(cacheKey(tileId), &entry{pixels: pixels, palette: palette}, gocache.DefaultExpiration)
	return pixels, palette, nil
}

// MarkDirty - invalidate after a pixel update
//
// the cached buffers are dropped and the generation advances so every
// bound viewer becomes due for a fresh push
func (c *Cache) MarkDirty(tileId uint64) {
	c.pixels.Delete(cacheKey(tileId))

	c.Lock()
	s, ok := c.state[tileId]
	if !ok {
		s = &tileState{viewers: make(map[host.Viewer]uint64)}
		c.state[tileId] = s
	}
	s.generation += 1
	c.Unlock()
}

// Forget - drop all record of a deleted tile
func (c *Cache) Forget(tileId uint64) {
	c.pixels.Delete(cacheKey(tileId))
	c.Lock()
	delete(c.state, tileId)
	c.Unlock()
}

// DropViewer - forget a disconnected viewer's receipt records
//
// without this a reconnecting viewer with a fresh empty host would be
// skipped as already current
func (c *Cache) DropViewer(viewer host.Viewer) {
	c.Lock()
	defer c.Unlock()
	for _, s := range c.state {
		delete(s.viewers, viewer)
	}
}

// OnBind - transmit current pixels for a new binding, at most once
//
// satisfies the multiplexer's dispatch hook; a repeat bind of a tile
// the viewer already holds at the current generation skips the
// transmission but still refreshes the tile's last-access time, so a
// continuously displayed tile never reads as stale to the sweeper
func (c *Cache) OnBind(viewer host.Viewer, tileId uint64, slot host.Slot) {

	c.store.TouchAccess(tileId)

	c.Lock()
	s, ok := c.state[tileId]
	if !ok {
		s = &tileState{viewers: make(map[host.Viewer]uint64)}
		c.state[tileId] = s
	}
	generation := s.generation
	sent, have := s.viewers[viewer]
	c.Unlock()

	if have && sent == generation {
		return // already current
	}

	if c.send(viewer, tileId, slot, generation) {
		c.record(viewer, tileId, generation)
	}
}

// PushUpdate - transmit fresh pixels to every supplied binding
//
// called after MarkDirty with the bindings from the multiplexer; each
// viewer is recorded as holding the new generation
func (c *Cache) PushUpdate(tileId uint64, bindings map[host.Viewer]host.Slot) {

	c.Lock()
	s, ok := c.state[tileId]
	if !ok {
		s = &tileState{viewers: make(map[host.Viewer]uint64)}
		c.state[tileId] = s
	}
	generation := s.generation
	c.Unlock()

	for viewer, slot := range bindings {
		if c.send(viewer, tileId, slot, generation) {
			c.record(viewer, tileId, generation)
		}
	}
}

// fetch and transmit, false on any failure
func (c *Cache) send(viewer host.Viewer, tileId uint64, slot host.Slot, generation uint64) bool {

	pixels, palette, err := c.GetPixels(tileId)
	if nil != err {
		c.log.Errorf("read error: tile: %d: %s", tileId, err)
		return false
	}
	if nil == pixels {
		c.log.Warnf("push of missing tile: %d", tileId)
		return false
	}

	if err := c.host.PushPixels(viewer, slot, pixels, palette); nil != err {
		c.log.Errorf("push error: viewer: %s  tile: %d  slot: %d: %s", viewer, tileId, slot, err)
		return false
	}
	c.log.Debugf("pushed: viewer: %s  tile: %d  slot: %d  generation: %d", viewer, tileId, slot, generation)
	return true
}

func (c *Cache) record(viewer host.Viewer, tileId uint64, generation uint64) {
	c.Lock()
	defer c.Unlock()
	if s, ok := c.state[tileId]; ok {
		s.viewers[viewer] = generation
	}
}

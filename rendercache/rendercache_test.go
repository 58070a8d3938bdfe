// SPDX-License-Identifier: ISC
// Copyright (c) 2019-2026 FineMaps Contributors
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package rendercache_test

import (
	"os"
	"sync"
	"testing"
	"time"

	"github.com/bitmark-inc/logger"
	"github.com/stretchr/testify/assert"

	"github.com/sammyt291/FineMaps-sub001/host"
	"github.com/sammyt291/FineMaps-sub001/mode"
	"github.com/sammyt291/FineMaps-sub001/rendercache"
	"github.com/sammyt291/FineMaps-sub001/storage"
	"github.com/sammyt291/FineMaps-sub001/tilerecord"
	"github.com/sammyt291/FineMaps-sub001/tilestore"
)

// test database file
const (
	testingDirName   = "testing"
	databaseFileName = testingDirName + "/test.leveldb"
)

// Test main entrypoint
func TestMain(m *testing.M) {
	removeFiles()
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
	_ = mode.Initialise()

	result := m.Run()

	_ = mode.Finalise()
	logger.Finalise()
	removeFiles()
	os.Exit(result)
}

// remove all files created by test
func removeFiles() {
	os.RemoveAll(testingDirName)
}

// fake host recording every push
type fakeHost struct {
	sync.Mutex
	pushes []pushCall
}

type pushCall struct {
	viewer host.Viewer
	slot   host.Slot
	pixels []byte
}

func (f *fakeHost) PushPixels(viewer host.Viewer, slot host.Slot, pixels []byte, palette []byte) error {
	f.Lock()
	defer f.Unlock()
	copied := make([]byte, len(pixels))
	copy(copied, pixels)
	f.pushes = append(f.pushes, pushCall{viewer: viewer, slot: slot, pixels: copied})
	return nil
}

func (f *fakeHost) ClearSlot(viewer host.Viewer, slot host.Slot) {
}

func (f *fakeHost) pushCount() int {
	f.Lock()
	defer f.Unlock()
	return len(f.pushes)
}

func (f *fakeHost) lastPush() pushCall {
	f.Lock()
	defer f.Unlock()
	return f.pushes[len(f.pushes)-1]
}

func setup(t *testing.T) (*storage.Database, *tilestore.Store, *rendercache.Cache, *fakeHost) {
	os.RemoveAll(databaseFileName)
	db, err := storage.Open(databaseFileName, false)
	if nil != err {
		t.Fatalf("storage open error: %s", err)
	}
	store := tilestore.New(db, tilestore.Config{})
	f := &fakeHost{}
	return db, store, rendercache.New(store, f, rendercache.Config{}), f
}

func teardown(t *testing.T, db *storage.Database, store *tilestore.Store) {
	store.Close()
	db.Close()
	os.RemoveAll(databaseFileName)
}

// a solid colour tile buffer
func solidTile(colour byte) []byte {
	pixels := make([]byte, tilerecord.TileArea)
	for i := range pixels {
		pixels[i] = colour
	}
	return pixels
}

func TestGetPixels(t *testing.T) {
	db, store, cache, _ := setup(t)
	defer teardown(t, db, store)

	buffer := solidTile(0x11)
	palette := []byte{0x10, 0x20, 0x30, 0xff}
	tile, err := store.CreateTile(tilestore.CreateTile{
		Namespace: "demo",
		Pixels:    buffer,
		Palette:   palette,
	})
	assert.Nil(t, err, "create error")

	// first read decompresses, second comes from cache
	for round := 0; round < 2; round += 1 {
		pixels, pal, err := cache.GetPixels(tile.Id)
		assert.Nil(t, err, "read error, round %d", round)
		assert.Equal(t, buffer, pixels, "wrong pixels, round %d", round)
		assert.Equal(t, palette, pal, "wrong palette, round %d", round)
	}

	// missing tile reads as absent, not as an error
	pixels, _, err := cache.GetPixels(9999)
	assert.Nil(t, err, "unexpected error")
	assert.Nil(t, pixels, "phantom pixels")
}

// a repeat bind of unchanged pixels never retransmits
func TestPushOnce(t *testing.T) {
	db, store, cache, f := setup(t)
	defer teardown(t, db, store)

	tile, err := store.CreateTile(tilestore.CreateTile{
		Namespace: "demo",
		Pixels:    solidTile(0x11),
	})
	assert.Nil(t, err, "create error")

	cache.OnBind("viewer-1", tile.Id, 1000)
	assert.Equal(t, 1, f.pushCount(), "first bind did not push")

	cache.OnBind("viewer-1", tile.Id, 1000)
	cache.OnBind("viewer-1", tile.Id, 1000)
	assert.Equal(t, 1, f.pushCount(), "no-op rebind retransmitted")

	// another viewer still gets its own copy
	cache.OnBind("viewer-2", tile.Id, 1000)
	assert.Equal(t, 2, f.pushCount(), "second viewer not pushed")
}

// a pixel update makes every viewer due again
func TestMarkDirtyRepush(t *testing.T) {
	db, store, cache, f := setup(t)
	defer teardown(t, db, store)

	tile, err := store.CreateTile(tilestore.CreateTile{
		Namespace: "demo",
		Pixels:    solidTile(0x11),
	})
	assert.Nil(t, err, "create error")

	cache.OnBind("viewer-1", tile.Id, 1000)
	assert.Equal(t, 1, f.pushCount(), "first bind did not push")

	green := solidTile(0x22)
	assert.True(t, store.UpdateTilePixels(tile.Id, green), "update failed")
	cache.MarkDirty(tile.Id)

	cache.OnBind("viewer-1", tile.Id, 1000)
	assert.Equal(t, 2, f.pushCount(), "dirty tile not repushed")
	assert.Equal(t, green, f.lastPush().pixels, "stale pixels pushed")
}

// an update fans out to every supplied binding
func TestPushUpdate(t *testing.T) {
	db, store, cache, f := setup(t)
	defer teardown(t, db, store)

	tile, err := store.CreateTile(tilestore.CreateTile{
		Namespace: "demo",
		Pixels:    solidTile(0x11),
	})
	assert.Nil(t, err, "create error")

	cache.OnBind("viewer-1", tile.Id, 1000)
	cache.OnBind("viewer-2", tile.Id, 1001)
	assert.Equal(t, 2, f.pushCount(), "binds did not push")

	blue := solidTile(0x33)
	assert.True(t, store.UpdateTilePixels(tile.Id, blue), "update failed")
	cache.MarkDirty(tile.Id)
	cache.PushUpdate(tile.Id, map[host.Viewer]host.Slot{
		"viewer-1": 1000,
		"viewer-2": 1001,
	})
	assert.Equal(t, 4, f.pushCount(), "update not fanned out")

	// both viewers are now current; rebinds stay silent
	cache.OnBind("viewer-1", tile.Id, 1000)
	cache.OnBind("viewer-2", tile.Id, 1001)
	assert.Equal(t, 4, f.pushCount(), "current viewers repushed")
}

// a reconnecting viewer is pushed again
func TestDropViewer(t *testing.T) {
	db, store, cache, f := setup(t)
	defer teardown(t, db, store)

	tile, err := store.CreateTile(tilestore.CreateTile{
		Namespace: "demo",
		Pixels:    solidTile(0x11),
	})
	assert.Nil(t, err, "create error")

	cache.OnBind("viewer-1", tile.Id, 1000)
	cache.DropViewer("viewer-1")
	cache.OnBind("viewer-1", tile.Id, 1000)
	assert.Equal(t, 2, f.pushCount(), "reconnected viewer not repushed")
}

// binding refreshes last access so a displayed tile never goes stale
func TestBindRefreshesAccess(t *testing.T) {
	db, store, cache, _ := setup(t)
	defer teardown(t, db, store)

	tile, err := store.CreateTile(tilestore.CreateTile{
		Namespace: "demo",
		Pixels:    solidTile(0x11),
	})
	assert.Nil(t, err, "create error")

	// access times have second resolution: cross a boundary so the
	// creation time falls behind the deadline
	time.Sleep(1100 * time.Millisecond)
	deadline := time.Now()
	assert.Equal(t, []uint64{tile.Id}, store.ListStale(deadline), "aged tile not listed stale")

	cache.OnBind("viewer-1", tile.Id, 1000)

	// the touch is applied by a background worker
	stale := store.ListStale(deadline)
	for i := 0; i < 100 && 0 != len(stale); i += 1 {
		time.Sleep(10 * time.Millisecond)
		stale = store.ListStale(deadline)
	}
	assert.Equal(t, 0, len(stale), "actively bound tile listed stale")

	// a no-op rebind still refreshes
	time.Sleep(1100 * time.Millisecond)
	deadline = time.Now()
	cache.OnBind("viewer-1", tile.Id, 1000)

	stale = store.ListStale(deadline)
	for i := 0; i < 100 && 0 != len(stale); i += 1 {
		time.Sleep(10 * time.Millisecond)
		stale = store.ListStale(deadline)
	}
	assert.Equal(t, 0, len(stale), "rebound tile listed stale")
}

// a deleted tile pushes nothing and leaves no state behind
func TestForget(t *testing.T) {
	db, store, cache, f := setup(t)
	defer teardown(t, db, store)

	tile, err := store.CreateTile(tilestore.CreateTile{
		Namespace: "demo",
		Pixels:    solidTile(0x11),
	})
	assert.Nil(t, err, "create error")

	cache.OnBind("viewer-1", tile.Id, 1000)
	assert.Equal(t, 1, f.pushCount(), "bind did not push")

	assert.True(t, store.DeleteTile(tile.Id), "delete failed")
	cache.Forget(tile.Id)

	cache.OnBind("viewer-1", tile.Id, 1000)
	assert.Equal(t, 1, f.pushCount(), "deleted tile pushed")
}

// SPDX-License-Identifier: ISC
// Copyright (c) 2019-2026 FineMaps Contributors
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package tilestore_test

import (
	"os"
	"testing"

	"github.com/bitmark-inc/logger"

	"github.com/sammyt291/FineMaps-sub001/mode"
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

// open a fresh database and store
func setup(t *testing.T) (*storage.Database, *tilestore.Store) {
	os.RemoveAll(databaseFileName)
	db, err := storage.Open(databaseFileName, false)
	if nil != err {
		t.Fatalf("storage open error: %s", err)
	}
	store := tilestore.New(db, tilestore.Config{})
	return db, store
}

// post test cleanup
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

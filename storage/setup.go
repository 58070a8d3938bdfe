// SPDX-License-Identifier: ISC
// Copyright (c) 2019-2026 FineMaps Contributors
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package storage

import (
	"encoding/binary"
	"fmt"
	"reflect"
	"sync"

	"github.com/syndtr/goleveldb/leveldb"
	ldb_opt "github.com/syndtr/goleveldb/leveldb/opt"

	"github.com/bitmark-inc/logger"
)

// Pools - the set of tables
//
// note all fields must be exported or the reflection in Open will panic
type Pools struct {
	Tiles     *PoolHandle `prefix:"T"`
	TileData  *PoolHandle `prefix:"D"`
	Access    *PoolHandle `prefix:"L"`
	Groups    *PoolHandle `prefix:"G"`
	Members   *PoolHandle `prefix:"M"`
	Names     *PoolHandle `prefix:"A"`
	Sequences *PoolHandle `prefix:"N"`
}

// Database - a single opened tile database and its pools
//
// explicitly constructed and passed by reference; no process-wide
// mutable state
type Database struct {
	sync.RWMutex // protects db against close during access

	Pool Pools

	log       *logger.L
	db        *leveldb.DB
	writeLock sync.Mutex // serialises transactions
}

// for database version
var versionKey = []byte{0x00, 'V', 'E', 'R', 'S', 'I', 'O', 'N'}

const currentDBVersion = 0x100

// Open - open (creating if necessary) a tile database
//
// the returned Database must be closed by the caller
func Open(path string, readOnly bool) (*Database, error) {

	log := logger.New("storage")
	log.Infof("open: %q  read only: %v", path, readOnly)

	opt := &ldb_opt.Options{
		ErrorIfExist:   false,
		ErrorIfMissing: readOnly,
		ReadOnly:       readOnly,
	}

	db, err := leveldb.OpenFile(path, opt)
	if nil != err {
		return nil, err
	}

	version, err := getVersion(db)
	if nil != err {
		db.Close()
		return nil, err
	}

	// ensure no database downgrade
	if version > currentDBVersion {
		db.Close()
		log.Criticalf("database version: %d > current version: %d", version, currentDBVersion)
		return nil, fmt.Errorf("database version: %d > current version: %d", version, currentDBVersion)
	}

	// database was empty so tag as current version
	if 0 == version && !readOnly {
		if err = putVersion(db, currentDBVersion); nil != err {
			db.Close()
			return nil, err
		}
	}

	d := &Database{
		log: log,
		db:  db,
	}

	// this will be a struct type
	poolType := reflect.TypeOf(d.Pool)

	// get write access by using pointer + Elem()
	poolValue := reflect.ValueOf(&d.Pool).Elem()

	// scan each field
	for i := 0; i < poolType.NumField(); i += 1 {

		fieldInfo := poolType.Field(i)

		prefixTag := fieldInfo.Tag.Get("prefix")
		if 1 != len(prefixTag) {
			db.Close()
			return nil, fmt.Errorf("pool: %v has invalid prefix: %q", fieldInfo, prefixTag)
		}

		prefix := prefixTag[0]
		limit := []byte(nil)
		if prefix < 255 {
			limit = []byte{prefix + 1}
		}

		p := &PoolHandle{
			prefix:   prefix,
			limit:    limit,
			database: d,
		}
		poolValue.Field(i).Set(reflect.ValueOf(p))
	}

	return d, nil
}

// Close - close the database connection
//
// in-progress accesses drain before the handle is released
func (d *Database) Close() {
	d.Lock()
	defer d.Unlock()

	if nil == d.db {
		return
	}
	d.log.Info("closing…")
	d.db.Close()
	d.db = nil
	d.log.Flush()
}

// return:
//
//	version number (0 for a new database)
func getVersion(db *leveldb.DB) (int, error) {
	versionValue, err := db.Get(versionKey, nil)
	if leveldb.ErrNotFound == err {
		return 0, nil
	} else if nil != err {
		return 0, err
	}

	if 4 != len(versionValue) {
		return 0, fmt.Errorf("incompatible database version length: expected: %d  actual: %d", 4, len(versionValue))
	}

	return int(binary.BigEndian.Uint32(versionValue)), nil
}

func putVersion(db *leveldb.DB, version int) error {
	currentVersion := make([]byte, 4)
	binary.BigEndian.PutUint32(currentVersion, uint32(version))

	return db.Put(versionKey, currentVersion, nil)
}

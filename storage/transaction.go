// SPDX-License-Identifier: ISC
// Copyright (c) 2019-2026 FineMaps Contributors
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package storage

import (
	"encoding/binary"

	"github.com/syndtr/goleveldb/leveldb"

	"github.com/sammyt291/FineMaps-sub001/fault"
)

// Transaction - an atomic multi-statement mutation
//
// writers are serialised: Begin blocks until the previous transaction
// commits or aborts, so a sequence increment read inside a transaction
// cannot race another creator; all puts and deletes land in one batch
// written atomically by Commit
type Transaction struct {
	database *Database
	batch    *leveldb.Batch
	pending  map[string]pendingOp
	closed   bool
}

// uncommitted write overlay so reads inside the transaction see the
// transaction's own effects
type pendingOp struct {
	deleted bool
	value   []byte
}

// Begin - start a transaction, blocking until the writer slot is free
func (d *Database) Begin() *Transaction {
	d.writeLock.Lock()
	return &Transaction{
		database: d,
		batch:    new(leveldb.Batch),
		pending:  make(map[string]pendingOp),
	}
}

func pendingKey(p *PoolHandle, key []byte) string {
	return string(p.prefix) + string(key)
}

// Put - stage a key/value pair
func (t *Transaction) Put(p *PoolHandle, key []byte, value []byte) {
	staged := make([]byte, len(value))
	copy(staged, value)
	t.pending[pendingKey(p, key)] = pendingOp{value: staged}
	t.batch.Put(p.prefixKey(key), value)
}

// PutN - stage a big endian uint64 value
func (t *Transaction) PutN(p *PoolHandle, key []byte, value uint64) {
	buffer := make([]byte, 8)
	binary.BigEndian.PutUint64(buffer, value)
	t.Put(p, key, buffer)
}

// Delete - stage a removal
func (t *Transaction) Delete(p *PoolHandle, key []byte) {
	t.pending[pendingKey(p, key)] = pendingOp{deleted: true}
	t.batch.Delete(p.prefixKey(key))
}

// Get - read through the transaction
//
// staged writes are visible; returns nil for absent or staged-deleted
// keys
func (t *Transaction) Get(p *PoolHandle, key []byte) []byte {
	if op, ok := t.pending[pendingKey(p, key)]; ok {
		if op.deleted {
			return nil
		}
		return op.value
	}
	return p.Get(key)
}

// GetN - read a big endian uint64 through the transaction
func (t *Transaction) GetN(p *PoolHandle, key []byte) (uint64, bool) {
	buffer := t.Get(p, key)
	if nil == buffer || len(buffer) < 8 {
		return 0, false
	}
	return binary.BigEndian.Uint64(buffer[:8]), true
}

// Has - check a key through the transaction
func (t *Transaction) Has(p *PoolHandle, key []byte) bool {
	if op, ok := t.pending[pendingKey(p, key)]; ok {
		return !op.deleted
	}
	return p.Has(key)
}

// NextSequence - advance the named id sequence and return the new value
//
// the increment is part of this transaction so an aborted transaction
// does not consume a visible id; a failed Commit after a successful
// write elsewhere may still leave a gap, which is accepted
func (t *Transaction) NextSequence(name string) uint64 {
	key := []byte(name)
	n, _ := t.GetN(t.database.Pool.Sequences, key)
	n += 1
	t.PutN(t.database.Pool.Sequences, key, n)
	return n
}

// Commit - write the whole batch atomically
func (t *Transaction) Commit() error {
	defer t.release()

	t.database.RLock()
	defer t.database.RUnlock()
	if nil == t.database.db {
		return fault.ErrStoreUnavailable
	}

	err := t.database.db.Write(t.batch, nil)
	if nil != err {
		t.database.log.Errorf("transaction commit failed: %s", err)
		return fault.ErrStoreUnavailable
	}
	return nil
}

// Abort - discard all staged changes
func (t *Transaction) Abort() {
	t.release()
}

func (t *Transaction) release() {
	if t.closed {
		return
	}
	t.closed = true
	t.batch.Reset()
	t.pending = nil
	t.database.writeLock.Unlock()
}

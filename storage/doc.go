// SPDX-License-Identifier: ISC
// Copyright (c) 2019-2026 FineMaps Contributors
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package storage - maintain the on-disk tile store
//
// maintain separate pools of a number of elements in key->value form
//
// This maintains a LevelDB database split into a series of tables.
// Each table is defined by a prefix byte that is obtained from the
// prefix tag in the struct defining the available tables.
//
// Notes:
// 1. each separate pool has a single byte prefix (to spread the keys in LevelDB)
// 2. ++          = concatenation of byte data
// 3. tile id     = big endian uint64 (8 bytes)
// 4. group id    = big endian uint64 (8 bytes)
// 5. count       = big endian uint64 (8 bytes)
//
// Tiles:
//
//	T ++ tile id               - tile metadata
//	                             data: packed tile record
//	D ++ tile id               - tile pixel payload
//	                             data: packed tile data record (compressed pixels ++ palette ++ fingerprint)
//	L ++ tile id               - last access timestamp
//	                             data: unix seconds (big endian uint64)
//
// Groups:
//
//	G ++ group id                         - group metadata
//	                                        data: packed group record
//	M ++ group id ++ gridY(2) ++ gridX(2) - member index
//	                                        data: tile id
//
// Names:
//
//	A ++ namespace ++ 0x00 ++ name - single naming table across tiles and groups
//	                                 data: kind byte ('t' or 'g') ++ id
//
// Sequences:
//
//	N ++ sequence name         - next id for the named sequence ("tile", "group")
//	                             data: count
//
// All multi-statement mutations go through a Transaction whose batch
// is written atomically; the id sequences are only ever advanced
// inside the transaction creating the record that uses the id.
package storage

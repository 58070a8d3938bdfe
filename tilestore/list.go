// SPDX-License-Identifier: ISC
// Copyright (c) 2019-2026 FineMaps Contributors
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package tilestore

import (
	"encoding/binary"
	"time"

	"github.com/sammyt291/FineMaps-sub001/tilerecord"
)

// ListByNamespace - all tiles owned by a namespace
func (s *Store) ListByNamespace(namespace string) []tilerecord.Tile {
	return s.list(func(t *tilerecord.Tile) bool {
		return t.Namespace == namespace
	})
}

// ListByCreator - all tiles recorded for a creator
func (s *Store) ListByCreator(creator string) []tilerecord.Tile {
	return s.list(func(t *tilerecord.Tile) bool {
		return "" != creator && t.Creator == creator
	})
}

// CountByNamespace - number of tiles owned by a namespace
func (s *Store) CountByNamespace(namespace string) int {
	return len(s.ListByNamespace(namespace))
}

// CountByCreator - number of tiles recorded for a creator
func (s *Store) CountByCreator(creator string) int {
	return len(s.ListByCreator(creator))
}

func (s *Store) list(match func(*tilerecord.Tile) bool) []tilerecord.Tile {
	result := []tilerecord.Tile{}
	s.db.Pool.Tiles.Range(nil, func(key []byte, value []byte) bool {
		tile, err := tilerecord.UnpackTile(value)
		if nil != err {
			s.log.Errorf("corrupt tile record: %x: %s", key, err)
			return true // skip, keep scanning
		}
		if match(tile) {
			result = append(result, *tile)
		}
		return true
	})
	return result
}

// FindByFingerprint - locate a tile whose pixels digest to fp
//
// full scan of the data pool; intended for import-time duplicate
// detection, not render paths
func (s *Store) FindByFingerprint(fp tilerecord.Fingerprint) (uint64, bool) {
	found := uint64(0)
	ok := false
	s.db.Pool.TileData.Range(nil, func(key []byte, value []byte) bool {
		data, err := tilerecord.UnpackTileData(value)
		if nil != err {
			s.log.Errorf("corrupt tile data record: %x: %s", key, err)
			return true
		}
		if data.Fingerprint == fp {
			found = binary.BigEndian.Uint64(key)
			ok = true
			return false
		}
		return true
	})
	return found, ok
}

// ListStale - ids of standalone tiles not accessed since the deadline
//
// grouped tiles are excluded: their lifecycle belongs to the group
func (s *Store) ListStale(before time.Time) []uint64 {
	deadline := uint64(before.Unix())

	stale := []uint64{}
	s.db.Pool.Access.Range(nil, func(key []byte, value []byte) bool {
		if 8 != len(key) || 8 != len(value) {
			return true
		}
		if binary.BigEndian.Uint64(value) >= deadline {
			return true
		}
		id := binary.BigEndian.Uint64(key)
		if tile, ok := s.GetTile(id); ok && 0 == tile.GroupId {
			stale = append(stale, id)
		}
		return true
	})
	return stale
}

// SPDX-License-Identifier: ISC
// Copyright (c) 2019-2026 FineMaps Contributors
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package tilestore

import (
	"encoding/binary"
	"time"

	"github.com/sammyt291/FineMaps-sub001/codec"
	"github.com/sammyt291/FineMaps-sub001/fault"
	"github.com/sammyt291/FineMaps-sub001/storage"
	"github.com/sammyt291/FineMaps-sub001/tilerecord"
)

// name row kind bytes
const (
	NameKindTile  = byte('t')
	NameKindGroup = byte('g')
)

// CreateTile - arguments for tile creation
type CreateTile struct {
	Namespace string
	Creator   string
	Pixels    []byte // decompressed, exactly TileArea bytes
	Palette   []byte // optional RGBA table, multiple of 4 bytes
	GroupId   uint64 // 0 = standalone
	GridX     uint16
	GridY     uint16
	Name      string // optional, unique within the namespace
}

// IdKey - make the 8 byte big endian key for an id
func IdKey(id uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, id)
	return key
}

// NameKey - make the key for the single naming table
//
// namespace cannot contain NUL so the separator is unambiguous
func NameKey(namespace string, name string) []byte {
	key := make([]byte, 0, len(namespace)+1+len(name))
	key = append(key, namespace...)
	key = append(key, 0x00)
	return append(key, name...)
}

// MemberKey - make the member index key: group id ++ gridY ++ gridX
func MemberKey(groupId uint64, gridX uint16, gridY uint16) []byte {
	key := make([]byte, 12)
	binary.BigEndian.PutUint64(key, groupId)
	binary.BigEndian.PutUint16(key[8:], gridY)
	binary.BigEndian.PutUint16(key[10:], gridX)
	return key
}

func validateCreate(arg CreateTile) error {
	if "" == arg.Namespace || len(arg.Namespace) > tilerecord.NamespaceMaximumLength {
		return fault.ErrInvalidNamespace
	}
	if tilerecord.TileArea != len(arg.Pixels) {
		return fault.ErrInvalidPixelLength
	}
	if 0 != len(arg.Palette)%4 || len(arg.Palette) > tilerecord.PaletteBytes {
		return fault.ErrInvalidPaletteLength
	}
	if len(arg.Name) > tilerecord.NameMaximumLength {
		return fault.ErrInvalidName
	}
	if 0 == arg.GroupId && (0 != arg.GridX || 0 != arg.GridY) {
		return fault.ErrInvalidGridPosition
	}
	return nil
}

// CreateTile - persist a new tile in one transaction
//
// a fresh id is issued from the tile sequence; on any failure nothing
// is stored, though the sequence may skip the lost value
func (s *Store) CreateTile(arg CreateTile) (*tilerecord.Tile, error) {
	if s.unavailable() {
		return nil, fault.ErrStoreUnavailable
	}
	s.inFlight.Increment()
	defer s.inFlight.Decrement()

	if err := validateCreate(arg); nil != err {
		return nil, err
	}

	trx := s.db.Begin()
	tile, err := s.CreateTileTx(trx, arg)
	if nil != err {
		trx.Abort()
		return nil, err
	}
	if err := trx.Commit(); nil != err {
		return nil, err
	}

	s.log.Infof("created tile: %d  namespace: %q", tile.Id, tile.Namespace)
	return tile, nil
}

// CreateTileTx - stage a new tile inside an existing transaction
//
// used directly by the group registry to create all members of a
// composite atomically; the caller owns commit and abort
func (s *Store) CreateTileTx(trx *storage.Transaction, arg CreateTile) (*tilerecord.Tile, error) {

	if err := validateCreate(arg); nil != err {
		return nil, err
	}

	pool := s.db.Pool

	// single naming table covers standalone tiles and groups
	if "" != arg.Name && trx.Has(pool.Names, NameKey(arg.Namespace, arg.Name)) {
		return nil, fault.ErrNameAlreadyUsed
	}

	// a grid position holds at most one member; overwriting the index
	// row would orphan the earlier tile
	if arg.GroupId > 0 && trx.Has(pool.Members, MemberKey(arg.GroupId, arg.GridX, arg.GridY)) {
		return nil, fault.ErrGridPositionUsed
	}

	id := trx.NextSequence(TileSequence)
	now := time.Now().UTC()

	tile := &tilerecord.Tile{
		Id:        id,
		GroupId:   arg.GroupId,
		GridX:     arg.GridX,
		GridY:     arg.GridY,
		CreatedAt: now,
		Namespace: arg.Namespace,
		Creator:   arg.Creator,
		Name:      arg.Name,
	}

	data := &tilerecord.TileData{
		Compressed:  true,
		PixelLength: uint32(len(arg.Pixels)),
		Pixels:      codec.Compress(arg.Pixels),
		PaletteLen:  uint16(len(arg.Palette)),
		Fingerprint: tilerecord.NewFingerprint(arg.Pixels),
	}
	if len(arg.Palette) > 0 {
		data.Palette = codec.Compress(arg.Palette)
	}

	key := IdKey(id)
	trx.Put(pool.Tiles, key, tile.Pack())
	trx.Put(pool.TileData, key, data.Pack())
	trx.PutN(pool.Access, key, uint64(now.Unix()))

	if arg.GroupId > 0 {
		trx.Put(pool.Members, MemberKey(arg.GroupId, arg.GridX, arg.GridY), key)
	}
	if "" != arg.Name {
		value := append([]byte{NameKindTile}, key...)
		trx.Put(pool.Names, NameKey(arg.Namespace, arg.Name), value)
	}

	return tile, nil
}

// GetTile - fetch tile metadata
//
// absence is a normal outcome; a corrupt record is logged and treated
// as absent so unrelated operations keep working
func (s *Store) GetTile(id uint64) (*tilerecord.Tile, bool) {
	buffer := s.db.Pool.Tiles.Get(IdKey(id))
	if nil == buffer {
		return nil, false
	}
	tile, err := tilerecord.UnpackTile(buffer)
	if nil != err {
		s.log.Errorf("corrupt tile record: %d: %s", id, err)
		return nil, false
	}
	return tile, true
}

// GetTileData - fetch decompressed pixels and palette
//
// returns (nil, nil, nil) when the tile does not exist or shutdown has
// begun; corruption is returned as a distinct error
func (s *Store) GetTileData(id uint64) (pixels []byte, palette []byte, err error) {
	if s.unavailable() {
		// late calls from render paths get not-found, never an error
		return nil, nil, nil
	}
	s.inFlight.Increment()
	defer s.inFlight.Decrement()

	buffer := s.db.Pool.TileData.Get(IdKey(id))
	if nil == buffer {
		return nil, nil, nil
	}

	data, err := tilerecord.UnpackTileData(buffer)
	if nil != err {
		s.log.Errorf("corrupt tile data record: %d: %s", id, err)
		return nil, nil, err
	}

	if !data.Compressed {
		return data.Pixels, data.Palette, nil
	}

	pixels, err = codec.Decompress(data.Pixels, int(data.PixelLength))
	if nil != err {
		s.log.Errorf("corrupt tile pixels: %d: %s", id, err)
		return nil, nil, err
	}
	if data.PaletteLen > 0 {
		palette, err = codec.Decompress(data.Palette, int(data.PaletteLen))
		if nil != err {
			s.log.Errorf("corrupt tile palette: %d: %s", id, err)
			return nil, nil, err
		}
	}
	return pixels, palette, nil
}

// UpdateTilePixels - replace the pixel buffer of an existing tile
//
// reports success; false when the tile is missing or the buffer is
// the wrong size
func (s *Store) UpdateTilePixels(id uint64, pixels []byte) bool {
	if s.unavailable() {
		return false
	}
	s.inFlight.Increment()
	defer s.inFlight.Decrement()

	if tilerecord.TileArea != len(pixels) {
		s.log.Warnf("update tile: %d: wrong pixel length: %d", id, len(pixels))
		return false
	}

	trx := s.db.Begin()
	key := IdKey(id)

	old := trx.Get(s.db.Pool.TileData, key)
	if nil == old {
		trx.Abort()
		return false
	}
	oldData, err := tilerecord.UnpackTileData(old)
	if nil != err {
		trx.Abort()
		s.log.Errorf("corrupt tile data record: %d: %s", id, err)
		return false
	}

	data := &tilerecord.TileData{
		Compressed:  true,
		PixelLength: uint32(len(pixels)),
		Pixels:      codec.Compress(pixels),
		PaletteLen:  oldData.PaletteLen,
		Palette:     oldData.Palette,
		Fingerprint: tilerecord.NewFingerprint(pixels),
	}
	trx.Put(s.db.Pool.TileData, key, data.Pack())
	trx.PutN(s.db.Pool.Access, key, uint64(time.Now().Unix()))
	if err := trx.Commit(); nil != err {
		return false
	}
	return true
}

// UpdateTileName - change or clear a tile's short name
func (s *Store) UpdateTileName(id uint64, name string) bool {
	if s.unavailable() {
		return false
	}
	s.inFlight.Increment()
	defer s.inFlight.Decrement()

	if len(name) > tilerecord.NameMaximumLength {
		return false
	}

	trx := s.db.Begin()
	key := IdKey(id)

	buffer := trx.Get(s.db.Pool.Tiles, key)
	if nil == buffer {
		trx.Abort()
		return false
	}
	tile, err := tilerecord.UnpackTile(buffer)
	if nil != err {
		trx.Abort()
		s.log.Errorf("corrupt tile record: %d: %s", id, err)
		return false
	}

	if tile.Name == name {
		trx.Abort()
		return true
	}

	if "" != name && trx.Has(s.db.Pool.Names, NameKey(tile.Namespace, name)) {
		trx.Abort()
		s.log.Warnf("rename tile: %d: name already used: %q", id, name)
		return false
	}

	if "" != tile.Name {
		trx.Delete(s.db.Pool.Names, NameKey(tile.Namespace, tile.Name))
	}
	tile.Name = name
	trx.Put(s.db.Pool.Tiles, key, tile.Pack())
	if "" != name {
		value := append([]byte{NameKindTile}, key...)
		trx.Put(s.db.Pool.Names, NameKey(tile.Namespace, name), value)
	}

	return nil == trx.Commit()
}

// DeleteTile - remove a tile, its data, access row and name row
//
// idempotent: deleting an absent tile reports false without error
func (s *Store) DeleteTile(id uint64) bool {
	if s.unavailable() {
		return false
	}
	s.inFlight.Increment()
	defer s.inFlight.Decrement()

	trx := s.db.Begin()
	deleted := s.DeleteTileTx(trx, id)
	if !deleted {
		trx.Abort()
		return false
	}
	if err := trx.Commit(); nil != err {
		return false
	}
	s.log.Infof("deleted tile: %d", id)
	return true
}

// DeleteTileTx - stage a tile removal inside an existing transaction
func (s *Store) DeleteTileTx(trx *storage.Transaction, id uint64) bool {
	pool := s.db.Pool
	key := IdKey(id)

	buffer := trx.Get(pool.Tiles, key)
	if nil == buffer {
		return false
	}

	// a corrupt record still gets its rows removed; only the name and
	// member rows need fields from the record
	if tile, err := tilerecord.UnpackTile(buffer); nil == err {
		if "" != tile.Name {
			trx.Delete(pool.Names, NameKey(tile.Namespace, tile.Name))
		}
		if tile.GroupId > 0 {
			trx.Delete(pool.Members, MemberKey(tile.GroupId, tile.GridX, tile.GridY))
		}
	} else {
		s.log.Errorf("corrupt tile record: %d: %s", id, err)
	}

	trx.Delete(pool.TileData, key)
	trx.Delete(pool.Access, key)
	trx.Delete(pool.Tiles, key)
	return true
}

// SPDX-License-Identifier: ISC
// Copyright (c) 2019-2026 FineMaps Contributors
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package tilerecord - record structures for the tile database
//
// all records pack to a compact big-endian binary form; strings are
// prefixed with a 16 bit length; every record starts with a one byte
// version so the layout can change later
//
// Notes:
// 1. tile id   = big endian uint64 (8 bytes), allocated from the "tile" sequence
// 2. group id  = big endian uint64 (8 bytes), allocated from the "group" sequence
// 3. fingerprint = 64 byte SHA3-512(decompressed pixels)
package tilerecord

import (
	"time"

	"golang.org/x/crypto/sha3"

	"github.com/sammyt291/FineMaps-sub001/fault"
)

// tile geometry limits
const (
	TileWidth  = 128
	TileHeight = 128
	TileArea   = TileWidth * TileHeight

	PaletteEntries = 256
	PaletteBytes   = 4 * PaletteEntries // RGBA

	NameMaximumLength      = 64
	NamespaceMaximumLength = 128

	FingerprintLength = 64
)

// record version bytes
const (
	tileVersion     = 0x01
	tileDataVersion = 0x01
	groupVersion    = 0x01
)

// Fingerprint - content digest of a decompressed pixel buffer
type Fingerprint [FingerprintLength]byte

// Tile - metadata for one stored tile
//
// GroupId is zero for a standalone tile; grid positions are only
// meaningful inside a group
type Tile struct {
	Id        uint64
	GroupId   uint64
	GridX     uint16
	GridY     uint16
	CreatedAt time.Time
	Namespace string
	Creator   string
	Name      string
}

// TileData - pixel payload for one tile, stored compressed
type TileData struct {
	Compressed  bool
	PixelLength uint32 // decompressed length
	Pixels      []byte // as stored (compressed when Compressed)
	PaletteLen  uint16 // decompressed palette length, 0 = default palette
	Palette     []byte // as stored (compressed when Compressed)
	Fingerprint Fingerprint
}

// Group - metadata for a rectangular composite of tiles
type Group struct {
	Id        uint64
	Width     uint16
	Height    uint16
	CreatedAt time.Time
	Namespace string
	Creator   string
	Name      string
}

// NewFingerprint - digest a decompressed pixel buffer
func NewFingerprint(pixels []byte) Fingerprint {
	return Fingerprint(sha3.Sum512(pixels))
}

// Pack - encode a tile record
func (t *Tile) Pack() []byte {
	p := newPacker(64 + len(t.Namespace) + len(t.Creator) + len(t.Name))
	p.byte(tileVersion)
	p.uint64(t.Id)
	p.uint64(t.GroupId)
	p.uint16(t.GridX)
	p.uint16(t.GridY)
	p.uint64(uint64(t.CreatedAt.Unix()))
	p.string(t.Namespace)
	p.string(t.Creator)
	p.string(t.Name)
	return p.bytes()
}

// UnpackTile - decode a tile record
func UnpackTile(buffer []byte) (*Tile, error) {
	u := newUnpacker(buffer)
	if u.byte() != tileVersion {
		return nil, fault.ErrCorruptTileRecord
	}
	t := &Tile{
		Id:      u.uint64(),
		GroupId: u.uint64(),
		GridX:   u.uint16(),
		GridY:   u.uint16(),
	}
	t.CreatedAt = time.Unix(int64(u.uint64()), 0).UTC()
	t.Namespace = u.string()
	t.Creator = u.string()
	t.Name = u.string()
	if !u.done() {
		return nil, fault.ErrCorruptTileRecord
	}
	return t, nil
}

// Pack - encode a tile data record
func (d *TileData) Pack() []byte {
	p := newPacker(80 + len(d.Pixels) + len(d.Palette))
	p.byte(tileDataVersion)
	flags := byte(0)
	if d.Compressed {
		flags |= 0x01
	}
	if d.PaletteLen > 0 {
		flags |= 0x02
	}
	p.byte(flags)
	p.uint32(d.PixelLength)
	p.uint32(uint32(len(d.Pixels)))
	p.raw(d.Pixels)
	p.uint16(d.PaletteLen)
	p.uint16(uint16(len(d.Palette)))
	p.raw(d.Palette)
	p.raw(d.Fingerprint[:])
	return p.bytes()
}

// UnpackTileData - decode a tile data record
func UnpackTileData(buffer []byte) (*TileData, error) {
	u := newUnpacker(buffer)
	if u.byte() != tileDataVersion {
		return nil, fault.ErrCorruptTileData
	}
	flags := u.byte()
	d := &TileData{
		Compressed:  0 != flags&0x01,
		PixelLength: u.uint32(),
	}
	d.Pixels = u.raw(int(u.uint32()))
	d.PaletteLen = u.uint16()
	d.Palette = u.raw(int(u.uint16()))
	copy(d.Fingerprint[:], u.raw(FingerprintLength))
	if !u.done() {
		return nil, fault.ErrCorruptTileData
	}
	if 0 == flags&0x02 && 0 != d.PaletteLen {
		return nil, fault.ErrCorruptTileData
	}
	return d, nil
}

// Pack - encode a group record
func (g *Group) Pack() []byte {
	p := newPacker(64 + len(g.Namespace) + len(g.Creator) + len(g.Name))
	p.byte(groupVersion)
	p.uint64(g.Id)
	p.uint16(g.Width)
	p.uint16(g.Height)
	p.uint64(uint64(g.CreatedAt.Unix()))
	p.string(g.Namespace)
	p.string(g.Creator)
	p.string(g.Name)
	return p.bytes()
}

// UnpackGroup - decode a group record
func UnpackGroup(buffer []byte) (*Group, error) {
	u := newUnpacker(buffer)
	if u.byte() != groupVersion {
		return nil, fault.ErrCorruptGroupRecord
	}
	g := &Group{
		Id:     u.uint64(),
		Width:  u.uint16(),
		Height: u.uint16(),
	}
	g.CreatedAt = time.Unix(int64(u.uint64()), 0).UTC()
	g.Namespace = u.string()
	g.Creator = u.string()
	g.Name = u.string()
	if !u.done() {
		return nil, fault.ErrCorruptGroupRecord
	}
	return g, nil
}

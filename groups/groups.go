// SPDX-License-Identifier: ISC
// Copyright (c) 2019-2026 FineMaps Contributors
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package groups - registry for composite multi-tile images
//
// a group is a rectangular W×H arrangement of tiles sharing one
// identity and one lifecycle: creation fills every grid position and
// deletion removes every member, never partially
package groups

import (
	"encoding/binary"
	"time"

	"github.com/bitmark-inc/logger"

	"github.com/sammyt291/FineMaps-sub001/fault"
	"github.com/sammyt291/FineMaps-sub001/storage"
	"github.com/sammyt291/FineMaps-sub001/tilerecord"
	"github.com/sammyt291/FineMaps-sub001/tilestore"
)

// MaximumDimension - largest accepted group width or height
const MaximumDimension = 32

// Registry - the group registry service
type Registry struct {
	db    *storage.Database
	store *tilestore.Store
	log   *logger.L
}

// Info - a group with its current members
//
// Complete is false while members are still being created (or after a
// partial import); incomplete groups are treated as unusable by name
// lookup
type Info struct {
	Group    tilerecord.Group
	Members  []tilerecord.Tile
	Complete bool
}

// Composite - arguments for atomic whole-group creation
//
// Pixels holds width*height buffers in row-major order (y*width + x)
type Composite struct {
	Namespace string
	Creator   string
	Width     uint16
	Height    uint16
	Name      string
	Pixels    [][]byte
	Palette   []byte // shared by all members, optional
}

// New - create a registry over an open database and tile store
func New(db *storage.Database, store *tilestore.Store) *Registry {
	return &Registry{
		db:    db,
		store: store,
		log:   logger.New("groups"),
	}
}

func validateSize(width uint16, height uint16) error {
	if 0 == width || 0 == height || width > MaximumDimension || height > MaximumDimension {
		return fault.ErrInvalidGroupSize
	}
	return nil
}

// CreateGroup - allocate a group id and persist the group row
//
// the caller is expected to create exactly width*height member tiles
// tagged with the returned id; until then the group reads as
// incomplete
func (r *Registry) CreateGroup(namespace string, creator string, width uint16, height uint16, name string) (uint64, error) {

	if err := validateSize(width, height); nil != err {
		return 0, err
	}
	if "" == namespace || len(namespace) > tilerecord.NamespaceMaximumLength {
		return 0, fault.ErrInvalidNamespace
	}
	if len(name) > tilerecord.NameMaximumLength {
		return 0, fault.ErrInvalidName
	}

	trx := r.db.Begin()
	id, err := r.createGroupTx(trx, namespace, creator, width, height, name)
	if nil != err {
		trx.Abort()
		return 0, err
	}
	if err := trx.Commit(); nil != err {
		return 0, err
	}
	r.log.Infof("created group: %d  namespace: %q  size: %d×%d", id, namespace, width, height)
	return id, nil
}

func (r *Registry) createGroupTx(trx *storage.Transaction, namespace string, creator string, width uint16, height uint16, name string) (uint64, error) {

	pool := r.db.Pool

	if "" != name && trx.Has(pool.Names, tilestore.NameKey(namespace, name)) {
		return 0, fault.ErrNameAlreadyUsed
	}

	id := trx.NextSequence(tilestore.GroupSequence)

	group := &tilerecord.Group{
		Id:        id,
		Width:     width,
		Height:    height,
		CreatedAt: time.Now().UTC(),
		Namespace: namespace,
		Creator:   creator,
	}
	group.Name = name

	trx.Put(pool.Groups, tilestore.IdKey(id), group.Pack())
	if "" != name {
		value := append([]byte{tilestore.NameKindGroup}, tilestore.IdKey(id)...)
		trx.Put(pool.Names, tilestore.NameKey(namespace, name), value)
	}
	return id, nil
}

// CreateComposite - group row plus every member tile in one transaction
//
// either the full rectangle exists afterwards or nothing does
func (r *Registry) CreateComposite(arg Composite) (uint64, []uint64, error) {

	if err := validateSize(arg.Width, arg.Height); nil != err {
		return 0, nil, err
	}
	area := int(arg.Width) * int(arg.Height)
	if len(arg.Pixels) != area {
		return 0, nil, fault.ErrInvalidGroupSize
	}

	trx := r.db.Begin()

	groupId, err := r.createGroupTx(trx, arg.Namespace, arg.Creator, arg.Width, arg.Height, arg.Name)
	if nil != err {
		trx.Abort()
		return 0, nil, err
	}

	memberIds := make([]uint64, 0, area)
	for y := uint16(0); y < arg.Height; y += 1 {
		for x := uint16(0); x < arg.Width; x += 1 {
			tile, err := r.store.CreateTileTx(trx, tilestore.CreateTile{
				Namespace: arg.Namespace,
				Creator:   arg.Creator,
				Pixels:    arg.Pixels[int(y)*int(arg.Width)+int(x)],
				Palette:   arg.Palette,
				GroupId:   groupId,
				GridX:     x,
				GridY:     y,
			})
			if nil != err {
				trx.Abort()
				return 0, nil, err
			}
			memberIds = append(memberIds, tile.Id)
		}
	}

	if err := trx.Commit(); nil != err {
		return 0, nil, err
	}
	r.log.Infof("created composite: %d  namespace: %q  members: %d", groupId, arg.Namespace, area)
	return groupId, memberIds, nil
}

// GetGroup - fetch a group and its members
func (r *Registry) GetGroup(id uint64) (*Info, bool) {

	buffer := r.db.Pool.Groups.Get(tilestore.IdKey(id))
	if nil == buffer {
		return nil, false
	}
	group, err := tilerecord.UnpackGroup(buffer)
	if nil != err {
		r.log.Errorf("corrupt group record: %d: %s", id, err)
		return nil, false
	}

	info := &Info{
		Group:   *group,
		Members: r.members(id),
	}
	info.Complete = len(info.Members) == int(group.Width)*int(group.Height)
	return info, true
}

// member tiles in grid order (the member index key sorts y then x)
func (r *Registry) members(groupId uint64) []tilerecord.Tile {
	members := []tilerecord.Tile{}
	r.db.Pool.Members.Range(tilestore.IdKey(groupId), func(key []byte, value []byte) bool {
		tileBuffer := r.db.Pool.Tiles.Get(value)
		if nil == tileBuffer {
			r.log.Errorf("group: %d: member index points at missing tile: %x", groupId, value)
			return true
		}
		tile, err := tilerecord.UnpackTile(tileBuffer)
		if nil != err {
			r.log.Errorf("corrupt tile record: %x: %s", value, err)
			return true
		}
		members = append(members, *tile)
		return true
	})
	return members
}

// DeleteGroup - remove a group and all of its members atomically
//
// idempotent: false when the group does not exist
func (r *Registry) DeleteGroup(id uint64) bool {

	trx := r.db.Begin()
	pool := r.db.Pool

	buffer := trx.Get(pool.Groups, tilestore.IdKey(id))
	if nil == buffer {
		trx.Abort()
		return false
	}

	// every member's rows go in the same batch as the group row
	for _, member := range r.members(id) {
		r.store.DeleteTileTx(trx, member.Id)
	}

	if group, err := tilerecord.UnpackGroup(buffer); nil == err {
		if "" != group.Name {
			trx.Delete(pool.Names, tilestore.NameKey(group.Namespace, group.Name))
		}
	} else {
		r.log.Errorf("corrupt group record: %d: %s", id, err)
	}

	trx.Delete(pool.Groups, tilestore.IdKey(id))
	if err := trx.Commit(); nil != err {
		return false
	}
	r.log.Infof("deleted group: %d", id)
	return true
}

// LookupName - resolve a short name to a tile or group id
//
// one naming table covers both kinds so a name can never be claimed
// twice; incomplete groups do not resolve
func (r *Registry) LookupName(namespace string, name string) (kind byte, id uint64, ok bool) {

	value := r.db.Pool.Names.Get(tilestore.NameKey(namespace, name))
	if 9 != len(value) {
		if nil != value {
			r.log.Errorf("corrupt name record: %q/%q", namespace, name)
		}
		return 0, 0, false
	}

	kind = value[0]
	id = binary.BigEndian.Uint64(value[1:])

	if tilestore.NameKindGroup == kind {
		info, found := r.GetGroup(id)
		if !found || !info.Complete {
			return 0, 0, false
		}
	}
	return kind, id, true
}

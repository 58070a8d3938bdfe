// SPDX-License-Identifier: ISC
// Copyright (c) 2019-2026 FineMaps Contributors
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"strconv"

	"github.com/bitmark-inc/exitwithstatus"
	"github.com/bitmark-inc/logger"

	"github.com/sammyt291/FineMaps-sub001/groups"
	"github.com/sammyt291/FineMaps-sub001/host"
	"github.com/sammyt291/FineMaps-sub001/multiplex"
	"github.com/sammyt291/FineMaps-sub001/rendercache"
	"github.com/sammyt291/FineMaps-sub001/tilestore"
)

// running services for enquiry commands
type daemon struct {
	store    *tilestore.Store
	registry *groups.Registry
	mux      *multiplex.Multiplexer
	cache    *rendercache.Cache
}

// data enquiry commands that run against the open database then exit
// returns true if command processed
func processDataCommand(log *logger.L, arguments []string, d *daemon) bool {

	command := arguments[0]
	arguments = arguments[1:]

	switch command {

	case "show", "s":
		if 1 != len(arguments) {
			exitwithstatus.Message("usage: show ID")
		}
		id := parseId(arguments[0])
		tile, ok := d.store.GetTile(id)
		if !ok {
			exitwithstatus.Message("no tile: %d", id)
		}
		fmt.Printf("tile: %d\n", tile.Id)
		fmt.Printf("  namespace: %q\n", tile.Namespace)
		fmt.Printf("  creator:   %q\n", tile.Creator)
		fmt.Printf("  name:      %q\n", tile.Name)
		fmt.Printf("  created:   %s\n", tile.CreatedAt)
		fmt.Printf("  item:      %s\n", host.ToItem(tile.Id, tile.GroupId))
		if 0 != tile.GroupId {
			fmt.Printf("  group:     %d at (%d,%d)\n", tile.GroupId, tile.GridX, tile.GridY)
		}

	case "list", "l":
		if 1 != len(arguments) {
			exitwithstatus.Message("usage: list NAMESPACE")
		}
		for _, tile := range d.store.ListByNamespace(arguments[0]) {
			fmt.Printf("%d  %q\n", tile.Id, tile.Name)
		}

	case "resolve", "r":
		if 2 != len(arguments) {
			exitwithstatus.Message("usage: resolve NAMESPACE NAME")
		}
		kind, id, ok := d.registry.LookupName(arguments[0], arguments[1])
		if !ok {
			exitwithstatus.Message("no such name: %q/%q", arguments[0], arguments[1])
		}
		fmt.Printf("kind: %c  id: %d\n", kind, id)

	case "group", "g":
		if 1 != len(arguments) {
			exitwithstatus.Message("usage: group ID")
		}
		id := parseId(arguments[0])
		info, ok := d.registry.GetGroup(id)
		if !ok {
			exitwithstatus.Message("no group: %d", id)
		}
		fmt.Printf("group: %d  size: %d×%d  complete: %v\n",
			info.Group.Id, info.Group.Width, info.Group.Height, info.Complete)
		for _, member := range info.Members {
			fmt.Printf("  (%d,%d)  tile: %d\n", member.GridX, member.GridY, member.Id)
		}

	case "bind", "b":
		// exercise the slot window from the command line: binds run
		// through the multiplexer and dispatch to the log host
		if len(arguments) < 2 {
			exitwithstatus.Message("usage: bind VIEWER ID…")
		}
		viewer := host.Viewer(arguments[0])
		for _, a := range arguments[1:] {
			id := parseId(a)
			slot := d.mux.Bind(viewer, id)
			fmt.Printf("tile: %d  slot: %d\n", id, slot)
		}
		fmt.Printf("bindings: %d\n", d.mux.Bindings(viewer))
		d.mux.ReleaseAll(viewer)
		d.cache.DropViewer(viewer)

	case "delete":
		if 1 != len(arguments) {
			exitwithstatus.Message("usage: delete ID")
		}
		id := parseId(arguments[0])
		if !d.store.DeleteTile(id) {
			exitwithstatus.Message("no tile: %d", id)
		}
		log.Infof("deleted tile: %d", id)
		fmt.Printf("deleted: %d\n", id)

	default:
		return false
	}

	return true
}

func parseId(s string) uint64 {
	id, err := strconv.ParseUint(s, 10, 64)
	if nil != err {
		exitwithstatus.Message("invalid id: %q: %s", s, err)
	}
	return id
}

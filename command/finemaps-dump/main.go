// SPDX-License-Identifier: ISC
// Copyright (c) 2019-2026 FineMaps Contributors
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// tile database inspection tool
//
// opens a database read-only and prints inventories, dumps raw pool
// rows, and verifies stored fingerprints against the pixel data
package main

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"reflect"

	"github.com/bitmark-inc/exitwithstatus"
	"github.com/bitmark-inc/getoptions"
	"github.com/bitmark-inc/logger"

	"github.com/sammyt291/FineMaps-sub001/codec"
	"github.com/sammyt291/FineMaps-sub001/storage"
	"github.com/sammyt291/FineMaps-sub001/tilerecord"
)

// set by the linker: go build -ldflags "-X main.version=M.N" ./...
var version = "zero" // do not change this value

// main program
func main() {
	// ensure exit handler is first
	defer exitwithstatus.Handler()

	flags := []getoptions.Option{
		{Long: "help", HasArg: getoptions.NO_ARGUMENT, Short: 'h'},
		{Long: "verbose", HasArg: getoptions.NO_ARGUMENT, Short: 'v'},
		{Long: "version", HasArg: getoptions.NO_ARGUMENT, Short: 'V'},
		{Long: "list", HasArg: getoptions.NO_ARGUMENT, Short: 'l'},
		{Long: "file", HasArg: getoptions.REQUIRED_ARGUMENT, Short: 'f'},
	}

	program, options, arguments, err := getoptions.GetOS(flags)
	if nil != err {
		exitwithstatus.Message("%s: getoptions error: %s", program, err)
	}

	if len(options["version"]) > 0 {
		exitwithstatus.Message("%s: version: %s", program, version)
	}

	if len(options["list"]) > 0 {

		// this will be a struct type
		poolType := reflect.TypeOf(storage.Pools{})

		// print all available tags
		fmt.Printf(" tags:\n")
		for i := 0; i < poolType.NumField(); i += 1 {
			fieldInfo := poolType.Field(i)
			prefixTag := fieldInfo.Tag.Get("prefix")
			fmt.Printf("       %s → %s\n", prefixTag, fieldInfo.Name)
		}
		return
	}

	if len(options["help"]) > 0 || 1 != len(options["file"]) {
		exitwithstatus.Message("usage: %s [--help] [--verbose] [--list] --file=FILE [tiles|groups|names|verify|raw TAG [hex-prefix]]", program)
	}

	verbose := len(options["verbose"]) > 0
	filename := options["file"][0]

	logging := logger.Configuration{
		Directory: ".",
		File:      "finemaps-dump.log",
		Size:      1048576,
		Count:     5,
		Console:   verbose,
		Levels: map[string]string{
			logger.DefaultTag: "error",
		},
	}
	if err = logger.Initialise(logging); nil != err {
		exitwithstatus.Message("%s: logger setup failed with error: %s", program, err)
	}
	defer logger.Finalise()

	db, err := storage.Open(filename, true)
	if nil != err {
		exitwithstatus.Message("%s: open error: %s", program, err)
	}
	defer db.Close()

	command := "tiles"
	if len(arguments) > 0 {
		command = arguments[0]
		arguments = arguments[1:]
	}

	switch command {

	case "tiles":
		dumpTiles(db)

	case "groups":
		dumpGroups(db)

	case "names":
		dumpNames(db)

	case "verify":
		if !verifyTiles(db) {
			exitwithstatus.Exit(1)
		}

	case "raw":
		if len(arguments) < 1 {
			exitwithstatus.Message("usage: raw TAG [hex-prefix]")
		}
		prefix := []byte(nil)
		if len(arguments) > 1 {
			prefix, err = hex.DecodeString(arguments[1])
			if nil != err {
				exitwithstatus.Message("%s: convert prefix error: %s", program, err)
			}
		}
		dumpRaw(db, arguments[0], prefix)

	default:
		exitwithstatus.Message("%s: unknown command: %q", program, command)
	}
}

func dumpTiles(db *storage.Database) {
	count := 0
	corrupt := 0
	db.Pool.Tiles.Range(nil, func(key []byte, value []byte) bool {
		tile, err := tilerecord.UnpackTile(value)
		if nil != err {
			fmt.Printf("corrupt tile record: key: %x: %s\n", key, err)
			corrupt += 1
			return true
		}
		group := ""
		if 0 != tile.GroupId {
			group = fmt.Sprintf("  group: %d (%d,%d)", tile.GroupId, tile.GridX, tile.GridY)
		}
		fmt.Printf("tile: %d  namespace: %q  name: %q  created: %s%s\n",
			tile.Id, tile.Namespace, tile.Name, tile.CreatedAt.Format("2006-01-02 15:04:05"), group)
		count += 1
		return true
	})
	fmt.Printf("total: %d tiles  corrupt: %d\n", count, corrupt)
}

func dumpGroups(db *storage.Database) {
	count := 0
	db.Pool.Groups.Range(nil, func(key []byte, value []byte) bool {
		group, err := tilerecord.UnpackGroup(value)
		if nil != err {
			fmt.Printf("corrupt group record: key: %x: %s\n", key, err)
			return true
		}
		members := 0
		db.Pool.Members.Range(key, func(k []byte, v []byte) bool {
			members += 1
			return true
		})
		fmt.Printf("group: %d  size: %d×%d  members: %d/%d  namespace: %q  name: %q\n",
			group.Id, group.Width, group.Height,
			members, int(group.Width)*int(group.Height),
			group.Namespace, group.Name)
		count += 1
		return true
	})
	fmt.Printf("total: %d groups\n", count)
}

func dumpNames(db *storage.Database) {
	db.Pool.Names.Range(nil, func(key []byte, value []byte) bool {
		if 9 != len(value) {
			fmt.Printf("corrupt name record: key: %x\n", key)
			return true
		}
		fmt.Printf("%s  kind: %c  id: %d\n", key, value[0], binary.BigEndian.Uint64(value[1:]))
		return true
	})
}

// recompute every stored fingerprint, false if anything failed
func verifyTiles(db *storage.Database) bool {
	good := 0
	bad := 0
	db.Pool.TileData.Range(nil, func(key []byte, value []byte) bool {
		if 8 != len(key) {
			fmt.Printf("bad data key: %x\n", key)
			bad += 1
			return true
		}
		id := binary.BigEndian.Uint64(key)

		data, err := tilerecord.UnpackTileData(value)
		if nil != err {
			fmt.Printf("tile: %d: corrupt data record: %s\n", id, err)
			bad += 1
			return true
		}

		pixels := data.Pixels
		if data.Compressed {
			pixels, err = codec.Decompress(data.Pixels, int(data.PixelLength))
			if nil != err {
				fmt.Printf("tile: %d: corrupt pixels: %s\n", id, err)
				bad += 1
				return true
			}
		}

		if fp := tilerecord.NewFingerprint(pixels); fp != data.Fingerprint {
			fmt.Printf("tile: %d: fingerprint mismatch\n", id)
			bad += 1
			return true
		}

		// orphan data rows are a defect too
		if !db.Pool.Tiles.Has(key) {
			fmt.Printf("tile: %d: data row without tile record\n", id)
			bad += 1
			return true
		}

		good += 1
		return true
	})
	fmt.Printf("verified: %d  failed: %d\n", good, bad)
	return 0 == bad
}

// hex dump of one pool selected by its prefix tag
func dumpRaw(db *storage.Database, tag string, prefix []byte) {

	poolValue := reflect.ValueOf(db.Pool)
	poolType := reflect.TypeOf(db.Pool)

	for i := 0; i < poolType.NumField(); i += 1 {
		fieldInfo := poolType.Field(i)
		if fieldInfo.Tag.Get("prefix") != tag {
			continue
		}
		handle := poolValue.Field(i).Interface().(*storage.PoolHandle)
		handle.Range(prefix, func(key []byte, value []byte) bool {
			fmt.Printf("%x → %x\n", key, value)
			return true
		})
		return
	}
	exitwithstatus.Message("unknown tag: %q (use --list)", tag)
}

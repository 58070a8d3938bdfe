// SPDX-License-Identifier: ISC
// Copyright (c) 2019-2026 FineMaps Contributors
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bitmark-inc/logger"

	"github.com/sammyt291/FineMaps-sub001/configuration"
)

// basic defaults (directories and files are relative to the "DataDirectory" from the configuration file)
const (
	defaultDataDirectory = "" // this will error; use "." for the same directory as the config file

	defaultLevelDBDirectory = "data"
	defaultDatabase         = "finemaps.leveldb"

	defaultLogDirectory = "log"
	defaultLogFile      = "finemapsd.log"
	defaultLogCount     = 10          //  number of log files retained
	defaultLogSize      = 1024 * 1024 // rotate when <logfile> exceeds this size

	defaultFirstSlot = 1000
	defaultLastSlot  = 29999

	defaultWorkers    = 4
	defaultTouchQueue = 1024

	defaultSweepInterval = 15 * time.Minute
	defaultRetainDays    = 30
	defaultSweepRate     = 20.0

	defaultCacheMinutes = 5
)

// to hold log levels
type LoglevelMap map[string]string

// path expanded or calculated defaults
var (
	defaultLogLevels = LoglevelMap{
		logger.DefaultTag: "critical",
	}
)

type DatabaseType struct {
	Directory string `gluamapper:"directory"`
	Name      string `gluamapper:"name"`
}

type SlotsType struct {
	First int `gluamapper:"first"`
	Last  int `gluamapper:"last"`
}

type StoreType struct {
	Workers      int     `gluamapper:"workers"`
	TouchQueue   int     `gluamapper:"touch_queue"`
	SweepMinutes int     `gluamapper:"sweep_minutes"`
	RetainDays   int     `gluamapper:"retain_days"`
	SweepRate    float64 `gluamapper:"sweep_rate"`
	CacheMinutes int     `gluamapper:"cache_minutes"`
	DisableSweep bool    `gluamapper:"disable_sweep"`
}

type Configuration struct {
	DataDirectory string               `gluamapper:"data_directory"`
	PidFile       string               `gluamapper:"pidfile"`
	Database      DatabaseType         `gluamapper:"database"`
	Slots         SlotsType            `gluamapper:"slots"`
	Store         StoreType            `gluamapper:"store"`
	Logging       logger.Configuration `gluamapper:"logging"`
}

// will read decode and verify the configuration
func getConfiguration(configurationFileName string) (*Configuration, error) {

	configurationFileName, err := filepath.Abs(filepath.Clean(configurationFileName))
	if nil != err {
		return nil, err
	}

	// absolute path to the main directory
	dataDirectory, _ := filepath.Split(configurationFileName)

	options := &Configuration{

		DataDirectory: defaultDataDirectory,
		PidFile:       "", // no PidFile by default

		Database: DatabaseType{
			Directory: defaultLevelDBDirectory,
			Name:      defaultDatabase,
		},

		Slots: SlotsType{
			First: defaultFirstSlot,
			Last:  defaultLastSlot,
		},

		Store: StoreType{
			Workers:      defaultWorkers,
			TouchQueue:   defaultTouchQueue,
			SweepMinutes: int(defaultSweepInterval / time.Minute),
			RetainDays:   defaultRetainDays,
			SweepRate:    defaultSweepRate,
			CacheMinutes: defaultCacheMinutes,
		},

		Logging: logger.Configuration{
			Directory: defaultLogDirectory,
			File:      defaultLogFile,
			Size:      defaultLogSize,
			Count:     defaultLogCount,
			Levels:    defaultLogLevels,
		},
	}

	if err := configuration.ParseFile(configurationFileName, options); nil != err {
		return nil, err
	}

	// ensure absolute data directory
	if "" == options.DataDirectory || "~" == options.DataDirectory {
		return nil, fmt.Errorf("path: %q is not a valid directory", options.DataDirectory)
	} else if "." == options.DataDirectory {
		options.DataDirectory = dataDirectory // same directory as the configuration file
	} else {
		options.DataDirectory = filepath.Clean(options.DataDirectory)
	}

	// this directory must exist - i.e. must be created prior to running
	if fileInfo, err := os.Stat(options.DataDirectory); nil != err {
		return nil, err
	} else if !fileInfo.IsDir() {
		return nil, fmt.Errorf("path: %q is not a directory", options.DataDirectory)
	}

	// force all relevant items to be absolute paths
	// if not, assign them to the data directory
	mustBeAbsolute := []*string{
		&options.Database.Directory,
		&options.Logging.Directory,
	}
	for _, f := range mustBeAbsolute {
		*f = configuration.EnsureAbsolute(options.DataDirectory, *f)
	}

	// optional absolute paths i.e. blank or an absolute path
	if "" != options.PidFile {
		options.PidFile = configuration.EnsureAbsolute(options.DataDirectory, options.PidFile)
	}

	// fail if the database name is not a simple file name
	switch filepath.Dir(options.Database.Name) {
	case "", ".":
		options.Database.Name = configuration.EnsureAbsolute(options.Database.Directory, options.Database.Name)
	default:
		return nil, fmt.Errorf("files: %q is not plain name", options.Database.Name)
	}

	// make absolute and create directories if they do not already exist
	for _, d := range []*string{
		&options.Database.Directory,
		&options.Logging.Directory,
	} {
		if err := os.MkdirAll(*d, 0o700); nil != err {
			return nil, err
		}
	}

	// slot window sanity
	if options.Slots.First < 1 || options.Slots.Last < options.Slots.First {
		return nil, fmt.Errorf("slots: invalid window [%d, %d]", options.Slots.First, options.Slots.Last)
	}

	// done
	return options, nil
}

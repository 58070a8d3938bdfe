// SPDX-License-Identifier: ISC
// Copyright (c) 2019-2026 FineMaps Contributors
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package tilestore - durable CRUD layer for tiles
//
// persists tile metadata and compressed pixel payloads, issues
// permanent ids from transactional sequences and offers an
// asynchronous submission surface backed by a worker pool
package tilestore

import (
	"sync/atomic"
	"time"

	"github.com/bitmark-inc/logger"

	"github.com/sammyt291/FineMaps-sub001/background"
	"github.com/sammyt291/FineMaps-sub001/counter"
	"github.com/sammyt291/FineMaps-sub001/fault"
	"github.com/sammyt291/FineMaps-sub001/mode"
	"github.com/sammyt291/FineMaps-sub001/storage"
)

// defaults for Config zero values
const (
	defaultWorkers    = 4
	defaultTouchQueue = 256
	defaultSweepRate  = 20.0 // deletions per second
)

// id sequence names
const (
	TileSequence  = "tile"
	GroupSequence = "group"
)

// Config - tuning for a Store
type Config struct {
	Workers       int           // worker pool size for Submit
	TouchQueue    int           // buffered last-access updates
	SweepInterval time.Duration // 0 disables the stale sweep
	RetainFor     time.Duration // tiles untouched for this long are stale
	SweepRate     float64       // sweep deletions per second
}

// Store - the tile store service
//
// explicitly constructed; pass by reference to consumers
type Store struct {
	db         *storage.Database
	log        *logger.L
	jobs       chan job
	touchQueue chan uint64
	inFlight   counter.Counter
	closed     uint32 // atomic flag
	background *background.T
}

type job struct {
	run    func() error
	result chan<- error
}

// New - create a tile store over an open database
//
// starts the touch worker, the Submit worker pool and, when
// configured, the stale sweeper; Close must be called to drain them
func New(db *storage.Database, cfg Config) *Store {

	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkers
	}
	if cfg.TouchQueue <= 0 {
		cfg.TouchQueue = defaultTouchQueue
	}
	if cfg.SweepRate <= 0 {
		cfg.SweepRate = defaultSweepRate
	}

	s := &Store{
		db:         db,
		log:        logger.New("tilestore"),
		jobs:       make(chan job, 2*cfg.Workers),
		touchQueue: make(chan uint64, cfg.TouchQueue),
	}
	s.log.Info("starting…")

	processes := background.Processes{
		&toucher{store: s},
	}
	for i := 0; i < cfg.Workers; i += 1 {
		processes = append(processes, &worker{store: s})
	}
	if cfg.SweepInterval > 0 && cfg.RetainFor > 0 {
		processes = append(processes, newSweeper(s, cfg))
	}
	s.background = background.Start(processes, s.log)

	return s
}

// Close - stop accepting work and drain in-flight operations
//
// the database stays open; its lifetime belongs to the caller
func (s *Store) Close() {
	if !atomic.CompareAndSwapUint32(&s.closed, 0, 1) {
		return
	}
	s.log.Info("shutting down…")

	s.background.Stop()

	// answer any submissions that raced the closed flag
drain:
	for {
		select {
		case j := <-s.jobs:
			j.result <- fault.ErrStoreUnavailable
		default:
			break drain
		}
	}

	// let synchronous callers already past the closed check finish
	for !s.inFlight.IsZero() {
		time.Sleep(10 * time.Millisecond)
	}
	s.log.Info("finished")
	s.log.Flush()
}

// stopped when closed or the whole process is stopping
func (s *Store) unavailable() bool {
	return 1 == atomic.LoadUint32(&s.closed) || mode.Is(mode.Stopped)
}

// Submit - run a storage operation on the worker pool
//
// returns a channel delivering the operation's error; fails fast with
// ErrStoreUnavailable once shutdown has begun, operations are never
// queued behind a closing store
func (s *Store) Submit(f func() error) <-chan error {
	result := make(chan error, 1)
	if s.unavailable() {
		result <- fault.ErrStoreUnavailable
		return result
	}
	s.jobs <- job{run: f, result: result}
	return result
}

// Submit worker pool process
type worker struct {
	store *Store
}

func (w *worker) Run(args interface{}, shutdown <-chan struct{}) {
	log := args.(*logger.L)

loop:
	for {
		select {
		case <-shutdown:
			break loop

		case j := <-w.store.jobs:
			err := j.run()
			if nil != err {
				log.Warnf("submitted operation failed: %s", err)
			}
			j.result <- err
		}
	}
}

// SPDX-License-Identifier: ISC
// Copyright (c) 2019-2026 FineMaps Contributors
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package tilestore

import (
	"time"

	"github.com/bitmark-inc/logger"
)

// TouchAccess - record that a tile was used for rendering
//
// fire and forget: never blocks the calling path and never reports
// failure; when the queue is full the update is simply dropped
func (s *Store) TouchAccess(id uint64) {
	select {
	case s.touchQueue <- id:
	default:
		s.log.Debugf("touch queue full, dropping: %d", id)
	}
}

// background process applying last-access updates
type toucher struct {
	store *Store
}

func (t *toucher) Run(args interface{}, shutdown <-chan struct{}) {
	log := args.(*logger.L)
	log.Info("touch worker starting…")

loop:
	for {
		select {
		case <-shutdown:
			break loop

		case id := <-t.store.touchQueue:
			t.store.db.Pool.Access.PutN(IdKey(id), uint64(time.Now().Unix()))
		}
	}

	// drain whatever is already queued
drain:
	for {
		select {
		case id := <-t.store.touchQueue:
			t.store.db.Pool.Access.PutN(IdKey(id), uint64(time.Now().Unix()))
		default:
			break drain
		}
	}
	log.Info("touch worker finished")
}

// SPDX-License-Identifier: ISC
// Copyright (c) 2019-2026 FineMaps Contributors
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package tilestore

import (
	"time"

	"golang.org/x/time/rate"

	"github.com/bitmark-inc/logger"
)

// background process deleting stale standalone tiles
//
// deletions are rate limited so a large backlog cannot monopolise the
// backend against foreground operations
type sweeper struct {
	store    *Store
	interval time.Duration
	retain   time.Duration
	limiter  *rate.Limiter
}

func newSweeper(s *Store, cfg Config) *sweeper {
	return &sweeper{
		store:    s,
		interval: cfg.SweepInterval,
		retain:   cfg.RetainFor,
		limiter:  rate.NewLimiter(rate.Limit(cfg.SweepRate), 1),
	}
}

func (w *sweeper) Run(args interface{}, shutdown <-chan struct{}) {
	log := args.(*logger.L)
	log.Infof("sweeper starting…  interval: %s  retain: %s", w.interval, w.retain)

	timer := time.NewTimer(w.interval)
	defer timer.Stop()

loop:
	for {
		select {
		case <-shutdown:
			break loop

		case <-timer.C:
			w.sweep(log, shutdown)
			timer.Reset(w.interval)
		}
	}
	log.Info("sweeper finished")
}

func (w *sweeper) sweep(log *logger.L, shutdown <-chan struct{}) {

	stale := w.store.ListStale(time.Now().Add(-w.retain))
	if 0 == len(stale) {
		return
	}
	log.Infof("sweeping %d stale tiles", len(stale))

	deleted := 0
	for _, id := range stale {

		// pace the deletions
		r := w.limiter.Reserve()
		if !r.OK() {
			break
		}
		select {
		case <-shutdown:
			r.Cancel()
			return
		case <-time.After(r.Delay()):
		}

		if w.store.DeleteTile(id) {
			deleted += 1
		}
	}
	log.Infof("swept %d stale tiles", deleted)
}

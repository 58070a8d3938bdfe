// SPDX-License-Identifier: ISC
// Copyright (c) 2019-2026 FineMaps Contributors
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package background - run processes in the background with
// cooperative shutdown
package background

// Process - type signature for a background process
// and the shutdown function
type Process interface {
	Run(args interface{}, shutdown <-chan struct{})
}

// Processes - list of processes to start
type Processes []Process

// T - handle for later stopping the started set
type T struct {
	processes Processes
	shutdown  chan struct{}
	finished  chan struct{}
}

// Start - start up a set of background processes
// all with the same arg value
func Start(processes Processes, args interface{}) *T {

	register := &T{
		processes: processes,
		shutdown:  make(chan struct{}),
		finished:  make(chan struct{}),
	}

	// start each background
	for _, p := range processes {
		go func(p Process) {
			// pass the shutdown to the Run loop for shutdown signalling
			p.Run(args, register.shutdown)

			// flag for the stop routine to wait for shutdown
			register.finished <- struct{}{}
		}(p)
	}
	return register
}

// Stop - stop a set of background processes
// wait for them to finish
func (t *T) Stop() {

	if nil == t {
		return
	}

	// shutdown all background tasks
	close(t.shutdown)

	// wait for all Run loops to finish
	for range t.processes {
		<-t.finished
	}
}

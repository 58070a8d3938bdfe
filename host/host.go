// SPDX-License-Identifier: ISC
// Copyright (c) 2019-2026 FineMaps Contributors
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package host - the narrow boundary to the embedding host
//
// the host owns the real display primitives and a tiny per-viewer slot
// namespace; everything this library needs from it fits in one small
// interface so per-host-version adaptation stays outside the core
package host

// Viewer - opaque identity of one connected viewer
type Viewer string

// Slot - a host-visible virtual id inside the configured window
type Slot uint32

// SlotUnavailable - sentinel returned when no slot can be produced
// (only possible with a zero sized window)
const SlotUnavailable = Slot(0)

// Host - the operations the core needs from the embedding host
//
// implementations adapt one host version; the core never branches on
// host versions itself
type Host interface {

	// transmit the current pixel buffer for a slot to one viewer
	PushPixels(viewer Viewer, slot Slot, pixels []byte, palette []byte) error

	// stop associating a slot with whatever it showed; must complete
	// before the slot is reused for different content
	ClearSlot(viewer Viewer, slot Slot)
}

// SPDX-License-Identifier: ISC
// Copyright (c) 2019-2026 FineMaps Contributors
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"github.com/bitmark-inc/logger"

	"github.com/sammyt291/FineMaps-sub001/host"
)

// stand-in host connection used when no embedding process is attached
// every push and clear is recorded in the log only
type logHost struct {
	log *logger.L
}

func (h *logHost) PushPixels(viewer host.Viewer, slot host.Slot, pixels []byte, palette []byte) error {
	h.log.Infof("push: viewer: %s  slot: %d  pixels: %d bytes  palette: %d bytes",
		viewer, slot, len(pixels), len(palette))
	return nil
}

func (h *logHost) ClearSlot(viewer host.Viewer, slot host.Slot) {
	h.log.Infof("clear: viewer: %s  slot: %d", viewer, slot)
}

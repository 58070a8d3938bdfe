// SPDX-License-Identifier: ISC
// Copyright (c) 2019-2026 FineMaps Contributors
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package host

import (
	"encoding/binary"

	"github.com/mr-tron/base58"

	"github.com/sammyt291/FineMaps-sub001/fault"
)

// item handles
//
// the host represents "this object refers to tile X" with an opaque
// string stored on its own items; the payload is versioned so old
// handles keep working after layout changes

const itemHandleVersion = 0x01

// ToItem - encode a permanent tile id (and owning group id, 0 for a
// standalone tile) into an opaque host item handle
func ToItem(tileId uint64, groupId uint64) string {
	buffer := make([]byte, 17)
	buffer[0] = itemHandleVersion
	binary.BigEndian.PutUint64(buffer[1:9], tileId)
	binary.BigEndian.PutUint64(buffer[9:17], groupId)
	return base58.Encode(buffer)
}

// FromItem - decode a handle produced by ToItem
func FromItem(handle string) (tileId uint64, groupId uint64, err error) {
	buffer, err := base58.Decode(handle)
	if nil != err {
		return 0, 0, fault.ErrInvalidItemHandle
	}
	if 17 != len(buffer) || itemHandleVersion != buffer[0] {
		return 0, 0, fault.ErrInvalidItemHandle
	}
	tileId = binary.BigEndian.Uint64(buffer[1:9])
	groupId = binary.BigEndian.Uint64(buffer[9:17])
	return tileId, groupId, nil
}

// SPDX-License-Identifier: ISC
// Copyright (c) 2019-2026 FineMaps Contributors
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package tilerecord

import (
	"encoding/binary"
)

// append-only big-endian encoder
type packer struct {
	buffer []byte
}

func newPacker(sizeHint int) *packer {
	return &packer{
		buffer: make([]byte, 0, sizeHint),
	}
}

func (p *packer) byte(b byte) {
	p.buffer = append(p.buffer, b)
}

func (p *packer) uint16(n uint16) {
	p.buffer = append(p.buffer, byte(n>>8), byte(n))
}

func (p *packer) uint32(n uint32) {
	scratch := make([]byte, 4)
	binary.BigEndian.PutUint32(scratch, n)
	p.buffer = append(p.buffer, scratch...)
}

func (p *packer) uint64(n uint64) {
	scratch := make([]byte, 8)
	binary.BigEndian.PutUint64(scratch, n)
	p.buffer = append(p.buffer, scratch...)
}

// 16 bit length prefixed string
func (p *packer) string(s string) {
	p.uint16(uint16(len(s)))
	p.buffer = append(p.buffer, s...)
}

func (p *packer) raw(data []byte) {
	p.buffer = append(p.buffer, data...)
}

func (p *packer) bytes() []byte {
	return p.buffer
}

// cursor-based big-endian decoder
//
// out of range reads flag failure instead of panicking; callers check
// done() after the last field, which is false when any read overran
type unpacker struct {
	buffer []byte
	offset int
	failed bool
}

func newUnpacker(buffer []byte) *unpacker {
	return &unpacker{
		buffer: buffer,
	}
}

func (u *unpacker) take(n int) []byte {
	if u.failed || u.offset+n > len(u.buffer) {
		u.failed = true
		return nil
	}
	data := u.buffer[u.offset : u.offset+n]
	u.offset += n
	return data
}

func (u *unpacker) byte() byte {
	data := u.take(1)
	if nil == data {
		return 0
	}
	return data[0]
}

func (u *unpacker) uint16() uint16 {
	data := u.take(2)
	if nil == data {
		return 0
	}
	return binary.BigEndian.Uint16(data)
}

func (u *unpacker) uint32() uint32 {
	data := u.take(4)
	if nil == data {
		return 0
	}
	return binary.BigEndian.Uint32(data)
}

func (u *unpacker) uint64() uint64 {
	data := u.take(8)
	if nil == data {
		return 0
	}
	return binary.BigEndian.Uint64(data)
}

func (u *unpacker) string() string {
	n := u.uint16()
	data := u.take(int(n))
	if nil == data {
		return ""
	}
	return string(data)
}

func (u *unpacker) raw(n int) []byte {
	data := u.take(n)
	if nil == data {
		return nil
	}
	// copy out: the record buffer may be reused by the caller
	result := make([]byte, n)
	copy(result, data)
	return result
}

// true only when the whole buffer was consumed exactly
func (u *unpacker) done() bool {
	return !u.failed && u.offset == len(u.buffer)
}

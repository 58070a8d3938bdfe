// SPDX-License-Identifier: ISC
// Copyright (c) 2019-2026 FineMaps Contributors
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package codec - lossless two-stage codec for tile pixel buffers
//
// stage 1 is a run-length encoding as: count byte ++ value byte
// repeated for each maximal run (count 1…255), chosen because indexed
// tile pixels have large same-colour regions
//
// stage 2 is DEFLATE over the stage 1 stream
//
// callers always know the expected decompressed length in advance so
// any length mismatch is reported as corruption, never returned as
// partial data
package codec

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/flate"

	"github.com/sammyt291/FineMaps-sub001/fault"
)

// the maximum run representable by one count byte
const maximumRun = 255

// Compress - encode a byte buffer
//
// stateless and safe for concurrent use
func Compress(data []byte) []byte {

	rle := runLengthEncode(data)

	buffer := &bytes.Buffer{}
	w, err := flate.NewWriter(buffer, flate.DefaultCompression)
	if nil != err {
		// only occurs for an out of range level
		panic("codec: flate.NewWriter failed: " + err.Error())
	}
	_, _ = w.Write(rle) // writing to a bytes.Buffer cannot fail
	_ = w.Close()

	return buffer.Bytes()
}

// Decompress - decode a previously compressed buffer
//
// expectedLength must be the exact length of the original data; a
// malformed stream or any length mismatch returns a corruption error
// and no data
func Decompress(data []byte, expectedLength int) ([]byte, error) {

	r := flate.NewReader(bytes.NewReader(data))
	rle, err := io.ReadAll(r)
	if nil != err {
		return nil, fault.ErrCorruptTileData
	}
	if err = r.Close(); nil != err {
		return nil, fault.ErrCorruptTileData
	}

	return runLengthDecode(rle, expectedLength)
}

// stage 1 encoder
func runLengthEncode(data []byte) []byte {

	// size hint for the fully repetitive case (all maximal runs);
	// alternating bytes grow the buffer up to 2*len(data) via append
	out := make([]byte, 0, 2*(len(data)/maximumRun+1))

	i := 0
	for i < len(data) {
		value := data[i]
		count := 1
		for i+count < len(data) && count < maximumRun && data[i+count] == value {
			count += 1
		}
		out = append(out, byte(count), value)
		i += count
	}
	return out
}

// stage 1 decoder
func runLengthDecode(rle []byte, expectedLength int) ([]byte, error) {

	// a truncated pair is corruption, not a short result
	if 1 == len(rle)%2 {
		return nil, fault.ErrCorruptTileData
	}

	out := make([]byte, 0, expectedLength)
	for i := 0; i < len(rle); i += 2 {
		count := int(rle[i])
		if 0 == count {
			return nil, fault.ErrCorruptTileData
		}
		if len(out)+count > expectedLength {
			return nil, fault.ErrWrongLengthAfterCodec
		}
		value := rle[i+1]
		for n := 0; n < count; n += 1 {
			out = append(out, value)
		}
	}

	if len(out) != expectedLength {
		return nil, fault.ErrWrongLengthAfterCodec
	}
	return out, nil
}

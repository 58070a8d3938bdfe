// SPDX-License-Identifier: ISC
// Copyright (c) 2019-2026 FineMaps Contributors
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package codec_test

import (
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sammyt291/FineMaps-sub001/codec"
	"github.com/sammyt291/FineMaps-sub001/fault"
	"github.com/sammyt291/FineMaps-sub001/tilerecord"
)

// round trip of typical tile buffers
func TestRoundTrip(t *testing.T) {

	allSame := make([]byte, tilerecord.TileArea)
	for i := range allSame {
		allSame[i] = 0x2c
	}

	striped := make([]byte, tilerecord.TileArea)
	for i := range striped {
		striped[i] = byte(i / tilerecord.TileWidth)
	}

	random := make([]byte, tilerecord.TileArea)
	_, err := rand.Read(random)
	assert.Nil(t, err, "rand.Read error")

	testData := [][]byte{
		allSame,
		striped,
		random,
		{},
		{0x00},
		{0xff, 0xff, 0xff, 0x01},
	}

	for i, original := range testData {
		compressed := codec.Compress(original)
		decompressed, err := codec.Decompress(compressed, len(original))
		assert.Nil(t, err, "%d: decompress error", i)
		assert.Equal(t, original, decompressed, "%d: wrong round trip result", i)
	}
}

// highly repetitive data must actually shrink
func TestCompressionEffect(t *testing.T) {

	allSame := make([]byte, tilerecord.TileArea)
	compressed := codec.Compress(allSame)
	assert.True(t, len(compressed) < tilerecord.TileArea/8,
		"no compression: %d bytes from %d", len(compressed), tilerecord.TileArea)
}

// truncating the compressed stream must be detected
func TestTruncatedInput(t *testing.T) {

	original := make([]byte, tilerecord.TileArea)
	for i := range original {
		original[i] = byte(i % 7)
	}

	compressed := codec.Compress(original)
	for _, n := range []int{1, 2, len(compressed) / 2} {
		truncated := compressed[:len(compressed)-n]
		result, err := codec.Decompress(truncated, len(original))
		assert.NotNil(t, err, "truncation by %d not detected", n)
		assert.True(t, fault.IsErrCorruption(err), "truncation by %d: not a corruption error: %v", n, err)
		assert.Nil(t, result, "truncation by %d: partial data returned", n)
	}
}

// random bytes are not a valid stream
func TestGarbageInput(t *testing.T) {

	garbage := make([]byte, 300)
	_, err := rand.Read(garbage)
	assert.Nil(t, err, "rand.Read error")

	result, err := codec.Decompress(garbage, tilerecord.TileArea)
	assert.NotNil(t, err, "garbage accepted")
	assert.True(t, fault.IsErrCorruption(err), "not a corruption error: %v", err)
	assert.Nil(t, result, "partial data returned")
}

// a wrong expected length is corruption even for a valid stream
func TestWrongExpectedLength(t *testing.T) {

	original := make([]byte, tilerecord.TileArea)
	compressed := codec.Compress(original)

	for _, n := range []int{0, 1, tilerecord.TileArea - 1, tilerecord.TileArea + 1} {
		result, err := codec.Decompress(compressed, n)
		assert.NotNil(t, err, "expected length %d accepted", n)
		assert.True(t, fault.IsErrCorruption(err), "length %d: not a corruption error: %v", n, err)
		assert.Nil(t, result, "length %d: partial data returned", n)
	}
}

// palette sized buffers use the same codec
func TestPaletteRoundTrip(t *testing.T) {

	palette := make([]byte, tilerecord.PaletteBytes)
	for i := range palette {
		palette[i] = byte(i)
	}

	compressed := codec.Compress(palette)
	decompressed, err := codec.Decompress(compressed, len(palette))
	assert.Nil(t, err, "decompress error")
	assert.Equal(t, palette, decompressed, "wrong palette round trip")
}

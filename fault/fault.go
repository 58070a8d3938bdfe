// SPDX-License-Identifier: ISC
// Copyright (c) 2019-2026 FineMaps Contributors
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// error instances
//
// Provides a single instance of each error to allow easy comparison
// and classification without string matching
package fault

// error base
type GenericError string

// to allow for different classes of errors
type CorruptionError GenericError
type ExistsError GenericError
type InvalidError GenericError
type NotFoundError GenericError
type ProcessError GenericError
type UnavailableError GenericError

// common errors - keep in alphabetic order
var (
	ErrAlreadyInitialised    = ProcessError("already initialised")
	ErrCorruptGroupRecord    = CorruptionError("corrupt group record")
	ErrCorruptNameRecord     = CorruptionError("corrupt name record")
	ErrCorruptSequence       = CorruptionError("corrupt sequence record")
	ErrCorruptTileData       = CorruptionError("corrupt tile data")
	ErrCorruptTileRecord     = CorruptionError("corrupt tile record")
	ErrGridPositionUsed      = ExistsError("grid position already used")
	ErrGroupNotFound         = NotFoundError("group not found")
	ErrIncompleteGroup       = InvalidError("group is incomplete")
	ErrInvalidGridPosition   = InvalidError("grid position is invalid")
	ErrInvalidGroupSize      = InvalidError("group size is invalid")
	ErrInvalidItemHandle     = InvalidError("invalid item handle")
	ErrInvalidName           = InvalidError("name is invalid")
	ErrInvalidNamespace      = InvalidError("namespace is invalid")
	ErrInvalidPaletteLength  = InvalidError("palette length is invalid")
	ErrInvalidPixelLength    = InvalidError("pixel length is invalid")
	ErrInvalidSlotWindow     = InvalidError("slot window is invalid")
	ErrNameAlreadyUsed       = ExistsError("name already used")
	ErrNotInitialised        = ProcessError("not initialised")
	ErrStoreUnavailable      = UnavailableError("storage is unavailable")
	ErrTileNotFound          = NotFoundError("tile not found")
	ErrTransactionInUse      = ProcessError("transaction already in use")
	ErrWrongLengthAfterCodec = CorruptionError("wrong length after decompression")
)

// the error interface base method
func (e GenericError) Error() string { return string(e) }

// the error interface methods
func (e CorruptionError) Error() string  { return string(e) }
func (e ExistsError) Error() string      { return string(e) }
func (e InvalidError) Error() string     { return string(e) }
func (e NotFoundError) Error() string    { return string(e) }
func (e ProcessError) Error() string     { return string(e) }
func (e UnavailableError) Error() string { return string(e) }

// determine the class of an error
func IsErrCorruption(e error) bool  { _, ok := e.(CorruptionError); return ok }
func IsErrExists(e error) bool      { _, ok := e.(ExistsError); return ok }
func IsErrInvalid(e error) bool     { _, ok := e.(InvalidError); return ok }
func IsErrNotFound(e error) bool    { _, ok := e.(NotFoundError); return ok }
func IsErrProcess(e error) bool     { _, ok := e.(ProcessError); return ok }
func IsErrUnavailable(e error) bool { _, ok := e.(UnavailableError); return ok }

// Copyright 2024 The Erigon Authors
// This file is part of Erigon.
//
// Erigon is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Erigon is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with Erigon. If not, see <http://www.gnu.org/licenses/>.

package vm

import (
	"errors"
	"fmt"
)

// List evm execution errors
var (
	ErrOutOfGas                 = errors.New("out of gas")
	ErrCodeStoreOutOfGas        = errors.New("contract creation code storage out of gas")
	ErrDepth                    = errors.New("max call depth exceeded")
	ErrInsufficientBalance      = errors.New("insufficient balance for transfer")
	ErrContractAddressCollision = errors.New("contract address collision")
	ErrExecutionReverted        = errors.New("execution reverted")
	ErrMaxCodeSizeExceeded      = errors.New("max code size exceeded")
	ErrMaxInitCodeSizeExceeded  = errors.New("max initcode size exceeded")
	ErrInvalidCode              = errors.New("invalid code: must not begin with 0xef")
	ErrWriteProtection          = errors.New("write protection")
	ErrNonceUintOverflow        = errors.New("nonce uint64 overflow")
	ErrPrecompileFailed         = errors.New("precompile failed")
)

// FatalError aborts the whole call path. Backend failures are reported this way;
// the executor never retries them.
type FatalError struct {
	Err error
}

func (e *FatalError) Error() string { return fmt.Sprintf("fatal: %v", e.Err) }
func (e *FatalError) Unwrap() error { return e.Err }

// Fatal wraps err unless it already is fatal.
func Fatal(err error) error {
	if err == nil {
		return nil
	}
	var fe *FatalError
	if errors.As(err, &fe) {
		return err
	}
	return &FatalError{Err: err}
}

// ExitKind is the coarse outcome of a frame.
type ExitKind uint8

const (
	ExitSucceed ExitKind = iota
	ExitRevert
	ExitError
	ExitFatal
)

var exitKindNames = [...]string{"succeed", "revert", "error", "fatal"}

func (k ExitKind) String() string {
	if int(k) < len(exitKindNames) {
		return exitKindNames[k]
	}
	return fmt.Sprintf("exit(%d)", uint8(k))
}

func (k ExitKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *ExitKind) UnmarshalText(text []byte) error {
	for i, name := range exitKindNames {
		if name == string(text) {
			*k = ExitKind(i)
			return nil
		}
	}
	return fmt.Errorf("unknown exit kind %q", text)
}

// Classify maps an interpreter or host error onto the frame outcome.
func Classify(err error) ExitKind {
	var fe *FatalError
	switch {
	case err == nil:
		return ExitSucceed
	case errors.As(err, &fe):
		return ExitFatal
	case errors.Is(err, ErrExecutionReverted):
		return ExitRevert
	default:
		return ExitError
	}
}

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
	"github.com/ethereum/go-ethereum/params"
	"github.com/holiman/uint256"
)

const (
	CallStipend     = params.CallStipend     // Free gas given at beginning of call.
	CreateDataGas   = params.CreateDataGas   // Paid per byte of deployed code.
	CallCreateDepth = params.CallCreateDepth // Maximum depth of call/create stack.
	MaxCodeSize     = params.MaxCodeSize     // EIP-170
	MaxInitCodeSize = params.MaxInitCodeSize // EIP-3860
)

// CallGas returns the gas handed to a nested frame: the requested amount capped
// at all but one 64th of what the caller has left (EIP-150).
func CallGas(available, requested uint64) uint64 {
	allBut64th := available - available/64
	if requested > allBut64th {
		return allBut64th
	}
	return requested
}

// WithStipend adds the call stipend to value-bearing CALL and CALLCODE frames.
func WithStipend(kind CallKind, gas uint64, value *uint256.Int) uint64 {
	if (kind == CALL || kind == CALLCODE) && value != nil && !value.IsZero() {
		return gas + CallStipend
	}
	return gas
}

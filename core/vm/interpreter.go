// Copyright 2014 The go-ethereum Authors
// (original work)
// Copyright 2024 The Erigon Authors
// (modifications)
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
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// The Interpreter runs the code of a single frame. Nested calls go back
// through the Host; leftover gas is reported through scope.Gas.
type Interpreter interface {
	Run(scope *ScopeContext, host Host) (ret []byte, err error)
}

// ScopeContext contains the things that are per-call: the contract being run,
// its gas, and the stack and memory the interpreter chooses to expose for
// step recording.
type ScopeContext struct {
	caller      common.Address
	address     common.Address
	codeAddress common.Address
	value       *uint256.Int

	Input    []byte
	Code     []byte
	CodeHash common.Hash
	Gas      uint64
	ReadOnly bool
	Depth    int

	Memory []byte
	Stack  []uint256.Int
}

// NewScope prepares a frame for caller running the code of codeAddr in the
// storage context of addr.
func NewScope(caller, addr, codeAddr common.Address, value *uint256.Int, gas uint64) *ScopeContext {
	if value == nil {
		value = new(uint256.Int)
	}
	return &ScopeContext{
		caller:      caller,
		address:     addr,
		codeAddress: codeAddr,
		value:       value,
		Gas:         gas,
	}
}

// Caller returns the current caller.
func (ctx *ScopeContext) Caller() common.Address { return ctx.caller }

// Address returns the address where this scope of execution is taking place.
func (ctx *ScopeContext) Address() common.Address { return ctx.address }

// CodeAddress returns the account the running code was loaded from.
func (ctx *ScopeContext) CodeAddress() common.Address { return ctx.codeAddress }

// CallValue returns the value supplied with this call.
func (ctx *ScopeContext) CallValue() *uint256.Int { return ctx.value }

// MemoryData returns the underlying memory slice. Callers must not modify the contents
// of the returned data.
func (ctx *ScopeContext) MemoryData() []byte { return ctx.Memory }

// StackData returns the stack data. Callers must not modify the contents
// of the returned data.
func (ctx *ScopeContext) StackData() []uint256.Int { return ctx.Stack }

// UseGas attempts the use gas and subtracts it and returns true on success
func (ctx *ScopeContext) UseGas(gas uint64) bool {
	if ctx.Gas < gas {
		return false
	}
	ctx.Gas -= gas
	return true
}

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

// CallParams describes a message call issued by a running frame.
type CallParams struct {
	Kind CallKind
	// Caller is the account executing the call instruction.
	Caller common.Address
	// Target is the account whose code runs.
	Target common.Address
	Input  []byte
	// Gas is what the instruction asked for. The host caps it, charges the
	// forwarded amount to the calling frame and refunds whatever is left.
	Gas   uint64
	Value *uint256.Int
	// PC is the program counter of the call instruction inside the caller.
	PC uint64
}

// CreateParams describes a contract creation issued by a running frame.
type CreateParams struct {
	Kind     CallKind
	Caller   common.Address
	InitCode []byte
	Gas      uint64
	Value    *uint256.Int
	// Salt is only used by CREATE2.
	Salt *uint256.Int
	PC   uint64
}

// Host is the view an interpreter has of the surrounding executor. Every
// nested message call and every state access goes through it.
type Host interface {
	Call(p CallParams) (ret []byte, leftOverGas uint64, err error)
	Create(p CreateParams) (ret []byte, addr common.Address, leftOverGas uint64, err error)

	Log(addr common.Address, topics []common.Hash, data []byte)
	SLoad(addr common.Address, key common.Hash) (common.Hash, error)
	SStore(addr common.Address, key, value common.Hash) error

	Balance(addr common.Address) (*uint256.Int, error)
	Nonce(addr common.Address) (uint64, error)
	Code(addr common.Address) ([]byte, error)
	CodeHash(addr common.Address) (common.Hash, error)
	SelfDestruct(addr, beneficiary common.Address) error

	Env() *Env
	Depth() int

	// OnOpcode is invoked by interpreters that support single-step recording,
	// before the instruction at pc is executed.
	OnOpcode(scope *ScopeContext, pc uint64, op byte, gas, cost uint64, err error)
}

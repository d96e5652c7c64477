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
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// BlockContext provides the EVM with auxiliary information about the block
// being executed. Cheat calls rewrite it in place.
type BlockContext struct {
	Coinbase    common.Address
	GasLimit    uint64
	BlockNumber uint256.Int
	Time        uint256.Int
	Difficulty  uint256.Int
	BaseFee     uint256.Int
	PrevRandao  common.Hash
}

// TxContext provides the EVM with information about a transaction.
type TxContext struct {
	Origin   common.Address
	GasPrice uint256.Int
}

// Env is the execution environment shared by every frame of one executor.
type Env struct {
	Block   BlockContext
	Tx      TxContext
	ChainID uint256.Int
}

// Copy returns a deep copy of the environment.
func (e *Env) Copy() *Env {
	cpy := *e
	return &cpy
}

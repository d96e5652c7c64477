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

package state

import (
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// ErrBackend marks failures of the underlying account source (for example a
// forked remote chain). The executor treats them as fatal for the call path.
var ErrBackend = errors.New("state backend failure")

// AccountInfo is the account data a Backend hands out.
type AccountInfo struct {
	Nonce   uint64
	Balance *uint256.Int
	Code    []byte
}

// Backend is the blocking source of accounts and storage that are not yet
// present in the journaled state.
type Backend interface {
	// Account returns nil, nil for accounts that do not exist.
	Account(addr common.Address) (*AccountInfo, error)
	Storage(addr common.Address, key common.Hash) (common.Hash, error)
}

// JournaledState is the transactional account/storage view the executor and
// the cheat dispatcher operate on. Substates nest: every EnterSubstate must be
// paired with exactly one ExitSubstate.
type JournaledState interface {
	LoadAccount(addr common.Address) error
	Exist(addr common.Address) (bool, error)
	CreateAccount(addr common.Address) error
	Touch(addr common.Address)

	GetBalance(addr common.Address) (*uint256.Int, error)
	SetBalance(addr common.Address, amount *uint256.Int) error
	GetNonce(addr common.Address) (uint64, error)
	SetNonce(addr common.Address, nonce uint64) error
	GetCode(addr common.Address) ([]byte, error)
	GetCodeHash(addr common.Address) (common.Hash, error)
	SetCode(addr common.Address, code []byte) error
	GetState(addr common.Address, key common.Hash) (common.Hash, error)
	SetState(addr common.Address, key, value common.Hash) error
	HasStorage(addr common.Address) (bool, error)
	SelfDestruct(addr common.Address) error

	Depth() int
	EnterSubstate()
	ExitSubstate(commit bool)

	// Snapshot and RevertToSnapshot back the snapshot/revertTo cheats.
	Snapshot() int
	RevertToSnapshot(id int) bool
}

// Transfer moves amount from sender to recipient, failing without side effects
// when the sender cannot cover it.
func Transfer(s JournaledState, from, to common.Address, amount *uint256.Int) (ok bool, err error) {
	if amount == nil || amount.IsZero() {
		return true, s.LoadAccount(to)
	}
	fromBal, err := s.GetBalance(from)
	if err != nil {
		return false, err
	}
	if fromBal.Lt(amount) {
		return false, nil
	}
	if from == to {
		return true, nil
	}
	toBal, err := s.GetBalance(to)
	if err != nil {
		return false, err
	}
	if err := s.SetBalance(from, new(uint256.Int).Sub(fromBal, amount)); err != nil {
		return false, err
	}
	return true, s.SetBalance(to, new(uint256.Int).Add(toBal, amount))
}

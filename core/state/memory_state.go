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
	"bytes"
	"fmt"
	"sort"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

type stateObject struct {
	nonce    uint64
	balance  uint256.Int
	code     []byte
	codeHash common.Hash
	storage  map[common.Hash]common.Hash

	// exists is false for accounts that were only looked up.
	exists bool
	// created accounts never consult the backend for storage.
	created        bool
	selfDestructed bool
}

func newObject() *stateObject {
	return &stateObject{codeHash: types.EmptyCodeHash, storage: map[common.Hash]common.Hash{}}
}

func (o *stateObject) empty() bool {
	return o.nonce == 0 && o.balance.IsZero() && o.codeHash == types.EmptyCodeHash
}

// MemoryState is an in-memory JournaledState. Accounts missing locally are
// pulled from an optional Backend on first access; loads are never journaled.
type MemoryState struct {
	backend Backend
	objects map[common.Address]*stateObject
	touched mapset.Set[common.Address]

	journal   journal
	substates []int // journal length at each EnterSubstate
	snapshots []int
}

var _ JournaledState = (*MemoryState)(nil)

// New creates a state on top of backend, which may be nil.
func New(backend Backend) *MemoryState {
	return &MemoryState{
		backend: backend,
		objects: map[common.Address]*stateObject{},
		touched: mapset.NewThreadUnsafeSet[common.Address](),
	}
}

func (s *MemoryState) getObject(addr common.Address) (*stateObject, error) {
	if obj, ok := s.objects[addr]; ok {
		return obj, nil
	}
	obj := newObject()
	if s.backend != nil {
		info, err := s.backend.Account(addr)
		if err != nil {
			return nil, fmt.Errorf("%w: account %x: %w", ErrBackend, addr, err)
		}
		if info != nil {
			obj.exists = true
			obj.nonce = info.Nonce
			if info.Balance != nil {
				obj.balance = *info.Balance
			}
			if len(info.Code) > 0 {
				obj.code = common.CopyBytes(info.Code)
				obj.codeHash = crypto.Keccak256Hash(info.Code)
			}
		}
	}
	s.objects[addr] = obj
	return obj, nil
}

// getOrNew returns the object for addr, marking it as existing.
func (s *MemoryState) getOrNew(addr common.Address) (*stateObject, error) {
	obj, err := s.getObject(addr)
	if err != nil {
		return nil, err
	}
	if !obj.exists {
		cpy := *obj
		s.journal.append(createObjectChange{account: addr, prev: obj})
		cpy.exists = true
		obj = &cpy
		s.objects[addr] = obj
	}
	return obj, nil
}

func (s *MemoryState) LoadAccount(addr common.Address) error {
	_, err := s.getObject(addr)
	return err
}

func (s *MemoryState) Exist(addr common.Address) (bool, error) {
	obj, err := s.getObject(addr)
	if err != nil {
		return false, err
	}
	return obj.exists, nil
}

// CreateAccount installs a fresh account at addr, keeping any balance it
// already held.
func (s *MemoryState) CreateAccount(addr common.Address) error {
	prev, err := s.getObject(addr)
	if err != nil {
		return err
	}
	obj := newObject()
	obj.exists, obj.created = true, true
	obj.balance = prev.balance
	s.journal.append(createObjectChange{account: addr, prev: prev})
	s.objects[addr] = obj
	return nil
}

func (s *MemoryState) Touch(addr common.Address) {
	if s.touched.Add(addr) {
		s.journal.append(touchChange{account: addr})
	}
}

// Touched returns the touched accounts in address order.
func (s *MemoryState) Touched() []common.Address {
	out := s.touched.ToSlice()
	sort.Slice(out, func(i, j int) bool { return bytes.Compare(out[i][:], out[j][:]) < 0 })
	return out
}

func (s *MemoryState) GetBalance(addr common.Address) (*uint256.Int, error) {
	obj, err := s.getObject(addr)
	if err != nil {
		return nil, err
	}
	return obj.balance.Clone(), nil
}

func (s *MemoryState) SetBalance(addr common.Address, amount *uint256.Int) error {
	obj, err := s.getOrNew(addr)
	if err != nil {
		return err
	}
	s.journal.append(balanceChange{account: addr, prev: obj.balance})
	obj.balance = *amount
	return nil
}

func (s *MemoryState) GetNonce(addr common.Address) (uint64, error) {
	obj, err := s.getObject(addr)
	if err != nil {
		return 0, err
	}
	return obj.nonce, nil
}

func (s *MemoryState) SetNonce(addr common.Address, nonce uint64) error {
	obj, err := s.getOrNew(addr)
	if err != nil {
		return err
	}
	s.journal.append(nonceChange{account: addr, prev: obj.nonce})
	obj.nonce = nonce
	return nil
}

func (s *MemoryState) GetCode(addr common.Address) ([]byte, error) {
	obj, err := s.getObject(addr)
	if err != nil {
		return nil, err
	}
	return obj.code, nil
}

func (s *MemoryState) GetCodeHash(addr common.Address) (common.Hash, error) {
	obj, err := s.getObject(addr)
	if err != nil {
		return common.Hash{}, err
	}
	if !obj.exists {
		return common.Hash{}, nil
	}
	return obj.codeHash, nil
}

func (s *MemoryState) SetCode(addr common.Address, code []byte) error {
	obj, err := s.getOrNew(addr)
	if err != nil {
		return err
	}
	s.journal.append(codeChange{account: addr, prevCode: obj.code, prevHash: obj.codeHash})
	obj.code = common.CopyBytes(code)
	if len(code) == 0 {
		obj.codeHash = types.EmptyCodeHash
	} else {
		obj.codeHash = crypto.Keccak256Hash(code)
	}
	return nil
}

func (s *MemoryState) GetState(addr common.Address, key common.Hash) (common.Hash, error) {
	obj, err := s.getObject(addr)
	if err != nil {
		return common.Hash{}, err
	}
	if v, ok := obj.storage[key]; ok {
		return v, nil
	}
	if obj.created || !obj.exists || s.backend == nil {
		return common.Hash{}, nil
	}
	v, err := s.backend.Storage(addr, key)
	if err != nil {
		return common.Hash{}, fmt.Errorf("%w: storage %x/%x: %w", ErrBackend, addr, key, err)
	}
	obj.storage[key] = v
	return v, nil
}

func (s *MemoryState) SetState(addr common.Address, key, value common.Hash) error {
	if _, err := s.GetState(addr, key); err != nil {
		return err
	}
	obj, err := s.getOrNew(addr)
	if err != nil {
		return err
	}
	prev, seen := obj.storage[key]
	s.journal.append(storageChange{account: addr, key: key, prev: prev, prevSeen: seen})
	obj.storage[key] = value
	return nil
}

// HasStorage reports whether any non-zero slot of addr is known locally.
func (s *MemoryState) HasStorage(addr common.Address) (bool, error) {
	obj, err := s.getObject(addr)
	if err != nil {
		return false, err
	}
	for _, v := range obj.storage {
		if v != (common.Hash{}) {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemoryState) SelfDestruct(addr common.Address) error {
	obj, err := s.getOrNew(addr)
	if err != nil {
		return err
	}
	s.journal.append(selfDestructChange{account: addr, prev: obj.selfDestructed, balance: obj.balance})
	obj.selfDestructed = true
	obj.balance.Clear()
	return nil
}

// HasSelfDestructed reports whether addr was destroyed in this session.
func (s *MemoryState) HasSelfDestructed(addr common.Address) bool {
	obj, ok := s.objects[addr]
	return ok && obj.selfDestructed
}

// Empty reports whether addr has zero nonce, zero balance and no code.
func (s *MemoryState) Empty(addr common.Address) (bool, error) {
	obj, err := s.getObject(addr)
	if err != nil {
		return false, err
	}
	return obj.empty(), nil
}

func (s *MemoryState) Depth() int { return len(s.substates) }

func (s *MemoryState) EnterSubstate() {
	s.substates = append(s.substates, s.journal.length())
}

// ExitSubstate closes the innermost substate, discarding its changes unless
// commit is set. Exiting with no open substate is a programming error.
func (s *MemoryState) ExitSubstate(commit bool) {
	if len(s.substates) == 0 {
		panic("state: exit without matching enter")
	}
	mark := s.substates[len(s.substates)-1]
	s.substates = s.substates[:len(s.substates)-1]
	if !commit && mark <= s.journal.length() {
		s.journal.revert(s, mark)
	}
}

// Snapshot records the current journal position and returns its id.
func (s *MemoryState) Snapshot() int {
	s.snapshots = append(s.snapshots, s.journal.length())
	return len(s.snapshots) - 1
}

// RevertToSnapshot undoes every change made since snapshot id was taken.
// Later snapshots are invalidated.
func (s *MemoryState) RevertToSnapshot(id int) bool {
	if id < 0 || id >= len(s.snapshots) {
		return false
	}
	mark := s.snapshots[id]
	if mark > s.journal.length() {
		return false
	}
	s.journal.revert(s, mark)
	s.snapshots = s.snapshots[:id+1]
	// open substates now start no later than the restored position
	for i := range s.substates {
		if s.substates[i] > mark {
			s.substates[i] = mark
		}
	}
	return true
}

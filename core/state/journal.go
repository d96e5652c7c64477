// Copyright 2016 The go-ethereum Authors
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

package state

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// journalEntry is a modification entry in the state change journal that can be
// reverted on demand.
type journalEntry interface {
	revert(*MemoryState)
}

// journal contains the list of state modifications applied since the last state
// commit. These are tracked to be able to be reverted in case of an execution
// exception or revertal request.
type journal struct {
	entries []journalEntry
}

func (j *journal) append(entry journalEntry) {
	j.entries = append(j.entries, entry)
}

// revert undoes a batch of journalled modifications down to length n.
func (j *journal) revert(s *MemoryState, n int) {
	for i := len(j.entries) - 1; i >= n; i-- {
		j.entries[i].revert(s)
	}
	j.entries = j.entries[:n]
}

func (j *journal) length() int { return len(j.entries) }

type (
	// Changes to the account set.
	createObjectChange struct {
		account common.Address
		prev    *stateObject
	}
	selfDestructChange struct {
		account common.Address
		prev    bool
		balance uint256.Int
	}
	touchChange struct {
		account common.Address
	}

	// Changes to individual accounts.
	balanceChange struct {
		account common.Address
		prev    uint256.Int
	}
	nonceChange struct {
		account common.Address
		prev    uint64
	}
	codeChange struct {
		account  common.Address
		prevCode []byte
		prevHash common.Hash
	}
	storageChange struct {
		account  common.Address
		key      common.Hash
		prev     common.Hash
		prevSeen bool
	}
)

func (ch createObjectChange) revert(s *MemoryState) {
	if ch.prev == nil {
		delete(s.objects, ch.account)
		return
	}
	s.objects[ch.account] = ch.prev
}

func (ch selfDestructChange) revert(s *MemoryState) {
	if obj := s.objects[ch.account]; obj != nil {
		obj.selfDestructed = ch.prev
		obj.balance = ch.balance
	}
}

func (ch touchChange) revert(s *MemoryState) {
	s.touched.Remove(ch.account)
}

func (ch balanceChange) revert(s *MemoryState) {
	s.objects[ch.account].balance = ch.prev
}

func (ch nonceChange) revert(s *MemoryState) {
	s.objects[ch.account].nonce = ch.prev
}

func (ch codeChange) revert(s *MemoryState) {
	obj := s.objects[ch.account]
	obj.code, obj.codeHash = ch.prevCode, ch.prevHash
}

func (ch storageChange) revert(s *MemoryState) {
	obj := s.objects[ch.account]
	if !ch.prevSeen {
		delete(obj.storage, ch.key)
		return
	}
	obj.storage[ch.key] = ch.prev
}

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

package cheatcodes

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Call is a decoded cheat invocation. The set of implementations is closed.
type Call interface {
	isCheat()
}

type (
	Warp       struct{ Timestamp *big.Int }
	Roll       struct{ Number *big.Int }
	Fee        struct{ BaseFee *big.Int }
	Difficulty struct{ Value *big.Int }
	Prevrandao struct{ Value [32]byte }
	Coinbase   struct{ Address common.Address }
	ChainID    struct{ ID *big.Int }
	TxGasPrice struct{ Price *big.Int }
)

type (
	Store struct {
		Target common.Address
		Slot   [32]byte
		Value  [32]byte
	}
	Load struct {
		Target common.Address
		Slot   [32]byte
	}
	Etch struct {
		Target common.Address
		Code   []byte
	}
	Deal struct {
		Target  common.Address
		Balance *big.Int
	}
	GetNonce struct{ Target common.Address }
	// SetNonce refuses to lower the nonce unless Unsafe is set.
	SetNonce struct {
		Target common.Address
		Nonce  uint64
		Unsafe bool
	}
	ResetNonce struct{ Target common.Address }
)

type (
	// StartPrank covers prank and startPrank with and without an origin.
	StartPrank struct {
		Caller common.Address
		Origin *common.Address
		Single bool
	}
	StopPrank struct{}

	// StartBroadcast covers broadcast and startBroadcast. At most one of
	// Signer and Key is set; neither means the current tx.origin signs.
	StartBroadcast struct {
		Signer *common.Address
		Key    *big.Int
		Single bool
	}
	StopBroadcast struct{}
	ReadCallers   struct{}
)

type (
	Record          struct{}
	Accesses        struct{ Target common.Address }
	RecordLogs      struct{}
	GetRecordedLogs struct{}
)

type (
	Breakpoint struct {
		Char   string
		Enable bool
	}
	PauseGasMetering  struct{}
	ResumeGasMetering struct{}
)

type (
	Snapshot struct{}
	RevertTo struct{ ID *big.Int }
	Label    struct {
		Target common.Address
		Label  string
	}
	Addr struct{ Key *big.Int }
	Sign struct {
		Key    *big.Int
		Digest [32]byte
	}
)

type (
	MockCall struct {
		Target common.Address
		Data   []byte
		Return []byte
	}
	ClearMockedCalls struct{}
	// ExpectRevert with a nil Reason accepts any revert. Partial matches
	// Reason against the start of the revert data.
	ExpectRevert struct {
		Reason  []byte
		Partial bool
	}
	ExpectCall struct {
		Target common.Address
		Data   []byte
	}
	FFI struct{ Args []string }
)

func (Warp) isCheat()       {}
func (Roll) isCheat()       {}
func (Fee) isCheat()        {}
func (Difficulty) isCheat() {}
func (Prevrandao) isCheat() {}
func (Coinbase) isCheat()   {}
func (ChainID) isCheat()    {}
func (TxGasPrice) isCheat() {}

func (Store) isCheat()      {}
func (Load) isCheat()       {}
func (Etch) isCheat()       {}
func (Deal) isCheat()       {}
func (GetNonce) isCheat()   {}
func (SetNonce) isCheat()   {}
func (ResetNonce) isCheat() {}

func (StartPrank) isCheat()     {}
func (StopPrank) isCheat()      {}
func (StartBroadcast) isCheat() {}
func (StopBroadcast) isCheat()  {}
func (ReadCallers) isCheat()    {}

func (Record) isCheat()          {}
func (Accesses) isCheat()        {}
func (RecordLogs) isCheat()      {}
func (GetRecordedLogs) isCheat() {}

func (Breakpoint) isCheat()        {}
func (PauseGasMetering) isCheat()  {}
func (ResumeGasMetering) isCheat() {}

func (Snapshot) isCheat() {}
func (RevertTo) isCheat() {}
func (Label) isCheat()    {}
func (Addr) isCheat()     {}
func (Sign) isCheat()     {}

func (MockCall) isCheat()         {}
func (ClearMockedCalls) isCheat() {}
func (ExpectRevert) isCheat()     {}
func (ExpectCall) isCheat()       {}
func (FFI) isCheat()              {}

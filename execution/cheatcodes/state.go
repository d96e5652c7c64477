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
	"bytes"
	"crypto/ecdsa"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Prank overrides msg.sender, and optionally tx.origin, for calls made by
// PrankCaller at Depth.
type Prank struct {
	PrankCaller common.Address
	PrankOrigin common.Address
	NewCaller   common.Address
	NewOrigin   *common.Address
	Depth       int
	SingleCall  bool
	// Used is set once the prank has been applied to a call.
	Used bool
}

// Broadcast turns calls made by OriginalCaller at Depth into transactions
// signed by NewOrigin.
type Broadcast struct {
	NewOrigin      common.Address
	OriginalCaller common.Address
	OriginalOrigin common.Address
	Depth          int
	SingleCall     bool
}

// BroadcastableTransaction is a call collected while broadcasting. To is nil
// for contract creations.
type BroadcastableTransaction struct {
	From  common.Address
	To    *common.Address
	Value *uint256.Int
	Data  []byte
	Nonce uint64
}

type RecordedAccesses struct {
	Reads  map[common.Address][]common.Hash
	Writes map[common.Address][]common.Hash
}

func newRecordedAccesses() *RecordedAccesses {
	return &RecordedAccesses{
		Reads:  map[common.Address][]common.Hash{},
		Writes: map[common.Address][]common.Hash{},
	}
}

// RecordedLog mirrors the tuple returned by getRecordedLogs.
type RecordedLog struct {
	Topics  []common.Hash
	Data    []byte
	Emitter common.Address
}

// BreakpointLoc is where a breakpoint character was last set.
type BreakpointLoc struct {
	Address common.Address
	PC      uint64
}

type GasMeteringMode uint8

const (
	GasMeteringNormal GasMeteringMode = iota
	// GasMeteringPaused was requested but no frame has run since.
	GasMeteringPaused
	// GasMeteringPausedAt carries the gas budget observed when pausing took effect.
	GasMeteringPausedAt
)

type GasMetering struct {
	Mode GasMeteringMode
	Gas  uint64
}

func (g GasMetering) Paused() bool { return g.Mode != GasMeteringNormal }

// ExpectedRevert is checked when the next call at or below Depth returns.
type ExpectedRevert struct {
	Reason  []byte
	Partial bool
	Depth   int
}

// ExpectedCall counts calls to Target whose input starts with Data.
type ExpectedCall struct {
	Target common.Address
	Data   []byte
	Seen   int
}

// CallerMode is the first value returned by readCallers. Contracts compare
// against these numbers, so they must never change.
type CallerMode uint8

const (
	CallerModeNone               CallerMode = 0
	CallerModeBroadcast          CallerMode = 1
	CallerModeRecurrentBroadcast CallerMode = 2
	CallerModePrank              CallerMode = 3
	CallerModeRecurrentPrank     CallerMode = 4
)

// State is the per-session memory of the cheat machine. It is owned by one
// executor and is not safe for concurrent use.
type State struct {
	Prank     *Prank
	Broadcast *Broadcast

	Accesses     *RecordedAccesses
	RecordedLogs []RecordedLog
	recordLogs   bool

	Breakpoints map[rune]BreakpointLoc
	GasMetering GasMetering

	// CorrectedNonce is set once the script sender's nonce has been lowered
	// to compensate for the deployment of the script contract.
	CorrectedNonce bool

	Labels           map[common.Address]string
	MockedCalls      map[common.Address]map[string][]byte
	ExpectedRevert   *ExpectedRevert
	ExpectedCalls    []*ExpectedCall
	BroadcastKeys    map[common.Address]*ecdsa.PrivateKey
	BroadcastableTxs []BroadcastableTransaction
}

func NewState() *State {
	s := &State{}
	s.Reset()
	return s
}

// Reset clears everything recorded in the session.
func (s *State) Reset() {
	*s = State{
		Breakpoints:   map[rune]BreakpointLoc{},
		Labels:        map[common.Address]string{},
		MockedCalls:   map[common.Address]map[string][]byte{},
		BroadcastKeys: map[common.Address]*ecdsa.PrivateKey{},
	}
}

func (s *State) RecordRead(addr common.Address, slot common.Hash) {
	if s.Accesses == nil {
		return
	}
	s.Accesses.Reads[addr] = append(s.Accesses.Reads[addr], slot)
}

// RecordWrite records a storage write. A write is also a read, as SSTORE
// observes the previous value.
func (s *State) RecordWrite(addr common.Address, slot common.Hash) {
	if s.Accesses == nil {
		return
	}
	s.Accesses.Reads[addr] = append(s.Accesses.Reads[addr], slot)
	s.Accesses.Writes[addr] = append(s.Accesses.Writes[addr], slot)
}

func (s *State) RecordingLogs() bool { return s.recordLogs }

func (s *State) RecordLog(emitter common.Address, topics []common.Hash, data []byte) {
	if !s.recordLogs {
		return
	}
	s.RecordedLogs = append(s.RecordedLogs, RecordedLog{
		Topics:  append([]common.Hash(nil), topics...),
		Data:    common.CopyBytes(data),
		Emitter: emitter,
	})
}

// MockedReturn looks up a mock for a call to target. An exact calldata match
// wins; otherwise the longest registered prefix of input is used.
func (s *State) MockedReturn(target common.Address, input []byte) ([]byte, bool) {
	mocks, ok := s.MockedCalls[target]
	if !ok {
		return nil, false
	}
	if ret, ok := mocks[string(input)]; ok {
		return ret, true
	}
	keys := make([]string, 0, len(mocks))
	for k := range mocks {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return len(keys[i]) > len(keys[j]) })
	for _, k := range keys {
		if bytes.HasPrefix(input, []byte(k)) {
			return mocks[k], true
		}
	}
	return nil, false
}

// ObserveCall counts the call against every matching expectation.
func (s *State) ObserveCall(target common.Address, input []byte) {
	for _, e := range s.ExpectedCalls {
		if e.Target == target && bytes.HasPrefix(input, e.Data) {
			e.Seen++
		}
	}
}

// UnmetCalls returns the expectations that have not been seen and forgets
// all of them.
func (s *State) UnmetCalls() []*ExpectedCall {
	var unmet []*ExpectedCall
	for _, e := range s.ExpectedCalls {
		if e.Seen == 0 {
			unmet = append(unmet, e)
		}
	}
	s.ExpectedCalls = nil
	return unmet
}

// Callers implements readCallers. origin is the current tx.origin.
func (s *State) Callers(origin common.Address) (CallerMode, common.Address, common.Address) {
	switch {
	case s.Prank != nil:
		mode := CallerModeRecurrentPrank
		if s.Prank.SingleCall {
			mode = CallerModePrank
		}
		txOrigin := origin
		if s.Prank.NewOrigin != nil {
			txOrigin = *s.Prank.NewOrigin
		}
		return mode, s.Prank.NewCaller, txOrigin
	case s.Broadcast != nil:
		mode := CallerModeRecurrentBroadcast
		if s.Broadcast.SingleCall {
			mode = CallerModeBroadcast
		}
		return mode, s.Broadcast.NewOrigin, s.Broadcast.NewOrigin
	default:
		return CallerModeNone, origin, origin
	}
}

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
	"fmt"

	gethvm "github.com/ethereum/go-ethereum/core/vm"
)

// CallKind is the message-call flavour of a frame.
type CallKind uint8

const (
	CALL CallKind = iota
	STATICCALL
	DELEGATECALL
	CALLCODE
	CREATE
	CREATE2
)

var callKindOps = [...]gethvm.OpCode{
	CALL:         gethvm.CALL,
	STATICCALL:   gethvm.STATICCALL,
	DELEGATECALL: gethvm.DELEGATECALL,
	CALLCODE:     gethvm.CALLCODE,
	CREATE:       gethvm.CREATE,
	CREATE2:      gethvm.CREATE2,
}

// OpCode returns the instruction that opens a frame of this kind.
func (k CallKind) OpCode() gethvm.OpCode {
	if int(k) < len(callKindOps) {
		return callKindOps[k]
	}
	return gethvm.INVALID
}

func (k CallKind) String() string { return k.OpCode().String() }

func (k CallKind) IsCreate() bool { return k == CREATE || k == CREATE2 }

// TransfersValue reports whether a frame of this kind moves its value between accounts.
func (k CallKind) TransfersValue() bool {
	return k == CALL || k == CALLCODE || k.IsCreate()
}

func (k CallKind) MarshalText() ([]byte, error) {
	if int(k) >= len(callKindOps) {
		return nil, fmt.Errorf("unknown call kind %d", k)
	}
	return []byte(k.String()), nil
}

func (k *CallKind) UnmarshalText(text []byte) error {
	op := gethvm.StringToOp(string(text))
	for i, o := range callKindOps {
		if o == op {
			*k = CallKind(i)
			return nil
		}
	}
	return fmt.Errorf("unknown call kind %q", text)
}

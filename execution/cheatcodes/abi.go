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
	"fmt"
	"math/big"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

var (
	// Address is the reserved account whose calls are intercepted as cheats.
	// It is derived from keccak256("hevm cheat code").
	Address = common.HexToAddress("0x7109709ECfa91a80626fF3989D68f67F5b1DD12D")

	// DefaultSender is the sender scripts run with when none is configured.
	DefaultSender = common.HexToAddress("0x1804c8AB1F12E6bbf3894d4083f33e07309d1f38")
)

func mustType(t string, components []abi.ArgumentMarshaling) abi.Type {
	typ, err := abi.NewType(t, "", components)
	if err != nil {
		panic(err)
	}
	return typ
}

var (
	typeUint8       = mustType("uint8", nil)
	typeUint64      = mustType("uint64", nil)
	typeUint256     = mustType("uint256", nil)
	typeAddress     = mustType("address", nil)
	typeBool        = mustType("bool", nil)
	typeBytes       = mustType("bytes", nil)
	typeBytes4      = mustType("bytes4", nil)
	typeBytes32     = mustType("bytes32", nil)
	typeBytes32Arr  = mustType("bytes32[]", nil)
	typeString      = mustType("string", nil)
	typeStringArr   = mustType("string[]", nil)
	typeLogTupleArr = mustType("tuple[]", []abi.ArgumentMarshaling{
		{Name: "topics", Type: "bytes32[]"},
		{Name: "data", Type: "bytes"},
		{Name: "emitter", Type: "address"},
	})
)

func args(types ...abi.Type) abi.Arguments {
	out := make(abi.Arguments, len(types))
	for i, t := range types {
		out[i] = abi.Argument{Type: t}
	}
	return out
}

// cheat binds one ABI method to the constructor of its call variant.
type cheat struct {
	method abi.Method
	decode func(in []any) Call
}

var (
	cheats    = map[[4]byte]*cheat{}
	revertSig = crypto.Keccak256([]byte("Error(string)"))[:4]
)

func register(name string, inputs, outputs abi.Arguments, decode func(in []any) Call) {
	m := abi.NewMethod(name, name, abi.Function, "nonpayable", false, false, inputs, outputs)
	var sel [4]byte
	copy(sel[:], m.ID)
	if prev, ok := cheats[sel]; ok {
		panic(fmt.Sprintf("selector clash: %s and %s", prev.method.Sig, m.Sig))
	}
	cheats[sel] = &cheat{method: m, decode: decode}
}

func init() {
	// environment
	register("warp", args(typeUint256), nil, func(in []any) Call { return Warp{Timestamp: in[0].(*big.Int)} })
	register("roll", args(typeUint256), nil, func(in []any) Call { return Roll{Number: in[0].(*big.Int)} })
	register("fee", args(typeUint256), nil, func(in []any) Call { return Fee{BaseFee: in[0].(*big.Int)} })
	register("difficulty", args(typeUint256), nil, func(in []any) Call { return Difficulty{Value: in[0].(*big.Int)} })
	register("prevrandao", args(typeBytes32), nil, func(in []any) Call { return Prevrandao{Value: in[0].([32]byte)} })
	register("coinbase", args(typeAddress), nil, func(in []any) Call { return Coinbase{Address: in[0].(common.Address)} })
	register("chainId", args(typeUint256), nil, func(in []any) Call { return ChainID{ID: in[0].(*big.Int)} })
	register("txGasPrice", args(typeUint256), nil, func(in []any) Call { return TxGasPrice{Price: in[0].(*big.Int)} })

	// accounts
	register("store", args(typeAddress, typeBytes32, typeBytes32), nil, func(in []any) Call {
		return Store{Target: in[0].(common.Address), Slot: in[1].([32]byte), Value: in[2].([32]byte)}
	})
	register("load", args(typeAddress, typeBytes32), args(typeBytes32), func(in []any) Call {
		return Load{Target: in[0].(common.Address), Slot: in[1].([32]byte)}
	})
	register("etch", args(typeAddress, typeBytes), nil, func(in []any) Call {
		return Etch{Target: in[0].(common.Address), Code: in[1].([]byte)}
	})
	register("deal", args(typeAddress, typeUint256), nil, func(in []any) Call {
		return Deal{Target: in[0].(common.Address), Balance: in[1].(*big.Int)}
	})
	register("getNonce", args(typeAddress), args(typeUint64), func(in []any) Call { return GetNonce{Target: in[0].(common.Address)} })
	register("setNonce", args(typeAddress, typeUint64), nil, func(in []any) Call {
		return SetNonce{Target: in[0].(common.Address), Nonce: in[1].(uint64)}
	})
	register("setNonceUnsafe", args(typeAddress, typeUint64), nil, func(in []any) Call {
		return SetNonce{Target: in[0].(common.Address), Nonce: in[1].(uint64), Unsafe: true}
	})
	register("resetNonce", args(typeAddress), nil, func(in []any) Call { return ResetNonce{Target: in[0].(common.Address)} })

	// caller overrides
	register("prank", args(typeAddress), nil, func(in []any) Call {
		return StartPrank{Caller: in[0].(common.Address), Single: true}
	})
	register("prank", args(typeAddress, typeAddress), nil, func(in []any) Call {
		origin := in[1].(common.Address)
		return StartPrank{Caller: in[0].(common.Address), Origin: &origin, Single: true}
	})
	register("startPrank", args(typeAddress), nil, func(in []any) Call { return StartPrank{Caller: in[0].(common.Address)} })
	register("startPrank", args(typeAddress, typeAddress), nil, func(in []any) Call {
		origin := in[1].(common.Address)
		return StartPrank{Caller: in[0].(common.Address), Origin: &origin}
	})
	register("stopPrank", nil, nil, func([]any) Call { return StopPrank{} })

	register("broadcast", nil, nil, func([]any) Call { return StartBroadcast{Single: true} })
	register("broadcast", args(typeAddress), nil, func(in []any) Call {
		signer := in[0].(common.Address)
		return StartBroadcast{Signer: &signer, Single: true}
	})
	register("broadcast", args(typeUint256), nil, func(in []any) Call {
		return StartBroadcast{Key: in[0].(*big.Int), Single: true}
	})
	register("startBroadcast", nil, nil, func([]any) Call { return StartBroadcast{} })
	register("startBroadcast", args(typeAddress), nil, func(in []any) Call {
		signer := in[0].(common.Address)
		return StartBroadcast{Signer: &signer}
	})
	register("startBroadcast", args(typeUint256), nil, func(in []any) Call { return StartBroadcast{Key: in[0].(*big.Int)} })
	register("stopBroadcast", nil, nil, func([]any) Call { return StopBroadcast{} })
	register("readCallers", nil, args(typeUint8, typeAddress, typeAddress), func([]any) Call { return ReadCallers{} })

	// recording
	register("record", nil, nil, func([]any) Call { return Record{} })
	register("accesses", args(typeAddress), args(typeBytes32Arr, typeBytes32Arr), func(in []any) Call {
		return Accesses{Target: in[0].(common.Address)}
	})
	register("recordLogs", nil, nil, func([]any) Call { return RecordLogs{} })
	register("getRecordedLogs", nil, args(typeLogTupleArr), func([]any) Call { return GetRecordedLogs{} })

	// debugging and gas
	register("breakpoint", args(typeString), nil, func(in []any) Call { return Breakpoint{Char: in[0].(string), Enable: true} })
	register("breakpoint", args(typeString, typeBool), nil, func(in []any) Call {
		return Breakpoint{Char: in[0].(string), Enable: in[1].(bool)}
	})
	register("pauseGasMetering", nil, nil, func([]any) Call { return PauseGasMetering{} })
	register("resumeGasMetering", nil, nil, func([]any) Call { return ResumeGasMetering{} })

	// snapshots, labels, keys
	register("snapshot", nil, args(typeUint256), func([]any) Call { return Snapshot{} })
	register("revertTo", args(typeUint256), args(typeBool), func(in []any) Call { return RevertTo{ID: in[0].(*big.Int)} })
	register("label", args(typeAddress, typeString), nil, func(in []any) Call {
		return Label{Target: in[0].(common.Address), Label: in[1].(string)}
	})
	register("addr", args(typeUint256), args(typeAddress), func(in []any) Call { return Addr{Key: in[0].(*big.Int)} })
	register("sign", args(typeUint256, typeBytes32), args(typeUint8, typeBytes32, typeBytes32), func(in []any) Call {
		return Sign{Key: in[0].(*big.Int), Digest: in[1].([32]byte)}
	})

	// mocks and expectations
	register("mockCall", args(typeAddress, typeBytes, typeBytes), nil, func(in []any) Call {
		return MockCall{Target: in[0].(common.Address), Data: in[1].([]byte), Return: in[2].([]byte)}
	})
	register("clearMockedCalls", nil, nil, func([]any) Call { return ClearMockedCalls{} })
	register("expectRevert", nil, nil, func([]any) Call { return ExpectRevert{} })
	register("expectRevert", args(typeBytes), nil, func(in []any) Call {
		reason := in[0].([]byte)
		return ExpectRevert{Reason: reason}
	})
	register("expectRevert", args(typeBytes4), nil, func(in []any) Call {
		sel := in[0].([4]byte)
		return ExpectRevert{Reason: sel[:], Partial: true}
	})
	register("expectCall", args(typeAddress, typeBytes), nil, func(in []any) Call {
		return ExpectCall{Target: in[0].(common.Address), Data: in[1].([]byte)}
	})
	register("ffi", args(typeStringArr), args(typeBytes), func(in []any) Call { return FFI{Args: in[0].([]string)} })
}

// Decode maps calldata sent to Address onto its call variant.
func Decode(input []byte) (Call, *abi.Method, error) {
	if len(input) < 4 {
		return nil, nil, fmt.Errorf("calldata too short to contain a selector (%d bytes)", len(input))
	}
	var sel [4]byte
	copy(sel[:], input[:4])
	c, ok := cheats[sel]
	if !ok {
		return nil, nil, fmt.Errorf("unknown cheat selector 0x%x", sel)
	}
	in, err := c.method.Inputs.Unpack(input[4:])
	if err != nil {
		return nil, nil, fmt.Errorf("decode %s: %w", c.method.Sig, err)
	}
	return c.decode(in), &c.method, nil
}

// Name returns the method name of the cheat selected by input, or "unknown".
func Name(input []byte) string {
	if len(input) < 4 {
		return "unknown"
	}
	if c, ok := cheats[[4]byte(input[:4])]; ok {
		return c.method.RawName
	}
	return "unknown"
}

// Encode builds the calldata for the cheat with signature sig.
func Encode(sig string, params ...any) ([]byte, error) {
	for sel, c := range cheats {
		if c.method.Sig != sig {
			continue
		}
		packed, err := c.method.Inputs.Pack(params...)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", sig, err)
		}
		return append(sel[:], packed...), nil
	}
	return nil, fmt.Errorf("unknown cheat %s", sig)
}

// Selector describes one entry of the cheat ABI.
type Selector struct {
	ID        [4]byte
	Signature string
	Outputs   string
}

// Selectors lists the cheat ABI ordered by signature.
func Selectors() []Selector {
	out := make([]Selector, 0, len(cheats))
	for id, c := range cheats {
		outs := make([]string, len(c.method.Outputs))
		for i, o := range c.method.Outputs {
			outs[i] = o.Type.String()
		}
		out = append(out, Selector{ID: id, Signature: c.method.Sig, Outputs: strings.Join(outs, ",")})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Signature < out[j].Signature })
	return out
}

// EncodeRevert wraps msg the way Solidity's revert(string) does.
func EncodeRevert(msg string) []byte {
	packed, err := args(typeString).Pack(msg)
	if err != nil {
		// packing a string cannot fail
		panic(err)
	}
	return append(common.CopyBytes(revertSig), packed...)
}

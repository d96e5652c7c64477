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
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/erigontech/forgevm/core/state"
	"github.com/erigontech/forgevm/core/vm"
)

var (
	testContract = common.HexToAddress("0x5615dEB798BB3E4dFa0139dFa1b3D433Cc23b72f")
	scriptSender = common.HexToAddress("0xabc0000000000000000000000000000000000001")
	alice        = common.HexToAddress("0xa11ce00000000000000000000000000000000001")
	bob          = common.HexToAddress("0xb0b0000000000000000000000000000000000002")
)

type harness struct {
	d   *Dispatcher
	st  *state.MemoryState
	env *vm.Env
}

func newHarness() *harness {
	env := &vm.Env{}
	env.Tx.Origin = scriptSender
	return &harness{
		d:   NewDispatcher(NewState(), false, nil),
		st:  state.New(nil),
		env: env,
	}
}

func (h *harness) call(t *testing.T, depth int, sig string, params ...any) ([]byte, error) {
	t.Helper()
	input, err := Encode(sig, params...)
	require.NoError(t, err)
	return h.d.Apply(&Context{Caller: testContract, Depth: depth, PC: 42, Env: h.env, State: h.st}, input)
}

func (h *harness) mustCall(t *testing.T, depth int, sig string, params ...any) []byte {
	t.Helper()
	out, err := h.call(t, depth, sig, params...)
	require.NoError(t, err)
	return out
}

func unpack(t *testing.T, sig string, out []byte) []any {
	t.Helper()
	for _, c := range cheats {
		if c.method.Sig == sig {
			vals, err := c.method.Outputs.Unpack(out)
			require.NoError(t, err)
			return vals
		}
	}
	t.Fatalf("no cheat %s", sig)
	return nil
}

func TestSelectors(t *testing.T) {
	t.Parallel()
	want := map[string]string{
		"warp(uint256)":                  "0xe5d6bf02",
		"roll(uint256)":                  "0x1f7b4f30",
		"prank(address)":                 "0xca669fa7",
		"startPrank(address)":            "0x06447d56",
		"stopPrank()":                    "0x90c5013b",
		"store(address,bytes32,bytes32)": "0x70ca10bb",
		"load(address,bytes32)":          "0x667f9d70",
		"etch(address,bytes)":            "0xb4d6c782",
		"deal(address,uint256)":          "0xc88a5e6d",
		"expectRevert(bytes)":            "0xf28dceb3",
	}
	got := map[string]string{}
	sels := Selectors()
	for i, s := range sels {
		got[s.Signature] = hexutil.Encode(s.ID[:])
		if i > 0 {
			require.Less(t, sels[i-1].Signature, s.Signature)
		}
	}
	for sig, id := range want {
		require.Equal(t, id, got[sig], sig)
	}
}

func TestMalformedCalldata(t *testing.T) {
	t.Parallel()
	h := newHarness()
	ctx := &Context{Env: h.env, State: h.st}

	_, err := h.d.Apply(ctx, []byte{0xe5, 0xd6})
	require.ErrorContains(t, err, "too short")
	var cheatErr Error
	require.ErrorAs(t, err, &cheatErr)

	_, err = h.d.Apply(ctx, []byte{0xde, 0xad, 0xbe, 0xef})
	require.ErrorContains(t, err, "unknown cheat selector 0xdeadbeef")
}

func TestEnvironmentCheats(t *testing.T) {
	t.Parallel()
	h := newHarness()
	h.mustCall(t, 1, "warp(uint256)", big.NewInt(1_700_000_000))
	h.mustCall(t, 1, "roll(uint256)", big.NewInt(19))
	h.mustCall(t, 1, "fee(uint256)", big.NewInt(7))
	h.mustCall(t, 1, "coinbase(address)", alice)
	h.mustCall(t, 1, "txGasPrice(uint256)", big.NewInt(3))
	h.mustCall(t, 1, "chainId(uint256)", new(big.Int).SetUint64(^uint64(0)))

	require.Equal(t, uint64(1_700_000_000), h.env.Block.Time.Uint64())
	require.Equal(t, uint64(19), h.env.Block.BlockNumber.Uint64())
	require.Equal(t, uint64(7), h.env.Block.BaseFee.Uint64())
	require.Equal(t, alice, h.env.Block.Coinbase)
	require.Equal(t, uint64(3), h.env.Tx.GasPrice.Uint64())
	require.Equal(t, ^uint64(0), h.env.ChainID.Uint64())

	_, err := h.call(t, 1, "chainId(uint256)", new(big.Int).Lsh(big.NewInt(1), 64))
	require.EqualError(t, err, "Chain ID must be less than 2^64 - 1")
	require.Equal(t, ^uint64(0), h.env.ChainID.Uint64())
}

func TestStoreLoad(t *testing.T) {
	t.Parallel()
	slot := [32]byte{31: 1}
	value := [32]byte{31: 0x2a}

	for _, tc := range []struct {
		name string
		addr common.Address
		err  string
	}{
		{name: "precompile 9", addr: common.BytesToAddress([]byte{9}), err: "Store cannot be used on precompile addresses (N < 10)"},
		{name: "zero", addr: common.Address{}, err: "Store cannot be used on precompile addresses (N < 10)"},
		{name: "ten", addr: common.BytesToAddress([]byte{10})},
		{name: "contract", addr: alice},
	} {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			h := newHarness()
			_, err := h.call(t, 1, "store(address,bytes32,bytes32)", tc.addr, slot, value)
			if tc.err != "" {
				require.ErrorContains(t, err, tc.err)
				got, err := h.st.GetState(tc.addr, slot)
				require.NoError(t, err)
				require.Equal(t, common.Hash{}, got)
				exists, err := h.st.Exist(tc.addr)
				require.NoError(t, err)
				require.False(t, exists)
				return
			}
			require.NoError(t, err)
			out := h.mustCall(t, 1, "load(address,bytes32)", tc.addr, slot)
			require.Equal(t, value, unpack(t, "load(address,bytes32)", out)[0])
		})
	}
}

func TestEtchAndDeal(t *testing.T) {
	t.Parallel()
	h := newHarness()
	h.mustCall(t, 1, "etch(address,bytes)", alice, []byte{0x60, 0x00})
	h.mustCall(t, 1, "deal(address,uint256)", bob, big.NewInt(1e18))

	code, err := h.st.GetCode(alice)
	require.NoError(t, err)
	require.Equal(t, []byte{0x60, 0x00}, code)
	bal, err := h.st.GetBalance(bob)
	require.NoError(t, err)
	require.Equal(t, uint256.NewInt(1e18), bal)

	_, err = h.call(t, 1, "etch(address,bytes)", common.BytesToAddress([]byte{1}), []byte{0x00})
	require.ErrorContains(t, err, "Etch cannot be used on precompile addresses")
}

func TestSetNonce(t *testing.T) {
	t.Parallel()
	h := newHarness()
	h.mustCall(t, 1, "setNonce(address,uint64)", alice, uint64(5))

	_, err := h.call(t, 1, "setNonce(address,uint64)", alice, uint64(3))
	require.EqualError(t, err, "New nonce (3) must be strictly equal to or higher than the account's current nonce (5).")
	nonce, err := h.st.GetNonce(alice)
	require.NoError(t, err)
	require.Equal(t, uint64(5), nonce)

	h.mustCall(t, 1, "setNonceUnsafe(address,uint64)", alice, uint64(3))
	nonce, err = h.st.GetNonce(alice)
	require.NoError(t, err)
	require.Equal(t, uint64(3), nonce)
}

func TestResetNonce(t *testing.T) {
	t.Parallel()
	h := newHarness()
	h.mustCall(t, 1, "setNonce(address,uint64)", alice, uint64(9))
	h.mustCall(t, 1, "setNonce(address,uint64)", bob, uint64(9))
	h.mustCall(t, 1, "etch(address,bytes)", bob, []byte{0x00})

	h.mustCall(t, 1, "resetNonce(address)", alice)
	h.mustCall(t, 1, "resetNonce(address)", bob)

	eoa, err := h.st.GetNonce(alice)
	require.NoError(t, err)
	require.Zero(t, eoa)
	contract, err := h.st.GetNonce(bob)
	require.NoError(t, err)
	require.Equal(t, uint64(1), contract)
}

func TestPrankExclusivity(t *testing.T) {
	t.Parallel()
	for _, tc := range []struct {
		name    string
		first   string
		markUse bool
		second  string
		err     string
	}{
		{name: "unused single", first: "prank(address)", second: "prank(address)",
			err: "You cannot overwrite `prank` until it is applied at least once"},
		{name: "unused sticky", first: "startPrank(address)", second: "startPrank(address)",
			err: "You cannot overwrite `prank` until it is applied at least once"},
		{name: "single over sticky", first: "startPrank(address)", markUse: true, second: "prank(address)",
			err: "You cannot override an ongoing prank with a single vm.prank. Use vm.startPrank to override the current prank."},
		{name: "sticky over used sticky", first: "startPrank(address)", markUse: true, second: "startPrank(address)"},
	} {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			h := newHarness()
			h.mustCall(t, 1, tc.first, alice)
			if tc.markUse {
				h.d.Session.Prank.Used = true
			}
			_, err := h.call(t, 1, tc.second, bob)
			if tc.err != "" {
				require.EqualError(t, err, tc.err)
				require.Equal(t, alice, h.d.Session.Prank.NewCaller)
				return
			}
			require.NoError(t, err)
			require.Equal(t, bob, h.d.Session.Prank.NewCaller)
			require.False(t, h.d.Session.Prank.Used)
		})
	}
}

func TestPrankFields(t *testing.T) {
	t.Parallel()
	h := newHarness()
	h.mustCall(t, 2, "prank(address,address)", alice, bob)
	p := h.d.Session.Prank
	require.Equal(t, testContract, p.PrankCaller)
	require.Equal(t, scriptSender, p.PrankOrigin)
	require.Equal(t, alice, p.NewCaller)
	require.Equal(t, bob, *p.NewOrigin)
	require.Equal(t, 2, p.Depth)
	require.True(t, p.SingleCall)

	h.mustCall(t, 2, "stopPrank()")
	require.Nil(t, h.d.Session.Prank)
	_, err := h.call(t, 2, "stopPrank()")
	require.EqualError(t, err, "No prank in progress to stop")
}

func TestPrankBroadcastConflict(t *testing.T) {
	t.Parallel()
	h := newHarness()
	h.mustCall(t, 1, "startPrank(address)", alice)
	_, err := h.call(t, 1, "startBroadcast()")
	require.EqualError(t, err, "You have an active prank. Broadcasting and pranks are not compatible. Disable one or the other")
	require.Nil(t, h.d.Session.Broadcast)
	require.False(t, h.d.Session.CorrectedNonce)

	h = newHarness()
	h.mustCall(t, 1, "startBroadcast(address)", alice)
	_, err = h.call(t, 1, "prank(address)", bob)
	require.ErrorContains(t, err, "You cannot `prank` for a broadcasted transaction")
	_, err = h.call(t, 1, "broadcast()")
	require.EqualError(t, err, "You have an active broadcast already.")
}

func TestNonceCorrectedOnce(t *testing.T) {
	t.Parallel()
	h := newHarness()
	require.NoError(t, h.st.SetNonce(scriptSender, 3))

	h.mustCall(t, 1, "startBroadcast()")
	require.Equal(t, scriptSender, h.d.Session.Broadcast.NewOrigin)
	h.mustCall(t, 1, "stopBroadcast()")
	h.mustCall(t, 1, "broadcast(address)", alice)
	h.mustCall(t, 1, "stopBroadcast()")
	out := h.mustCall(t, 1, "getNonce(address)", scriptSender)

	require.Equal(t, uint64(2), unpack(t, "getNonce(address)", out)[0])
	require.True(t, h.d.Session.CorrectedNonce)

	_, err := h.call(t, 1, "stopBroadcast()")
	require.EqualError(t, err, "No broadcast in progress to stop")
}

func TestDefaultSenderNonceUntouched(t *testing.T) {
	t.Parallel()
	h := newHarness()
	h.env.Tx.Origin = DefaultSender
	require.NoError(t, h.st.SetNonce(DefaultSender, 1))
	h.mustCall(t, 1, "broadcast()")
	nonce, err := h.st.GetNonce(DefaultSender)
	require.NoError(t, err)
	require.Equal(t, uint64(1), nonce)
	require.False(t, h.d.Session.CorrectedNonce)
}

func TestBroadcastWithKey(t *testing.T) {
	t.Parallel()
	h := newHarness()
	h.mustCall(t, 1, "broadcast(uint256)", big.NewInt(1))
	want := common.HexToAddress("0x7E5F4552091A69125d5DfCb7b8C2659029395Bdf")
	require.Equal(t, want, h.d.Session.Broadcast.NewOrigin)
	require.Contains(t, h.d.Session.BroadcastKeys, want)
	require.True(t, h.d.Session.Broadcast.SingleCall)

	h = newHarness()
	_, err := h.call(t, 1, "startBroadcast(uint256)", big.NewInt(0))
	require.EqualError(t, err, "Bad Cheat Code. Private Key cannot be 0.")
}

func TestReadCallers(t *testing.T) {
	t.Parallel()
	read := func(h *harness) []any {
		return unpack(t, "readCallers()", h.mustCall(t, 1, "readCallers()"))
	}

	h := newHarness()
	require.Equal(t, []any{uint8(CallerModeNone), scriptSender, scriptSender}, read(h))

	h.mustCall(t, 1, "prank(address)", alice)
	require.Equal(t, []any{uint8(CallerModePrank), alice, scriptSender}, read(h))

	h = newHarness()
	h.mustCall(t, 1, "startPrank(address,address)", alice, bob)
	require.Equal(t, []any{uint8(CallerModeRecurrentPrank), alice, bob}, read(h))

	h = newHarness()
	h.mustCall(t, 1, "broadcast(address)", alice)
	require.Equal(t, []any{uint8(CallerModeBroadcast), alice, alice}, read(h))

	h = newHarness()
	h.mustCall(t, 1, "startBroadcast(address)", bob)
	require.Equal(t, []any{uint8(CallerModeRecurrentBroadcast), bob, bob}, read(h))
}

func TestAccesses(t *testing.T) {
	t.Parallel()
	h := newHarness()
	s := h.d.Session
	one, two := common.HexToHash("0x01"), common.HexToHash("0x02")

	s.RecordRead(alice, one)
	require.Nil(t, s.Accesses, "nothing is recorded before record()")

	h.mustCall(t, 1, "record()")
	s.RecordRead(alice, one)
	s.RecordWrite(alice, two)
	s.RecordRead(bob, one)

	vals := unpack(t, "accesses(address)", h.mustCall(t, 1, "accesses(address)", alice))
	require.Equal(t, [][32]byte{one, two}, vals[0])
	require.Equal(t, [][32]byte{two}, vals[1])

	vals = unpack(t, "accesses(address)", h.mustCall(t, 1, "accesses(address)", alice))
	require.Empty(t, vals[0])
	require.Empty(t, vals[1])
	require.Len(t, s.Accesses.Reads[bob], 1)
}

func TestRecordedLogs(t *testing.T) {
	t.Parallel()
	h := newHarness()
	s := h.d.Session
	topic := common.HexToHash("0xddf252ad")

	s.RecordLog(alice, []common.Hash{topic}, []byte{1})
	h.mustCall(t, 1, "recordLogs()")
	s.RecordLog(alice, []common.Hash{topic}, []byte{2})
	s.RecordLog(bob, nil, nil)

	vals := unpack(t, "getRecordedLogs()", h.mustCall(t, 1, "getRecordedLogs()"))
	type logTuple struct {
		Topics  [][32]byte
		Data    []byte
		Emitter common.Address
	}
	logs := *abi.ConvertType(vals[0], new([]logTuple)).(*[]logTuple)
	require.Len(t, logs, 2)
	require.Equal(t, [][32]byte{topic}, logs[0].Topics)
	require.Equal(t, []byte{2}, logs[0].Data)
	require.Equal(t, alice, logs[0].Emitter)
	require.Equal(t, bob, logs[1].Emitter)

	require.Empty(t, s.RecordedLogs)
	require.True(t, s.RecordingLogs())
}

func TestBreakpoint(t *testing.T) {
	t.Parallel()
	for _, tc := range []struct {
		char string
		err  string
	}{
		{char: "", err: "Please provide at least one char for the breakpoint"},
		{char: "ab", err: "Provide only one character for the breakpoint"},
		{char: "1", err: "Only alphabetic characters are accepted as breakpoints"},
		{char: "a"},
		{char: "é"},
	} {
		tc := tc
		t.Run(tc.char, func(t *testing.T) {
			t.Parallel()
			h := newHarness()
			_, err := h.call(t, 1, "breakpoint(string)", tc.char)
			if tc.err != "" {
				require.EqualError(t, err, tc.err)
				require.Empty(t, h.d.Session.Breakpoints)
				return
			}
			require.NoError(t, err)
			r := []rune(tc.char)[0]
			require.Equal(t, BreakpointLoc{Address: testContract, PC: 42}, h.d.Session.Breakpoints[r])

			h.mustCall(t, 1, "breakpoint(string,bool)", tc.char, false)
			require.NotContains(t, h.d.Session.Breakpoints, r)
		})
	}
}

func TestGasMetering(t *testing.T) {
	t.Parallel()
	h := newHarness()
	h.mustCall(t, 1, "pauseGasMetering()")
	require.Equal(t, GasMeteringPaused, h.d.Session.GasMetering.Mode)

	h.d.Session.GasMetering = GasMetering{Mode: GasMeteringPausedAt, Gas: 100}
	h.mustCall(t, 1, "pauseGasMetering()")
	require.Equal(t, GasMetering{Mode: GasMeteringPausedAt, Gas: 100}, h.d.Session.GasMetering)

	h.mustCall(t, 1, "resumeGasMetering()")
	require.False(t, h.d.Session.GasMetering.Paused())
}

func TestSnapshotRevertTo(t *testing.T) {
	t.Parallel()
	h := newHarness()
	h.mustCall(t, 1, "deal(address,uint256)", alice, big.NewInt(1))
	id := unpack(t, "snapshot()", h.mustCall(t, 1, "snapshot()"))[0].(*big.Int)
	h.mustCall(t, 1, "deal(address,uint256)", alice, big.NewInt(2))

	ok := unpack(t, "revertTo(uint256)", h.mustCall(t, 1, "revertTo(uint256)", id))[0]
	require.Equal(t, true, ok)
	bal, err := h.st.GetBalance(alice)
	require.NoError(t, err)
	require.Equal(t, uint64(1), bal.Uint64())

	ok = unpack(t, "revertTo(uint256)", h.mustCall(t, 1, "revertTo(uint256)", big.NewInt(99)))[0]
	require.Equal(t, false, ok)
}

func TestKeysAndLabels(t *testing.T) {
	t.Parallel()
	h := newHarness()
	key := big.NewInt(0xbeef)
	addr := unpack(t, "addr(uint256)", h.mustCall(t, 1, "addr(uint256)", key))[0].(common.Address)

	digest := crypto.Keccak256Hash([]byte("hello"))
	vals := unpack(t, "sign(uint256,bytes32)", h.mustCall(t, 1, "sign(uint256,bytes32)", key, [32]byte(digest)))
	v, r, s := vals[0].(uint8), vals[1].([32]byte), vals[2].([32]byte)
	require.Contains(t, []uint8{27, 28}, v)

	sig := append(append(r[:], s[:]...), v-27)
	pub, err := crypto.SigToPub(digest[:], sig)
	require.NoError(t, err)
	require.Equal(t, addr, crypto.PubkeyToAddress(*pub))

	h.mustCall(t, 1, "label(address,string)", addr, "signer")
	require.Equal(t, "signer", h.d.Session.Labels[addr])
}

func TestMockedCalls(t *testing.T) {
	t.Parallel()
	h := newHarness()
	sel := []byte{0x70, 0xa0, 0x82, 0x31}
	full := append(append([]byte{}, sel...), common.LeftPadBytes(bob.Bytes(), 32)...)

	h.mustCall(t, 1, "mockCall(address,bytes,bytes)", alice, sel, []byte{1})
	h.mustCall(t, 1, "mockCall(address,bytes,bytes)", alice, full, []byte{2})

	ret, ok := h.d.Session.MockedReturn(alice, full)
	require.True(t, ok)
	require.Equal(t, []byte{2}, ret)

	other := append(append([]byte{}, sel...), common.LeftPadBytes(alice.Bytes(), 32)...)
	ret, ok = h.d.Session.MockedReturn(alice, other)
	require.True(t, ok)
	require.Equal(t, []byte{1}, ret)

	_, ok = h.d.Session.MockedReturn(bob, full)
	require.False(t, ok)

	h.mustCall(t, 1, "clearMockedCalls()")
	_, ok = h.d.Session.MockedReturn(alice, full)
	require.False(t, ok)
}

func TestExpectations(t *testing.T) {
	t.Parallel()
	h := newHarness()
	h.mustCall(t, 1, "expectRevert(bytes4)", [4]byte{0xde, 0xad, 0xbe, 0xef})
	require.Equal(t, &ExpectedRevert{Reason: []byte{0xde, 0xad, 0xbe, 0xef}, Partial: true, Depth: 1}, h.d.Session.ExpectedRevert)
	_, err := h.call(t, 1, "expectRevert()")
	require.EqualError(t, err, "you must call another function prior to expecting a second revert")

	h.mustCall(t, 1, "expectCall(address,bytes)", alice, []byte{0x01})
	h.mustCall(t, 1, "expectCall(address,bytes)", bob, []byte{})
	h.d.Session.ObserveCall(alice, []byte{0x01, 0x02})
	unmet := h.d.Session.UnmetCalls()
	require.Len(t, unmet, 1)
	require.Equal(t, bob, unmet[0].Target)
	require.Empty(t, h.d.Session.ExpectedCalls)
}

func TestFFIDisabled(t *testing.T) {
	t.Parallel()
	h := newHarness()
	_, err := h.call(t, 1, "ffi(string[])", []string{"echo", "0x01"})
	require.True(t, strings.HasPrefix(err.Error(), "ffi disabled"))
}

func TestEncodeRevert(t *testing.T) {
	t.Parallel()
	data := EncodeRevert("boom")
	require.Equal(t, "0x08c379a0", hexutil.Encode(data[:4]))
}

func TestCallerModeValues(t *testing.T) {
	t.Parallel()
	for mode, want := range map[CallerMode]uint8{
		CallerModeNone:               0,
		CallerModeBroadcast:          1,
		CallerModeRecurrentBroadcast: 2,
		CallerModePrank:              3,
		CallerModeRecurrentPrank:     4,
	} {
		require.Equal(t, want, uint8(mode))
	}
}

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
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"os/exec"
	"strings"
	"unicode"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"github.com/ledgerwatch/log/v3"

	"github.com/erigontech/forgevm/core/state"
	"github.com/erigontech/forgevm/core/vm"
)

// Error is a cheat usage error. The interceptor turns it into revert data.
type Error string

func (e Error) Error() string { return string(e) }

func errorf(format string, args ...any) error { return Error(fmt.Sprintf(format, args...)) }

// Context describes the frame a cheat is called from.
type Context struct {
	// Caller is the contract that called the cheat address.
	Caller common.Address
	// Depth is the depth the cheat frame was entered at.
	Depth int
	// PC of the call instruction inside Caller.
	PC    uint64
	Env   *vm.Env
	State state.JournaledState
}

// Dispatcher applies decoded cheats to a session.
type Dispatcher struct {
	Session   *State
	EnableFFI bool
	Logger    log.Logger
}

func NewDispatcher(session *State, enableFFI bool, logger log.Logger) *Dispatcher {
	if logger == nil {
		logger = log.New("component", "cheatcodes")
	}
	return &Dispatcher{Session: session, EnableFFI: enableFFI, Logger: logger}
}

// Apply decodes input and runs the cheat. The returned bytes are the ABI
// encoded outputs of the cheat.
func (d *Dispatcher) Apply(ctx *Context, input []byte) (out []byte, err error) {
	call, method, err := Decode(input)
	if err != nil {
		return nil, Error(err.Error())
	}
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, errorf("cheat %s panicked: %v", method.Sig, r)
		}
		if err != nil {
			d.Logger.Debug("cheat failed", "sig", method.Sig, "depth", ctx.Depth, "err", err)
		} else {
			d.Logger.Trace("cheat applied", "sig", method.Sig, "depth", ctx.Depth)
		}
	}()
	return d.apply(ctx, method, call)
}

func (d *Dispatcher) apply(ctx *Context, method *abi.Method, call Call) ([]byte, error) {
	s := d.Session
	env := ctx.Env
	st := ctx.State

	switch c := call.(type) {
	case Warp:
		env.Block.Time.SetFromBig(c.Timestamp)
	case Roll:
		env.Block.BlockNumber.SetFromBig(c.Number)
	case Fee:
		env.Block.BaseFee.SetFromBig(c.BaseFee)
	case Difficulty:
		env.Block.Difficulty.SetFromBig(c.Value)
	case Prevrandao:
		env.Block.PrevRandao = c.Value
	case Coinbase:
		env.Block.Coinbase = c.Address
	case ChainID:
		if !c.ID.IsUint64() {
			return nil, Error("Chain ID must be less than 2^64 - 1")
		}
		env.ChainID.SetUint64(c.ID.Uint64())
	case TxGasPrice:
		env.Tx.GasPrice.SetFromBig(c.Price)

	case Store:
		if isPotentialPrecompile(c.Target) {
			return nil, precompileError("Store")
		}
		if err := st.LoadAccount(c.Target); err != nil {
			return nil, err
		}
		st.Touch(c.Target)
		if err := st.SetState(c.Target, c.Slot, c.Value); err != nil {
			return nil, err
		}
	case Load:
		if isPotentialPrecompile(c.Target) {
			return nil, precompileError("Load")
		}
		if err := st.LoadAccount(c.Target); err != nil {
			return nil, err
		}
		val, err := st.GetState(c.Target, c.Slot)
		if err != nil {
			return nil, err
		}
		return method.Outputs.Pack([32]byte(val))
	case Etch:
		if isPotentialPrecompile(c.Target) {
			return nil, precompileError("Etch")
		}
		if err := st.LoadAccount(c.Target); err != nil {
			return nil, err
		}
		st.Touch(c.Target)
		if err := st.SetCode(c.Target, common.CopyBytes(c.Code)); err != nil {
			return nil, err
		}
	case Deal:
		st.Touch(c.Target)
		if err := st.SetBalance(c.Target, uint256.MustFromBig(c.Balance)); err != nil {
			return nil, err
		}

	case GetNonce:
		if err := d.correctSenderNonce(ctx); err != nil {
			return nil, err
		}
		nonce, err := st.GetNonce(c.Target)
		if err != nil {
			return nil, err
		}
		return method.Outputs.Pack(nonce)
	case SetNonce:
		current, err := st.GetNonce(c.Target)
		if err != nil {
			return nil, err
		}
		if !c.Unsafe && c.Nonce < current {
			return nil, errorf("New nonce (%d) must be strictly equal to or higher than the account's current nonce (%d).", c.Nonce, current)
		}
		if err := st.SetNonce(c.Target, c.Nonce); err != nil {
			return nil, err
		}
	case ResetNonce:
		hash, err := st.GetCodeHash(c.Target)
		if err != nil {
			return nil, err
		}
		var nonce uint64
		if hash != (common.Hash{}) && hash != types.EmptyCodeHash {
			nonce = 1
		}
		if err := st.SetNonce(c.Target, nonce); err != nil {
			return nil, err
		}

	case StartPrank:
		return nil, d.startPrank(ctx, c)
	case StopPrank:
		if s.Prank == nil {
			return nil, Error("No prank in progress to stop")
		}
		s.Prank = nil
	case StartBroadcast:
		return nil, d.startBroadcast(ctx, c)
	case StopBroadcast:
		if s.Broadcast == nil {
			return nil, Error("No broadcast in progress to stop")
		}
		s.Broadcast = nil
	case ReadCallers:
		mode, sender, origin := s.Callers(env.Tx.Origin)
		return method.Outputs.Pack(uint8(mode), sender, origin)

	case Record:
		s.Accesses = newRecordedAccesses()
	case Accesses:
		reads, writes := [][32]byte{}, [][32]byte{}
		if s.Accesses != nil {
			reads = hashesToWords(s.Accesses.Reads[c.Target])
			writes = hashesToWords(s.Accesses.Writes[c.Target])
			delete(s.Accesses.Reads, c.Target)
			delete(s.Accesses.Writes, c.Target)
		}
		return method.Outputs.Pack(reads, writes)
	case RecordLogs:
		s.recordLogs = true
		s.RecordedLogs = nil
	case GetRecordedLogs:
		type logTuple struct {
			Topics  [][32]byte
			Data    []byte
			Emitter common.Address
		}
		out := []logTuple{}
		for _, l := range s.RecordedLogs {
			out = append(out, logTuple{Topics: hashesToWords(l.Topics), Data: l.Data, Emitter: l.Emitter})
		}
		if s.recordLogs {
			s.RecordedLogs = nil
		}
		return method.Outputs.Pack(out)

	case Breakpoint:
		ch, err := breakpointChar(c.Char)
		if err != nil {
			return nil, err
		}
		if c.Enable {
			s.Breakpoints[ch] = BreakpointLoc{Address: ctx.Caller, PC: ctx.PC}
		} else {
			delete(s.Breakpoints, ch)
		}
	case PauseGasMetering:
		if s.GasMetering.Mode == GasMeteringNormal {
			s.GasMetering = GasMetering{Mode: GasMeteringPaused}
		}
	case ResumeGasMetering:
		s.GasMetering = GasMetering{}

	case Snapshot:
		return method.Outputs.Pack(big.NewInt(int64(st.Snapshot())))
	case RevertTo:
		ok := c.ID.IsInt64() && st.RevertToSnapshot(int(c.ID.Int64()))
		return method.Outputs.Pack(ok)
	case Label:
		s.Labels[c.Target] = c.Label
	case Addr:
		key, err := parseKey(c.Key)
		if err != nil {
			return nil, err
		}
		return method.Outputs.Pack(crypto.PubkeyToAddress(key.PublicKey))
	case Sign:
		key, err := parseKey(c.Key)
		if err != nil {
			return nil, err
		}
		sig, err := crypto.Sign(c.Digest[:], key)
		if err != nil {
			return nil, errorf("sign: %v", err)
		}
		var r, ss [32]byte
		copy(r[:], sig[:32])
		copy(ss[:], sig[32:64])
		return method.Outputs.Pack(sig[64]+27, r, ss)

	case MockCall:
		if s.MockedCalls[c.Target] == nil {
			s.MockedCalls[c.Target] = map[string][]byte{}
		}
		s.MockedCalls[c.Target][string(c.Data)] = common.CopyBytes(c.Return)
	case ClearMockedCalls:
		s.MockedCalls = map[common.Address]map[string][]byte{}
	case ExpectRevert:
		if s.ExpectedRevert != nil {
			return nil, Error("you must call another function prior to expecting a second revert")
		}
		s.ExpectedRevert = &ExpectedRevert{Reason: common.CopyBytes(c.Reason), Partial: c.Partial, Depth: ctx.Depth}
	case ExpectCall:
		s.ExpectedCalls = append(s.ExpectedCalls, &ExpectedCall{Target: c.Target, Data: common.CopyBytes(c.Data)})
	case FFI:
		data, err := d.ffi(c.Args)
		if err != nil {
			return nil, err
		}
		return method.Outputs.Pack(data)

	default:
		return nil, errorf("cheat %s is not implemented", method.Sig)
	}
	return []byte{}, nil
}

func (d *Dispatcher) startPrank(ctx *Context, c StartPrank) error {
	s := d.Session
	if s.Broadcast != nil {
		return Error("You cannot `prank` for a broadcasted transaction. Pass the desired tx.origin into the broadcast cheatcode call")
	}
	if p := s.Prank; p != nil {
		if !p.Used {
			return Error("You cannot overwrite `prank` until it is applied at least once")
		}
		if p.SingleCall != c.Single {
			return Error("You cannot override an ongoing prank with a single vm.prank. Use vm.startPrank to override the current prank.")
		}
	}
	s.Prank = &Prank{
		PrankCaller: ctx.Caller,
		PrankOrigin: ctx.Env.Tx.Origin,
		NewCaller:   c.Caller,
		NewOrigin:   c.Origin,
		Depth:       ctx.Depth,
		SingleCall:  c.Single,
	}
	return nil
}

func (d *Dispatcher) startBroadcast(ctx *Context, c StartBroadcast) error {
	s := d.Session
	if s.Prank != nil {
		return Error("You have an active prank. Broadcasting and pranks are not compatible. Disable one or the other")
	}
	if s.Broadcast != nil {
		return Error("You have an active broadcast already.")
	}
	signer := ctx.Env.Tx.Origin
	switch {
	case c.Key != nil:
		key, err := parseKey(c.Key)
		if err != nil {
			return err
		}
		signer = crypto.PubkeyToAddress(key.PublicKey)
		s.BroadcastKeys[signer] = key
	case c.Signer != nil:
		signer = *c.Signer
	}
	if err := d.correctSenderNonce(ctx); err != nil {
		return err
	}
	s.Broadcast = &Broadcast{
		NewOrigin:      signer,
		OriginalCaller: ctx.Caller,
		OriginalOrigin: ctx.Env.Tx.Origin,
		Depth:          ctx.Depth,
		SingleCall:     c.Single,
	}
	return nil
}

// correctSenderNonce undoes, once per session, the nonce bump the script
// sender got from deploying the script contract.
func (d *Dispatcher) correctSenderNonce(ctx *Context) error {
	s := d.Session
	sender := ctx.Env.Tx.Origin
	if s.CorrectedNonce || sender == DefaultSender {
		return nil
	}
	nonce, err := ctx.State.GetNonce(sender)
	if err != nil {
		return err
	}
	if nonce > 0 {
		nonce--
	}
	if err := ctx.State.SetNonce(sender, nonce); err != nil {
		return err
	}
	s.CorrectedNonce = true
	return nil
}

func (d *Dispatcher) ffi(args []string) ([]byte, error) {
	if !d.EnableFFI {
		return nil, Error("ffi disabled: run again with --ffi if you want to allow tests to call external scripts")
	}
	if len(args) == 0 {
		return nil, Error("ffi requires at least one argument")
	}
	d.Logger.Info("running ffi command", "cmd", args[0], "args", len(args)-1)
	stdout, err := exec.Command(args[0], args[1:]...).Output()
	if err != nil {
		return nil, errorf("ffi %s: %v", args[0], err)
	}
	trimmed := strings.TrimSpace(string(stdout))
	if !strings.HasPrefix(trimmed, "0x") {
		trimmed = "0x" + trimmed
	}
	data, err := hexutil.Decode(trimmed)
	if err != nil {
		return nil, errorf("ffi output is not hex: %v", err)
	}
	return data, nil
}

// isPotentialPrecompile reports whether addr is one of the low addresses
// reserved for precompiles.
func isPotentialPrecompile(addr common.Address) bool {
	for _, b := range addr[:common.AddressLength-1] {
		if b != 0 {
			return false
		}
	}
	return addr[common.AddressLength-1] < 10
}

func precompileError(name string) error {
	return errorf("%s cannot be used on precompile addresses (N < 10). Please use an address bigger than 10 instead", name)
}

func breakpointChar(s string) (rune, error) {
	runes := []rune(s)
	switch {
	case len(runes) == 0:
		return 0, Error("Please provide at least one char for the breakpoint")
	case len(runes) > 1:
		return 0, Error("Provide only one character for the breakpoint")
	case !unicode.IsLetter(runes[0]):
		return 0, Error("Only alphabetic characters are accepted as breakpoints")
	}
	return runes[0], nil
}

func parseKey(k *big.Int) (*ecdsa.PrivateKey, error) {
	if k.Sign() == 0 {
		return nil, Error("Bad Cheat Code. Private Key cannot be 0.")
	}
	key, err := crypto.ToECDSA(common.LeftPadBytes(k.Bytes(), 32))
	if err != nil {
		return nil, errorf("invalid private key: %v", err)
	}
	return key, nil
}

func hashesToWords(hs []common.Hash) [][32]byte {
	out := make([][32]byte, len(hs))
	for i, h := range hs {
		out[i] = h
	}
	return out
}

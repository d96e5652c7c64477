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

package executor

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	gethvm "github.com/ethereum/go-ethereum/core/vm"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"github.com/ledgerwatch/log/v3"

	"github.com/erigontech/forgevm/core/state"
	"github.com/erigontech/forgevm/core/vm"
	"github.com/erigontech/forgevm/eth/calltracer"
	"github.com/erigontech/forgevm/execution/cheatcodes"
)

// substateGuard closes a substate exactly once.
type substateGuard struct {
	st   state.JournaledState
	done bool
}

func enterSubstate(st state.JournaledState) *substateGuard {
	st.EnterSubstate()
	return &substateGuard{st: st}
}

func (g *substateGuard) exit(commit bool) {
	if g.done {
		return
	}
	g.done = true
	g.st.ExitSubstate(commit)
}

// frame is the bookkeeping of one open call or create.
type frame struct {
	kind        vm.CallKind
	depth       int
	cheat       bool
	gas         uint64
	traceIdx    int
	parentTrace int
	guard       *substateGuard
}

// Interceptor sits between the interpreter and the journaled state. Every
// message call and creation passes through it, which is where traces are
// recorded and cheats are applied.
type Interceptor struct {
	cfg         *Config
	st          state.JournaledState
	env         *vm.Env
	interp      vm.Interpreter
	session     *cheatcodes.State
	cheats      *cheatcodes.Dispatcher
	precompiles map[common.Address]vm.PrecompiledContract
	logger      log.Logger

	arena    *calltracer.CallTraceArena
	traceIdx int
	scopes   []*vm.ScopeContext
	seq      uint64
	// frozen holds the gas each running scope had when paused metering first
	// saw it.
	frozen map[*vm.ScopeContext]uint64
}

var _ vm.Host = (*Interceptor)(nil)

func NewInterceptor(cfg *Config, st state.JournaledState, env *vm.Env, interp vm.Interpreter, session *cheatcodes.State, logger log.Logger) *Interceptor {
	if logger == nil {
		logger = log.New("component", "interceptor")
	}
	in := &Interceptor{
		cfg:         cfg,
		st:          st,
		env:         env,
		interp:      interp,
		session:     session,
		cheats:      cheatcodes.NewDispatcher(session, cfg.EnableFFI, logger),
		precompiles: vm.Precompiles(cfg.Precompiles),
		logger:      logger,
		frozen:      map[*vm.ScopeContext]uint64{},
	}
	if cfg.Tracing {
		in.arena = calltracer.NewArena()
	}
	return in
}

// Arena returns the recorded call tree, nil when tracing is off.
func (in *Interceptor) Arena() *calltracer.CallTraceArena { return in.arena }

func (in *Interceptor) currentScope() *vm.ScopeContext {
	if len(in.scopes) == 0 {
		return nil
	}
	return in.scopes[len(in.scopes)-1]
}

func (in *Interceptor) Env() *vm.Env { return in.env }

func (in *Interceptor) Depth() int { return in.st.Depth() }

// Call runs a message call on behalf of the current frame.
func (in *Interceptor) Call(p vm.CallParams) ([]byte, uint64, error) {
	gas := p.Gas
	parent := in.currentScope()
	if parent != nil {
		gas = vm.CallGas(parent.Gas, p.Gas)
		parent.Gas -= gas
	}
	gas = vm.WithStipend(p.Kind, gas, p.Value)
	ret, leftOver, err := in.call(p, gas)
	if parent != nil {
		parent.Gas += leftOver
	}
	return ret, leftOver, err
}

// Create deploys a contract on behalf of the current frame.
func (in *Interceptor) Create(p vm.CreateParams) ([]byte, common.Address, uint64, error) {
	gas := p.Gas
	parent := in.currentScope()
	if parent != nil {
		gas = vm.CallGas(parent.Gas, p.Gas)
		parent.Gas -= gas
	}
	ret, addr, leftOver, err := in.create(p, gas)
	if parent != nil {
		parent.Gas += leftOver
	}
	return ret, addr, leftOver, err
}

func (in *Interceptor) call(p vm.CallParams, gas uint64) (ret []byte, leftOver uint64, err error) {
	depth := in.st.Depth()
	value := p.Value
	if value == nil {
		value = new(uint256.Int)
	}
	cheat := p.Target == cheatcodes.Address
	caller := p.Caller
	var overrideErr error
	if !cheat && p.Kind != vm.DELEGATECALL {
		caller, overrideErr = in.overrideCaller(p.Kind, caller, &p.Target, p.Input, value, depth)
	}

	fr := in.openFrame(p.Kind, depth, caller, p.Target, p.Input, value, gas, cheat)
	defer in.closeFrame(fr)

	ret, leftOver, err = in.runCall(fr, p, caller, value, overrideErr)
	return in.finish(fr, ret, leftOver, err)
}

func (in *Interceptor) runCall(fr *frame, p vm.CallParams, caller common.Address, value *uint256.Int, overrideErr error) ([]byte, uint64, error) {
	gas := fr.gas
	if overrideErr != nil {
		if errors.Is(overrideErr, state.ErrBackend) {
			return nil, 0, overrideErr
		}
		return cheatcodes.EncodeRevert(overrideErr.Error()), gas, vm.ErrExecutionReverted
	}
	if fr.depth > in.cfg.CallStackLimit {
		return nil, gas, vm.ErrDepth
	}

	var (
		ok  = true
		err error
	)
	switch p.Kind {
	case vm.CALL:
		ok, err = state.Transfer(in.st, caller, p.Target, value)
	case vm.CALLCODE:
		ok, err = state.Transfer(in.st, caller, caller, value)
	default:
		err = in.st.LoadAccount(p.Target)
	}
	if err != nil {
		return nil, 0, err
	}
	if !ok {
		return nil, gas, vm.ErrInsufficientBalance
	}

	if fr.cheat {
		out, err := in.cheats.Apply(&cheatcodes.Context{
			Caller: p.Caller,
			Depth:  fr.depth,
			PC:     p.PC,
			Env:    in.env,
			State:  in.st,
		}, p.Input)
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		cheatsTotal.WithLabelValues(cheatcodes.Name(p.Input), outcome).Inc()
		if err != nil {
			if errors.Is(err, state.ErrBackend) {
				return nil, 0, err
			}
			return cheatcodes.EncodeRevert(err.Error()), gas, vm.ErrExecutionReverted
		}
		return out, gas, nil
	}

	in.session.ObserveCall(p.Target, p.Input)
	if out, ok := in.session.MockedReturn(p.Target, p.Input); ok {
		return common.CopyBytes(out), gas, nil
	}
	if pc, ok := in.precompiles[p.Target]; ok {
		return vm.RunPrecompiledContract(pc, p.Input, gas)
	}

	code, err := in.st.GetCode(p.Target)
	if err != nil {
		return nil, 0, err
	}
	if len(code) == 0 {
		return nil, gas, nil
	}
	codeHash, err := in.st.GetCodeHash(p.Target)
	if err != nil {
		return nil, 0, err
	}

	sender, address, scopeValue := caller, p.Target, value
	parent := in.currentScope()
	switch p.Kind {
	case vm.CALLCODE:
		address = caller
	case vm.DELEGATECALL:
		address = p.Caller
		if parent != nil {
			sender, scopeValue = parent.Caller(), parent.CallValue()
		}
	}
	scope := vm.NewScope(sender, address, p.Target, scopeValue, gas)
	scope.Input = p.Input
	scope.Code = code
	scope.CodeHash = codeHash
	scope.Depth = fr.depth
	scope.ReadOnly = p.Kind == vm.STATICCALL || (parent != nil && parent.ReadOnly)

	ret, err := in.run(scope)
	return ret, scope.Gas, err
}

func (in *Interceptor) create(p vm.CreateParams, gas uint64) (ret []byte, addr common.Address, leftOver uint64, err error) {
	depth := in.st.Depth()
	value := p.Value
	if value == nil {
		value = new(uint256.Int)
	}
	caller, preErr := in.overrideCaller(p.Kind, p.Caller, nil, p.InitCode, value, depth)

	// Checks and the creator's nonce bump happen in the creator's substate.
	if preErr == nil {
		addr, preErr = in.prepareCreate(p, caller, value, depth)
	}

	fr := in.openFrame(p.Kind, depth, caller, addr, p.InitCode, value, gas, false)
	defer in.closeFrame(fr)

	if preErr != nil {
		ret, leftOver, err = nil, gas, preErr
	} else {
		ret, leftOver, err = in.runCreate(fr, p, caller, addr, value)
	}
	ret, leftOver, err = in.finish(fr, ret, leftOver, err)
	if err == nil && in.arena != nil {
		in.arena.Node(fr.traceIdx).Trace.Created = true
	}
	return ret, addr, leftOver, err
}

func (in *Interceptor) prepareCreate(p vm.CreateParams, caller common.Address, value *uint256.Int, depth int) (common.Address, error) {
	nonce, err := in.st.GetNonce(caller)
	if err != nil {
		return common.Address{}, err
	}
	var addr common.Address
	if p.Kind == vm.CREATE2 {
		salt := p.Salt
		if salt == nil {
			salt = new(uint256.Int)
		}
		addr = crypto.CreateAddress2(caller, salt.Bytes32(), crypto.Keccak256(p.InitCode))
	} else {
		addr = crypto.CreateAddress(caller, nonce)
	}

	if depth > in.cfg.CallStackLimit {
		return addr, vm.ErrDepth
	}
	if len(p.InitCode) > vm.MaxInitCodeSize {
		return addr, vm.ErrMaxInitCodeSizeExceeded
	}
	balance, err := in.st.GetBalance(caller)
	if err != nil {
		return addr, err
	}
	if balance.Lt(value) {
		return addr, vm.ErrInsufficientBalance
	}
	if nonce+1 < nonce {
		return addr, vm.ErrNonceUintOverflow
	}
	return addr, in.st.SetNonce(caller, nonce+1)
}

func (in *Interceptor) runCreate(fr *frame, p vm.CreateParams, caller, addr common.Address, value *uint256.Int) ([]byte, uint64, error) {
	gas := fr.gas
	nonce, err := in.st.GetNonce(addr)
	if err != nil {
		return nil, 0, err
	}
	codeHash, err := in.st.GetCodeHash(addr)
	if err != nil {
		return nil, 0, err
	}
	hasStorage, err := in.st.HasStorage(addr)
	if err != nil {
		return nil, 0, err
	}
	if nonce != 0 || (codeHash != (common.Hash{}) && codeHash != types.EmptyCodeHash) || hasStorage {
		return nil, 0, vm.ErrContractAddressCollision
	}

	if err := in.st.CreateAccount(addr); err != nil {
		return nil, 0, err
	}
	if err := in.st.SetNonce(addr, 1); err != nil {
		return nil, 0, err
	}
	if ok, err := state.Transfer(in.st, caller, addr, value); err != nil {
		return nil, 0, err
	} else if !ok {
		return nil, gas, vm.ErrInsufficientBalance
	}
	if len(p.InitCode) == 0 {
		return nil, gas, nil
	}

	scope := vm.NewScope(caller, addr, addr, value, gas)
	scope.Code = p.InitCode
	scope.CodeHash = crypto.Keccak256Hash(p.InitCode)
	scope.Depth = fr.depth
	ret, err := in.run(scope)
	if err != nil {
		return ret, scope.Gas, err
	}

	switch {
	case len(ret) > vm.MaxCodeSize:
		return nil, 0, vm.ErrMaxCodeSizeExceeded
	case len(ret) > 0 && ret[0] == 0xEF:
		return nil, 0, vm.ErrInvalidCode
	}
	if !in.session.GasMetering.Paused() && !scope.UseGas(uint64(len(ret))*vm.CreateDataGas) {
		return nil, 0, vm.ErrCodeStoreOutOfGas
	}
	if err := in.st.SetCode(addr, ret); err != nil {
		return nil, 0, err
	}
	return ret, scope.Gas, nil
}

func (in *Interceptor) run(scope *vm.ScopeContext) ([]byte, error) {
	in.scopes = append(in.scopes, scope)
	defer func() { in.scopes = in.scopes[:len(in.scopes)-1] }()
	ret, err := in.interp.Run(scope, in)
	if gas, ok := in.frozen[scope]; ok {
		// the last instruction was charged after its step froze the gas
		if in.session.GasMetering.Paused() {
			scope.Gas = gas
		}
		delete(in.frozen, scope)
	}
	return ret, err
}

// meterStep keeps the gas of scope constant while metering is paused. It runs
// before the instruction is charged, so every instruction after the pause
// starts from the frozen amount.
func (in *Interceptor) meterStep(scope *vm.ScopeContext) {
	gm := &in.session.GasMetering
	if !gm.Paused() {
		clear(in.frozen)
		return
	}
	if gm.Mode == cheatcodes.GasMeteringPaused {
		*gm = cheatcodes.GasMetering{Mode: cheatcodes.GasMeteringPausedAt, Gas: scope.Gas}
	}
	if gas, ok := in.frozen[scope]; ok {
		scope.Gas = gas
		return
	}
	in.frozen[scope] = scope.Gas
}

// overrideCaller applies an active prank or broadcast to a call or create
// made by caller. target is nil for creations.
func (in *Interceptor) overrideCaller(kind vm.CallKind, caller common.Address, target *common.Address, input []byte, value *uint256.Int, depth int) (common.Address, error) {
	s := in.session
	if p := s.Prank; p != nil && depth >= p.Depth && caller == p.PrankCaller {
		applied := false
		if depth == p.Depth {
			caller = p.NewCaller
			applied = true
		}
		if p.NewOrigin != nil {
			in.env.Tx.Origin = *p.NewOrigin
			applied = true
		}
		if applied {
			p.Used = true
		}
	}

	b := s.Broadcast
	if b == nil || depth != b.Depth || caller != b.OriginalCaller {
		return caller, nil
	}
	if kind == vm.STATICCALL {
		if b.SingleCall {
			return caller, cheatcodes.Error("`staticcall`s are not allowed after `broadcast`; use `startBroadcast` instead")
		}
	} else {
		nonce, err := in.st.GetNonce(b.NewOrigin)
		if err != nil {
			return caller, err
		}
		tx := cheatcodes.BroadcastableTransaction{
			From:  b.NewOrigin,
			Value: value.Clone(),
			Data:  common.CopyBytes(input),
			Nonce: nonce,
		}
		if target != nil {
			to := *target
			tx.To = &to
			// creations bump the nonce themselves
			if err := in.st.SetNonce(b.NewOrigin, nonce+1); err != nil {
				return caller, err
			}
		}
		s.BroadcastableTxs = append(s.BroadcastableTxs, tx)
	}
	in.env.Tx.Origin = b.NewOrigin
	return b.NewOrigin, nil
}

// restoreCaller undoes per-call prank and broadcast effects once a frame at
// their depth returns.
func (in *Interceptor) restoreCaller(depth int) {
	s := in.session
	if p := s.Prank; p != nil && depth == p.Depth {
		in.env.Tx.Origin = p.PrankOrigin
		if p.SingleCall && p.Used {
			s.Prank = nil
		}
	}
	if b := s.Broadcast; b != nil && depth == b.Depth {
		in.env.Tx.Origin = b.OriginalOrigin
		if b.SingleCall {
			s.Broadcast = nil
		}
	}
}

func (in *Interceptor) openFrame(kind vm.CallKind, depth int, caller, target common.Address, input []byte, value *uint256.Int, gas uint64, cheat bool) *frame {
	fr := &frame{kind: kind, depth: depth, cheat: cheat, gas: gas, parentTrace: in.traceIdx}
	if in.arena != nil {
		fr.traceIdx = in.arena.PushTrace(0, calltracer.CallTrace{
			Depth:   depth,
			Kind:    kind,
			Caller:  caller,
			Address: target,
			Value:   value.Clone(),
			Data:    common.CopyBytes(input),
		})
		in.traceIdx = fr.traceIdx
	}
	fr.guard = enterSubstate(in.st)
	return fr
}

func (in *Interceptor) closeFrame(fr *frame) {
	fr.guard.exit(false)
	in.traceIdx = fr.parentTrace
}

// finish maps the raw outcome of a frame onto its final result, settles the
// substate and closes the trace.
func (in *Interceptor) finish(fr *frame, ret []byte, leftOver uint64, err error) ([]byte, uint64, error) {
	if errors.Is(err, state.ErrBackend) {
		err = vm.Fatal(err)
	}
	raw := vm.Classify(err)
	if raw != vm.ExitSucceed && !returnsGas(err) {
		leftOver = 0
	}

	if !fr.cheat && raw != vm.ExitFatal {
		ret, err = in.checkExpectedRevert(fr, ret, err)
		if fr.depth == 0 {
			ret, err = in.checkExpectedCalls(ret, err)
		}
	}
	status := vm.Classify(err)
	fr.guard.exit(raw == vm.ExitSucceed && status == vm.ExitSucceed)

	var gasCost uint64
	if !fr.cheat && leftOver < fr.gas {
		gasCost = fr.gas - leftOver
	}
	if in.arena != nil {
		in.arena.FillTrace(fr.traceIdx, status == vm.ExitSucceed, ret, gasCost, status)
	}
	framesTotal.WithLabelValues(fr.kind.String(), status.String()).Inc()
	if !fr.cheat {
		in.restoreCaller(fr.depth)
	}
	switch status {
	case vm.ExitSucceed:
	case vm.ExitFatal:
		in.logger.Warn("frame aborted", "kind", fr.kind, "depth", fr.depth, "err", err)
	default:
		in.logger.Debug("frame failed", "kind", fr.kind, "depth", fr.depth, "status", status, "err", err)
	}
	return ret, leftOver, err
}

func returnsGas(err error) bool {
	return errors.Is(err, vm.ErrExecutionReverted) ||
		errors.Is(err, vm.ErrDepth) ||
		errors.Is(err, vm.ErrInsufficientBalance) ||
		errors.Is(err, vm.ErrNonceUintOverflow)
}

func (in *Interceptor) checkExpectedRevert(fr *frame, ret []byte, err error) ([]byte, error) {
	exp := in.session.ExpectedRevert
	if exp == nil || fr.depth > exp.Depth {
		return ret, err
	}
	in.session.ExpectedRevert = nil
	if err == nil {
		return cheatcodes.EncodeRevert("next call did not revert as expected"), vm.ErrExecutionReverted
	}
	if len(exp.Reason) == 0 {
		return []byte{}, nil
	}
	if len(ret) == 0 {
		return cheatcodes.EncodeRevert("call reverted as expected, but without data"), vm.ErrExecutionReverted
	}
	if revertMatches(exp, ret) {
		return []byte{}, nil
	}
	msg := fmt.Sprintf("Error != expected error: %s != %s", describeRevert(ret), describeRevert(exp.Reason))
	return cheatcodes.EncodeRevert(msg), vm.ErrExecutionReverted
}

func revertMatches(exp *cheatcodes.ExpectedRevert, ret []byte) bool {
	if exp.Partial {
		return bytes.HasPrefix(ret, exp.Reason)
	}
	if bytes.Equal(ret, exp.Reason) {
		return true
	}
	reason, err := abi.UnpackRevert(ret)
	return err == nil && reason == string(exp.Reason)
}

func describeRevert(data []byte) string {
	if reason, err := abi.UnpackRevert(data); err == nil {
		return reason
	}
	if utf8.Valid(data) && !strings.ContainsFunc(string(data), func(r rune) bool { return !unicode.IsPrint(r) }) {
		return string(data)
	}
	return hexutil.Encode(data)
}

func (in *Interceptor) checkExpectedCalls(ret []byte, err error) ([]byte, error) {
	unmet := in.session.UnmetCalls()
	if err != nil || len(unmet) == 0 {
		return ret, err
	}
	e := unmet[0]
	msg := fmt.Sprintf("Expected a call to %s with data %s, but got none", e.Target.Hex(), hexutil.Encode(e.Data))
	return cheatcodes.EncodeRevert(msg), vm.ErrExecutionReverted
}

func (in *Interceptor) Log(addr common.Address, topics []common.Hash, data []byte) {
	if in.arena != nil {
		in.arena.RecordLog(in.traceIdx, calltracer.RawLog{
			Topics: append([]common.Hash(nil), topics...),
			Data:   common.CopyBytes(data),
		})
	}
	in.session.RecordLog(addr, topics, data)
}

func (in *Interceptor) SLoad(addr common.Address, key common.Hash) (common.Hash, error) {
	in.session.RecordRead(addr, key)
	return in.st.GetState(addr, key)
}

func (in *Interceptor) SStore(addr common.Address, key, value common.Hash) error {
	if s := in.currentScope(); s != nil && s.ReadOnly {
		return vm.ErrWriteProtection
	}
	in.session.RecordWrite(addr, key)
	return in.st.SetState(addr, key, value)
}

func (in *Interceptor) Balance(addr common.Address) (*uint256.Int, error) {
	return in.st.GetBalance(addr)
}

func (in *Interceptor) Nonce(addr common.Address) (uint64, error) {
	return in.st.GetNonce(addr)
}

func (in *Interceptor) Code(addr common.Address) ([]byte, error) {
	return in.st.GetCode(addr)
}

func (in *Interceptor) CodeHash(addr common.Address) (common.Hash, error) {
	return in.st.GetCodeHash(addr)
}

func (in *Interceptor) SelfDestruct(addr, beneficiary common.Address) error {
	if s := in.currentScope(); s != nil && s.ReadOnly {
		return vm.ErrWriteProtection
	}
	balance, err := in.st.GetBalance(addr)
	if err != nil {
		return err
	}
	if _, err := state.Transfer(in.st, addr, beneficiary, balance); err != nil {
		return err
	}
	return in.st.SelfDestruct(addr)
}

func (in *Interceptor) OnOpcode(scope *vm.ScopeContext, pc uint64, op byte, gas, cost uint64, err error) {
	in.meterStep(scope)
	if in.arena == nil || !in.cfg.Debug {
		return
	}
	in.seq++
	step := calltracer.Step{
		Seq:     in.seq,
		Pc:      pc,
		Op:      gethvm.OpCode(op),
		Gas:     gas,
		GasCost: cost,
		Depth:   scope.Depth,
	}
	if len(scope.Stack) > 0 {
		step.Stack = append([]uint256.Int(nil), scope.Stack...)
	}
	if len(scope.Memory) > 0 {
		step.Memory = common.CopyBytes(scope.Memory)
	}
	if err != nil {
		step.Err = err.Error()
	}
	in.arena.AddStep(in.traceIdx, step)
}

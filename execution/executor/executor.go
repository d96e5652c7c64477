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
	"maps"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/ledgerwatch/log/v3"

	"github.com/erigontech/forgevm/core/state"
	"github.com/erigontech/forgevm/core/vm"
	"github.com/erigontech/forgevm/eth/calltracer"
	"github.com/erigontech/forgevm/execution/cheatcodes"
)

// Result is the outcome of a top-level call or deployment.
type Result struct {
	Status  vm.ExitKind
	Output  []byte
	Address common.Address
	GasUsed uint64
	Err     error
	// Trace is nil unless tracing is enabled.
	Trace *calltracer.CallTraceArena
}

func (r *Result) Success() bool { return r.Status == vm.ExitSucceed }

// RevertReason decodes a revert(string) payload, if the output holds one.
func (r *Result) RevertReason() (string, bool) {
	if r.Status != vm.ExitRevert {
		return "", false
	}
	reason, err := abi.UnpackRevert(r.Output)
	return reason, err == nil
}

// Executor runs top-level calls against one journaled state with one cheat
// session. It is not safe for concurrent use.
type Executor struct {
	cfg     Config
	st      state.JournaledState
	env     *vm.Env
	interp  vm.Interpreter
	session *cheatcodes.State
	logger  log.Logger
}

func New(cfg Config, st state.JournaledState, interp vm.Interpreter, logger log.Logger) *Executor {
	if logger == nil {
		logger = log.New("component", "executor")
	}
	return &Executor{
		cfg:     cfg,
		st:      st,
		env:     cfg.Env(),
		interp:  interp,
		session: cheatcodes.NewState(),
		logger:  logger,
	}
}

func (e *Executor) Env() *vm.Env                { return e.env }
func (e *Executor) State() state.JournaledState { return e.st }
func (e *Executor) Session() *cheatcodes.State  { return e.session }
func (e *Executor) Config() Config              { return e.cfg }

// Reset forgets the cheat session and restores the configured environment.
// State changes are kept.
func (e *Executor) Reset() {
	e.session.Reset()
	e.env = e.cfg.Env()
}

// BroadcastableTransactions returns the calls collected while broadcasting.
func (e *Executor) BroadcastableTransactions() []cheatcodes.BroadcastableTransaction {
	return e.session.BroadcastableTxs
}

// Call sends a message call from from to to. The sender's nonce is bumped
// like a transaction would. Only fatal failures are returned as an error;
// reverts and other VM errors are reported in the Result.
func (e *Executor) Call(from, to common.Address, input []byte, value *uint256.Int) (*Result, error) {
	e.env.Tx.Origin = from
	nonce, err := e.st.GetNonce(from)
	if err != nil {
		return nil, vm.Fatal(err)
	}
	if err := e.st.SetNonce(from, nonce+1); err != nil {
		return nil, vm.Fatal(err)
	}

	in := e.interceptor()
	ret, leftOver, err := in.call(vm.CallParams{
		Kind:   vm.CALL,
		Caller: from,
		Target: to,
		Input:  input,
		Gas:    e.cfg.GasLimit,
		Value:  value,
	}, e.cfg.GasLimit)
	return e.result(in, ret, common.Address{}, leftOver, err)
}

// Deploy creates a contract from initCode and returns its address in the
// Result.
func (e *Executor) Deploy(from common.Address, initCode []byte, value *uint256.Int) (*Result, error) {
	e.env.Tx.Origin = from
	in := e.interceptor()
	ret, addr, leftOver, err := in.create(vm.CreateParams{
		Kind:     vm.CREATE,
		Caller:   from,
		InitCode: initCode,
		Gas:      e.cfg.GasLimit,
		Value:    value,
	}, e.cfg.GasLimit)
	return e.result(in, ret, addr, leftOver, err)
}

func (e *Executor) interceptor() *Interceptor {
	return NewInterceptor(&e.cfg, e.st, e.env, e.interp, e.session, e.logger)
}

func (e *Executor) result(in *Interceptor, ret []byte, addr common.Address, leftOver uint64, err error) (*Result, error) {
	res := &Result{
		Status:  vm.Classify(err),
		Output:  ret,
		Address: addr,
		Err:     err,
		Trace:   in.Arena(),
	}
	if leftOver < e.cfg.GasLimit {
		res.GasUsed = e.cfg.GasLimit - leftOver
	}
	if res.Trace != nil {
		res.Trace.Labels = maps.Clone(e.session.Labels)
		arenaNodes.Observe(float64(res.Trace.Len()))
	}
	e.logger.Debug("top-level call finished", "status", res.Status, "gasUsed", res.GasUsed, "err", err)
	if res.Status == vm.ExitFatal {
		return res, err
	}
	return res, nil
}

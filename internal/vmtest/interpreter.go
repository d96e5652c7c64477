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

// Package vmtest provides an interpreter whose contracts are Go functions.
// Code deployed through it is a short marker that maps back to the function,
// which lets executor tests script call trees without EVM bytecode.
package vmtest

import (
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	gethvm "github.com/ethereum/go-ethereum/core/vm"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"

	"github.com/erigontech/forgevm/core/vm"
)

// Program is the body of a scripted contract.
type Program func(f *Frame) ([]byte, error)

// Interpreter runs Programs registered with Register.
type Interpreter struct {
	mu       sync.RWMutex
	programs map[common.Hash]Program
}

func New() *Interpreter {
	return &Interpreter{programs: map[common.Hash]Program{}}
}

// Register binds p to name and returns the code that runs it.
func (in *Interpreter) Register(name string, p Program) []byte {
	code := append([]byte{byte(gethvm.INVALID)}, []byte(name)...)
	in.mu.Lock()
	in.programs[crypto.Keccak256Hash(code)] = p
	in.mu.Unlock()
	return code
}

func (in *Interpreter) Run(scope *vm.ScopeContext, host vm.Host) ([]byte, error) {
	hash := scope.CodeHash
	if hash == (common.Hash{}) {
		hash = crypto.Keccak256Hash(scope.Code)
	}
	in.mu.RLock()
	p, ok := in.programs[hash]
	in.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("vmtest: no program for code %x", scope.Code)
	}
	return p(&Frame{Scope: scope, Host: host})
}

// Frame is what a Program sees of its execution.
type Frame struct {
	Scope *vm.ScopeContext
	Host  vm.Host
	pc    uint64
}

func (f *Frame) Address() common.Address { return f.Scope.Address() }
func (f *Frame) Caller() common.Address  { return f.Scope.Caller() }
func (f *Frame) Input() []byte           { return f.Scope.Input }
func (f *Frame) Value() *uint256.Int     { return f.Scope.CallValue() }

// Op reports a step to the host and charges cost.
func (f *Frame) Op(op gethvm.OpCode, cost uint64) error {
	f.Host.OnOpcode(f.Scope, f.pc, byte(op), f.Scope.Gas, cost, nil)
	f.pc++
	if !f.Scope.UseGas(cost) {
		return vm.ErrOutOfGas
	}
	return nil
}

// Call issues a plain CALL forwarding as much gas as allowed.
func (f *Frame) Call(target common.Address, input []byte) ([]byte, error) {
	return f.CallWith(vm.CALL, target, input, nil, f.Scope.Gas)
}

func (f *Frame) CallWith(kind vm.CallKind, target common.Address, input []byte, value *uint256.Int, gas uint64) ([]byte, error) {
	if err := f.Op(kind.OpCode(), 0); err != nil {
		return nil, err
	}
	ret, _, err := f.Host.Call(vm.CallParams{
		Kind:   kind,
		Caller: f.Address(),
		Target: target,
		Input:  input,
		Gas:    gas,
		Value:  value,
		PC:     f.pc - 1,
	})
	return ret, err
}

// Create deploys initCode with CREATE, or CREATE2 when salt is set.
func (f *Frame) Create(initCode []byte, value, salt *uint256.Int) (common.Address, error) {
	kind := vm.CREATE
	if salt != nil {
		kind = vm.CREATE2
	}
	if err := f.Op(kind.OpCode(), 0); err != nil {
		return common.Address{}, err
	}
	_, addr, _, err := f.Host.Create(vm.CreateParams{
		Kind:     kind,
		Caller:   f.Address(),
		InitCode: initCode,
		Gas:      f.Scope.Gas,
		Value:    value,
		Salt:     salt,
		PC:       f.pc - 1,
	})
	return addr, err
}

func (f *Frame) Log(data []byte, topics ...common.Hash) error {
	if err := f.Op(gethvm.LOG0+gethvm.OpCode(len(topics)), 375); err != nil {
		return err
	}
	f.Host.Log(f.Address(), topics, data)
	return nil
}

func (f *Frame) SLoad(key common.Hash) (common.Hash, error) {
	if err := f.Op(gethvm.SLOAD, 100); err != nil {
		return common.Hash{}, err
	}
	return f.Host.SLoad(f.Address(), key)
}

func (f *Frame) SStore(key, value common.Hash) error {
	if err := f.Op(gethvm.SSTORE, 100); err != nil {
		return err
	}
	return f.Host.SStore(f.Address(), key, value)
}

// Revert stops the frame the way revert(string) does.
func Revert(data []byte) ([]byte, error) {
	return data, vm.ErrExecutionReverted
}

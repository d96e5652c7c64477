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

package calltracer

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"

	"github.com/erigontech/forgevm/core/vm"
)

// OrderKind tags an entry of CallTraceNode.Ordering.
type OrderKind uint8

const (
	OrderLog OrderKind = iota
	OrderCall
)

// LogCallOrder records whether a log or a nested call happened next inside a
// frame. Index points into the node's Logs or Children respectively.
type LogCallOrder struct {
	Kind  OrderKind `json:"kind"`
	Index int       `json:"index"`
}

// RawLog is an event emitted by a frame.
type RawLog struct {
	Topics []common.Hash `json:"topics"`
	Data   hexutil.Bytes `json:"data"`
}

// CallTrace is the payload of a frame.
type CallTrace struct {
	Depth   int            `json:"depth"`
	Success bool           `json:"success"`
	Kind    vm.CallKind    `json:"kind"`
	Caller  common.Address `json:"caller"`
	Address common.Address `json:"address"`
	// Created is set for frames that deployed a contract at Address.
	Created bool          `json:"created"`
	Label   string        `json:"label,omitempty"`
	Value   *uint256.Int  `json:"value"`
	Data    hexutil.Bytes `json:"input"`
	// Output holds the deployed bytecode for creation frames.
	Output  hexutil.Bytes `json:"output"`
	GasCost uint64        `json:"gasCost"`
	Status  vm.ExitKind   `json:"status"`
	Steps   []Step        `json:"steps,omitempty"`
}

// CallTraceNode is a node of the arena. Nodes refer to each other by index.
type CallTraceNode struct {
	Parent   *int           `json:"parent,omitempty"`
	Children []int          `json:"children"`
	Idx      int            `json:"idx"`
	Trace    CallTrace      `json:"trace"`
	Logs     []RawLog       `json:"logs"`
	Ordering []LogCallOrder `json:"ordering"`
}

// CallTraceArena is an index-addressed call tree. Index 0 is the root frame.
type CallTraceArena struct {
	Arena []CallTraceNode `json:"arena"`
	// Labels decorate addresses when rendering.
	Labels map[common.Address]string `json:"labels,omitempty"`
}

// NewArena returns an arena holding an empty root frame.
func NewArena() *CallTraceArena {
	return &CallTraceArena{Arena: []CallTraceNode{{Idx: 0}}}
}

func (a *CallTraceArena) Len() int { return len(a.Arena) }

func (a *CallTraceArena) Root() *CallTraceNode { return &a.Arena[0] }

// Node returns the node at idx.
func (a *CallTraceArena) Node(idx int) *CallTraceNode { return &a.Arena[idx] }

// PushTrace opens a frame and returns its index. A frame of depth 0 replaces
// the root. Otherwise the parent is found by following the last child of
// entry until a node one level shallower than trace is reached; running out
// of children means the tree invariant is broken and PushTrace panics.
func (a *CallTraceArena) PushTrace(entry int, trace CallTrace) int {
	for {
		if trace.Depth == 0 {
			a.Arena[0].Trace = trace
			return 0
		}
		node := &a.Arena[entry]
		if node.Trace.Depth == trace.Depth-1 {
			idx := len(a.Arena)
			parent := entry
			node.Ordering = append(node.Ordering, LogCallOrder{Kind: OrderCall, Index: len(node.Children)})
			node.Children = append(node.Children, idx)
			a.Arena = append(a.Arena, CallTraceNode{
				Parent: &parent,
				Idx:    idx,
				Trace:  trace,
			})
			return idx
		}
		if len(node.Children) == 0 {
			panic(fmt.Sprintf("disconnected trace: no parent at depth %d under node %d", trace.Depth-1, entry))
		}
		entry = node.Children[len(node.Children)-1]
	}
}

// FillTrace closes the frame at idx. Children are left untouched.
func (a *CallTraceArena) FillTrace(idx int, success bool, output []byte, gasCost uint64, status vm.ExitKind) {
	t := &a.Arena[idx].Trace
	t.Success = success
	t.Output = common.CopyBytes(output)
	t.GasCost = gasCost
	t.Status = status
}

// RecordLog appends log to the frame at idx.
func (a *CallTraceArena) RecordLog(idx int, log RawLog) {
	node := &a.Arena[idx]
	node.Ordering = append(node.Ordering, LogCallOrder{Kind: OrderLog, Index: len(node.Logs)})
	node.Logs = append(node.Logs, log)
}

// AddStep appends a single-step record to the frame at idx.
func (a *CallTraceArena) AddStep(idx int, step Step) {
	a.Arena[idx].Trace.Steps = append(a.Arena[idx].Trace.Steps, step)
}

// Visitor is called for every frame, log and return in execution order.
type Visitor interface {
	EnterFrame(node *CallTraceNode)
	Log(node *CallTraceNode, log *RawLog)
	ExitFrame(node *CallTraceNode)
}

// Walk replays the tree in execution order honouring each node's Ordering.
func (a *CallTraceArena) Walk(v Visitor) {
	a.walk(0, v)
}

func (a *CallTraceArena) walk(idx int, v Visitor) {
	node := &a.Arena[idx]
	v.EnterFrame(node)
	for _, o := range node.Ordering {
		switch o.Kind {
		case OrderLog:
			v.Log(node, &node.Logs[o.Index])
		case OrderCall:
			a.walk(node.Children[o.Index], v)
		}
	}
	v.ExitFrame(node)
}

// Addresses returns every address seen in the tree, caller or callee, with the
// created flag of the frame that produced it.
func (a *CallTraceArena) Addresses() map[common.Address]bool {
	out := make(map[common.Address]bool, len(a.Arena))
	for i := range a.Arena {
		t := &a.Arena[i].Trace
		out[t.Address] = out[t.Address] || t.Created
		if _, ok := out[t.Caller]; !ok {
			out[t.Caller] = false
		}
	}
	return out
}

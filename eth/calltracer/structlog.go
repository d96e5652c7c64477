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
	"encoding/hex"
	"fmt"
	"io"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	gethvm "github.com/ethereum/go-ethereum/core/vm"
	"github.com/holiman/uint256"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Step is one executed instruction of a frame. Seq orders steps across
// frames, so the per-frame lists can be merged back into a single stream.
type Step struct {
	Seq     uint64                      `json:"seq"`
	Pc      uint64                      `json:"pc"`
	Op      gethvm.OpCode               `json:"op"`
	Gas     uint64                      `json:"gas"`
	GasCost uint64                      `json:"gasCost"`
	Depth   int                         `json:"depth"`
	Stack   []uint256.Int               `json:"stack,omitempty"`
	Memory  []byte                      `json:"memory,omitempty"`
	Storage map[common.Hash]common.Hash `json:"storage,omitempty"`
	Err     string                      `json:"error,omitempty"`
}

// StructLogRes stores a structured log emitted by the EVM while replaying a
// transaction in debug mode
type StructLogRes struct {
	Pc      uint64             `json:"pc"`
	Op      string             `json:"op"`
	Gas     uint64             `json:"gas"`
	GasCost uint64             `json:"gasCost"`
	Depth   int                `json:"depth"`
	Error   string             `json:"error,omitempty"`
	Stack   *[]string          `json:"stack,omitempty"`
	Memory  *[]string          `json:"memory,omitempty"`
	Storage *map[string]string `json:"storage,omitempty"`
}

// Steps returns every recorded step of the arena in execution order.
func (a *CallTraceArena) Steps() []Step {
	var steps []Step
	for i := range a.Arena {
		steps = append(steps, a.Arena[i].Trace.Steps...)
	}
	sort.SliceStable(steps, func(i, j int) bool { return steps[i].Seq < steps[j].Seq })
	return steps
}

// StructLogs renders the recorded steps in the debug_traceTransaction shape.
// Depth is reported 1-based like the RPC does.
func (a *CallTraceArena) StructLogs() []StructLogRes {
	return FormatLogs(a.Steps())
}

// FormatLogs formats EVM returned structured logs for json output
func FormatLogs(steps []Step) []StructLogRes {
	formatted := make([]StructLogRes, len(steps))
	for index, step := range steps {
		formatted[index] = StructLogRes{
			Pc:      step.Pc,
			Op:      step.Op.String(),
			Gas:     step.Gas,
			GasCost: step.GasCost,
			Depth:   step.Depth + 1,
			Error:   step.Err,
		}
		if step.Stack != nil {
			stack := make([]string, len(step.Stack))
			for i := range step.Stack {
				b := step.Stack[i].Bytes32()
				stack[i] = hex.EncodeToString(b[:])
			}
			formatted[index].Stack = &stack
		}
		if step.Memory != nil {
			memory := make([]string, 0, (len(step.Memory)+31)/32)
			for i := 0; i+32 <= len(step.Memory); i += 32 {
				memory = append(memory, hex.EncodeToString(step.Memory[i:i+32]))
			}
			formatted[index].Memory = &memory
		}
		if step.Storage != nil {
			storage := make(map[string]string, len(step.Storage))
			for k, v := range step.Storage {
				storage[fmt.Sprintf("%x", k)] = fmt.Sprintf("%x", v)
			}
			formatted[index].Storage = &storage
		}
	}
	return formatted
}

// WriteStructLogs writes the struct logs of the arena as a JSON array.
func (a *CallTraceArena) WriteStructLogs(w io.Writer) error {
	stream := json.BorrowStream(w)
	defer json.ReturnStream(stream)
	stream.WriteVal(a.StructLogs())
	stream.WriteRaw("\n")
	if stream.Error != nil {
		return stream.Error
	}
	return stream.Flush()
}

// WriteTrace writes a formatted trace to the given writer
func WriteTrace(w io.Writer, steps []Step) {
	for _, step := range steps {
		fmt.Fprintf(w, "%-16spc=%08d gas=%v cost=%v", step.Op, step.Pc, step.Gas, step.GasCost)
		if step.Err != "" {
			fmt.Fprintf(w, " ERROR: %v", step.Err)
		}
		fmt.Fprintln(w)
	}
}

// Encode serialises the arena.
func (a *CallTraceArena) Encode(w io.Writer) error {
	return json.NewEncoder(w).Encode(a)
}

// DecodeArena reads an arena written by Encode.
func DecodeArena(r io.Reader) (*CallTraceArena, error) {
	var a CallTraceArena
	if err := json.NewDecoder(r).Decode(&a); err != nil {
		return nil, err
	}
	if len(a.Arena) == 0 {
		return nil, fmt.Errorf("arena has no root frame")
	}
	return &a, nil
}

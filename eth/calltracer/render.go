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
	"io"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/erigontech/forgevm/core/vm"
	"github.com/erigontech/forgevm/execution/cheatcodes"
)

const (
	pipe   = "│   "
	branch = "├─ "
	last   = "└─ "
	space  = "    "
)

// RenderOptions control the tree printer.
type RenderOptions struct {
	Color bool
	// Indent is prepended to every line.
	Indent string
}

// AutoColor enables colour when w is a terminal.
func AutoColor(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

type palette struct {
	ok, fail, cheat, log, create, dim *color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		ok:     color.New(color.FgGreen),
		fail:   color.New(color.FgRed),
		cheat:  color.New(color.FgBlue),
		log:    color.New(color.FgCyan),
		create: color.New(color.FgYellow),
		dim:    color.New(color.Faint),
	}
	for _, c := range []*color.Color{p.ok, p.fail, p.cheat, p.log, p.create, p.dim} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

type renderer struct {
	a   *CallTraceArena
	w   io.Writer
	p   palette
	err error
}

func (r *renderer) printf(format string, args ...any) {
	if r.err != nil {
		return
	}
	_, r.err = fmt.Fprintf(r.w, format, args...)
}

// Render pretty-prints the call tree. Logs and nested calls are printed in the
// order they happened.
func (a *CallTraceArena) Render(w io.Writer, opts RenderOptions) error {
	r := &renderer{a: a, w: w, p: newPalette(opts.Color)}
	r.printf("%s%s\n", opts.Indent, r.frameLine(&a.Arena[0]))
	r.node(0, opts.Indent)
	return r.err
}

// String renders the tree without colour.
func (a *CallTraceArena) String() string {
	var sb strings.Builder
	_ = a.Render(&sb, RenderOptions{})
	return sb.String()
}

func (r *renderer) node(idx int, prefix string) {
	node := &r.a.Arena[idx]
	for _, o := range node.Ordering {
		switch o.Kind {
		case OrderLog:
			r.printf("%s%s%s\n", prefix, branch, r.logLine(&node.Logs[o.Index]))
		case OrderCall:
			child := &r.a.Arena[node.Children[o.Index]]
			r.printf("%s%s%s\n", prefix, branch, r.frameLine(child))
			r.node(child.Idx, prefix+pipe)
		}
	}
	r.printf("%s%s%s\n", prefix, last, r.returnLine(node))
}

func (r *renderer) name(addr common.Address) string {
	if l, ok := r.a.Labels[addr]; ok && l != "" {
		return l
	}
	if addr == cheatcodes.Address {
		return "VM"
	}
	return addr.Hex()
}

func (r *renderer) frameLine(node *CallTraceNode) string {
	t := &node.Trace
	status := r.p.ok
	if !t.Success {
		status = r.p.fail
	}
	gas := fmt.Sprintf("[%d]", t.GasCost)
	if t.Kind.IsCreate() {
		return fmt.Sprintf("%s %s", gas, r.p.create.Sprintf("→ new %s@%s", r.createdName(t), t.Address.Hex()))
	}
	name := status.Sprint(r.name(t.Address))
	if t.Label != "" {
		name = status.Sprint(t.Label)
	}
	if t.Address == cheatcodes.Address {
		name = r.p.cheat.Sprint(r.name(t.Address))
	}
	var call string
	if len(t.Data) >= 4 {
		call = fmt.Sprintf("%s::%s(%s)", name, hexutil.Encode(t.Data[:4]), hexutil.Encode(t.Data[4:]))
	} else {
		call = fmt.Sprintf("%s::fallback(%s)", name, hexutil.Encode(t.Data))
	}
	if t.Value != nil && !t.Value.IsZero() {
		call += fmt.Sprintf("{value: %s}", t.Value.Dec())
	}
	if t.Kind != vm.CALL {
		call += " " + r.p.dim.Sprintf("[%s]", strings.ToLower(t.Kind.String()))
	}
	return gas + " " + call
}

func (r *renderer) logLine(l *RawLog) string {
	var sb strings.Builder
	sb.WriteString("emit ")
	if len(l.Topics) == 0 {
		sb.WriteString("anonymous(")
	} else {
		sb.WriteString(l.Topics[0].Hex())
		sb.WriteString("(")
		for i, topic := range l.Topics[1:] {
			fmt.Fprintf(&sb, "topic %d: %s, ", i+1, topic.Hex())
		}
	}
	fmt.Fprintf(&sb, "data: %s)", hexutil.Encode(l.Data))
	return r.p.log.Sprint(sb.String())
}

func (r *renderer) returnLine(node *CallTraceNode) string {
	t := &node.Trace
	status := r.p.ok
	if !t.Success {
		status = r.p.fail
	}
	var out string
	switch {
	case t.Created && t.Success:
		out = fmt.Sprintf("%d bytes of code", len(t.Output))
	case !t.Success:
		if reason, err := abi.UnpackRevert(t.Output); err == nil {
			out = fmt.Sprintf("%q", reason)
		} else if len(t.Output) == 0 {
			out = t.Status.String()
		} else {
			out = hexutil.Encode(t.Output)
		}
	case len(t.Output) == 0:
		out = "()"
	default:
		out = hexutil.Encode(t.Output)
	}
	return status.Sprintf("← %s", out)
}

func (r *renderer) createdName(t *CallTrace) string {
	if t.Label != "" {
		return t.Label
	}
	if l, ok := r.a.Labels[t.Address]; ok && l != "" {
		return l
	}
	return "<unknown>"
}

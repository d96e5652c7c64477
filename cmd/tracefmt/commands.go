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

package main

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/ledgerwatch/log/v3"
	"github.com/pelletier/go-toml/v2"
	"github.com/urfave/cli/v2"

	"github.com/erigontech/forgevm/eth/calltracer"
	"github.com/erigontech/forgevm/execution/cheatcodes"
	"github.com/erigontech/forgevm/execution/executor"
)

var (
	StepsFlag = cli.BoolFlag{
		Name:  "steps",
		Usage: "Print recorded steps as plain text instead of struct logs",
	}
	FilterFlag = cli.StringFlag{
		Name:  "filter",
		Usage: "Only list cheats whose signature contains this string",
	}
)

var renderCommand = cli.Command{
	Action:    renderArena,
	Name:      "render",
	Usage:     "Print the call tree of an arena",
	ArgsUsage: "[arena.json]",
}

var structLogCommand = cli.Command{
	Action:    printStructLogs,
	Name:      "structlog",
	Usage:     "Print the recorded steps of an arena",
	ArgsUsage: "[arena.json]",
	Flags:     []cli.Flag{&StepsFlag},
}

var selectorsCommand = cli.Command{
	Action: printSelectors,
	Name:   "selectors",
	Usage:  "List the cheat ABI",
	Flags:  []cli.Flag{&FilterFlag},
}

var configCommand = cli.Command{
	Action: printConfig,
	Name:   "config",
	Usage:  "Print the effective executor config",
	Flags:  []cli.Flag{&ConfigFlag},
}

func readArena(ctx *cli.Context) (*calltracer.CallTraceArena, error) {
	in, err := openInput(ctx)
	if err != nil {
		return nil, err
	}
	defer in.Close()
	a, err := calltracer.DecodeArena(in)
	if err != nil {
		return nil, fmt.Errorf("decode arena: %w", err)
	}
	log.Debug("arena loaded", "frames", a.Len(), "labels", len(a.Labels))
	return a, nil
}

func renderArena(ctx *cli.Context) error {
	a, err := readArena(ctx)
	if err != nil {
		return err
	}
	w := ctx.App.Writer
	color, err := useColor(ctx, w, calltracer.AutoColor)
	if err != nil {
		return err
	}
	return a.Render(w, calltracer.RenderOptions{Color: color})
}

func printStructLogs(ctx *cli.Context) error {
	a, err := readArena(ctx)
	if err != nil {
		return err
	}
	if ctx.Bool(StepsFlag.Name) {
		calltracer.WriteTrace(ctx.App.Writer, a.Steps())
		return nil
	}
	return a.WriteStructLogs(ctx.App.Writer)
}

func printSelectors(ctx *cli.Context) error {
	filter := ctx.String(FilterFlag.Name)
	t := table.NewWriter()
	t.SetOutputMirror(ctx.App.Writer)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Selector", "Signature", "Returns"})
	n := 0
	for _, s := range cheatcodes.Selectors() {
		if filter != "" && !strings.Contains(s.Signature, filter) {
			continue
		}
		t.AppendRow(table.Row{hexutil.Encode(s.ID[:]), s.Signature, s.Outputs})
		n++
	}
	t.AppendFooter(table.Row{"", fmt.Sprintf("%d cheats", n), ""})
	t.Render()
	return nil
}

func printConfig(ctx *cli.Context) error {
	cfg := executor.DefaultConfig()
	if path := ctx.String(ConfigFlag.Name); path != "" {
		var err error
		if cfg, err = executor.LoadConfig(path); err != nil {
			return err
		}
	}
	out, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}
	_, err = ctx.App.Writer.Write(out)
	return err
}

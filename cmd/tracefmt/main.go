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

// tracefmt inspects call trace arenas written by the executor and prints the
// cheat ABI.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/ledgerwatch/log/v3"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/urfave/cli/v2"
)

var (
	VerbosityFlag = cli.StringFlag{
		Name:  "verbosity",
		Usage: "Log level: crit, error, warn, info, debug, trace",
		Value: "info",
	}
	ColorFlag = cli.StringFlag{
		Name:  "color",
		Usage: "Colour output: auto, always, never",
		Value: "auto",
	}
	ConfigFlag = cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Executor config file (.toml or .yaml)",
	}
)

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "tracefmt"
	app.Usage = "Render forgevm call traces"
	app.UsageText = app.Name + ` [command] [flags]`
	app.Flags = []cli.Flag{&VerbosityFlag, &ColorFlag}
	app.Before = func(ctx *cli.Context) error {
		return setupLogger(ctx)
	}
	app.Commands = []*cli.Command{
		&renderCommand,
		&structLogCommand,
		&selectorsCommand,
		&configCommand,
	}
	return app
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func setupLogger(ctx *cli.Context) error {
	lvl, err := log.LvlFromString(ctx.String(VerbosityFlag.Name))
	if err != nil {
		return err
	}
	usecolor := (isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())) && os.Getenv("TERM") != "dumb"
	output, format := io.Writer(os.Stderr), log.TerminalFormatNoColor()
	if usecolor {
		output, format = colorable.NewColorableStderr(), log.TerminalFormat()
	}
	log.Root().SetHandler(log.LvlFilterHandler(lvl, log.StreamHandler(output, format)))
	return nil
}

// openInput returns the file named by the first argument, or stdin for "-"
// and no argument.
func openInput(ctx *cli.Context) (io.ReadCloser, error) {
	name := ctx.Args().First()
	if name == "" || name == "-" {
		return io.NopCloser(ctx.App.Reader), nil
	}
	return os.Open(name)
}

func useColor(ctx *cli.Context, w io.Writer, auto func(io.Writer) bool) (bool, error) {
	switch mode := ctx.String(ColorFlag.Name); mode {
	case "auto":
		return auto(w), nil
	case "always":
		return true, nil
	case "never":
		return false, nil
	default:
		return false, fmt.Errorf("unknown colour mode %q", mode)
	}
}

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
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/erigontech/forgevm/execution/cheatcodes"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfig(t *testing.T) {
	t.Parallel()
	coinbase := common.HexToAddress("0x00000000000000000000000000000000000c0ffe")
	for _, tc := range []struct {
		name string
		file string
		body string
	}{
		{
			name: "toml",
			file: "forgevm.toml",
			body: `
gas_limit = 1000000
chain_id = 10
debug = true
ffi = true

[block]
number = 42
timestamp = 1700000000
coinbase = "0x00000000000000000000000000000000000c0ffe"
`,
		},
		{
			name: "yaml",
			file: "forgevm.yaml",
			body: `
gas_limit: 1000000
chain_id: 10
debug: true
ffi: true
block:
  number: 42
  timestamp: 1700000000
  coinbase: "0x00000000000000000000000000000000000c0ffe"
`,
		},
	} {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cfg, err := LoadConfig(writeConfig(t, tc.file, tc.body))
			require.NoError(t, err)
			require.Equal(t, uint64(1_000_000), cfg.GasLimit)
			require.Equal(t, uint64(10), cfg.ChainID)
			require.True(t, cfg.Debug)
			require.True(t, cfg.EnableFFI)
			require.Equal(t, uint64(42), cfg.Block.Number)
			require.Equal(t, coinbase, cfg.Block.Coinbase)

			// untouched keys keep their defaults
			require.True(t, cfg.Tracing)
			require.Equal(t, 1024, cfg.CallStackLimit)
			require.Equal(t, cheatcodes.DefaultSender, cfg.Sender)

			env := cfg.Env()
			require.Equal(t, uint64(10), env.ChainID.Uint64())
			require.Equal(t, uint64(1700000000), env.Block.Time.Uint64())
			require.Equal(t, cheatcodes.DefaultSender, env.Tx.Origin)
		})
	}
}

func TestLoadConfigErrors(t *testing.T) {
	t.Parallel()
	_, err := LoadConfig(writeConfig(t, "forgevm.json", "{}"))
	require.EqualError(t, err, "config files only accepted are .yaml and .toml")

	_, err = LoadConfig(writeConfig(t, "bad.toml", "call_stack_limit = 0"))
	require.ErrorContains(t, err, "call_stack_limit must be positive")

	_, err = LoadConfig(writeConfig(t, "broken.toml", "gas_limit = ["))
	require.ErrorContains(t, err, "parse")

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestOpenStateWithoutFork(t *testing.T) {
	t.Parallel()
	st, err := OpenState(context.Background(), DefaultConfig(), nil)
	require.NoError(t, err)
	ok, err := st.Exist(common.Address{1})
	require.NoError(t, err)
	require.False(t, ok)
}

func TestDefaultConfig(t *testing.T) {
	t.Parallel()
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	require.Equal(t, 1024, cfg.CallStackLimit)
	require.Equal(t, uint64(30_000_000), cfg.GasLimit)
	require.Equal(t, uint64(31337), cfg.Env().ChainID.Uint64())
}

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
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ledgerwatch/log/v3"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/erigontech/forgevm/core/state"
	"github.com/erigontech/forgevm/core/state/fork"
	"github.com/erigontech/forgevm/core/vm"
	"github.com/erigontech/forgevm/execution/cheatcodes"
)

type BlockConfig struct {
	Number     uint64         `toml:"number" yaml:"number"`
	Timestamp  uint64         `toml:"timestamp" yaml:"timestamp"`
	GasLimit   uint64         `toml:"gas_limit" yaml:"gas_limit"`
	BaseFee    uint64         `toml:"base_fee" yaml:"base_fee"`
	Difficulty uint64         `toml:"difficulty" yaml:"difficulty"`
	Coinbase   common.Address `toml:"coinbase" yaml:"coinbase"`
	PrevRandao common.Hash    `toml:"prevrandao" yaml:"prevrandao"`
}

type ForkConfig struct {
	// URL of the JSON-RPC endpoint to fork from. Empty means no fork.
	URL         string `toml:"url" yaml:"url"`
	BlockNumber uint64 `toml:"block_number" yaml:"block_number"`
	CacheSize   int    `toml:"cache_size" yaml:"cache_size"`
}

type Config struct {
	CallStackLimit int    `toml:"call_stack_limit" yaml:"call_stack_limit"`
	GasLimit       uint64 `toml:"gas_limit" yaml:"gas_limit"`
	GasPrice       uint64 `toml:"gas_price" yaml:"gas_price"`
	ChainID        uint64 `toml:"chain_id" yaml:"chain_id"`
	// Tracing records the call tree of every top-level call.
	Tracing bool `toml:"tracing" yaml:"tracing"`
	// Debug additionally records every step reported by the interpreter.
	Debug       bool           `toml:"debug" yaml:"debug"`
	EnableFFI   bool           `toml:"ffi" yaml:"ffi"`
	Precompiles bool           `toml:"precompiles" yaml:"precompiles"`
	Sender      common.Address `toml:"sender" yaml:"sender"`
	Block       BlockConfig    `toml:"block" yaml:"block"`
	Fork        ForkConfig     `toml:"fork" yaml:"fork"`
}

func DefaultConfig() Config {
	return Config{
		CallStackLimit: int(vm.CallCreateDepth),
		GasLimit:       30_000_000,
		ChainID:        31337,
		Tracing:        true,
		Precompiles:    true,
		Sender:         cheatcodes.DefaultSender,
		Block: BlockConfig{
			Number:    1,
			Timestamp: 1,
			GasLimit:  30_000_000,
		},
		Fork: ForkConfig{CacheSize: fork.DefaultCacheSize},
	}
}

// LoadConfig reads a .toml or .yaml file on top of DefaultConfig.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := filepath.Ext(path); ext {
	case ".toml":
		err = toml.Unmarshal(data, &cfg)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &cfg)
	default:
		return cfg, errors.New("config files only accepted are .yaml and .toml")
	}
	if err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

func (c *Config) Validate() error {
	if c.CallStackLimit <= 0 {
		return fmt.Errorf("call_stack_limit must be positive, got %d", c.CallStackLimit)
	}
	if c.GasLimit == 0 {
		return errors.New("gas_limit must be positive")
	}
	return nil
}

// Env builds the execution environment described by the config.
func (c *Config) Env() *vm.Env {
	env := &vm.Env{}
	env.Block.Coinbase = c.Block.Coinbase
	env.Block.GasLimit = c.Block.GasLimit
	env.Block.BlockNumber.SetUint64(c.Block.Number)
	env.Block.Time.SetUint64(c.Block.Timestamp)
	env.Block.Difficulty.SetUint64(c.Block.Difficulty)
	env.Block.BaseFee.SetUint64(c.Block.BaseFee)
	env.Block.PrevRandao = c.Block.PrevRandao
	env.Tx.Origin = c.Sender
	env.Tx.GasPrice.SetUint64(c.GasPrice)
	env.ChainID.SetUint64(c.ChainID)
	return env
}

// OpenState returns an empty in-memory state, backed by a remote node when a
// fork URL is configured.
func OpenState(ctx context.Context, c Config, logger log.Logger) (*state.MemoryState, error) {
	if c.Fork.URL == "" {
		return state.New(nil), nil
	}
	backend, err := fork.Dial(ctx, c.Fork.URL, c.Fork.BlockNumber, c.Fork.CacheSize, logger)
	if err != nil {
		return nil, fmt.Errorf("fork %s: %w", c.Fork.URL, err)
	}
	return state.New(backend), nil
}

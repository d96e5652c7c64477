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

package fork

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/holiman/uint256"
	"github.com/ledgerwatch/log/v3"
	"golang.org/x/sync/singleflight"

	"github.com/erigontech/forgevm/core/state"
)

//go:generate mockgen -typed=true -destination=./client_mock.go -package=fork . Client

// Client is the part of the JSON-RPC client the fork backend reads through.
type Client interface {
	BlockNumber(ctx context.Context) (uint64, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	NonceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (uint64, error)
	CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error)
	StorageAt(ctx context.Context, account common.Address, key common.Hash, blockNumber *big.Int) ([]byte, error)
}

const DefaultCacheSize = 4096

type slotKey struct {
	addr common.Address
	key  common.Hash
}

// Backend serves accounts and storage of a remote chain pinned at one block.
// It is safe for concurrent use by several executors: results are cached and
// concurrent fetches of the same item are collapsed into one request.
type Backend struct {
	ctx    context.Context
	client Client
	block  *big.Int

	accounts *lru.Cache[common.Address, *state.AccountInfo]
	slots    *lru.Cache[slotKey, common.Hash]
	group    singleflight.Group

	logger log.Logger
}

var _ state.Backend = (*Backend)(nil)

// Dial connects to rpcURL and pins the fork at blockNumber (0 = current head).
func Dial(ctx context.Context, rpcURL string, blockNumber uint64, cacheSize int, logger log.Logger) (*Backend, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial fork %s: %w", rpcURL, err)
	}
	return NewBackend(ctx, client, blockNumber, cacheSize, logger)
}

// NewBackend wraps client. The context is used for every fetch; cancelling it
// fails all later loads.
func NewBackend(ctx context.Context, client Client, blockNumber uint64, cacheSize int, logger log.Logger) (*Backend, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	if logger == nil {
		logger = log.New("component", "fork")
	}
	if blockNumber == 0 {
		head, err := client.BlockNumber(ctx)
		if err != nil {
			return nil, fmt.Errorf("fork head: %w", err)
		}
		blockNumber = head
	}
	accounts, err := lru.New[common.Address, *state.AccountInfo](cacheSize)
	if err != nil {
		return nil, err
	}
	slots, err := lru.New[slotKey, common.Hash](cacheSize * 4)
	if err != nil {
		return nil, err
	}
	logger.Debug("fork backend ready", "block", blockNumber, "cache", cacheSize)
	return &Backend{
		ctx:      ctx,
		client:   client,
		block:    new(big.Int).SetUint64(blockNumber),
		accounts: accounts,
		slots:    slots,
		logger:   logger,
	}, nil
}

// BlockNumber is the block the fork is pinned to.
func (b *Backend) BlockNumber() uint64 { return b.block.Uint64() }

func (b *Backend) Account(addr common.Address) (*state.AccountInfo, error) {
	if info, ok := b.accounts.Get(addr); ok {
		return info, nil
	}
	v, err, _ := b.group.Do("account:"+addr.Hex(), func() (any, error) {
		if info, ok := b.accounts.Get(addr); ok {
			return info, nil
		}
		info, err := b.fetchAccount(addr)
		if err != nil {
			return nil, err
		}
		b.accounts.Add(addr, info)
		return info, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*state.AccountInfo), nil
}

func (b *Backend) fetchAccount(addr common.Address) (*state.AccountInfo, error) {
	balance, err := b.client.BalanceAt(b.ctx, addr, b.block)
	if err != nil {
		return nil, fmt.Errorf("balance: %w", err)
	}
	nonce, err := b.client.NonceAt(b.ctx, addr, b.block)
	if err != nil {
		return nil, fmt.Errorf("nonce: %w", err)
	}
	code, err := b.client.CodeAt(b.ctx, addr, b.block)
	if err != nil {
		return nil, fmt.Errorf("code: %w", err)
	}
	b.logger.Debug("fetched account", "addr", addr, "nonce", nonce, "code", len(code))
	if balance.Sign() == 0 && nonce == 0 && len(code) == 0 {
		return nil, nil
	}
	bal, overflow := uint256.FromBig(balance)
	if overflow {
		return nil, fmt.Errorf("balance of %x overflows 256 bits", addr)
	}
	return &state.AccountInfo{Nonce: nonce, Balance: bal, Code: code}, nil
}

func (b *Backend) Storage(addr common.Address, key common.Hash) (common.Hash, error) {
	k := slotKey{addr: addr, key: key}
	if v, ok := b.slots.Get(k); ok {
		return v, nil
	}
	v, err, _ := b.group.Do("slot:"+addr.Hex()+key.Hex(), func() (any, error) {
		raw, err := b.client.StorageAt(b.ctx, addr, key, b.block)
		if err != nil {
			return nil, fmt.Errorf("storage: %w", err)
		}
		v := common.BytesToHash(raw)
		b.slots.Add(k, v)
		return v, nil
	})
	if err != nil {
		return common.Hash{}, err
	}
	return v.(common.Hash), nil
}

// Copyright 2017 The go-ethereum Authors
// (original work)
// Copyright 2024 The Erigon Authors
// (modifications)
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

package vm

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

// precompiledTest defines the input/output pairs for precompiled contract tests.
type precompiledTest struct {
	Input, Expected string
	Gas             uint64
	Name            string
}

// precompiledFailureTest defines the input/error pairs for precompiled
// contract failure tests.
type precompiledFailureTest struct {
	Input string
	Name  string
}

var precompiledTests = map[string][]precompiledTest{
	"02": {
		{Name: "sha256 empty", Input: "", Gas: 60, Expected: "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"},
	},
	"04": {
		{Name: "identity", Input: "deadbeef", Gas: 18, Expected: "deadbeef"},
		{Name: "identity empty", Input: "", Gas: 15, Expected: ""},
	},
}

// EIP-152 test vectors
var blake2FMalformedInputTests = []precompiledFailureTest{
	{Input: "", Name: "vector 0: empty input"},
	{Input: "00000c48c9bdf267e6096a3ba7ca8485ae67bb2bf894fe72f36e3cf1361d5f3af54fa5d182e6ad7f520e511f6c3e2b8c68", Name: "vector 1: less than 213 bytes input"},
}

func testPrecompiled(t *testing.T, addr string, test precompiledTest) {
	p := Precompiles(true)[common.HexToAddress(addr)]
	in := common.Hex2Bytes(test.Input)
	gas := p.RequiredGas(in)
	t.Run(fmt.Sprintf("%s-Gas=%d", test.Name, gas), func(t *testing.T) {
		t.Parallel()
		res, left, err := RunPrecompiledContract(p, in, gas+100)
		require.NoError(t, err)
		require.Equal(t, test.Expected, common.Bytes2Hex(res))
		require.Equal(t, test.Gas, gas)
		require.Equal(t, uint64(100), left)
		// Verify that the precompile did not touch the input buffer
		require.True(t, bytes.Equal(in, common.Hex2Bytes(test.Input)))
	})
}

func TestPrecompiledContracts(t *testing.T) {
	t.Parallel()
	for addr, tests := range precompiledTests {
		for _, test := range tests {
			testPrecompiled(t, addr, test)
		}
	}
}

func TestPrecompiledOutOfGas(t *testing.T) {
	t.Parallel()
	p := Precompiles(true)[common.BytesToAddress([]byte{0x04})]
	in := common.Hex2Bytes("deadbeef")
	_, left, err := RunPrecompiledContract(p, in, p.RequiredGas(in)-1)
	require.ErrorIs(t, err, ErrOutOfGas)
	require.Zero(t, left)
}

func TestPrecompiledBlake2FFailure(t *testing.T) {
	t.Parallel()
	p := Precompiles(true)[common.BytesToAddress([]byte{0x09})]
	for _, test := range blake2FMalformedInputTests {
		test := test
		t.Run(test.Name, func(t *testing.T) {
			t.Parallel()
			_, _, err := RunPrecompiledContract(p, common.Hex2Bytes(test.Input), 1_000_000)
			require.ErrorIs(t, err, ErrPrecompileFailed)
			require.Equal(t, ExitError, Classify(err))
		})
	}
}

func TestPrecompilesDisabled(t *testing.T) {
	t.Parallel()
	require.Empty(t, Precompiles(false))
	require.Len(t, Precompiles(true), 10)
}

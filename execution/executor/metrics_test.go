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
	"math/big"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/erigontech/forgevm/execution/cheatcodes"
	"github.com/erigontech/forgevm/internal/vmtest"
)

func TestMetrics(t *testing.T) {
	// counters are global, so only growth is asserted
	frames := testutil.ToFloat64(framesTotal.WithLabelValues("CALL", "succeed"))
	warps := testutil.ToFloat64(cheatsTotal.WithLabelValues("warp", "ok"))

	fx := newFixture(t, nil)
	fx.deploy(addrA, "A", func(f *vmtest.Frame) ([]byte, error) {
		return bubble(f.Call(cheatcodes.Address, cheat(t, "warp(uint256)", big.NewInt(7))))
	})
	res := fx.call(addrA)
	require.True(t, res.Success(), res.Err)

	require.GreaterOrEqual(t, testutil.ToFloat64(framesTotal.WithLabelValues("CALL", "succeed")), frames+2)
	require.GreaterOrEqual(t, testutil.ToFloat64(cheatsTotal.WithLabelValues("warp", "ok")), warps+1)

	n, err := testutil.GatherAndCount(Registry, "forgevm_executor_trace_nodes")
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

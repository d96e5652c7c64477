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
	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds the executor metrics. Callers expose it with promhttp or
// gather it directly.
var Registry = prometheus.NewRegistry()

var (
	framesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "forgevm",
		Subsystem: "executor",
		Name:      "frames_total",
		Help:      "Call and create frames by kind and exit status.",
	}, []string{"kind", "status"})

	cheatsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "forgevm",
		Subsystem: "executor",
		Name:      "cheats_total",
		Help:      "Cheat invocations by name and outcome.",
	}, []string{"cheat", "outcome"})

	arenaNodes = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "forgevm",
		Subsystem: "executor",
		Name:      "trace_nodes",
		Help:      "Frames recorded per top-level call.",
		Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
	})
)

func init() {
	Registry.MustRegister(framesTotal, cheatsTotal, arenaNodes)
}

// Copyright 2025 The pbpctrl Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package rpc

import (
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/pbpctrl/maestro/common"
	"github.com/pbpctrl/maestro/internal/labels"
	"github.com/pbpctrl/maestro/pwrpc"
)

var (
	framesDecoded = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: common.App,
			Subsystem: "rpc",
			Name:      "frames_decoded_total",
			Help:      "HDLC frames successfully decoded off the transport",
		},
	)

	envelopeDecodeErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: common.App,
			Subsystem: "rpc",
			Name:      "envelope_decode_errors_total",
			Help:      "Packet envelopes dropped for failing to decode",
		},
	)

	callsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: common.App,
			Subsystem: "rpc",
			Name:      "calls_in_flight",
			Help:      "RPC calls currently registered in the dispatcher's call table",
		},
	)

	callsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: common.App,
			Subsystem: "rpc",
			Name:      "calls_completed_total",
			Help:      "Terminal RPC calls, by outcome",
		},
		[]string{"outcome"},
	)

	callsCancelled = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: common.App,
			Subsystem: "rpc",
			Name:      "calls_cancelled_total",
			Help:      "Calls cancelled locally (caller cancel or timeout)",
		},
	)

	callsByMethod = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: common.App,
			Subsystem: "rpc",
			Name:      "calls_by_method_total",
			Help:      "Terminal RPC calls broken down by service, method and outcome",
		},
		[]string{"service_id", "method_id", "outcome"},
	)
)

// methodCounters caches the *prometheus.Counter for each distinct
// (service, method, outcome) label set keyed by its hash, so recordComplete
// doesn't repeat CounterVec's own label-set lookup on every completed call -
// the dispatcher's hottest per-call bookkeeping path.
var (
	methodCountersMu sync.Mutex
	methodCounters   = make(map[uint64]prometheus.Counter)
)

func callsByMethodCounter(serviceID pwrpc.ServiceID, methodID pwrpc.MethodID, outcome string) prometheus.Counter {
	serviceIDStr := strconv.FormatUint(uint64(serviceID), 10)
	methodIDStr := strconv.FormatUint(uint64(methodID), 10)

	ls := labels.Labels{
		{Name: "service_id", Value: serviceIDStr},
		{Name: "method_id", Value: methodIDStr},
		{Name: "outcome", Value: outcome},
	}
	h := ls.Hash()

	methodCountersMu.Lock()
	defer methodCountersMu.Unlock()
	if c, ok := methodCounters[h]; ok {
		return c
	}
	c := callsByMethod.WithLabelValues(serviceIDStr, methodIDStr, outcome)
	methodCounters[h] = c
	return c
}

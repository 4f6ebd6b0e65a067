// SPDX-License-Identifier: AGPL-3.0-or-later
// relaybus - a distributed peer-to-peer service bus
// Copyright (C) 2023-2026 relaybus contributors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// The source code is available at <https://github.com/relaybus/relaybus>

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds every collector relaybusd registers, for the KV store
// and for the bus's core directory/dispatch operations. A process
// builds exactly one against prometheus.DefaultRegisterer; tests pass
// a nil *Metrics to the components that take one, so no collectors are
// registered twice within one test binary.
type Metrics struct {
	// KV store metrics.
	KVOperationsTotal   *prometheus.CounterVec
	KVOperationDuration *prometheus.HistogramVec
	KVKeysTotal         prometheus.Gauge
	KVExpiredKeysTotal  prometheus.Counter
	KVCleanupDuration   prometheus.Histogram

	// Peer Directory metrics.
	DirectoryRegistrationsTotal *prometheus.CounterVec
	DirectoryLookupsTotal       *prometheus.CounterVec
	DirectoryLookupDuration     prometheus.Histogram

	// Dispatch queue metrics, all labeled by queue name since a
	// process runs one dispatch.Queue per dispatcher.Registration
	// QueueName.
	DispatchQueueDepth    *prometheus.GaugeVec
	DispatchBatchSize     *prometheus.HistogramVec
	DispatchAsyncInFlight *prometheus.GaugeVec
}

// NewMetrics builds every collector and registers it against reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		KVOperationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kv_operations_total",
			Help: "The total number of KV operations performed",
		}, []string{"operation", "status"}),
		KVOperationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "kv_operation_duration_seconds",
			Help:    "Duration of KV operations",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		KVKeysTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "kv_keys_total",
			Help: "The current number of keys in the KV store",
		}),
		KVExpiredKeysTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kv_expired_keys_total",
			Help: "The total number of expired keys cleaned up",
		}),
		KVCleanupDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "kv_cleanup_duration_seconds",
			Help:    "Duration of KV cleanup operations",
			Buckets: prometheus.DefBuckets,
		}),
		DirectoryRegistrationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "directory_registrations_total",
			Help: "The total number of Register/Unregister/Decommission calls handled by the directory server",
		}, []string{"action"}),
		DirectoryLookupsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "directory_lookups_total",
			Help: "The total number of GetPeersHandlingMessage lookups, by whether any peer matched",
		}, []string{"result"}),
		DirectoryLookupDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "directory_lookup_duration_seconds",
			Help:    "Duration of GetPeersHandlingMessage lookups",
			Buckets: prometheus.DefBuckets,
		}),
		DispatchQueueDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "dispatch_queue_depth",
			Help: "The current number of pending entries on a dispatch queue",
		}, []string{"queue"}),
		DispatchBatchSize: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "dispatch_batch_size",
			Help:    "The size of batches a dispatch queue's worker executed",
			Buckets: []float64{1, 2, 4, 8, 16, 32, 64, 128},
		}, []string{"queue"}),
		DispatchAsyncInFlight: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "dispatch_async_in_flight",
			Help: "The current number of in-flight async invocations on a dispatch queue",
		}, []string{"queue"}),
	}
	m.register(reg)
	return m
}

func (m *Metrics) register(reg prometheus.Registerer) {
	reg.MustRegister(
		m.KVOperationsTotal,
		m.KVOperationDuration,
		m.KVKeysTotal,
		m.KVExpiredKeysTotal,
		m.KVCleanupDuration,
		m.DirectoryRegistrationsTotal,
		m.DirectoryLookupsTotal,
		m.DirectoryLookupDuration,
		m.DispatchQueueDepth,
		m.DispatchBatchSize,
		m.DispatchAsyncInFlight,
	)
}

// KV store metrics methods.

func (m *Metrics) RecordKVOperation(operation, status string, duration float64) {
	m.KVOperationsTotal.WithLabelValues(operation, status).Inc()
	m.KVOperationDuration.WithLabelValues(operation).Observe(duration)
}

func (m *Metrics) SetKVKeysTotal(count float64) {
	m.KVKeysTotal.Set(count)
}

func (m *Metrics) IncrementKVExpiredKeys(count float64) {
	m.KVExpiredKeysTotal.Add(count)
}

func (m *Metrics) RecordKVCleanup(duration float64) {
	m.KVCleanupDuration.Observe(duration)
}

// Directory metrics methods.

func (m *Metrics) RecordDirectoryRegistration(action string) {
	m.DirectoryRegistrationsTotal.WithLabelValues(action).Inc()
}

func (m *Metrics) RecordDirectoryLookup(result string, duration float64) {
	m.DirectoryLookupsTotal.WithLabelValues(result).Inc()
	m.DirectoryLookupDuration.Observe(duration)
}

// Dispatch queue metrics methods.

func (m *Metrics) SetDispatchQueueDepth(queue string, depth float64) {
	m.DispatchQueueDepth.WithLabelValues(queue).Set(depth)
}

func (m *Metrics) ObserveDispatchBatchSize(queue string, size float64) {
	m.DispatchBatchSize.WithLabelValues(queue).Observe(size)
}

func (m *Metrics) SetDispatchAsyncInFlight(queue string, count float64) {
	m.DispatchAsyncInFlight.WithLabelValues(queue).Set(count)
}

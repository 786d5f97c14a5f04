/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/
package core

import (
	"github.com/akshayp9/batch-distributor-dual-sig/common/monitoring"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	batchesExecutedOpts = monitoring.CounterOpts{
		Namespace:  "engine",
		Name:       "batches_executed_total",
		Help:       "The total number of batches executed, by path.",
		LabelNames: []string{"path"},
	}

	transfersExecutedOpts = monitoring.CounterOpts{
		Namespace: "engine",
		Name:      "transfers_executed_total",
		Help:      "The total number of individual recipient transfers.",
	}

	executionFailuresOpts = monitoring.CounterOpts{
		Namespace:  "engine",
		Name:       "execution_failures_total",
		Help:       "The total number of rejected or rolled back executions, by path.",
		LabelNames: []string{"path"},
	}

	batchSizeOpts = monitoring.HistogramOpts{
		Namespace: "engine",
		Name:      "batch_size_recipients",
		Help:      "Recipient count per executed batch.",
		Buckets:   []float64{1, 2, 5, 10, 25, 50, 100, 250, 500},
	}
)

type EngineMetrics struct {
	BatchesExecuted   *prometheus.CounterVec
	TransfersExecuted prometheus.Counter
	ExecutionFailures *prometheus.CounterVec
	BatchSize         prometheus.Observer
}

func NewEngineMetrics(p *monitoring.Provider) *EngineMetrics {
	return &EngineMetrics{
		BatchesExecuted:   p.NewCounter(batchesExecutedOpts),
		TransfersExecuted: p.NewCounter(transfersExecutedOpts).WithLabelValues(),
		ExecutionFailures: p.NewCounter(executionFailuresOpts),
		BatchSize:         p.NewHistogram(batchSizeOpts).WithLabelValues(),
	}
}
